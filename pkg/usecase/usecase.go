package usecase

import (
	"time"

	"github.com/nexaflow/nexaflow/pkg/domain/interfaces"
	"github.com/nexaflow/nexaflow/pkg/domain/types"
	"github.com/nexaflow/nexaflow/pkg/service/notify"
)

// DefaultMaxRuleDepth is how many levels of rule-caused events are dispatched.
// Events at depth 0 come from users; depth 1 from rules reacting to them.
const DefaultMaxRuleDepth = 1

type UseCases struct {
	repo              interfaces.Repository
	storage           interfaces.ObjectStorage
	sender            interfaces.NotificationSender
	clock             func() time.Time
	links             *EmailLinkConfig
	maxRuleDepth      int
	immediateDelivery bool
	defaultChannel    types.NotificationChannel

	Project      *ProjectUseCase
	Deliverable  *DeliverableUseCase
	Approval     *ApprovalUseCase
	Automation   *AutomationUseCase
	Activity     *ActivityUseCase
	Notification *NotificationUseCase
	Rule         *RuleUseCase
	Auth         AuthUseCaseInterface
}

type Option func(*UseCases)

// WithStorage sets where uploaded version files are stored
func WithStorage(storage interfaces.ObjectStorage) Option {
	return func(uc *UseCases) {
		uc.storage = storage
	}
}

// WithNotificationSender sets the channel dispatcher used to deliver notifications
func WithNotificationSender(sender interfaces.NotificationSender) Option {
	return func(uc *UseCases) {
		uc.sender = sender
	}
}

// WithClock overrides the time source
func WithClock(clock func() time.Time) Option {
	return func(uc *UseCases) {
		uc.clock = clock
	}
}

// WithEmailLinks enables signed approval links for the email channel
func WithEmailLinks(cfg *EmailLinkConfig) Option {
	return func(uc *UseCases) {
		uc.links = cfg
	}
}

// WithMaxRuleDepth sets how deep rule-caused events are dispatched
func WithMaxRuleDepth(depth int) Option {
	return func(uc *UseCases) {
		uc.maxRuleDepth = depth
	}
}

// WithImmediateDelivery delivers notifications in the background as soon as they are queued
func WithImmediateDelivery(enabled bool) Option {
	return func(uc *UseCases) {
		uc.immediateDelivery = enabled
	}
}

// WithDefaultChannel sets the channel used for recipients without a preference
func WithDefaultChannel(channel types.NotificationChannel) Option {
	return func(uc *UseCases) {
		uc.defaultChannel = channel
	}
}

func WithAuth(auth AuthUseCaseInterface) Option {
	return func(uc *UseCases) {
		uc.Auth = auth
	}
}

func New(repo interfaces.Repository, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:           repo,
		clock:          func() time.Time { return time.Now().UTC() },
		maxRuleDepth:   DefaultMaxRuleDepth,
		defaultChannel: types.NotificationChannelInApp,
	}

	for _, opt := range opts {
		opt(uc)
	}

	if uc.sender == nil {
		uc.sender = notify.New()
	}

	uc.Notification = NewNotificationUseCase(repo, uc.sender, uc.clock, uc.defaultChannel, uc.immediateDelivery)
	uc.Activity = NewActivityUseCase(repo, uc.Notification, uc.clock)
	uc.Project = NewProjectUseCase(repo, uc.clock)
	uc.Rule = NewRuleUseCase(repo, uc.clock)
	uc.Deliverable = NewDeliverableUseCase(repo, uc.storage, uc.Activity, uc.clock)
	uc.Automation = NewAutomationUseCase(repo, uc.Deliverable, uc.Activity, uc.Notification, uc.maxRuleDepth)
	uc.Deliverable.automation = uc.Automation
	uc.Approval = NewApprovalUseCase(repo, uc.Deliverable, uc.links, uc.clock)

	return uc
}
