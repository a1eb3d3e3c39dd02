package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/nexaflow/nexaflow/pkg/domain/interfaces"
	"github.com/nexaflow/nexaflow/pkg/domain/model"
	"github.com/nexaflow/nexaflow/pkg/domain/model/auth"
	"github.com/nexaflow/nexaflow/pkg/domain/types"
	"github.com/nexaflow/nexaflow/pkg/utils/async"
	"github.com/nexaflow/nexaflow/pkg/utils/errutil"
	"github.com/nexaflow/nexaflow/pkg/utils/logging"
	"golang.org/x/sync/errgroup"
)

// DefaultDispatchBatchSize is how many pending notifications one dispatch run handles
const DefaultDispatchBatchSize = 100

type NotificationUseCase struct {
	repo           interfaces.Repository
	sender         interfaces.NotificationSender
	clock          func() time.Time
	defaultChannel types.NotificationChannel
	immediate      bool
}

func NewNotificationUseCase(repo interfaces.Repository, sender interfaces.NotificationSender, clock func() time.Time, defaultChannel types.NotificationChannel, immediate bool) *NotificationUseCase {
	return &NotificationUseCase{
		repo:           repo,
		sender:         sender,
		clock:          clock,
		defaultChannel: defaultChannel,
		immediate:      immediate,
	}
}

// NotificationInput describes a notification to queue. An empty Channel uses the
// recipient's preference.
type NotificationInput struct {
	RecipientID   string
	Channel       types.NotificationChannel
	Subject       string
	Body          string
	ProjectID     string
	DeliverableID string
}

// DispatchReport summarizes one dispatch run
type DispatchReport struct {
	Sent   int
	Failed int
}

// Enqueue stores a pending notification
func (uc *NotificationUseCase) Enqueue(ctx context.Context, input NotificationInput) (*model.Notification, error) {
	recipient, err := loadProfile(ctx, uc.repo, input.RecipientID)
	if err != nil {
		return nil, err
	}

	channel := input.Channel
	if channel == "" {
		channel = recipient.NotifyChannel
	}
	if channel == "" {
		channel = uc.defaultChannel
	}
	channel = channel.Normalize()
	if !channel.IsValid() {
		return nil, goerr.Wrap(ErrValidation, "unknown notification channel", goerr.V("channel", channel))
	}

	n := &model.Notification{
		ID:            uuid.NewString(),
		RecipientID:   recipient.ID,
		Channel:       channel,
		Subject:       input.Subject,
		Body:          input.Body,
		ProjectID:     input.ProjectID,
		DeliverableID: input.DeliverableID,
		Status:        types.NotificationStatusPending,
		CreatedAt:     uc.clock(),
	}

	created, err := uc.repo.Notification().Create(ctx, n)
	if err != nil {
		return nil, backendError(err, "failed to queue notification", goerr.V(ProfileIDKey, recipient.ID))
	}

	if uc.immediate {
		queued := *created
		async.Dispatch(ctx, func(ctx context.Context) error {
			return uc.deliver(ctx, &queued, recipient)
		})
	}
	return created, nil
}

// ListForRecipient returns the latest notifications addressed to the session user
func (uc *NotificationUseCase) ListForRecipient(ctx context.Context, session *auth.Session, limit int) ([]*model.Notification, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	notifications, err := uc.repo.Notification().ListByRecipient(ctx, session.UserID, limit)
	if err != nil {
		return nil, backendError(err, "failed to list notifications", goerr.V(UserIDKey, session.UserID))
	}
	return notifications, nil
}

// DispatchPending delivers up to limit pending notifications. Channels are
// delivered concurrently; notifications of one channel go out in order.
// Delivery failures mark the notification failed and are not returned.
func (uc *NotificationUseCase) DispatchPending(ctx context.Context, limit int) (*DispatchReport, error) {
	if limit <= 0 {
		limit = DefaultDispatchBatchSize
	}

	pending, err := uc.repo.Notification().ListPending(ctx, limit)
	if err != nil {
		return nil, backendError(err, "failed to list pending notifications")
	}

	byChannel := make(map[types.NotificationChannel][]*model.Notification)
	for _, n := range pending {
		ch := n.Channel.Normalize()
		byChannel[ch] = append(byChannel[ch], n)
	}

	var (
		mu     sync.Mutex
		report DispatchReport
	)

	eg, ctx := errgroup.WithContext(ctx)
	for channel, batch := range byChannel {
		eg.Go(func() error {
			for _, n := range batch {
				if err := ctx.Err(); err != nil {
					return err
				}
				err := uc.deliver(ctx, n, nil)

				mu.Lock()
				switch {
				case errors.Is(err, ErrBackend):
					mu.Unlock()
					return goerr.Wrap(err, "dispatch aborted", goerr.V("channel", channel))
				case n.Status == types.NotificationStatusSent:
					report.Sent++
				default:
					report.Failed++
				}
				mu.Unlock()
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return &report, err
	}

	if report.Sent+report.Failed > 0 {
		logging.From(ctx).Info("notifications dispatched", "sent", report.Sent, "failed", report.Failed)
	}
	return &report, nil
}

// deliver sends n and stores the outcome. Only a failure to store the outcome
// is returned.
func (uc *NotificationUseCase) deliver(ctx context.Context, n *model.Notification, recipient *model.Profile) error {
	var sendErr error
	if recipient == nil {
		recipient, sendErr = loadProfile(ctx, uc.repo, n.RecipientID)
	}
	if sendErr == nil {
		sendErr = uc.sender.Send(ctx, n, recipient)
	}

	n.Attempts++
	if sendErr != nil {
		n.Status = types.NotificationStatusFailed
		n.LastError = sendErr.Error()
		errutil.Handle(ctx, sendErr, "failed to deliver notification")
	} else {
		sentAt := uc.clock()
		n.Status = types.NotificationStatusSent
		n.LastError = ""
		n.SentAt = &sentAt
	}

	if _, err := uc.repo.Notification().Update(ctx, n); err != nil {
		return backendError(err, "failed to store notification outcome", goerr.V("notification_id", n.ID))
	}
	return nil
}
