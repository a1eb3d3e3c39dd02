package model

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/nexaflow/nexaflow/pkg/domain/types"
)

// AutomationRule fires its actions when an event of Trigger arrives and every condition holds
type AutomationRule struct {
	ID          string
	Name        string
	Description string
	Trigger     types.EventType
	Conditions  []Condition
	Actions     []RuleAction
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RuleAction is a tagged union: exactly the parameter block matching Type is set.
type RuleAction struct {
	Type             types.ActionType
	UpdateStatus     *UpdateStatusParams
	SendNotification *SendNotificationParams
	AssignUser       *AssignUserParams
	CreateActivity   *CreateActivityParams
}

// UpdateStatusParams moves the deliverable to Status through the state machine
type UpdateStatusParams struct {
	Status types.DeliverableStatus
}

// Recipient keywords resolved against the project of the event. Any other value is a profile ID.
const (
	RecipientClient   = "client"
	RecipientManager  = "manager"
	RecipientAssignee = "assignee"
)

// SendNotificationParams queues a notification. An empty Channel uses the recipient's preference.
type SendNotificationParams struct {
	Recipient string
	Channel   types.NotificationChannel
	Subject   string
	Message   string
}

// AssignUserParams assigns the deliverable to UserID
type AssignUserParams struct {
	UserID string
}

// CreateActivityParams appends a free-form note to the timeline
type CreateActivityParams struct {
	Message string
}

// NewUpdateStatusAction is a shorthand for an update_status action.
func NewUpdateStatusAction(status types.DeliverableStatus) RuleAction {
	return RuleAction{Type: types.ActionTypeUpdateStatus, UpdateStatus: &UpdateStatusParams{Status: status}}
}

// NewSendNotificationAction is a shorthand for a send_notification action.
func NewSendNotificationAction(p SendNotificationParams) RuleAction {
	return RuleAction{Type: types.ActionTypeSendNotification, SendNotification: &p}
}

// NewAssignUserAction is a shorthand for an assign_user action.
func NewAssignUserAction(userID string) RuleAction {
	return RuleAction{Type: types.ActionTypeAssignUser, AssignUser: &AssignUserParams{UserID: userID}}
}

// NewCreateActivityAction is a shorthand for a create_activity action.
func NewCreateActivityAction(message string) RuleAction {
	return RuleAction{Type: types.ActionTypeCreateActivity, CreateActivity: &CreateActivityParams{Message: message}}
}

// Validate checks that the action is well formed.
func (a RuleAction) Validate() error {
	set := 0
	for _, p := range []bool{a.UpdateStatus != nil, a.SendNotification != nil, a.AssignUser != nil, a.CreateActivity != nil} {
		if p {
			set++
		}
	}
	if set != 1 {
		return goerr.Wrap(ErrInvalidRule, "action must carry exactly one parameter block", goerr.V("type", a.Type))
	}

	switch a.Type {
	case types.ActionTypeUpdateStatus:
		if a.UpdateStatus == nil || !a.UpdateStatus.Status.IsValid() {
			return goerr.Wrap(ErrInvalidRule, "update_status needs a valid status")
		}
	case types.ActionTypeSendNotification:
		p := a.SendNotification
		if p == nil || strings.TrimSpace(p.Recipient) == "" || strings.TrimSpace(p.Message) == "" {
			return goerr.Wrap(ErrInvalidRule, "send_notification needs a recipient and a message")
		}
		if p.Channel != "" && !p.Channel.IsValid() {
			return goerr.Wrap(ErrInvalidRule, "send_notification has an unknown channel", goerr.V("channel", p.Channel))
		}
	case types.ActionTypeAssignUser:
		if a.AssignUser == nil || strings.TrimSpace(a.AssignUser.UserID) == "" {
			return goerr.Wrap(ErrInvalidRule, "assign_user needs a user id")
		}
	case types.ActionTypeCreateActivity:
		if a.CreateActivity == nil || strings.TrimSpace(a.CreateActivity.Message) == "" {
			return goerr.Wrap(ErrInvalidRule, "create_activity needs a message")
		}
	default:
		return goerr.Wrap(ErrInvalidRule, "unknown action type", goerr.V("type", a.Type))
	}
	return nil
}

// Validate checks the rule before it is stored.
func (r *AutomationRule) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return goerr.Wrap(ErrInvalidRule, "rule name is empty", goerr.V(RuleIDKey, r.ID))
	}
	if !r.Trigger.IsValid() {
		return goerr.Wrap(ErrInvalidRule, "unknown trigger",
			goerr.V(RuleNameKey, r.Name), goerr.V("trigger", r.Trigger))
	}
	if len(r.Actions) == 0 {
		return goerr.Wrap(ErrInvalidRule, "rule has no actions", goerr.V(RuleNameKey, r.Name))
	}
	for i, c := range r.Conditions {
		if err := c.Validate(); err != nil {
			return goerr.Wrap(err, "invalid condition", goerr.V(RuleNameKey, r.Name), goerr.V(IndexKey, i))
		}
	}
	for i, a := range r.Actions {
		if err := a.Validate(); err != nil {
			return goerr.Wrap(err, "invalid action", goerr.V(RuleNameKey, r.Name), goerr.V(IndexKey, i))
		}
	}
	return nil
}

// Matches reports whether the rule fires for ev.
func (r *AutomationRule) Matches(ev *Event) bool {
	if !r.Active || ev == nil || r.Trigger != ev.Type {
		return false
	}
	for _, c := range r.Conditions {
		if !c.Match(ev.Payload) {
			return false
		}
	}
	return true
}

// MatchRules returns the rules that fire for ev, keeping the order of rules.
func MatchRules(rules []*AutomationRule, ev *Event) []*AutomationRule {
	var matched []*AutomationRule
	for _, r := range rules {
		if r.Matches(ev) {
			matched = append(matched, r)
		}
	}
	return matched
}

// SortRules orders rules by creation time, then ID.
func SortRules(rules []*AutomationRule) {
	slices.SortStableFunc(rules, func(a, b *AutomationRule) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}

// Clone returns a deep copy.
func (r *AutomationRule) Clone() *AutomationRule {
	if r == nil {
		return nil
	}
	c := *r
	c.Conditions = slices.Clone(r.Conditions)
	if r.Actions != nil {
		c.Actions = make([]RuleAction, len(r.Actions))
		for i, a := range r.Actions {
			c.Actions[i] = a.clone()
		}
	}
	return &c
}

func (a RuleAction) clone() RuleAction {
	if a.UpdateStatus != nil {
		p := *a.UpdateStatus
		a.UpdateStatus = &p
	}
	if a.SendNotification != nil {
		p := *a.SendNotification
		a.SendNotification = &p
	}
	if a.AssignUser != nil {
		p := *a.AssignUser
		a.AssignUser = &p
	}
	if a.CreateActivity != nil {
		p := *a.CreateActivity
		a.CreateActivity = &p
	}
	return a
}

// DefaultReviewRuleName is the name of the built-in rule that opens review on upload
const DefaultReviewRuleName = "Review on upload"

// DefaultReviewRule moves deliverables that require review into review when a version is uploaded.
func DefaultReviewRule() *AutomationRule {
	return &AutomationRule{
		Name:        DefaultReviewRuleName,
		Description: "Send newly uploaded versions to client review",
		Trigger:     types.EventFileUpload,
		Conditions: []Condition{
			{Field: "requiresReview", Operator: types.OperatorEquals, Value: "true"},
		},
		Actions: []RuleAction{
			NewUpdateStatusAction(types.DeliverableStatusReview),
		},
		Active: true,
	}
}

// RenderTemplate replaces {key} placeholders with top level payload values.
func RenderTemplate(tmpl string, payload map[string]any) string {
	if !strings.Contains(tmpl, "{") {
		return tmpl
	}
	pairs := make([]string, 0, len(payload)*2)
	for k, v := range payload {
		if _, nested := v.(map[string]any); nested {
			continue
		}
		pairs = append(pairs, "{"+k+"}", fmt.Sprint(v))
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

// ActionFields is the flat form of a RuleAction used by config files and the HTTP API.
type ActionFields struct {
	Type      types.ActionType
	Status    types.DeliverableStatus
	Recipient string
	Channel   types.NotificationChannel
	Subject   string
	Message   string
	UserID    string
}

// Build turns flat fields into a typed action. An unknown type yields an action
// that fails Validate.
func (f ActionFields) Build() RuleAction {
	switch f.Type {
	case types.ActionTypeUpdateStatus:
		return NewUpdateStatusAction(f.Status)
	case types.ActionTypeSendNotification:
		return NewSendNotificationAction(SendNotificationParams{
			Recipient: f.Recipient,
			Channel:   f.Channel,
			Subject:   f.Subject,
			Message:   f.Message,
		})
	case types.ActionTypeAssignUser:
		return NewAssignUserAction(f.UserID)
	case types.ActionTypeCreateActivity:
		return NewCreateActivityAction(f.Message)
	default:
		return RuleAction{Type: f.Type}
	}
}

// Fields flattens the action.
func (a RuleAction) Fields() ActionFields {
	f := ActionFields{Type: a.Type}
	switch {
	case a.UpdateStatus != nil:
		f.Status = a.UpdateStatus.Status
	case a.SendNotification != nil:
		f.Recipient = a.SendNotification.Recipient
		f.Channel = a.SendNotification.Channel
		f.Subject = a.SendNotification.Subject
		f.Message = a.SendNotification.Message
	case a.AssignUser != nil:
		f.UserID = a.AssignUser.UserID
	case a.CreateActivity != nil:
		f.Message = a.CreateActivity.Message
	}
	return f
}
