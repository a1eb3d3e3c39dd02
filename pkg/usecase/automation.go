package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/nexaflow/nexaflow/pkg/domain/interfaces"
	"github.com/nexaflow/nexaflow/pkg/domain/model"
	"github.com/nexaflow/nexaflow/pkg/domain/model/auth"
	"github.com/nexaflow/nexaflow/pkg/domain/types"
	"github.com/nexaflow/nexaflow/pkg/utils/logging"
	"github.com/nexaflow/nexaflow/pkg/utils/metrics"
)

const defaultNotificationSubject = "NexaFlow: {title}"

type AutomationUseCase struct {
	repo          interfaces.Repository
	deliverables  *DeliverableUseCase
	activities    *ActivityUseCase
	notifications *NotificationUseCase
	maxDepth      int
}

func NewAutomationUseCase(repo interfaces.Repository, deliverables *DeliverableUseCase, activities *ActivityUseCase, notifications *NotificationUseCase, maxDepth int) *AutomationUseCase {
	return &AutomationUseCase{
		repo:          repo,
		deliverables:  deliverables,
		activities:    activities,
		notifications: notifications,
		maxDepth:      maxDepth,
	}
}

// RunReport describes what one event triggered
type RunReport struct {
	EventType     types.EventType
	DeliverableID string
	Skipped       bool
	Runs          []RuleRun
}

// RuleRun is the outcome of one matched rule. Err is set when an action failed;
// Applied counts the actions that ran before it.
type RuleRun struct {
	RuleID   string
	RuleName string
	Applied  int
	Err      error
}

// Dispatch runs every active rule matching ev, in rule order. A failing action
// stops the remaining actions of its rule only.
func (uc *AutomationUseCase) Dispatch(ctx context.Context, ev *model.Event) (*RunReport, error) {
	report := &RunReport{EventType: ev.Type, DeliverableID: ev.DeliverableID}

	if ev.Depth > uc.maxDepth {
		report.Skipped = true
		metrics.RuleExecutionsTotal.WithLabelValues(metrics.ResultSkipped).Inc()
		logging.From(ctx).Debug("rule depth limit reached, event not dispatched",
			"event", ev.Type, "deliverable_id", ev.DeliverableID, "depth", ev.Depth)
		return report, nil
	}

	rules, err := uc.repo.Rule().List(ctx)
	if err != nil {
		return nil, backendError(err, "failed to list automation rules")
	}
	model.SortRules(rules)

	for _, rule := range model.MatchRules(rules, ev) {
		run := RuleRun{RuleID: rule.ID, RuleName: rule.Name}
		for i, action := range rule.Actions {
			if err := uc.execute(ctx, rule, action, ev); err != nil {
				run.Err = err
				logging.From(ctx).Warn("automation rule partially applied",
					"rule_id", rule.ID,
					"rule_name", rule.Name,
					"action_index", i,
					"action", action.Type,
					"applied", run.Applied,
					"error", err.Error(),
				)
				break
			}
			run.Applied++
		}

		outcome := metrics.ResultOK
		if run.Err != nil {
			outcome = metrics.ResultError
		}
		metrics.RuleExecutionsTotal.WithLabelValues(outcome).Inc()
		report.Runs = append(report.Runs, run)
	}

	if len(report.Runs) > 0 {
		logging.From(ctx).Info("automation rules executed",
			"event", ev.Type, "deliverable_id", ev.DeliverableID, "rules", len(report.Runs))
	}
	return report, nil
}

func (uc *AutomationUseCase) execute(ctx context.Context, rule *model.AutomationRule, action model.RuleAction, ev *model.Event) error {
	if err := action.Validate(); err != nil {
		return goerr.Wrap(err, "stored rule has an invalid action", goerr.V(RuleIDKey, rule.ID))
	}

	switch action.Type {
	case types.ActionTypeUpdateStatus:
		_, err := uc.deliverables.applyByID(ctx, ev.DeliverableID,
			model.SetStatusEvent(auth.SystemUserID, action.UpdateStatus.Status), ev.Depth+1)
		return err

	case types.ActionTypeAssignUser:
		if _, err := loadProfile(ctx, uc.repo, action.AssignUser.UserID); err != nil {
			return err
		}
		_, err := uc.deliverables.applyByID(ctx, ev.DeliverableID,
			model.AssignEvent(auth.SystemUserID, action.AssignUser.UserID), ev.Depth+1)
		return err

	case types.ActionTypeCreateActivity:
		_, err := uc.activities.Record(ctx, &model.Activity{
			ProjectID:     ev.ProjectID,
			DeliverableID: ev.DeliverableID,
			ActorID:       auth.SystemUserID,
			Type:          types.ActivityRuleNote,
			Payload: map[string]any{
				"message":  model.RenderTemplate(action.CreateActivity.Message, ev.Payload),
				"ruleId":   rule.ID,
				"ruleName": rule.Name,
			},
		})
		return err

	case types.ActionTypeSendNotification:
		return uc.sendNotification(ctx, action.SendNotification, ev)
	}

	return goerr.Wrap(model.ErrInvalidRule, "unknown action type", goerr.V("type", action.Type))
}

func (uc *AutomationUseCase) sendNotification(ctx context.Context, p *model.SendNotificationParams, ev *model.Event) error {
	recipientID, err := uc.resolveRecipient(ctx, p.Recipient, ev)
	if err != nil {
		return err
	}
	if recipientID == "" {
		return goerr.Wrap(ErrValidation, "notification recipient is not set on the project",
			goerr.V("recipient", p.Recipient), goerr.V(DeliverableIDKey, ev.DeliverableID))
	}

	subject := p.Subject
	if subject == "" {
		subject = defaultNotificationSubject
	}

	_, err = uc.notifications.Enqueue(ctx, NotificationInput{
		RecipientID:   recipientID,
		Channel:       p.Channel,
		Subject:       model.RenderTemplate(subject, ev.Payload),
		Body:          model.RenderTemplate(p.Message, ev.Payload),
		ProjectID:     ev.ProjectID,
		DeliverableID: ev.DeliverableID,
	})
	return err
}

// resolveRecipient turns a recipient keyword into a profile ID
func (uc *AutomationUseCase) resolveRecipient(ctx context.Context, recipient string, ev *model.Event) (string, error) {
	switch recipient {
	case model.RecipientClient, model.RecipientManager:
		project, err := loadProject(ctx, uc.repo, ev.ProjectID)
		if err != nil {
			return "", err
		}
		if recipient == model.RecipientClient {
			return project.ClientID, nil
		}
		return project.ManagerID, nil

	case model.RecipientAssignee:
		d, err := uc.deliverables.loadDeliverable(ctx, ev.DeliverableID)
		if err != nil {
			return "", err
		}
		return d.AssigneeID, nil

	default:
		return recipient, nil
	}
}
