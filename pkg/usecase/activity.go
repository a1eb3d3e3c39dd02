package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/nexaflow/nexaflow/pkg/domain/interfaces"
	"github.com/nexaflow/nexaflow/pkg/domain/model"
	"github.com/nexaflow/nexaflow/pkg/domain/model/auth"
	"github.com/nexaflow/nexaflow/pkg/domain/types"
	"github.com/nexaflow/nexaflow/pkg/utils/errutil"
)

type ActivityUseCase struct {
	repo          interfaces.Repository
	notifications *NotificationUseCase
	clock         func() time.Time
}

func NewActivityUseCase(repo interfaces.Repository, notifications *NotificationUseCase, clock func() time.Time) *ActivityUseCase {
	return &ActivityUseCase{
		repo:          repo,
		notifications: notifications,
		clock:         clock,
	}
}

// Record appends a timeline entry that is not tied to a transition
func (uc *ActivityUseCase) Record(ctx context.Context, activity *model.Activity) (*model.Activity, error) {
	if activity == nil || !activity.Type.IsValid() {
		return nil, goerr.Wrap(ErrValidation, "activity type is unknown")
	}
	if activity.DeliverableID == "" || activity.ProjectID == "" {
		return nil, goerr.Wrap(ErrValidation, "activity must reference a deliverable and a project")
	}

	entry := *activity
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = uc.clock()
	}

	created, err := uc.repo.Activity().Create(ctx, &entry)
	if err != nil {
		return nil, backendError(err, "failed to record activity", goerr.V(DeliverableIDKey, entry.DeliverableID))
	}
	return created, nil
}

// ListByDeliverable returns the timeline of a deliverable, oldest first
func (uc *ActivityUseCase) ListByDeliverable(ctx context.Context, session *auth.Session, deliverableID string) ([]*model.Activity, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	d, err := uc.repo.Deliverable().Get(ctx, deliverableID)
	if err != nil {
		return nil, notFoundOrBackend(err, ErrDeliverableNotFound, "deliverable", goerr.V(DeliverableIDKey, deliverableID))
	}
	project, err := loadProject(ctx, uc.repo, d.ProjectID)
	if err != nil {
		return nil, err
	}
	if !canViewDeliverable(session, project, d) {
		return nil, goerr.Wrap(ErrAccessDenied, "not allowed to view deliverable",
			goerr.V(DeliverableIDKey, deliverableID), goerr.V(UserIDKey, session.UserID))
	}

	activities, err := uc.repo.Activity().ListByDeliverable(ctx, deliverableID)
	if err != nil {
		return nil, backendError(err, "failed to list activities", goerr.V(DeliverableIDKey, deliverableID))
	}
	return activities, nil
}

// ListByProject returns the latest activities of a project, newest first
func (uc *ActivityUseCase) ListByProject(ctx context.Context, session *auth.Session, projectID string, limit int) ([]*model.Activity, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	project, err := loadProject(ctx, uc.repo, projectID)
	if err != nil {
		return nil, err
	}
	if !session.CanViewProject(project) {
		return nil, goerr.Wrap(ErrAccessDenied, "not allowed to view project",
			goerr.V(ProjectIDKey, projectID), goerr.V(UserIDKey, session.UserID))
	}

	if session.Role != types.RoleTeamMember {
		activities, err := uc.repo.Activity().ListByProject(ctx, projectID, limit)
		if err != nil {
			return nil, backendError(err, "failed to list activities", goerr.V(ProjectIDKey, projectID))
		}
		return activities, nil
	}

	// Team members only follow the deliverables assigned to them
	deliverables, err := uc.repo.Deliverable().ListByProject(ctx, projectID)
	if err != nil {
		return nil, backendError(err, "failed to list deliverables", goerr.V(ProjectIDKey, projectID))
	}
	assigned := make(map[string]bool)
	for _, d := range deliverables {
		if session.CanViewDeliverable(project, d) {
			assigned[d.ID] = true
		}
	}
	if len(assigned) == 0 {
		return []*model.Activity{}, nil
	}

	all, err := uc.repo.Activity().ListByProject(ctx, projectID, 0)
	if err != nil {
		return nil, backendError(err, "failed to list activities", goerr.V(ProjectIDKey, projectID))
	}
	activities := make([]*model.Activity, 0, len(all))
	for _, a := range all {
		if !assigned[a.DeliverableID] {
			continue
		}
		activities = append(activities, a)
		if limit > 0 && len(activities) >= limit {
			break
		}
	}
	return activities, nil
}

// emit tells the client and the manager of the project about a resolved version.
// Each of them is notified on their preferred channel, except the person who
// made the decision.
func (uc *ActivityUseCase) emit(ctx context.Context, d *model.Deliverable, activity *model.Activity) {
	if uc.notifications == nil {
		return
	}

	subject, body := resolutionMessage(d, activity)
	if subject == "" {
		return
	}

	project, err := loadProject(ctx, uc.repo, d.ProjectID)
	if err != nil {
		errutil.Handle(ctx, err, "failed to load project for notifications")
		return
	}

	for _, recipientID := range uniqueStrings([]string{project.ClientID, project.ManagerID}) {
		if recipientID == activity.ActorID {
			continue
		}
		_, err := uc.notifications.Enqueue(ctx, NotificationInput{
			RecipientID:   recipientID,
			Subject:       subject,
			Body:          body,
			ProjectID:     d.ProjectID,
			DeliverableID: d.ID,
		})
		if err != nil {
			errutil.Handle(ctx, err, "failed to queue resolution notification")
		}
	}
}

func resolutionMessage(d *model.Deliverable, activity *model.Activity) (string, string) {
	label, _ := activity.Payload["versionLabel"].(string)
	method, _ := activity.Payload["method"].(string)
	reason, _ := activity.Payload["reason"].(string)

	switch activity.Type {
	case types.ActivityDeliverableApproved:
		return fmt.Sprintf("Approved: %s", d.Title),
			fmt.Sprintf("%s %s was approved via %s.", d.Title, label, method)
	case types.ActivityDeliverableRejected:
		return fmt.Sprintf("Rejected: %s", d.Title),
			fmt.Sprintf("%s %s was rejected via %s. Reason: %s", d.Title, label, method, reason)
	case types.ActivityDeliverableRevisionRequested:
		return fmt.Sprintf("Changes requested: %s", d.Title),
			fmt.Sprintf("Changes were requested on %s %s. Reason: %s", d.Title, label, reason)
	default:
		return "", ""
	}
}
