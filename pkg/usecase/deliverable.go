package usecase

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/nexaflow/nexaflow/pkg/domain/interfaces"
	"github.com/nexaflow/nexaflow/pkg/domain/model"
	"github.com/nexaflow/nexaflow/pkg/domain/model/auth"
	"github.com/nexaflow/nexaflow/pkg/domain/types"
	"github.com/nexaflow/nexaflow/pkg/utils/errutil"
	"github.com/nexaflow/nexaflow/pkg/utils/logging"
	"github.com/nexaflow/nexaflow/pkg/utils/metrics"
)

// maxTokenAttempts bounds how often a new id is drawn when its approval token is taken
const maxTokenAttempts = 5

type DeliverableUseCase struct {
	repo       interfaces.Repository
	storage    interfaces.ObjectStorage
	activities *ActivityUseCase
	automation *AutomationUseCase
	clock      func() time.Time
}

func NewDeliverableUseCase(repo interfaces.Repository, storage interfaces.ObjectStorage, activities *ActivityUseCase, clock func() time.Time) *DeliverableUseCase {
	return &DeliverableUseCase{
		repo:       repo,
		storage:    storage,
		activities: activities,
		clock:      clock,
	}
}

// DeliverableInput holds the fields of a new deliverable
type DeliverableInput struct {
	Title          string
	Description    string
	RequiresReview bool
	AssigneeID     string
	DueDate        *time.Time
}

// UploadInput is a version file sent by a team member
type UploadInput struct {
	DeliverableID string
	FileName      string
	ContentType   string
	Size          int64
	Body          io.Reader
}

// RequestMeta describes the client a decision came from
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// CreateDeliverable adds a draft deliverable to a project
func (uc *DeliverableUseCase) CreateDeliverable(ctx context.Context, session *auth.Session, projectID string, input DeliverableInput) (*model.Deliverable, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	project, err := loadProject(ctx, uc.repo, projectID)
	if err != nil {
		return nil, err
	}
	if !session.CanManageProject(project) {
		return nil, goerr.Wrap(ErrAccessDenied, "not allowed to add deliverables",
			goerr.V(ProjectIDKey, projectID), goerr.V(UserIDKey, session.UserID))
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, goerr.Wrap(ErrValidation, "deliverable title is required", goerr.V(ProjectIDKey, projectID))
	}
	if input.AssigneeID != "" {
		if _, err := loadProfile(ctx, uc.repo, input.AssigneeID); err != nil {
			return nil, goerr.Wrap(ErrValidation, "assignee does not exist", goerr.V(UserIDKey, input.AssigneeID))
		}
	}

	for attempt := 0; attempt < maxTokenAttempts; attempt++ {
		now := uc.clock()
		id := uuid.NewString()
		d := &model.Deliverable{
			ID:             id,
			ProjectID:      project.ID,
			Title:          title,
			Description:    input.Description,
			RequiresReview: input.RequiresReview,
			AssigneeID:     input.AssigneeID,
			DueDate:        input.DueDate,
			Status:         types.DeliverableStatusDraft,
			ApprovalToken:  model.NewApprovalToken(id),
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := d.Validate(); err != nil {
			return nil, goerr.Wrap(ErrValidation, "invalid deliverable", goerr.V("cause", err.Error()))
		}

		activity := &model.Activity{
			ID:            uuid.NewString(),
			ProjectID:     d.ProjectID,
			DeliverableID: d.ID,
			ActorID:       session.UserID,
			Type:          types.ActivityDeliverableCreated,
			Payload: map[string]any{
				"title":         d.Title,
				"approvalToken": d.ApprovalToken.String(),
			},
			CreatedAt: now,
		}

		created, err := uc.repo.Deliverable().Create(ctx, d, activity)
		if errors.Is(err, interfaces.ErrConflict) {
			logging.From(ctx).Warn("approval token collision, drawing a new id",
				"token", d.ApprovalToken, "attempt", attempt+1)
			continue
		}
		if err != nil {
			return nil, backendError(err, "failed to create deliverable", goerr.V(ProjectIDKey, projectID))
		}

		logging.From(ctx).Info("deliverable created",
			"deliverable_id", created.ID, "project_id", created.ProjectID, "token", created.ApprovalToken)
		if uc.afterCommit(ctx, created, activity, 0) {
			created = uc.refresh(ctx, created)
		}
		return created, nil
	}

	return nil, backendError(interfaces.ErrConflict, "could not allocate a unique approval token",
		goerr.V(ProjectIDKey, projectID))
}

// GetDeliverable returns a deliverable the session may view
func (uc *DeliverableUseCase) GetDeliverable(ctx context.Context, session *auth.Session, id string) (*model.Deliverable, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	d, project, err := uc.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canViewDeliverable(session, project, d) {
		return nil, goerr.Wrap(ErrAccessDenied, "not allowed to view deliverable",
			goerr.V(DeliverableIDKey, id), goerr.V(UserIDKey, session.UserID))
	}
	return d, nil
}

// ListDeliverables returns the deliverables of a project visible to the session
func (uc *DeliverableUseCase) ListDeliverables(ctx context.Context, session *auth.Session, projectID string) ([]*model.Deliverable, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	project, err := loadProject(ctx, uc.repo, projectID)
	if err != nil {
		return nil, err
	}
	if !session.CanViewProject(project) && session.Role != types.RoleTeamMember {
		return nil, goerr.Wrap(ErrAccessDenied, "not allowed to view project",
			goerr.V(ProjectIDKey, projectID), goerr.V(UserIDKey, session.UserID))
	}

	all, err := uc.repo.Deliverable().ListByProject(ctx, projectID)
	if err != nil {
		return nil, backendError(err, "failed to list deliverables", goerr.V(ProjectIDKey, projectID))
	}

	visible := make([]*model.Deliverable, 0, len(all))
	for _, d := range all {
		if canViewDeliverable(session, project, d) {
			visible = append(visible, d)
		}
	}
	return visible, nil
}

// UploadVersion stores the file and appends it as the new pending version
func (uc *DeliverableUseCase) UploadVersion(ctx context.Context, session *auth.Session, input UploadInput) (*model.Deliverable, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	if uc.storage == nil {
		return nil, backendError(goerr.New("object storage is not configured"), "cannot store version file")
	}
	if input.Body == nil || strings.TrimSpace(input.FileName) == "" {
		return nil, goerr.Wrap(ErrValidation, "a file is required", goerr.V(DeliverableIDKey, input.DeliverableID))
	}

	d, project, err := uc.load(ctx, input.DeliverableID)
	if err != nil {
		return nil, err
	}
	if !session.CanUpload(project, d) {
		return nil, goerr.Wrap(ErrAccessDenied, "not allowed to upload",
			goerr.V(DeliverableIDKey, d.ID), goerr.V(UserIDKey, session.UserID))
	}

	versionID := uuid.NewString()
	fileName := path.Base(strings.ReplaceAll(input.FileName, "\\", "/"))
	contentType := input.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	objectPath := path.Join("deliverables", d.ID, versionID, fileName)
	url, err := uc.storage.Put(ctx, objectPath, input.Body, contentType)
	if err != nil {
		return nil, backendError(err, "failed to store version file", goerr.V(DeliverableIDKey, d.ID))
	}

	ev := model.UploadEvent(session.UserID, model.Version{
		ID: versionID,
		File: model.FileRef{
			URL:         url,
			Name:        fileName,
			Size:        input.Size,
			ContentType: contentType,
		},
		UploaderID: session.UserID,
	})
	updated, err := uc.apply(ctx, d, ev, 0)
	if err != nil {
		// The version was never recorded, so its file has no owner
		if delErr := uc.storage.Delete(ctx, objectPath); delErr != nil {
			errutil.Handle(ctx, goerr.Wrap(delErr, "failed to remove file of rejected upload",
				goerr.V(DeliverableIDKey, d.ID), goerr.V("object_path", objectPath)), "orphaned version file")
		}
		return nil, err
	}
	return updated, nil
}

// Assign hands the deliverable to a team member
func (uc *DeliverableUseCase) Assign(ctx context.Context, session *auth.Session, deliverableID, assigneeID string) (*model.Deliverable, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	if _, err := loadProfile(ctx, uc.repo, assigneeID); err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return nil, goerr.Wrap(ErrValidation, "assignee does not exist", goerr.V(UserIDKey, assigneeID))
		}
		return nil, err
	}
	return uc.Transition(ctx, session, deliverableID, model.AssignEvent(session.UserID, assigneeID))
}

// RequestRevision sends the pending version back to the team with a reason
func (uc *DeliverableUseCase) RequestRevision(ctx context.Context, session *auth.Session, deliverableID, reason string, meta RequestMeta) (*model.Deliverable, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	signer := model.Signer{
		SignerID:  session.UserID,
		Method:    types.SignerMethodInApp,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	}
	return uc.Transition(ctx, session, deliverableID, model.RevisionEvent(signer, reason))
}

// Transition authorizes ev for the session and applies it with compare-and-swap.
// Either the new state and its activity are both stored or nothing is.
func (uc *DeliverableUseCase) Transition(ctx context.Context, session *auth.Session, deliverableID string, ev model.TransitionEvent) (*model.Deliverable, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	d, project, err := uc.load(ctx, deliverableID)
	if err != nil {
		return nil, err
	}
	if err := authorizeTransition(session, project, d, ev); err != nil {
		return nil, err
	}
	return uc.apply(ctx, d, ev, 0)
}

// applyByID runs a rule-originated transition on the latest stored state
func (uc *DeliverableUseCase) applyByID(ctx context.Context, deliverableID string, ev model.TransitionEvent, depth int) (*model.Deliverable, error) {
	d, err := uc.loadDeliverable(ctx, deliverableID)
	if err != nil {
		return nil, err
	}
	return uc.apply(ctx, d, ev, depth)
}

func (uc *DeliverableUseCase) apply(ctx context.Context, d *model.Deliverable, ev model.TransitionEvent, depth int) (*model.Deliverable, error) {
	next, activity, err := model.Transition(d, ev, uc.clock())
	if err != nil {
		metrics.TransitionsTotal.WithLabelValues(ev.Kind.String(), metrics.ResultRejected).Inc()
		return nil, goerr.Wrap(err, "transition rejected",
			goerr.V(DeliverableIDKey, d.ID), goerr.V("status", d.Status))
	}
	if activity == nil {
		metrics.TransitionsTotal.WithLabelValues(ev.Kind.String(), metrics.ResultSkipped).Inc()
		return next, nil
	}
	activity.ID = uuid.NewString()

	saved, err := uc.repo.Deliverable().Commit(ctx, next, d.Revision, activity)
	if err != nil {
		switch {
		case errors.Is(err, interfaces.ErrConflict):
			metrics.TransitionsTotal.WithLabelValues(ev.Kind.String(), metrics.ResultStale).Inc()
			return nil, goerr.Wrap(ErrStaleTransition, "deliverable was changed by another request",
				goerr.V(DeliverableIDKey, d.ID), goerr.V("revision", d.Revision))
		case errors.Is(err, interfaces.ErrNotFound):
			return nil, goerr.Wrap(ErrDeliverableNotFound, "deliverable not found", goerr.V(DeliverableIDKey, d.ID))
		default:
			metrics.TransitionsTotal.WithLabelValues(ev.Kind.String(), metrics.ResultError).Inc()
			return nil, backendError(err, "failed to save transition", goerr.V(DeliverableIDKey, d.ID))
		}
	}

	metrics.TransitionsTotal.WithLabelValues(ev.Kind.String(), metrics.ResultOK).Inc()
	logging.From(ctx).Info("deliverable transitioned",
		"deliverable_id", saved.ID,
		"transition", ev.Kind,
		"from", d.Status,
		"to", saved.Status,
		"actor", ev.ActorID,
		"depth", depth,
	)

	if uc.afterCommit(ctx, saved, activity, depth) {
		return uc.refresh(ctx, saved), nil
	}
	return saved, nil
}

// refresh returns the stored state of d. Automation rules may have moved it on
// since d was committed.
func (uc *DeliverableUseCase) refresh(ctx context.Context, d *model.Deliverable) *model.Deliverable {
	latest, err := uc.loadDeliverable(ctx, d.ID)
	if err != nil {
		errutil.Handle(ctx, err, "failed to reload deliverable after automation")
		return d
	}
	return latest
}

// afterCommit runs the best-effort side effects of a stored change. Their
// failures are logged and never undo the change. It reports whether automation
// rules were dispatched.
func (uc *DeliverableUseCase) afterCommit(ctx context.Context, d *model.Deliverable, activity *model.Activity, depth int) bool {
	if uc.activities != nil {
		uc.activities.emit(ctx, d, activity)
	}

	if uc.automation == nil {
		return false
	}
	ev := model.EventFromActivity(activity, d)
	if ev == nil {
		return false
	}
	ev.Depth = depth
	if _, err := uc.automation.Dispatch(ctx, ev); err != nil {
		errutil.Handle(ctx, err, "failed to dispatch automation rules")
	}
	return true
}

func (uc *DeliverableUseCase) load(ctx context.Context, id string) (*model.Deliverable, *model.Project, error) {
	d, err := uc.loadDeliverable(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	project, err := loadProject(ctx, uc.repo, d.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	return d, project, nil
}

func (uc *DeliverableUseCase) loadDeliverable(ctx context.Context, id string) (*model.Deliverable, error) {
	d, err := uc.repo.Deliverable().Get(ctx, id)
	if err != nil {
		return nil, notFoundOrBackend(err, ErrDeliverableNotFound, "deliverable", goerr.V(DeliverableIDKey, id))
	}
	return d, nil
}

func canViewDeliverable(session *auth.Session, project *model.Project, d *model.Deliverable) bool {
	return session.CanViewDeliverable(project, d)
}

func authorizeTransition(session *auth.Session, project *model.Project, d *model.Deliverable, ev model.TransitionEvent) error {
	var allowed bool
	switch ev.Kind {
	case model.TransitionUpload:
		allowed = session.CanUpload(project, d)
	case model.TransitionSetStatus, model.TransitionAssign:
		allowed = session.CanManageProject(project)
	case model.TransitionApprove, model.TransitionReject, model.TransitionRequestRevision:
		allowed = session.CanDecide(project)
		if ev.Signer != nil && ev.Signer.SignerID != session.UserID && !session.IsSystem() {
			allowed = false
		}
	}
	if !allowed {
		return goerr.Wrap(ErrAccessDenied, "not allowed to perform transition",
			goerr.V(DeliverableIDKey, d.ID),
			goerr.V("transition", ev.Kind),
			goerr.V(UserIDKey, session.UserID))
	}
	return nil
}
