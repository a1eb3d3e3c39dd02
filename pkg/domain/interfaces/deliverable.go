package interfaces

import (
	"context"

	"github.com/nexaflow/nexaflow/pkg/domain/model"
)

// DeliverableRepository defines the interface for Deliverable data access.
// Versions are stored inside their deliverable.
type DeliverableRepository interface {
	// Create stores a new deliverable together with its creation activity.
	// Returns ErrConflict if the ID or the approval token is already taken.
	Create(ctx context.Context, d *model.Deliverable, activity *model.Activity) (*model.Deliverable, error)

	// Get retrieves a deliverable by ID
	Get(ctx context.Context, id string) (*model.Deliverable, error)

	// GetByToken retrieves the deliverable an approval token refers to
	GetByToken(ctx context.Context, token model.ApprovalToken) (*model.Deliverable, error)

	// ListByProject retrieves all deliverables of a project, oldest first
	ListByProject(ctx context.Context, projectID string) ([]*model.Deliverable, error)

	// Commit stores d and appends activity atomically, provided the stored revision
	// still equals expectedRevision. Returns ErrConflict otherwise. The stored
	// revision is expectedRevision+1 on success.
	Commit(ctx context.Context, d *model.Deliverable, expectedRevision int64, activity *model.Activity) (*model.Deliverable, error)
}

// ActivityRepository defines the interface for the append-only activity log
type ActivityRepository interface {
	// Create appends an activity, assigning an ID if empty
	Create(ctx context.Context, activity *model.Activity) (*model.Activity, error)

	// ListByDeliverable retrieves the timeline of a deliverable, oldest first
	ListByDeliverable(ctx context.Context, deliverableID string) ([]*model.Activity, error)

	// ListByProject retrieves the latest activities of a project, newest first.
	// A limit of zero or less returns everything.
	ListByProject(ctx context.Context, projectID string, limit int) ([]*model.Activity, error)
}
