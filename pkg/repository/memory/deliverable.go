package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/nexaflow/nexaflow/pkg/domain/model"
)

type deliverableRepository struct {
	mu           sync.RWMutex
	deliverables map[string]*model.Deliverable
	byToken      map[model.ApprovalToken]string
	activities   *activityRepository
}

func newDeliverableRepository(activities *activityRepository) *deliverableRepository {
	return &deliverableRepository{
		deliverables: make(map[string]*model.Deliverable),
		byToken:      make(map[model.ApprovalToken]string),
		activities:   activities,
	}
}

func (r *deliverableRepository) Create(ctx context.Context, d *model.Deliverable, activity *model.Activity) (*model.Deliverable, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.deliverables[d.ID]; exists {
		return nil, goerr.Wrap(ErrConflict, "deliverable already exists", goerr.V("id", d.ID))
	}
	if owner, exists := r.byToken[d.ApprovalToken]; exists {
		return nil, goerr.Wrap(ErrConflict, "approval token already taken",
			goerr.V("id", d.ID), goerr.V("token", d.ApprovalToken), goerr.V("owner", owner))
	}

	created := d.Clone()
	created.Revision = 1
	r.deliverables[created.ID] = created
	r.byToken[created.ApprovalToken] = created.ID

	if activity != nil {
		r.activities.append(activity)
	}
	return created.Clone(), nil
}

func (r *deliverableRepository) Get(ctx context.Context, id string) (*model.Deliverable, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, exists := r.deliverables[id]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "deliverable not found", goerr.V("id", id))
	}
	return d.Clone(), nil
}

func (r *deliverableRepository) GetByToken(ctx context.Context, token model.ApprovalToken) (*model.Deliverable, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.byToken[token]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "deliverable not found for token", goerr.V("token", token))
	}
	return r.deliverables[id].Clone(), nil
}

func (r *deliverableRepository) ListByProject(ctx context.Context, projectID string) ([]*model.Deliverable, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	deliverables := make([]*model.Deliverable, 0)
	for _, d := range r.deliverables {
		if d.ProjectID == projectID {
			deliverables = append(deliverables, d.Clone())
		}
	}
	slices.SortFunc(deliverables, func(a, b *model.Deliverable) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return deliverables, nil
}

func (r *deliverableRepository) Commit(ctx context.Context, d *model.Deliverable, expectedRevision int64, activity *model.Activity) (*model.Deliverable, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.deliverables[d.ID]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "deliverable not found", goerr.V("id", d.ID))
	}
	if existing.Revision != expectedRevision {
		return nil, goerr.Wrap(ErrConflict, "deliverable was modified concurrently",
			goerr.V("id", d.ID),
			goerr.V("expected_revision", expectedRevision),
			goerr.V("stored_revision", existing.Revision))
	}

	updated := d.Clone()
	updated.Revision = expectedRevision + 1
	updated.CreatedAt = existing.CreatedAt
	updated.ApprovalToken = existing.ApprovalToken
	r.deliverables[updated.ID] = updated

	if activity != nil {
		r.activities.append(activity)
	}
	return updated.Clone(), nil
}
