package memory

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nexaflow/nexaflow/pkg/domain/model"
)

type activityRepository struct {
	mu         sync.RWMutex
	activities []*model.Activity
}

func newActivityRepository() *activityRepository {
	return &activityRepository{}
}

func copyActivity(a *model.Activity) *model.Activity {
	c := *a
	c.Payload = maps.Clone(a.Payload)
	return &c
}

func (r *activityRepository) append(a *model.Activity) *model.Activity {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := copyActivity(a)
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	r.activities = append(r.activities, stored)

	a.ID = stored.ID
	a.CreatedAt = stored.CreatedAt
	return copyActivity(stored)
}

func (r *activityRepository) Create(ctx context.Context, a *model.Activity) (*model.Activity, error) {
	return r.append(a), nil
}

func (r *activityRepository) ListByDeliverable(ctx context.Context, deliverableID string) ([]*model.Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	activities := make([]*model.Activity, 0)
	for _, a := range r.activities {
		if a.DeliverableID == deliverableID {
			activities = append(activities, copyActivity(a))
		}
	}
	return activities, nil
}

func (r *activityRepository) ListByProject(ctx context.Context, projectID string, limit int) ([]*model.Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	activities := make([]*model.Activity, 0)
	for _, a := range slices.Backward(r.activities) {
		if a.ProjectID != projectID {
			continue
		}
		activities = append(activities, copyActivity(a))
		if limit > 0 && len(activities) >= limit {
			break
		}
	}
	return activities, nil
}
