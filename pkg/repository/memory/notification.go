package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/nexaflow/nexaflow/pkg/domain/model"
	"github.com/nexaflow/nexaflow/pkg/domain/types"
)

type notificationRepository struct {
	mu            sync.RWMutex
	notifications map[string]*model.Notification
	order         []string
}

func newNotificationRepository() *notificationRepository {
	return &notificationRepository{
		notifications: make(map[string]*model.Notification),
	}
}

func copyNotification(n *model.Notification) *model.Notification {
	c := *n
	if n.SentAt != nil {
		sent := *n.SentAt
		c.SentAt = &sent
	}
	return &c
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) (*model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := copyNotification(n)
	if created.ID == "" {
		created.ID = uuid.NewString()
	}
	if _, exists := r.notifications[created.ID]; exists {
		return nil, goerr.Wrap(ErrConflict, "notification already exists", goerr.V("id", created.ID))
	}
	if created.Status == "" {
		created.Status = types.NotificationStatusPending
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}

	r.notifications[created.ID] = created
	r.order = append(r.order, created.ID)
	return copyNotification(created), nil
}

func (r *notificationRepository) Update(ctx context.Context, n *model.Notification) (*model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.notifications[n.ID]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "notification not found", goerr.V("id", n.ID))
	}

	updated := copyNotification(n)
	updated.CreatedAt = existing.CreatedAt
	r.notifications[updated.ID] = updated
	return copyNotification(updated), nil
}

func (r *notificationRepository) ListPending(ctx context.Context, limit int) ([]*model.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pending := make([]*model.Notification, 0)
	for _, id := range r.order {
		n := r.notifications[id]
		if n.Status != types.NotificationStatusPending {
			continue
		}
		pending = append(pending, copyNotification(n))
		if limit > 0 && len(pending) >= limit {
			break
		}
	}
	return pending, nil
}

func (r *notificationRepository) ListByRecipient(ctx context.Context, recipientID string, limit int) ([]*model.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.Notification, 0)
	for _, id := range slices.Backward(r.order) {
		n := r.notifications[id]
		if n.RecipientID != recipientID {
			continue
		}
		result = append(result, copyNotification(n))
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}
