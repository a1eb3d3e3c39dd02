package interfaces

import (
	"context"

	"github.com/nexaflow/nexaflow/pkg/domain/model"
)

// NotificationRepository defines the interface for queued notifications
type NotificationRepository interface {
	// Create stores a new notification, assigning an ID if empty
	Create(ctx context.Context, n *model.Notification) (*model.Notification, error)

	// Update replaces an existing notification
	Update(ctx context.Context, n *model.Notification) (*model.Notification, error)

	// ListPending retrieves up to limit pending notifications, oldest first
	ListPending(ctx context.Context, limit int) ([]*model.Notification, error)

	// ListByRecipient retrieves the notifications of a recipient, newest first
	ListByRecipient(ctx context.Context, recipientID string, limit int) ([]*model.Notification, error)
}

// NotificationSender delivers a notification on one channel
type NotificationSender interface {
	Send(ctx context.Context, n *model.Notification, recipient *model.Profile) error
}
