package model

import (
	"time"

	"github.com/nexaflow/nexaflow/pkg/domain/types"
)

// Notification is a message queued for delivery to a single recipient
type Notification struct {
	ID            string
	RecipientID   string
	Channel       types.NotificationChannel
	Subject       string
	Body          string
	ProjectID     string
	DeliverableID string
	Status        types.NotificationStatus
	Attempts      int
	LastError     string
	CreatedAt     time.Time
	SentAt        *time.Time
}
