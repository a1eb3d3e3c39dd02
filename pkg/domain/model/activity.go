package model

import (
	"time"

	"github.com/nexaflow/nexaflow/pkg/domain/types"
)

// Activity is an append-only timeline entry
type Activity struct {
	ID            string
	ProjectID     string
	DeliverableID string
	ActorID       string
	Type          types.ActivityType
	Payload       map[string]any
	CreatedAt     time.Time
}
