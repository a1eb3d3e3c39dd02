package model

import (
	"time"

	"github.com/nexaflow/nexaflow/pkg/domain/types"
)

// Event is a lifecycle event fed to the automation engine
type Event struct {
	Type          types.EventType
	ProjectID     string
	DeliverableID string
	ActorID       string
	Payload       map[string]any
	OccurredAt    time.Time
	// Depth counts how many rule executions led to this event. Events caused by
	// rules are not dispatched again once the limit is reached.
	Depth int
}

// NewDeliverableEvent builds an event whose payload is the deliverable snapshot
// overlaid with extra.
func NewDeliverableEvent(eventType types.EventType, d *Deliverable, actorID string, extra map[string]any, now time.Time) *Event {
	return &Event{
		Type:          eventType,
		ProjectID:     d.ProjectID,
		DeliverableID: d.ID,
		ActorID:       actorID,
		Payload:       mergePayload(d.Payload(), extra),
		OccurredAt:    now,
	}
}

// EventFromActivity derives the lifecycle event for a recorded timeline entry.
// It returns nil when the entry has no matching event type.
func EventFromActivity(a *Activity, d *Deliverable) *Event {
	eventType := a.Type.EventType()
	if eventType == "" {
		return nil
	}
	return NewDeliverableEvent(eventType, d, a.ActorID, a.Payload, a.CreatedAt)
}
