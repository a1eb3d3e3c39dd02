package types

import "fmt"

// EventType identifies a lifecycle event. Automation rules use it as their trigger.
type EventType string

const (
	EventDeliverableCreated           EventType = "deliverable.created"
	EventFileUpload                   EventType = "file.upload"
	EventDeliverableStatusChanged     EventType = "deliverable.status_changed"
	EventDeliverableApproved          EventType = "deliverable.approved"
	EventDeliverableRejected          EventType = "deliverable.rejected"
	EventDeliverableRevisionRequested EventType = "deliverable.revision_requested"
	EventDeliverableAssigned          EventType = "deliverable.assigned"
)

// AllEventTypes returns all valid event types
func AllEventTypes() []EventType {
	return []EventType{
		EventDeliverableCreated,
		EventFileUpload,
		EventDeliverableStatusChanged,
		EventDeliverableApproved,
		EventDeliverableRejected,
		EventDeliverableRevisionRequested,
		EventDeliverableAssigned,
	}
}

// IsValid checks if the event type is valid
func (e EventType) IsValid() bool {
	for _, v := range AllEventTypes() {
		if e == v {
			return true
		}
	}
	return false
}

// String returns the string representation of the event type
func (e EventType) String() string {
	return string(e)
}

// ParseEventType parses a string into an EventType
func ParseEventType(s string) (EventType, error) {
	e := EventType(s)
	if !e.IsValid() {
		return "", fmt.Errorf("invalid event type: %s", s)
	}
	return e, nil
}

// Operator compares a payload field against a rule condition value
type Operator string

const (
	OperatorEquals      Operator = "equals"
	OperatorNotEquals   Operator = "not_equals"
	OperatorGreaterThan Operator = "greater_than"
	OperatorLessThan    Operator = "less_than"
	OperatorContains    Operator = "contains"
)

// AllOperators returns all valid operators
func AllOperators() []Operator {
	return []Operator{
		OperatorEquals,
		OperatorNotEquals,
		OperatorGreaterThan,
		OperatorLessThan,
		OperatorContains,
	}
}

// IsValid checks if the operator is valid
func (o Operator) IsValid() bool {
	switch o {
	case OperatorEquals,
		OperatorNotEquals,
		OperatorGreaterThan,
		OperatorLessThan,
		OperatorContains:
		return true
	default:
		return false
	}
}

// String returns the string representation of the operator
func (o Operator) String() string {
	return string(o)
}

// ParseOperator parses a string into an Operator
func ParseOperator(s string) (Operator, error) {
	o := Operator(s)
	if !o.IsValid() {
		return "", fmt.Errorf("invalid operator: %s", s)
	}
	return o, nil
}

// ActionType is the kind of side effect an automation rule performs
type ActionType string

const (
	ActionTypeUpdateStatus     ActionType = "update_status"
	ActionTypeSendNotification ActionType = "send_notification"
	ActionTypeAssignUser       ActionType = "assign_user"
	ActionTypeCreateActivity   ActionType = "create_activity"
)

// AllActionTypes returns all valid action types
func AllActionTypes() []ActionType {
	return []ActionType{
		ActionTypeUpdateStatus,
		ActionTypeSendNotification,
		ActionTypeAssignUser,
		ActionTypeCreateActivity,
	}
}

// IsValid checks if the action type is valid
func (a ActionType) IsValid() bool {
	switch a {
	case ActionTypeUpdateStatus,
		ActionTypeSendNotification,
		ActionTypeAssignUser,
		ActionTypeCreateActivity:
		return true
	default:
		return false
	}
}

// String returns the string representation of the action type
func (a ActionType) String() string {
	return string(a)
}

// ParseActionType parses a string into an ActionType
func ParseActionType(s string) (ActionType, error) {
	a := ActionType(s)
	if !a.IsValid() {
		return "", fmt.Errorf("invalid action type: %s", s)
	}
	return a, nil
}
