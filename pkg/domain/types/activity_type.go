package types

// ActivityType is the closed set of entries that can appear on a timeline
type ActivityType string

const (
	ActivityDeliverableCreated           ActivityType = "deliverable.created"
	ActivityVersionUploaded              ActivityType = "version.uploaded"
	ActivityDeliverableStatusChanged     ActivityType = "deliverable.status_changed"
	ActivityDeliverableApproved          ActivityType = "deliverable.approved"
	ActivityDeliverableRejected          ActivityType = "deliverable.rejected"
	ActivityDeliverableRevisionRequested ActivityType = "deliverable.revision_requested"
	ActivityDeliverableAssigned          ActivityType = "deliverable.assigned"
	ActivityRuleNote                     ActivityType = "rule.note"
)

// AllActivityTypes returns all valid activity types
func AllActivityTypes() []ActivityType {
	return []ActivityType{
		ActivityDeliverableCreated,
		ActivityVersionUploaded,
		ActivityDeliverableStatusChanged,
		ActivityDeliverableApproved,
		ActivityDeliverableRejected,
		ActivityDeliverableRevisionRequested,
		ActivityDeliverableAssigned,
		ActivityRuleNote,
	}
}

// IsValid checks if the activity type is valid
func (a ActivityType) IsValid() bool {
	for _, v := range AllActivityTypes() {
		if a == v {
			return true
		}
	}
	return false
}

// String returns the string representation of the activity type
func (a ActivityType) String() string {
	return string(a)
}

// EventType maps a timeline entry to the lifecycle event that automation rules listen on.
// Entries without a matching event return an empty EventType.
func (a ActivityType) EventType() EventType {
	switch a {
	case ActivityDeliverableCreated:
		return EventDeliverableCreated
	case ActivityVersionUploaded:
		return EventFileUpload
	case ActivityDeliverableStatusChanged:
		return EventDeliverableStatusChanged
	case ActivityDeliverableApproved:
		return EventDeliverableApproved
	case ActivityDeliverableRejected:
		return EventDeliverableRejected
	case ActivityDeliverableRevisionRequested:
		return EventDeliverableRevisionRequested
	case ActivityDeliverableAssigned:
		return EventDeliverableAssigned
	default:
		return ""
	}
}
