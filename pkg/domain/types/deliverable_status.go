package types

import "fmt"

// DeliverableStatus represents the workflow state of a deliverable
type DeliverableStatus string

const (
	DeliverableStatusDraft    DeliverableStatus = "draft"
	DeliverableStatusReview   DeliverableStatus = "review"
	DeliverableStatusApproved DeliverableStatus = "approved"
	DeliverableStatusRejected DeliverableStatus = "rejected"
	DeliverableStatusRevision DeliverableStatus = "revision"
)

// AllDeliverableStatuses returns all valid deliverable statuses
func AllDeliverableStatuses() []DeliverableStatus {
	return []DeliverableStatus{
		DeliverableStatusDraft,
		DeliverableStatusReview,
		DeliverableStatusApproved,
		DeliverableStatusRejected,
		DeliverableStatusRevision,
	}
}

// IsValid checks if the deliverable status is valid
func (s DeliverableStatus) IsValid() bool {
	switch s {
	case DeliverableStatusDraft,
		DeliverableStatusReview,
		DeliverableStatusApproved,
		DeliverableStatusRejected,
		DeliverableStatusRevision:
		return true
	default:
		return false
	}
}

// IsResolved reports whether a reviewer has signed off on the current version.
func (s DeliverableStatus) IsResolved() bool {
	return s == DeliverableStatusApproved || s == DeliverableStatusRejected
}

// Normalize returns the status, treating empty as DeliverableStatusDraft.
func (s DeliverableStatus) Normalize() DeliverableStatus {
	if s == "" {
		return DeliverableStatusDraft
	}
	return s
}

// String returns the string representation of the deliverable status
func (s DeliverableStatus) String() string {
	return string(s)
}

// ParseDeliverableStatus parses a string into a DeliverableStatus
func ParseDeliverableStatus(s string) (DeliverableStatus, error) {
	status := DeliverableStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid deliverable status: %s", s)
	}
	return status, nil
}

// VersionStatus represents the review state of a single uploaded version
type VersionStatus string

const (
	VersionStatusPending  VersionStatus = "pending"
	VersionStatusApproved VersionStatus = "approved"
	VersionStatusRejected VersionStatus = "rejected"
)

// AllVersionStatuses returns all valid version statuses
func AllVersionStatuses() []VersionStatus {
	return []VersionStatus{
		VersionStatusPending,
		VersionStatusApproved,
		VersionStatusRejected,
	}
}

// IsValid checks if the version status is valid
func (s VersionStatus) IsValid() bool {
	switch s {
	case VersionStatusPending,
		VersionStatusApproved,
		VersionStatusRejected:
		return true
	default:
		return false
	}
}

// String returns the string representation of the version status
func (s VersionStatus) String() string {
	return string(s)
}

// ParseVersionStatus parses a string into a VersionStatus
func ParseVersionStatus(s string) (VersionStatus, error) {
	status := VersionStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid version status: %s", s)
	}
	return status, nil
}
