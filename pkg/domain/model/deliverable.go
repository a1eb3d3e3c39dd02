package model

import (
	"maps"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/nexaflow/nexaflow/pkg/domain/types"
)

// Deliverable is a unit of work inside a project that goes through client approval.
// Versions are append-only and the last element is the current version.
type Deliverable struct {
	ID             string
	ProjectID      string
	Title          string
	Description    string
	RequiresReview bool
	AssigneeID     string
	DueDate        *time.Time
	Status         types.DeliverableStatus
	ApprovalToken  ApprovalToken
	Versions       []Version
	Revision       int64 // incremented on every persisted write, used for compare-and-swap
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// FileRef points to an uploaded file in object storage
type FileRef struct {
	URL         string
	Name        string
	Size        int64
	ContentType string
}

// Signer records who resolved a version and through which channel
type Signer struct {
	SignerID  string
	SignedAt  time.Time
	Method    types.SignerMethod
	IPAddress string
	UserAgent string
}

// Version is one uploaded iteration of a deliverable
type Version struct {
	ID              string
	Label           string // "v1", "v2", ...
	File            FileRef
	UploaderID      string
	Status          types.VersionStatus
	Signer          *Signer // set iff Status is not pending
	RejectionReason string
	CreatedAt       time.Time
}

// CurrentVersion returns the latest uploaded version, or nil if there is none.
func (d *Deliverable) CurrentVersion() *Version {
	if len(d.Versions) == 0 {
		return nil
	}
	return &d.Versions[len(d.Versions)-1]
}

// PendingVersion returns the current version if it still awaits a decision.
func (d *Deliverable) PendingVersion() *Version {
	v := d.CurrentVersion()
	if v == nil || v.Status != types.VersionStatusPending {
		return nil
	}
	return v
}

// NextVersionLabel returns the label the next uploaded version will carry.
func (d *Deliverable) NextVersionLabel() string {
	return versionLabel(len(d.Versions) + 1)
}

// Clone returns a deep copy.
func (d *Deliverable) Clone() *Deliverable {
	if d == nil {
		return nil
	}
	c := *d
	if d.DueDate != nil {
		due := *d.DueDate
		c.DueDate = &due
	}
	if d.Versions != nil {
		c.Versions = make([]Version, len(d.Versions))
		for i, v := range d.Versions {
			c.Versions[i] = v.clone()
		}
	}
	return &c
}

func (v Version) clone() Version {
	if v.Signer != nil {
		s := *v.Signer
		v.Signer = &s
	}
	return v
}

// Validate checks the structural invariants of a deliverable.
func (d *Deliverable) Validate() error {
	if d.ID == "" {
		return goerr.Wrap(ErrInvalidDeliverable, "deliverable id is empty")
	}
	if d.ProjectID == "" {
		return goerr.Wrap(ErrInvalidDeliverable, "project id is empty", goerr.V(DeliverableIDKey, d.ID))
	}
	if d.Title == "" {
		return goerr.Wrap(ErrInvalidDeliverable, "title is empty", goerr.V(DeliverableIDKey, d.ID))
	}
	if !d.Status.IsValid() {
		return goerr.Wrap(ErrInvalidDeliverable, "unknown status",
			goerr.V(DeliverableIDKey, d.ID), goerr.V(ToStatusKey, d.Status))
	}
	if d.ApprovalToken != NewApprovalToken(d.ID) {
		return goerr.Wrap(ErrInvalidDeliverable, "approval token does not match id",
			goerr.V(DeliverableIDKey, d.ID), goerr.V(TokenKey, d.ApprovalToken))
	}

	pending := 0
	for i, v := range d.Versions {
		if !v.Status.IsValid() {
			return goerr.Wrap(ErrInvalidDeliverable, "unknown version status",
				goerr.V(DeliverableIDKey, d.ID), goerr.V(IndexKey, i))
		}
		if (v.Status == types.VersionStatusPending) != (v.Signer == nil) {
			return goerr.Wrap(ErrInvalidDeliverable, "signer must be set exactly when a version is resolved",
				goerr.V(DeliverableIDKey, d.ID), goerr.V(IndexKey, i))
		}
		if v.Status == types.VersionStatusPending {
			pending++
		}
	}
	if pending > 1 {
		return goerr.Wrap(ErrInvalidDeliverable, "more than one pending version", goerr.V(DeliverableIDKey, d.ID))
	}

	current := d.CurrentVersion()
	switch d.Status {
	case types.DeliverableStatusReview:
		if d.PendingVersion() == nil {
			return goerr.Wrap(ErrInvalidDeliverable, "review requires a pending current version",
				goerr.V(DeliverableIDKey, d.ID))
		}
	case types.DeliverableStatusApproved, types.DeliverableStatusRejected, types.DeliverableStatusRevision:
		if current == nil || current.Signer == nil {
			return goerr.Wrap(ErrInvalidDeliverable, "resolved deliverable requires a signed current version",
				goerr.V(DeliverableIDKey, d.ID), goerr.V(ToStatusKey, d.Status))
		}
	}

	return nil
}

// Payload returns the fields automation rules can match against.
func (d *Deliverable) Payload() map[string]any {
	p := map[string]any{
		"deliverableId":  d.ID,
		"projectId":      d.ProjectID,
		"title":          d.Title,
		"status":         d.Status.String(),
		"requiresReview": d.RequiresReview,
		"assigneeId":     d.AssigneeID,
		"approvalToken":  d.ApprovalToken.String(),
		"versionCount":   len(d.Versions),
	}
	if v := d.CurrentVersion(); v != nil {
		p["version"] = map[string]any{
			"label":       v.Label,
			"status":      v.Status.String(),
			"uploaderId":  v.UploaderID,
			"fileName":    v.File.Name,
			"fileSize":    v.File.Size,
			"contentType": v.File.ContentType,
		}
	}
	return p
}

func mergePayload(base map[string]any, extra map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(extra))
	maps.Copy(out, base)
	maps.Copy(out, extra)
	return out
}
