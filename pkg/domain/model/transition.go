package model

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/nexaflow/nexaflow/pkg/domain/types"
)

// TransitionKind is an event that can move a deliverable through its workflow
type TransitionKind string

const (
	TransitionUpload          TransitionKind = "upload"
	TransitionSetStatus       TransitionKind = "set_status"
	TransitionApprove         TransitionKind = "approve"
	TransitionReject          TransitionKind = "reject"
	TransitionRequestRevision TransitionKind = "request_revision"
	TransitionAssign          TransitionKind = "assign"
)

// String returns the string representation of the transition kind
func (k TransitionKind) String() string {
	return string(k)
}

// sourceStates lists the statuses each kind may start from. A nil entry means any status.
var sourceStates = map[TransitionKind][]types.DeliverableStatus{
	TransitionUpload:          nil,
	TransitionAssign:          nil,
	TransitionSetStatus:       nil,
	TransitionApprove:         {types.DeliverableStatusReview},
	TransitionReject:          {types.DeliverableStatusReview},
	TransitionRequestRevision: {types.DeliverableStatusReview},
}

// TransitionEvent carries the input of a single transition
type TransitionEvent struct {
	Kind       TransitionKind
	ActorID    string
	Version    *Version                // upload
	Status     types.DeliverableStatus // set_status
	Reason     string                  // reject, request_revision
	Signer     *Signer                 // approve, reject, request_revision
	VersionID  string                  // approve, reject, request_revision: expected pending version, optional
	AssigneeID string                  // assign
}

// UploadEvent appends v as the new current version.
func UploadEvent(actorID string, v Version) TransitionEvent {
	return TransitionEvent{Kind: TransitionUpload, ActorID: actorID, Version: &v}
}

// SetStatusEvent moves the deliverable to status, typically on behalf of an automation rule.
func SetStatusEvent(actorID string, status types.DeliverableStatus) TransitionEvent {
	return TransitionEvent{Kind: TransitionSetStatus, ActorID: actorID, Status: status}
}

// RevisionEvent asks for changes on the pending version.
func RevisionEvent(signer Signer, reason string) TransitionEvent {
	return TransitionEvent{Kind: TransitionRequestRevision, ActorID: signer.SignerID, Signer: &signer, Reason: reason}
}

// AssignEvent hands the deliverable to assigneeID.
func AssignEvent(actorID, assigneeID string) TransitionEvent {
	return TransitionEvent{Kind: TransitionAssign, ActorID: actorID, AssigneeID: assigneeID}
}

// ApprovalDecision is the channel independent form of an approve or reject request
type ApprovalDecision struct {
	DeliverableID string
	Decision      types.Decision
	Reason        string
	Signer        Signer
	// VersionID pins the decision to the version the signer saw. Empty means
	// whatever version is pending.
	VersionID string
}

// Event converts the decision into a transition event.
func (a ApprovalDecision) Event() TransitionEvent {
	kind := TransitionApprove
	if a.Decision == types.DecisionReject {
		kind = TransitionReject
	}
	signer := a.Signer
	return TransitionEvent{Kind: kind, ActorID: signer.SignerID, Signer: &signer, Reason: a.Reason, VersionID: a.VersionID}
}

// Transition applies ev to d and returns the next state together with the single
// timeline entry describing it. d is never modified. A transition that changes
// nothing returns a nil activity.
func Transition(d *Deliverable, ev TransitionEvent, now time.Time) (*Deliverable, *Activity, error) {
	if d == nil {
		return nil, nil, goerr.Wrap(ErrInvalidTransition, "deliverable is nil")
	}

	allowed, ok := sourceStates[ev.Kind]
	if !ok {
		return nil, nil, goerr.Wrap(ErrInvalidTransition, "unknown transition",
			goerr.V(DeliverableIDKey, d.ID), goerr.V(TransitionKey, ev.Kind))
	}

	if err := validateEventInput(d, ev); err != nil {
		return nil, nil, err
	}

	from := d.Status.Normalize()
	if allowed != nil && !slices.Contains(allowed, from) {
		return nil, nil, invalidTransition(d, ev.Kind, from, "")
	}

	next := d.Clone()
	next.Status = from
	next.UpdatedAt = now

	var activity *Activity
	var err error
	switch ev.Kind {
	case TransitionUpload:
		activity = applyUpload(next, ev, now)
	case TransitionSetStatus:
		activity, err = applySetStatus(next, ev)
	case TransitionApprove, TransitionReject, TransitionRequestRevision:
		activity, err = applyDecision(next, ev, now)
	case TransitionAssign:
		activity = applyAssign(next, ev)
	}
	if err != nil {
		return nil, nil, err
	}

	if activity == nil {
		return d.Clone(), nil, nil
	}

	if err := next.Validate(); err != nil {
		return nil, nil, goerr.Wrap(err, "transition would break deliverable invariants",
			goerr.V(TransitionKey, ev.Kind))
	}

	activity.ProjectID = next.ProjectID
	activity.DeliverableID = next.ID
	activity.ActorID = ev.ActorID
	activity.CreatedAt = now
	return next, activity, nil
}

func validateEventInput(d *Deliverable, ev TransitionEvent) error {
	switch ev.Kind {
	case TransitionUpload:
		if ev.Version == nil {
			return goerr.Wrap(ErrInvalidTransition, "upload without version", goerr.V(DeliverableIDKey, d.ID))
		}
		if ev.Version.ID == "" || ev.Version.File.URL == "" {
			return goerr.Wrap(ErrInvalidTransition, "uploaded version requires id and file url",
				goerr.V(DeliverableIDKey, d.ID))
		}
	case TransitionSetStatus:
		if !ev.Status.IsValid() {
			return goerr.Wrap(ErrInvalidTransition, "unknown target status",
				goerr.V(DeliverableIDKey, d.ID), goerr.V(ToStatusKey, ev.Status))
		}
	case TransitionApprove, TransitionReject, TransitionRequestRevision:
		if ev.Signer == nil || ev.Signer.SignerID == "" || !ev.Signer.Method.IsValid() {
			return goerr.Wrap(ErrInvalidTransition, "decision requires a signer",
				goerr.V(DeliverableIDKey, d.ID), goerr.V(TransitionKey, ev.Kind))
		}
		if ev.Kind != TransitionApprove && strings.TrimSpace(ev.Reason) == "" {
			return goerr.Wrap(ErrMissingReason, "a reason is required",
				goerr.V(DeliverableIDKey, d.ID), goerr.V(TransitionKey, ev.Kind))
		}
	case TransitionAssign:
		if ev.AssigneeID == "" {
			return goerr.Wrap(ErrInvalidTransition, "assignee is empty", goerr.V(DeliverableIDKey, d.ID))
		}
	}
	return nil
}

func applyUpload(d *Deliverable, ev TransitionEvent, now time.Time) *Activity {
	from := d.Status
	label := d.NextVersionLabel()

	payload := map[string]any{
		"from":         from.String(),
		"versionLabel": label,
		"fileName":     ev.Version.File.Name,
		"fileSize":     ev.Version.File.Size,
	}

	if pending := d.PendingVersion(); pending != nil {
		pending.Status = types.VersionStatusRejected
		pending.RejectionReason = fmt.Sprintf("superseded by %s", label)
		pending.Signer = &Signer{
			SignerID: ev.ActorID,
			SignedAt: now,
			Method:   types.SignerMethodInApp,
		}
		payload["superseded"] = pending.Label
	}

	v := ev.Version.clone()
	v.Label = label
	v.Status = types.VersionStatusPending
	v.Signer = nil
	v.RejectionReason = ""
	if v.UploaderID == "" {
		v.UploaderID = ev.ActorID
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}
	d.Versions = append(d.Versions, v)

	// Any resolved state re-enters review with a fresh version. Drafts wait for
	// the review rule so that deliverables without review stay in draft.
	if from != types.DeliverableStatusDraft {
		d.Status = types.DeliverableStatusReview
	}
	payload["to"] = d.Status.String()

	return &Activity{Type: types.ActivityVersionUploaded, Payload: payload}
}

func applySetStatus(d *Deliverable, ev TransitionEvent) (*Activity, error) {
	from := d.Status
	if ev.Status == from {
		return nil, nil
	}

	// Resolutions need a signer and go through the decision events.
	if ev.Status != types.DeliverableStatusReview {
		return nil, invalidTransition(d, ev.Kind, from, ev.Status)
	}
	pending := d.PendingVersion()
	if pending == nil {
		return nil, invalidTransition(d, ev.Kind, from, ev.Status)
	}

	d.Status = ev.Status
	return &Activity{
		Type: types.ActivityDeliverableStatusChanged,
		Payload: map[string]any{
			"from":         from.String(),
			"to":           d.Status.String(),
			"versionLabel": pending.Label,
		},
	}, nil
}

func applyDecision(d *Deliverable, ev TransitionEvent, now time.Time) (*Activity, error) {
	from := d.Status
	pending := d.PendingVersion()
	if pending == nil {
		return nil, invalidTransition(d, ev.Kind, from, "")
	}
	if ev.VersionID != "" && ev.VersionID != pending.ID {
		return nil, goerr.Wrap(ErrVersionMismatch, "pending version changed",
			goerr.V(DeliverableIDKey, d.ID), goerr.V(VersionIDKey, ev.VersionID), goerr.V("pending_version_id", pending.ID))
	}

	signer := *ev.Signer
	if signer.SignedAt.IsZero() {
		signer.SignedAt = now
	}
	pending.Signer = &signer

	var activityType types.ActivityType
	reason := strings.TrimSpace(ev.Reason)
	switch ev.Kind {
	case TransitionApprove:
		pending.Status = types.VersionStatusApproved
		d.Status = types.DeliverableStatusApproved
		activityType = types.ActivityDeliverableApproved
	case TransitionReject:
		pending.Status = types.VersionStatusRejected
		pending.RejectionReason = reason
		d.Status = types.DeliverableStatusRejected
		activityType = types.ActivityDeliverableRejected
	case TransitionRequestRevision:
		pending.Status = types.VersionStatusRejected
		pending.RejectionReason = reason
		d.Status = types.DeliverableStatusRevision
		activityType = types.ActivityDeliverableRevisionRequested
	}

	payload := map[string]any{
		"from":         from.String(),
		"to":           d.Status.String(),
		"versionLabel": pending.Label,
		"method":       signer.Method.String(),
		"signerId":     signer.SignerID,
	}
	if reason != "" && ev.Kind != TransitionApprove {
		payload["reason"] = reason
	}

	return &Activity{Type: activityType, Payload: payload}, nil
}

func applyAssign(d *Deliverable, ev TransitionEvent) *Activity {
	if d.AssigneeID == ev.AssigneeID {
		return nil
	}
	from := d.AssigneeID
	d.AssigneeID = ev.AssigneeID
	return &Activity{
		Type: types.ActivityDeliverableAssigned,
		Payload: map[string]any{
			"from": from,
			"to":   d.AssigneeID,
		},
	}
}

func invalidTransition(d *Deliverable, kind TransitionKind, from, to types.DeliverableStatus) error {
	return goerr.Wrap(ErrInvalidTransition, "transition not allowed",
		goerr.V(DeliverableIDKey, d.ID),
		goerr.V(TransitionKey, kind),
		goerr.V(FromStatusKey, from),
		goerr.V(ToStatusKey, to),
	)
}

func versionLabel(n int) string {
	return fmt.Sprintf("v%d", n)
}
