package model_test

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/nexaflow/nexaflow/pkg/domain/model"
	"github.com/nexaflow/nexaflow/pkg/domain/types"
)

// inReview returns a deliverable with v1 pending in review.
func inReview(t *testing.T) *model.Deliverable {
	t.Helper()
	d := newDeliverable(true)
	d, _, err := model.Transition(d, model.UploadEvent("member-1", newVersion("hero.png")), baseTime)
	gt.NoError(t, err).Required()
	d, _, err = model.Transition(d, model.SetStatusEvent("system", types.DeliverableStatusReview), baseTime)
	gt.NoError(t, err).Required()
	gt.Value(t, d.Status).Equal(types.DeliverableStatusReview)
	return d
}

func TestTransition_Upload(t *testing.T) {
	t.Run("draft stays draft and version is pending", func(t *testing.T) {
		d := newDeliverable(true)
		next, activity, err := model.Transition(d, model.UploadEvent("member-1", newVersion("hero.png")), baseTime)
		gt.NoError(t, err).Required()

		gt.Value(t, next.Status).Equal(types.DeliverableStatusDraft)
		gt.Array(t, next.Versions).Length(1)
		gt.Value(t, next.Versions[0].Label).Equal("v1")
		gt.Value(t, next.Versions[0].Status).Equal(types.VersionStatusPending)
		gt.Value(t, next.Versions[0].Signer).Nil()
		gt.Value(t, activity.Type).Equal(types.ActivityVersionUploaded)
		gt.Value(t, activity.DeliverableID).Equal(d.ID)
		gt.Array(t, d.Versions).Length(0)
	})

	t.Run("resolved deliverable re-enters review", func(t *testing.T) {
		d := inReview(t)
		d, _, err := model.Transition(d, model.ApprovalDecision{
			Decision: types.DecisionReject,
			Reason:   "too dark",
			Signer:   signer("client-1", types.SignerMethodInApp),
		}.Event(), baseTime)
		gt.NoError(t, err).Required()

		next, activity, err := model.Transition(d, model.UploadEvent("member-1", newVersion("hero-v2.png")), baseTime)
		gt.NoError(t, err).Required()
		gt.Value(t, next.Status).Equal(types.DeliverableStatusReview)
		gt.Value(t, next.CurrentVersion().Label).Equal("v2")
		gt.Value(t, activity.Payload["from"]).Equal("rejected")
		gt.Value(t, activity.Payload["to"]).Equal("review")
	})

	t.Run("pending version is superseded", func(t *testing.T) {
		d := inReview(t)
		next, activity, err := model.Transition(d, model.UploadEvent("member-2", newVersion("hero-v2.png")), baseTime)
		gt.NoError(t, err).Required()

		gt.Array(t, next.Versions).Length(2)
		gt.Value(t, next.Versions[0].Status).Equal(types.VersionStatusRejected)
		gt.Value(t, next.Versions[0].RejectionReason).Equal("superseded by v2")
		gt.Value(t, next.Versions[0].Signer.SignerID).Equal("member-2")
		gt.Value(t, next.Versions[1].Status).Equal(types.VersionStatusPending)
		gt.Value(t, activity.Payload["superseded"]).Equal("v1")
		gt.NoError(t, next.Validate())
	})

	t.Run("version without file is rejected", func(t *testing.T) {
		v := newVersion("x.png")
		v.File.URL = ""
		_, _, err := model.Transition(newDeliverable(true), model.UploadEvent("member-1", v), baseTime)
		gt.Error(t, err).Is(model.ErrInvalidTransition)
	})
}

func TestTransition_SetStatus(t *testing.T) {
	t.Run("draft without version cannot enter review", func(t *testing.T) {
		_, _, err := model.Transition(newDeliverable(true), model.SetStatusEvent("system", types.DeliverableStatusReview), baseTime)
		gt.Error(t, err).Is(model.ErrInvalidTransition)
	})

	t.Run("same status is a no-op", func(t *testing.T) {
		d := inReview(t)
		next, activity, err := model.Transition(d, model.SetStatusEvent("system", types.DeliverableStatusReview), baseTime)
		gt.NoError(t, err).Required()
		gt.Value(t, activity).Nil()
		gt.Value(t, next.Status).Equal(types.DeliverableStatusReview)
	})

	for _, to := range []types.DeliverableStatus{
		types.DeliverableStatusApproved,
		types.DeliverableStatusRejected,
		types.DeliverableStatusRevision,
		types.DeliverableStatusDraft,
	} {
		t.Run("cannot force "+to.String(), func(t *testing.T) {
			_, _, err := model.Transition(inReview(t), model.SetStatusEvent("system", to), baseTime)
			gt.Error(t, err).Is(model.ErrInvalidTransition)
		})
	}

	t.Run("unknown status", func(t *testing.T) {
		_, _, err := model.Transition(inReview(t), model.SetStatusEvent("system", "archived"), baseTime)
		gt.Error(t, err).Is(model.ErrInvalidTransition)
	})
}

func TestTransition_Decisions(t *testing.T) {
	t.Run("approve stamps signer", func(t *testing.T) {
		d := inReview(t)
		s := signer("client-1", types.SignerMethodWhatsApp)
		s.IPAddress = "203.0.113.4"
		next, activity, err := model.Transition(d, model.ApprovalDecision{
			Decision: types.DecisionApprove,
			Signer:   s,
		}.Event(), baseTime)
		gt.NoError(t, err).Required()

		gt.Value(t, next.Status).Equal(types.DeliverableStatusApproved)
		v := next.CurrentVersion()
		gt.Value(t, v.Status).Equal(types.VersionStatusApproved)
		gt.Value(t, v.Signer.SignerID).Equal("client-1")
		gt.Value(t, v.Signer.Method).Equal(types.SignerMethodWhatsApp)
		gt.Value(t, v.Signer.IPAddress).Equal("203.0.113.4")
		gt.Value(t, v.Signer.SignedAt).Equal(baseTime)
		gt.Value(t, activity.Type).Equal(types.ActivityDeliverableApproved)
		gt.Value(t, activity.ActorID).Equal("client-1")
	})

	t.Run("reject stores reason", func(t *testing.T) {
		next, activity, err := model.Transition(inReview(t), model.ApprovalDecision{
			Decision: types.DecisionReject,
			Reason:   "  needs more contrast ",
			Signer:   signer("client-1", types.SignerMethodEmail),
		}.Event(), baseTime)
		gt.NoError(t, err).Required()

		gt.Value(t, next.Status).Equal(types.DeliverableStatusRejected)
		gt.Value(t, next.CurrentVersion().RejectionReason).Equal("needs more contrast")
		gt.Value(t, activity.Payload["reason"]).Equal("needs more contrast")
	})

	t.Run("request revision", func(t *testing.T) {
		next, activity, err := model.Transition(inReview(t),
			model.RevisionEvent(signer("pm-1", types.SignerMethodInApp), "swap the logo"), baseTime)
		gt.NoError(t, err).Required()

		gt.Value(t, next.Status).Equal(types.DeliverableStatusRevision)
		gt.Value(t, next.CurrentVersion().Status).Equal(types.VersionStatusRejected)
		gt.Value(t, activity.Type).Equal(types.ActivityDeliverableRevisionRequested)
	})

	t.Run("approve outside review", func(t *testing.T) {
		_, _, err := model.Transition(newDeliverable(true), model.ApprovalDecision{
			Decision: types.DecisionApprove,
			Signer:   signer("client-1", types.SignerMethodInApp),
		}.Event(), baseTime)
		gt.Error(t, err).Is(model.ErrInvalidTransition)
	})

	t.Run("decision pinned to the pending version", func(t *testing.T) {
		d := inReview(t)
		next, _, err := model.Transition(d, model.ApprovalDecision{
			Decision:  types.DecisionApprove,
			Signer:    signer("client-1", types.SignerMethodEmail),
			VersionID: d.PendingVersion().ID,
		}.Event(), baseTime)
		gt.NoError(t, err).Required()
		gt.Value(t, next.Status).Equal(types.DeliverableStatusApproved)
	})

	t.Run("decision pinned to a superseded version", func(t *testing.T) {
		d := inReview(t)
		v1 := d.PendingVersion().ID
		d, _, err := model.Transition(d, model.UploadEvent("member-1", newVersion("hero-v2.png")), baseTime)
		gt.NoError(t, err).Required()

		_, _, err = model.Transition(d, model.ApprovalDecision{
			Decision:  types.DecisionApprove,
			Signer:    signer("client-1", types.SignerMethodEmail),
			VersionID: v1,
		}.Event(), baseTime)
		gt.Error(t, err).Is(model.ErrVersionMismatch)
	})

	t.Run("decision without signer", func(t *testing.T) {
		_, _, err := model.Transition(inReview(t), model.TransitionEvent{Kind: model.TransitionApprove}, baseTime)
		gt.Error(t, err).Is(model.ErrInvalidTransition)
	})
}

func TestTransition_RejectRequiresReason(t *testing.T) {
	for _, reason := range []string{"", "   ", "\n\t"} {
		d := inReview(t)
		before := d.Clone()

		_, _, err := model.Transition(d, model.ApprovalDecision{
			Decision: types.DecisionReject,
			Reason:   reason,
			Signer:   signer("client-1", types.SignerMethodInApp),
		}.Event(), baseTime)
		gt.Error(t, err).Is(model.ErrMissingReason)
		gt.Value(t, d).Equal(before)

		_, _, err = model.Transition(d, model.RevisionEvent(signer("pm-1", types.SignerMethodInApp), reason), baseTime)
		gt.Error(t, err).Is(model.ErrMissingReason)
	}
}

func TestTransition_Assign(t *testing.T) {
	d := newDeliverable(false)
	next, activity, err := model.Transition(d, model.AssignEvent("pm-1", "member-7"), baseTime)
	gt.NoError(t, err).Required()
	gt.Value(t, next.AssigneeID).Equal("member-7")
	gt.Value(t, activity.Type).Equal(types.ActivityDeliverableAssigned)

	_, activity, err = model.Transition(next, model.AssignEvent("pm-1", "member-7"), baseTime)
	gt.NoError(t, err).Required()
	gt.Value(t, activity).Nil()

	_, _, err = model.Transition(d, model.AssignEvent("pm-1", ""), baseTime)
	gt.Error(t, err).Is(model.ErrInvalidTransition)
}

func TestTransition_UnknownKind(t *testing.T) {
	_, _, err := model.Transition(newDeliverable(true), model.TransitionEvent{Kind: "archive"}, baseTime)
	gt.Error(t, err).Is(model.ErrInvalidTransition)
}

// Random event sequences never leave the deliverable in a state that breaks its
// invariants, and resolutions are only reached from review.
func TestTransition_RandomSequencesKeepInvariants(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 7))
	statuses := types.AllDeliverableStatuses()

	randomEvent := func() model.TransitionEvent {
		reasons := []string{"", "off brand"}
		methods := types.AllSignerMethods()
		s := signer("client-1", methods[rng.IntN(len(methods))])
		switch rng.IntN(6) {
		case 0:
			return model.UploadEvent("member-1", newVersion("file.png"))
		case 1:
			return model.SetStatusEvent("system", statuses[rng.IntN(len(statuses))])
		case 2:
			return model.ApprovalDecision{Decision: types.DecisionApprove, Signer: s}.Event()
		case 3:
			return model.ApprovalDecision{Decision: types.DecisionReject, Reason: reasons[rng.IntN(2)], Signer: s}.Event()
		case 4:
			return model.RevisionEvent(s, reasons[rng.IntN(2)])
		default:
			return model.AssignEvent("pm-1", "member-2")
		}
	}

	for run := 0; run < 50; run++ {
		d := newDeliverable(true)
		for step := 0; step < 40; step++ {
			ev := randomEvent()
			before := d.Clone()

			next, activity, err := model.Transition(d, ev, baseTime)
			if err != nil {
				gt.Bool(t, errors.Is(err, model.ErrInvalidTransition) || errors.Is(err, model.ErrMissingReason)).True()
				gt.Value(t, d).Equal(before)
				continue
			}

			gt.NoError(t, next.Validate())
			if next.Status.IsResolved() && next.Status != before.Status {
				gt.Value(t, before.Status).Equal(types.DeliverableStatusReview)
			}
			if activity != nil {
				gt.Bool(t, activity.Type.IsValid()).True()
			}
			d = next
		}
	}
}
