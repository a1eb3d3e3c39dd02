package model_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/nexaflow/nexaflow/pkg/domain/model"
	"github.com/nexaflow/nexaflow/pkg/domain/types"
)

func TestDeliverable_Validate(t *testing.T) {
	t.Run("new draft", func(t *testing.T) {
		gt.NoError(t, newDeliverable(true).Validate())
	})

	t.Run("token must match id", func(t *testing.T) {
		d := newDeliverable(true)
		d.ApprovalToken = "APP-000000"
		gt.Error(t, d.Validate()).Is(model.ErrInvalidDeliverable)
	})

	t.Run("review without pending version", func(t *testing.T) {
		d := newDeliverable(true)
		d.Status = types.DeliverableStatusReview
		gt.Error(t, d.Validate()).Is(model.ErrInvalidDeliverable)
	})

	t.Run("approved without signer", func(t *testing.T) {
		d := newDeliverable(true)
		v := newVersion("a.png")
		v.Status = types.VersionStatusApproved
		d.Versions = []model.Version{v}
		d.Status = types.DeliverableStatusApproved
		gt.Error(t, d.Validate()).Is(model.ErrInvalidDeliverable)
	})

	t.Run("two pending versions", func(t *testing.T) {
		d := newDeliverable(true)
		a, b := newVersion("a.png"), newVersion("b.png")
		a.Status, b.Status = types.VersionStatusPending, types.VersionStatusPending
		d.Versions = []model.Version{a, b}
		gt.Error(t, d.Validate()).Is(model.ErrInvalidDeliverable)
	})
}

func TestDeliverable_CloneIsDeep(t *testing.T) {
	d := inReview(t)
	d, _, err := model.Transition(d, model.ApprovalDecision{
		Decision: types.DecisionApprove,
		Signer:   signer("client-1", types.SignerMethodInApp),
	}.Event(), baseTime)
	gt.NoError(t, err).Required()

	c := d.Clone()
	c.Versions[0].Signer.SignerID = "someone-else"
	c.Versions[0].Label = "v9"
	gt.Value(t, d.Versions[0].Signer.SignerID).Equal("client-1")
	gt.Value(t, d.Versions[0].Label).Equal("v1")
}

func TestDeliverable_Payload(t *testing.T) {
	d := inReview(t)
	p := d.Payload()
	gt.Value(t, p["requiresReview"]).Equal(any(true))
	gt.Value(t, p["status"]).Equal(any("review"))
	gt.Value(t, p["approvalToken"]).Equal(any(d.ApprovalToken.String()))
	gt.Map(t, p).HasKey("version")

	ev := model.NewDeliverableEvent(types.EventFileUpload, d, "member-1", map[string]any{"status": "override"}, baseTime)
	gt.Value(t, ev.Payload["status"]).Equal(any("override"))
	gt.Value(t, ev.DeliverableID).Equal(d.ID)
}

func TestEventFromActivity(t *testing.T) {
	d := newDeliverable(true)
	next, activity, err := model.Transition(d, model.UploadEvent("member-1", newVersion("a.png")), baseTime)
	gt.NoError(t, err).Required()

	ev := model.EventFromActivity(activity, next)
	gt.Value(t, ev.Type).Equal(types.EventFileUpload)
	gt.Value(t, ev.Payload["fileName"]).Equal(any("a.png"))

	gt.Value(t, model.EventFromActivity(&model.Activity{Type: types.ActivityRuleNote}, next)).Nil()
}

func TestNormalizePhone(t *testing.T) {
	gt.Value(t, model.NormalizePhone("+1 (555) 010-2000")).Equal("+15550102000")
	gt.Value(t, model.NormalizePhone("555+1")).Equal("5551")
}
