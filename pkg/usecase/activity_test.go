package usecase_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/nexaflow/nexaflow/pkg/domain/model"
	"github.com/nexaflow/nexaflow/pkg/domain/types"
	"github.com/nexaflow/nexaflow/pkg/usecase"
)

func TestActivityUseCase_Timeline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.inReview(t, "Logo")

	_, err := f.uc.Approval.DecideInApp(ctx, f.session(f.client), usecase.InAppInput{
		DeliverableID: d.ID,
		Decision:      types.DecisionReject,
		Reason:        "colors are off",
	})
	gt.NoError(t, err).Required()

	timeline, err := f.uc.Activity.ListByDeliverable(ctx, f.session(f.client), d.ID)
	gt.NoError(t, err).Required()

	var kinds []types.ActivityType
	for _, a := range timeline {
		kinds = append(kinds, a.Type)
	}
	gt.Value(t, kinds).Equal([]types.ActivityType{
		types.ActivityDeliverableCreated,
		types.ActivityVersionUploaded,
		types.ActivityDeliverableStatusChanged,
		types.ActivityDeliverableRejected,
	})

	recent, err := f.uc.Activity.ListByProject(ctx, f.session(f.pm), f.project.ID, 2)
	gt.NoError(t, err).Required()
	gt.Array(t, recent).Length(2)
	gt.Value(t, recent[0].Type).Equal(types.ActivityDeliverableRejected)

	_, err = f.uc.Activity.ListByDeliverable(ctx, f.session(f.outsider), d.ID)
	gt.Error(t, err).Is(usecase.ErrAccessDenied)

	_, err = f.uc.Activity.ListByProject(ctx, f.session(f.outsider), f.project.ID, 10)
	gt.Error(t, err).Is(usecase.ErrAccessDenied)
}

func TestActivityUseCase_Record(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.uc.Activity.Record(ctx, &model.Activity{Type: "deliverable.exploded", ProjectID: "p", DeliverableID: "d"})
	gt.Error(t, err).Is(usecase.ErrValidation)

	_, err = f.uc.Activity.Record(ctx, &model.Activity{Type: types.ActivityRuleNote})
	gt.Error(t, err).Is(usecase.ErrValidation)

	a, err := f.uc.Activity.Record(ctx, &model.Activity{
		Type:          types.ActivityRuleNote,
		ProjectID:     f.project.ID,
		DeliverableID: "d-1",
		Payload:       map[string]any{"message": "hello"},
	})
	gt.NoError(t, err).Required()
	gt.Value(t, a.ID).NotEqual("")
	gt.Bool(t, a.CreatedAt.IsZero()).False()
}

func TestResolutionMessage(t *testing.T) {
	d := &model.Deliverable{Title: "Logo"}

	testCases := []struct {
		name        string
		activity    *model.Activity
		wantSubject string
		wantBody    string
	}{
		{
			name: "approved",
			activity: &model.Activity{
				Type:    types.ActivityDeliverableApproved,
				Payload: map[string]any{"versionLabel": "v2", "method": "whatsapp"},
			},
			wantSubject: "Approved: Logo",
			wantBody:    "Logo v2 was approved via whatsapp.",
		},
		{
			name: "rejected",
			activity: &model.Activity{
				Type:    types.ActivityDeliverableRejected,
				Payload: map[string]any{"versionLabel": "v1", "method": "email", "reason": "too dark"},
			},
			wantSubject: "Rejected: Logo",
			wantBody:    "Logo v1 was rejected via email. Reason: too dark",
		},
		{
			name: "revision requested",
			activity: &model.Activity{
				Type:    types.ActivityDeliverableRevisionRequested,
				Payload: map[string]any{"versionLabel": "v1", "reason": "bigger font"},
			},
			wantSubject: "Changes requested: Logo",
			wantBody:    "Changes were requested on Logo v1. Reason: bigger font",
		},
		{
			name:     "uploads are not announced",
			activity: &model.Activity{Type: types.ActivityVersionUploaded},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			subject, body := usecase.ResolutionMessage(d, tc.activity)
			gt.Value(t, subject).Equal(tc.wantSubject)
			gt.Value(t, body).Equal(tc.wantBody)
		})
	}
}
