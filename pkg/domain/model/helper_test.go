package model_test

import (
	"time"

	"github.com/google/uuid"
	"github.com/nexaflow/nexaflow/pkg/domain/model"
	"github.com/nexaflow/nexaflow/pkg/domain/types"
)

var baseTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newDeliverable(requiresReview bool) *model.Deliverable {
	id := uuid.NewString()
	return &model.Deliverable{
		ID:             id,
		ProjectID:      "project-1",
		Title:          "Homepage hero banner",
		RequiresReview: requiresReview,
		Status:         types.DeliverableStatusDraft,
		ApprovalToken:  model.NewApprovalToken(id),
		CreatedAt:      baseTime,
		UpdatedAt:      baseTime,
	}
}

func newVersion(name string) model.Version {
	return model.Version{
		ID: uuid.NewString(),
		File: model.FileRef{
			URL:         "https://storage.example.com/" + name,
			Name:        name,
			Size:        2048,
			ContentType: "image/png",
		},
		UploaderID: "member-1",
	}
}

func signer(id string, method types.SignerMethod) model.Signer {
	return model.Signer{SignerID: id, Method: method}
}
