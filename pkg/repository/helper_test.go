package repository_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/gt"
	"github.com/nexaflow/nexaflow/pkg/domain/interfaces"
	"github.com/nexaflow/nexaflow/pkg/domain/model"
	"github.com/nexaflow/nexaflow/pkg/domain/types"
	"github.com/nexaflow/nexaflow/pkg/repository/firestore"
	"github.com/nexaflow/nexaflow/pkg/repository/memory"
)

// runOnBackends runs fn against the memory backend and, when FIRESTORE_PROJECT_ID
// is set, against Firestore with an isolated collection prefix.
func runOnBackends(t *testing.T, fn func(t *testing.T, newRepo func(t *testing.T) interfaces.Repository)) {
	t.Run("Memory", func(t *testing.T) {
		fn(t, func(t *testing.T) interfaces.Repository {
			return memory.New()
		})
	})

	t.Run("Firestore", func(t *testing.T) {
		projectID := os.Getenv("FIRESTORE_PROJECT_ID")
		if projectID == "" {
			t.Skip("FIRESTORE_PROJECT_ID not set")
		}

		fn(t, func(t *testing.T) interfaces.Repository {
			prefix := fmt.Sprintf("test_%d", time.Now().UnixNano())
			repo, err := firestore.New(context.Background(), projectID,
				firestore.WithDatabaseID(os.Getenv("FIRESTORE_DATABASE_ID")),
				firestore.WithCollectionPrefix(prefix),
			)
			gt.NoError(t, err).Required()
			t.Cleanup(func() { _ = repo.Close() })
			return repo
		})
	})
}

func newDeliverable(projectID string) *model.Deliverable {
	id := uuid.NewString()
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &model.Deliverable{
		ID:             id,
		ProjectID:      projectID,
		Title:          "Brand guidelines",
		RequiresReview: true,
		Status:         types.DeliverableStatusDraft,
		ApprovalToken:  model.NewApprovalToken(id),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
