package repository_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/gt"
	"github.com/nexaflow/nexaflow/pkg/domain/interfaces"
	"github.com/nexaflow/nexaflow/pkg/domain/model"
	"github.com/nexaflow/nexaflow/pkg/domain/types"
)

func runDeliverableRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("Create stores deliverable and activity", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		d := newDeliverable("project-1")
		created, err := repo.Deliverable().Create(ctx, d, &model.Activity{
			ProjectID:     d.ProjectID,
			DeliverableID: d.ID,
			ActorID:       "pm-1",
			Type:          types.ActivityDeliverableCreated,
		})
		gt.NoError(t, err).Required()
		gt.Value(t, created.Revision).Equal(int64(1))

		got, err := repo.Deliverable().Get(ctx, d.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Title).Equal(d.Title)
		gt.Value(t, got.ApprovalToken).Equal(d.ApprovalToken)

		activities, err := repo.Activity().ListByDeliverable(ctx, d.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, activities).Length(1)
		gt.Value(t, activities[0].Type).Equal(types.ActivityDeliverableCreated)
	})

	t.Run("Create rejects a taken approval token", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		first := newDeliverable("project-1")
		_, err := repo.Deliverable().Create(ctx, first, nil)
		gt.NoError(t, err).Required()

		// Same trailing six characters, different id
		second := newDeliverable("project-1")
		second.ID = uuid.NewString()[:30] + first.ID[30:]
		second.ApprovalToken = model.NewApprovalToken(second.ID)
		gt.Value(t, second.ApprovalToken).Equal(first.ApprovalToken)

		_, err = repo.Deliverable().Create(ctx, second, nil)
		gt.Error(t, err).Is(interfaces.ErrConflict)
	})

	t.Run("Get returns ErrNotFound", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Deliverable().Get(context.Background(), uuid.NewString())
		gt.Error(t, err).Is(interfaces.ErrNotFound)
	})

	t.Run("GetByToken", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		d := newDeliverable("project-1")
		_, err := repo.Deliverable().Create(ctx, d, nil)
		gt.NoError(t, err).Required()

		got, err := repo.Deliverable().GetByToken(ctx, d.ApprovalToken)
		gt.NoError(t, err).Required()
		gt.Value(t, got.ID).Equal(d.ID)

		_, err = repo.Deliverable().GetByToken(ctx, "APP-ZZZZZZ")
		gt.Error(t, err).Is(interfaces.ErrNotFound)
	})

	t.Run("ListByProject", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		for i := range 3 {
			d := newDeliverable("project-list")
			d.CreatedAt = d.CreatedAt.Add(time.Duration(i) * time.Second)
			_, err := repo.Deliverable().Create(ctx, d, nil)
			gt.NoError(t, err).Required()
		}
		_, err := repo.Deliverable().Create(ctx, newDeliverable("other"), nil)
		gt.NoError(t, err).Required()

		list, err := repo.Deliverable().ListByProject(ctx, "project-list")
		gt.NoError(t, err).Required()
		gt.Array(t, list).Length(3)
		gt.Bool(t, list[0].CreatedAt.Before(list[2].CreatedAt)).True()
	})

	t.Run("Commit is a compare-and-swap on revision", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		d := newDeliverable("project-1")
		created, err := repo.Deliverable().Create(ctx, d, nil)
		gt.NoError(t, err).Required()

		next := created.Clone()
		next.Title = "Brand guidelines v2"
		committed, err := repo.Deliverable().Commit(ctx, next, created.Revision, &model.Activity{
			ProjectID:     d.ProjectID,
			DeliverableID: d.ID,
			Type:          types.ActivityDeliverableStatusChanged,
		})
		gt.NoError(t, err).Required()
		gt.Value(t, committed.Revision).Equal(created.Revision + 1)

		// Writer holding the old revision loses
		stale := created.Clone()
		stale.Title = "lost update"
		_, err = repo.Deliverable().Commit(ctx, stale, created.Revision, &model.Activity{
			ProjectID:     d.ProjectID,
			DeliverableID: d.ID,
			Type:          types.ActivityDeliverableStatusChanged,
		})
		gt.Error(t, err).Is(interfaces.ErrConflict)

		got, err := repo.Deliverable().Get(ctx, d.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Title).Equal("Brand guidelines v2")

		activities, err := repo.Activity().ListByDeliverable(ctx, d.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, activities).Length(1)
	})

	t.Run("Commit on unknown deliverable", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Deliverable().Commit(context.Background(), newDeliverable("p"), 1, nil)
		gt.Error(t, err).Is(interfaces.ErrNotFound)
	})

	t.Run("concurrent commits have a single winner", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.Deliverable().Create(ctx, newDeliverable("project-1"), nil)
		gt.NoError(t, err).Required()

		const writers = 8
		var wg sync.WaitGroup
		var mu sync.Mutex
		wins, conflicts := 0, 0
		for i := range writers {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				next := created.Clone()
				next.AssigneeID = uuid.NewString()
				_, err := repo.Deliverable().Commit(ctx, next, created.Revision, nil)

				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					wins++
				case errors.Is(err, interfaces.ErrConflict):
					conflicts++
				default:
					t.Errorf("writer %d: unexpected error %v", i, err)
				}
			}(i)
		}
		wg.Wait()

		gt.Value(t, wins).Equal(1)
		gt.Value(t, conflicts).Equal(writers - 1)
	})
}

func TestDeliverableRepository(t *testing.T) {
	runOnBackends(t, runDeliverableRepositoryTest)
}
