package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/nexaflow/nexaflow/pkg/domain/interfaces"
	"github.com/nexaflow/nexaflow/pkg/domain/model"
	"github.com/nexaflow/nexaflow/pkg/domain/types"
)

func runProjectRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("Create assigns ID and Get returns it", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.Project().Create(ctx, &model.Project{
			Name:      "Website relaunch",
			ClientID:  "client-1",
			ManagerID: "pm-1",
			MemberIDs: []string{"member-1", "member-2"},
		})
		gt.NoError(t, err).Required()
		gt.Value(t, created.ID).NotEqual("")
		gt.Bool(t, created.CreatedAt.IsZero()).False()

		got, err := repo.Project().Get(ctx, created.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Name).Equal("Website relaunch")
		gt.Array(t, got.MemberIDs).Length(2)
	})

	t.Run("Update keeps creation time", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.Project().Create(ctx, &model.Project{
			Name:      "A",
			ManagerID: "pm-1",
			CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
		})
		gt.NoError(t, err).Required()

		created.Name = "B"
		updated, err := repo.Project().Update(ctx, created)
		gt.NoError(t, err).Required()
		gt.Value(t, updated.Name).Equal("B")
		gt.Bool(t, updated.CreatedAt.Equal(created.CreatedAt)).True()

		_, err = repo.Project().Update(ctx, &model.Project{ID: "missing"})
		gt.Error(t, err).Is(interfaces.ErrNotFound)
	})

	t.Run("List", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		for _, name := range []string{"one", "two"} {
			_, err := repo.Project().Create(ctx, &model.Project{Name: name})
			gt.NoError(t, err).Required()
		}
		projects, err := repo.Project().List(ctx)
		gt.NoError(t, err).Required()
		gt.Array(t, projects).Length(2)
	})

	t.Run("Get returns ErrNotFound", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Project().Get(context.Background(), "missing")
		gt.Error(t, err).Is(interfaces.ErrNotFound)
	})
}

func runProfileRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("Put and GetByPhone with different formatting", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		gt.NoError(t, repo.Profile().Put(ctx, &model.Profile{
			ID:            "client-1",
			Name:          "Dana Client",
			Phone:         "+1 (555) 010-2000",
			Role:          types.RoleClient,
			NotifyChannel: types.NotificationChannelWhatsApp,
		})).Required()

		got, err := repo.Profile().GetByPhone(ctx, "+15550102000")
		gt.NoError(t, err).Required()
		gt.Value(t, got.ID).Equal("client-1")
		gt.Value(t, got.Role).Equal(types.RoleClient)

		_, err = repo.Profile().GetByPhone(ctx, "+15550109999")
		gt.Error(t, err).Is(interfaces.ErrNotFound)
	})

	t.Run("Put is an upsert", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		gt.NoError(t, repo.Profile().Put(ctx, &model.Profile{ID: "pm-1", Name: "Old", Role: types.RoleProjectManager})).Required()
		gt.NoError(t, repo.Profile().Put(ctx, &model.Profile{ID: "pm-1", Name: "New", Role: types.RoleProjectManager})).Required()

		got, err := repo.Profile().Get(ctx, "pm-1")
		gt.NoError(t, err).Required()
		gt.Value(t, got.Name).Equal("New")

		profiles, err := repo.Profile().List(ctx)
		gt.NoError(t, err).Required()
		gt.Array(t, profiles).Length(1)
	})

	t.Run("Put requires ID", func(t *testing.T) {
		repo := newRepo(t)
		gt.Value(t, repo.Profile().Put(context.Background(), &model.Profile{Name: "x"})).NotNil()
	})
}

func TestProjectRepository(t *testing.T) {
	runOnBackends(t, runProjectRepositoryTest)
}

func TestProfileRepository(t *testing.T) {
	runOnBackends(t, runProfileRepositoryTest)
}
