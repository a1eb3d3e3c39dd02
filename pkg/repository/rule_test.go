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

func runRuleRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("Create and Get keep typed actions", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		rule := model.DefaultReviewRule()
		rule.Actions = append(rule.Actions, model.NewSendNotificationAction(model.SendNotificationParams{
			Recipient: model.RecipientClient,
			Channel:   types.NotificationChannelEmail,
			Message:   "{title} is ready for review",
		}))

		created, err := repo.Rule().Create(ctx, rule)
		gt.NoError(t, err).Required()
		gt.Value(t, created.ID).NotEqual("")

		got, err := repo.Rule().Get(ctx, created.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Trigger).Equal(types.EventFileUpload)
		gt.Array(t, got.Actions).Length(2)
		gt.Value(t, got.Actions[0].UpdateStatus.Status).Equal(types.DeliverableStatusReview)
		gt.Value(t, got.Actions[0].SendNotification).Nil()
		gt.Value(t, got.Actions[1].SendNotification.Channel).Equal(types.NotificationChannelEmail)
		gt.NoError(t, got.Validate())
	})

	t.Run("List is ordered by creation time", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		base := time.Now().UTC().Truncate(time.Millisecond)
		for i, name := range []string{"third", "first", "second"} {
			offset := map[int]time.Duration{0: 2 * time.Minute, 1: 0, 2: time.Minute}[i]
			r := model.DefaultReviewRule()
			r.Name = name
			r.CreatedAt = base.Add(offset)
			_, err := repo.Rule().Create(ctx, r)
			gt.NoError(t, err).Required()
		}

		rules, err := repo.Rule().List(ctx)
		gt.NoError(t, err).Required()
		gt.Array(t, rules).Length(3)
		gt.Value(t, rules[0].Name).Equal("first")
		gt.Value(t, rules[1].Name).Equal("second")
		gt.Value(t, rules[2].Name).Equal("third")
	})

	t.Run("Update and Delete", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.Rule().Create(ctx, model.DefaultReviewRule())
		gt.NoError(t, err).Required()

		created.Active = false
		updated, err := repo.Rule().Update(ctx, created)
		gt.NoError(t, err).Required()
		gt.Bool(t, updated.Active).False()

		gt.NoError(t, repo.Rule().Delete(ctx, created.ID)).Required()
		_, err = repo.Rule().Get(ctx, created.ID)
		gt.Error(t, err).Is(interfaces.ErrNotFound)

		gt.Error(t, repo.Rule().Delete(ctx, created.ID)).Is(interfaces.ErrNotFound)
		_, err = repo.Rule().Update(ctx, created)
		gt.Error(t, err).Is(interfaces.ErrNotFound)
	})
}

func TestRuleRepository(t *testing.T) {
	runOnBackends(t, runRuleRepositoryTest)
}
