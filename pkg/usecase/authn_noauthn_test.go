package usecase_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/nexaflow/nexaflow/pkg/domain/model"
	"github.com/nexaflow/nexaflow/pkg/domain/types"
	"github.com/nexaflow/nexaflow/pkg/repository/memory"
	"github.com/nexaflow/nexaflow/pkg/usecase"
)

func TestNoAuthnUseCase(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	gt.NoError(t, repo.Profile().Put(ctx, &model.Profile{
		ID: "dev-admin", Name: "Dev Admin", Email: "dev@example.com", Role: types.RoleAdmin,
	})).Required()

	t.Run("Authenticate returns the configured profile", func(t *testing.T) {
		uc := usecase.NewNoAuthnUseCase(repo, "dev-admin")
		session, err := uc.Authenticate(ctx, "")
		gt.NoError(t, err).Required()

		gt.Value(t, session.UserID).Equal("dev-admin")
		gt.Value(t, session.Email).Equal("dev@example.com")
		gt.Value(t, session.Role).Equal(types.RoleAdmin)
	})

	t.Run("IsNoAuthn returns true", func(t *testing.T) {
		gt.Bool(t, usecase.NewNoAuthnUseCase(repo, "dev-admin").IsNoAuthn()).True()
	})

	t.Run("missing profile is unauthenticated", func(t *testing.T) {
		_, err := usecase.NewNoAuthnUseCase(repo, "nobody").Authenticate(ctx, "token")
		gt.Error(t, err).Is(usecase.ErrUnauthenticated)
	})
}

func TestNoAuthnUseCaseImplementsInterface(t *testing.T) {
	repo := memory.New()
	uc := usecase.NewNoAuthnUseCase(repo, "dev-admin")

	// This test verifies that NoAuthnUseCase implements AuthUseCaseInterface
	// If it doesn't compile, the interface is not satisfied
	var _ usecase.AuthUseCaseInterface = uc
	var _ usecase.AuthUseCaseInterface = usecase.NewAuthUseCase(repo, []byte("secret"))
}
