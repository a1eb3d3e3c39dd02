package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/m-mizutani/gt"
	"github.com/nexaflow/nexaflow/pkg/domain/model"
	"github.com/nexaflow/nexaflow/pkg/domain/types"
	"github.com/nexaflow/nexaflow/pkg/repository/memory"
	"github.com/nexaflow/nexaflow/pkg/usecase"
)

var testSecret = []byte("access-token-secret-for-tests")

func signAccessToken(t *testing.T, secret []byte, build func(b *jwt.Builder) *jwt.Builder) string {
	t.Helper()
	now := time.Now()
	b := jwt.NewBuilder().
		Issuer("https://auth.nexaflow.example").
		Audience([]string{"authenticated"}).
		IssuedAt(now).
		Expiration(now.Add(time.Hour))
	token, err := build(b).Build()
	gt.NoError(t, err).Required()

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, secret))
	gt.NoError(t, err).Required()
	return string(signed)
}

func TestAuthUseCase_Authenticate(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	gt.NoError(t, repo.Profile().Put(ctx, &model.Profile{
		ID: "pm-1", Name: "Pat Manager", Email: "pm@example.com", Role: types.RoleProjectManager,
	})).Required()

	uc := usecase.NewAuthUseCase(repo, testSecret,
		usecase.WithIssuer("https://auth.nexaflow.example"),
		usecase.WithAudience("authenticated"),
	)
	gt.Bool(t, uc.IsNoAuthn()).False()

	t.Run("stored profile decides the role", func(t *testing.T) {
		token := signAccessToken(t, testSecret, func(b *jwt.Builder) *jwt.Builder {
			return b.Subject("pm-1").Claim("role", "admin")
		})

		session, err := uc.Authenticate(ctx, token)
		gt.NoError(t, err).Required()
		gt.Value(t, session.UserID).Equal("pm-1")
		gt.Value(t, session.Role).Equal(types.RoleProjectManager)
		gt.Value(t, session.Email).Equal("pm@example.com")
		gt.Value(t, session.Name).Equal("Pat Manager")

		cached, err := uc.Authenticate(ctx, token)
		gt.NoError(t, err).Required()
		gt.Value(t, cached).Equal(session)
	})

	t.Run("role claim is used for users without profile", func(t *testing.T) {
		token := signAccessToken(t, testSecret, func(b *jwt.Builder) *jwt.Builder {
			return b.Subject("client-7").Claim("role", "client").Claim("email", "c7@example.com")
		})

		session, err := uc.Authenticate(ctx, token)
		gt.NoError(t, err).Required()
		gt.Value(t, session.Role).Equal(types.RoleClient)
		gt.Value(t, session.Email).Equal("c7@example.com")
	})

	t.Run("users without profile or role are refused", func(t *testing.T) {
		token := signAccessToken(t, testSecret, func(b *jwt.Builder) *jwt.Builder {
			return b.Subject("anon-1")
		})
		_, err := uc.Authenticate(ctx, token)
		gt.Error(t, err).Is(usecase.ErrUnauthenticated)
	})

	t.Run("wrong signature", func(t *testing.T) {
		token := signAccessToken(t, []byte("another-secret"), func(b *jwt.Builder) *jwt.Builder {
			return b.Subject("pm-1")
		})
		_, err := uc.Authenticate(ctx, token)
		gt.Error(t, err).Is(usecase.ErrUnauthenticated)
	})

	t.Run("expired token", func(t *testing.T) {
		token := signAccessToken(t, testSecret, func(b *jwt.Builder) *jwt.Builder {
			return b.Subject("pm-1").Expiration(time.Now().Add(-time.Hour))
		})
		_, err := uc.Authenticate(ctx, token)
		gt.Error(t, err).Is(usecase.ErrUnauthenticated)
	})

	t.Run("wrong audience", func(t *testing.T) {
		token := signAccessToken(t, testSecret, func(b *jwt.Builder) *jwt.Builder {
			return b.Subject("pm-1").Audience([]string{"other-app"})
		})
		_, err := uc.Authenticate(ctx, token)
		gt.Error(t, err).Is(usecase.ErrUnauthenticated)
	})

	t.Run("missing subject", func(t *testing.T) {
		token := signAccessToken(t, testSecret, func(b *jwt.Builder) *jwt.Builder {
			return b.Claim("role", "admin")
		})
		_, err := uc.Authenticate(ctx, token)
		gt.Error(t, err).Is(usecase.ErrUnauthenticated)
	})

	t.Run("missing token", func(t *testing.T) {
		_, err := uc.Authenticate(ctx, "")
		gt.Error(t, err).Is(usecase.ErrUnauthenticated)
	})
}
