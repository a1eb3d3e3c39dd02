package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/m-mizutani/goerr/v2"
	"github.com/nexaflow/nexaflow/pkg/domain/interfaces"
	"github.com/nexaflow/nexaflow/pkg/domain/model/auth"
	"github.com/nexaflow/nexaflow/pkg/domain/types"
)

// AuthUseCaseInterface turns the bearer token of a request into a session
type AuthUseCaseInterface interface {
	Authenticate(ctx context.Context, bearerToken string) (*auth.Session, error)
	IsNoAuthn() bool
}

// AuthUseCase verifies HS256 access tokens issued by the hosted auth provider.
// The stored profile is authoritative for the role; the role claim is used only
// for users without a profile.
type AuthUseCase struct {
	repo     interfaces.Repository
	secret   []byte
	issuer   string
	audience string
	cache    *authCache
}

// AuthOption is a functional option for AuthUseCase
type AuthOption func(*AuthUseCase)

// WithIssuer requires the iss claim to equal issuer
func WithIssuer(issuer string) AuthOption {
	return func(uc *AuthUseCase) {
		uc.issuer = issuer
	}
}

// WithAudience requires the aud claim to contain audience
func WithAudience(audience string) AuthOption {
	return func(uc *AuthUseCase) {
		uc.audience = audience
	}
}

func NewAuthUseCase(repo interfaces.Repository, secret []byte, options ...AuthOption) *AuthUseCase {
	uc := &AuthUseCase{
		repo:   repo,
		secret: secret,
		cache:  newAuthCache(),
	}

	for _, opt := range options {
		opt(uc)
	}

	return uc
}

// IsNoAuthn returns false for AuthUseCase
func (uc *AuthUseCase) IsNoAuthn() bool {
	return false
}

// Authenticate verifies the token and resolves the session
func (uc *AuthUseCase) Authenticate(ctx context.Context, bearerToken string) (*auth.Session, error) {
	if bearerToken == "" {
		return nil, goerr.Wrap(ErrUnauthenticated, "bearer token is missing")
	}

	if session, ok := uc.cache.get(bearerToken); ok {
		return session, nil
	}

	opts := []jwt.ParseOption{
		jwt.WithKey(jwa.HS256, uc.secret),
		jwt.WithValidate(true),
		jwt.WithAcceptableSkew(10 * time.Second),
	}
	if uc.issuer != "" {
		opts = append(opts, jwt.WithIssuer(uc.issuer))
	}
	if uc.audience != "" {
		opts = append(opts, jwt.WithAudience(uc.audience))
	}

	token, err := jwt.Parse([]byte(bearerToken), opts...)
	if err != nil {
		return nil, goerr.Wrap(ErrUnauthenticated, "failed to verify access token", goerr.V("cause", err.Error()))
	}

	sub := token.Subject()
	if sub == "" {
		return nil, goerr.Wrap(ErrUnauthenticated, "sub claim not found in token")
	}

	email := stringClaim(token, "email")
	name := stringClaim(token, "name")
	role := types.Role(stringClaim(token, "role"))

	profile, err := uc.repo.Profile().Get(ctx, sub)
	switch {
	case err == nil:
		role = profile.Role
		if name == "" {
			name = profile.Name
		}
		if email == "" {
			email = profile.Email
		}
	case errors.Is(err, interfaces.ErrNotFound):
	default:
		return nil, backendError(err, "failed to load profile", goerr.V(UserIDKey, sub))
	}

	session, err := auth.NewSession(sub, email, name, role)
	if err != nil {
		return nil, goerr.Wrap(ErrUnauthenticated, "token does not describe a valid user",
			goerr.V(UserIDKey, sub), goerr.V("cause", err.Error()))
	}

	expiresAt := token.Expiration()
	uc.cache.set(bearerToken, session, expiresAt)
	return session, nil
}

func stringClaim(token jwt.Token, name string) string {
	v, ok := token.Get(name)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
