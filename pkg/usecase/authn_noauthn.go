package usecase

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/nexaflow/nexaflow/pkg/domain/interfaces"
	"github.com/nexaflow/nexaflow/pkg/domain/model/auth"
)

// NoAuthnUseCase authenticates every request as a fixed profile (for development/testing)
type NoAuthnUseCase struct {
	repo      interfaces.Repository
	profileID string
}

// NewNoAuthnUseCase creates a new NoAuthnUseCase acting as profileID
func NewNoAuthnUseCase(repo interfaces.Repository, profileID string) *NoAuthnUseCase {
	return &NoAuthnUseCase{
		repo:      repo,
		profileID: profileID,
	}
}

// Authenticate ignores the token and returns the session of the configured profile
func (uc *NoAuthnUseCase) Authenticate(ctx context.Context, _ string) (*auth.Session, error) {
	profile, err := uc.repo.Profile().Get(ctx, uc.profileID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, goerr.Wrap(ErrUnauthenticated, "no-auth profile does not exist",
				goerr.V(ProfileIDKey, uc.profileID))
		}
		return nil, backendError(err, "failed to load no-auth profile", goerr.V(ProfileIDKey, uc.profileID))
	}

	session := auth.FromProfile(profile)
	if err := session.Validate(); err != nil {
		return nil, goerr.Wrap(ErrUnauthenticated, "no-auth profile is not a valid user",
			goerr.V(ProfileIDKey, uc.profileID), goerr.V("cause", err.Error()))
	}
	return session, nil
}

// IsNoAuthn returns true for NoAuthnUseCase
func (uc *NoAuthnUseCase) IsNoAuthn() bool {
	return true
}
