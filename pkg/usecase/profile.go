package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/nexaflow/nexaflow/pkg/domain/interfaces"
	"github.com/nexaflow/nexaflow/pkg/domain/model"
	"github.com/nexaflow/nexaflow/pkg/domain/model/auth"
	"github.com/nexaflow/nexaflow/pkg/domain/types"
)

// PutProfile creates or replaces a profile. Users may edit their own contact
// details; only admins may create profiles or change roles.
func (uc *ProjectUseCase) PutProfile(ctx context.Context, session *auth.Session, profile *model.Profile) (*model.Profile, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	if profile == nil || strings.TrimSpace(profile.ID) == "" {
		return nil, goerr.Wrap(ErrValidation, "profile id is required")
	}
	if !profile.Role.IsValid() {
		return nil, goerr.Wrap(ErrValidation, "unknown role", goerr.V("role", profile.Role))
	}
	if profile.NotifyChannel != "" && !profile.NotifyChannel.IsValid() {
		return nil, goerr.Wrap(ErrValidation, "unknown notification channel", goerr.V("channel", profile.NotifyChannel))
	}

	existing, err := uc.repo.Profile().Get(ctx, profile.ID)
	if err != nil && !errors.Is(err, interfaces.ErrNotFound) {
		return nil, backendError(err, "failed to load profile", goerr.V(ProfileIDKey, profile.ID))
	}

	if !session.IsAdmin() {
		if existing == nil || session.UserID != profile.ID || existing.Role != profile.Role {
			return nil, goerr.Wrap(ErrAccessDenied, "not allowed to change profile",
				goerr.V(ProfileIDKey, profile.ID), goerr.V(UserIDKey, session.UserID))
		}
	}

	now := uc.clock()
	saved := *profile
	saved.Phone = model.NormalizePhone(saved.Phone)
	saved.UpdatedAt = now
	if existing != nil {
		saved.CreatedAt = existing.CreatedAt
	} else {
		saved.CreatedAt = now
	}

	if err := uc.repo.Profile().Put(ctx, &saved); err != nil {
		return nil, backendError(err, "failed to save profile", goerr.V(ProfileIDKey, profile.ID))
	}
	return &saved, nil
}

// GetProfile returns a profile. Anyone signed in may look up names and roles.
func (uc *ProjectUseCase) GetProfile(ctx context.Context, session *auth.Session, id string) (*model.Profile, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	return loadProfile(ctx, uc.repo, id)
}

// ListProfiles returns every profile. Restricted to admins and project managers.
func (uc *ProjectUseCase) ListProfiles(ctx context.Context, session *auth.Session) ([]*model.Profile, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	if !session.IsAdmin() && session.Role != types.RoleProjectManager {
		return nil, goerr.Wrap(ErrAccessDenied, "not allowed to list profiles", goerr.V(UserIDKey, session.UserID))
	}
	profiles, err := uc.repo.Profile().List(ctx)
	if err != nil {
		return nil, backendError(err, "failed to list profiles")
	}
	return profiles, nil
}

func loadProfile(ctx context.Context, repo interfaces.Repository, id string) (*model.Profile, error) {
	profile, err := repo.Profile().Get(ctx, id)
	if err != nil {
		return nil, notFoundOrBackend(err, ErrProfileNotFound, "profile", goerr.V(ProfileIDKey, id))
	}
	return profile, nil
}

// SeedProfiles stores each of profiles whose ID is not taken yet and returns how
// many were added
func (uc *ProjectUseCase) SeedProfiles(ctx context.Context, profiles []*model.Profile) (int, error) {
	added := 0
	for _, p := range profiles {
		_, err := uc.repo.Profile().Get(ctx, p.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, interfaces.ErrNotFound) {
			return added, backendError(err, "failed to load profile", goerr.V(ProfileIDKey, p.ID))
		}
		if _, err := uc.PutProfile(ctx, auth.System(), p); err != nil {
			return added, goerr.Wrap(err, "failed to seed profile", goerr.V(ProfileIDKey, p.ID))
		}
		added++
	}
	return added, nil
}
