package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/nexaflow/nexaflow/pkg/domain/model"
)

type profileRepository struct {
	mu       sync.RWMutex
	profiles map[string]*model.Profile
}

func newProfileRepository() *profileRepository {
	return &profileRepository{
		profiles: make(map[string]*model.Profile),
	}
}

func copyProfile(p *model.Profile) *model.Profile {
	c := *p
	return &c
}

func (r *profileRepository) Put(ctx context.Context, p *model.Profile) error {
	if p.ID == "" {
		return goerr.New("profile id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := copyProfile(p)
	now := time.Now().UTC()
	if existing, ok := r.profiles[p.ID]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now

	r.profiles[stored.ID] = stored
	return nil
}

func (r *profileRepository) Get(ctx context.Context, id string) (*model.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[id]
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "profile not found", goerr.V("id", id))
	}
	return copyProfile(p), nil
}

func (r *profileRepository) GetByPhone(ctx context.Context, phone string) (*model.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	want := model.NormalizePhone(phone)
	if want != "" {
		for _, p := range r.profiles {
			if model.NormalizePhone(p.Phone) == want {
				return copyProfile(p), nil
			}
		}
	}
	return nil, goerr.Wrap(ErrNotFound, "profile not found", goerr.V("phone", phone))
}

func (r *profileRepository) List(ctx context.Context) ([]*model.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	profiles := make([]*model.Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		profiles = append(profiles, copyProfile(p))
	}
	slices.SortFunc(profiles, func(a, b *model.Profile) int {
		return strings.Compare(a.ID, b.ID)
	})
	return profiles, nil
}
