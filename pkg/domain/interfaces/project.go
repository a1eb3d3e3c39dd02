package interfaces

import (
	"context"

	"github.com/nexaflow/nexaflow/pkg/domain/model"
)

// ProjectRepository defines the interface for Project data access
type ProjectRepository interface {
	// Create stores a new project, assigning an ID if empty
	Create(ctx context.Context, p *model.Project) (*model.Project, error)

	// Get retrieves a project by ID
	Get(ctx context.Context, id string) (*model.Project, error)

	// List retrieves all projects
	List(ctx context.Context) ([]*model.Project, error)

	// Update replaces an existing project
	Update(ctx context.Context, p *model.Project) (*model.Project, error)
}

// ProfileRepository defines the interface for user profiles
type ProfileRepository interface {
	// Put saves a profile (upsert)
	Put(ctx context.Context, p *model.Profile) error

	// Get retrieves a profile by ID
	Get(ctx context.Context, id string) (*model.Profile, error)

	// GetByPhone retrieves the profile registered with phone, compared in normalized form
	GetByPhone(ctx context.Context, phone string) (*model.Profile, error)

	// List retrieves all profiles
	List(ctx context.Context) ([]*model.Profile, error)
}
