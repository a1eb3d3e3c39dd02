package usecase

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/nexaflow/nexaflow/pkg/domain/interfaces"
	"github.com/nexaflow/nexaflow/pkg/domain/model"
	"github.com/nexaflow/nexaflow/pkg/domain/model/auth"
	"github.com/nexaflow/nexaflow/pkg/domain/types"
)

type ProjectUseCase struct {
	repo  interfaces.Repository
	clock func() time.Time
}

func NewProjectUseCase(repo interfaces.Repository, clock func() time.Time) *ProjectUseCase {
	return &ProjectUseCase{repo: repo, clock: clock}
}

// ProjectInput holds the fields of a new project
type ProjectInput struct {
	Name        string
	Description string
	ClientID    string
	ManagerID   string
	MemberIDs   []string
}

// CreateProject opens a project. A project manager creating a project manages it.
func (uc *ProjectUseCase) CreateProject(ctx context.Context, session *auth.Session, input ProjectInput) (*model.Project, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	if !session.CanCreateProject() {
		return nil, goerr.Wrap(ErrAccessDenied, "not allowed to create projects", goerr.V(UserIDKey, session.UserID))
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, goerr.Wrap(ErrValidation, "project name is required")
	}

	managerID := input.ManagerID
	if session.Role == types.RoleProjectManager {
		managerID = session.UserID
	}

	now := uc.clock()
	project := &model.Project{
		ID:          uuid.NewString(),
		Name:        name,
		Description: input.Description,
		ClientID:    input.ClientID,
		ManagerID:   managerID,
		MemberIDs:   uniqueStrings(input.MemberIDs),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	created, err := uc.repo.Project().Create(ctx, project)
	if err != nil {
		return nil, backendError(err, "failed to create project")
	}
	return created, nil
}

// GetProject returns a project the session may view
func (uc *ProjectUseCase) GetProject(ctx context.Context, session *auth.Session, id string) (*model.Project, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	project, err := loadProject(ctx, uc.repo, id)
	if err != nil {
		return nil, err
	}
	if !session.CanViewProject(project) {
		return nil, goerr.Wrap(ErrAccessDenied, "not allowed to view project",
			goerr.V(ProjectIDKey, id), goerr.V(UserIDKey, session.UserID))
	}
	return project, nil
}

// ListProjects returns the projects visible to the session
func (uc *ProjectUseCase) ListProjects(ctx context.Context, session *auth.Session) ([]*model.Project, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	projects, err := uc.repo.Project().List(ctx)
	if err != nil {
		return nil, backendError(err, "failed to list projects")
	}
	return slices.DeleteFunc(projects, func(p *model.Project) bool {
		return !session.CanViewProject(p)
	}), nil
}

// AddMember puts a team member on the project
func (uc *ProjectUseCase) AddMember(ctx context.Context, session *auth.Session, projectID, userID string) (*model.Project, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	project, err := loadProject(ctx, uc.repo, projectID)
	if err != nil {
		return nil, err
	}
	if !session.CanManageProject(project) {
		return nil, goerr.Wrap(ErrAccessDenied, "not allowed to manage project",
			goerr.V(ProjectIDKey, projectID), goerr.V(UserIDKey, session.UserID))
	}
	if userID == "" {
		return nil, goerr.Wrap(ErrValidation, "member id is required")
	}
	if project.HasMember(userID) {
		return project, nil
	}

	project.MemberIDs = append(project.MemberIDs, userID)
	project.UpdatedAt = uc.clock()
	updated, err := uc.repo.Project().Update(ctx, project)
	if err != nil {
		return nil, backendError(err, "failed to update project", goerr.V(ProjectIDKey, projectID))
	}
	return updated, nil
}

func requireSession(session *auth.Session) error {
	if err := session.Validate(); err != nil {
		return goerr.Wrap(ErrUnauthenticated, "a valid session is required", goerr.V("cause", err.Error()))
	}
	return nil
}

func loadProject(ctx context.Context, repo interfaces.Repository, id string) (*model.Project, error) {
	project, err := repo.Project().Get(ctx, id)
	if err != nil {
		return nil, notFoundOrBackend(err, ErrProjectNotFound, "project", goerr.V(ProjectIDKey, id))
	}
	return project, nil
}

// uniqueStrings removes duplicate and empty strings while preserving order
func uniqueStrings(s []string) []string {
	seen := make(map[string]struct{}, len(s))
	result := make([]string, 0, len(s))
	for _, v := range s {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			result = append(result, v)
		}
	}
	return result
}
