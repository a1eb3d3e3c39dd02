package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/nexaflow/nexaflow/pkg/domain/model"
	"github.com/nexaflow/nexaflow/pkg/domain/types"
	"github.com/nexaflow/nexaflow/pkg/usecase"
)

const defaultListLimit = 50

type projectRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	ClientID    string   `json:"clientId"`
	ManagerID   string   `json:"managerId"`
	MemberIDs   []string `json:"memberIds"`
}

type memberRequest struct {
	UserID string `json:"userId"`
}

type profileRequest struct {
	Name          string                    `json:"name"`
	Email         string                    `json:"email"`
	Phone         string                    `json:"phone"`
	Role          types.Role                `json:"role"`
	NotifyChannel types.NotificationChannel `json:"notifyChannel"`
}

func (s *Server) getMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session := sessionFrom(ctx)

	resp := struct {
		sessionResponse
		Profile *profileResponse `json:"profile,omitempty"`
	}{sessionResponse: toSession(session)}

	// Users without a stored profile still get their session
	if p, err := s.uc.Project.GetProfile(ctx, session, session.UserID); err == nil {
		pr := toProfile(p)
		resp.Profile = &pr
	}
	writeJSON(ctx, w, http.StatusOK, resp)
}

func (s *Server) listProfiles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profiles, err := s.uc.Project.ListProfiles(ctx, sessionFrom(ctx))
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, mapSlice(profiles, toProfile))
}

func (s *Server) putProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req profileRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(ctx, w, err)
		return
	}

	p, err := s.uc.Project.PutProfile(ctx, sessionFrom(ctx), &model.Profile{
		ID:            chi.URLParam(r, "profileID"),
		Name:          req.Name,
		Email:         req.Email,
		Phone:         req.Phone,
		Role:          req.Role,
		NotifyChannel: req.NotifyChannel,
	})
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, toProfile(p))
}

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projects, err := s.uc.Project.ListProjects(ctx, sessionFrom(ctx))
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, mapSlice(projects, toProject))
}

func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req projectRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(ctx, w, err)
		return
	}

	p, err := s.uc.Project.CreateProject(ctx, sessionFrom(ctx), usecase.ProjectInput{
		Name:        req.Name,
		Description: req.Description,
		ClientID:    req.ClientID,
		ManagerID:   req.ManagerID,
		MemberIDs:   req.MemberIDs,
	})
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusCreated, toProject(p))
}

func (s *Server) getProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, err := s.uc.Project.GetProject(ctx, sessionFrom(ctx), chi.URLParam(r, "projectID"))
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, toProject(p))
}

func (s *Server) addProjectMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req memberRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(ctx, w, err)
		return
	}

	p, err := s.uc.Project.AddMember(ctx, sessionFrom(ctx), chi.URLParam(r, "projectID"), req.UserID)
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, toProject(p))
}

func (s *Server) listProjectActivities(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit, err := queryLimit(r)
	if err != nil {
		handleError(ctx, w, err)
		return
	}

	activities, err := s.uc.Activity.ListByProject(ctx, sessionFrom(ctx), chi.URLParam(r, "projectID"), limit)
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, mapSlice(activities, toActivity))
}

// queryLimit parses the optional ?limit= parameter
func queryLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, goerr.Wrap(usecase.ErrValidation, "limit must be a positive number", goerr.V("limit", raw))
	}
	return limit, nil
}
