package auth

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/nexaflow/nexaflow/pkg/domain/model"
	"github.com/nexaflow/nexaflow/pkg/domain/types"
)

// ErrInvalidSession is returned when a session lacks an identity or a known role
var ErrInvalidSession = goerr.New("invalid session")

// SystemUserID is the actor recorded for changes made by automation rules
const SystemUserID = "system"

// Session is the authenticated principal of a request. It is passed explicitly
// into every use case call.
type Session struct {
	UserID string
	Email  string
	Name   string
	Role   types.Role
	system bool
}

// NewSession builds a session for a verified user.
func NewSession(userID, email, name string, role types.Role) (*Session, error) {
	s := &Session{UserID: userID, Email: email, Name: name, Role: role}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// FromProfile builds a session for a known profile, e.g. a WhatsApp sender.
func FromProfile(p *model.Profile) *Session {
	return &Session{UserID: p.ID, Email: p.Email, Name: p.Name, Role: p.Role}
}

// System returns the session automation rules act under.
func System() *Session {
	return &Session{UserID: SystemUserID, Name: "NexaFlow automation", Role: types.RoleAdmin, system: true}
}

// Validate checks the session carries an identity and a known role
func (s *Session) Validate() error {
	if s == nil || s.UserID == "" {
		return goerr.Wrap(ErrInvalidSession, "session has no user")
	}
	if !s.Role.IsValid() {
		return goerr.Wrap(ErrInvalidSession, "session has an unknown role", goerr.V("role", s.Role))
	}
	return nil
}

// IsSystem reports whether the session belongs to the automation engine.
func (s *Session) IsSystem() bool {
	return s != nil && s.system
}

// IsAdmin reports whether the session has the admin role.
func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == types.RoleAdmin
}

// CanCreateProject reports whether the session may open new projects.
func (s *Session) CanCreateProject() bool {
	return s.IsAdmin() || (s != nil && s.Role == types.RoleProjectManager)
}

// CanManageProject reports whether the session may create and assign deliverables in p.
func (s *Session) CanManageProject(p *model.Project) bool {
	if s.IsAdmin() {
		return true
	}
	return s != nil && s.Role == types.RoleProjectManager && p.ManagerID == s.UserID
}

// CanViewProject reports whether the session may read p. Team members only see
// the deliverables assigned to them, see CanViewDeliverable.
func (s *Session) CanViewProject(p *model.Project) bool {
	if s.CanManageProject(p) {
		return true
	}
	if s == nil {
		return false
	}
	switch s.Role {
	case types.RoleClient:
		return p.ClientID == s.UserID
	case types.RoleTeamMember:
		return p.HasMember(s.UserID)
	default:
		return false
	}
}

// CanViewDeliverable reports whether the session may read d of project p.
func (s *Session) CanViewDeliverable(p *model.Project, d *model.Deliverable) bool {
	if s == nil {
		return false
	}
	if s.Role == types.RoleTeamMember {
		return s.isAssignee(d)
	}
	return s.CanViewProject(p)
}

// CanUpload reports whether the session may upload a version of d.
func (s *Session) CanUpload(p *model.Project, d *model.Deliverable) bool {
	if s.CanManageProject(p) {
		return true
	}
	return s != nil && s.Role == types.RoleTeamMember && s.isAssignee(d)
}

func (s *Session) isAssignee(d *model.Deliverable) bool {
	return d.AssigneeID != "" && d.AssigneeID == s.UserID
}

// CanDecide reports whether the session may approve, reject or request revision in p.
func (s *Session) CanDecide(p *model.Project) bool {
	if s.CanManageProject(p) {
		return true
	}
	return s != nil && s.Role == types.RoleClient && p.ClientID == s.UserID
}

// CanManageRules reports whether the session may edit automation rules.
func (s *Session) CanManageRules() bool {
	return s.IsAdmin()
}
