package model

import (
	"slices"
	"time"
)

// Project groups deliverables for one client
type Project struct {
	ID          string
	Name        string
	Description string
	ClientID    string   // Profile ID of the client who owns the project
	ManagerID   string   // Profile ID of the responsible project manager
	MemberIDs   []string // Profile IDs of team members working on the project
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasMember reports whether userID is listed as a team member.
func (p *Project) HasMember(userID string) bool {
	return slices.Contains(p.MemberIDs, userID)
}
