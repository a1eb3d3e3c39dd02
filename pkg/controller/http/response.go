package http

import (
	"time"

	"github.com/nexaflow/nexaflow/pkg/domain/model"
	"github.com/nexaflow/nexaflow/pkg/domain/model/auth"
	"github.com/nexaflow/nexaflow/pkg/domain/types"
)

type sessionResponse struct {
	ID    string     `json:"id"`
	Email string     `json:"email"`
	Name  string     `json:"name"`
	Role  types.Role `json:"role"`
}

func toSession(s *auth.Session) sessionResponse {
	return sessionResponse{ID: s.UserID, Email: s.Email, Name: s.Name, Role: s.Role}
}

type profileResponse struct {
	ID            string                    `json:"id"`
	Name          string                    `json:"name"`
	Email         string                    `json:"email"`
	Phone         string                    `json:"phone,omitempty"`
	Role          types.Role                `json:"role"`
	NotifyChannel types.NotificationChannel `json:"notifyChannel,omitempty"`
}

func toProfile(p *model.Profile) profileResponse {
	return profileResponse{
		ID:            p.ID,
		Name:          p.Name,
		Email:         p.Email,
		Phone:         p.Phone,
		Role:          p.Role,
		NotifyChannel: p.NotifyChannel,
	}
}

type projectResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	ClientID    string    `json:"clientId,omitempty"`
	ManagerID   string    `json:"managerId"`
	MemberIDs   []string  `json:"memberIds"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toProject(p *model.Project) projectResponse {
	members := p.MemberIDs
	if members == nil {
		members = []string{}
	}
	return projectResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		ClientID:    p.ClientID,
		ManagerID:   p.ManagerID,
		MemberIDs:   members,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

type signerResponse struct {
	SignerID  string             `json:"signerId"`
	SignedAt  time.Time          `json:"signedAt"`
	Method    types.SignerMethod `json:"method"`
	IPAddress string             `json:"ipAddress,omitempty"`
	UserAgent string             `json:"userAgent,omitempty"`
}

type versionResponse struct {
	ID              string              `json:"id"`
	Label           string              `json:"label"`
	FileURL         string              `json:"fileUrl"`
	FileName        string              `json:"fileName"`
	FileSize        int64               `json:"fileSize"`
	ContentType     string              `json:"contentType,omitempty"`
	UploaderID      string              `json:"uploaderId"`
	Status          types.VersionStatus `json:"status"`
	Signer          *signerResponse     `json:"signer,omitempty"`
	RejectionReason string              `json:"rejectionReason,omitempty"`
	CreatedAt       time.Time           `json:"createdAt"`
}

type deliverableResponse struct {
	ID             string                  `json:"id"`
	ProjectID      string                  `json:"projectId"`
	Title          string                  `json:"title"`
	Description    string                  `json:"description,omitempty"`
	RequiresReview bool                    `json:"requiresReview"`
	AssigneeID     string                  `json:"assigneeId,omitempty"`
	DueDate        *time.Time              `json:"dueDate,omitempty"`
	Status         types.DeliverableStatus `json:"status"`
	ApprovalToken  string                  `json:"approvalToken"`
	Versions       []versionResponse       `json:"versions"`
	Revision       int64                   `json:"revision"`
	CreatedAt      time.Time               `json:"createdAt"`
	UpdatedAt      time.Time               `json:"updatedAt"`
}

func toDeliverable(d *model.Deliverable) deliverableResponse {
	resp := deliverableResponse{
		ID:             d.ID,
		ProjectID:      d.ProjectID,
		Title:          d.Title,
		Description:    d.Description,
		RequiresReview: d.RequiresReview,
		AssigneeID:     d.AssigneeID,
		DueDate:        d.DueDate,
		Status:         d.Status,
		ApprovalToken:  d.ApprovalToken.String(),
		Versions:       make([]versionResponse, len(d.Versions)),
		Revision:       d.Revision,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
	for i, v := range d.Versions {
		vr := versionResponse{
			ID:              v.ID,
			Label:           v.Label,
			FileURL:         v.File.URL,
			FileName:        v.File.Name,
			FileSize:        v.File.Size,
			ContentType:     v.File.ContentType,
			UploaderID:      v.UploaderID,
			Status:          v.Status,
			RejectionReason: v.RejectionReason,
			CreatedAt:       v.CreatedAt,
		}
		if v.Signer != nil {
			vr.Signer = &signerResponse{
				SignerID:  v.Signer.SignerID,
				SignedAt:  v.Signer.SignedAt,
				Method:    v.Signer.Method,
				IPAddress: v.Signer.IPAddress,
				UserAgent: v.Signer.UserAgent,
			}
		}
		resp.Versions[i] = vr
	}
	return resp
}

type activityResponse struct {
	ID            string             `json:"id"`
	ProjectID     string             `json:"projectId"`
	DeliverableID string             `json:"deliverableId,omitempty"`
	ActorID       string             `json:"actorId"`
	Type          types.ActivityType `json:"type"`
	Payload       map[string]any     `json:"payload,omitempty"`
	CreatedAt     time.Time          `json:"createdAt"`
}

func toActivity(a *model.Activity) activityResponse {
	return activityResponse{
		ID:            a.ID,
		ProjectID:     a.ProjectID,
		DeliverableID: a.DeliverableID,
		ActorID:       a.ActorID,
		Type:          a.Type,
		Payload:       a.Payload,
		CreatedAt:     a.CreatedAt,
	}
}

type notificationResponse struct {
	ID            string                    `json:"id"`
	Channel       types.NotificationChannel `json:"channel"`
	Subject       string                    `json:"subject"`
	Body          string                    `json:"body"`
	ProjectID     string                    `json:"projectId,omitempty"`
	DeliverableID string                    `json:"deliverableId,omitempty"`
	Status        types.NotificationStatus  `json:"status"`
	CreatedAt     time.Time                 `json:"createdAt"`
	SentAt        *time.Time                `json:"sentAt,omitempty"`
}

func toNotification(n *model.Notification) notificationResponse {
	return notificationResponse{
		ID:            n.ID,
		Channel:       n.Channel,
		Subject:       n.Subject,
		Body:          n.Body,
		ProjectID:     n.ProjectID,
		DeliverableID: n.DeliverableID,
		Status:        n.Status,
		CreatedAt:     n.CreatedAt,
		SentAt:        n.SentAt,
	}
}

func mapSlice[T, R any](items []T, f func(T) R) []R {
	out := make([]R, len(items))
	for i, item := range items {
		out[i] = f(item)
	}
	return out
}
