package http

import (
	"net/http"
	"strings"

	"github.com/nexaflow/nexaflow/pkg/domain/types"
	"github.com/nexaflow/nexaflow/pkg/usecase"
)

// linkTokenParam is the query parameter carrying the signed link token
const linkTokenParam = "t"

type emailLinkResponse struct {
	DeliverableID string         `json:"deliverableId"`
	Title         string         `json:"title"`
	VersionLabel  string         `json:"versionLabel,omitempty"`
	FileURL       string         `json:"fileUrl,omitempty"`
	Decision      types.Decision `json:"decision"`
	RecipientName string         `json:"recipientName"`
}

type emailDecisionRequest struct {
	Reason string `json:"reason"`
}

// showEmailLink tells the recipient what following the link will decide
func (s *Server) showEmailLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	link, err := s.uc.Approval.VerifyEmailLink(ctx, r.URL.Query().Get(linkTokenParam))
	if err != nil {
		handleError(ctx, w, err)
		return
	}

	resp := emailLinkResponse{
		DeliverableID: link.Deliverable.ID,
		Title:         link.Deliverable.Title,
		Decision:      link.Decision,
		RecipientName: link.Recipient.Name,
	}
	if v := link.Deliverable.CurrentVersion(); v != nil {
		resp.VersionLabel = v.Label
		resp.FileURL = v.File.URL
	}
	writeJSON(ctx, w, http.StatusOK, resp)
}

// decideByEmailLink applies the decision of the link. The reason may come as a
// JSON body or as a form field.
func (s *Server) decideByEmailLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req emailDecisionRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := decodeJSON(r, &req); err != nil {
			handleError(ctx, w, err)
			return
		}
	} else {
		req.Reason = r.PostFormValue("reason")
	}

	d, err := s.uc.Approval.DecideByEmail(ctx, usecase.EmailInput{
		LinkToken:   r.URL.Query().Get(linkTokenParam),
		Reason:      req.Reason,
		RequestMeta: requestMeta(r),
	})
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, toDeliverable(d))
}
