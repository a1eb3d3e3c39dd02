package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/nexaflow/nexaflow/pkg/domain/types"
	"github.com/nexaflow/nexaflow/pkg/usecase"
	"github.com/nexaflow/nexaflow/pkg/utils/safe"
)

// uploadFormField is the multipart field carrying a version file
const uploadFormField = "file"

type deliverableRequest struct {
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	RequiresReview bool       `json:"requiresReview"`
	AssigneeID     string     `json:"assigneeId"`
	DueDate        *time.Time `json:"dueDate"`
}

type decisionRequest struct {
	Decision types.Decision `json:"decision"`
	Reason   string         `json:"reason"`
}

type revisionRequest struct {
	Reason string `json:"reason"`
}

type assignRequest struct {
	AssigneeID string `json:"assigneeId"`
}

type emailLinksRequest struct {
	RecipientID string `json:"recipientId"`
}

type emailLinksResponse struct {
	ApproveURL string    `json:"approveUrl"`
	RejectURL  string    `json:"rejectUrl"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

func (s *Server) listDeliverables(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	deliverables, err := s.uc.Deliverable.ListDeliverables(ctx, sessionFrom(ctx), chi.URLParam(r, "projectID"))
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, mapSlice(deliverables, toDeliverable))
}

func (s *Server) createDeliverable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req deliverableRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(ctx, w, err)
		return
	}

	d, err := s.uc.Deliverable.CreateDeliverable(ctx, sessionFrom(ctx), chi.URLParam(r, "projectID"), usecase.DeliverableInput{
		Title:          req.Title,
		Description:    req.Description,
		RequiresReview: req.RequiresReview,
		AssigneeID:     req.AssigneeID,
		DueDate:        req.DueDate,
	})
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusCreated, toDeliverable(d))
}

func (s *Server) getDeliverable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	d, err := s.uc.Deliverable.GetDeliverable(ctx, sessionFrom(ctx), chi.URLParam(r, "deliverableID"))
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, toDeliverable(d))
}

func (s *Server) uploadVersion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadSize)

	file, header, err := r.FormFile(uploadFormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			handleError(ctx, w, goerr.Wrap(usecase.ErrValidation, "file is too large", goerr.V("limit", tooLarge.Limit)))
			return
		}
		handleError(ctx, w, goerr.Wrap(usecase.ErrValidation, "multipart field is missing",
			goerr.V("field", uploadFormField), goerr.V("cause", err.Error())))
		return
	}
	defer safe.Close(ctx, file)

	d, err := s.uc.Deliverable.UploadVersion(ctx, sessionFrom(ctx), usecase.UploadInput{
		DeliverableID: chi.URLParam(r, "deliverableID"),
		FileName:      header.Filename,
		ContentType:   header.Header.Get("Content-Type"),
		Size:          header.Size,
		Body:          file,
	})
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusCreated, toDeliverable(d))
}

func (s *Server) decide(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req decisionRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(ctx, w, err)
		return
	}

	d, err := s.uc.Approval.DecideInApp(ctx, sessionFrom(ctx), usecase.InAppInput{
		DeliverableID: chi.URLParam(r, "deliverableID"),
		Decision:      req.Decision,
		Reason:        req.Reason,
		RequestMeta:   requestMeta(r),
	})
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, toDeliverable(d))
}

func (s *Server) requestRevision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req revisionRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(ctx, w, err)
		return
	}

	d, err := s.uc.Deliverable.RequestRevision(ctx, sessionFrom(ctx), chi.URLParam(r, "deliverableID"), req.Reason, requestMeta(r))
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, toDeliverable(d))
}

func (s *Server) assign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req assignRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(ctx, w, err)
		return
	}

	d, err := s.uc.Deliverable.Assign(ctx, sessionFrom(ctx), chi.URLParam(r, "deliverableID"), req.AssigneeID)
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, toDeliverable(d))
}

func (s *Server) issueEmailLinks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req emailLinksRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(ctx, w, err)
		return
	}

	links, err := s.uc.Approval.IssueEmailLinks(ctx, sessionFrom(ctx), chi.URLParam(r, "deliverableID"), req.RecipientID)
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusCreated, emailLinksResponse{
		ApproveURL: links.ApproveURL,
		RejectURL:  links.RejectURL,
		ExpiresAt:  links.ExpiresAt,
	})
}

func (s *Server) listDeliverableActivities(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	activities, err := s.uc.Activity.ListByDeliverable(ctx, sessionFrom(ctx), chi.URLParam(r, "deliverableID"))
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, mapSlice(activities, toActivity))
}
