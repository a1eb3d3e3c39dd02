package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nexaflow/nexaflow/pkg/domain/model"
	"github.com/nexaflow/nexaflow/pkg/domain/types"
)

type conditionJSON struct {
	Field    string         `json:"field"`
	Operator types.Operator `json:"operator"`
	Value    string         `json:"value"`
}

// actionJSON is the flat wire form of a rule action; only the fields of Type are read
type actionJSON struct {
	Type      types.ActionType          `json:"type"`
	Status    types.DeliverableStatus   `json:"status,omitempty"`
	Recipient string                    `json:"recipient,omitempty"`
	Channel   types.NotificationChannel `json:"channel,omitempty"`
	Subject   string                    `json:"subject,omitempty"`
	Message   string                    `json:"message,omitempty"`
	UserID    string                    `json:"userId,omitempty"`
}

type ruleRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Trigger     types.EventType `json:"trigger"`
	Conditions  []conditionJSON `json:"conditions"`
	Actions     []actionJSON    `json:"actions"`
	Active      *bool           `json:"active"`
}

type ruleResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Trigger     types.EventType `json:"trigger"`
	Conditions  []conditionJSON `json:"conditions"`
	Actions     []actionJSON    `json:"actions"`
	Active      bool            `json:"active"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// rule builds the model; rules are active unless the request says otherwise
func (req ruleRequest) rule() *model.AutomationRule {
	rule := &model.AutomationRule{
		Name:        req.Name,
		Description: req.Description,
		Trigger:     req.Trigger,
		Active:      req.Active == nil || *req.Active,
	}
	for _, c := range req.Conditions {
		rule.Conditions = append(rule.Conditions, model.Condition{Field: c.Field, Operator: c.Operator, Value: c.Value})
	}
	for _, a := range req.Actions {
		rule.Actions = append(rule.Actions, model.ActionFields{
			Type:      a.Type,
			Status:    a.Status,
			Recipient: a.Recipient,
			Channel:   a.Channel,
			Subject:   a.Subject,
			Message:   a.Message,
			UserID:    a.UserID,
		}.Build())
	}
	return rule
}

func toRule(r *model.AutomationRule) ruleResponse {
	resp := ruleResponse{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Trigger:     r.Trigger,
		Conditions:  make([]conditionJSON, len(r.Conditions)),
		Actions:     make([]actionJSON, len(r.Actions)),
		Active:      r.Active,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	for i, c := range r.Conditions {
		resp.Conditions[i] = conditionJSON{Field: c.Field, Operator: c.Operator, Value: c.Value}
	}
	for i, a := range r.Actions {
		f := a.Fields()
		resp.Actions[i] = actionJSON{
			Type:      f.Type,
			Status:    f.Status,
			Recipient: f.Recipient,
			Channel:   f.Channel,
			Subject:   f.Subject,
			Message:   f.Message,
			UserID:    f.UserID,
		}
	}
	return resp
}

func (s *Server) listRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rules, err := s.uc.Rule.ListRules(ctx, sessionFrom(ctx))
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, mapSlice(rules, toRule))
}

func (s *Server) createRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req ruleRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(ctx, w, err)
		return
	}

	rule, err := s.uc.Rule.CreateRule(ctx, sessionFrom(ctx), req.rule())
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusCreated, toRule(rule))
}

func (s *Server) getRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rule, err := s.uc.Rule.GetRule(ctx, sessionFrom(ctx), chi.URLParam(r, "ruleID"))
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, toRule(rule))
}

func (s *Server) updateRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req ruleRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(ctx, w, err)
		return
	}

	rule, err := s.uc.Rule.UpdateRule(ctx, sessionFrom(ctx), chi.URLParam(r, "ruleID"), req.rule())
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, toRule(rule))
}

func (s *Server) deleteRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := s.uc.Rule.DeleteRule(ctx, sessionFrom(ctx), chi.URLParam(r, "ruleID")); err != nil {
		handleError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listNotifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit, err := queryLimit(r)
	if err != nil {
		handleError(ctx, w, err)
		return
	}

	notifications, err := s.uc.Notification.ListForRecipient(ctx, sessionFrom(ctx), limit)
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, mapSlice(notifications, toNotification))
}
