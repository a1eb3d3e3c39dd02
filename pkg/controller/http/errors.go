package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/nexaflow/nexaflow/pkg/domain/model"
	"github.com/nexaflow/nexaflow/pkg/domain/model/auth"
	"github.com/nexaflow/nexaflow/pkg/usecase"
	"github.com/nexaflow/nexaflow/pkg/utils/errutil"
	"github.com/nexaflow/nexaflow/pkg/utils/logging"
)

// maxJSONBody caps JSON request bodies
const maxJSONBody = 1 << 20

// statusOf maps the error taxonomy of the use cases to a response status.
// Order matters: rule errors are wrapped into ErrValidation.
func statusOf(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidRule):
		return http.StatusUnprocessableEntity
	case errors.Is(err, usecase.ErrValidation),
		errors.Is(err, model.ErrMissingReason),
		errors.Is(err, model.ErrTokenMissing),
		errors.Is(err, model.ErrAmbiguousCommand),
		errors.Is(err, model.ErrInvalidToken):
		return http.StatusBadRequest
	case errors.Is(err, usecase.ErrUnauthenticated),
		errors.Is(err, auth.ErrInvalidSession):
		return http.StatusUnauthorized
	case errors.Is(err, usecase.ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, usecase.ErrDeliverableNotFound),
		errors.Is(err, usecase.ErrProjectNotFound),
		errors.Is(err, usecase.ErrProfileNotFound),
		errors.Is(err, usecase.ErrRuleNotFound),
		errors.Is(err, usecase.ErrTokenNotFound):
		return http.StatusNotFound
	case errors.Is(err, usecase.ErrStaleTransition),
		errors.Is(err, model.ErrVersionMismatch),
		errors.Is(err, model.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, usecase.ErrInvalidLink):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

func handleError(ctx context.Context, w http.ResponseWriter, err error) {
	errutil.HandleHTTP(ctx, w, err, statusOf(err))
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.From(ctx).Error("failed to write response", "error", err)
	}
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return goerr.Wrap(usecase.ErrValidation, "malformed request body", goerr.V("cause", err.Error()))
	}
	return nil
}
