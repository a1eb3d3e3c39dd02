package http_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	httpctrl "github.com/nexaflow/nexaflow/pkg/controller/http"
	"github.com/nexaflow/nexaflow/pkg/domain/model"
	"github.com/nexaflow/nexaflow/pkg/usecase"
)

func TestVerifyWhatsAppSignature(t *testing.T) {
	body := []byte(`{"from":"+15550102000","text":"APPROVE APP-1A2B3C"}`)

	t.Run("valid signature", func(t *testing.T) {
		gt.NoError(t, httpctrl.VerifyWhatsAppSignature(whatsappSecret, sign(body), body))
	})

	t.Run("different body", func(t *testing.T) {
		gt.Error(t, httpctrl.VerifyWhatsAppSignature(whatsappSecret, sign(body), append(body, ' ')))
	})

	t.Run("different secret", func(t *testing.T) {
		gt.Error(t, httpctrl.VerifyWhatsAppSignature("other-secret", sign(body), body))
	})

	t.Run("missing signature", func(t *testing.T) {
		gt.Error(t, httpctrl.VerifyWhatsAppSignature(whatsappSecret, "", body))
	})

	t.Run("missing prefix", func(t *testing.T) {
		gt.Error(t, httpctrl.VerifyWhatsAppSignature(whatsappSecret, sign(body)[len("sha256="):], body))
	})
}

func TestStatusOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", goerr.Wrap(usecase.ErrValidation, "bad"), http.StatusBadRequest},
		{"rule", goerr.Wrap(model.ErrInvalidRule, "bad"), http.StatusUnprocessableEntity},
		{"missing reason", goerr.Wrap(model.ErrMissingReason, "bad"), http.StatusBadRequest},
		{"unauthenticated", usecase.ErrUnauthenticated, http.StatusUnauthorized},
		{"denied", goerr.Wrap(usecase.ErrAccessDenied, "no"), http.StatusForbidden},
		{"not found", goerr.Wrap(usecase.ErrDeliverableNotFound, "no"), http.StatusNotFound},
		{"token", usecase.ErrTokenNotFound, http.StatusNotFound},
		{"stale", goerr.Wrap(usecase.ErrStaleTransition, "race"), http.StatusConflict},
		{"transition", goerr.Wrap(model.ErrInvalidTransition, "no"), http.StatusConflict},
		{"superseded version", goerr.Wrap(model.ErrVersionMismatch, "no"), http.StatusConflict},
		{"link", goerr.Wrap(usecase.ErrInvalidLink, "expired"), http.StatusGone},
		{"backend", goerr.Wrap(usecase.ErrBackend, "down"), http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gt.Value(t, httpctrl.StatusOf(tc.err)).Equal(tc.want)
		})
	}
}
