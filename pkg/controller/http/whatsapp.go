package http

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/nexaflow/nexaflow/pkg/usecase"
	"github.com/nexaflow/nexaflow/pkg/utils/errutil"
	"github.com/nexaflow/nexaflow/pkg/utils/logging"
)

const (
	whatsappSignatureHeader = "X-Hub-Signature-256"
	whatsappSignaturePrefix = "sha256="
	maxWebhookBody          = 64 << 10
)

// whatsappMessage is an inbound message relayed by the WhatsApp gateway
type whatsappMessage struct {
	MessageID string `json:"messageId"`
	From      string `json:"from"`
	Text      string `json:"text"`
}

// whatsappReply is sent back to the gateway, which forwards Text to the sender
type whatsappReply struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

// verifyWhatsAppSignature checks the hex HMAC-SHA256 of body against the
// X-Hub-Signature-256 header value
func verifyWhatsAppSignature(secret, signature string, body []byte) error {
	if signature == "" {
		return goerr.New("missing signature")
	}
	if !strings.HasPrefix(signature, whatsappSignaturePrefix) {
		return goerr.New("unsupported signature format", goerr.V("signature", signature))
	}

	mac := hmac.New(sha256.New, []byte(secret))
	if _, err := mac.Write(body); err != nil {
		return goerr.Wrap(err, "failed to compute HMAC")
	}
	expected := whatsappSignaturePrefix + hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return goerr.New("signature mismatch")
	}
	return nil
}

// WhatsAppSignatureMiddleware rejects webhook calls not signed with secret
func WhatsAppSignatureMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
			if err != nil {
				errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to read request body"), http.StatusBadRequest)
				return
			}
			defer func() {
				if err := r.Body.Close(); err != nil {
					logging.From(ctx).Error("failed to close request body", "error", err)
				}
			}()

			if err := verifyWhatsAppSignature(secret, r.Header.Get(whatsappSignatureHeader), body); err != nil {
				errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "whatsapp signature verification failed"), http.StatusUnauthorized)
				return
			}

			ctx = context.WithValue(ctx, webhookBodyKey, body)
			r.Body = io.NopCloser(bytes.NewBuffer(body))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// whatsappWebhook applies an APPROVE/REJECT reply. The gateway always gets 200
// with the text to send back; failures are explained in the reply.
func (s *Server) whatsappWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, _ := ctx.Value(webhookBodyKey).([]byte)
	var msg whatsappMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to parse whatsapp message"), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(msg.From) == "" {
		errutil.HandleHTTP(ctx, w, goerr.New("whatsapp message has no sender"), http.StatusBadRequest)
		return
	}

	logger := logging.From(ctx).With("message_id", msg.MessageID, "from", msg.From)
	d, err := s.uc.Approval.DecideByWhatsApp(ctx, usecase.WhatsAppInput{From: msg.From, Text: msg.Text})
	switch {
	case err == nil:
		logger.Info("whatsapp decision applied", "deliverable_id", d.ID, "status", d.Status)
	case statusOf(err) >= http.StatusInternalServerError:
		_ = errutil.Handle(ctx, err, "failed to apply whatsapp decision")
	default:
		logger.Info("whatsapp message refused", "error", err.Error())
	}

	writeJSON(ctx, w, http.StatusOK, whatsappReply{To: msg.From, Text: usecase.Reply(d, err)})
}
