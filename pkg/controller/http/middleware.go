package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/goerr/v2"
	"github.com/nexaflow/nexaflow/pkg/domain/model/auth"
	"github.com/nexaflow/nexaflow/pkg/usecase"
	"github.com/nexaflow/nexaflow/pkg/utils/logging"
	"github.com/nexaflow/nexaflow/pkg/utils/metrics"
)

type contextKey string

const (
	sessionKey      contextKey = "session"
	webhookBodyKey  contextKey = "webhook_body"
	bearerPrefix               = "Bearer "
	sessionLogField            = "user_id"
)

// authMiddleware resolves the bearer token into a session. Handlers read it
// with sessionFrom and pass it explicitly to the use cases.
func authMiddleware(authUC AuthUseCase) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token := ""
			if h := r.Header.Get("Authorization"); strings.HasPrefix(h, bearerPrefix) {
				token = strings.TrimSpace(strings.TrimPrefix(h, bearerPrefix))
			}
			if token == "" && !authUC.IsNoAuthn() {
				handleError(ctx, w, goerr.Wrap(usecase.ErrUnauthenticated, "bearer token is missing"))
				return
			}

			session, err := authUC.Authenticate(ctx, token)
			if err != nil {
				handleError(ctx, w, err)
				return
			}

			ctx = context.WithValue(ctx, sessionKey, session)
			ctx = logging.With(ctx, logging.From(ctx).With(sessionLogField, session.UserID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// sessionFrom returns the session stored by authMiddleware, or nil.
func sessionFrom(ctx context.Context) *auth.Session {
	session, _ := ctx.Value(sessionKey).(*auth.Session)
	return session
}

// requestMetrics records request durations by method and status
func requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			metrics.HTTPRequestDuration.
				WithLabelValues(r.Method, strconv.Itoa(status)).
				Observe(time.Since(start).Seconds())
		}()

		next.ServeHTTP(ww, r)
	})
}

// requestMeta describes the client of r for signer metadata
func requestMeta(r *http.Request) usecase.RequestMeta {
	ip := r.RemoteAddr
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		ip = strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	return usecase.RequestMeta{IPAddress: ip, UserAgent: r.UserAgent()}
}
