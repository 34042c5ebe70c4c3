package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/2beens/trainplan/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
)

const TokenHeader = "X-TrainPlan-Token"

type AuthMiddlewareHandler struct {
	apiToken     string
	allowedPaths map[string]bool
}

// NewAuthMiddlewareHandler guards the internal API with a shared token.
// An empty token disables the check, which is only meant for local development.
func NewAuthMiddlewareHandler(apiToken string) *AuthMiddlewareHandler {
	if apiToken == "" {
		log.Warnln("api token not set, internal api is not protected")
	}
	return &AuthMiddlewareHandler{
		apiToken: apiToken,
		allowedPaths: map[string]bool{
			"/health": true,
		},
	}
}

func (h *AuthMiddlewareHandler) AuthCheck() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, span := tracing.GlobalTracer.Start(r.Context(), "middleware.auth")
			defer span.End()

			if r.Method == http.MethodOptions {
				w.Header().Add("Allow", "GET, POST, OPTIONS")
				w.WriteHeader(http.StatusOK)
				span.SetStatus(codes.Ok, "options-ok")
				return
			}

			if h.apiToken == "" || h.allowedPaths[r.URL.Path] {
				span.SetStatus(codes.Ok, "ok")
				next.ServeHTTP(w, r)
				return
			}

			authToken := r.Header.Get(TokenHeader)
			if authToken == "" {
				log.Tracef("[missing token] [auth middleware] unauthorized => %s", r.URL.Path)
				http.Error(w, "no can do", http.StatusUnauthorized)
				span.SetStatus(codes.Error, "missing-auth-token")
				return
			}

			if subtle.ConstantTimeCompare([]byte(authToken), []byte(h.apiToken)) != 1 {
				log.Tracef("[invalid token] [auth middleware] unauthorized => %s", r.URL.Path)
				http.Error(w, "no can do", http.StatusUnauthorized)
				span.SetStatus(codes.Error, "invalid-auth-token")
				return
			}

			span.SetStatus(codes.Ok, "ok")
			next.ServeHTTP(w, r)
		})
	}
}
