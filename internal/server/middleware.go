package server

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	goamiddleware "goa.design/goa/v3/middleware"

	"enquirydesk/internal/domain"
	apperrors "enquirydesk/pkg/errors"
)

type ctxKey int

const adminCtxKey ctxKey = iota

// AdminFromContext returns the admin authenticated for this request
func AdminFromContext(ctx context.Context) (*domain.AdminUser, bool) {
	u, ok := ctx.Value(adminCtxKey).(*domain.AdminUser)
	return u, ok
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(goamiddleware.RequestIDKey).(string)
	return id
}

// bearerToken extracts the token of an "Authorization: Bearer <token>" header
func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// requireAdmin rejects requests without a valid admin session
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			s.writeError(w, r, apperrors.Unauthorized("authorization header required"))
			return
		}

		user, err := s.auth.Authenticate(r.Context(), token)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), adminCtxKey, user)
		next(w, r.WithContext(ctx))
	}
}

// requirePublicKey guards the intake endpoints with the shared anonymous
// key. An admin session is accepted too. With no key configured the check
// is off.
func (s *Server) requirePublicKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := s.cfg.Auth.PublicAPIKey
		if key == "" {
			next(w, r)
			return
		}

		token, ok := bearerToken(r)
		if !ok {
			s.writeError(w, r, apperrors.Unauthorized("authorization header required"))
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(key)) == 1 {
			next(w, r)
			return
		}
		if _, err := s.auth.Authenticate(r.Context(), token); err == nil {
			next(w, r)
			return
		}

		s.writeError(w, r, apperrors.Unauthorized("invalid API key"))
	}
}

// securityHeaders adds security headers to responses
func (s *Server) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")

		// HSTS (only in production with HTTPS)
		if !s.cfg.App.Debug && r.TLS != nil {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

// cors answers preflight requests and restricts origins when a list is
// configured
func (s *Server) cors(next http.Handler) http.Handler {
	cfg := s.cfg.CORS
	wildcard := len(cfg.AllowedOrigins) == 0 || cfg.AllowedOrigins[0] == "*"

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		if !wildcard && origin != "" {
			allowed := false
			for _, o := range cfg.AllowedOrigins {
				if origin == o {
					allowed = true
					break
				}
			}
			if !allowed {
				s.writeError(w, r, apperrors.New(apperrors.ErrCodeForbidden, "origin not allowed"))
				return
			}
		}

		switch {
		case origin != "" && !wildcard:
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		case origin != "":
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		w.Header().Set("Access-Control-Allow-Methods", strings.Join(cfg.AllowedMethods, ", "))
		w.Header().Set("Access-Control-Allow-Headers", strings.Join(cfg.AllowedHeaders, ", "))
		w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Disposition, X-Request-ID")
		w.Header().Set("Access-Control-Max-Age", fmt.Sprintf("%d", cfg.MaxAge))

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture status code
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// requestLogging logs every request except health checks
func (s *Server) requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/health") {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		id := requestID(r.Context())
		if id != "" {
			w.Header().Set("X-Request-ID", id)
		}

		wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", wrapped.statusCode),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", id),
		}
		if wrapped.statusCode >= http.StatusInternalServerError {
			s.log.Error("request failed", fields...)
			return
		}
		s.log.Info("request", fields...)
	})
}
