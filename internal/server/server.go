// Package server exposes the enquiry and auth services over HTTP.
package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	goahttp "goa.design/goa/v3/http"
	"goa.design/goa/v3/http/middleware"

	"enquirydesk/internal/config"
	"enquirydesk/internal/domain"
	"enquirydesk/internal/metrics"
	"enquirydesk/internal/services"
)

// maxBodyBytes caps request bodies; intake forms are a few KB at most.
const maxBodyBytes = 64 << 10

// Server wires the services to HTTP routes
type Server struct {
	cfg       *config.Config
	enquiries *services.EnquiryService
	auth      *services.AuthService
	health    *services.HealthService
	log       *zap.Logger
	mux       goahttp.Muxer
}

// New creates a server and mounts every route
func New(cfg *config.Config, enquiries *services.EnquiryService, auth *services.AuthService, health *services.HealthService, log *zap.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		enquiries: enquiries,
		auth:      auth,
		health:    health,
		log:       log.Named("http"),
		mux:       goahttp.NewMuxer(),
	}
	s.mount()
	return s
}

func (s *Server) mount() {
	p := s.cfg.App.APIPrefix

	s.mux.Handle(http.MethodGet, "/health", s.handleHealth)
	s.mux.Handle(http.MethodGet, p+"/health", s.handleHealth)

	s.mux.Handle(http.MethodPost, p+"/enquiries", s.requirePublicKey(s.handleSubmit(domain.KindGeneric)))
	s.mux.Handle(http.MethodPost, p+"/package-enquiries", s.requirePublicKey(s.handleSubmit(domain.KindPackage)))
	s.mux.Handle(http.MethodPost, p+"/custom-enquiries", s.requirePublicKey(s.handleSubmit(domain.KindCustom)))

	s.mux.Handle(http.MethodGet, p+"/enquiries", s.requireAdmin(s.handleList))
	s.mux.Handle(http.MethodGet, p+"/enquiries/export", s.requireAdmin(s.handleExport))
	s.mux.Handle(http.MethodGet, p+"/enquiries/{id}", s.requireAdmin(s.handleGet))
	s.mux.Handle(http.MethodPatch, p+"/enquiries/{id}", s.requireAdmin(s.handleUpdate))
	s.mux.Handle(http.MethodDelete, p+"/enquiries/{id}", s.requireAdmin(s.handleDelete))

	s.mux.Handle(http.MethodPost, p+"/auth/login", s.handleLogin)
	s.mux.Handle(http.MethodGet, p+"/auth/me", s.requireAdmin(s.handleMe))
}

// Handler returns the full middleware chain:
// security headers -> CORS -> request id -> logging -> Prometheus -> routes.
func (s *Server) Handler() http.Handler {
	metricsHandler := promhttp.Handler()

	// /metrics is served outside the API prefix and the goa muxer.
	root := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			metricsHandler.ServeHTTP(w, r)
			return
		}
		s.mux.ServeHTTP(w, r)
	})

	var h http.Handler = metrics.PrometheusMiddleware(root)
	h = s.requestLogging(h)
	h = middleware.PopulateRequestContext()(h)
	h = middleware.RequestID(middleware.UseXRequestIDHeaderOption(true))(h)
	h = s.cors(h)
	h = s.securityHeaders(h)
	return h
}
