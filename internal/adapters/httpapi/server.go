// Package httpapi serves the doglog JSON API over gorilla/mux.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"doglog/internal/auth"
	"doglog/internal/config"
	"doglog/internal/core"
	"doglog/internal/entitymodel"
	"doglog/internal/metrics"
)

const maxJSONBody = 1 << 20

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	svc            *core.Service
	verifier       auth.Verifier
	features       config.Features
	metrics        *metrics.Metrics
	limiter        *rateLimiter
	logger         core.Logger
	photoURLExpiry time.Duration
	now            func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger core.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithFeatures sets the feature flags. Defaults to config.DefaultFeatures.
func WithFeatures(f config.Features) Option {
	return func(s *Server) { s.features = f }
}

// WithMetrics enables HTTP instrumentation and the /metrics endpoint.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithRateLimit allows rps sustained requests per user with the given burst.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		if rps > 0 {
			s.limiter = newRateLimiter(rps, burst)
		}
	}
}

// WithPhotoURLExpiry sets how long signed photo URLs stay valid.
func WithPhotoURLExpiry(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.photoURLExpiry = d
		}
	}
}

// NewServer constructs the API server.
func NewServer(svc *core.Service, verifier auth.Verifier, opts ...Option) *Server {
	s := &Server{
		svc:            svc,
		verifier:       verifier,
		features:       config.DefaultFeatures(),
		logger:         nopLogger{},
		photoURLExpiry: 15 * time.Minute,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	r.Use(s.requestLogging)
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
		r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/openapi.yaml", entitymodel.NewOpenAPIHandler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(auth.Middleware(s.verifier, func(w http.ResponseWriter, r *http.Request, err error) {
		s.logger.Warn("authentication failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusUnauthorized, "unauthenticated")
	}))
	if s.limiter != nil {
		api.Use(s.limiter.middleware(s.logger))
	}

	api.HandleFunc("/me", s.handleMe).Methods(http.MethodGet)

	list := s.gate(config.FeaturePetList)
	edit := s.gate(config.FeaturePetEditing)
	vets := s.gate(config.FeatureVets)
	photos := s.gate(config.FeaturePetPhotos)

	api.Handle("/pets", list(s.handleListPets)).Methods(http.MethodGet)
	api.Handle("/pets", edit(s.handleCreatePet)).Methods(http.MethodPost)
	api.Handle("/pets/{id}", list(s.handleGetPet)).Methods(http.MethodGet)
	api.Handle("/pets/{id}", edit(s.handleUpdatePet)).Methods(http.MethodPatch)
	api.Handle("/pets/{id}", edit(s.handleDeletePet)).Methods(http.MethodDelete)
	api.Handle("/pets/{id}/archive", edit(s.handleArchivePet)).Methods(http.MethodPost)
	api.Handle("/pets/{id}/unarchive", edit(s.handleUnarchivePet)).Methods(http.MethodPost)

	api.Handle("/pets/{id}/vets", vets(s.handlePetVets)).Methods(http.MethodGet)
	api.Handle("/pets/{id}/vets", vets(s.handleLinkVet)).Methods(http.MethodPost)
	api.Handle("/pets/{id}/vets/{vetId}", vets(s.handleUnlinkVet)).Methods(http.MethodDelete)
	api.Handle("/pets/{id}/vets/{vetId}", vets(s.handleSetVetRole)).Methods(http.MethodPatch)
	api.Handle("/pets/{id}/vets/{vetId}/primary", vets(s.handleSetPrimaryVet)).Methods(http.MethodPut)

	api.Handle("/pets/{id}/photo", photos(s.handleGetPhoto)).Methods(http.MethodGet)
	api.Handle("/pets/{id}/photo", photos(s.handlePutPhoto)).Methods(http.MethodPut)
	api.Handle("/pets/{id}/photo", photos(s.handleDeletePhoto)).Methods(http.MethodDelete)
	api.Handle("/pets/{id}/photo/url", photos(s.handlePhotoURL)).Methods(http.MethodGet)

	api.Handle("/vets", vets(s.handleListVets)).Methods(http.MethodGet)
	api.Handle("/vets", vets(s.handleCreateVet)).Methods(http.MethodPost)
	api.Handle("/vets/{id}", vets(s.handleGetVet)).Methods(http.MethodGet)
	api.Handle("/vets/{id}", vets(s.handleUpdateVet)).Methods(http.MethodPatch)
	api.Handle("/vets/{id}", vets(s.handleDeleteVet)).Methods(http.MethodDelete)
	api.Handle("/vets/{id}/archive", vets(s.handleArchiveVet)).Methods(http.MethodPost)
	api.Handle("/vets/{id}/unarchive", vets(s.handleUnarchiveVet)).Methods(http.MethodPost)
	api.Handle("/vets/{id}/pets", vets(s.handleVetPets)).Methods(http.MethodGet)

	return r
}

// gate answers 404 while the named feature is disabled.
func (s *Server) gate(feature string) func(http.HandlerFunc) http.Handler {
	return func(h http.HandlerFunc) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !s.features.Enabled(feature) {
				writeError(w, http.StatusNotFound, "not found")
				return
			}
			h(w, r)
		})
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "version": entitymodel.Version(), "storage": s.svc.Store().Driver(), "blobs": s.svc.Blobs().Driver()})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"user": user, "features": s.features.Map()})
}

// owner returns the authenticated uid; the auth middleware guarantees one.
func owner(r *http.Request) string {
	user, _ := auth.UserFromContext(r.Context())
	return user.UID
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
