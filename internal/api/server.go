// Package api provides the HTTP REST API for the scanner. It exposes
// endpoints for starting and inspecting scans, validating targets,
// listing network interfaces and managing settings.
package api

import (
	"context"
	"encoding/json"
	goerrors "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/scanlab-io/scanlab/internal/config"
	"github.com/scanlab-io/scanlab/internal/errors"
	"github.com/scanlab-io/scanlab/internal/logging"
	"github.com/scanlab-io/scanlab/internal/metrics"
	"github.com/scanlab-io/scanlab/internal/orchestrator"
)

// Server timeout constants.
const (
	serverReadTimeout     = 10 * time.Second
	serverWriteTimeout    = 330 * time.Second // must outlast the longest scan
	serverIdleTimeout     = 60 * time.Second
	serverShutdownTimeout = 30 * time.Second
)

// Server represents the API server.
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	config     *config.Config
	orch       *orchestrator.Orchestrator
	logger     *slog.Logger
	startTime  time.Time
}

// New creates a new API server instance.
func New(cfg *config.Config, orch *orchestrator.Orchestrator) *Server {
	logger := logging.Default().With("component", "api")

	server := &Server{
		router:    mux.NewRouter(),
		config:    cfg,
		orch:      orch,
		logger:    logger,
		startTime: time.Now(),
	}

	server.setupRoutes()
	server.setupMiddleware()

	server.httpServer = &http.Server{
		Addr:           net.JoinHostPort(cfg.API.ListenAddr, strconv.Itoa(cfg.API.Port)),
		Handler:        server.router,
		ReadTimeout:    serverReadTimeout,
		WriteTimeout:   serverWriteTimeout,
		IdleTimeout:    serverIdleTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	return server
}

// Start starts the API server and blocks until ctx is cancelled or the
// server fails.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting API server", "address", s.httpServer.Addr)

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("API server failed: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		return s.Stop()
	case err := <-errChan:
		return err
	}
}

// Stop gracefully stops the API server.
func (s *Server) Stop() error {
	s.logger.Info("Stopping API server")

	ctx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("API server shutdown error", "error", err)
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("API server stopped")
	return nil
}

// Router returns the configured router, used by tests to drive the
// handlers without a listening socket.
func (s *Server) Router() *mux.Router {
	return s.router
}

// Address returns the server listen address.
func (s *Server) Address() string {
	return s.httpServer.Addr
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Health and observability
	api.HandleFunc("/health", s.healthHandler).Methods("GET")
	api.HandleFunc("/version", s.versionHandler).Methods("GET")
	s.router.Handle("/metrics", metrics.Global().Handler()).Methods("GET")

	// Scan lifecycle
	api.HandleFunc("/scans", s.createScanHandler).Methods("POST")
	api.HandleFunc("/scans", s.listScansHandler).Methods("GET")
	api.HandleFunc("/scans/{id}", s.getScanHandler).Methods("GET")
	api.HandleFunc("/scans/{id}", s.deleteScanHandler).Methods("DELETE")
	api.HandleFunc("/scans/{id}/status", s.scanStatusHandler).Methods("GET")
	api.HandleFunc("/scans/{id}/cancel", s.cancelScanHandler).Methods("POST")

	// Network helpers
	api.HandleFunc("/network/validate", s.validateTargetHandler).Methods("GET")
	api.HandleFunc("/network/interfaces", s.interfacesHandler).Methods("GET")
	api.HandleFunc("/network/local", s.localNetworkHandler).Methods("GET")

	// Settings
	api.HandleFunc("/settings/mode", s.getModeHandler).Methods("GET")
	api.HandleFunc("/settings/mode", s.setModeHandler).Methods("PUT")

	s.router.HandleFunc("/", s.indexHandler).Methods("GET")
}

// setupMiddleware configures middleware for the API server.
func (s *Server) setupMiddleware() {
	s.router.Use(s.recoveryMiddleware)
	s.router.Use(s.loggingMiddleware)

	if s.config.API.CORS.Enabled {
		s.router.Use(handlers.CORS(
			handlers.AllowedOrigins(s.config.API.CORS.AllowedOrigins),
			handlers.AllowedMethods(s.config.API.CORS.AllowedMethods),
			handlers.AllowedHeaders(s.config.API.CORS.AllowedHeaders),
		))
	}

	s.router.Use(s.contentTypeMiddleware)
}

// indexHandler returns API information for root requests.
func (s *Server) indexHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"service": "scanlab API",
		"version": "v1",
		"endpoints": map[string]string{
			"health":  "/api/v1/health",
			"scans":   "/api/v1/scans",
			"metrics": "/metrics",
		},
		"timestamp": time.Now().UTC(),
	}
	s.writeJSON(w, r, http.StatusOK, response)
}

// ErrorResponse is the standard API error body.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Code      string    `json:"code,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// writeError maps domain errors to HTTP status codes and writes a
// standardized error response.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	statusCode := statusForError(err)

	s.logger.Error("API error",
		"method", r.Method,
		"path", r.URL.Path,
		"status", statusCode,
		"error", err)

	var scanErr *errors.ScanError
	if goerrors.As(err, &scanErr) && scanErr.RetryAfter > 0 {
		seconds := int(scanErr.RetryAfter.Seconds() + 0.5)
		if seconds < 1 {
			seconds = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}

	response := ErrorResponse{
		Error:     err.Error(),
		Code:      string(errors.GetCode(err)),
		Timestamp: time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if encodeErr := json.NewEncoder(w).Encode(response); encodeErr != nil {
		s.logger.Error("Failed to encode error response", "error", encodeErr)
	}
}

// statusForError maps error codes to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.IsValidation(err):
		return http.StatusBadRequest
	case errors.IsCode(err, errors.CodeConsentRequired):
		return http.StatusForbidden
	case errors.IsRateLimit(err):
		return http.StatusTooManyRequests
	case errors.IsCode(err, errors.CodeScanningDisabled):
		return http.StatusServiceUnavailable
	case errors.IsCode(err, errors.CodeNotFound):
		return http.StatusNotFound
	case errors.IsCode(err, errors.CodeTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode JSON response",
			"error", err,
			"path", r.URL.Path,
			"method", r.Method)
	}
}

// parseJSON parses a JSON request body into the provided struct.
func (s *Server) parseJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return fmt.Errorf("empty request body")
	}

	body := http.MaxBytesReader(nil, r.Body, s.config.API.MaxRequestSize)
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// Middleware functions.

// recoveryMiddleware recovers from panics and returns a 500 error.
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("Panic in API handler",
					"error", rec,
					"path", r.URL.Path,
					"method", r.Method)
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests and records request metrics.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		routePath := routeTemplate(r)

		s.logger.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.statusCode,
			"duration", duration,
			"remote_addr", r.RemoteAddr)

		m := metrics.Global()
		m.IncrementHTTPRequests(r.Method, routePath, strconv.Itoa(wrapped.statusCode))
		m.RecordHTTPDuration(r.Method, routePath, duration)
	})
}

// routeTemplate returns the mux route template so metrics are not
// exploded by path variables.
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}

// contentTypeMiddleware validates content type for POST/PUT requests.
func (s *Server) contentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut {
			contentType := r.Header.Get("Content-Type")
			if contentType != "" && contentType != "application/json" {
				s.writeJSON(w, r, http.StatusUnsupportedMediaType, ErrorResponse{
					Error:     fmt.Sprintf("unsupported content type: %s", contentType),
					Timestamp: time.Now().UTC(),
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// getQueryParamInt gets an integer query parameter with a default.
func getQueryParamInt(r *http.Request, key string, defaultValue int) (int, error) {
	if value := r.URL.Query().Get(key); value != "" {
		return strconv.Atoi(value)
	}
	return defaultValue, nil
}

// paginationParams represents pagination parameters.
type paginationParams struct {
	Page     int
	PageSize int
	Offset   int
}

// getPaginationParams extracts pagination parameters from a request.
func getPaginationParams(r *http.Request) paginationParams {
	const (
		defaultPage     = 1
		defaultPageSize = 10
		maxPageSize     = 100
	)

	page, err := getQueryParamInt(r, "page", defaultPage)
	if err != nil || page < 1 {
		page = defaultPage
	}

	pageSize, err := getQueryParamInt(r, "page_size", defaultPageSize)
	if err != nil || pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	return paginationParams{
		Page:     page,
		PageSize: pageSize,
		Offset:   (page - 1) * pageSize,
	}
}

// paginatedResponse represents a paginated API response.
type paginatedResponse struct {
	Data       interface{} `json:"data"`
	Pagination struct {
		Page       int `json:"page"`
		PageSize   int `json:"page_size"`
		TotalItems int `json:"total_items"`
		TotalPages int `json:"total_pages"`
	} `json:"pagination"`
}

// writePaginated writes a paginated response.
func (s *Server) writePaginated(w http.ResponseWriter, r *http.Request, data interface{}, params paginationParams, totalItems int) {
	totalPages := (totalItems + params.PageSize - 1) / params.PageSize

	response := paginatedResponse{Data: data}
	response.Pagination.Page = params.Page
	response.Pagination.PageSize = params.PageSize
	response.Pagination.TotalItems = totalItems
	response.Pagination.TotalPages = totalPages

	s.writeJSON(w, r, http.StatusOK, response)
}
