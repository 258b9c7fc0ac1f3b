package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/feature-prediction-service/internal/domain"
	"github.com/couchcryptid/feature-prediction-service/internal/earthmodel"
	"github.com/couchcryptid/feature-prediction-service/internal/lookuptable"
	"github.com/couchcryptid/feature-prediction-service/internal/predictor"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxRequestBytes = 1 << 20

// Predictor computes a feature prediction for a validated request.
type Predictor interface {
	Predict(ctx context.Context, req domain.PredictionRequest) (domain.FeaturePrediction, error)
}

// Server exposes health, readiness, metrics and synchronous prediction
// endpoints.
type Server struct {
	httpServer *http.Server
	predictor  Predictor
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and
// POST /predict routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, p Predictor, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		predictor: p,
		logger:    logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /predict", s.handlePredict)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}

	req, err := domain.ParsePredictionRequest(domain.RawEvent{Value: body, Timestamp: time.Now()})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	pred, err := s.predictor.Predict(r.Context(), req)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("prediction failed", "request_id", req.ID, "error", err)
		}
		writeError(w, status, err)
		return
	}

	sharedobs.WriteJSON(w, http.StatusOK, pred)
}

// statusFor maps prediction errors to HTTP status codes.
func statusFor(err error) int {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError

	switch {
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		return http.StatusBadRequest
	case errors.Is(err, lookuptable.ErrTableNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidRequest),
		errors.Is(err, earthmodel.ErrValidation),
		errors.Is(err, earthmodel.ErrInsufficientData),
		errors.Is(err, earthmodel.ErrNoGridPoint),
		errors.Is(err, earthmodel.ErrDegeneratePole),
		errors.Is(err, predictor.ErrNoPrediction),
		errors.Is(err, predictor.ErrNoVelocity),
		errors.Is(err, predictor.ErrEvanescent):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": err.Error()})
}
