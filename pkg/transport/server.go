package transport

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/goliatone/go-productoptions/pkg/coordinator"
	"github.com/goliatone/go-productoptions/pkg/model"
	"github.com/goliatone/go-productoptions/pkg/validation"
)

var tracer = otel.Tracer("productoptions.transport")

// SubmissionRequest carries the raw option values of one line.
type SubmissionRequest struct {
	Submission model.Submission `json:"submission"`
}

// VisibilityResponse maps option ids to their visibility.
type VisibilityResponse struct {
	Visibility map[string]bool `json:"visibility"`
}

// ServerOption customises a Server.
type ServerOption func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRateLimit enables per-client rate limiting. A non-positive rps disables
// it.
func WithRateLimit(rps float64, burst int) ServerOption {
	return func(s *Server) {
		s.rps = rps
		s.burst = burst
	}
}

// WithoutRequestValidation skips OpenAPI request validation.
func WithoutRequestValidation() ServerOption {
	return func(s *Server) {
		s.skipValidation = true
	}
}

// Server exposes the authoritative context over HTTP.
type Server struct {
	authority      *coordinator.LocalAuthority
	logger         *slog.Logger
	rps            float64
	burst          int
	skipValidation bool
	engine         *gin.Engine
}

// NewServer builds the router for authority.
func NewServer(ctx context.Context, authority *coordinator.LocalAuthority, options ...ServerOption) (*Server, error) {
	if authority == nil {
		return nil, coordinator.ErrNoAuthority
	}
	s := &Server{
		authority: authority,
		logger:    slog.Default().With("component", "transport"),
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), instrument())
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	engine.GET("/openapi.yaml", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/yaml", openAPIDocument)
	})

	api := engine.Group("/v1")
	if s.rps > 0 {
		api.Use(newClientLimiter(s.rps, s.burst).middleware())
	}
	if !s.skipValidation {
		v, err := newRequestValidator(ctx)
		if err != nil {
			return nil, err
		}
		api.Use(v.middleware())
	}
	api.POST("/items/:itemID/formulas", s.handleFormulas)
	api.POST("/items/:itemID/visibility", s.handleVisibility)
	api.POST("/items/:itemID/commit", s.handleCommit)
	api.POST("/validate", s.handleValidate)

	s.engine = engine
	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) handleFormulas(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "EvaluateFormulas")
	defer span.End()

	var req coordinator.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, span, http.StatusBadRequest, err)
		return
	}
	req.ItemID = c.Param("itemID")
	span.SetAttributes(
		attribute.String("item.id", req.ItemID),
		attribute.Int("formulas", len(req.Formulas)),
		attribute.String("request.id", req.RequestID),
	)

	resp, err := s.authority.Evaluate(ctx, req)
	if err != nil {
		s.fail(c, span, statusFor(err), err)
		return
	}
	for _, amount := range resp.Amounts {
		outcome := "value"
		if amount.Amount == nil {
			outcome = "none"
		}
		formulaEvaluations.WithLabelValues(outcome).Inc()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleVisibility(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "EvaluateVisibility")
	defer span.End()

	var req SubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, span, http.StatusBadRequest, err)
		return
	}
	itemID := c.Param("itemID")
	span.SetAttributes(attribute.String("item.id", itemID))

	calc, ectx, err := s.authority.Calculator(ctx, itemID)
	if err != nil {
		s.fail(c, span, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, VisibilityResponse{Visibility: calc.Visibility().Map(ctx, req.Submission, ectx)})
}

func (s *Server) handleCommit(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "Commit")
	defer span.End()

	var req SubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, span, http.StatusBadRequest, err)
		return
	}
	itemID := c.Param("itemID")
	span.SetAttributes(attribute.String("item.id", itemID))

	breakdown, err := s.authority.Commit(ctx, itemID, req.Submission)
	if err != nil {
		s.fail(c, span, statusFor(err), err)
		return
	}
	if !breakdown.Complete() {
		s.logger.Warn("committed line has formulas without a value", "item", itemID, "unknown", breakdown.Unknown)
	}
	c.JSON(http.StatusOK, breakdown)
}

func (s *Server) handleValidate(c *gin.Context) {
	_, span := tracer.Start(c.Request.Context(), "ValidateGroup")
	defer span.End()

	var group model.Group
	if err := c.ShouldBindJSON(&group); err != nil {
		s.fail(c, span, http.StatusBadRequest, err)
		return
	}
	c.JSON(http.StatusOK, validation.ValidateGroup(group))
}

func (s *Server) fail(c *gin.Context, span trace.Span, status int, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.FullPath(), "error", err)
	} else {
		s.logger.Debug("request rejected", "path", c.FullPath(), "status", status, "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, coordinator.ErrUnknownItem):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
