// Package server exposes the analysis pipeline over HTTP: one analyze
// endpoint plus health and metrics.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/finsenselabs/finsense/internal/budget"
	"github.com/finsenselabs/finsense/internal/pipeline"
)

// Config holds the listener settings.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
}

// AnalyzeRequest is the budget submission payload.
type AnalyzeRequest struct {
	Region        string             `json:"region"`
	MonthlyIncome float64            `json:"monthly_income"`
	Spending      map[string]float64 `json:"spending"`
	Language      string             `json:"language"`
}

// HealthResponse is the JSON response for the /health endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// ErrorResponse is the JSON shape for request failures.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server is the HTTP front end over a pipeline runner.
type Server struct {
	cfg    Config
	runner *pipeline.Runner
	echo   *echo.Echo
	logger *zap.Logger
}

// New builds the server and registers its routes.
func New(cfg Config, runner *pipeline.Runner, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	s := &Server{cfg: cfg, runner: runner, echo: e, logger: logger}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.echo.POST("/api/v1/analyze", s.handleAnalyze)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Service: "finsense"})
}

// handleAnalyze validates the submission, runs the pipeline and
// returns the full record. A fatal pipeline error (stage 1) maps to
// 422 since it means the input couldn't be analyzed.
func (s *Server) handleAnalyze(c echo.Context) error {
	var req AnalyzeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid JSON payload"})
	}

	input := budget.Input{
		Region:        budget.ParseRegion(req.Region),
		MonthlyIncome: req.MonthlyIncome,
		Spending:      budget.Spending(req.Spending),
		Language:      budget.ParseLanguage(req.Language),
	}
	if err := input.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}

	rec := s.runner.Run(c.Request().Context(), input)
	if rec.Err != "" && len(rec.Trace) <= 1 {
		s.logger.Error("analysis failed before producing a record",
			zap.String("run_id", rec.RunID),
			zap.String("error", rec.Err))
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: rec.Err})
	}
	return c.JSON(http.StatusOK, rec)
}

// Start runs the server until ctx is cancelled, then shuts down
// gracefully within the configured timeout. Returns
// http.ErrServerClosed on clean shutdown.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	errCh := make(chan error, 1)
	go func() {
		if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server start: %w", err)
		}
	}()
	s.logger.Info("http server listening", zap.String("addr", addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return http.ErrServerClosed
	}
}

// Echo exposes the router for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
