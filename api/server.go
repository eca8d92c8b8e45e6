// Package api serves the gateway over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/gaurav-prasanna/pagegate/core"
	"github.com/gaurav-prasanna/pagegate/core/gateway"
	"github.com/gaurav-prasanna/pagegate/core/registry"
)

// Version is reported by /health.
const Version = "1.0.0"

// Rescanner reruns discovery and returns the newly published snapshot.
type Rescanner func(ctx context.Context) (*registry.Snapshot, error)

// Server exposes a gateway as a JSON API.
type Server struct {
	gateway  *gateway.Gateway
	rescan   Rescanner
	metrics  http.Handler
	httpM    *HTTPMetrics
	origins  []string
	logger   zerolog.Logger
	router   *gin.Engine
	appeared time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithRescan enables POST /capabilities/rescan.
func WithRescan(fn Rescanner) Option {
	return func(s *Server) { s.rescan = fn }
}

// WithMetrics serves h at /metrics and records request metrics into m.
func WithMetrics(h http.Handler, m *HTTPMetrics) Option {
	return func(s *Server) {
		s.metrics = h
		s.httpM = m
	}
}

// WithCORSOrigins allows browser calls from the given origins.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) { s.origins = origins }
}

// New builds the router for gw.
func New(gw *gateway.Gateway, opts ...Option) *Server {
	s := &Server{gateway: gw, logger: zerolog.Nop(), appeared: time.Now()}
	for _, opt := range opts {
		opt(s)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(s.logger))
	if s.httpM != nil {
		r.Use(s.httpM.Middleware())
	}
	if len(s.origins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: s.origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost},
			AllowHeaders: []string{"Origin", "Content-Type"},
			MaxAge:       12 * time.Hour,
		}))
	}
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})
	s.router = r
	s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() {
	s.router.GET("/health", s.health)
	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics))
	}

	caps := s.router.Group("/capabilities")
	caps.GET("", s.list)
	caps.GET("/:name/contract", s.contract)
	caps.GET("/:name/schema", s.schema)
	caps.POST("/invoke", s.invoke)
	caps.POST("/rescan", s.rescanHandler)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"uptime":       time.Since(s.appeared).String(),
		"capabilities": len(s.gateway.ListCapabilities()),
		"version":      Version,
	})
}

func (s *Server) list(c *gin.Context) {
	c.JSON(http.StatusOK, s.gateway.ListCapabilities())
}

func (s *Server) contract(c *gin.Context) {
	d, err := s.gateway.GetContract(c.Param("name"))
	if err != nil {
		notFound(c)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (s *Server) schema(c *gin.Context) {
	schema, err := s.gateway.Schema(c.Param("name"))
	if err != nil {
		notFound(c)
		return
	}
	c.JSON(http.StatusOK, schema)
}

func (s *Server) invoke(c *gin.Context) {
	var req gateway.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("malformed request body: %v", err),
			"kind":  core.KindValidation,
		})
		return
	}

	res := s.gateway.Invoke(c.Request.Context(), req)
	c.JSON(StatusFor(res), res)
}

func (s *Server) rescanHandler(c *gin.Context) {
	if s.rescan == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "rescan is not configured", "kind": core.KindDiscovery})
		return
	}
	snap, err := s.rescan(c.Request.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("rescan failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "kind": core.KindDiscovery})
		return
	}
	c.JSON(http.StatusOK, gin.H{"capabilities": snap.Names()})
}

// StatusFor maps an invocation result to its HTTP status.
func StatusFor(res gateway.Result) int {
	f := res.Failure()
	if f == nil {
		return http.StatusOK
	}
	switch f.Kind {
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindValidation, core.KindMissingInput:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "not found", "kind": core.KindNotFound})
}

// Serve listens on addr until ctx is done, then drains in-flight requests
// for at most shutdownTimeout.
func (s *Server) Serve(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info().Msg("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}
