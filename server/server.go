// Package server is the HTTP front of voicenotes: a gin engine behind an
// h2c-capable http.Server with the standard middleware stack, JSON response
// helpers and the health endpoints.
package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kbukum/voicenotes/errors"
	"github.com/kbukum/voicenotes/logger"
	"github.com/kbukum/voicenotes/observability"
	"github.com/kbukum/voicenotes/server/endpoint"
	"github.com/kbukum/voicenotes/server/middleware"
)

// Server serves the gin engine over HTTP/1.1 and cleartext HTTP/2.
type Server struct {
	cfg        Config
	log        *logger.Logger
	engine     *gin.Engine
	httpServer *http.Server

	mu       sync.Mutex
	listener net.Listener
}

// New builds the engine and wraps it with recovery, request id, CORS, body
// limit and request logging.
func New(cfg Config, log *logger.Logger) *Server {
	cfg.ApplyDefaults()
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	log = log.WithComponent("server")

	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	engine.Use(middleware.RequestMetrics(observability.DefaultMetrics()))
	engine.NoRoute(func(c *gin.Context) {
		RespondWithError(c, errors.NotFound("route", c.Request.URL.Path))
	})
	engine.NoMethod(func(c *gin.Context) {
		err := errors.New(errors.ErrCodeInvalidInput, "Method not allowed.", http.StatusMethodNotAllowed)
		RespondWithError(c, err)
	})

	stack := middleware.Chain(
		middleware.Recovery(log),
		middleware.RequestID(),
		middleware.CORS(cfg.CORS),
		middleware.BodySizeLimit(cfg.MaxBodySize),
		middleware.RequestLogger(log),
	)
	h2s := &http2.Server{MaxConcurrentStreams: 250, IdleTimeout: cfg.IdleTimeout}

	return &Server{
		cfg:    cfg,
		log:    log,
		engine: engine,
		httpServer: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           h2c.NewHandler(stack(engine), h2s),
			ReadHeaderTimeout: cfg.ReadTimeout,
			ReadTimeout:       cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
		},
	}
}

// Engine returns the gin engine for route registration.
func (s *Server) Engine() *gin.Engine { return s.engine }

// Handler is the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// RegisterDefaultEndpoints adds /health, /alive and /info.
func (s *Server) RegisterDefaultEndpoints(serviceName string, checker endpoint.HealthChecker) {
	s.engine.GET("/health", endpoint.Health(serviceName, checker))
	s.engine.GET("/alive", endpoint.Liveness(serviceName))
	s.engine.GET("/info", endpoint.Info(serviceName))
}

// Start binds the port and serves in the background. It returns once the
// listener is bound.
func (s *Server) Start(context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server failed to bind %s: %w", s.httpServer.Addr, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			s.log.Error("Server error", logger.ErrorFields("serve", err))
		}
	}()
	s.log.Info("HTTP server started", logger.Fields("addr", ln.Addr().String()))
	return nil
}

// Stop drains in-flight requests within the shutdown timeout.
func (s *Server) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()
	start := time.Now()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.log.Error("Server shutdown error", logger.ErrorFields("shutdown", err))
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.log.Info("HTTP server stopped", logger.DurationFields("shutdown", time.Since(start)))
	return nil
}

// Addr returns the bound address once started, otherwise the configured one.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}
