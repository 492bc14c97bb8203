package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/config"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/core"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

// Automation is the application surface the HTTP API drives
type Automation interface {
	Run(ctx context.Context, service config.Service, address string) (*core.RunResult, error)
	Accounts() []config.Account
	InboxStats(ctx context.Context, service config.Service, address string, window time.Duration) (*core.InboxStats, error)
	RecentEmails(ctx context.Context, service config.Service, address string, window time.Duration, limit int) ([]core.Email, error)
	CountFromSender(ctx context.Context, service config.Service, address, term string, window time.Duration) (int, error)
	History(ctx context.Context, limit int) ([]core.RunRecord, error)
}

// Server is the HTTP trigger surface
type Server struct {
	cfg        config.ServerConfig
	automation Automation
	metrics    http.Handler
	version    string
	logger     *zap.Logger
	now        func() time.Time

	router *gin.Engine
	server *http.Server
	mu     sync.Mutex
	done   chan struct{}
}

// NewServer creates the API server. metrics may be nil.
func NewServer(cfg config.ServerConfig, automation Automation, metrics http.Handler, version string, logger *zap.Logger) *Server {
	s := &Server{
		cfg:        cfg,
		automation: automation,
		metrics:    metrics,
		version:    version,
		logger:     logger,
		now:        time.Now,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger(), cors())

	r.GET("/health", s.health)
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics))
	}

	api := r.Group("/api")
	api.POST("/check-emails", s.checkEmails)
	api.GET("/email-stats", s.emailStats)
	api.GET("/accounts", s.accounts)
	api.GET("/recent-emails", s.recentEmails)
	api.GET("/email-search", s.emailSearch)
	api.GET("/runs", s.runs)
	return r
}

// Handler returns the HTTP handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts listening in the background
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server != nil {
		return fmt.Errorf("API server already started")
	}

	ln, err := net.Listen("tcp", s.cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.ListenAddress, err)
	}

	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
	s.done = make(chan struct{})

	s.logger.Info("API server starting", zap.String("address", ln.Addr().String()))
	go func() {
		defer close(s.done)
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", zap.Error(err))
		}
	}()
	return nil
}

// Stop shuts the server down, letting in-flight runs finish
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := s.server.Shutdown(ctx)
	<-s.done
	s.server = nil
	if err != nil {
		return fmt.Errorf("failed to shut down API server: %w", err)
	}
	s.logger.Info("API server stopped")
	return nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "*")
		h.Set("Access-Control-Expose-Headers", "*")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
