// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Courier Contributors

package httpapi

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/oops"

	"github.com/courierchat/courier/internal/auth"
	"github.com/courierchat/courier/internal/messaging"
	"github.com/courierchat/courier/internal/observability"
)

// AuthService is the authentication surface the API depends on.
type AuthService interface {
	Register(ctx context.Context, username, displayName, password string) (*auth.User, error)
	Login(ctx context.Context, username, password string) (*auth.Session, string, error)
	ResolveToken(ctx context.Context, token string) (*auth.User, error)
	Logout(ctx context.Context, token string) error
	SearchUsers(ctx context.Context, query string, limit int) ([]*auth.User, error)
	SessionTTL() time.Duration
}

// MessageService is the messaging surface the API depends on.
type MessageService interface {
	Send(ctx context.Context, senderID, recipientID uuid.UUID, content string) (*messaging.Message, error)
	Conversation(ctx context.Context, userID, otherID uuid.UUID, limit int) ([]*messaging.Message, error)
	Conversations(ctx context.Context, userID uuid.UUID) ([]*messaging.ConversationSummary, error)
}

// Options configures the API server.
type Options struct {
	Addr         string
	CookieName   string
	CookieSecure bool
	CORSOrigins  []string
	Metrics      *observability.Metrics
	Logger       *slog.Logger
}

// Server serves the courier HTTP API.
type Server struct {
	addr         string
	cookieName   string
	cookieSecure bool
	engine       *gin.Engine
	listener     net.Listener
	httpServer   *http.Server
	authSvc      AuthService
	messageSvc   MessageService
	metrics      *observability.Metrics
	logger       *slog.Logger
	running      atomic.Bool
}

// NewServer creates an API server wired to the given services.
func NewServer(authSvc AuthService, messageSvc MessageService, opts Options) (*Server, error) {
	if authSvc == nil {
		return nil, oops.Errorf("auth service is required")
	}
	if messageSvc == nil {
		return nil, oops.Errorf("message service is required")
	}
	if opts.Addr == "" {
		return nil, oops.Errorf("listen address is required")
	}
	if opts.CookieName == "" {
		return nil, oops.Errorf("cookie name is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		addr:         opts.Addr,
		cookieName:   opts.CookieName,
		cookieSecure: opts.CookieSecure,
		authSvc:      authSvc,
		messageSvc:   messageSvc,
		metrics:      opts.Metrics,
		logger:       logger,
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(s.requestLogger())

	if len(opts.CORSOrigins) > 0 {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = opts.CORSOrigins
		// Cookie auth requires credentialed CORS requests.
		corsConfig.AllowCredentials = true
		corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
		engine.Use(cors.New(corsConfig))
	}

	s.registerRoutes(engine)
	s.engine = engine

	return s, nil
}

// Handler returns the HTTP handler, exposed for httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) registerRoutes(engine *gin.Engine) {
	engine.GET("/health", s.handleHealth)

	api := engine.Group("/api")
	{
		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/register", s.handleRegister)
			authRoutes.POST("/login", s.handleLogin)
			authRoutes.POST("/logout", s.handleLogout)
		}

		protected := api.Group("")
		protected.Use(s.RequireSession())
		{
			protected.GET("/users/me", s.handleMe)
			protected.GET("/users/search", s.handleSearchUsers)
			protected.POST("/messages", s.handleSendMessage)
			protected.GET("/messages/:user_id", s.handleConversation)
			protected.GET("/conversations", s.handleConversations)
		}
	}
}

// requestLogger logs one line per request at debug level.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// Start begins serving the API. It returns an error channel that receives
// any serve error after startup; the channel is closed on graceful stop.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("api server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)

	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			s.logger.Error("api server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("api server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the API server.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.With("operation", "shutdown_api_server").Wrap(err)
		}
	}

	s.logger.Info("api server stopped")
	return nil
}

// Addr returns the address the server is listening on.
// Returns empty string if not running.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "courier",
	})
}
