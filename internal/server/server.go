package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"portal/internal/api_client"
	"portal/internal/config"
	"portal/internal/guard"
	"portal/internal/handler"
	"portal/internal/metrics"
	"portal/internal/middleware"
	"portal/internal/service"
	"portal/internal/session"
	"portal/internal/telemetry"
)

type Server struct {
	router  *gin.Engine
	cfg     *config.Config
	logger  *zap.Logger
	log     *logrus.Logger
	store   session.Store
	guard   *guard.Guard
	client  *api_client.Client
	metrics *metrics.Metrics
}

// NewServer wires the session store, guard, backend client and page
// handlers into a gin engine.
func NewServer(cfg *config.Config, logger *zap.Logger, log *logrus.Logger) (*Server, error) {
	store, err := session.NewCookieStore(session.Options{
		Name:   cfg.Session.CookieName,
		Secret: cfg.Session.CookieSecret,
		Secure: cfg.Session.CookieSecure,
		MaxAge: cfg.SessionMaxAge(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session store: %w", err)
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	renderer, err := handler.NewRenderer()
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.HTMLRender = renderer
	if err := router.SetTrustedProxies(nil); err != nil {
		return nil, fmt.Errorf("failed to configure trusted proxies: %w", err)
	}
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.AccessLog(log))

	s := &Server{
		router: router,
		cfg:    cfg,
		logger: logger,
		log:    log,
		store:  store,
		guard:  guard.New(m),
		client: api_client.NewClient(api_client.Options{
			BaseURL:    cfg.API.BaseURL,
			PathPrefix: cfg.API.PathPrefix,
			Timeout:    cfg.APITimeout(),
		}, logger, m),
		metrics: m,
	}

	s.setupRoutes()

	if cfg.Auth.DevLogin {
		logger.Warn("Development login is enabled; unsigned tokens can be minted from the login page")
	}
	if !store.Sealed() {
		logger.Info("Session cookie is not sealed; set session.cookie_secret to encrypt it")
	}
	return s, nil
}

func (s *Server) setupRoutes() {
	authService := service.NewAuthService(s.client, s.cfg.Auth.DevLogin, s.logger)
	authHandler := handler.NewAuthHandler(authService, s.store, s.cfg.Auth.DevLogin, s.log)
	portalHandler := handler.NewPortalHandler(s.client, s.log)
	adminHandler := handler.NewAdminHandler(s.client, s.log)

	// Health check route
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	// Public pages
	s.router.GET(guard.LoginPath, authHandler.LoginPage)
	s.router.POST(guard.LoginPath, authHandler.Login)
	s.router.POST("/login/dev", authHandler.DevLogin)
	s.router.GET("/register", authHandler.RegisterPage)
	s.router.POST("/register", authHandler.Register)
	s.router.GET("/reset-password", authHandler.ResetPasswordPage)
	s.router.POST("/reset-password/request", authHandler.RequestPasswordReset)
	s.router.POST("/reset-password/confirm", authHandler.ConfirmPasswordReset)
	s.router.POST("/logout", authHandler.Logout)

	// Pages for any signed-in user
	member := s.router.Group("/")
	member.Use(middleware.RequireSession(s.store, s.guard, guard.Member, s.logger))
	{
		member.GET(guard.UserLanding, portalHandler.Dashboard)
		member.GET("/courses", portalHandler.Courses)
		member.GET("/course/:id", portalHandler.Course)
		member.GET("/profile", portalHandler.Profile)
		member.POST("/profile", portalHandler.UpdateProfile)
		member.POST("/profile/password", portalHandler.UpdatePassword)
	}

	// Admin panel
	admin := s.router.Group(guard.AdminLanding)
	admin.Use(middleware.RequireSession(s.store, s.guard, guard.Elevated, s.logger))
	{
		admin.GET("", adminHandler.Panel)
		admin.POST("/users/:id/delete", adminHandler.DeleteUser)
		admin.POST("/courses", adminHandler.CreateCourse)
		admin.POST("/courses/:id/publish", adminHandler.SetCoursePublished)
		admin.POST("/courses/:id/delete", adminHandler.DeleteCourse)
		admin.POST("/modules", adminHandler.CreateModule)
		admin.POST("/modules/:id/delete", adminHandler.DeleteModule)
	}

	s.router.NoRoute(middleware.CatchAll(s.store, s.guard))
}

// Handler returns the traced HTTP handler of the portal.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.router, telemetry.ServiceName)
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr(),
		Handler:      s.Handler(),
		ReadTimeout:  time.Duration(s.cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(s.cfg.Server.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server starting", zap.String("addr", srv.Addr), zap.String("backend", s.cfg.API.BaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout())
	defer cancel()
	s.logger.Info("Server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
