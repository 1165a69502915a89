package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/Formentera-Operations/workflow-tracker/internal/api"
	"github.com/Formentera-Operations/workflow-tracker/internal/auth"
	"github.com/Formentera-Operations/workflow-tracker/internal/config"
	"github.com/Formentera-Operations/workflow-tracker/internal/logging"
	"github.com/Formentera-Operations/workflow-tracker/internal/mcp"
	"github.com/Formentera-Operations/workflow-tracker/internal/notify"
	"github.com/Formentera-Operations/workflow-tracker/internal/repository"
	"github.com/Formentera-Operations/workflow-tracker/internal/services"
	"github.com/Formentera-Operations/workflow-tracker/internal/tls"
)

const serviceName = "workflow-tracker"

func serve(ctx context.Context, cfg *config.Config, logger *logging.Logger) error {
	if cfg.Auth.SwaggerClientID != "" && cfg.Auth.SwaggerClientID == cfg.Auth.ClientID {
		logger.Warn("Swagger client ID matches the backend client ID; PKCE sign-in from /docs will fail if the backend client requires a secret")
	}

	logger.Info("Starting Workflow Tracker")

	// Initialize database connection
	dbPool, err := initDatabase(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("database initialization failed: %w", err)
	}
	defer dbPool.Close()

	store := repository.NewPostgresStore(dbPool)
	if err := store.Migrate(ctx); err != nil {
		return err
	}
	logger.Info("Database connected")

	// Initialize service layer
	if cfg.Email.ResendAPIKey == "" {
		logger.Warn("email.resend_api_key is not set; submission emails will fail")
	}
	notifier := notify.NewResend(cfg.Email.ResendAPIKey, notify.Config{
		From:   cfg.Email.FromAddress,
		Admin:  cfg.Email.AdminAddress,
		AppURL: cfg.Email.AppURL,
	}, logger)
	workflowService := services.NewWorkflowService(store, notifier, logger, cfg.Settings.DefaultHourlyRate)

	logger.Info("Service layer initialized")

	// Initialize authentication
	authz, err := auth.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("auth initialization failed: %w", err)
	}
	requireAuth := echo.WrapMiddleware(authz.RequireAuth)

	// Create Echo server
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(otelecho.Middleware(serviceName))

	handler := api.NewHandler(store, workflowService)
	e.GET("/health", echo.WrapHandler(http.HandlerFunc(handler.HandleHealth)))
	e.Any("/api/notify", echo.WrapHandler(http.HandlerFunc(handler.HandleNotify)))

	// Register auth handlers
	e.GET("/login", echo.WrapHandler(http.HandlerFunc(authz.LoginHandler)))
	e.POST("/auth/login", echo.WrapHandler(http.HandlerFunc(authz.PasswordLoginHandler)))
	e.GET("/auth/callback", echo.WrapHandler(http.HandlerFunc(authz.CallbackHandler)))
	e.GET("/logout", echo.WrapHandler(http.HandlerFunc(authz.LogoutHandler)))
	e.POST("/logout", echo.WrapHandler(http.HandlerFunc(authz.LogoutHandler)))

	// Mount REST API handlers. Submissions are public; the rest of /api/v1
	// requires an admin session.
	apiServer := api.NewServer(workflowService, logger)
	e.POST("/api/v1/submissions", apiServer.SubmitWorkflow)
	apiGroup := e.Group("/api/v1", requireAuth)
	api.RegisterHandlers(apiGroup, apiServer)
	e.GET("/admin", func(c echo.Context) error {
		return c.Redirect(http.StatusSeeOther, "/api/v1/dashboard")
	}, requireAuth)

	logger.Info("REST API handlers mounted")

	// Mount MCP protocol handlers
	mcpServer := mcp.NewServer(workflowService, api.Version)
	mcpHandlers := http.NewServeMux()
	mcp.MountHTTPHandlers(mcpHandlers, mcpServer.GetMCPServer())
	e.Any("/mcp", echo.WrapHandler(mcpHandlers), requireAuth)
	e.Any("/mcp/*", echo.WrapHandler(mcpHandlers), requireAuth)

	logger.Info("MCP protocol handlers mounted")

	// expose OpenAPI spec (with runtime substitution) and Swagger UI
	e.GET("/openapi.yaml", echo.WrapHandler(api.SpecHandler(cfg.Auth.Issuer)))
	e.GET("/docs", echo.WrapHandler(api.SwaggerHandler(cfg.Auth.Issuer, cfg.Auth.SwaggerClientID)))
	e.GET("/docs/oauth2-redirect.html", echo.WrapHandler(api.OAuth2RedirectHandler()))

	// Create HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	if cfg.TLS.Enable {
		addr = fmt.Sprintf(":%d", cfg.Server.TLSPort)
	}
	server := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown handling
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "address", addr, "tls", cfg.TLS.Enable)
		if !cfg.TLS.Enable {
			serverErrors <- server.ListenAndServe()
			return
		}
		if cfg.TLS.CertFile == "" || cfg.TLS.KeyFile == "" {
			serverErrors <- errors.New("TLS enabled but cert/key file not provided")
			return
		}
		if len(cfg.TLS.Hostnames) > 0 {
			created, err := tls.EnsureCert(cfg.TLS.CertFile, cfg.TLS.KeyFile, cfg.TLS.Hostnames)
			if err != nil {
				logger.Error("failed to generate self-signed cert", "error", err)
			} else if created {
				logger.Info("Generated self-signed certificate", "cert", cfg.TLS.CertFile, "hosts", cfg.TLS.Hostnames)
			}
		}
		serverErrors <- server.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
	}()

	// Wait for shutdown signal
	shutdown, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-shutdown.Done():
		logger.Info("Shutdown signal received")

		// Create shutdown context with timeout
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
			if err := server.Close(); err != nil {
				logger.Error("Server close error", "error", err)
			}
		}

		logger.Info("Server stopped gracefully")
		return nil
	}
}
