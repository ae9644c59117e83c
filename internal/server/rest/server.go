// Package rest exposes the auth workflow as a JSON HTTP API built on Fiber.
package rest

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/dmitrijs2005/hourbank/internal/logging"
	"github.com/dmitrijs2005/hourbank/internal/server/models"
	"github.com/dmitrijs2005/hourbank/internal/server/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "Banco de Horas API"

const shutdownTimeout = 10 * time.Second

// AuthService is the workflow the handlers drive.
type AuthService interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.User, error)
	Login(ctx context.Context, in services.LoginInput) (*services.LoginResult, error)
	VerifyPin(ctx context.Context, loginToken string, in services.VerifyPinInput) (*services.SessionResult, error)
	ResendPin(ctx context.Context, loginToken string, in services.ResendPinInput) (*services.LoginResult, error)
	VerifySession(ctx context.Context, sessionToken string) (*models.Profile, error)
	Logout(ctx context.Context, sessionToken string) error
	ForgotPassword(ctx context.Context, in services.ForgotPasswordInput) error
}

type Options struct {
	CORSOrigins      []string
	RateLimitMax     int
	AuthRateLimitMax int
	RateLimitWindow  time.Duration
	RequestTimeout   time.Duration
	// DevMode adds error details to 500 responses.
	DevMode bool
}

type Server struct {
	address string
	auth    AuthService
	logger  logging.Logger
	opts    Options
	app     *fiber.App
	now     func() time.Time
}

func NewServer(address string, l logging.Logger, svc AuthService, opts Options) *Server {
	s := &Server{
		address: address,
		auth:    svc,
		logger:  l.With("module", "http_server"),
		opts:    opts,
		now:     time.Now,
	}
	s.app = s.routes()
	return s
}

func (s *Server) routes() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               ServiceName,
		DisableStartupMessage: true,
		ErrorHandler:          s.errorHandler,
	})

	app.Use(requestid.New())
	app.Use(s.requestLogger)
	app.Use(recover.New())
	app.Use(helmet.New())
	if len(s.opts.CORSOrigins) > 0 {
		app.Use(cors.New(s.corsConfig()))
	}
	if s.opts.RateLimitMax > 0 {
		app.Use(s.rateLimiter(s.opts.RateLimitMax, msgTooManyRequests))
	}
	if s.opts.RequestTimeout > 0 {
		app.Use(s.requestTimeout)
	}

	api := app.Group("/api")
	api.Get("/health", s.health)

	authGroup := api.Group("/auth")
	if s.opts.AuthRateLimitMax > 0 {
		authGroup.Use(s.rateLimiter(s.opts.AuthRateLimitMax, msgTooManyAuthAttempts))
	}
	authGroup.Post("/register", s.register)
	authGroup.Post("/login", s.login)
	authGroup.Post("/verify-pin", bearer, s.verifyPin)
	authGroup.Post("/resend-pin", bearer, s.resendPin)
	authGroup.Get("/verify-session", bearer, s.verifySession)
	authGroup.Post("/logout", bearer, s.logout)
	authGroup.Post("/forgot-password", s.forgotPassword)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(messageResponse{Message: msgRouteNotFound})
	})

	return app
}

func (s *Server) corsConfig() cors.Config {
	origins := strings.Join(s.opts.CORSOrigins, ",")
	return cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		// browsers reject credentials with a wildcard origin
		AllowCredentials: origins != "*",
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {

	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	return s.app.Listener(listen)
}
