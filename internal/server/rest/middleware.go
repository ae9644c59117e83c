package rest

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/hourbank/internal/server/auth"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

const tokenKey = "bearer_token"

var errMissingToken = errors.New("missing bearer token")

// bearer extracts the token from the Authorization header. Which kind of
// token it must be is decided by the handler.
func bearer(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return errMissingToken
	}
	token, err := auth.BearerToken(header)
	if err != nil {
		return err
	}
	c.Locals(tokenKey, token)
	return c.Next()
}

func bearerToken(c *fiber.Ctx) string {
	token, _ := c.Locals(tokenKey).(string)
	return token
}

func (s *Server) requestTimeout(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), s.opts.RequestTimeout)
	defer cancel()
	c.SetUserContext(ctx)
	return c.Next()
}

func (s *Server) rateLimiter(max int, message string) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: s.opts.RateLimitWindow,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(messageResponse{Message: message})
		},
	})
}

// requestLogger renders handler errors itself so the logged status is the
// one sent to the client.
func (s *Server) requestLogger(c *fiber.Ctx) error {
	start := time.Now()

	if err := c.Next(); err != nil {
		if herr := c.App().ErrorHandler(c, err); herr != nil {
			_ = c.SendStatus(fiber.StatusInternalServerError)
		}
	}

	s.logger.Info(c.UserContext(), "request",
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"duration", time.Since(start),
		"request_id", c.Locals(requestid.ConfigDefault.ContextKey),
		"ip", c.IP(),
	)
	return nil
}
