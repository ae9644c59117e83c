package rest

import (
	"github.com/dmitrijs2005/hourbank/internal/common"
	"github.com/dmitrijs2005/hourbank/internal/server/models"
	"github.com/dmitrijs2005/hourbank/internal/server/services"
	"github.com/gofiber/fiber/v2"
)

const (
	msgRegistered     = "Usuario registrado exitosamente. Ahora puedes iniciar sesión."
	msgPinSent        = "PIN enviado al correo electrónico"
	msgAuthenticated  = "Autenticación exitosa"
	msgPinResent      = "Nuevo PIN enviado al correo electrónico"
	msgSessionValid   = "Sesión válida"
	msgLoggedOut      = "Sesión cerrada exitosamente"
	msgResetRequested = "Si el correo está registrado, recibirás un enlace de recuperación"
)

type loginResponse struct {
	Message string `json:"message"`
	Token   string `json:"token,omitempty"`
	DevPin  string `json:"devPin,omitempty"`
}

type sessionResponse struct {
	Message      string         `json:"message"`
	SessionToken string         `json:"sessionToken,omitempty"`
	User         models.Profile `json:"user"`
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Service   string `json:"service"`
}

// parseBody decodes the JSON body into in. A malformed body is a
// validation failure.
func parseBody(c *fiber.Ctx, in any) error {
	if err := c.BodyParser(in); err != nil {
		return common.NewValidationError("body", "JSON inválido")
	}
	return nil
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(healthResponse{
		Status:    "OK",
		Timestamp: s.now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Service:   ServiceName,
	})
}

func (s *Server) register(c *fiber.Ctx) error {
	var in services.RegisterInput
	if err := parseBody(c, &in); err != nil {
		return err
	}

	if _, err := s.auth.Register(c.UserContext(), in); err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(messageResponse{Message: msgRegistered})
}

func (s *Server) login(c *fiber.Ctx) error {
	var in services.LoginInput
	if err := parseBody(c, &in); err != nil {
		return err
	}

	res, err := s.auth.Login(c.UserContext(), in)
	if err != nil {
		return err
	}

	return c.JSON(loginResponse{Message: msgPinSent, Token: res.Token, DevPin: res.DevPin})
}

func (s *Server) verifyPin(c *fiber.Ctx) error {
	var in services.VerifyPinInput
	if err := parseBody(c, &in); err != nil {
		return err
	}

	res, err := s.auth.VerifyPin(c.UserContext(), bearerToken(c), in)
	if err != nil {
		return err
	}

	return c.JSON(sessionResponse{Message: msgAuthenticated, SessionToken: res.SessionToken, User: res.User})
}

func (s *Server) resendPin(c *fiber.Ctx) error {
	var in services.ResendPinInput
	if err := parseBody(c, &in); err != nil {
		return err
	}

	res, err := s.auth.ResendPin(c.UserContext(), bearerToken(c), in)
	if err != nil {
		return err
	}

	return c.JSON(loginResponse{Message: msgPinResent, DevPin: res.DevPin})
}

func (s *Server) verifySession(c *fiber.Ctx) error {
	profile, err := s.auth.VerifySession(c.UserContext(), bearerToken(c))
	if err != nil {
		return err
	}

	return c.JSON(sessionResponse{Message: msgSessionValid, User: *profile})
}

func (s *Server) logout(c *fiber.Ctx) error {
	if err := s.auth.Logout(c.UserContext(), bearerToken(c)); err != nil {
		return err
	}

	return c.JSON(messageResponse{Message: msgLoggedOut})
}

func (s *Server) forgotPassword(c *fiber.Ctx) error {
	var in services.ForgotPasswordInput
	if err := parseBody(c, &in); err != nil {
		return err
	}

	if err := s.auth.ForgotPassword(c.UserContext(), in); err != nil {
		return err
	}

	return c.JSON(messageResponse{Message: msgResetRequested})
}
