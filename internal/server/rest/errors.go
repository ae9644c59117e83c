package rest

import (
	"errors"

	"github.com/dmitrijs2005/hourbank/internal/common"
	"github.com/gofiber/fiber/v2"
)

const (
	msgInvalidInput        = "Datos inválidos"
	msgInvalidCredentials  = "Credenciales incorrectas"
	msgAccountDisabled     = "Cuenta desactivada"
	msgInvalidPin          = "Código PIN incorrecto"
	msgPinExpired          = "Código PIN expirado"
	msgSessionInvalid      = "Sesión inválida"
	msgTokenRequired       = "Token de acceso requerido"
	msgInvalidToken        = "Token inválido"
	msgTooManyPinAttempts  = "Demasiados intentos de verificación, intente nuevamente más tarde."
	msgTooManyRequests     = "Demasiadas solicitudes desde esta IP, intente nuevamente más tarde."
	msgTooManyAuthAttempts = "Demasiados intentos de autenticación, intente nuevamente más tarde."
	msgDuplicateEmail      = "El correo ya está registrado"
	msgUserNotFound        = "Usuario no encontrado"
	msgMailDelivery        = "Error enviando código de verificación"
	msgInternal            = "Error interno del servidor"
	msgRouteNotFound       = "Endpoint no encontrado"
)

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Message string              `json:"message"`
	Errors  []common.FieldError `json:"errors,omitempty"`
	Error   string              `json:"error,omitempty"`
}

var statusByError = []struct {
	err     error
	status  int
	message string
}{
	{common.ErrInvalidCredentials, fiber.StatusUnauthorized, msgInvalidCredentials},
	{common.ErrAccountDisabled, fiber.StatusUnauthorized, msgAccountDisabled},
	{common.ErrInvalidPin, fiber.StatusUnauthorized, msgInvalidPin},
	{common.ErrPinExpired, fiber.StatusUnauthorized, msgPinExpired},
	{common.ErrSessionInvalid, fiber.StatusUnauthorized, msgSessionInvalid},
	{errMissingToken, fiber.StatusUnauthorized, msgTokenRequired},
	{common.ErrInvalidToken, fiber.StatusUnauthorized, msgInvalidToken},
	{common.ErrTooManyAttempts, fiber.StatusTooManyRequests, msgTooManyPinAttempts},
	{common.ErrDuplicateEmail, fiber.StatusConflict, msgDuplicateEmail},
	{common.ErrorNotFound, fiber.StatusNotFound, msgUserNotFound},
}

// errorHandler turns workflow errors into the JSON bodies clients expect.
// Internal details are only exposed in dev mode.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var verr *common.ValidationError
	if errors.As(err, &verr) {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Message: msgInvalidInput, Errors: verr.Fields})
	}

	if !errors.Is(err, common.ErrorInternal) {
		for _, m := range statusByError {
			if errors.Is(err, m.err) {
				return c.Status(m.status).JSON(messageResponse{Message: m.message})
			}
		}
	}

	var ferr *fiber.Error
	if errors.As(err, &ferr) && ferr.Code < fiber.StatusInternalServerError {
		return c.Status(ferr.Code).JSON(messageResponse{Message: ferr.Message})
	}

	s.logger.Error(c.UserContext(), "request failed", "path", c.Path(), "error", err)

	resp := errorResponse{Message: msgInternal}
	if errors.Is(err, common.ErrMailDelivery) {
		resp.Message = msgMailDelivery
	}
	if s.opts.DevMode {
		resp.Error = err.Error()
	}
	return c.Status(fiber.StatusInternalServerError).JSON(resp)
}
