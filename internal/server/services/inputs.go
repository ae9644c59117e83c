package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/dmitrijs2005/hourbank/internal/common"
	"github.com/dmitrijs2005/hourbank/internal/cryptox"
	"github.com/go-playground/validator"
)

type RegisterInput struct {
	Name     string `json:"name" validate:"required,min=2,max=120"`
	Email    string `json:"email" validate:"required,email,max=254,institutional"`
	Password string `json:"password" validate:"required,min=8,bcryptlen"`
}

func (in *RegisterInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email,institutional"`
	Password string `json:"password" validate:"required,bcryptlen"`
}

func (in *LoginInput) normalize() {
	in.Email = normalizeEmail(in.Email)
}

type VerifyPinInput struct {
	Email string `json:"email" validate:"required,email"`
	Pin   string `json:"pin" validate:"required,len=6,numeric"`
}

func (in *VerifyPinInput) normalize() {
	in.Email = normalizeEmail(in.Email)
	in.Pin = strings.TrimSpace(in.Pin)
}

type ResendPinInput struct {
	Email string `json:"email" validate:"required,email"`
}

func (in *ResendPinInput) normalize() {
	in.Email = normalizeEmail(in.Email)
}

type ForgotPasswordInput struct {
	Email string `json:"email" validate:"required,email,institutional"`
}

func (in *ForgotPasswordInput) normalize() {
	in.Email = normalizeEmail(in.Email)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// inputValidator wraps go-playground/validator with the "institutional" and
// "bcryptlen" tags and Spanish field messages. bcryptlen limits the UTF-8 byte
// length, which max does not.
type inputValidator struct {
	v      *validator.Validate
	domain string
}

func newInputValidator(domain string) *inputValidator {
	domain = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(domain), "@"))

	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("institutional", func(fl validator.FieldLevel) bool {
		return strings.HasSuffix(strings.ToLower(fl.Field().String()), "@"+domain)
	})
	_ = v.RegisterValidation("bcryptlen", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= cryptox.MaxPasswordBytes
	})

	return &inputValidator{v: v, domain: domain}
}

// Struct validates in and converts failures into *common.ValidationError.
func (iv *inputValidator) Struct(in any) error {
	err := iv.v.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &common.ValidationError{Fields: []common.FieldError{{Field: "body", Message: err.Error()}}}
	}

	out := &common.ValidationError{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, common.FieldError{Field: fe.Field(), Message: iv.message(fe)})
	}
	return out
}

func (iv *inputValidator) message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Campo requerido"
	case "email":
		return "Correo electrónico inválido"
	case "institutional":
		return "Debe usar un correo del dominio @" + iv.domain
	case "min":
		return fmt.Sprintf("Debe tener al menos %s caracteres", fe.Param())
	case "max":
		return fmt.Sprintf("Debe tener como máximo %s caracteres", fe.Param())
	case "bcryptlen":
		return fmt.Sprintf("No puede superar %d bytes", cryptox.MaxPasswordBytes)
	case "len":
		return fmt.Sprintf("Debe tener exactamente %s caracteres", fe.Param())
	case "numeric":
		return "Debe contener solo dígitos"
	default:
		return "Valor inválido"
	}
}
