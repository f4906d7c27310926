package services

import (
	"errors"

	"gorm.io/gorm"
)

// Common service errors
var (
	ErrNotFound           = errors.New("registro no encontrado")
	ErrInvalidState       = errors.New("transición de estado inválida")
	ErrInvalidCode        = errors.New("código OTP inválido")
	ErrExpiredCode        = errors.New("código OTP expirado")
	ErrUnauthorized       = errors.New("no autorizado")
	ErrInvalidCredentials = errors.New("credenciales inválidas")
	ErrInvalidInput       = errors.New("datos inválidos")
)

// Reason codes returned to callers alongside a rejection
const (
	ReasonInvalidCode  = "invalid_code"
	ReasonExpiredCode  = "expired_code"
	ReasonInvalidState = "invalid_state"
)

// notFound maps a missing row to ErrNotFound and leaves other errors intact
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
