package model

import (
	"errors"
	"fmt"
)

// Ledger error taxonomy. Services wrap these with context; callers match them
// with errors.Is.
var (
	ErrSesionYaAbierta      = errors.New("ya existe una caja abierta para este operador")
	ErrSesionCerrada        = errors.New("la sesión de caja no está abierta")
	ErrFondosInsuficientes  = errors.New("saldo en efectivo insuficiente")
	ErrNoEncontrado         = errors.New("recurso no encontrado")
	ErrConflictoTransitorio = errors.New("conflicto de concurrencia, reintente")
	ErrValidacion           = errors.New("datos inválidos")
	ErrVentaYaPagada        = errors.New("la venta ya fue pagada")
	ErrVentaAnulada         = errors.New("la venta está anulada")
	ErrVentaDuplicada       = errors.New("ya existe una venta con ese id")
)

// ValidacionError reports malformed input on a single field.
type ValidacionError struct {
	Campo   string
	Mensaje string
}

func (e *ValidacionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Campo, e.Mensaje)
}

func (e *ValidacionError) Is(target error) bool { return target == ErrValidacion }

func NewValidacion(campo, mensaje string) error {
	return &ValidacionError{Campo: campo, Mensaje: mensaje}
}

// Transitorio reports whether err is worth retrying.
func Transitorio(err error) bool { return errors.Is(err, ErrConflictoTransitorio) }
