package repository

import (
	"errors"
	"fmt"

	"github.com/Caiocr8/sistema-pedidos-sub000/internal/model"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// IndiceSesionAbierta is the partial unique index that allows a single open
// session per operator.
const IndiceSesionAbierta = "uq_sesion_abierta_por_usuario"

// pkVentas is the primary key hit when two inserts reuse a client-chosen id.
const pkVentas = "ventas_pkey"

// Postgres SQLSTATEs that signal contention rather than a bad request.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
	pgUniqueViolation      = "23505"
	pgNumericOutOfRange    = "22003"
)

// traducirError maps driver errors onto the ledger taxonomy. Errors that are
// already domain errors pass through untouched.
func traducirError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.ErrNoEncontrado
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
			return fmt.Errorf("%w (sqlstate %s)", model.ErrConflictoTransitorio, pgErr.Code)
		case pgUniqueViolation:
			switch pgErr.ConstraintName {
			case IndiceSesionAbierta:
				return model.ErrSesionYaAbierta
			case pkVentas:
				return model.ErrVentaDuplicada
			}
		case pgNumericOutOfRange:
			return model.NewValidacion("monto", "valor fuera del rango admitido")
		}
	}
	return err
}
