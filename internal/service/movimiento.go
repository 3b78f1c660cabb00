package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Caiocr8/sistema-pedidos-sub000/internal/dto"
	"github.com/Caiocr8/sistema-pedidos-sub000/internal/model"
	"github.com/Caiocr8/sistema-pedidos-sub000/internal/repository"

	"github.com/google/uuid"
)

const minDescripcionManual = 3

// RegistrarMovimiento records a sangria or suprimento. Funds are checked
// against the balance read under the session lock, so concurrent sangrias can
// never overdraw the drawer together.
func (s *cajaService) RegistrarMovimiento(ctx context.Context, sesionID uuid.UUID, op dto.Operador, req dto.MovimientoManualRequest) (*model.MovimientoCaja, error) {
	tipo := model.TipoMovimiento(req.Tipo)
	if !tipo.Manual() {
		return nil, model.NewValidacion("tipo", fmt.Sprintf("%q no es un movimiento manual", req.Tipo))
	}
	if err := validarMonto("monto", req.Monto, true); err != nil {
		return nil, err
	}
	descripcion := strings.TrimSpace(req.Descripcion)
	if len([]rune(descripcion)) < minDescripcionManual {
		return nil, model.NewValidacion("descripcion", "requerida (mínimo 3 caracteres)")
	}

	var (
		sesion *model.SesionCaja
		mov    *model.MovimientoCaja
	)
	err := s.runTx(ctx, string(tipo), func(tx repository.CajaTx) error {
		ses, err := lockAbierta(tx, sesionID)
		if err != nil {
			return err
		}

		switch tipo {
		case model.MovSangria:
			if req.Monto.GreaterThan(ses.SaldoActual) {
				return fmt.Errorf("sangria de %s con saldo %s: %w",
					req.Monto.StringFixed(2), ses.SaldoActual.StringFixed(2), model.ErrFondosInsuficientes)
			}
			ses.SaldoActual = ses.SaldoActual.Sub(req.Monto)
		case model.MovSuprimento:
			ses.SaldoActual = ses.SaldoActual.Add(req.Monto)
		}

		mov = &model.MovimientoCaja{
			Tipo:        tipo,
			Monto:       req.Monto,
			Descripcion: descripcion,
			UsuarioID:   op.ID,
		}
		if err := s.appendMovimiento(tx, ses, mov); err != nil {
			return err
		}
		sesion = ses
		return tx.UpdateSesion(ses)
	})
	if err != nil {
		return nil, err
	}

	logMovimiento(string(tipo), sesion, mov)
	s.publish(ctx, eventoDe(sesion, mov))
	return mov, nil
}
