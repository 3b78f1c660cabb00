package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Caiocr8/sistema-pedidos-sub000/internal/dto"
	"github.com/Caiocr8/sistema-pedidos-sub000/internal/model"
	"github.com/Caiocr8/sistema-pedidos-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type CajaService interface {
	Abrir(ctx context.Context, op dto.Operador, req dto.AbrirCajaRequest) (*model.SesionCaja, error)
	// GetActiva returns nil (and no error) when the operator has no open session.
	GetActiva(ctx context.Context, usuarioID uuid.UUID) (*model.SesionCaja, error)
	GetSesion(ctx context.Context, id uuid.UUID) (*model.SesionCaja, error)
	Relevar(ctx context.Context, sesionID uuid.UUID, op dto.Operador, req dto.RelevoRequest) (*model.SesionCaja, error)
	RegistrarMovimiento(ctx context.Context, sesionID uuid.UUID, op dto.Operador, req dto.MovimientoManualRequest) (*model.MovimientoCaja, error)
	Arqueo(ctx context.Context, sesionID uuid.UUID, op dto.Operador, req dto.ArqueoRequest) (*model.ReporteArqueo, error)
	ReporteParcial(ctx context.Context, sesionID uuid.UUID) (*model.ReporteArqueo, error)
	ListMovimientos(ctx context.Context, sesionID uuid.UUID) ([]model.MovimientoCaja, error)
	Historial(ctx context.Context, limit int) ([]model.SesionCaja, error)
	ExportHistorial(ctx context.Context, limit int) ([]byte, error)
}

type cajaService struct {
	ledger
}

func NewCajaService(store repository.CajaStore, events EventPublisher, cierres CierreDispatcher, cfg LedgerConfig) CajaService {
	return &cajaService{ledger: newLedger(store, events, cierres, cfg)}
}

// ── Abrir ─────────────────────────────────────────────────────────────────────
// One open session per operator. The check and the insert share a transaction
// and the partial unique index backs it up under concurrency.

func (s *cajaService) Abrir(ctx context.Context, op dto.Operador, req dto.AbrirCajaRequest) (*model.SesionCaja, error) {
	if op.ID == uuid.Nil {
		return nil, model.NewValidacion("usuario_id", "operador requerido")
	}
	if strings.TrimSpace(op.Nombre) == "" {
		return nil, model.NewValidacion("usuario_nombre", "operador requerido")
	}
	if err := validarMonto("monto_inicial", req.MontoInicial, false); err != nil {
		return nil, err
	}

	var (
		sesion *model.SesionCaja
		mov    *model.MovimientoCaja
	)
	err := s.runTx(ctx, "abrir", func(tx repository.CajaTx) error {
		if _, err := tx.FindSesionAbiertaPorUsuario(op.ID); err == nil {
			return model.ErrSesionYaAbierta
		} else if !errors.Is(err, model.ErrNoEncontrado) {
			return err
		}

		now := s.now()
		sesion = &model.SesionCaja{
			ID:            uuid.New(),
			UsuarioID:     op.ID,
			UsuarioNombre: strings.TrimSpace(op.Nombre),
			MontoInicial:  req.MontoInicial,
			SaldoActual:   req.MontoInicial,
			Estado:        model.SesionAbierta,
			OpenedAt:      now,
		}
		// The session row must exist before its first movement references it.
		if err := tx.CreateSesion(sesion); err != nil {
			return err
		}
		mov = &model.MovimientoCaja{
			Tipo:        model.MovApertura,
			Monto:       req.MontoInicial,
			Descripcion: "apertura de caja",
			UsuarioID:   op.ID,
			CreatedAt:   now,
		}
		if err := s.appendMovimiento(tx, sesion, mov); err != nil {
			return err
		}
		return tx.UpdateSesion(sesion)
	})
	if err != nil {
		return nil, err
	}

	logMovimiento("abrir", sesion, mov)
	s.publish(ctx, eventoDe(sesion, mov))
	return sesion, nil
}

// ── Consultas ─────────────────────────────────────────────────────────────────

func (s *cajaService) GetActiva(ctx context.Context, usuarioID uuid.UUID) (*model.SesionCaja, error) {
	ses, err := s.store.FindSesionAbiertaPorUsuario(ctx, usuarioID)
	if errors.Is(err, model.ErrNoEncontrado) {
		return nil, nil
	}
	return ses, err
}

func (s *cajaService) GetSesion(ctx context.Context, id uuid.UUID) (*model.SesionCaja, error) {
	ses, err := s.store.FindSesionByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("sesión %s: %w", id, err)
	}
	return ses, nil
}

// ── Relevar ───────────────────────────────────────────────────────────────────
// Operator handoff without closing the drawer: only the display name changes,
// with a zero-amount audit movement.

func (s *cajaService) Relevar(ctx context.Context, sesionID uuid.UUID, op dto.Operador, req dto.RelevoRequest) (*model.SesionCaja, error) {
	nuevo := strings.TrimSpace(req.UsuarioNombre)
	if nuevo == "" {
		return nil, model.NewValidacion("usuario_nombre", "requerido")
	}

	var (
		sesion *model.SesionCaja
		mov    *model.MovimientoCaja
	)
	err := s.runTx(ctx, "relevar", func(tx repository.CajaTx) error {
		ses, err := lockAbierta(tx, sesionID)
		if err != nil {
			return err
		}
		anterior := ses.UsuarioNombre
		ses.UsuarioNombre = nuevo
		mov = &model.MovimientoCaja{
			Tipo:        model.MovRelevo,
			Descripcion: fmt.Sprintf("relevo: %s -> %s", anterior, nuevo),
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

	logMovimiento("relevar", sesion, mov)
	s.publish(ctx, eventoDe(sesion, mov))
	return sesion, nil
}

func (s *cajaService) ListMovimientos(ctx context.Context, sesionID uuid.UUID) ([]model.MovimientoCaja, error) {
	if _, err := s.GetSesion(ctx, sesionID); err != nil {
		return nil, err
	}
	return s.store.ListMovimientos(ctx, sesionID)
}

func (s *cajaService) enqueueCierre(ctx context.Context, sesionID uuid.UUID) {
	if s.cierres == nil {
		return
	}
	if err := s.cierres.EnqueueCierre(context.WithoutCancel(ctx), sesionID); err != nil {
		log.Error().Err(err).Str("sesion_id", sesionID.String()).Msg("caja: no se pudo encolar el reporte de cierre")
	}
}
