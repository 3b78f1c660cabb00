package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Caiocr8/sistema-pedidos-sub000/internal/infra"
	"github.com/Caiocr8/sistema-pedidos-sub000/internal/model"
	"github.com/Caiocr8/sistema-pedidos-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Money columns are DECIMAL(12,2); the closing totals are DECIMAL(15,2).
var (
	montoMaximo       = decimal.RequireFromString("9999999999.99")
	montoMaximoCierre = decimal.RequireFromString("9999999999999.99")
)

// EventPublisher receives ledger events after their transaction commits.
type EventPublisher interface {
	Publish(ctx context.Context, evt model.EventoCaja) error
}

// CierreDispatcher schedules the closing-report pipeline of a session.
type CierreDispatcher interface {
	EnqueueCierre(ctx context.Context, sesionID uuid.UUID) error
}

// LedgerConfig tunes the transactional core shared by the caja and venta
// services.
type LedgerConfig struct {
	MaxRetries   int
	RetryBase    time.Duration
	HistorialMax int
	// Now is the clock used for movement timestamps; time.Now when nil.
	Now func() time.Time
}

type ledger struct {
	store   repository.CajaStore
	events  EventPublisher
	cierres CierreDispatcher
	cfg     LedgerConfig
}

func newLedger(store repository.CajaStore, events EventPublisher, cierres CierreDispatcher, cfg LedgerConfig) ledger {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.HistorialMax <= 0 {
		cfg.HistorialMax = 100
	}
	return ledger{store: store, events: events, cierres: cierres, cfg: cfg}
}

func (l *ledger) now() time.Time {
	// Postgres keeps microseconds; truncating keeps memory and SQL runs identical.
	return l.cfg.Now().UTC().Truncate(time.Microsecond)
}

// runTx executes fn as one atomic unit, retrying transient conflicts with
// exponential backoff. fn must be safe to run more than once.
func (l *ledger) runTx(ctx context.Context, op string, fn func(tx repository.CajaTx) error) error {
	start := time.Now()
	err := l.retry(ctx, op, func() error { return l.store.WithinTx(ctx, fn) })
	infra.ObserveLedgerOp(op, err, time.Since(start))
	return err
}

func (l *ledger) retry(ctx context.Context, op string, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil || !model.Transitorio(err) {
			return err
		}
		if attempt >= l.cfg.MaxRetries {
			log.Warn().Err(err).Str("op", op).Int("intentos", attempt+1).
				Msg("ledger: reintentos agotados")
			return err
		}

		wait := l.cfg.RetryBase << uint(attempt)
		infra.IncTxRetry(op)
		log.Warn().Err(err).Str("op", op).Int("attempt", attempt+1).Dur("wait", wait).
			Msg("ledger: conflicto transitorio, reintentando")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s: %w", op, errors.Join(err, ctx.Err()))
		case <-timer.C:
		}
	}
}

// publish fans events out after commit. Failures are logged, never returned:
// the ledger state is already durable.
func (l *ledger) publish(ctx context.Context, evts ...model.EventoCaja) {
	if l.events == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for _, evt := range evts {
		if err := l.events.Publish(ctx, evt); err != nil {
			log.Warn().Err(err).Str("sesion_id", evt.SesionCajaID.String()).Str("tipo", string(evt.Tipo)).
				Msg("ledger: no se pudo publicar el evento")
		}
	}
}

// appendMovimiento stamps the next sequence on mov, appends it and advances
// the session counter. The caller persists ses afterwards.
func (l *ledger) appendMovimiento(tx repository.CajaTx, ses *model.SesionCaja, mov *model.MovimientoCaja) error {
	if ses.SaldoActual.GreaterThan(montoMaximo) {
		return model.NewValidacion("monto", "el saldo de caja superaría el máximo admitido ("+montoMaximo.StringFixed(2)+")")
	}
	ses.UltimaSecuencia++
	mov.ID = uuid.New()
	mov.SesionCajaID = ses.ID
	mov.Secuencia = ses.UltimaSecuencia
	if mov.CreatedAt.IsZero() {
		mov.CreatedAt = l.now()
	}
	return tx.AppendMovimiento(mov)
}

// lockAbierta locks the session and rejects it unless it is open.
func lockAbierta(tx repository.CajaTx, id uuid.UUID) (*model.SesionCaja, error) {
	ses, err := tx.LockSesion(id)
	if err != nil {
		if errors.Is(err, model.ErrNoEncontrado) {
			return nil, fmt.Errorf("sesión %s: %w", id, err)
		}
		return nil, err
	}
	if !ses.Abierta() {
		return nil, fmt.Errorf("sesión %s: %w", id, model.ErrSesionCerrada)
	}
	return ses, nil
}

func eventoDe(ses *model.SesionCaja, mov *model.MovimientoCaja) model.EventoCaja {
	id := mov.ID
	return model.EventoCaja{
		SesionCajaID: ses.ID,
		Tipo:         mov.Tipo,
		MovimientoID: &id,
		Monto:        mov.Monto,
		Saldo:        ses.SaldoActual,
		Estado:       ses.Estado,
		UsuarioID:    mov.UsuarioID,
		Fecha:        mov.CreatedAt,
	}
}

func logMovimiento(op string, ses *model.SesionCaja, mov *model.MovimientoCaja) {
	log.Info().
		Str("op", op).
		Str("sesion_id", ses.ID.String()).
		Int64("secuencia", mov.Secuencia).
		Str("tipo", string(mov.Tipo)).
		Str("monto", mov.Monto.StringFixed(2)).
		Str("saldo", ses.SaldoActual.StringFixed(2)).
		Msg("ledger: movimiento registrado")
}

func validarMonto(campo string, monto decimal.Decimal, positivo bool) error {
	if monto.IsNegative() {
		return model.NewValidacion(campo, "no puede ser negativo")
	}
	if positivo && monto.IsZero() {
		return model.NewValidacion(campo, "debe ser mayor a cero")
	}
	if monto.Exponent() < -2 && !monto.Equal(monto.Round(2)) {
		return model.NewValidacion(campo, "admite como máximo dos decimales")
	}
	if monto.GreaterThan(montoMaximo) {
		return model.NewValidacion(campo, "supera el máximo admitido ("+montoMaximo.StringFixed(2)+")")
	}
	return nil
}
