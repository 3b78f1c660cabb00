package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Caiocr8/sistema-pedidos-sub000/internal/model"

	"github.com/google/uuid"
)

// MemoryStore is a process-local CajaStore and VentaRepository. Transactions
// run one at a time under a store-wide mutex and their writes are staged until
// fn returns nil, so a failed transaction leaves no trace.
type MemoryStore struct {
	mu         sync.Mutex
	sesiones   map[uuid.UUID]model.SesionCaja
	movs       []model.MovimientoCaja
	ventas     map[uuid.UUID]model.Venta
	conflictos int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sesiones: make(map[uuid.UUID]model.SesionCaja),
		ventas:   make(map[uuid.UUID]model.Venta),
	}
}

// InjectConflicts makes the next n transactions fail with
// model.ErrConflictoTransitorio before running.
func (s *MemoryStore) InjectConflicts(n int) {
	s.mu.Lock()
	s.conflictos = n
	s.mu.Unlock()
}

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx CajaTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conflictos > 0 {
		s.conflictos--
		return fmt.Errorf("%w (inyectado)", model.ErrConflictoTransitorio)
	}

	tx := &memTx{
		store:    s,
		sesiones: make(map[uuid.UUID]model.SesionCaja),
		ventas:   make(map[uuid.UUID]model.Venta),
	}
	if err := fn(tx); err != nil {
		return err
	}
	for id, ses := range tx.sesiones {
		s.sesiones[id] = ses
	}
	for id, v := range tx.ventas {
		s.ventas[id] = v
	}
	s.movs = append(s.movs, tx.movs...)
	return nil
}

func (s *MemoryStore) FindSesionByID(_ context.Context, id uuid.UUID) (*model.SesionCaja, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ses, ok := s.sesiones[id]
	if !ok {
		return nil, model.ErrNoEncontrado
	}
	return &ses, nil
}

func (s *MemoryStore) FindSesionAbiertaPorUsuario(_ context.Context, usuarioID uuid.UUID) (*model.SesionCaja, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reader().FindSesionAbiertaPorUsuario(usuarioID)
}

func (s *MemoryStore) ListMovimientos(_ context.Context, sesionID uuid.UUID) ([]model.MovimientoCaja, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reader().ListMovimientos(sesionID)
}

func (s *MemoryStore) ListVentasPagadas(_ context.Context, sesionID uuid.UUID) ([]model.Venta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reader().ListVentasPagadas(sesionID)
}

func (s *MemoryStore) ListSesiones(_ context.Context, limit int) ([]model.SesionCaja, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.SesionCaja, 0, len(s.sesiones))
	for _, ses := range s.sesiones {
		out = append(out, ses)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenedAt.After(out[j].OpenedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Create(_ context.Context, v *model.Venta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ventas[v.ID]; ok {
		return fmt.Errorf("venta %s: %w", v.ID, model.ErrVentaDuplicada)
	}
	s.ventas[v.ID] = *v
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, id uuid.UUID) (*model.Venta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.ventas[id]
	if !ok {
		return nil, model.ErrNoEncontrado
	}
	return &v, nil
}

func (s *MemoryStore) Anular(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.ventas[id]
	if !ok {
		return model.ErrNoEncontrado
	}
	if err := estadoVentaPendiente(v.Estado); err != nil {
		return err
	}
	v.Estado = model.VentaAnulada
	s.ventas[id] = v
	return nil
}

// reader is a transaction with nothing staged, used for plain reads. The caller
// must hold s.mu.
func (s *MemoryStore) reader() *memTx { return &memTx{store: s} }

func estadoVentaPendiente(e model.EstadoVenta) error {
	switch e {
	case model.VentaPagada:
		return model.ErrVentaYaPagada
	case model.VentaAnulada:
		return model.ErrVentaAnulada
	}
	return nil
}

// ── memTx ─────────────────────────────────────────────────────────────────────

type memTx struct {
	store    *MemoryStore
	sesiones map[uuid.UUID]model.SesionCaja
	ventas   map[uuid.UUID]model.Venta
	movs     []model.MovimientoCaja
}

func (t *memTx) sesion(id uuid.UUID) (model.SesionCaja, bool) {
	if ses, ok := t.sesiones[id]; ok {
		return ses, true
	}
	ses, ok := t.store.sesiones[id]
	return ses, ok
}

func (t *memTx) venta(id uuid.UUID) (model.Venta, bool) {
	if v, ok := t.ventas[id]; ok {
		return v, true
	}
	v, ok := t.store.ventas[id]
	return v, ok
}

func (t *memTx) LockSesion(id uuid.UUID) (*model.SesionCaja, error) {
	ses, ok := t.sesion(id)
	if !ok {
		return nil, model.ErrNoEncontrado
	}
	return &ses, nil
}

func (t *memTx) FindSesionAbiertaPorUsuario(usuarioID uuid.UUID) (*model.SesionCaja, error) {
	for id := range t.store.sesiones {
		if _, staged := t.sesiones[id]; staged {
			continue
		}
		if ses := t.store.sesiones[id]; ses.UsuarioID == usuarioID && ses.Abierta() {
			return &ses, nil
		}
	}
	for _, ses := range t.sesiones {
		if ses.UsuarioID == usuarioID && ses.Abierta() {
			return &ses, nil
		}
	}
	return nil, model.ErrNoEncontrado
}

func (t *memTx) CreateSesion(s *model.SesionCaja) error {
	if _, ok := t.sesion(s.ID); ok {
		return fmt.Errorf("sesión %s duplicada", s.ID)
	}
	if s.Abierta() {
		if _, err := t.FindSesionAbiertaPorUsuario(s.UsuarioID); err == nil {
			return model.ErrSesionYaAbierta
		}
	}
	t.sesiones[s.ID] = *s
	return nil
}

func (t *memTx) UpdateSesion(s *model.SesionCaja) error {
	if _, ok := t.sesion(s.ID); !ok {
		return model.ErrNoEncontrado
	}
	t.sesiones[s.ID] = *s
	return nil
}

func (t *memTx) AppendMovimiento(m *model.MovimientoCaja) error {
	if _, ok := t.sesion(m.SesionCajaID); !ok {
		return model.ErrNoEncontrado
	}
	t.movs = append(t.movs, *m)
	return nil
}

func (t *memTx) ListMovimientos(sesionID uuid.UUID) ([]model.MovimientoCaja, error) {
	var out []model.MovimientoCaja
	for _, src := range [][]model.MovimientoCaja{t.store.movs, t.movs} {
		for _, m := range src {
			if m.SesionCajaID == sesionID {
				out = append(out, m)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Secuencia < out[j].Secuencia })
	return out, nil
}

func (t *memTx) ListVentasPagadas(sesionID uuid.UUID) ([]model.Venta, error) {
	var out []model.Venta
	seen := make(map[uuid.UUID]bool)
	collect := func(v model.Venta) {
		if seen[v.ID] {
			return
		}
		seen[v.ID] = true
		if v.Estado == model.VentaPagada && v.SesionCajaID != nil && *v.SesionCajaID == sesionID {
			out = append(out, v)
		}
	}
	for _, v := range t.ventas {
		collect(v)
	}
	for _, v := range t.store.ventas {
		collect(v)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PagadaAt != nil && out[j].PagadaAt != nil && out[i].PagadaAt.Before(*out[j].PagadaAt)
	})
	return out, nil
}

func (t *memTx) LockVenta(id uuid.UUID) (*model.Venta, error) {
	v, ok := t.venta(id)
	if !ok {
		return nil, model.ErrNoEncontrado
	}
	return &v, nil
}

func (t *memTx) MarcarVentaPagada(p model.PagoVenta) error {
	v, ok := t.venta(p.VentaID)
	if !ok {
		return model.ErrNoEncontrado
	}
	if err := estadoVentaPendiente(v.Estado); err != nil {
		return err
	}
	sesionID := p.SesionCajaID
	pagadaAt := p.PagadaAt
	v.Estado = model.VentaPagada
	v.SesionCajaID = &sesionID
	v.Descuento = p.Descuento
	v.Vuelto = p.Vuelto
	v.PagadaAt = &pagadaAt
	v.UpdatedAt = pagadaAt
	t.ventas[v.ID] = v
	return nil
}
