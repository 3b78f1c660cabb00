package service

import (
	"context"
	"time"

	"github.com/Caiocr8/sistema-pedidos-sub000/internal/infra"
	"github.com/Caiocr8/sistema-pedidos-sub000/internal/model"

	"github.com/google/uuid"
)

// ── Historial ─────────────────────────────────────────────────────────────────

func (s *cajaService) Historial(ctx context.Context, limit int) ([]model.SesionCaja, error) {
	if limit <= 0 {
		return nil, model.NewValidacion("limit", "debe ser mayor a cero")
	}
	if limit > s.cfg.HistorialMax {
		limit = s.cfg.HistorialMax
	}
	return s.store.ListSesiones(ctx, limit)
}

// ExportHistorial renders the most recent sessions as an XLSX workbook.
func (s *cajaService) ExportHistorial(ctx context.Context, limit int) ([]byte, error) {
	start := time.Now()
	sesiones, err := s.Historial(ctx, limit)
	if err != nil {
		return nil, err
	}
	data, err := infra.BuildHistorialXLSX(sesiones)
	infra.ObserveLedgerOp("export_historial", err, time.Since(start))
	return data, err
}

// ── ReporteParcial ────────────────────────────────────────────────────────────
// Mid-shift snapshot. Reads outside any transaction; a closed session returns
// its frozen closing summary.

func (s *cajaService) ReporteParcial(ctx context.Context, sesionID uuid.UUID) (*model.ReporteArqueo, error) {
	ses, err := s.GetSesion(ctx, sesionID)
	if err != nil {
		return nil, err
	}
	if !ses.Abierta() && ses.ResumenCierre != nil {
		return ses.ResumenCierre, nil
	}
	movs, err := s.store.ListMovimientos(ctx, ses.ID)
	if err != nil {
		return nil, err
	}
	ventas, err := s.store.ListVentasPagadas(ctx, ses.ID)
	if err != nil {
		return nil, err
	}
	rep := ConstruirReporte(ses, movs, ventas)
	return &rep, nil
}
