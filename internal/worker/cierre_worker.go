package worker

// cierre_worker.go
// Processes closing-report jobs from QueueCierre: renders the PDF of the
// frozen closing summary and, when a supervisor address is configured,
// enqueues the email that carries it.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Caiocr8/sistema-pedidos-sub000/internal/infra"
	"github.com/Caiocr8/sistema-pedidos-sub000/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// CierreJobPayload is the job envelope sent to QueueCierre.
type CierreJobPayload struct {
	SesionCajaID string `json:"sesion_caja_id"`
}

// SesionFinder loads a session with its closing summary.
type SesionFinder interface {
	FindSesionByID(ctx context.Context, id uuid.UUID) (*model.SesionCaja, error)
}

// EmailEnqueuer is satisfied by *Dispatcher.
type EmailEnqueuer interface {
	EnqueueEmail(ctx context.Context, payload EmailJobPayload) error
}

type CierreWorker struct {
	sesiones       SesionFinder
	emails         EmailEnqueuer
	pdfStoragePath string
	notifyEmail    string
}

// NewCierreWorker wires the closing-report job. emails may be nil, and an
// empty notifyEmail disables mailing.
func NewCierreWorker(sesiones SesionFinder, emails EmailEnqueuer, pdfStoragePath, notifyEmail string) *CierreWorker {
	return &CierreWorker{
		sesiones:       sesiones,
		emails:         emails,
		pdfStoragePath: pdfStoragePath,
		notifyEmail:    notifyEmail,
	}
}

func (w *CierreWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload CierreJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("%w: payload inválido: %v", ErrPermanente, err)
	}
	id, err := uuid.Parse(payload.SesionCajaID)
	if err != nil {
		return fmt.Errorf("%w: sesion_caja_id inválido %q", ErrPermanente, payload.SesionCajaID)
	}

	ses, err := w.sesiones.FindSesionByID(ctx, id)
	if errors.Is(err, model.ErrNoEncontrado) {
		return fmt.Errorf("%w: sesión %s no existe", ErrPermanente, id)
	}
	if err != nil {
		return err
	}
	if ses.Abierta() || ses.ResumenCierre == nil {
		return fmt.Errorf("%w: sesión %s sin resumen de cierre", ErrPermanente, id)
	}

	pdfPath, err := infra.GenerateCierrePDF(ses.ResumenCierre, w.pdfStoragePath)
	if err != nil {
		return err
	}
	log.Info().Str("sesion_id", id.String()).Str("pdf", pdfPath).Msg("cierre_worker: PDF generated")

	if w.notifyEmail == "" || w.emails == nil {
		return nil
	}
	job := EmailJobPayload{
		ToEmail: w.notifyEmail,
		Subject: fmt.Sprintf("Cierre de caja %s (%s)", ses.UsuarioNombre, ses.ClosedAt.Format("2006-01-02 15:04")),
		Body:    resumenTexto(ses.ResumenCierre),
		PDFPath: pdfPath,
	}
	if err := w.emails.EnqueueEmail(ctx, job); err != nil {
		return err
	}
	log.Info().Str("sesion_id", id.String()).Str("to", w.notifyEmail).Msg("cierre_worker: email job enqueued")
	return nil
}

func resumenTexto(rep *model.ReporteArqueo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Operador: %s\n", rep.UsuarioNombre)
	fmt.Fprintf(&b, "Esperado efectivo: %s\n", rep.EsperadoEfectivo.StringFixed(2))
	fmt.Fprintf(&b, "Esperado otros medios: %s\n", rep.EsperadoNoEfectivo.StringFixed(2))
	if rep.Diferencia != nil {
		fmt.Fprintf(&b, "Diferencia: %s (%s, %s%%, %s)\n",
			rep.Diferencia.Monto.StringFixed(2), rep.Diferencia.Sentido,
			rep.Diferencia.Porcentaje.StringFixed(2), rep.Diferencia.Clasificacion)
	}
	if rep.Observaciones != nil {
		fmt.Fprintf(&b, "Observaciones: %s\n", *rep.Observaciones)
	}
	b.WriteString("\nSe adjunta el reporte de cierre en PDF.\n")
	return b.String()
}
