package worker

// email_worker.go
// Processes email jobs from QueueEmail. Every send goes through the circuit
// breaker so a dead SMTP relay fails fast instead of tying up workers.

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Caiocr8/sistema-pedidos-sub000/internal/infra"

	"github.com/rs/zerolog/log"
)

// EmailJobPayload is the job envelope sent to QueueEmail.
type EmailJobPayload struct {
	ToEmail string `json:"to_email"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	PDFPath string `json:"pdf_path"`
}

// CierreMailer is satisfied by *infra.Mailer.
type CierreMailer interface {
	SendCierre(to, subject, body, pdfPath string) error
}

type EmailWorker struct {
	mailer CierreMailer
	cb     *infra.CircuitBreaker
}

func NewEmailWorker(mailer CierreMailer, cb *infra.CircuitBreaker) *EmailWorker {
	return &EmailWorker{mailer: mailer, cb: cb}
}

func (w *EmailWorker) Process(_ context.Context, raw json.RawMessage) error {
	var payload EmailJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("%w: payload inválido: %v", ErrPermanente, err)
	}
	if payload.ToEmail == "" {
		log.Warn().Msg("email_worker: empty to_email, skipping")
		return nil
	}

	err := w.cb.Execute(func() error {
		return w.mailer.SendCierre(payload.ToEmail, payload.Subject, payload.Body, payload.PDFPath)
	})
	if err != nil {
		log.Error().Err(err).Str("to", payload.ToEmail).Str("breaker", w.cb.State().String()).
			Msg("email_worker: failed to send email")
		return err
	}
	log.Info().Str("to", payload.ToEmail).Msg("email_worker: closing report sent")
	return nil
}
