package infra

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "caja_"

const (
	ResultadoOK    = "ok"
	ResultadoError = "error"
)

var (
	metricsOnce sync.Once

	ledgerOps         *prometheus.CounterVec
	ledgerLatency     *prometheus.HistogramVec
	ledgerRetries     *prometheus.CounterVec
	cierresDesvio     *prometheus.CounterVec
	workerJobs        *prometheus.CounterVec
	eventosPublicados *prometheus.CounterVec
)

// InitMetrics registers the ledger collectors on the default registry. The
// Observe/Inc helpers are no-ops until it runs, so tests never need it.
func InitMetrics() {
	metricsOnce.Do(func() {
		ledgerOps = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "operaciones_total",
				Help: "Ledger operations by operation and result",
			},
			[]string{"operacion", "resultado"},
		)
		ledgerLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "operacion_latency_seconds",
				Help:    "Ledger operation latency in seconds, retries included",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operacion"},
		)
		ledgerRetries = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "tx_reintentos_total",
				Help: "Transactions retried after a transient conflict",
			},
			[]string{"operacion"},
		)
		cierresDesvio = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "cierres_total",
				Help: "Closed sessions by deviation classification",
			},
			[]string{"clasificacion"},
		)
		workerJobs = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "worker_jobs_total",
				Help: "Background jobs processed by type and result",
			},
			[]string{"tipo", "resultado"},
		)
		eventosPublicados = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "eventos_publicados_total",
				Help: "Ledger events published to subscribers by result",
			},
			[]string{"resultado"},
		)

		prometheus.MustRegister(
			ledgerOps,
			ledgerLatency,
			ledgerRetries,
			cierresDesvio,
			workerJobs,
			eventosPublicados,
		)
	})
}

// ObserveLedgerOp records one finished ledger operation.
func ObserveLedgerOp(operacion string, err error, d time.Duration) {
	resultado := ResultadoOK
	if err != nil {
		resultado = ResultadoError
	}
	if ledgerOps != nil {
		ledgerOps.WithLabelValues(operacion, resultado).Inc()
	}
	if ledgerLatency != nil {
		ledgerLatency.WithLabelValues(operacion).Observe(d.Seconds())
	}
}

func IncTxRetry(operacion string) {
	if ledgerRetries != nil {
		ledgerRetries.WithLabelValues(operacion).Inc()
	}
}

func IncCierre(clasificacion string) {
	if clasificacion == "" {
		clasificacion = "unknown"
	}
	if cierresDesvio != nil {
		cierresDesvio.WithLabelValues(clasificacion).Inc()
	}
}

func IncWorkerJob(tipo string, err error) {
	resultado := ResultadoOK
	if err != nil {
		resultado = ResultadoError
	}
	if workerJobs != nil {
		workerJobs.WithLabelValues(tipo, resultado).Inc()
	}
}

func IncEventoPublicado(err error) {
	resultado := ResultadoOK
	if err != nil {
		resultado = ResultadoError
	}
	if eventosPublicados != nil {
		eventosPublicados.WithLabelValues(resultado).Inc()
	}
}
