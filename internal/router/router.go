package router

import (
	"time"

	"github.com/Caiocr8/sistema-pedidos-sub000/internal/config"
	"github.com/Caiocr8/sistema-pedidos-sub000/internal/handler"
	"github.com/Caiocr8/sistema-pedidos-sub000/internal/infra"
	"github.com/Caiocr8/sistema-pedidos-sub000/internal/middleware"
	"github.com/Caiocr8/sistema-pedidos-sub000/internal/repository"
	"github.com/Caiocr8/sistema-pedidos-sub000/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the storage and infrastructure pieces chosen by main.
type Deps struct {
	Store    repository.CajaStore
	Ventas   repository.VentaRepository
	Eventos  infra.EventBus
	Cierres  service.CierreDispatcher // nil disables the closing-report pipeline
	MailerCB *infra.CircuitBreaker
	Checks   []handler.HealthCheck
}

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, d Deps) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.CORSOrigin))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(cfg.RateLimitRPM, time.Minute))

	// ── Services ─────────────────────────────────────────────────────────────
	ledgerCfg := service.LedgerConfig{
		MaxRetries:   cfg.TxMaxRetries,
		RetryBase:    cfg.TxRetryBase(),
		HistorialMax: cfg.HistorialMaxLimit,
	}
	cajaSvc := service.NewCajaService(d.Store, d.Eventos, d.Cierres, ledgerCfg)
	ventaSvc := service.NewVentaService(d.Store, d.Ventas, d.Eventos, ledgerCfg)

	// ── Handlers ─────────────────────────────────────────────────────────────
	cajaH := handler.NewCajaHandler(cajaSvc, d.Eventos)
	ventasH := handler.NewVentasHandler(ventaSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(d.MailerCB, d.Checks...))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	todos := middleware.RequireRole(middleware.RolCajero, middleware.RolSupervisor, middleware.RolAdministrador)
	supervision := middleware.RequireRole(middleware.RolSupervisor, middleware.RolAdministrador)

	// Protected routes. Tokens come from the identity service.
	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))
	{
		caja := v1.Group("/caja")
		{
			caja.POST("/abrir", todos, cajaH.Abrir)
			caja.GET("/activa", todos, cajaH.GetActiva)
			caja.GET("/historial", supervision, cajaH.Historial)
			caja.GET("/historial/export", supervision, cajaH.ExportHistorial)
			caja.GET("/:id", todos, cajaH.GetSesion)
			caja.POST("/:id/relevo", todos, cajaH.Relevar)
			caja.POST("/:id/movimientos", todos, cajaH.RegistrarMovimiento)
			caja.GET("/:id/movimientos", todos, cajaH.ListMovimientos)
			caja.POST("/:id/arqueo", todos, cajaH.Arqueo)
			caja.GET("/:id/reporte", todos, cajaH.ObtenerReporte)
			caja.GET("/:id/eventos", todos, cajaH.Eventos)
		}

		ventas := v1.Group("/ventas")
		{
			ventas.POST("", todos, ventasH.RegistrarVenta)
			ventas.GET("/:id", todos, ventasH.GetVenta)
			ventas.POST("/:id/pagar", todos, ventasH.PagarVenta)
			ventas.DELETE("/:id", supervision, ventasH.AnularVenta)
		}
	}

	// Swagger UI, only outside production
	if !cfg.IsProduction() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
