// Package v1 is the REST surface of the stock ledger under /api/v1.
package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"serviceshop/internal/app"
	"serviceshop/internal/infrastructure/http/v1/handlers"
	"serviceshop/internal/infrastructure/http/v1/middleware"
	"serviceshop/pkg/logger"
)

// Version is reported by /health/info.
const Version = "0.1.0"

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Services are the domain services behind every endpoint
	Services *app.Services

	// Health checks the storage backend
	Health *handlers.HealthHandler

	// Logger for request logging
	Logger *logger.Logger

	// Tokens verifies bearer tokens on /api/v1
	Tokens middleware.TokenVerifier

	// CORS enables cross-origin requests when set. Nil leaves the API same-origin only.
	CORS *CORSConfig

	// Mode is the gin mode (release, debug, test)
	Mode string
}

// CORSConfig lists the browser origins allowed to call the API. No origins
// means any origin.
type CORSConfig struct {
	Origins []string
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	mode := cfg.Mode
	if mode == "" {
		mode = gin.ReleaseMode
	}
	gin.SetMode(mode)

	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}

	handlers.RegisterValidations()
	router := gin.New()

	// Global middleware (order matters!)
	if cfg.CORS != nil {
		router.Use(middleware.CORS(cfg.CORS.Origins))
	}
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.Recovery())
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth)
	health := router.Group("/health")
	{
		health.GET("/live", cfg.Health.Live)
		health.GET("/ready", cfg.Health.Ready)
		health.GET("/info", cfg.Health.Info)
	}

	v1 := router.Group("/api/v1")
	v1.Use(middleware.Auth(cfg.Tokens))
	{
		registerInventoryRoutes(v1, cfg)
		registerServiceRoutes(v1, cfg)
		registerAuditRoutes(v1, cfg)
	}

	return router
}

// registerInventoryRoutes registers catalog, purchase and stock endpoints.
func registerInventoryRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	inventory := rg.Group("/inventory")
	items := inventory.Group("/items")
	baseHandler := handlers.NewBaseHandler()

	itemHandler := handlers.NewItemHandler(baseHandler, cfg.Services.Items, cfg.Services.RestockPolicy)
	mount(items, crudRoutes(itemHandler, staff, adminOnly)...)
	mount(items, route{http.MethodGet, "/low-stock", staff, itemHandler.LowStock})

	stockHandler := handlers.NewStockHandler(baseHandler, cfg.Services.Stock)
	mount(items,
		route{http.MethodGet, "/:id/stock", staff, stockHandler.Status},
		route{http.MethodPost, "/:id/stock", adminOnly, stockHandler.AddStock},
		route{http.MethodGet, "/:id/releases", staff, stockHandler.ListReleases},
		route{http.MethodPost, "/:id/releases", staff, stockHandler.Release},
	)
	mount(inventory,
		route{http.MethodPatch, "/stock/:stockId", adminOnly, stockHandler.UpdatePrice},
		route{http.MethodDelete, "/releases/:batchId", adminOnly, stockHandler.ReverseRelease},
	)

	purchaseHandler := handlers.NewPurchaseHandler(baseHandler, cfg.Services.Purchases)
	mount(inventory.Group("/purchases"),
		route{http.MethodGet, "", staff, purchaseHandler.List},
		route{http.MethodPost, "", adminOnly, purchaseHandler.Record},
		route{http.MethodGet, "/:id", staff, purchaseHandler.Get},
		route{http.MethodPatch, "/:id", adminOnly, purchaseHandler.Update},
		route{http.MethodDelete, "/:id", adminOnly, purchaseHandler.Delete},
	)
}

// registerServiceRoutes registers service record, parts and invoice endpoints.
func registerServiceRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	records := rg.Group("/service-records")
	baseHandler := handlers.NewBaseHandler()

	recordHandler := handlers.NewServiceRecordHandler(baseHandler, cfg.Services.ServiceRecords, cfg.Services.ServiceParts)
	mount(records,
		route{http.MethodPost, "", staff, recordHandler.Create},
		route{http.MethodGet, "/:id", staff, recordHandler.Get},
		route{http.MethodPut, "/:id", staff, recordHandler.Update},
		route{http.MethodDelete, "/:id", staff, recordHandler.Delete},

		route{http.MethodGet, "/:id/parts", staff, recordHandler.ListParts},
		route{http.MethodPost, "/:id/parts", staff, recordHandler.AttachParts},
		route{http.MethodPatch, "/:id/parts", staff, recordHandler.AddParts},
		route{http.MethodPut, "/:id/parts", staff, recordHandler.ReplaceParts},
		route{http.MethodDelete, "/:id/parts", staff, recordHandler.DeleteParts},
	)

	invoiceHandler := handlers.NewInvoiceHandler(baseHandler, cfg.Services.Invoices)
	mount(records,
		route{http.MethodPost, "/:id/invoice", staff, invoiceHandler.Generate},
		route{http.MethodGet, "/:id/invoice", anyone, invoiceHandler.Get},
	)
}

// registerAuditRoutes registers the audit trail endpoint.
func registerAuditRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	if cfg.Services.History == nil {
		return
	}

	handler := handlers.NewAuditHandler(handlers.NewBaseHandler(), cfg.Services.History)
	mount(rg, route{http.MethodGet, "/audit/:entityType/:entityId", adminOnly, handler.History})
}
