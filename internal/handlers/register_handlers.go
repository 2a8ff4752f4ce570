package handlers

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/ulule/limiter/v3"

	"github.com/openretail/pos_backoffice/cmd/docs"
	portssvc "github.com/openretail/pos_backoffice/internal/core/ports/services"
	"github.com/openretail/pos_backoffice/internal/middleware"
	"github.com/openretail/pos_backoffice/internal/platform/config"
)

// RegisterRoutes sets up all application routes, injecting dependencies using interfaces
func RegisterRoutes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	limiterInstance *limiter.Limiter,
) {
	// Add health check route
	r.GET("/health", func(c *gin.Context) {
		c.String(200, "OK")
	})
	r.GET("/", getHome)

	RegisterVNPayIPNRoute(r, services.Payment)

	// Setup API v1 routes with Auth Middleware, passing service interfaces
	setupAPIV1Routes(r, cfg, services, limiterInstance)

	// Swagger routes (typically public or conditionally available)
	setupSwaggerRoutes(r, cfg)
}

// RegisterVNPayIPNRoute registers the gateway callback endpoint. It is
// called by VNPay's servers, not by staff: it is authenticated by its
// HMAC signature, not by a JWT.
func RegisterVNPayIPNRoute(r gin.IRoutes, paymentService portssvc.PaymentSvcFacade) {
	h := newPaymentHandler(paymentService)
	r.GET("/api/v1/payments/vnpay/ipn", h.vnpayIPN)
}

// setupAPIV1Routes configures the /api/v1 group and delegates to the entity
// route registrations
func setupAPIV1Routes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	limiterInstance *limiter.Limiter,
) {
	// Apply AuthMiddleware and the rate limiter to the entire v1 group
	v1 := r.Group("/api/v1", middleware.RateLimit(limiterInstance), middleware.AuthMiddleware(cfg.JWTSecret, cfg.JWTIssuer))

	RegisterPaymentRoutes(v1, services.Payment)
}

// RegisterPaymentRoutes registers payment ledger specific routes
func RegisterPaymentRoutes(group *gin.RouterGroup, paymentService portssvc.PaymentSvcFacade) {
	h := newPaymentHandler(paymentService)
	payments := group.Group("/payments")
	{
		payments.POST("", h.processPayment)
		payments.GET("", h.listPayments)
		payments.GET("/:transactionID", h.getPayment)
		payments.POST("/:transactionID/reconcile", h.reconcilePayment)
		payments.POST("/verify/:gatewayTransactionID", h.verifyPayment)
		payments.POST("/refund", h.refundPayment)
	}

	invoices := group.Group("/invoices")
	{
		invoices.GET("/:invoiceID/payments", h.listPaymentsByInvoice)
		invoices.GET("/:invoiceID/settlement", h.getInvoiceSettlement)
	}
}

// setupSwaggerRoutes configures the swagger documentation routes
func setupSwaggerRoutes(r *gin.Engine, cfg *config.Config) {
	// Swagger setup
	if cfg.IsProduction {
		//no swagger in prod
		return
	}
	docs.SwaggerInfo.BasePath = "/api/v1"
	swagger := r.Group("/swagger")
	swagger.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
