package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"shop-service/internal/service"
	"shop-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// userIDKey is the gin context key the identity middleware sets.
const userIDKey = "userID"

// Handler contains HTTP handlers
type Handler struct {
	cartService         *service.CartService
	smartListService    *service.SmartListService
	orderService        *service.OrderService
	catalogService      *service.CatalogService
	notificationService *service.NotificationService
}

// NewHandler creates a new HTTP handler
func NewHandler(
	cartService *service.CartService,
	smartListService *service.SmartListService,
	orderService *service.OrderService,
	catalogService *service.CatalogService,
	notificationService *service.NotificationService,
) *Handler {
	return &Handler{
		cartService:         cartService,
		smartListService:    smartListService,
		orderService:        orderService,
		catalogService:      catalogService,
		notificationService: notificationService,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.Use(identityMiddleware())
	{
		v1.GET("/cart", h.getCart)
		v1.POST("/cart", h.getCart)
		v1.POST("/cart/add", h.addToCart)
		v1.POST("/cart/remove", h.removeFromCart)
		v1.PUT("/cart/update", h.updateCartItem)
		v1.POST("/cart/clear", h.clearCart)
		v1.POST("/checkout", h.checkout)

		v1.GET("/smartlists", h.listSmartLists)
		v1.POST("/smartlists", h.createSmartList)
		v1.GET("/smartlists/:id", h.getSmartList)
		v1.DELETE("/smartlists/:id", h.deleteSmartList)
		v1.POST("/smartlists/:id/add_item", h.addSmartListItem)
		v1.POST("/smartlists/:id/update_item", h.updateSmartListItem)
		v1.PUT("/smartlists/:id/update_item", h.updateSmartListItem)
		v1.POST("/smartlists/:id/remove_item", h.removeSmartListItem)
		v1.POST("/smartlists/:id/order_all", h.orderAll)

		v1.GET("/orders", h.listOrders)
		v1.GET("/orders/:id", h.getOrder)
		v1.PATCH("/orders/:id/status", h.updateOrderStatus)
		v1.GET("/summary", h.orderSummary)

		v1.GET("/products", h.listProducts)
		v1.POST("/products", h.createProduct)
		v1.GET("/products/:id", h.getProduct)
		v1.PUT("/products/:id", h.updateProduct)
		v1.DELETE("/products/:id", h.deleteProduct)
		v1.GET("/categories", h.listCategories)
		v1.POST("/categories", h.createCategory)

		v1.GET("/notifications", h.listNotifications)
		v1.PATCH("/notifications/:id/mark_read", h.markNotificationRead)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// identityMiddleware reads the caller identity established by the edge
// proxy. Requests without a parseable X-User-ID never reach the handlers.
func identityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := strconv.ParseInt(c.GetHeader("X-User-ID"), 10, 64)
		if err != nil || userID <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing or invalid user identity",
			})
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

func currentUserID(c *gin.Context) int64 {
	return c.GetInt64(userIDKey)
}

// pathID parses a numeric :id path segment. Replies 404, not 400, on
// garbage so unparseable ids look the same as absent rows.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return 0, false
	}
	return id, true
}

// respondError maps the service error taxonomy onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	var notFound *service.NotFoundError
	var validation *service.ValidationError
	var stock *service.InsufficientStockError

	switch {
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound.Message})
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Message})
	case errors.As(err, &stock):
		c.JSON(http.StatusBadRequest, gin.H{"error": stock.Error()})
	case errors.Is(err, service.ErrEmptyCart), errors.Is(err, service.ErrEmptySmartList):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		util.GetLogger().Error("Internal error",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
