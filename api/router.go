package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sales_dashboard/internal/sales"
)

// RouteOptions tunes the middleware around the routes.
type RouteOptions struct {
	AllowedOrigins []string
	WriteRPS       float64
	WriteBurst     int
}

// InitRoutes registers the dashboard endpoints on the given Gin engine.
func InitRoutes(e *gin.Engine, service *sales.Service, logger *zap.Logger, opts RouteOptions) {
	if logger == nil {
		logger = zap.NewNop()
	}
	handler := NewDashboardHandler(service, logger)

	e.Use(requestLogger(logger), corsMiddleware(opts.AllowedOrigins))
	writes := writeLimiter(opts.WriteRPS, opts.WriteBurst)

	e.GET("/sales", handler.handleSalesWeek)
	e.POST("/sales/:id/return", writes, handler.handleAddToReturns)

	e.GET("/returns", handler.handleReturnsWeek)
	e.PATCH("/returns/:id/returned", writes, handler.handleToggleReturned)
	e.PUT("/returns/:id/deposit", writes, handler.handleSaveDeposit)

	e.GET("/settings/exchange-rate", handler.handleExchangeRate)

	e.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
}
