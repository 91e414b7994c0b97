package router

import (
	"net/http"

	"rental-inventory/internal/clock"
	"rental-inventory/internal/handlers"
	"rental-inventory/internal/middleware"
	"rental-inventory/internal/service"
	"rental-inventory/internal/store"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Deps struct {
	Store        *store.Store
	Catalog      service.CatalogService
	Orders       service.OrderService
	Stock        service.StockMutator
	Availability *service.AvailabilityEngine
	Forecast     *service.ForecastEngine
	Clock        clock.Clock
	// JWTSecret enables bearer-token staff attribution when set.
	JWTSecret string
}

func Router(d Deps, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger(log))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", middleware.HeaderStaff},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
	}))

	r.GET("/health", func(c *gin.Context) {
		if !d.Store.Ready() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "loading"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":     "ok",
			"generation": d.Store.Generation(),
		})
	})

	catalog := handlers.NewCatalogHandler(d.Catalog, log)
	orders := handlers.NewOrderHandler(d.Orders, d.Stock, log)
	inventory := handlers.NewInventoryHandler(d.Availability, d.Forecast, d.Stock, d.Clock, log)

	api := r.Group("/api/v1")
	api.Use(middleware.StaffAttribution(d.JWTSecret, log))
	{
		products := api.Group("/products")
		products.POST("", catalog.CreateProduct)
		products.GET("", catalog.ListProducts)
		products.GET("/:id", catalog.GetProduct)
		products.PATCH("/:id", catalog.UpdateProduct)
		products.DELETE("/:id", catalog.DeleteProduct)
		products.POST("/:id/stock", inventory.AdjustStock)
		products.GET("/:id/availability", inventory.Availability)
		products.GET("/:id/forecast", inventory.Forecast)
		products.GET("/:id/forecast/range", inventory.ForecastRange)

		api.GET("/forecast", inventory.ForecastAll)
		api.GET("/inventory-logs", catalog.ListInventoryLogs)

		customers := api.Group("/customers")
		customers.POST("", catalog.CreateCustomer)
		customers.GET("", catalog.ListCustomers)
		customers.GET("/:id", catalog.GetCustomer)

		ord := api.Group("/orders")
		ord.POST("", orders.Create)
		ord.GET("", orders.List)
		ord.GET("/overdue", orders.ListOverdue)
		ord.GET("/:id", orders.Get)
		ord.POST("/:id/cancel", orders.Cancel)
		ord.DELETE("/:id", orders.Delete)
		ord.POST("/:id/export", orders.Export)
		ord.POST("/:id/import", orders.Import)
		ord.POST("/:id/complete", orders.Complete)
	}

	return r
}
