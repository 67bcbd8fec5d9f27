package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"dispatch/internal/handler"
	"dispatch/internal/middleware"
	internalredis "dispatch/internal/redis"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	RideHandler        *handler.RideHandler
	OfferHandler       *handler.OfferHandler
	DriverHandler      *handler.DriverHandler
	PaymentHandler     *handler.PaymentHandler
	SweeperHandler     *handler.SweeperHandler
	RedisClient        *redis.Client
	NewRelicApp        *newrelic.Application
	RateLimitPerMinute int
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	if deps.RedisClient != nil {
		router.Use(middleware.RateLimitMiddleware(
			internalredis.NewRateLimitStore(deps.RedisClient), deps.RateLimitPerMinute))
		router.Use(middleware.IdempotencyMiddleware(deps.RedisClient))
	}

	// Health check and metrics.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// Ride routes.
		rides := v1.Group("/rides")
		{
			rides.POST("", deps.RideHandler.CreateRide)
			rides.GET("/:id", deps.RideHandler.GetRide)
			rides.POST("/:id/status", deps.RideHandler.Transition)
			rides.POST("/:id/cancel", deps.RideHandler.CancelRide)
			rides.GET("/:id/offers", deps.OfferHandler.ListForRide)
			rides.POST("/:id/accept", deps.OfferHandler.Accept)
			rides.POST("/:id/decline", deps.OfferHandler.Decline)
			rides.GET("/:id/payment", deps.PaymentHandler.GetPayment)
			rides.POST("/:id/payment/retry", deps.PaymentHandler.RetryCharge)
		}

		// Driver routes.
		drivers := v1.Group("/drivers")
		{
			drivers.POST("", deps.DriverHandler.Register)
			drivers.GET("/:id", deps.DriverHandler.GetProfile)
			drivers.GET("/:id/offers", deps.OfferHandler.ListForDriver)
			drivers.POST("/:id/online", deps.DriverHandler.GoOnline)
			drivers.POST("/:id/offline", deps.DriverHandler.GoOffline)
			drivers.PUT("/:id/location", deps.DriverHandler.UpdateLocation)
		}
	}

	// Internal maintenance routes, shared-secret guarded.
	internal := router.Group("/internal")
	{
		internal.POST("/sweep/offers", deps.SweeperHandler.SweepOffers)
		internal.POST("/sweep/scheduled", deps.SweeperHandler.SweepScheduled)
	}

	return router
}
