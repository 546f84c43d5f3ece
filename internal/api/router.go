package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"appliance-billing-backend/config"
	"appliance-billing-backend/internal/metrics"
	"appliance-billing-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg config.ServerConfig, handler *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), mw.Logger(), metrics.Middleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.Use(mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst))
	{
		// Code guessing is throttled harder than the rest of the API.
		authGroup := api.Group("/auth")
		authGroup.Use(mw.RateLimiter(rate.Limit(cfg.AuthRateLimitPerSec), cfg.AuthRateLimitBurst))
		authGroup.POST("/challenge", handler.Challenge)
		authGroup.POST("/verify", handler.Verify)

		api.POST("/appliance/start", handler.StartAppliance)
		api.POST("/appliance/finish", handler.FinishAppliance)
		api.GET("/appliances", handler.ListAppliances)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)

		if cfg.AdminKey != "" {
			admin := api.Group("", mw.RequireAdminKey(cfg.AdminKey))
			admin.POST("/endpoints/:endpoint_id/rotate", handler.RotateEndpointToken)
			admin.PUT("/appliances/:name", handler.SetAppliancePrice)
		}
	}

	return r
}
