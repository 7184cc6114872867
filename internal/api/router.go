package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/shubhayu-dev/Sanrakshan/config"
	"github.com/shubhayu-dev/Sanrakshan/internal/auth"
	"github.com/shubhayu-dev/Sanrakshan/internal/mw"
)

// NewRouter creates and configures a new Gin router. Student routes require
// an authenticated principal; staff routes additionally require the staff
// flag from the identity provider.
func NewRouter(h *Handler, authMgr *auth.Manager, serverCfg *config.ServerConfig) *gin.Engine {
	r := gin.Default()

	rateLimiter := mw.RateLimiter(rate.Limit(serverCfg.RateLimitPerSec), serverCfg.RateLimitBurst, serverCfg.RequestIPHeader)

	cacheTTL := time.Duration(serverCfg.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	api := r.Group("/api")
	api.Use(rateLimiter)

	api.GET("/vapid_public_key", h.GetVAPIDPublicKey)

	authed := api.Group("")
	authed.Use(mw.Auth(authMgr))
	{
		authed.POST("/students", h.RegisterStudent)
		authed.GET("/students/me", h.GetMe)
		authed.PATCH("/students/me", h.UpdateMe)

		authed.POST("/entries", h.CreateEntry)
		authed.GET("/entries", h.ListEntries)
		authed.GET("/entries/:entry_id", h.GetEntry)
		authed.POST("/entries/:entry_id/cancel", h.CancelEntry)
		authed.GET("/entries/:entry_id/code", h.GetEntryCode)
		authed.POST("/entries/:entry_id/code/regenerate", h.RegenerateEntryCode)

		authed.GET("/dashboard", caching, h.GetDashboard)

		authed.PUT("/subscriptions", h.PutSubscription)
		authed.DELETE("/subscriptions", h.DeleteSubscription)
	}

	staff := authed.Group("/staff")
	staff.Use(mw.RequireStaff())
	{
		staff.GET("/verify", h.VerifyCode)
		staff.POST("/claims", h.ConfirmClaim)
		staff.GET("/scans", h.ListScans)
		staff.DELETE("/entries/:entry_id", h.DeleteEntry)
		staff.POST("/entries/:entry_id/expire", h.ExpireEntry)
	}

	return r
}
