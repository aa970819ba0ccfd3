package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/ytmerge/internal/api/handlers"
	"github.com/your-org/ytmerge/internal/api/ws"
	"github.com/your-org/ytmerge/internal/auth"
	"github.com/your-org/ytmerge/internal/config"
)

type RouterConfig struct {
	APIKey    string
	RateLimit config.RateLimitConfig
	Resolver  handlers.FormatResolver
	Converter handlers.Converter
	// Ledger is nil when no database is configured.
	Ledger handlers.ConversionLister
	Hub    *ws.Hub
	Checks map[string]handlers.Pinger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggingMiddleware())
	r.Use(cors.Default())

	// System endpoints (no auth)
	systemH := handlers.NewSystemHandler(cfg.Checks)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public API (no auth, rate limited)
	public := r.Group("/")
	public.Use(RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	public.GET("/decipher", handlers.NewDecipherHandler(cfg.Resolver).Get)
	public.POST("/convert", handlers.NewConvertHandler(cfg.Converter).Post)

	// Admin API v1 (with auth)
	v1 := r.Group("/v1")
	v1.Use(auth.APIKeyMiddleware(cfg.APIKey))
	v1.GET("/conversions", handlers.NewConversionHandler(cfg.Ledger).List)
	v1.GET("/ws", cfg.Hub.HandleWS)

	return r
}
