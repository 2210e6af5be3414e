package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"akwa/internal/infra/config"
	"akwa/internal/infra/obs"
)

type CancellationHTTP interface {
	Cancel(c *gin.Context)
	Quote(c *gin.Context)
}

type PenaltyHTTP interface {
	List(c *gin.Context)
	Waive(c *gin.Context)
	Collect(c *gin.Context)
}

type Handlers struct {
	Cancellation CancellationHTTP
	Penalties    PenaltyHTTP
	// Identity resolves the gateway principal on every request.
	Identity gin.HandlerFunc
	// AdminAuth guards the admin group.
	AdminAuth gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func NewRouter(obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Idempotency-Key", HeaderUserID, HeaderUserRoles, HeaderAdminKey},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			obs.HeaderRequestID,
		},
		MaxAge: 12 * time.Hour,
	}))
	if h.Identity != nil {
		router.Use(h.Identity)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Cancellation != nil {
		api.GET("/bookings/:id/cancellation", h.Cancellation.Quote)
		api.POST("/bookings/:id/cancel", h.Cancellation.Cancel)
	}
	if h.Penalties != nil {
		admin := api.Group("/admin/penalties")
		if h.AdminAuth != nil {
			admin.Use(h.AdminAuth)
		}
		admin.GET("", h.Penalties.List)
		admin.POST("/:id/waive", h.Penalties.Waive)
		admin.POST("/:id/collect", h.Penalties.Collect)
	}
	return router
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
