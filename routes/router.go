package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cartpix/cartpix/config"
	"github.com/cartpix/cartpix/controllers"
	"github.com/cartpix/cartpix/middleware"
	"github.com/cartpix/cartpix/storage"
	"github.com/cartpix/cartpix/upload"
	"github.com/cartpix/cartpix/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, carts utils.CartStore, store storage.Storage) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	// Every request gets an anonymous cart session
	r.Use(middleware.CartSession())

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	validator := upload.NewValidator(cfg.AllowedExtensions, utils.FormTokenVerifier{})
	cartController := controllers.NewCartController(db, carts, store, validator)
	checkoutController := controllers.NewCheckoutController(db, carts)
	downloadController := controllers.NewDownloadController(store)
	tokenController := controllers.NewTokenController()

	api := r.Group("/api/v1")

	// The retrieval gate: public, download links appear in guest order
	// history. Rate limited, never authenticated.
	api.GET("/action", middleware.RateLimitMiddleware(), downloadController.HandleAction)

	api.GET("/upload/token", tokenController.Issue)

	cartGroup := api.Group("/cart")
	cartGroup.GET("", cartController.GetCart)
	cartGroup.POST("/items", middleware.RateLimitMiddleware(), cartController.AddItem)
	cartGroup.DELETE("/items/:lineId", cartController.RemoveItem)

	api.POST("/checkout", checkoutController.Checkout)
	api.GET("/orders/:number", checkoutController.GetOrder)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		ctx.JSON(http.StatusNotFound, gin.H{"message": "not found"})
	})

	return r
}
