package router

import (
	"log/slog"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/coursepay/coursepay/internal/server/http/handlers"
	"github.com/coursepay/coursepay/internal/server/http/middleware"
)

// Setup configures gin router with handlers and middleware.
func Setup(facade handlers.PaymentFacade, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(logger))
	engine.Use(middleware.DecompressRequest())
	engine.Use(gzip.Gzip(gzip.DefaultCompression))

	authHandler := handlers.NewAuthHandler(facade)
	checkoutHandler := handlers.NewCheckoutHandler(facade)
	purchaseHandler := handlers.NewPurchaseHandler(facade)
	accessHandler := handlers.NewAccessHandler(facade)
	webhookHandler := handlers.NewWebhookHandler(facade)

	api := engine.Group("/api")
	api.POST("/webhooks/payment", webhookHandler.Receive)

	user := api.Group("/user")
	user.POST("/register", authHandler.Register)
	user.POST("/login", authHandler.Login)

	userAuth := user.Group("")
	userAuth.Use(middleware.AuthRequired(facade))
	userAuth.POST("/checkout", checkoutHandler.Create)
	userAuth.POST("/checkout/:id/retry", checkoutHandler.Retry)
	userAuth.GET("/purchases", purchaseHandler.List)
	userAuth.POST("/purchases/:id/refund", purchaseHandler.Refund)
	userAuth.GET("/events/:id/access", accessHandler.Check)

	return engine
}
