package routes

import (
	"net/http"
	"time"

	"storefront/audit"
	"storefront/catalog"
	"storefront/checkout"
	"storefront/handlers"
	"storefront/middleware"
	"storefront/session"
	"storefront/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Deps struct {
	DB             *gorm.DB
	Sessions       session.Store
	SessionOptions session.Options
	Checkout       *checkout.Service
	Events         checkout.Publisher
	Audit          *audit.Logger
	Log            *zap.Logger
}

// SetupRoutes registers every route on r. The returned function stops the
// rate limiters' cleanup goroutines.
func SetupRoutes(r *gin.Engine, d Deps) func() {
	utils.RegisterValidators()

	r.Use(middleware.RequestID())
	r.Use(middleware.ErrorBoundary(d.Log))
	r.Use(middleware.SecurityEvents(d.Log))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Initialize handlers
	products := catalog.New(d.DB)
	authHandler := &handlers.AuthHandler{DB: d.DB, Audit: d.Audit, Events: d.Events}
	productHandler := &handlers.ProductHandler{Catalog: products}
	cartHandler := &handlers.CartHandler{DB: d.DB, Catalog: products}
	checkoutHandler := &handlers.CheckoutHandler{DB: d.DB, Service: d.Checkout, Log: d.Log}
	orderHandler := &handlers.OrderHandler{DB: d.DB, Audit: d.Audit}
	supportHandler := &handlers.SupportHandler{DB: d.DB, Audit: d.Audit}

	loginLimiter := middleware.NewRateLimiter("login", 10, time.Minute, d.Log)
	checkoutLimiter := middleware.NewRateLimiter("checkout", 5, time.Minute, d.Log)

	api := r.Group("/api")
	api.Use(session.Middleware(d.Sessions, d.SessionOptions, d.Log))
	{
		api.POST("/auth/register", authHandler.Register)
		api.POST("/auth/login", loginLimiter.Middleware(), authHandler.Login)
		api.POST("/auth/refresh", authHandler.RefreshToken)

		api.GET("/products", productHandler.GetProducts)
		api.GET("/products/:id", productHandler.GetProduct)
	}

	// Guests and signed-in customers share these; the token decides which
	// cart is used.
	shared := api.Group("")
	shared.Use(middleware.OptionalAuth())
	{
		shared.GET("/cart", cartHandler.GetCart)
		shared.DELETE("/cart", cartHandler.ClearCart)
		shared.POST("/cart/:product_id", cartHandler.AddToCart)
		shared.PUT("/cart/:product_id", cartHandler.UpdateCartItem)
		shared.DELETE("/cart/:product_id", cartHandler.RemoveFromCart)

		shared.GET("/checkout/guest", checkoutHandler.GetGuestCheckout)
		shared.POST("/checkout/guest", checkoutLimiter.Middleware(), checkoutHandler.PostGuestCheckout)
		shared.GET("/orders/success/:id", orderHandler.OrderSuccess)

		shared.POST("/support/inquiries", supportHandler.CreateInquiry)
	}

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware())
	{
		protected.GET("/auth/profile", authHandler.GetProfile)
		protected.PUT("/auth/profile", authHandler.UpdateProfile)
		protected.POST("/auth/change-password", authHandler.ChangePassword)

		protected.GET("/checkout", checkoutHandler.GetCheckout)
		protected.POST("/checkout", checkoutLimiter.Middleware(), checkoutHandler.PostCheckout)

		protected.GET("/orders", orderHandler.GetOrders)
		protected.GET("/orders/:id", orderHandler.GetOrder)
	}

	staff := api.Group("/staff")
	staff.Use(middleware.AuthMiddleware())
	staff.Use(middleware.StaffMiddleware())
	{
		staff.GET("/orders/recent", orderHandler.RecentOrders)
		staff.GET("/orders/previous-month", orderHandler.PreviousMonthOrders)
		staff.GET("/orders/:id", orderHandler.GetOrder)
		staff.PUT("/orders/:id", orderHandler.UpdateOrder)
	}

	return func() {
		loginLimiter.Stop()
		checkoutLimiter.Stop()
	}
}
