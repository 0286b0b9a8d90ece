package router

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"bulk-order-service/controllers"
	"bulk-order-service/middlewares"
	"bulk-order-service/models"
	"bulk-order-service/services"
	"bulk-order-service/utils"
)

type Deps struct {
	Log      zerolog.Logger
	Tokens   *utils.TokenManager
	Products *services.ProductService
	Orders   *services.OrderService
	Users    *services.UserService

	// RateLimit is requests per second per client IP; zero disables limiting.
	RateLimit float64
	RateBurst int

	// Ping reports backing store health for /health. Optional.
	Ping func(ctx context.Context) error
}

func New(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(
		middlewares.RequestID(),
		middlewares.AccessLog(d.Log),
		middlewares.Recovery(d.Log),
		middlewares.PrometheusMiddleware(),
		middlewares.NewRateLimiter(d.RateLimit, d.RateBurst).Middleware(),
	)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", func(c *gin.Context) {
		if d.Ping != nil {
			if err := d.Ping(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authCtl := controllers.NewAuthController(d.Users, d.Log)
	productCtl := controllers.NewProductController(d.Products, d.Log)
	orderCtl := controllers.NewOrderController(d.Orders, d.Log)

	authenticate := middlewares.AuthMiddleware(d.Tokens)
	adminOnly := middlewares.RequireRoles(models.RoleAdmin)

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/signup", authCtl.Signup)
		authGroup.POST("/login", authCtl.Login)
		authGroup.POST("/forgot-password", authCtl.ForgotPassword)
		authGroup.POST("/reset-password", authCtl.ResetPassword)
	}

	r.GET("/products", productCtl.ListProducts)
	productAdmin := r.Group("/products", authenticate, adminOnly)
	{
		productAdmin.POST("", productCtl.CreateProduct)
		productAdmin.GET("/:id", productCtl.GetProduct)
		productAdmin.PUT("/:id", productCtl.UpdateProduct)
		productAdmin.DELETE("/:id", productCtl.DeleteProduct)
	}

	orderGroup := r.Group("/orders", authenticate)
	{
		orderGroup.GET("", orderCtl.GetUserOrders)
		orderGroup.POST("", orderCtl.CreateOrder)
		orderGroup.GET("/admin/orders", adminOnly, orderCtl.GetAllOrders)
		orderGroup.GET("/:id", orderCtl.GetOrderDetails)
		orderGroup.PUT("/:id/status", adminOnly, orderCtl.UpdateOrderStatus)
		orderGroup.PUT("/:id/cancel", orderCtl.CancelOrder)
	}

	return r
}
