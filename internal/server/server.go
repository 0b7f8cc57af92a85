package server

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nadhifgr/learnsphere/config"
	"github.com/nadhifgr/learnsphere/internal/handlers"
	"github.com/nadhifgr/learnsphere/internal/middleware"
	"github.com/nadhifgr/learnsphere/internal/store"
	"github.com/nadhifgr/learnsphere/internal/webhook"
	"github.com/stripe/stripe-go/v82/client"
)

func Start() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}

	db, err := config.InitDatabase(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %v", err)
	}

	stripeCfg, err := config.LoadStripeConfig()
	if err != nil {
		return fmt.Errorf("failed to load stripe config: %v", err)
	}

	stripeClient, err := config.InitStripeClient(stripeCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize stripe client: %v", err)
	}

	identityCfg, err := config.LoadIdentityConfig()
	if err != nil {
		return fmt.Errorf("failed to load identity config: %v", err)
	}

	logger := zap.Must(zap.NewProduction()).Sugar()
	defer logger.Sync()

	r := gin.Default()

	if err := setupRoutes(r, db, stripeClient, stripeCfg, identityCfg, logger); err != nil {
		return err
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	return r.Run(":" + port)
}

func setupRoutes(
	r *gin.Engine,
	db *gorm.DB,
	stripeClient *client.API,
	stripeCfg *config.StripeConfig,
	identityCfg *config.IdentityConfig,
	logger *zap.SugaredLogger,
) error {
	r.Use(middleware.DatabaseMiddleware(db))
	r.Use(middleware.StripeMiddleware(stripeClient, stripeCfg))

	identityVerifier, err := webhook.NewIdentityVerifier(identityCfg.WebhookSecret)
	if err != nil {
		return fmt.Errorf("failed to build identity verifier: %v", err)
	}
	paymentVerifier := webhook.NewPaymentVerifier(stripeCfg.WebhookSecret)

	webhookStore := store.New(db)
	reconciler := webhook.NewReconciler(webhookStore, logger)
	webhookHandler := handlers.NewWebhookHandler(identityVerifier, paymentVerifier, reconciler, webhookStore, logger)

	public := r.Group("/v1")
	{
		public.POST("/webhooks/identity", webhookHandler.IdentityWebhook)
		public.POST("/webhooks/payment", webhookHandler.PaymentWebhook)

		coursePublic := public.Group("/courses")
		{
			coursePublic.GET("", handlers.ListCourses)
			coursePublic.GET("/:id", handlers.GetCourse)
		}
	}

	protected := r.Group("/v1")
	protected.Use(middleware.JWTAuthMiddleware())
	{
		protected.GET("/users/me", handlers.GetProfile)
		protected.GET("/users/me/courses", handlers.GetEnrolledCourses)
		protected.POST("/users/me/role", handlers.BecomeEducator)

		protected.POST("/purchases", handlers.CreatePurchase)
		protected.GET("/purchases", handlers.ListPurchases)

		courseProtected := protected.Group("/courses")
		{
			courseProtected.POST("/:id/ratings", handlers.AddRating)
			courseProtected.POST("/:id/progress", handlers.UpdateProgress)
			courseProtected.GET("/:id/progress", handlers.GetProgress)
			courseProtected.GET("/:id/certificate", handlers.GenerateCertificateQR)
		}

		educator := protected.Group("")
		educator.Use(middleware.RequireEducator())
		{
			educator.POST("/courses", handlers.CreateCourse)
			educator.PUT("/courses/:id", handlers.UpdateCourse)
			educator.DELETE("/courses/:id", handlers.DeleteCourse)

			educator.GET("/educator/courses", handlers.GetEducatorCourses)
			educator.GET("/educator/dashboard", handlers.GetDashboard)
			educator.GET("/educator/students", handlers.GetEnrolledStudents)

			educator.POST("/certificates/verify", handlers.VerifyCertificate)
		}
	}

	return nil
}
