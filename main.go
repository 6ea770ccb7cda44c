package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"inventory-service/internal/background"
	"inventory-service/internal/cache"
	"inventory-service/internal/config"
	"inventory-service/internal/events"
	"inventory-service/internal/handlers"
	"inventory-service/internal/metrics"
	"inventory-service/internal/middleware"
	"inventory-service/internal/models"
	"inventory-service/internal/repository"
	"inventory-service/internal/services"
)

func main() {
	// Load configuration
	cfg := config.New()

	logger := initLogger(cfg)

	// Initialize database connection
	db, err := initDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Auto-migrate models
	if err := autoMigrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// Initialize Redis connection (optional cache)
	var redisClient *cache.Client
	redisClient, err = cache.NewClient(cfg.Redis, logger)
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v", err)
		log.Println("Organization resolution will hit PostgreSQL on every request")
		redisClient = nil
	} else {
		log.Println("Connected to Redis successfully")
	}

	// Initialize NATS connection for event publishing
	var publisher *events.Publisher
	if cfg.NATS.Enabled {
		publisher, err = events.NewPublisher(cfg.NATS)
		if err != nil {
			log.Printf("Warning: Failed to connect to NATS: %v", err)
			log.Println("Event publishing will be disabled")
			publisher = nil
		} else {
			log.Println("Connected to NATS successfully")
		}
	} else {
		log.Println("NATS disabled by configuration, event publishing is off")
	}

	// Initialize metrics
	metricsCollector := initMetrics(db)

	// Initialize repositories
	orgRepo := repository.New[models.Organization](db)
	userRepo := repository.New[models.AppUser](db)
	membershipRepo := repository.New[models.OrganizationUser](db)
	subscriptionRepo := repository.New[models.Subscription](db)
	webhookRepo := repository.New[models.WebhookEvent](db)
	productRepo := repository.NewTenant[models.Product, *models.Product](db)
	categoryRepo := repository.NewTenant[models.Category, *models.Category](db)
	movementRepo := repository.NewTenant[models.InventoryMovement, *models.InventoryMovement](db)
	orderRepo := repository.NewTenant[models.Order, *models.Order](db)
	orderItemRepo := repository.NewTenant[models.OrderItem, *models.OrderItem](db)
	warehouseRepo := repository.NewTenant[models.Warehouse, *models.Warehouse](db)
	customerRepo := repository.NewTenant[models.Customer, *models.Customer](db)
	supplierRepo := repository.NewTenant[models.Supplier, *models.Supplier](db)

	// Initialize services. Users come first since the subscription
	// service counts members, and organizations last since resolving an
	// organization may create its trial subscription.
	userSvc := services.NewUserService(userRepo, membershipRepo, orgRepo, logger)
	subscriptionSvc := services.NewSubscriptionService(
		subscriptionRepo,
		productRepo,
		orderRepo,
		warehouseRepo,
		userSvc,
		cfg.Subscription,
		publisher,
		logger,
	)

	var orgSvc *services.OrganizationService
	if redisClient != nil {
		orgSvc = services.NewOrganizationService(orgRepo, subscriptionSvc, redisClient, logger)
	} else {
		orgSvc = services.NewOrganizationService(orgRepo, subscriptionSvc, nil, logger)
	}

	productSvc := services.NewProductService(db, productRepo, categoryRepo, movementRepo, publisher, logger)
	categorySvc := services.NewCategoryService(categoryRepo, productRepo)
	orderSvc := services.NewOrderService(db, orderRepo, orderItemRepo, productRepo, publisher)
	warehouseSvc := services.NewWarehouseService(db, warehouseRepo)
	customerSvc := services.NewCustomerService(customerRepo)
	supplierSvc := services.NewSupplierService(supplierRepo)
	stripeSvc := services.NewStripeService(cfg.Stripe, subscriptionSvc, logger)
	identitySvc := services.NewIdentityWebhookService(webhookRepo, userSvc, orgSvc, cfg.Auth.WebhookSecret, logger)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db, publisher)
	productHandler := handlers.NewProductHandler(productSvc)
	categoryHandler := handlers.NewCategoryHandler(categorySvc)
	orderHandler := handlers.NewOrderHandler(orderSvc)
	warehouseHandler := handlers.NewWarehouseHandler(warehouseSvc)
	customerHandler := handlers.NewCustomerHandler(customerSvc)
	supplierHandler := handlers.NewSupplierHandler(supplierSvc)
	orgHandler := handlers.NewOrganizationHandler(orgSvc)
	userHandler := handlers.NewUserHandler(userSvc)
	subscriptionHandler := handlers.NewSubscriptionHandler(subscriptionSvc)
	paymentHandler := handlers.NewPaymentHandler(stripeSvc, orgSvc)
	webhookHandler := handlers.NewWebhookHandler(identitySvc, stripeSvc, webhookRepo, cfg.Stripe.WebhookSecret, logger)

	// Test endpoints are only mounted in dev/test environments
	var testHandler *handlers.TestHandler
	if handlers.IsTestMode() {
		testHandler = handlers.NewTestHandler()
		log.Println("Test handler initialized (dev/test mode) - test endpoints are available")
	}

	// Start background jobs
	bgRunner := background.NewRunner(subscriptionSvc, productSvc, orgRepo, cfg.Jobs)
	bgRunner.Start()

	// Setup router
	router := setupRouter(routerDeps{
		logger:        logger,
		metrics:       metricsCollector,
		resolver:      orgSvc,
		limits:        subscriptionSvc,
		health:        healthHandler,
		products:      productHandler,
		categories:    categoryHandler,
		orders:        orderHandler,
		warehouses:    warehouseHandler,
		customers:     customerHandler,
		suppliers:     supplierHandler,
		organizations: orgHandler,
		users:         userHandler,
		subscriptions: subscriptionHandler,
		payments:      paymentHandler,
		webhooks:      webhookHandler,
		test:          testHandler,
	})

	// Setup server
	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting inventory-service on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Stop background jobs first
	bgRunner.Stop()

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	if publisher != nil {
		publisher.Close()
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Printf("Error closing Redis connection: %v", err)
		}
	}

	log.Println("Server exited")
}

type routerDeps struct {
	logger        *logrus.Logger
	metrics       *metrics.Metrics
	resolver      middleware.OrganizationResolver
	limits        middleware.LimitChecker
	health        *handlers.HealthHandler
	products      *handlers.ProductHandler
	categories    *handlers.CategoryHandler
	orders        *handlers.OrderHandler
	warehouses    *handlers.WarehouseHandler
	customers     *handlers.CustomerHandler
	suppliers     *handlers.SupplierHandler
	organizations *handlers.OrganizationHandler
	users         *handlers.UserHandler
	subscriptions *handlers.SubscriptionHandler
	payments      *handlers.PaymentHandler
	webhooks      *handlers.WebhookHandler
	test          *handlers.TestHandler
}

func setupRouter(deps routerDeps) *gin.Engine {
	// Set Gin mode
	if getEnv("GIN_MODE", "debug") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// CORS configuration
	corsCfg := cors.DefaultConfig()
	corsCfg.AllowOrigins = []string{
		"http://localhost:3000",
		"http://localhost:5173",
	}
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		corsCfg.AllowOrigins = splitAndTrim(origins)
	}
	corsCfg.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"}
	corsCfg.AllowCredentials = true

	// Global middleware
	router.Use(cors.New(corsCfg))                        // CORS
	router.Use(gin.Recovery())                           // Panic recovery
	router.Use(middleware.RequestID())                   // Correlation IDs
	router.Use(middleware.StructuredLogger(deps.logger)) // Structured logging
	router.Use(deps.metrics.Middleware())                // Prometheus metrics

	// Metrics endpoint (Prometheus scraping)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health endpoints
	router.GET("/health", deps.health.Health)
	router.GET("/ready", deps.health.Ready)

	// Webhook endpoints carry their own signature verification and run
	// outside the auth and tenant middleware.
	webhooks := router.Group("/api/webhooks")
	{
		webhooks.POST("/clerk", deps.webhooks.HandleClerk)
		webhooks.POST("/stripe", deps.webhooks.HandleStripe)
	}

	// API routes: identity extraction, tenant resolution, then plan
	// limit enforcement on resource creation.
	api := router.Group("/api")
	api.Use(middleware.Auth())
	api.Use(middleware.TenantContext(deps.resolver, deps.logger))
	api.Use(middleware.SubscriptionLimits(deps.limits, deps.logger))
	{
		products := api.Group("/products")
		{
			products.GET("", deps.products.List)
			products.POST("", deps.products.Create)
			products.GET("/low-stock", deps.products.LowStock)
			products.GET("/:id", deps.products.Get)
			products.PUT("/:id", deps.products.Update)
			products.DELETE("/:id", deps.products.Delete)
			products.POST("/:id/adjust-stock", deps.products.AdjustStock)
			products.GET("/:id/movements", deps.products.Movements)
		}

		categories := api.Group("/categories")
		{
			categories.GET("", deps.categories.List)
			categories.POST("", deps.categories.Create)
			categories.GET("/:id", deps.categories.Get)
			categories.PUT("/:id", deps.categories.Update)
			categories.DELETE("/:id", deps.categories.Delete)
		}

		orders := api.Group("/orders")
		{
			orders.GET("", deps.orders.List)
			orders.POST("", deps.orders.Create)
			orders.GET("/:id", deps.orders.Get)
			orders.POST("/:id/status", deps.orders.UpdateStatus)
			orders.POST("/:id/cancel", deps.orders.Cancel)
			orders.DELETE("/:id", deps.orders.Delete)
		}

		warehouses := api.Group("/warehouses")
		{
			warehouses.GET("", deps.warehouses.List)
			warehouses.POST("", deps.warehouses.Create)
			warehouses.GET("/:id", deps.warehouses.Get)
			warehouses.PUT("/:id", deps.warehouses.Update)
			warehouses.POST("/:id/default", deps.warehouses.SetDefault)
			warehouses.DELETE("/:id", deps.warehouses.Delete)
		}

		customers := api.Group("/customers")
		{
			customers.GET("", deps.customers.List)
			customers.POST("", deps.customers.Create)
			customers.GET("/:id", deps.customers.Get)
			customers.PUT("/:id", deps.customers.Update)
			customers.DELETE("/:id", deps.customers.Delete)
		}

		suppliers := api.Group("/suppliers")
		{
			suppliers.GET("", deps.suppliers.List)
			suppliers.POST("", deps.suppliers.Create)
			suppliers.GET("/:id", deps.suppliers.Get)
			suppliers.PUT("/:id", deps.suppliers.Update)
			suppliers.DELETE("/:id", deps.suppliers.Delete)
		}

		organizations := api.Group("/organizations")
		{
			organizations.GET("/current", deps.organizations.Current)
			organizations.PUT("/current", deps.organizations.Update)
			organizations.POST("/sync", deps.organizations.Sync)
			organizations.POST("/complete-setup", deps.organizations.CompleteSetup)
		}

		users := api.Group("/users")
		{
			users.POST("", deps.users.AddMember)
			users.POST("/create-or-update", deps.users.CreateOrUpdate)
			users.GET("/me", deps.users.Me)
			users.POST("/current-organization", deps.users.SetCurrentOrganization)
			users.GET("/members", deps.users.ListMembers)
			users.PUT("/members/:id/role", deps.users.UpdateMemberRole)
			users.DELETE("/members/:id", deps.users.RemoveMember)
		}

		subscriptions := api.Group("/subscriptions")
		{
			subscriptions.GET("/current", deps.subscriptions.Current)
			subscriptions.GET("/plans", deps.subscriptions.Plans)
			subscriptions.GET("/limits", deps.subscriptions.Limits)
			subscriptions.GET("/usage", deps.subscriptions.Usage)
			subscriptions.GET("/check-limit", deps.subscriptions.CheckLimit)
			subscriptions.POST("/trial", deps.subscriptions.StartTrial)
			subscriptions.POST("/change-plan", deps.subscriptions.ChangePlan)
			subscriptions.POST("/cancel", deps.subscriptions.Cancel)
			subscriptions.POST("/reactivate", deps.subscriptions.Reactivate)
		}

		payments := api.Group("/payments")
		{
			payments.POST("/create-checkout-session", deps.payments.CreateCheckoutSession)
			payments.POST("/create-portal-session", deps.payments.CreatePortalSession)
			payments.GET("/prices", deps.payments.Prices)
			payments.POST("/cancel-subscription", deps.payments.CancelSubscription)
		}

		// Test endpoints (only available in dev/test mode)
		if deps.test != nil {
			test := api.Group("/test")
			{
				test.GET("/ping", deps.test.Ping)
				test.GET("/auth-test", deps.test.AuthTest)
				test.POST("/echo", deps.test.Echo)
			}
		}
	}

	return router
}

func initLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	level, err := logrus.ParseLevel(cfg.App.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Connected to database successfully")
	return db, nil
}

func autoMigrate(db *gorm.DB) error {
	log.Println("Starting database migration...")

	// Enable UUID extension in PostgreSQL
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error; err != nil {
		log.Printf("Warning: Failed to create uuid-ossp extension: %v", err)
	}

	for _, model := range models.AllModels() {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}

	for _, ddl := range models.UniqueIndexDDL() {
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("failed to create unique index: %w", err)
		}
	}

	log.Println("Database migration completed successfully")
	return nil
}

func initMetrics(db *gorm.DB) *metrics.Metrics {
	m := metrics.New(metrics.Config{
		ServiceName: "inventory-service",
		Namespace:   "inventory",
		Subsystem:   "api",
	})

	// Database connection pool metrics
	dbConnectionsOpen := m.RegisterGauge(
		"inventory_api_db_connections_open",
		"Number of open database connections",
	)

	dbConnectionsIdle := m.RegisterGauge(
		"inventory_api_db_connections_idle",
		"Number of idle database connections",
	)

	dbConnectionsInUse := m.RegisterGauge(
		"inventory_api_db_connections_in_use",
		"Number of database connections currently in use",
	)

	// Update database metrics periodically
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()

		for range ticker.C {
			sqlDB, err := db.DB()
			if err != nil {
				log.Printf("Failed to get database instance: %v", err)
				continue
			}

			stats := sqlDB.Stats()
			dbConnectionsOpen.Set(float64(stats.OpenConnections))
			dbConnectionsIdle.Set(float64(stats.Idle))
			dbConnectionsInUse.Set(float64(stats.InUse))
		}
	}()

	log.Println("Metrics initialized successfully")
	return m
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitAndTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
