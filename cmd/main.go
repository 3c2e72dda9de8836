package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"quotation-tax-service/internal/config"
	"quotation-tax-service/internal/database"
	"quotation-tax-service/internal/events"
	"quotation-tax-service/internal/handlers"
	"quotation-tax-service/internal/middleware"
	"quotation-tax-service/internal/repository"
	"quotation-tax-service/internal/services"
)

// roleAdmin gates reference-data writes; every staff role may calculate.
const roleAdmin = "admin"

func main() {
	// Load configuration
	cfg := config.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	// Connect to database
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("✓ Connected to database")

	// Run automated database migrations (schema + seed data)
	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	// Optional Redis cache for reference data
	redisClient := config.InitRedis(cfg)
	if redisClient != nil {
		log.Println("✓ Redis cache enabled")
	}

	// Initialize NATS events publisher (non-blocking)
	go func() {
		if err := events.InitPublisher(logger); err != nil {
			log.Printf("WARNING: Failed to initialize events publisher: %v (events won't be published)", err)
		}
	}()

	// Initialize repository, engine and handlers
	taxRepo := repository.NewTaxRepository(db, redisClient)
	taxEngine := services.NewTaxEngine(taxRepo, logger)
	taxHandler := handlers.NewTaxHandler(taxEngine, taxRepo, logger)
	refHandler := handlers.NewReferenceHandler(taxRepo, logger)

	// Setup router
	router := setupRouter(taxHandler, refHandler, db)

	// Start server
	log.Printf("Quotation Tax Service starting on port %s (env: %s)", cfg.Port, cfg.Environment)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// setupRouter configures the HTTP router
func setupRouter(taxHandler *handlers.TaxHandler, refHandler *handlers.ReferenceHandler, db *gorm.DB) *gin.Engine {
	router := gin.Default()

	router.Use(middleware.SetupCORS())
	router.Use(middleware.RequestID())

	// Health checks
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "quotation-tax-service",
		})
	})

	// Liveness probe - simple check that the service is running
	router.GET("/livez", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Readiness probe - check that DB is accessible
	router.GET("/readyz", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err != nil {
			c.JSON(503, gin.H{"status": "error", "message": "database not available"})
			return
		}
		if err := sqlDB.Ping(); err != nil {
			c.JSON(503, gin.H{"status": "error", "message": "database ping failed"})
			return
		}
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	v1.Use(middleware.RequireTenantID())
	{
		// Tax calculation
		tax := v1.Group("/tax")
		{
			tax.POST("/calculate", taxHandler.CalculateTax)
			tax.GET("/calculations", taxHandler.ListCalculationLogs)
		}

		// Country CRUD
		countries := v1.Group("/countries")
		{
			countries.GET("", refHandler.ListCountries)
			countries.GET("/:id", refHandler.GetCountry)
			countries.POST("", middleware.RequireRole(roleAdmin), refHandler.CreateCountry)
			countries.PUT("/:id", middleware.RequireRole(roleAdmin), refHandler.UpdateCountry)
			countries.PUT("/:id/default", middleware.RequireRole(roleAdmin), refHandler.SetDefaultCountry)
			countries.DELETE("/:id", middleware.RequireRole(roleAdmin), refHandler.DeleteCountry)
		}

		// Jurisdiction CRUD
		jurisdictions := v1.Group("/jurisdictions")
		{
			jurisdictions.GET("", refHandler.ListJurisdictions)
			jurisdictions.GET("/:id", refHandler.GetJurisdiction)
			jurisdictions.POST("", middleware.RequireRole(roleAdmin), refHandler.CreateJurisdiction)
			jurisdictions.PUT("/:id", middleware.RequireRole(roleAdmin), refHandler.UpdateJurisdiction)
			jurisdictions.DELETE("/:id", middleware.RequireRole(roleAdmin), refHandler.DeleteJurisdiction)
		}

		// Framework CRUD, plus the rates declared under a framework
		frameworks := v1.Group("/frameworks")
		{
			frameworks.GET("", refHandler.ListFrameworks)
			frameworks.GET("/:id", refHandler.GetFramework)
			frameworks.GET("/:id/rates", refHandler.ListTaxRates)
			frameworks.POST("", middleware.RequireRole(roleAdmin), refHandler.CreateFramework)
			frameworks.DELETE("/:id", middleware.RequireRole(roleAdmin), refHandler.DeleteFramework)
		}

		// Category CRUD
		categories := v1.Group("/categories")
		{
			categories.GET("", refHandler.ListCategories)
			categories.POST("", middleware.RequireRole(roleAdmin), refHandler.CreateCategory)
			categories.PUT("/:id", middleware.RequireRole(roleAdmin), refHandler.UpdateCategory)
			categories.DELETE("/:id", middleware.RequireRole(roleAdmin), refHandler.DeleteCategory)
		}

		// Tax rate CRUD
		rates := v1.Group("/rates")
		{
			rates.POST("", middleware.RequireRole(roleAdmin), refHandler.CreateTaxRate)
			rates.PUT("/:id", middleware.RequireRole(roleAdmin), refHandler.UpdateTaxRate)
			rates.DELETE("/:id", middleware.RequireRole(roleAdmin), refHandler.DeleteTaxRate)
		}
	}

	return router
}
