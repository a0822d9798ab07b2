package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/yorusito/shop-backend/internal/api"
	"github.com/yorusito/shop-backend/internal/db"
	"github.com/yorusito/shop-backend/internal/gateway"
	"github.com/yorusito/shop-backend/internal/metrics"
	"github.com/yorusito/shop-backend/internal/notify"
	"github.com/yorusito/shop-backend/internal/services"
	"github.com/yorusito/shop-backend/pkg/config"
)

func main() {
	// Load configuration
	cfg := config.LoadConfig()

	// Initialize OpenTelemetry metrics
	ctx := context.Background()
	appMetrics, meterProvider, err := metrics.InitMetrics(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize metrics: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down meter provider: %v", err)
		}
	}()

	// Initialize database
	database, err := db.NewDB(cfg.GetDSN(), cfg.OTELServiceName)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	// Initialize schema
	schemaSQL, err := os.ReadFile("schema.sql")
	if err != nil {
		log.Printf("Warning: Could not read schema.sql: %v", err)
		log.Println("Assuming database schema already exists")
	} else {
		if err := database.InitSchema(ctx, string(schemaSQL)); err != nil {
			log.Printf("Warning: Could not initialize schema: %v", err)
			log.Println("Assuming database schema already exists")
		}
	}

	// Pick the payment gateway once at startup. Services never check
	// which one they got.
	var paymentGateway gateway.PaymentGateway
	if cfg.CulqiEnabled && cfg.CulqiConfigured() {
		paymentGateway = gateway.NewCulqiGateway(cfg.CulqiBaseURL, cfg.CulqiPublicKey, cfg.CulqiSecretKey, appMetrics)
		log.Println("Payment gateway: Culqi")
	} else {
		paymentGateway = gateway.NewSimulatedGateway()
		log.Println("Payment gateway: simulated (demo mode)")
	}

	// Initialize services
	notifyService := notify.NewService(database, appMetrics)
	productService := services.NewProductService(database, appMetrics)
	cartService := services.NewCartService(database, appMetrics)
	inventoryService := services.NewInventoryService(database, appMetrics, cfg.LowStockThreshold, productService)
	orderService := services.NewOrderService(database, appMetrics, inventoryService, notifyService)
	paymentService := services.NewPaymentService(database, appMetrics, paymentGateway, orderService, notifyService, cfg.PaymentSweepAfter)
	userService := services.NewUserService(database, appMetrics)

	// Initialize app
	app := api.NewApp(cfg, database, appMetrics,
		productService, cartService, orderService, paymentService,
		inventoryService, userService, notifyService)

	// Setup router
	router := mux.NewRouter()
	app.SetupRoutes(router)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Background sweep reconciles payments stuck in PROCESSING.
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go func() {
		ticker := time.NewTicker(cfg.PaymentSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				if _, err := paymentService.SweepPendingPayments(sweepCtx); err != nil {
					log.Printf("[SWEEP] sweep failed: %v", err)
				}
			}
		}
	}()

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.AppPort)
		log.Printf("OTLP endpoint: %s", cfg.OTELExporterOTLPEndpoint)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	stopSweep()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
