package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"

	"github.com/cutwerk/inventory-service/internal/audit"
	"github.com/cutwerk/inventory-service/internal/clock"
	"github.com/cutwerk/inventory-service/internal/eviction"
	"github.com/cutwerk/inventory-service/internal/events"
	"github.com/cutwerk/inventory-service/internal/handler"
	"github.com/cutwerk/inventory-service/internal/reconcile"
	"github.com/cutwerk/inventory-service/internal/shopify"
	"github.com/cutwerk/inventory-service/internal/signature"
	"github.com/cutwerk/inventory-service/pkg/config"
	"github.com/cutwerk/inventory-service/pkg/middleware"
	pkgtls "github.com/cutwerk/inventory-service/pkg/tls"
)

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = lvl
	return zapCfg.Build()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("Failed to build logger:", err)
	}
	defer logger.Sync()

	storeClient := shopify.NewClient(cfg, logger)
	verifier := signature.NewVerifier(cfg.WebhookSecret)

	processor := reconcile.NewProcessor(storeClient, verifier, cfg, logger)
	sweeper := eviction.NewSweeper(storeClient, clock.SystemClock{}, cfg.TempVariantCeiling, cfg.EvictionBuffer, logger)

	// Incident store: skipped in local mode, incidents are then log-only.
	var incidentStore *audit.IncidentStore
	if !cfg.LocalMode {
		dynamoClient, err := audit.NewDynamoDBClient(cfg)
		if err != nil {
			log.Fatal("Failed to create DynamoDB client:", err)
		}
		incidentStore = audit.NewIncidentStore(dynamoClient, cfg.IncidentTableName, logger)
		processor.SetIncidentRecorder(incidentStore)
	}

	// Lifecycle event producer, optional mTLS to the broker.
	var producer *events.Producer
	if cfg.KafkaBrokers != "" {
		var tlsCfg pkgtls.TLSConfig
		if err := envconfig.Process("", &tlsCfg); err != nil {
			log.Fatal("Failed to load TLS config:", err)
		}
		kafkaTLS, err := pkgtls.LoadClientTLSConfig(&tlsCfg, logger)
		if err != nil {
			log.Fatal("Failed to load Kafka TLS config:", err)
		}
		defer pkgtls.Cleanup()

		producer = events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, kafkaTLS, logger)
		defer producer.Close()

		processor.SetPublisher(producer)
		sweeper.SetPublisher(producer)
	}

	webhookHandler := handler.NewWebhookHandler(processor, logger)

	var incidentLister handler.IncidentLister
	if incidentStore != nil {
		incidentLister = incidentStore
	}
	adminHandler := handler.NewAdminHandler(sweeper, incidentLister, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.RequestID())

	router.POST("/webhooks/orders/paid", webhookHandler.HandleOrderPaid)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/eviction/sweep", adminHandler.TriggerSweep)
		v1.GET("/incidents", adminHandler.ListIncidents)
		v1.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{"status": "healthy"})
		})
	}

	// Optional internal sweep ticker for deployments without an external
	// scheduler.
	sweepCtx, stopSweeps := context.WithCancel(context.Background())
	defer stopSweeps()
	if cfg.SweepInterval > 0 {
		go func() {
			ticker := time.NewTicker(cfg.SweepInterval)
			defer ticker.Stop()
			for {
				select {
				case <-sweepCtx.Done():
					return
				case <-ticker.C:
					if _, err := sweeper.Sweep(sweepCtx); err != nil {
						logger.Error("Scheduled sweep failed", zap.Error(err))
					}
				}
			}
		}()
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}
	logger.Info("Server exited")
}
