package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rental-inventory/config"
	"rental-inventory/internal/cache"
	"rental-inventory/internal/clock"
	"rental-inventory/internal/events"
	"rental-inventory/internal/refresh"
	"rental-inventory/internal/repository"
	"rental-inventory/internal/repository/dynamo"
	"rental-inventory/internal/repository/memory"
	"rental-inventory/internal/repository/postgres"
	"rental-inventory/internal/router"
	"rental-inventory/internal/service"
	"rental-inventory/internal/store"
	gtransport "rental-inventory/internal/transport/grpc"
	"rental-inventory/pkg/database"
	"rental-inventory/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	isDev := os.Getenv("ENV") == "development"
	if err := logger.Init(isDev); err != nil {
		panic(err)
	}
	defer logger.Sync()

	log := logger.L()

	cfg := config.Load(log)
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var repo repository.Repository
	switch cfg.Backend {
	case config.BackendPostgres:
		db := database.ConnectDB(&cfg.DB, log)
		defer database.CloseDB(db, log)
		repo = postgres.New(db)
	case config.BackendDynamoDB:
		client, err := dynamo.NewClient(ctx, dynamo.Options{
			Region:      cfg.Dynamo.Region,
			Endpoint:    cfg.Dynamo.Endpoint,
			TablePrefix: cfg.Dynamo.TablePrefix,
			AccessKey:   cfg.Dynamo.StaticAccessKey,
			SecretKey:   cfg.Dynamo.StaticSecretKey,
		})
		if err != nil {
			log.Fatal("failed to create dynamodb client", zap.Error(err))
		}
		tables := dynamo.TablesWithPrefix(cfg.Dynamo.TablePrefix)
		if cfg.IsDevelopment() {
			if err := dynamo.EnsureTables(ctx, client, tables, log); err != nil {
				log.Fatal("failed to ensure dynamodb tables", zap.Error(err))
			}
		}
		repo = dynamo.New(client, tables)
	case config.BackendMemory:
		log.Warn("Using in-memory repository, data is lost on restart")
		repo = memory.New()
	}
	log.Info("Repository ready", zap.String("backend", cfg.Backend))

	st := store.New()
	scheduler := refresh.NewScheduler(st, repo, cfg.RefreshInterval, log)
	if err := scheduler.Start(ctx); err != nil {
		log.Fatal("failed to load store", zap.Error(err))
	}

	var bus service.EventBus = events.NewLogBus(log)
	var producer *events.LedgerProducer
	if cfg.Kafka.Enabled {
		producer = events.NewLedgerProducer(cfg.Kafka.Brokers, cfg.Kafka.LedgerTopic)
		bus = producer
		log.Info("Kafka ledger events enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.LedgerTopic))
	} else {
		log.Info("Kafka disabled, ledger events are only logged")
	}

	clk := clock.System()
	catalog := service.NewCatalogService(repo, st, clk, log)
	orders := service.NewOrderService(repo, st, clk, bus, log)
	stock := service.NewStockService(repo, st, clk, bus, log)
	avail := service.NewAvailabilityEngine(st)
	forecast := service.NewForecastEngine(st, clk, log)

	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log)
		if err != nil {
			log.Fatal("failed to create redis client", zap.Error(err))
		}
		defer redisClient.Close()
		forecast = forecast.WithCache(redisClient, cfg.Redis.TTL)
		log.Info("Redis forecast cache enabled")
	} else {
		log.Info("Redis cache disabled")
	}

	var consumer *events.ScanConsumer
	consumerDone := make(chan struct{})
	if cfg.Kafka.Enabled {
		consumer = events.NewScanConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.ScanTopic, stock, log)
		go func() {
			defer close(consumerDone)
			if err := consumer.Run(ctx); err != nil {
				log.Error("scan consumer stopped", zap.Error(err))
			}
		}()
	} else {
		close(consumerDone)
	}

	r := router.Router(router.Deps{
		Store:        st,
		Catalog:      catalog,
		Orders:       orders,
		Stock:        stock,
		Availability: avail,
		Forecast:     forecast,
		Clock:        clk,
		JWTSecret:    cfg.Auth.JWTSecret,
	}, log)
	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcSrv, healthSrv := gtransport.NewServer(log)
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		log.Fatal("failed to listen", zap.Error(err))
	}
	go gtransport.WatchStore(ctx, st, healthSrv, time.Second, log)

	go func() {
		log.Info("Starting HTTP server", zap.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()
	go func() {
		log.Info("Starting gRPC server", zap.String("addr", lis.Addr().String()))
		if err := grpcSrv.Serve(lis); err != nil {
			log.Fatal("gRPC server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", zap.Error(err))
	}

	scheduler.Stop()
	cancel()
	<-consumerDone
	if consumer != nil {
		if err := consumer.Close(); err != nil {
			log.Warn("scan consumer close failed", zap.Error(err))
		}
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Warn("ledger producer close failed", zap.Error(err))
		}
	}

	grpcSrv.GracefulStop()
	log.Info("Service stopped gracefully")
}
