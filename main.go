package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/Maksud444/market-cairo-server/internal/api"
	"github.com/Maksud444/market-cairo-server/internal/cache"
	"github.com/Maksud444/market-cairo-server/internal/config"
	"github.com/Maksud444/market-cairo-server/internal/db"
	"github.com/Maksud444/market-cairo-server/internal/email"
	"github.com/Maksud444/market-cairo-server/internal/realtime"
	"github.com/Maksud444/market-cairo-server/internal/services"
	"github.com/Maksud444/market-cairo-server/internal/storage"
	"github.com/Maksud444/market-cairo-server/internal/tasks"
)

var runMode = flag.String("m", "all", "Run mode: 'api', 'bg' (background tasks), 'all' (default)")

func main() {
	flag.Parse()

	cfg, err := config.Load(*runMode)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Database
	mongoClient, mongoDb, err := db.ConnectDB(cfg.MongoURI, cfg.MongoDbName)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := db.DisconnectDB(mongoClient); err != nil {
			log.Printf("Error disconnecting from MongoDB: %v", err)
		}
	}()

	ctxIdx, cancelIdx := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.EnsureIndexes(ctxIdx, mongoDb); err != nil {
		cancelIdx()
		log.Fatalf("Failed to ensure indexes: %v", err)
	}
	cancelIdx()

	// Cache (Redis, backing the task queue)
	redisClient, err := cache.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer func() {
		if err := cache.DisconnectRedis(redisClient); err != nil {
			log.Printf("Error disconnecting from Redis: %v", err)
		}
	}()

	// S3 storage
	s3StorageService, err := storage.NewS3Storage(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize S3 storage: %v", err)
	}

	// Email sender
	emailSender := email.NewSMTPSender(cfg)

	// Realtime registry and side-effect dispatcher
	registry := realtime.NewRegistry()
	taskClient := tasks.NewClient(redisClient)
	defer taskClient.Close()
	dispatcher := tasks.NewDispatcher(taskClient, registry)

	// Services needed by the task processor
	userService := services.NewUserService(mongoDb, dispatcher)
	notificationService := services.NewNotificationService(mongoDb, dispatcher)
	listingService := services.NewListingService(mongoDb, userService, notificationService, dispatcher)

	taskProcessor := tasks.NewTaskProcessor(cfg, emailSender, s3StorageService, listingService)

	var wg sync.WaitGroup
	var mainApiSrv *http.Server
	var taskSrv *asynq.Server
	sweeperStop := make(chan struct{})

	fmt.Printf("Starting application in '%s' mode...\n", cfg.RunMode)

	apiMode := func() {
		fmt.Println("Starting main API server...")
		router := api.SetupRouter(cfg, mongoDb, registry, dispatcher, s3StorageService)
		mainApiSrv = &http.Server{
			Addr:    ":" + cfg.ApiPort,
			Handler: router,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			fmt.Printf("Main API listening on :%s\n", cfg.ApiPort)
			if err := mainApiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Main API ListenAndServe error: %v", err)
			}
			fmt.Println("Main API server stopped.")
		}()
	}

	bgMode := func() {
		fmt.Println("Starting background worker...")
		srv, mux := tasks.SetupServer(redisClient, taskProcessor)
		taskSrv = srv
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := taskSrv.Run(mux); err != nil {
				log.Fatalf("Background task server error: %v", err)
			}
			fmt.Println("Background task server stopped.")
		}()

		// Retention sweeper: one eager sweep at startup, then hourly. The
		// sweep itself runs on the task queue so a crashed tick is just a
		// missed hour, covered by the read-path grace check.
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := dispatcher.EnqueuePurge(context.Background()); err != nil {
				log.Printf("WARN: failed to enqueue startup retention sweep: %v", err)
			}
			ticker := time.NewTicker(cfg.SweepInterval)
			defer ticker.Stop()
			for {
				select {
				case <-sweeperStop:
					return
				case <-ticker.C:
					if err := dispatcher.EnqueuePurge(context.Background()); err != nil {
						log.Printf("WARN: failed to enqueue retention sweep: %v", err)
					}
				}
			}
		}()
	}

	switch cfg.RunMode {
	case "api":
		apiMode()
	case "bg":
		bgMode()
	case "all":
		apiMode()
		bgMode()
	default:
		log.Fatalf("Invalid run mode specified: %s.", cfg.RunMode)
	}

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	fmt.Printf("\nReceived signal: %s. Shutting down gracefully...\n", sig)

	close(sweeperStop)

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	if mainApiSrv != nil {
		fmt.Println("Shutting down Main API server...")
		if err := mainApiSrv.Shutdown(ctxShutdown); err != nil {
			log.Printf("Main API server shutdown error: %v", err)
		}
	}
	if taskSrv != nil {
		fmt.Println("Shutting down Background Task server...")
		taskSrv.Shutdown()
	}
	registry.Close()

	wg.Wait()
	fmt.Println("Shutdown complete.")
}
