package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"huddleup/meetup-app/internal/api"
	"huddleup/meetup-app/internal/config"
	"huddleup/meetup-app/internal/notify"
	"huddleup/meetup-app/internal/realtime"
	mongorepo "huddleup/meetup-app/internal/repository/mongo"
	"huddleup/meetup-app/internal/service"
	"huddleup/meetup-app/internal/storage"

	"github.com/gin-gonic/gin"
)

func main() {
	log.Println("Starting HuddleUp server...")

	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}
	log.Println("Configuration loaded.")

	// --- Database Connection ---
	dbClient, err := mongorepo.ConnectDB(cfg.Database.URI)
	if err != nil {
		log.Fatalf("FATAL: Could not connect to MongoDB: %v", err)
	}
	defer func() {
		log.Println("Disconnecting MongoDB...")
		if err := mongorepo.DisconnectDB(dbClient); err != nil {
			log.Printf("ERROR: Failed to disconnect MongoDB: %v", err)
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	log.Println("Database connection established.")

	// --- Ensure Indexes ---
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		mongorepo.EnsureUserIndexes(ctx, appDB.Collection("users"))
		mongorepo.EnsureGroupIndexes(ctx, appDB.Collection("group_members"))
		mongorepo.EnsurePlanIndexes(ctx, appDB.Collection("plans"))
		mongorepo.EnsureParticipantIndexes(ctx, appDB.Collection("plan_participants"))
		mongorepo.EnsureOutcomeIndexes(ctx, appDB.Collection("applied_outcomes"))
		log.Println("Index creation process completed.")
	}()

	// --- Change-Event Broker (optional) ---
	var publisher realtime.Publisher = realtime.NopPublisher{}
	var subscriber realtime.Subscriber
	if cfg.Redis.Address != "" {
		broker, err := realtime.NewBroker(cfg.Redis.Address)
		if err != nil {
			log.Printf("WARN: Redis unavailable, running without change feed: %v", err)
		} else {
			defer broker.Close()
			publisher = broker
			subscriber = broker
			log.Println("Change-event broker connected.")
		}
	}

	// --- Push Gateway ---
	var gateway notify.Gateway = notify.LogGateway{}
	if cfg.Firebase.CredentialsFile != "" {
		fcm, err := notify.NewFCMGateway(context.Background(), cfg.Firebase.CredentialsFile)
		if err != nil {
			log.Printf("WARN: FCM unavailable, push delivery disabled: %v", err)
		} else {
			gateway = fcm
		}
	}

	// --- Object Storage ---
	var objectStorage storage.ObjectStorage
	if cfg.S3.BucketName != "" {
		objectStorage, err = storage.NewS3Storage(cfg.S3)
		if err != nil {
			log.Fatalf("FATAL: Failed to initialize S3 storage: %v", err)
		}
	}

	// --- Initialize Repositories ---
	userRepo := mongorepo.NewMongoUserRepository(appDB)
	groupRepo := mongorepo.NewMongoGroupRepository(appDB)
	planRepo := mongorepo.NewMongoPlanRepository(appDB)
	participantRepo := mongorepo.NewMongoParticipantRepository(appDB)
	outcomeRepo := mongorepo.NewMongoOutcomeRepository(appDB)

	// --- Initialize Services ---
	authService := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration)
	profileService := service.NewProfileService(userRepo, objectStorage)
	notificationService := service.NewNotificationService(gateway)
	ledgerService := service.NewLedgerService(userRepo, outcomeRepo, publisher)
	groupService := service.NewGroupService(groupRepo, userRepo, publisher)
	planService := service.NewPlanService(planRepo, participantRepo, groupRepo, userRepo, ledgerService, notificationService, publisher)
	leaderboardService := service.NewLeaderboardService(groupRepo, userRepo)

	// --- Initialize Gin Engine ---
	router := gin.Default()
	api.SetupRoutes(router, cfg.JWT.Secret, authService, profileService, groupService, planService, leaderboardService, subscriber)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("Server starting on %s", cfg.Server.Address)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: ListenAndServe Error: %v", err)
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("FATAL: Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting.")
}
