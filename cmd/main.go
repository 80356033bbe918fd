package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"campusrate/internal/app/reviews/config"
	"campusrate/internal/app/reviews/entity"
	"campusrate/internal/app/reviews/handler"
	"campusrate/internal/app/reviews/infrastructure/messaging"
	"campusrate/internal/app/reviews/repository"
	"campusrate/internal/app/reviews/risk"
	"campusrate/internal/app/reviews/service"
	"campusrate/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logger.Init("campusrate", logLevel)

	db, err := connectDB(cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	logger.Info().Msg("Connected to PostgreSQL")

	if err := db.AutoMigrate(
		&entity.Review{},
		&entity.Flag{},
		&entity.Vote{},
		&entity.ModerationAction{},
	); err != nil {
		logger.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Mapping store живёт в отдельной базе с отдельным credential:
	// контент-хранилищу связь отзыв-автор недоступна
	mongoClient, err := connectMongoDB(cfg.Mapping)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to mapping store")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := mongoClient.Disconnect(ctx); err != nil {
			logger.Error().Err(err).Msg("Error disconnecting from mapping store")
		}
	}()
	logger.Info().
		Str("database", cfg.Mapping.Database).
		Msg("Connected to mapping store")

	mappingDB := mongoClient.Database(cfg.Mapping.Database)

	catalogPool, err := pgxpool.New(context.Background(), cfg.Catalog.DSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to catalog database")
	}
	defer catalogPool.Close()
	logger.Info().Msg("Connected to catalog database")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Warn().Err(err).Msg("Redis unavailable at startup, rate limiting will fail open")
	} else {
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")
	}

	kafkaProducer := messaging.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	defer kafkaProducer.Close()
	logger.Info().
		Str("topic", cfg.Kafka.Topic).
		Msg("Initialized Kafka producer")

	reviewRepo := repository.NewReviewRepository(db)
	flagRepo := repository.NewFlagRepository(db)
	voteRepo := repository.NewVoteRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	mappingRepo := repository.NewAuthorMappingRepository(mappingDB)
	targetRepo := repository.NewTargetRepository(catalogPool)
	rateRepo := repository.NewRateLimitRepository(redisClient)

	scorer := risk.NewScorer()

	flagService := service.NewFlagService(
		reviewRepo,
		flagRepo,
		voteRepo,
		rateRepo,
		kafkaProducer,
		cfg.Moderation,
		cfg.RateLimit,
	)
	ingestionService := service.NewIngestionService(
		reviewRepo,
		mappingRepo,
		targetRepo,
		rateRepo,
		flagService,
		scorer,
		kafkaProducer,
		cfg.Moderation,
		cfg.RateLimit,
	)
	moderationService := service.NewModerationService(
		reviewRepo,
		auditRepo,
		mappingRepo,
		kafkaProducer,
		cfg.Moderation,
	)

	authMiddleware := handler.NewAuthMiddleware(cfg.JWT.Secret, cfg.JWT.ServiceSecret)
	reviewHandler := handler.NewReviewHandler(ingestionService, flagService, moderationService)
	moderationHandler := handler.NewModerationHandler(moderationService)
	router := handler.SetupRoutes(reviewHandler, moderationHandler, authMiddleware)

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("Starting CampusRate Reviews Service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down CampusRate Reviews Service...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("CampusRate Reviews Service stopped gracefully")
}

func connectDB(cfg config.PostgresConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	}

	var db *gorm.DB
	var err error

	for i := 0; i < 10; i++ {
		db, err = gorm.Open(postgres.Open(cfg.DSN), gormConfig)
		if err == nil {
			sqlDB, sqlErr := db.DB()
			if sqlErr != nil {
				err = sqlErr
			} else {
				pingErr := sqlDB.Ping()
				if pingErr != nil {
					err = pingErr
				} else {
					sqlDB.SetMaxOpenConns(25)
					sqlDB.SetMaxIdleConns(5)
					sqlDB.SetConnMaxLifetime(5 * time.Minute)
					sqlDB.SetConnMaxIdleTime(1 * time.Minute)
					return db, nil
				}
			}
		}
		logger.Warn().
			Int("attempt", i+1).
			Err(err).
			Msg("Failed to connect to database, retrying...")
		time.Sleep(3 * time.Second)
	}

	return nil, fmt.Errorf("failed to connect after 10 attempts: %w", err)
}

func connectMongoDB(cfg config.MappingStoreConfig) (*mongo.Client, error) {
	clientOptions := options.Client().ApplyURI(cfg.URI)

	var client *mongo.Client
	var err error

	for i := 0; i < 10; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		client, err = mongo.Connect(ctx, clientOptions)
		if err == nil {
			pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer pingCancel()

			if err = client.Ping(pingCtx, nil); err == nil {
				return client, nil
			}
		}

		logger.Warn().
			Int("attempt", i+1).
			Err(err).
			Msg("Failed to connect to mapping store, retrying...")
		time.Sleep(3 * time.Second)
	}

	return nil, err
}
