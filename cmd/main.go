package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"workmesh/backend/internal/api/handler"
	"workmesh/backend/internal/chathub"
	"workmesh/backend/internal/config"
	"workmesh/backend/internal/models"
	"workmesh/backend/internal/notify"
	"workmesh/backend/internal/relationship"
	"workmesh/backend/internal/storage"
)

func setupDependencies(cfg *config.Config) (*gorm.DB, *redis.Client) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx := context.Background()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect Redis: %v", err)
	}

	err = db.AutoMigrate(
		&models.Room{},
		&models.Message{},
		&models.UserContact{},
	)
	if err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Database and Redis connections established, migrations complete.")
	return db, rdb
}

func main() {
	log.Println("Starting workmesh messaging backend...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, rdb := setupDependencies(cfg)
	s := storage.NewStorageService(db, rdb)

	var checker relationship.Checker
	if cfg.RelationshipURL != "" {
		checker = relationship.NewHTTPChecker(cfg.RelationshipURL)
	} else {
		log.Println("Warning: RELATIONSHIP_URL not set, every pair qualifies (dev mode)")
		checker = relationship.AllowAll{}
	}

	hub := chathub.NewManagerService(s, checker)
	hub.TypingTTL = cfg.TypingTTL

	if cfg.TelegramBotToken != "" {
		notifier, err := notify.NewTelegramNotifier(cfg.TelegramBotToken, s)
		if err != nil {
			log.Fatalf("Failed to start offline notifier: %v", err)
		}
		hub.Notifier = notifier
	}

	hub.StartPubSubListener()
	go hub.Run()

	r := gin.Default()
	h := handler.NewHandler(hub, cfg)
	h.RegisterRoutes(r)

	server := &http.Server{
		Addr:           cfg.ListenAddr,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	log.Printf("Listening on %s", cfg.ListenAddr)
	log.Fatal(server.ListenAndServe())
}
