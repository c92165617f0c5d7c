package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/okhomin/contacts-service/internal/config"
	"github.com/okhomin/contacts-service/internal/es"
	"github.com/okhomin/contacts-service/internal/handlers"
	"github.com/okhomin/contacts-service/internal/hash"
	"github.com/okhomin/contacts-service/internal/logging"
	"github.com/okhomin/contacts-service/internal/middleware"
	"github.com/okhomin/contacts-service/internal/models"
	"github.com/okhomin/contacts-service/internal/mykafka"
	"github.com/okhomin/contacts-service/internal/repository"
	"github.com/okhomin/contacts-service/internal/service"
	"github.com/okhomin/contacts-service/internal/token"
	httpserver "github.com/okhomin/contacts-service/internal/transport/http"
)

const contactsIndex = "contacts"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(cfg.LogLevel)

	db, err := config.InitDB(context.Background(), cfg)
	if err != nil {
		log.Fatalf("database init: %v", err)
	}

	var prod *mykafka.Producer
	if cfg.KafkaAddress != "" {
		prod, err = mykafka.NewProducer([]string{cfg.KafkaAddress})
		if err != nil {
			log.Fatalf("kafka init: %v", err)
		}
	}

	var esClient *elasticsearch.Client
	if cfg.ESURL != "" {
		esClient, err = es.NewClient(cfg)
		if err != nil {
			log.Fatalf("elasticsearch init: %v", err)
		}
	}

	hasher := hash.New(cfg.BcryptCost)
	codec := token.NewCodec(cfg.SecretKey, cfg.AccessTTL(), cfg.RefreshTTL(), cfg.JWTLeeway)
	users := repository.NewUserRepo(db)
	contacts := repository.NewContactRepo(db)

	authSvc := &service.AuthService{Users: users, Hasher: hasher, Codec: codec}

	if err := seedAdmin(context.Background(), cfg, users, hasher); err != nil {
		log.Fatalf("admin seed: %v", err)
	}

	e := echo.New()
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover(), echomw.RequestID())
	e.Use(middleware.RequestLogger(logger))
	e.Use(middleware.ProcessTime())

	deps := httpserver.Deps{
		Auth:     middleware.NewAuth(codec, users),
		AuthH:    &handlers.AuthHandler{Svc: authSvc, Producer: prod},
		UserH:    &handlers.UserHandler{Users: users, Producer: prod},
		ContactH: &handlers.ContactHandler{Contacts: contacts, Producer: prod, ES: esClient, Index: contactsIndex},
		HealthH:  &handlers.HealthHandler{DB: db},
	}
	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	if err := prod.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	log.Println("shutdown complete")
}

// seedAdmin ensures the configured admin account exists.
func seedAdmin(ctx context.Context, cfg *config.Config, users *repository.UserRepo, hasher *hash.Hasher) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	if _, err := users.GetByEmail(ctx, cfg.AdminEmail); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	pwHash, err := hasher.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}
	return users.Create(ctx, &models.User{
		Email:        cfg.AdminEmail,
		PasswordHash: pwHash,
		Role:         models.RoleAdmin,
	})
}
