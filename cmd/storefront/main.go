package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/axelsjewelry/storefront/internal/activity"
	"github.com/axelsjewelry/storefront/internal/admin"
	"github.com/axelsjewelry/storefront/internal/backend"
	"github.com/axelsjewelry/storefront/internal/backend/postgres"
	"github.com/axelsjewelry/storefront/internal/catalog"
	"github.com/axelsjewelry/storefront/internal/config"
	"github.com/axelsjewelry/storefront/internal/events"
	"github.com/axelsjewelry/storefront/internal/httpapi"
	"github.com/axelsjewelry/storefront/internal/kvstore"
	"github.com/axelsjewelry/storefront/internal/orders"
	"github.com/axelsjewelry/storefront/internal/wishlist"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger := log.New(os.Stdout, "[storefront] ", log.LstdFlags|log.Lshortfile)

	records := mustRecordStore(cfg, logger)
	kv := mustKVStore(cfg, logger)

	var publisher orders.Publisher
	if cfg.AMQPURL != "" {
		conn, err := amqp.Dial(cfg.AMQPURL)
		if err != nil {
			logger.Fatalf("dial rabbitmq: %v", err)
		}
		defer conn.Close()
		pub, err := events.NewPublisher(conn)
		if err != nil {
			logger.Fatalf("rabbitmq publisher: %v", err)
		}
		defer pub.Close()
		publisher = pub
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	// Validate the backend URL once so per-session clients cannot fail.
	if _, err := backend.NewClient(cfg.BackendURL, cfg.BackendKey, httpClient, logger); err != nil {
		logger.Fatalf("backend client: %v", err)
	}
	newBackend := func() backend.SessionBackend {
		c, _ := backend.NewClient(cfg.BackendURL, cfg.BackendKey, httpClient, logger)
		return c
	}

	sessions := httpapi.NewSessionManager(newBackend, records, kv, httpapi.SessionManagerOptions{
		DevLogins:  cfg.DevLogins,
		RedirectTo: cfg.SiteURL,
		Logger:     logger,
	})
	defer sessions.Close()

	if cfg.DevLogins {
		logger.Println("development logins are ENABLED")
	}

	handler := httpapi.NewHandler(
		sessions,
		catalog.NewService(records),
		orders.NewService(records, publisher, logger),
		wishlist.NewService(records),
		admin.NewRepository(records),
		activity.NewRecorder(records, logger),
		logger,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      httpapi.NewRouter(handler, cfg.CORSAllowOrigins),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Printf("storefront listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

// mustRecordStore picks direct Postgres when a DSN is configured and the
// hosted REST backend otherwise.
func mustRecordStore(cfg config.Config, logger *log.Logger) backend.RecordStore {
	if cfg.PostgresDSN != "" {
		if err := postgres.RunMigrations(cfg.PostgresDSN, logger); err != nil {
			logger.Fatalf("migrations: %v", err)
		}
		db, err := postgres.Open(cfg.PostgresDSN)
		if err != nil {
			logger.Fatalf("open postgres: %v", err)
		}
		logger.Println("records: postgres")
		return postgres.NewStore(db)
	}

	rc, err := backend.NewRecordsClient(cfg.BackendURL, cfg.BackendKey, &http.Client{Timeout: cfg.HTTPTimeout})
	if err != nil {
		logger.Fatalf("records client: %v", err)
	}
	logger.Println("records: hosted REST")
	return rc
}

// mustKVStore picks Redis, file-backed or in-memory session state.
func mustKVStore(cfg config.Config, logger *log.Logger) kvstore.Store {
	if cfg.RedisAddr != "" {
		logger.Println("kvstore: redis")
		return kvstore.NewRedis(cfg.RedisAddr, cfg.RedisPassword, "storefront")
	}
	if cfg.StateDir != "" {
		s, err := kvstore.NewFile(cfg.StateDir)
		if err != nil {
			logger.Fatalf("file kvstore: %v", err)
		}
		logger.Println("kvstore: file")
		return s
	}
	logger.Println("kvstore: memory")
	return kvstore.NewMemory()
}
