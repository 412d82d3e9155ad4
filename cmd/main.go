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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Nvetto/magknives-tienda/internal/catalog"
	"github.com/Nvetto/magknives-tienda/internal/checkout"
	h "github.com/Nvetto/magknives-tienda/internal/http"
	"github.com/Nvetto/magknives-tienda/internal/repository"
	"github.com/Nvetto/magknives-tienda/internal/service"
)

type Config struct {
	HTTPPort        string
	BackendBaseURL  string
	WhatsappNumber  string
	StorageBackend  string
	RedisAddr       string
	RedisPassword   string
	MongoURI        string
	MongoDBName     string
	CatalogTTL      time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

func loadConfig() *Config {
	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		BackendBaseURL:  getEnv("BACKEND_BASE_URL", "http://127.0.0.1:5000"),
		WhatsappNumber:  getEnv("WHATSAPP_NUMBER", "5493329577462"),
		StorageBackend:  getEnv("STORAGE_BACKEND", "redis"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		MongoURI:        getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:     getEnv("MONGO_DB_NAME", "tiendadb"),
		CatalogTTL:      30 * time.Second,
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	cfg := loadConfig()
	ctx := context.Background()

	var repo repository.CartRepository
	var closeStore func()

	switch cfg.StorageBackend {
	case "mongo":
		mongoDB, err := repository.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		mongoRepo := repository.NewMongoRepository(mongoDB)
		if err := mongoRepo.CreateIndexes(ctx); err != nil {
			log.Fatalf("Failed to create indexes: %v", err)
		}
		repo = mongoRepo
		closeStore = func() { mongoDB.Client().Disconnect(ctx) }
		log.Printf("Connected to MongoDB at %s", cfg.MongoURI)
	case "redis":
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatalf("Redis connection failed: %v", err)
		}
		repo = repository.NewRedisRepository(redisClient)
		closeStore = func() { redisClient.Close() }
		log.Printf("Connected to Redis at %s", cfg.RedisAddr)
	default:
		log.Fatalf("Unknown storage backend %q", cfg.StorageBackend)
	}
	defer closeStore()

	httpClient := &http.Client{
		Timeout:   15 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	provider := catalog.NewHTTPProvider(cfg.BackendBaseURL, httpClient, cfg.CatalogTTL)
	reserver := checkout.NewHTTPReserver(cfg.BackendBaseURL, httpClient)

	manager := h.NewCartManager(func(ownerID string) *service.CartService {
		return service.NewCartService(ownerID, repo, provider, reserver, cfg.WhatsappNumber)
	})
	cartHandler := h.NewCartHandler(manager, provider, cfg.RequestTimeout)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Use(h.AuthMiddleware)
			r.Get("/", cartHandler.GetCart)
			r.Post("/items", cartHandler.AddItem)
			r.Post("/items/{index}/increment", cartHandler.IncrementItem)
			r.Post("/items/{index}/decrement", cartHandler.DecrementItem)
			r.Delete("/items/{index}", cartHandler.RemoveItem)
			r.Post("/checkout", cartHandler.Checkout)
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(r, "cart-service"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Cart service starting on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("server exited")
}
