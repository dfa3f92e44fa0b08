package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/time/rate"

	"github.com/GShadowBroker/library-server/handlers"
	"github.com/GShadowBroker/library-server/middleware"
	"github.com/GShadowBroker/library-server/repository"
	"github.com/GShadowBroker/library-server/services"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file, using process environment")
	}

	tokenSecret := os.Getenv("TOKEN_SECRET")
	if tokenSecret == "" {
		slog.Error("TOKEN_SECRET environment variable is not set")
		os.Exit(1)
	}

	var (
		userRepo   repository.UserRepository
		authorRepo repository.AuthorRepository
		bookRepo   repository.BookRepository
	)
	if uri := os.Getenv("MONGODB_CONNECTION_URI"); uri != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
		if err == nil {
			err = client.Ping(ctx, nil)
		}
		if err != nil {
			slog.Error("failed to connect to mongodb", "error", err)
			os.Exit(1)
		}
		db := client.Database("library")
		userRepo = repository.NewMongoUserRepository(db)
		authorRepo = repository.NewMongoAuthorRepository(db)
		bookRepo = repository.NewMongoBookRepository(db)
		slog.Info("connected to mongodb")
	} else {
		userRepo = repository.NewMemoryUserRepository()
		authorRepo = repository.NewMemoryAuthorRepository()
		bookRepo = repository.NewMemoryBookRepository()
		slog.Warn("MONGODB_CONNECTION_URI not set, running with in-memory stores")
	}

	var redisClient *redis.Client
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: addr})
		slog.Info("book feed fan-out through redis", "addr", addr)
	}

	feed := services.NewBookFeed(redisClient)
	defer feed.Close()

	authService := services.NewAuthService(userRepo, tokenSecret)
	catalogService := services.NewCatalogService(authorRepo, bookRepo, feed)
	friendService := services.NewFriendService(userRepo)

	authHandler := handlers.NewAuthHandler(authService)
	catalogHandler := handlers.NewCatalogHandler(catalogService)
	friendHandler := handlers.NewFriendHandler(friendService)
	subscriptionHandler := handlers.NewSubscriptionHandler(feed)

	r := mux.NewRouter()
	r.Use(middleware.ErrorMiddleware())
	r.Use(middleware.CORS([]string{"http://localhost:3000", "http://localhost:5173"}))

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.Identity(authService))

	// Credential endpoints, rate limited per IP
	credentials := api.NewRoute().Subrouter()
	credentials.Use(middleware.RateLimit(rate.Limit(2), 10))
	credentials.HandleFunc("/users", authHandler.CreateUser).Methods("POST", "OPTIONS")
	credentials.HandleFunc("/login", authHandler.Login).Methods("POST", "OPTIONS")

	// Catalogue
	api.HandleFunc("/books", catalogHandler.AllBooks).Methods("GET")
	api.HandleFunc("/books", catalogHandler.AddBook).Methods("POST", "OPTIONS")
	api.HandleFunc("/books/count", catalogHandler.BookCount).Methods("GET")
	api.HandleFunc("/authors", catalogHandler.AllAuthors).Methods("GET")
	api.HandleFunc("/authors", catalogHandler.EditAuthor).Methods("PUT", "OPTIONS")
	api.HandleFunc("/authors/count", catalogHandler.AuthorCount).Methods("GET")

	// Users and friendships
	api.HandleFunc("/me", friendHandler.Me).Methods("GET")
	api.HandleFunc("/users", friendHandler.AllUsers).Methods("GET")
	api.HandleFunc("/friends/request", friendHandler.RequestFriend).Methods("POST", "OPTIONS")
	api.HandleFunc("/friends/accept", friendHandler.AcceptFriend).Methods("POST", "OPTIONS")
	api.HandleFunc("/friends/reject", friendHandler.RejectFriend).Methods("POST", "OPTIONS")

	r.HandleFunc("/subscriptions/book-added", subscriptionHandler.BookAdded).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	port := os.Getenv("PORT")
	if port == "" {
		port = "4000"
	}
	slog.Info("server starting", "port", port)
	if err := http.ListenAndServe(":"+port, r); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
