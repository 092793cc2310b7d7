package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bloodlink/internal/blog"
	"bloodlink/internal/config"
	"bloodlink/internal/consul"
	"bloodlink/internal/database"
	"bloodlink/internal/donations"
	"bloodlink/internal/events"
	"bloodlink/internal/identity"
	"bloodlink/internal/logger"
	"bloodlink/internal/metrics"
	"bloodlink/internal/server"
	"bloodlink/internal/session"
	"bloodlink/internal/storage"
	"bloodlink/internal/users"

	"github.com/gin-gonic/gin"
	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"
)

func main() {
	lgr := logger.New()
	logger.SetDefault(lgr)

	if err := run(lgr); err != nil {
		slog.Error("API stopped with error", "error", err.Error())
		os.Exit(1)
	}
}

func run(lgr *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("Starting API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"session_backend", cfg.Session.Backend,
	)

	m := metrics.New()

	db, err := database.New(ctx, cfg.Mongo)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Close(closeCtx); err != nil {
			slog.Warn("Failed to close database", "error", err.Error())
		}
	}()

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			slog.Warn("Redis is not reachable yet", "addr", cfg.Redis.Addr, "error", err.Error())
		} else {
			slog.Info("Connected to Redis", "addr", cfg.Redis.Addr)
		}
	}

	sessionStore, err := newSessionStore(ctx, cfg, db, redisClient)
	if err != nil {
		return err
	}
	sessions := session.NewManager(sessionStore, session.WithMetrics(m))

	verifier, err := identity.NewFirebaseVerifier(ctx, cfg.Firebase.ProjectID,
		identity.WithJWKSURL(cfg.Firebase.JWKSURL),
	)
	if err != nil {
		return err
	}
	gate := identity.NewGate(verifier, cfg.Firebase.VerifyTimeout, m)

	userRepo := users.NewMongoRepository(db.Collection(cfg.Mongo.UsersCollection))
	donationRepo := donations.NewMongoRepository(db.Collection(cfg.Mongo.DonationsCollection))
	postRepo := blog.NewMongoRepository(db.Collection(cfg.Mongo.PostsCollection))
	for name, ensure := range map[string]func(context.Context) error{
		"users":     userRepo.EnsureIndexes,
		"donations": donationRepo.EnsureIndexes,
		"posts":     postRepo.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", name, err)
		}
	}

	producer := newPublisher(cfg.Kafka, lgr, m)
	defer producer.Close()
	publisher := events.Instrumented(producer, m)

	store := newStorage(ctx, cfg.S3)

	deps := server.Deps{
		DB:      db,
		Redis:   redisClient,
		Storage: store,
		Metrics: m,
		Auth:    gate.RequireBearer(),
		Modules: []server.Module{
			session.NewHandler(sessions, session.CookieConfig{
				Domain: cfg.Session.CookieDomain,
				Secure: cfg.IsProduction(),
			}),
			users.NewHandler(users.NewService(userRepo)),
			donations.NewHandler(donations.NewService(donationRepo, publisher)),
			blog.NewHandler(blog.NewService(postRepo, redisClient)),
			storage.NewHandler(store),
		},
	}
	srv := server.New(cfg, deps)

	if cfg.Consul.Enabled() {
		deregister, err := registerWithConsul(cfg)
		if err != nil {
			return err
		}
		defer deregister()
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("API listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	slog.Info("Shutting down API")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("API stopped")
	return nil
}

// newSessionStore selects the session backend and prepares its indexes
func newSessionStore(ctx context.Context, cfg *config.Config, db database.Service, redisClient *redis.Client) (session.Store, error) {
	if cfg.Session.Backend == "redis" {
		slog.Info("Using Redis session store")
		return session.NewRedisStore(redisClient), nil
	}

	store := session.NewMongoStore(db.Collection(cfg.Mongo.SessionsCollection))
	if err := store.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("failed to create session indexes: %w", err)
	}
	return store, nil
}

// newPublisher returns a Kafka publisher when brokers are configured and a
// no-op publisher otherwise
func newPublisher(cfg config.KafkaConfig, lgr *slog.Logger, m *metrics.Metrics) events.Publisher {
	if !cfg.Enabled() {
		slog.Info("Kafka disabled, donation events will not be published")
		return events.NopPublisher{}
	}

	p, err := events.NewKafkaPublisher(cfg, lgr, m)
	if err != nil {
		slog.Warn("Failed to create Kafka publisher, donation events disabled", "error", err.Error())
		return events.NopPublisher{}
	}
	return p
}

// newStorage returns nil when S3 is not configured or unreachable at startup
func newStorage(ctx context.Context, cfg config.S3Config) storage.Service {
	if !cfg.Enabled() {
		slog.Info("S3 disabled, picture uploads unavailable")
		return nil
	}

	store, err := storage.New(ctx, cfg)
	if err != nil {
		slog.Warn("Failed to initialize storage", "error", err.Error())
		return nil
	}

	ensureCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := store.EnsureBucket(ensureCtx); err != nil {
		slog.Warn("Failed to ensure bucket exists", "bucket", cfg.BucketName, "error", err.Error())
	}

	return store
}

func registerWithConsul(cfg *config.Config) (func(), error) {
	client, err := consul.NewClient(cfg.Consul)
	if err != nil {
		return nil, err
	}

	reg := consul.RegistrationFor(cfg.Host, cfg.Port)
	if err := client.Register(reg); err != nil {
		return nil, err
	}
	slog.Info("Registered with Consul", "service_id", reg.ID)

	return func() {
		if err := client.Deregister(reg.ID); err != nil {
			slog.Warn("Failed to deregister from Consul", "error", err.Error())
			return
		}
		slog.Info("Deregistered from Consul", "service_id", reg.ID)
	}, nil
}
