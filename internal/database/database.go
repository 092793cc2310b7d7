// Package database owns the MongoDB connection shared by every repository.
package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bloodlink/internal/config"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// Service exposes the document store to the rest of the API
type Service interface {
	// Collection returns a handle to the named collection in the configured database
	Collection(name string) *mongo.Collection

	// Health pings the deployment and reports its status
	Health(ctx context.Context) map[string]string

	// Close disconnects the client
	Close(ctx context.Context) error
}

type service struct {
	client *mongo.Client
	db     *mongo.Database
}

// New connects to MongoDB and verifies the connection with a ping
func New(ctx context.Context, cfg config.MongoConfig) (Service, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1).
		SetStrict(true).
		SetDeprecationErrors(true)

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetServerAPIOptions(serverAPI).
		SetConnectTimeout(cfg.ConnectTimeout)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	slog.Info("Connected to MongoDB", "database", cfg.Database)

	return &service{
		client: client,
		db:     client.Database(cfg.Database),
	}, nil
}

// Collection returns a collection handle
func (s *service) Collection(name string) *mongo.Collection {
	return s.db.Collection(name)
}

// Health pings the primary with a short timeout
func (s *service) Health(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return map[string]string{
			"status": "down",
			"error":  err.Error(),
		}
	}

	return map[string]string{"status": "up"}
}

// Close disconnects from the deployment
func (s *service) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
