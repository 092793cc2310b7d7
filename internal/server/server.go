// Package server assembles the HTTP API: middleware, the /api route
// groups and the operational endpoints.
package server

import (
	"context"
	"net/http"
	"time"

	"bloodlink/internal/config"
	"bloodlink/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Module is a group of routes mounted under /api
type Module interface {
	RegisterRoutes(r gin.IRouter, auth gin.HandlerFunc)
}

// DatabaseHealth reports the document store status
type DatabaseHealth interface {
	Health(ctx context.Context) map[string]string
}

// StorageHealth reports the object store status
type StorageHealth interface {
	Health(ctx context.Context) error
}

// Deps are the collaborators the server routes to. Redis and Storage may be
// nil when those backends are not configured.
type Deps struct {
	DB      DatabaseHealth
	Redis   *redis.Client
	Storage StorageHealth
	Metrics *metrics.Metrics

	// Auth guards the bearer-protected routes of every module
	Auth    gin.HandlerFunc
	Modules []Module
}

// Server holds the dependencies for the HTTP server
type Server struct {
	corsOrigins []string
	deps        Deps
}

// New builds the HTTP server for cfg
func New(cfg *config.Config, deps Deps) *http.Server {
	s := &Server{
		corsOrigins: cfg.CORSAllowedOrigins,
		deps:        deps,
	}

	return &http.Server{
		Addr:              cfg.Addr(),
		Handler:           s.RegisterRoutes(),
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
}

// RegisterRoutes builds the gin engine
func (s *Server) RegisterRoutes() http.Handler {
	r := gin.New()
	r.Use(
		gin.Recovery(),
		RequestID(),
		Logging(),
		Metrics(s.deps.Metrics),
		CORS(s.corsOrigins),
	)

	r.GET("/", s.rootHandler)
	r.GET("/health", s.healthHandler)
	if s.deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(s.deps.Metrics.Handler()))
	}

	api := r.Group("/api")
	for _, m := range s.deps.Modules {
		m.RegisterRoutes(api, s.deps.Auth)
	}

	return r
}

func (s *Server) rootHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Server Running!"})
}

// healthHandler answers 503 when the database is down so the Consul check
// fails. Cache and storage outages only mark the response degraded.
func (s *Server) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	response := gin.H{}
	status := "up"

	db := s.deps.DB.Health(ctx)
	response["database"] = db
	if db["status"] != "up" {
		status = "down"
	}

	if s.deps.Redis != nil {
		redisHealth := map[string]string{"status": "up"}
		if err := s.deps.Redis.Ping(ctx).Err(); err != nil {
			redisHealth = map[string]string{"status": "down", "error": err.Error()}
			if status == "up" {
				status = "degraded"
			}
		}
		response["redis"] = redisHealth
	}

	if s.deps.Storage != nil {
		storageHealth := map[string]string{"status": "up"}
		if err := s.deps.Storage.Health(ctx); err != nil {
			storageHealth = map[string]string{"status": "down", "error": err.Error()}
			if status == "up" {
				status = "degraded"
			}
		}
		response["storage"] = storageHealth
	}

	response["status"] = status
	code := http.StatusOK
	if status == "down" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, response)
}
