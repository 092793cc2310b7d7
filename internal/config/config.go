// Package config loads and validates the API configuration from the environment.
package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvProduction is the APP_ENV value that turns on production-only behavior
// such as Secure session cookies.
const EnvProduction = "production"

// Config holds every setting the API reads at startup
type Config struct {
	Port        int    `envconfig:"PORT" default:"3000" validate:"min=1,max=65535"`
	Host        string `envconfig:"SERVICE_HOST" default:"localhost" validate:"required"`
	Environment string `envconfig:"APP_ENV" default:"development" validate:"oneof=development production test"`

	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"60s"`
	IdleTimeout     time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"120s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"10s"`

	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:5173,https://anotherdomain.com" validate:"min=1,dive,url"`

	// GoogleServiceAccount is the raw service account JSON. Only its
	// project_id is used, as a fallback for Firebase.ProjectID.
	GoogleServiceAccount string `envconfig:"GOOGLE_SERVICE_ACCOUNT"`

	Mongo    MongoConfig    `envconfig:"MONGODB"`
	Firebase FirebaseConfig `envconfig:"FIREBASE"`
	Session  SessionConfig  `envconfig:"SESSION"`
	Redis    RedisConfig    `envconfig:"REDIS"`
	S3       S3Config       `envconfig:"S3"`
	Kafka    KafkaConfig    `envconfig:"KAFKA"`
	Consul   ConsulConfig   `envconfig:"CONSUL"`
}

// MongoConfig configures the document store
type MongoConfig struct {
	URI                 string        `envconfig:"URI" validate:"required"`
	Database            string        `envconfig:"DATABASE" default:"final" validate:"required"`
	SessionsCollection  string        `envconfig:"SESSIONS_COLLECTION" default:"sess" validate:"required"`
	UsersCollection     string        `envconfig:"USERS_COLLECTION" default:"users" validate:"required"`
	DonationsCollection string        `envconfig:"DONATIONS_COLLECTION" default:"donations" validate:"required"`
	PostsCollection     string        `envconfig:"POSTS_COLLECTION" default:"posts" validate:"required"`
	ConnectTimeout      time.Duration `envconfig:"CONNECT_TIMEOUT" default:"10s"`
}

// FirebaseConfig configures ID token verification
type FirebaseConfig struct {
	ProjectID     string        `envconfig:"PROJECT_ID" validate:"required"`
	JWKSURL       string        `envconfig:"JWKS_URL" default:"https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com" validate:"url"`
	VerifyTimeout time.Duration `envconfig:"VERIFY_TIMEOUT" default:"5s" validate:"gt=0"`
}

// SessionConfig configures session storage and the session cookie
type SessionConfig struct {
	// Backend selects where session records live. "redis" requires REDIS_ADDR.
	Backend      string `envconfig:"BACKEND" default:"mongo" validate:"oneof=mongo redis"`
	CookieDomain string `envconfig:"COOKIE_DOMAIN" default:"localhost" validate:"required"`
}

// RedisConfig configures the optional post cache. An empty Addr disables it.
type RedisConfig struct {
	Addr     string `envconfig:"ADDR"`
	Password string `envconfig:"PASSWORD"`
	DB       int    `envconfig:"DB" default:"0" validate:"min=0"`
}

// S3Config configures picture uploads. An empty Endpoint disables them.
type S3Config struct {
	Endpoint       string `envconfig:"ENDPOINT"`
	PublicEndpoint string `envconfig:"PUBLIC_ENDPOINT"`
	AccessKey      string `envconfig:"ACCESS_KEY" validate:"required_with=Endpoint"`
	SecretKey      string `envconfig:"SECRET_KEY" validate:"required_with=Endpoint"`
	BucketName     string `envconfig:"BUCKET_NAME" validate:"required_with=Endpoint"`
	Region         string `envconfig:"REGION" default:"us-east-1"`
	UseSSL         bool   `envconfig:"USE_SSL"`
}

// KafkaConfig configures donation event publishing. Empty Brokers disables it.
type KafkaConfig struct {
	Brokers             string `envconfig:"BROKERS"`
	DonationEventsTopic string `envconfig:"TOPIC_DONATION_EVENTS" default:"donation-events" validate:"required"`
	Acks                string `envconfig:"ACKS" default:"all" validate:"oneof=0 1 all"`
}

// ConsulConfig configures optional service registration. Empty HTTPAddr disables it.
type ConsulConfig struct {
	HTTPAddr  string `envconfig:"HTTP_ADDR"`
	HTTPToken string `envconfig:"HTTP_TOKEN"`
}

// Load reads the configuration from the environment, applies derived
// defaults and validates the result.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if cfg.Firebase.ProjectID == "" && cfg.GoogleServiceAccount != "" {
		projectID, err := projectIDFromServiceAccount(cfg.GoogleServiceAccount)
		if err != nil {
			return nil, err
		}
		cfg.Firebase.ProjectID = projectID
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// IsProduction reports whether the API runs in the production environment
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// Addr returns the listen address for the HTTP server
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Enabled reports whether the Redis cache is configured
func (c RedisConfig) Enabled() bool { return c.Addr != "" }

// Enabled reports whether S3 uploads are configured
func (c S3Config) Enabled() bool { return c.Endpoint != "" }

// Enabled reports whether Kafka publishing is configured
func (c KafkaConfig) Enabled() bool { return c.Brokers != "" }

// BrokerList returns the brokers as a slice
func (c KafkaConfig) BrokerList() []string {
	var brokers []string
	for _, b := range strings.Split(c.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// Enabled reports whether Consul registration is configured
func (c ConsulConfig) Enabled() bool { return c.HTTPAddr != "" }

// projectIDFromServiceAccount extracts project_id from a service account JSON document
func projectIDFromServiceAccount(raw string) (string, error) {
	var account struct {
		ProjectID string `json:"project_id"`
	}
	if err := json.Unmarshal([]byte(raw), &account); err != nil {
		return "", fmt.Errorf("GOOGLE_SERVICE_ACCOUNT is not valid JSON: %w", err)
	}
	if account.ProjectID == "" {
		return "", fmt.Errorf("GOOGLE_SERVICE_ACCOUNT has no project_id")
	}
	return account.ProjectID, nil
}
