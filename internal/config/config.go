package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/harentsoaR/clinic-api/internal/utils"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	ModeDev  = "dev"
	ModeProd = "prod"

	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

// Config holds all configuration for the application
type Config struct {
	AppMode        string   `envconfig:"APP_MODE" default:"dev"`
	Port           string   `envconfig:"API_PORT" default:"8080"`
	LogLevel       string   `envconfig:"LOG_LEVEL" default:"info"`
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173"`

	Database DatabaseConfig
	JWT      JWTConfig
	Notify   NotifyConfig
}

type DatabaseConfig struct {
	Driver       string `envconfig:"DB_DRIVER" default:"mongo"`
	URI          string `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
	Name         string `envconfig:"MONGO_DATABASE" default:"clinic"`
	Transactions bool   `envconfig:"MONGO_TRANSACTIONS" default:"false"`
}

type JWTConfig struct {
	Secret     string        `envconfig:"JWT_SECRET" required:"true"`
	Issuer     string        `envconfig:"JWT_ISSUER" default:"clinic-api"`
	TTL        time.Duration `envconfig:"JWT_TTL" default:"24h"`
	BcryptCost int           `envconfig:"BCRYPT_COST" default:"12"`
}

// NotifyConfig enables the optional notification channels. Empty values disable them.
type NotifyConfig struct {
	TextbeltKey  string `envconfig:"TEXTBELT_API_KEY"`
	AMQPURL      string `envconfig:"AMQP_URL"`
	AMQPExchange string `envconfig:"AMQP_EXCHANGE" default:"clinic.events"`
}

// Load reads a .env file when present, then the process environment.
func Load() (*Config, error) {
	// A missing .env is fine; production relies on real environment variables.
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds the config from the environment only.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.AppMode = strings.ToLower(strings.TrimSpace(c.AppMode))
	if c.AppMode != ModeDev && c.AppMode != ModeProd {
		return fmt.Errorf("invalid APP_MODE: '%s' (must be 'dev' or 'prod')", c.AppMode)
	}
	switch c.Database.Driver {
	case DriverMongo, DriverMemory:
	default:
		return fmt.Errorf("invalid DB_DRIVER: '%s' (must be 'mongo' or 'memory')", c.Database.Driver)
	}
	if c.JWT.Secret == "" {
		return errors.New("JWT_SECRET is not configured")
	}
	if c.JWT.TTL <= 0 {
		return errors.New("JWT_TTL must be positive")
	}
	if c.IsProd() && len(c.JWT.Secret) < utils.MinSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d bytes in prod mode", utils.MinSecretLength)
	}
	return nil
}

// IsDev returns true if running in development mode
func (c *Config) IsDev() bool {
	return c.AppMode == ModeDev
}

// IsProd returns true if running in production mode
func (c *Config) IsProd() bool {
	return c.AppMode == ModeProd
}
