package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds every runtime setting, populated from the environment.
type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	RedisURL    string `envconfig:"REDIS_URL"`
	Development bool   `envconfig:"DEVELOPMENT"`

	SessionTTL time.Duration `envconfig:"SESSION_TTL" default:"168h"`

	UploadDir      string `envconfig:"UPLOAD_DIR" default:"uploads"`
	UploadBasePath string `envconfig:"UPLOAD_BASE_PATH" default:"/uploads"`
}

// Load reads .env files if present, then populates Config from the
// environment. Missing .env files are not an error.
func Load() (*Config, error) {
	if err := godotenv.Load(".env.local"); err != nil {
		if err := godotenv.Load(); err != nil {
			log.Println(".env not found, using environment variables")
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
