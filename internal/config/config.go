package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
// Missing required variables are a fatal startup condition.
type Config struct {
	BotToken string `envconfig:"BOT_TOKEN" required:"true"`
	AdminID  int64  `envconfig:"ADMIN_ID" required:"true"`

	GenAPIKey  string        `envconfig:"GEN_API_KEY" required:"true"`
	GenBaseURL string        `envconfig:"GEN_BASE_URL" default:""` // empty = provider default
	GenModel   string        `envconfig:"GEN_MODEL" default:"gpt-4o-mini"`
	GenTimeout time.Duration `envconfig:"GEN_TIMEOUT" default:"45s"`

	DBPath         string        `envconfig:"DB_PATH" default:"./data/companion.db"`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"info"` // debug|info|warn|error
	HTTPAddr       string        `envconfig:"HTTP_ADDR" default:":8080"`
	BroadcastDelay time.Duration `envconfig:"BROADCAST_DELAY" default:"100ms"`
}

// Load reads a .env file if present, then environment variables into Config.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
