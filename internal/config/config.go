package config

import (
	"fmt"

	"github.com/joho/godotenv"
)

type Config struct {
	Telegram TelegramConfig
	Server   ServerConfig
	Storage  StorageConfig
	Match    MatchConfig
	Log      LogConfig
}

type TelegramConfig struct {
	BotToken    string
	BaseURL     string
	PollTimeout int // seconds the long poll is held open server-side
}

type ServerConfig struct {
	AdminPort int
}

type StorageConfig struct {
	DataDir string
}

type MatchConfig struct {
	BroadcastInterval    string // duration string, e.g. "168h" for weekly
	BroadcastConcurrency int
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Telegram: TelegramConfig{
			BaseURL:     "https://api.telegram.org",
			PollTimeout: 30,
		},
		Server: ServerConfig{
			AdminPort: 4080,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Match: MatchConfig{
			BroadcastInterval:    "168h", // weekly
			BroadcastConcurrency: 4,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration in layers: hardcoded defaults, the JSON config
// file at $XDG_CONFIG_HOME/coffeebot/config.json, then ECB_* environment
// variables. A .env file in the working directory is loaded first for local
// development. The bot token is the one required value; it comes from
// ECB_BOT_TOKEN or the secrets file.
func Load() (Config, error) {
	// Fails silently when no .env exists, which is the production case.
	_ = godotenv.Load()

	return loadWith(newFileBackend(), secretsReader{})
}

// secrets abstracts the secrets file for testing.
type secrets interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, sec secrets) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	// Try the secrets file for the bot token if still empty.
	if cfg.Telegram.BotToken == "" {
		if token, err := sec.Get(serviceName, "bot_token"); err == nil && token != "" {
			cfg.Telegram.BotToken = token
		}
	}

	if cfg.Telegram.BotToken == "" {
		return Config{}, fmt.Errorf("missing required config: Telegram bot token. " +
			"Set it via environment variable ECB_BOT_TOKEN")
	}

	return cfg, nil
}

// secretsReader reads from the JSON secrets file.
type secretsReader struct{}

func (secretsReader) Get(service, account string) (string, error) {
	return secretsGet(service, account)
}
