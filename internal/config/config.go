package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Actor    ActorConfig
	Identity IdentityConfig
	Poll     PollConfig
	Journal  JournalConfig
	Upload   UploadConfig
	Events   EventsConfig
	UI       UIConfig
}

// ActorConfig points at the canister JSON bridge.
type ActorConfig struct {
	Endpoint   string
	CanisterID string `mapstructure:"canister_id"`
	Timeout    time.Duration
}

// IdentityConfig holds identity provider settings.
type IdentityConfig struct {
	LoginURL     string `mapstructure:"login_url"`
	CallbackAddr string `mapstructure:"callback_addr"`
	TokenSecret  string `mapstructure:"token_secret"`
	Token        string
}

// PollConfig holds refresh settings.
type PollConfig struct {
	Interval time.Duration
}

// JournalConfig holds sqlite settings for the local activity journal.
type JournalConfig struct {
	Path string
}

// UploadConfig selects and configures the document uploader.
type UploadConfig struct {
	Provider     string
	Endpoint     string
	Gateway      string
	JWTEnv       string `mapstructure:"jwt_env"`
	S3Bucket     string `mapstructure:"s3_bucket"`
	S3PublicBase string `mapstructure:"s3_public_base"`
}

// EventsConfig holds the kafka sink settings. Empty brokers disables publishing.
type EventsConfig struct {
	Brokers []string
	Topic   string
}

// UIConfig holds presentation settings.
type UIConfig struct {
	DateFormat string `mapstructure:"date_format"`
	Timezone   string
}

// Load reads configuration from file and env. Env var overrides use prefix MEDADMIN_.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("toml")

	cfgPath := os.Getenv("MEDADMIN_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "medadmin"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("MEDADMIN")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.Poll.Interval <= 0 {
		c.Poll.Interval = 30 * time.Second
	}
	return c, nil
}

func setDefaults(v *viper.Viper) {
	dataDir := DataDir()
	v.SetDefault("actor.endpoint", "http://127.0.0.1:4943/bridge")
	v.SetDefault("actor.canister_id", "")
	v.SetDefault("actor.timeout", 20*time.Second)
	v.SetDefault("identity.login_url", "https://identity.ic0.app/#authorize")
	v.SetDefault("identity.callback_addr", "127.0.0.1:0")
	v.SetDefault("identity.token_secret", "")
	v.SetDefault("identity.token", "")
	v.SetDefault("poll.interval", 30*time.Second)
	v.SetDefault("journal.path", filepath.Join(dataDir, "journal.db"))
	v.SetDefault("upload.provider", "pinning")
	v.SetDefault("upload.endpoint", "https://api.pinata.cloud/pinning/pinFileToIPFS")
	v.SetDefault("upload.gateway", "https://gateway.pinata.cloud")
	v.SetDefault("upload.jwt_env", "PINATA_JWT")
	v.SetDefault("upload.s3_bucket", "")
	v.SetDefault("upload.s3_public_base", "")
	v.SetDefault("events.brokers", []string{})
	v.SetDefault("events.topic", "medadmin-activity")
	v.SetDefault("ui.date_format", "02 Jan 2006 15:04")
	v.SetDefault("ui.timezone", "Local")
}

// DataDir is where the journal and log file live by default.
func DataDir() string {
	return filepath.Join(os.Getenv("HOME"), ".local", "share", "medadmin")
}

// Save writes the provided config to disk, creating the config directory if needed.
// Only non-secret preferences are written; the token secret and session token stay in env.
func Save(cfg Config) error {
	path := os.Getenv("MEDADMIN_CONFIG")
	if path == "" {
		path = filepath.Join(os.Getenv("HOME"), ".config", "medadmin", "config.toml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("actor.endpoint", cfg.Actor.Endpoint)
	v.Set("actor.canister_id", cfg.Actor.CanisterID)
	v.Set("actor.timeout", cfg.Actor.Timeout.String())
	v.Set("identity.login_url", cfg.Identity.LoginURL)
	v.Set("identity.callback_addr", cfg.Identity.CallbackAddr)
	v.Set("poll.interval", cfg.Poll.Interval.String())
	v.Set("journal.path", cfg.Journal.Path)
	v.Set("upload.provider", cfg.Upload.Provider)
	v.Set("upload.endpoint", cfg.Upload.Endpoint)
	v.Set("upload.gateway", cfg.Upload.Gateway)
	v.Set("upload.jwt_env", cfg.Upload.JWTEnv)
	v.Set("upload.s3_bucket", cfg.Upload.S3Bucket)
	v.Set("upload.s3_public_base", cfg.Upload.S3PublicBase)
	v.Set("events.brokers", cfg.Events.Brokers)
	v.Set("events.topic", cfg.Events.Topic)
	v.Set("ui.date_format", cfg.UI.DateFormat)
	v.Set("ui.timezone", cfg.UI.Timezone)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
