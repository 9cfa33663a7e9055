package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"confessbot/model"
)

// Defaults applied before the config file and the environment are read.
const (
	DefaultDatabasePath   = "./data/confessions.sqlite"
	DefaultThreadPrefix   = "Confession"
	DefaultPromptTitle    = "Send an anonymous confession"
	DefaultStatus         = "confessions"
	DefaultGatewayTimeout = 10 * time.Second
	DefaultCheckInterval  = 30 * time.Second
)

// envBindings maps config keys to the environment variables the bot has
// always been deployed with.
var envBindings = map[string][]string{
	"TOKEN":                            {"BOT_TOKEN", "TOKEN"},
	"confession.channel_id":            {"CONFESSION_CHANNEL_ID"},
	"confession.moderation_channel_id": {"ADMIN_CHANNEL_ID"},
	"database.path":                    {"DATABASE_PATH"},
	"grpc.address":                     {"GRPC_ADDRESS"},
	"log.level":                        {"LOG_LEVEL"},
}

// Load reads the configuration. path may name a yaml file; when empty,
// config.yaml is looked up in the working directory and is optional.
func Load(path string) (*model.Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg model.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.path", DefaultDatabasePath)
	v.SetDefault("confession.thread_prefix", DefaultThreadPrefix)
	v.SetDefault("confession.prompt_title", DefaultPromptTitle)
	v.SetDefault("confession.status", DefaultStatus)
	v.SetDefault("gateway.timeout", DefaultGatewayTimeout)
	v.SetDefault("grpc.check_interval", DefaultCheckInterval)
	v.SetDefault("log.level", "info")
}

// Validate reports every missing required key at once.
func Validate(cfg *model.Config) error {
	var missing []string
	if cfg.Token == "" {
		missing = append(missing, "TOKEN")
	}
	if cfg.Confession.ChannelID == "" {
		missing = append(missing, "confession.channel_id")
	}
	if cfg.Confession.ModerationChannelID == "" {
		missing = append(missing, "confession.moderation_channel_id")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}
	if cfg.Gateway.Timeout <= 0 {
		return fmt.Errorf("gateway.timeout must be positive, got %s", cfg.Gateway.Timeout)
	}
	if cfg.GRPC.Address != "" && cfg.GRPC.CheckInterval <= 0 {
		return fmt.Errorf("grpc.check_interval must be positive, got %s", cfg.GRPC.CheckInterval)
	}
	return nil
}
