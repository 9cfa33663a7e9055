package model

import "time"

// Config 对应于 config.yaml 的顶级结构
type Config struct {
	Token      string     `mapstructure:"TOKEN"`
	Commands   Commands   `mapstructure:"commands"`
	Confession Confession `mapstructure:"confession"`
	Database   Database   `mapstructure:"database"`
	Gateway    Gateway    `mapstructure:"gateway"`
	Log        Log        `mapstructure:"log"`
	GRPC       GRPC       `mapstructure:"grpc"`
}

// Confession 对应 "confession" 部分
type Confession struct {
	ChannelID           string `mapstructure:"channel_id"`
	ModerationChannelID string `mapstructure:"moderation_channel_id"`
	ThreadPrefix        string `mapstructure:"thread_prefix"`
	PromptTitle         string `mapstructure:"prompt_title"`
	Status              string `mapstructure:"status"`
}

// Database 对应 "database" 部分
type Database struct {
	Path string `mapstructure:"path"`
}

// Gateway 对应 "gateway" 部分
type Gateway struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// Log 对应 "log" 部分
type Log struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// GRPC 对应 "grpc" 部分; an empty Address disables the health server.
type GRPC struct {
	Address string `mapstructure:"address"`
	// CheckInterval is how often the database is pinged while serving.
	CheckInterval time.Duration `mapstructure:"check_interval"`
}

// Commands 对应 "commands" 部分
type Commands struct {
	Allowguilds []string `mapstructure:"allowguilds"`
	Auth        Auth     `mapstructure:"auth"`
}

// Auth 对应 "auth" 部分
type Auth struct {
	Developers     []string `mapstructure:"developers"`
	ModeratorRoles []string `mapstructure:"moderator_roles"`
}
