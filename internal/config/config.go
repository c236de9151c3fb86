package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

const (
	DefaultConfigPath    = "config.toml"
	DefaultHTTPAddr      = ":8080"
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com"
	DefaultGeminiModel   = "gemini-2.0-flash"
	DefaultReplyLanguage = "Indonesian"
	DefaultFetchBinary   = "yt-dlp"
	DefaultDownloadDir   = "downloads"
	DefaultTempDir       = "temp_media"
	DefaultQuality       = "720p"

	// Transport send caps mirror the messaging platform's media limits.
	DefaultMaxAudioSendBytes = 16 * 1024 * 1024
	DefaultMaxVideoSendBytes = 64 * 1024 * 1024

	DefaultSweepSpec        = "@hourly"
	DefaultRetentionHours   = 24
	DefaultFetchTimeoutSec  = 600
	DefaultAITimeoutSec     = 120
	DefaultSendGraceSeconds = 2
)

type Config struct {
	Log      LogConfig      `toml:"log"`
	Server   ServerConfig   `toml:"server"`
	Telegram TelegramConfig `toml:"telegram"`
	Discord  DiscordConfig  `toml:"discord"`
	Gemini   GeminiConfig   `toml:"gemini" validate:"required"`
	Fetch    FetchConfig    `toml:"fetch"`
	Limits   LimitsConfig   `toml:"limits"`
	Sweep    SweepConfig    `toml:"sweep"`
	Router   RouterConfig   `toml:"router"`
}

type LogConfig struct {
	Level  string `toml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `toml:"format" validate:"omitempty,oneof=text json"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type TelegramConfig struct {
	Enabled  bool   `toml:"enabled"`
	BotToken string `toml:"bot_token" validate:"required_if=Enabled true"`
}

type DiscordConfig struct {
	Enabled  bool   `toml:"enabled"`
	BotToken string `toml:"bot_token" validate:"required_if=Enabled true"`
}

type GeminiConfig struct {
	APIKey         string `toml:"api_key" validate:"required"`
	Model          string `toml:"model"`
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds" validate:"omitempty,gt=0"`
	ReplyLanguage  string `toml:"reply_language"`
}

func (c GeminiConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return DefaultAITimeoutSec * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type FetchConfig struct {
	Binary         string `toml:"binary"`
	DownloadDir    string `toml:"download_dir"`
	TempDir        string `toml:"temp_dir"`
	TimeoutSeconds int    `toml:"timeout_seconds" validate:"omitempty,gt=0"`
}

func (c FetchConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return DefaultFetchTimeoutSec * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type LimitsConfig struct {
	MaxAudioSendBytes int64 `toml:"max_audio_send_bytes" validate:"omitempty,gt=0"`
	MaxVideoSendBytes int64 `toml:"max_video_send_bytes" validate:"omitempty,gt=0"`
}

type SweepConfig struct {
	Spec           string `toml:"spec"`
	RetentionHours int    `toml:"retention_hours" validate:"omitempty,gt=0"`
}

func (c SweepConfig) Retention() time.Duration {
	hours := c.RetentionHours
	if hours <= 0 {
		hours = DefaultRetentionHours
	}
	return time.Duration(hours) * time.Hour
}

type RouterConfig struct {
	DefaultQuality   string `toml:"default_quality"`
	SendGraceSeconds int    `toml:"send_grace_seconds" validate:"omitempty,gte=0"`
}

func (c RouterConfig) SendGrace() time.Duration {
	if c.SendGraceSeconds <= 0 {
		return DefaultSendGraceSeconds * time.Second
	}
	return time.Duration(c.SendGraceSeconds) * time.Second
}

// Load reads the TOML config at path, filling unset fields with
// defaults. A missing file is not an error: the defaults are returned
// and secrets are expected from the environment.
func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Gemini: GeminiConfig{
			Model:         DefaultGeminiModel,
			BaseURL:       DefaultGeminiBaseURL,
			ReplyLanguage: DefaultReplyLanguage,
		},
		Fetch: FetchConfig{
			Binary:      DefaultFetchBinary,
			DownloadDir: DefaultDownloadDir,
			TempDir:     DefaultTempDir,
		},
		Limits: LimitsConfig{
			MaxAudioSendBytes: DefaultMaxAudioSendBytes,
			MaxVideoSendBytes: DefaultMaxVideoSendBytes,
		},
		Sweep: SweepConfig{
			Spec:           DefaultSweepSpec,
			RetentionHours: DefaultRetentionHours,
		},
		Router: RouterConfig{
			DefaultQuality:   DefaultQuality,
			SendGraceSeconds: DefaultSendGraceSeconds,
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			applyEnv(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	applyEnv(&cfg)
	return cfg, nil
}

// applyEnv overlays deployment secrets from the environment so tokens
// never need to live in the config file.
func applyEnv(cfg *Config) {
	if v := os.Getenv("CLIPBOT_GEMINI_API_KEY"); v != "" {
		cfg.Gemini.APIKey = v
	}
	if v := os.Getenv("CLIPBOT_TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("CLIPBOT_DISCORD_BOT_TOKEN"); v != "" {
		cfg.Discord.BotToken = v
	}
}

// Validate checks structural constraints on a loaded config.
func Validate(cfg Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if !cfg.Telegram.Enabled && !cfg.Discord.Enabled {
		return fmt.Errorf("invalid config: no transport enabled")
	}
	return nil
}
