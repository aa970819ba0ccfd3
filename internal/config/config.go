package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Resolver   ResolverConfig   `yaml:"resolver"`
	Transcoder TranscoderConfig `yaml:"transcoder"`
	MinIO      MinIOConfig      `yaml:"minio"`
	Database   DatabaseConfig   `yaml:"database"`
	NATS       NATSConfig       `yaml:"nats"`
	Redis      RedisConfig      `yaml:"redis"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type ServerConfig struct {
	Port         int           `yaml:"port"`
	APIKey       string        `yaml:"api_key"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// ResolverConfig selects how stream descriptors are obtained from the upstream site.
type ResolverConfig struct {
	Backend             string        `yaml:"backend"` // youtube, ytdlp
	YtdlpPath           string        `yaml:"ytdlp_path"`
	TokenCommand        []string      `yaml:"token_command"`
	TokenTTL            time.Duration `yaml:"token_ttl"`
	DecipherConcurrency int           `yaml:"decipher_concurrency"`
}

type TranscoderConfig struct {
	FFmpegPath    string        `yaml:"ffmpeg_path"`
	AudioCodec    string        `yaml:"audio_codec"`
	AudioBitrate  string        `yaml:"audio_bitrate"`
	Timeout       time.Duration `yaml:"timeout"`
	ScratchDir    string        `yaml:"scratch_dir"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	SweepMaxAge   time.Duration `yaml:"sweep_max_age"`
}

type MinIOConfig struct {
	Endpoint     string        `yaml:"endpoint"`
	AccessKey    string        `yaml:"access_key"`
	SecretKey    string        `yaml:"secret_key"`
	Bucket       string        `yaml:"bucket"`
	Region       string        `yaml:"region"`
	UseSSL       bool          `yaml:"use_ssl"`
	SignedURLTTL time.Duration `yaml:"signed_url_ttl"`
}

// DatabaseConfig is optional; an empty Host disables the conversion ledger.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MaxConns int    `yaml:"max_conns"`
}

func (d DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type NATSConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	Addr       string        `yaml:"addr"`
	Password   string        `yaml:"password"`
	DB         int           `yaml:"db"`
	FormatsTTL time.Duration `yaml:"formats_ttl"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads config from YAML file and applies environment variable overrides.
// A missing file is not an error: defaults and environment are enough to run.
// Variables from a .env file in the working directory are loaded first when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config file: %w", err)
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Resolver.Backend {
	case "youtube", "ytdlp":
	default:
		return fmt.Errorf("unknown resolver backend %q", c.Resolver.Backend)
	}
	if c.MinIO.Endpoint == "" || c.MinIO.Bucket == "" {
		return fmt.Errorf("minio endpoint and bucket are required")
	}
	t := c.Transcoder
	if t.Timeout <= 0 {
		return fmt.Errorf("transcoder timeout must be positive, got %s", t.Timeout)
	}
	if t.SweepInterval <= 0 {
		return fmt.Errorf("transcoder sweep_interval must be positive, got %s", t.SweepInterval)
	}
	// The sweeper must never reach the scratch files of a merge still running.
	if t.SweepMaxAge <= t.Timeout {
		return fmt.Errorf("transcoder sweep_max_age (%s) must exceed timeout (%s)", t.SweepMaxAge, t.Timeout)
	}
	return nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3000
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	// Convert requests block for the whole merge.
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 20 * time.Minute
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 60 * time.Second
	}
	if cfg.Resolver.Backend == "" {
		cfg.Resolver.Backend = "youtube"
	}
	if cfg.Resolver.YtdlpPath == "" {
		cfg.Resolver.YtdlpPath = "yt-dlp"
	}
	if cfg.Resolver.TokenTTL == 0 {
		cfg.Resolver.TokenTTL = 6 * time.Hour
	}
	if cfg.Resolver.DecipherConcurrency == 0 {
		cfg.Resolver.DecipherConcurrency = 4
	}
	if cfg.Transcoder.FFmpegPath == "" {
		cfg.Transcoder.FFmpegPath = "ffmpeg"
	}
	if cfg.Transcoder.AudioCodec == "" {
		cfg.Transcoder.AudioCodec = "aac"
	}
	if cfg.Transcoder.AudioBitrate == "" {
		cfg.Transcoder.AudioBitrate = "192k"
	}
	if cfg.Transcoder.Timeout == 0 {
		cfg.Transcoder.Timeout = 15 * time.Minute
	}
	if cfg.Transcoder.ScratchDir == "" {
		cfg.Transcoder.ScratchDir = "temp"
	}
	if cfg.Transcoder.SweepInterval == 0 {
		cfg.Transcoder.SweepInterval = 10 * time.Minute
	}
	if cfg.Transcoder.SweepMaxAge == 0 {
		cfg.Transcoder.SweepMaxAge = 2 * cfg.Transcoder.Timeout
	}
	if cfg.MinIO.SignedURLTTL == 0 {
		cfg.MinIO.SignedURLTTL = time.Hour
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Redis.FormatsTTL == 0 {
		cfg.Redis.FormatsTTL = 10 * time.Minute
	}
	if cfg.RateLimit.RPS == 0 {
		cfg.RateLimit.RPS = 20
	}
	if cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = 40
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("YTM_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("YTM_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("YTM_RESOLVER_BACKEND"); v != "" {
		cfg.Resolver.Backend = v
	}
	if v := os.Getenv("YTM_YTDLP_PATH"); v != "" {
		cfg.Resolver.YtdlpPath = v
	}
	if v := os.Getenv("YTM_TOKEN_COMMAND"); v != "" {
		cfg.Resolver.TokenCommand = strings.Fields(v)
	}
	if v := os.Getenv("YTM_FFMPEG_PATH"); v != "" {
		cfg.Transcoder.FFmpegPath = v
	}
	if v := os.Getenv("YTM_TRANSCODE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Transcoder.Timeout = d
		}
	}
	if v := os.Getenv("YTM_SCRATCH_DIR"); v != "" {
		cfg.Transcoder.ScratchDir = v
	}
	if v := os.Getenv("YTM_MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
	}
	if v := os.Getenv("YTM_MINIO_ACCESS_KEY"); v != "" {
		cfg.MinIO.AccessKey = v
	}
	if v := os.Getenv("YTM_MINIO_SECRET_KEY"); v != "" {
		cfg.MinIO.SecretKey = v
	}
	if v := os.Getenv("YTM_MINIO_BUCKET"); v != "" {
		cfg.MinIO.Bucket = v
	}
	if v := os.Getenv("YTM_MINIO_REGION"); v != "" {
		cfg.MinIO.Region = v
	}
	if v := os.Getenv("YTM_MINIO_USE_SSL"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.MinIO.UseSSL = b
		}
	}
	if v := os.Getenv("YTM_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("YTM_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("YTM_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("YTM_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("YTM_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("YTM_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("YTM_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("YTM_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("YTM_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("YTM_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
