// internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "ASSETSYNC"

type Config struct {
	Remote  RemoteConfig
	Project ProjectConfig
	Source  SourceConfig
	Server  ServerConfig
	Log     LogConfig
}

type RemoteConfig struct {
	Owner   string
	Repo    string
	Branch  string
	BaseURL string
	// InsecureSkipVerify turns off TLS certificate checks for the remote.
	InsecureSkipVerify bool
	Timeout            time.Duration
	UserAgent          string
}

type ProjectConfig struct {
	AssetsDir  string
	MarkerFile string
}

type SourceConfig struct {
	Kind      string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	Region    string
	UseSSL    bool
}

type ServerConfig struct {
	Port           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type LogConfig struct {
	Level   string
	NoColor bool
}

// Source kinds.
const (
	SourceHTTP = "http"
	SourceS3   = "s3"
)

var (
	once     sync.Once
	instance *Config
)

// Load reads .env and ASSETSYNC_* variables once per process.
func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		v := viper.New()
		instance = FromViper(v)
	})

	return instance
}

// SetDefaults registers the default for every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("REMOTE_OWNER", "Uriopass")
	v.SetDefault("REMOTE_REPO", "Egregoria")
	v.SetDefault("REMOTE_BRANCH", "master")
	v.SetDefault("REMOTE_BASE_URL", "")
	v.SetDefault("INSECURE_SKIP_VERIFY", false)
	v.SetDefault("REMOTE_TIMEOUT", time.Duration(0))
	v.SetDefault("USER_AGENT", "assetsync")
	v.SetDefault("ASSETS_DIR", "assets")
	v.SetDefault("MARKER_FILE", "Cargo.toml")
	v.SetDefault("SOURCE", SourceHTTP)
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_ACCESS_KEY", "")
	v.SetDefault("S3_SECRET_KEY", "")
	v.SetDefault("S3_BUCKET", "")
	v.SetDefault("S3_PREFIX", "")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_USE_SSL", true)
	v.SetDefault("SERVER_PORT", "8088")
	v.SetDefault("SERVER_READ_TIMEOUT", 15)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 0)
	v.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_NO_COLOR", false)
}

// FromViper builds a Config from v, with defaults and ASSETSYNC_* env binding
// applied.
func FromViper(v *viper.Viper) *Config {
	SetDefaults(v)
	v.SetEnvPrefix(envPrefix)
	// Read from environment variables
	v.AutomaticEnv()

	cfg := &Config{
		Remote: RemoteConfig{
			Owner:              v.GetString("REMOTE_OWNER"),
			Repo:               v.GetString("REMOTE_REPO"),
			Branch:             v.GetString("REMOTE_BRANCH"),
			BaseURL:            v.GetString("REMOTE_BASE_URL"),
			InsecureSkipVerify: v.GetBool("INSECURE_SKIP_VERIFY"),
			Timeout:            v.GetDuration("REMOTE_TIMEOUT"),
			UserAgent:          v.GetString("USER_AGENT"),
		},
		Project: ProjectConfig{
			AssetsDir:  v.GetString("ASSETS_DIR"),
			MarkerFile: v.GetString("MARKER_FILE"),
		},
		Source: SourceConfig{
			Kind:      strings.ToLower(v.GetString("SOURCE")),
			Endpoint:  v.GetString("S3_ENDPOINT"),
			AccessKey: v.GetString("S3_ACCESS_KEY"),
			SecretKey: v.GetString("S3_SECRET_KEY"),
			Bucket:    v.GetString("S3_BUCKET"),
			Prefix:    v.GetString("S3_PREFIX"),
			Region:    v.GetString("S3_REGION"),
			UseSSL:    v.GetBool("S3_USE_SSL"),
		},
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			ReadTimeout:    v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: v.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Log: LogConfig{
			Level:   v.GetString("LOG_LEVEL"),
			NoColor: v.GetBool("LOG_NO_COLOR"),
		},
	}

	return cfg
}

// MediaBaseURL is the explicit base URL when set, otherwise the GitHub media
// endpoint for owner/repo/branch, which resolves LFS objects.
func (r RemoteConfig) MediaBaseURL() string {
	if base := strings.TrimRight(strings.TrimSpace(r.BaseURL), "/"); base != "" {
		return base
	}
	return fmt.Sprintf("https://media.githubusercontent.com/media/%s/%s/refs/heads/%s", r.Owner, r.Repo, r.Branch)
}

// Validate checks the pieces a sync run depends on.
func (c *Config) Validate() error {
	switch c.Source.Kind {
	case SourceHTTP:
		if c.Remote.BaseURL == "" && (c.Remote.Owner == "" || c.Remote.Repo == "" || c.Remote.Branch == "") {
			return fmt.Errorf("remote owner, repo and branch are required without a base URL")
		}
	case SourceS3:
		if c.Source.Endpoint == "" || c.Source.Bucket == "" {
			return fmt.Errorf("s3 source requires endpoint and bucket")
		}
	default:
		return fmt.Errorf("unknown source %q (want %s or %s)", c.Source.Kind, SourceHTTP, SourceS3)
	}
	if c.Remote.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	if strings.TrimSpace(c.Project.AssetsDir) == "" {
		return fmt.Errorf("assets dir must not be empty")
	}
	return nil
}
