package config

import (
	"fmt"
	"runtime"
	"time"

	"github.com/caarlos0/env/v6"

	"github.com/bilal-chajia/freecipies-blog-sub007/internal/logging"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

type (
	// Properties holds all application configuration, populated from the
	// environment.
	Properties struct {
		LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

		Server  ServerProperties  `envPrefix:"HTTP_"`
		DB      DBProperties      `envPrefix:"DB_"`
		S3      S3Properties      `envPrefix:"S3_"`
		Auth    AuthProperties    `envPrefix:"AUTH_"`
		Media   MediaProperties   `envPrefix:"MEDIA_"`
		Metrics MetricsProperties `envPrefix:"METRICS_"`
		Limits  LimitProperties   `envPrefix:"RATE_"`
	}

	ServerProperties struct {
		Port            string        `env:"PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
		IdleTimeout     time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
		ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
		LogStaticFiles  bool          `env:"LOG_STATIC_FILES" envDefault:"false"`
		LogHealthChecks bool          `env:"LOG_HEALTH_CHECKS" envDefault:"true"`
	}

	DBProperties struct {
		Path string `env:"PATH" envDefault:"/database/freecipies.db"`
	}

	S3Properties struct {
		Endpoint      string        `env:"ENDPOINT"`
		AccessKey     string        `env:"ACCESS_KEY"`
		SecretKey     string        `env:"SECRET_KEY"`
		Bucket        string        `env:"BUCKET" envDefault:"freecipies"`
		UseSSL        bool          `env:"USE_SSL" envDefault:"true"`
		PublicBaseURL string        `env:"PUBLIC_BASE_URL"`
		PresignExpiry time.Duration `env:"PRESIGN_EXPIRY" envDefault:"10m"`
	}

	AuthProperties struct {
		JWTSecret string `env:"JWT_SECRET"`
		Issuer    string `env:"ISSUER" envDefault:"freecipies"`
	}

	MediaProperties struct {
		Folder       string `env:"FOLDER" envDefault:"media"`
		EncodeFormat string `env:"ENCODE_FORMAT" envDefault:"webp"`
		Quality      int    `env:"QUALITY" envDefault:"75"`
	}

	MetricsProperties struct {
		Enabled bool   `env:"ENABLED" envDefault:"true"`
		Port    string `env:"PORT" envDefault:"9090"`
	}

	LimitProperties struct {
		Enabled  bool          `env:"LIMIT_ENABLED" envDefault:"true"`
		Requests int           `env:"LIMIT_REQUESTS" envDefault:"60"`
		Window   time.Duration `env:"LIMIT_WINDOW" envDefault:"1m"`
	}
)

// Load reads configuration from the environment and validates the parts the
// service cannot run without.
func Load() (*Properties, error) {
	props := &Properties{}
	if err := env.Parse(props); err != nil {
		return nil, fmt.Errorf("read config error: %w", err)
	}

	if props.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("AUTH_JWT_SECRET is required")
	}
	if props.S3.PublicBaseURL == "" && props.S3.Endpoint != "" {
		return nil, fmt.Errorf("S3_PUBLIC_BASE_URL is required when S3_ENDPOINT is set")
	}

	return props, nil
}

// PresignEnabled reports whether object-store API credentials are configured,
// which decides between the presigned upload path and the proxy fallback.
func (p *Properties) PresignEnabled() bool {
	return p.S3.Endpoint != "" && p.S3.AccessKey != "" && p.S3.SecretKey != ""
}

// LogSummary prints the effective configuration at startup.
func (p *Properties) LogSummary() {
	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  HTTP_PORT:          %s", p.Server.Port)
	logging.Info("  DB_PATH:            %s", p.DB.Path)
	logging.Info("  S3_ENDPOINT:        %s", p.S3.Endpoint)
	logging.Info("  S3_BUCKET:          %s", p.S3.Bucket)
	logging.Info("  S3_PUBLIC_BASE_URL: %s", p.S3.PublicBaseURL)
	logging.Info("  S3_PRESIGN_EXPIRY:  %s", p.S3.PresignExpiry)
	logging.Info("  PRESIGN_ENABLED:    %v", p.PresignEnabled())
	logging.Info("  MEDIA_FOLDER:       %s", p.Media.Folder)
	logging.Info("  METRICS_ENABLED:    %v", p.Metrics.Enabled)
	logging.Info("  METRICS_PORT:       %s", p.Metrics.Port)
	logging.Info("  RATE_LIMIT_ENABLED: %v", p.Limits.Enabled)
	logging.Info("  LOG_LEVEL:          %s", logging.GetLevel())
}
