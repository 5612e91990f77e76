package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	// DefaultJWTSecret is only acceptable outside production.
	DefaultJWTSecret = "dev-secret-change-me"
)

var ErrInsecureSecret = errors.New("jwt.secret must be set to a non-default value in production")

type Config struct {
	Env  string
	Port string

	DBPath string

	JWTSecret string
	JWTTTL    time.Duration

	DefaultRateLimit int
	AdminRateLimit   int
	LimiterPrune     time.Duration

	AuthIPRatePerMinute int
	AuthIPBurst         int

	ChatHistoryWindow int
	ChatStreamDelay   time.Duration

	AdminEmail    string
	AdminPassword string

	CORSAllowedOrigins []string
	TrustedProxies     []string

	LogLevel string

	WriteTimeout time.Duration
}

// IsProduction reports whether env is production.
func (c Config) IsProduction() bool { return c.Env == EnvProduction }

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", EnvDevelopment)
	v.SetDefault("port", "8080")
	v.SetDefault("db.path", "app.db")
	v.SetDefault("jwt.secret", DefaultJWTSecret)
	v.SetDefault("jwt.ttl", 24*time.Hour)
	v.SetDefault("ratelimit.default", 60)
	v.SetDefault("ratelimit.admin_default", 1000)
	v.SetDefault("ratelimit.prune_interval", time.Minute)
	v.SetDefault("auth.ip_rate_per_minute", 10)
	v.SetDefault("auth.ip_burst", 5)
	v.SetDefault("chat.history_window", 5)
	v.SetDefault("chat.stream_delay", 100*time.Millisecond)
	v.SetDefault("admin.email", "admin@example.com")
	v.SetDefault("admin.password", "")
	v.SetDefault("cors.allowed_origins", []string{})
	v.SetDefault("log.level", "info")
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.trusted_proxies", []string{})
}

// Load reads configs/config.yml (or the file at path, if given) and applies
// APP_* environment overrides, e.g. APP_JWT_SECRET for jwt.secret.
// A missing config file is not an error.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("configs")
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := Config{
		Env:                 strings.ToLower(v.GetString("env")),
		Port:                v.GetString("port"),
		DBPath:              v.GetString("db.path"),
		JWTSecret:           v.GetString("jwt.secret"),
		JWTTTL:              v.GetDuration("jwt.ttl"),
		DefaultRateLimit:    v.GetInt("ratelimit.default"),
		AdminRateLimit:      v.GetInt("ratelimit.admin_default"),
		LimiterPrune:        v.GetDuration("ratelimit.prune_interval"),
		AuthIPRatePerMinute: v.GetInt("auth.ip_rate_per_minute"),
		AuthIPBurst:         v.GetInt("auth.ip_burst"),
		ChatHistoryWindow:   v.GetInt("chat.history_window"),
		ChatStreamDelay:     v.GetDuration("chat.stream_delay"),
		AdminEmail:          v.GetString("admin.email"),
		AdminPassword:       v.GetString("admin.password"),
		CORSAllowedOrigins:  splitList(v.GetStringSlice("cors.allowed_origins")),
		TrustedProxies:      splitList(v.GetStringSlice("server.trusted_proxies")),
		LogLevel:            v.GetString("log.level"),
		WriteTimeout:        v.GetDuration("server.write_timeout"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	if c.IsProduction() && (c.JWTSecret == "" || c.JWTSecret == DefaultJWTSecret) {
		return ErrInsecureSecret
	}
	if c.JWTSecret == "" {
		return errors.New("jwt.secret must not be empty")
	}
	if c.DefaultRateLimit < 1 || c.AdminRateLimit < 1 {
		return fmt.Errorf("rate limits must be >= 1 (default=%d, admin=%d)", c.DefaultRateLimit, c.AdminRateLimit)
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("jwt.ttl must be positive, got %s", c.JWTTTL)
	}
	if c.LimiterPrune <= 0 {
		return fmt.Errorf("ratelimit.prune_interval must be positive, got %s", c.LimiterPrune)
	}
	return nil
}

// splitList accepts both a YAML list and a comma-separated env value.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, o := range strings.Split(item, ",") {
			if o = strings.TrimSpace(o); o != "" {
				out = append(out, o)
			}
		}
	}
	return out
}
