package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ServiceName    string
	DatabaseURL    string
	HTTPListenAddr string
	LogLevel       string
	RunMigrations  bool

	JWTSecret   string
	JWTIssuer   string
	JWTTTL      time.Duration
	CORSOrigins []string

	// TLSCertFile and TLSKeyFile enable HTTPS on the API listener.
	TLSCertFile     string
	TLSKeyFile      string
	TLSClientCAFile string

	StalwartURL        string
	StalwartAdminToken string

	// PushAccessToken is the push gateway credential. Empty disables push
	// fan-out without failing callers.
	PushAPIURL      string
	PushAccessToken string
	PushTimeout     time.Duration

	MailPollInterval time.Duration
	ChatPollInterval time.Duration
	FetchTimeout     time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		ServiceName:    getEnv("SERVICE_NAME", "inboxwatch"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		HTTPListenAddr: getEnv("HTTP_LISTEN_ADDR", ":8080"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		RunMigrations:  getEnvBool("RUN_MIGRATIONS", true),

		JWTSecret:   getEnv("JWT_SECRET", ""),
		JWTIssuer:   getEnv("JWT_ISSUER", "inboxwatch"),
		JWTTTL:      getEnvDuration("JWT_TTL", 24*time.Hour),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:5173")),

		TLSCertFile:     getEnv("TLS_CERT_FILE", ""),
		TLSKeyFile:      getEnv("TLS_KEY_FILE", ""),
		TLSClientCAFile: getEnv("TLS_CLIENT_CA_FILE", ""),

		StalwartURL:        getEnv("STALWART_URL", ""),
		StalwartAdminToken: getEnv("STALWART_ADMIN_TOKEN", ""),

		PushAPIURL:      getEnv("PUSH_API_URL", "https://exp.host/--/api/v2/push/send"),
		PushAccessToken: getEnv("PUSH_ACCESS_TOKEN", ""),
		PushTimeout:     getEnvDuration("PUSH_TIMEOUT", 5*time.Second),

		MailPollInterval: getEnvDuration("MAIL_POLL_INTERVAL", 30*time.Second),
		ChatPollInterval: getEnvDuration("CHAT_POLL_INTERVAL", 30*time.Second),
		FetchTimeout:     getEnvDuration("FETCH_TIMEOUT", 10*time.Second),
	}

	return cfg, nil
}

// PushEnabled reports whether a push gateway credential is configured.
func (c *Config) PushEnabled() bool {
	return c.PushAccessToken != ""
}

// Validate checks that the fields a component needs are present.
func (c *Config) Validate(component string) error {
	var missing []string

	switch component {
	case "notify-api":
		if c.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
		if c.HTTPListenAddr == "" {
			missing = append(missing, "HTTP_LISTEN_ADDR")
		}
		if c.JWTSecret == "" {
			missing = append(missing, "JWT_SECRET")
		}
		if c.StalwartURL == "" {
			missing = append(missing, "STALWART_URL")
		}
		if c.StalwartAdminToken == "" {
			missing = append(missing, "STALWART_ADMIN_TOKEN")
		}
	case "seed":
		if c.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}

	if component == "notify-api" && len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 bytes")
	}
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		return fmt.Errorf("TLS_CERT_FILE and TLS_KEY_FILE must both be set")
	}
	if c.MailPollInterval <= 0 || c.ChatPollInterval <= 0 {
		return fmt.Errorf("poll intervals must be positive")
	}
	if c.PushTimeout <= 0 {
		return fmt.Errorf("PUSH_TIMEOUT must be positive")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
