package config

import (
	"strings"

	"github.com/caarlos0/env/v10"
)

// Backend identifica el motor de almacenamiento del catalogo.
type Backend string

const (
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"bar_bartender.db"`
	DBMaxConns  int32  `env:"DB_MAX_CONNS" envDefault:"10"`

	JWTSecret            string `env:"JWT_SECRET"`
	JWTAccessTTLMinutes  int    `env:"JWT_ACCESS_TTL_MINUTES" envDefault:"15"`
	JWTRefreshTTLMinutes int    `env:"JWT_REFRESH_TTL_MINUTES" envDefault:"43200"`

	SMTPHost       string `env:"SMTP_HOST"`
	SMTPPort       int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser       string `env:"SMTP_USER"`
	SMTPPass       string `env:"SMTP_PASS"`
	SMTPUseTLS     bool   `env:"SMTP_USE_TLS" envDefault:"false"`
	SendGridAPIKey string `env:"SENDGRID_API_KEY"`
	MailFrom       string `env:"MAIL_FROM"`
	MailFromName   string `env:"MAIL_FROM_NAME" envDefault:"Bar & Bartender"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	OTPRateLimitMax           int `env:"OTP_RATE_LIMIT_MAX" envDefault:"3"`
	OTPRateLimitWindowMinutes int `env:"OTP_RATE_LIMIT_WINDOW_MINUTES" envDefault:"10"`
	VerifyMaxAttempts         int `env:"VERIFY_MAX_ATTEMPTS" envDefault:"5"`

	LLMAPIKey         string `env:"LLM_API_KEY"`
	LLMBaseURL        string `env:"LLM_BASE_URL" envDefault:"https://api.openai.com/v1"`
	LLMModel          string `env:"LLM_MODEL" envDefault:"gpt-3.5-turbo"`
	LLMTimeoutSeconds int    `env:"LLM_TIMEOUT_SECONDS" envDefault:"10"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)
	return &cfg, nil
}

// Backend decide el motor a partir de DATABASE_URL. Vacio implica SQLite.
func (c *Config) Backend() Backend {
	url := strings.ToLower(c.DatabaseURL)
	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		return BackendPostgres
	}
	return BackendSQLite
}

// SQLiteDSN devuelve la ruta del archivo SQLite. Acepta DATABASE_URL con
// prefijo sqlite:// o sqlite:/// para compatibilidad con despliegues viejos.
func (c *Config) SQLiteDSN() string {
	url := c.DatabaseURL
	for _, prefix := range []string{"sqlite:///", "sqlite://", "file:"} {
		if strings.HasPrefix(url, prefix) {
			return strings.TrimPrefix(url, prefix)
		}
	}
	if url != "" && c.Backend() == BackendSQLite {
		return url
	}
	return c.SQLitePath
}
