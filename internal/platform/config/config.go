package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates all externally injected settings so main stays lean.
type Config struct {
	Server   Server
	Postgres Postgres
	Redis    Redis
	Kafka    Kafka
	Storage  Storage
	Renderer Renderer
	Mailer   Mailer
	Auth     Auth
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// Postgres configures the volunteer record store.
type Postgres struct {
	DSN string
}

// Redis configures the optional area cache. Empty URL disables caching.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka configures the approval event publisher. Empty brokers disable it.
type Kafka struct {
	Brokers []string
	Topic   string
}

// Storage configures the document object store.
type Storage struct {
	CloudinaryURL string
}

// Renderer configures document rendering. When SidecarURL is set the HTTP
// renderer is used, otherwise the script renderer runs ScriptPath locally.
type Renderer struct {
	ScriptPath   string
	TemplatePath string
	WorkDir      string
	SidecarURL   string
	Timeout      time.Duration
}

// Mailer configures approval notification email.
type Mailer struct {
	SMTPAddr string
	Username string
	Password string
	From     string
	FromName string
}

// Auth configures the admin login stub.
type Auth struct {
	AdminUser     string
	AdminPassword string
	JWTSigningKey string
	TokenTTL      time.Duration
}

// AreaCacheTTL bounds staleness of the cached volunteer-area taxonomy.
var AreaCacheTTL = 5 * time.Minute

// FromEnv builds the full configuration from environment variables. In
// development a .env file is loaded first when present.
func FromEnv() Config {
	if os.Getenv("ENV") != "prod" {
		_ = godotenv.Load()
	}

	return Config{
		Server: Server{
			Addr:            envOr("KEHILA_ADDR", ":8080"),
			RequestTimeout:  envDuration("KEHILA_REQUEST_TIMEOUT", 30*time.Second),
			ShutdownTimeout: envDuration("KEHILA_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Postgres: Postgres{
			DSN: os.Getenv("DATABASE_DSN"),
		},
		Redis: Redis{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers: splitNonEmpty(os.Getenv("KAFKA_BROKERS")),
			Topic:   envOr("KAFKA_TOPIC", "volunteer.approved"),
		},
		Storage: Storage{
			CloudinaryURL: os.Getenv("CLOUDINARY_URL"),
		},
		Renderer: Renderer{
			ScriptPath:   envOr("RENDERER_SCRIPT", "fill_volunteer_form.py"),
			TemplatePath: envOr("RENDERER_TEMPLATE", "volDoc.docx"),
			WorkDir:      envOr("RENDERER_WORKDIR", os.TempDir()),
			SidecarURL:   os.Getenv("RENDERER_SIDECAR_URL"),
			Timeout:      envDuration("RENDERER_TIMEOUT", 30*time.Second),
		},
		Mailer: Mailer{
			SMTPAddr: envOr("SMTP_ADDR", "smtp.gmail.com:587"),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     os.Getenv("MAIL_FROM"),
			FromName: envOr("MAIL_FROM_NAME", "Community Registration"),
		},
		Auth: Auth{
			AdminUser:     envOr("ADMIN_USER", "admin"),
			AdminPassword: os.Getenv("ADMIN_PASSWORD"),
			JWTSigningKey: envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			TokenTTL:      envDuration("JWT_TOKEN_TTL", 12*time.Hour),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
