package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewWebhookConfigHolder),
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBPath            string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	RunMigrations bool
	SeedDemoData  bool
	NodeID        int64

	Email      EmailConfig
	Accounting AccountingConfig
	Redis      RedisConfig
	OrderLock  OrderLockConfig
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	DialTimeout  time.Duration
	SendTimeout  time.Duration
}

type AccountingConfig struct {
	Endpoint  string
	AuthToken string
	Timeout   time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type OrderLockConfig struct {
	TTL     time.Duration
	MaxWait time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:      getenv("APP_SERVICE", "ordersync"),
		AppVersion:   getenv("APP_VERSION", "0.1.0"),
		Environment:  getenv("ENVIRONMENT", "development"),
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "ordersync"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBPath:            getenv("DATABASE_PATH", "ordersync.db"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),

		RunMigrations: getenvBool("RUN_MIGRATIONS", true),
		SeedDemoData:  getenvBool("SEED_DEMO_DATA", false),
		NodeID:        getenvInt64("SNOWFLAKE_NODE_ID", 1),

		Email: EmailConfig{
			SMTPHost:     getenv("SMTP_HOST", "localhost"),
			SMTPPort:     getenvInt("SMTP_PORT", 1025),
			SMTPUsername: strings.TrimSpace(getenv("SMTP_USERNAME", "")),
			SMTPPassword: strings.TrimSpace(getenv("SMTP_PASSWORD", "")),
			SMTPFrom:     getenv("SMTP_FROM", "orders@ordersync.local"),
			DialTimeout:  getenvDuration("SMTP_DIAL_TIMEOUT", 10*time.Second),
			SendTimeout:  getenvDuration("SMTP_SEND_TIMEOUT", 30*time.Second),
		},
		Accounting: AccountingConfig{
			Endpoint:  strings.TrimSpace(getenv("ACCOUNTING_ENDPOINT", "https://accounting.internal/api/orders")),
			AuthToken: strings.TrimSpace(getenv("ACCOUNTING_AUTH_TOKEN", "")),
			Timeout:   getenvDuration("ACCOUNTING_TIMEOUT", 5*time.Second),
		},
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       getenvInt("REDIS_DB", 0),
		},
		OrderLock: OrderLockConfig{
			TTL:     getenvDuration("ORDER_LOCK_TTL", 30*time.Second),
			MaxWait: getenvDuration("ORDER_LOCK_MAX_WAIT", 10*time.Second),
		},
	}
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
