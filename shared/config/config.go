package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/eaglebank/banking/shared/events"
	"github.com/joho/godotenv"
)

const (
	BrokerRedis = events.BrokerRedis
	BrokerKafka = events.BrokerKafka

	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config is the environment-driven configuration shared by every service.
// Defaults carries the values that differ per service.
type Config struct {
	ServiceName string
	Env         string
	Port        string

	DatabaseURL        string
	DBMaxOpenConns     int
	DBConnectRetries   int
	DBStatementTimeout time.Duration
	StorageDriver      string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	EventBroker  string
	KafkaBrokers []string

	AccountCacheTTL time.Duration
	VerifyCustomers bool

	CustomerServiceURL string
	AccountServiceURL  string
	UpstreamTimeout    time.Duration
}

type Defaults struct {
	ServiceName string
	Port        string
	DatabaseURL string
}

// Load reads an optional .env file and then the process environment.
func Load(d Defaults) Config {
	_ = godotenv.Load()

	return Config{
		ServiceName: d.ServiceName,
		Env:         getEnv("APP_ENV", "production"),
		Port:        getEnv("PORT", d.Port),

		DatabaseURL:        getEnv("DATABASE_URL", d.DatabaseURL),
		DBMaxOpenConns:     getEnvInt("DB_MAX_OPEN_CONNS", 25),
		DBConnectRetries:   getEnvInt("DB_CONNECT_RETRIES", 5),
		DBStatementTimeout: getEnvDuration("DB_STATEMENT_TIMEOUT", 5*time.Second),
		StorageDriver:      strings.ToLower(getEnv("STORAGE_DRIVER", StoragePostgres)),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		EventBroker:  strings.ToLower(getEnv("EVENT_BROKER", BrokerRedis)),
		KafkaBrokers: splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),

		AccountCacheTTL: getEnvDuration("ACCOUNT_CACHE_TTL", 10*time.Minute),
		VerifyCustomers: getEnvBool("VERIFY_CUSTOMERS", true),

		CustomerServiceURL: strings.TrimSuffix(getEnv("CUSTOMER_SERVICE_URL", "http://localhost:8081"), "/"),
		AccountServiceURL:  strings.TrimSuffix(getEnv("ACCOUNT_SERVICE_URL", "http://localhost:8083"), "/"),
		UpstreamTimeout:    getEnvDuration("UPSTREAM_TIMEOUT", 15*time.Second),
	}
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if n, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return n
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if b, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return b
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return d
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
