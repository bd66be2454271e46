package config

import (
	"os"
	"strings"
)

// Config holds environment-driven configuration. Components receive it (or
// a slice of it) through their constructors; nothing reads the environment
// after startup.
type Config struct {
	Addr        string
	MetricsAddr string
	DatabaseURL string
	JWTSecret   string

	// PayTR merchant credentials
	PayTRMerchantID   string
	PayTRMerchantKey  string
	PayTRMerchantSalt string
	Currency          string

	// dev-mode processed-callback ledger file (used without DatabaseURL)
	LedgerPath string

	// order event stream; leave KafkaBrokers empty to disable publishing
	KafkaBrokers     []string
	OrderEventsTopic string
}

// Load reads configuration from environment variables.
func Load() Config {
	cfg := Config{
		Addr:        getEnv("LUPETI_ADDR", ":8080"),
		MetricsAddr: getEnv("LUPETI_METRICS_ADDR", ":9090"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),

		PayTRMerchantID:   os.Getenv("PAYTR_MERCHANT_ID"),
		PayTRMerchantKey:  os.Getenv("PAYTR_MERCHANT_KEY"),
		PayTRMerchantSalt: os.Getenv("PAYTR_MERCHANT_SALT"),
		Currency:          getEnv("LUPETI_CURRENCY", "TL"),

		LedgerPath:       getEnv("LUPETI_LEDGER_PATH", "./lupeti-ledger.db"),
		OrderEventsTopic: getEnv("ORDER_EVENTS_TOPIC", "order-events"),
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
