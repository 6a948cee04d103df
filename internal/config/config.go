package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config carries everything the process reads from the environment. Loaded
// once in main and passed down by constructor injection; nothing else reads
// os.Getenv.
type Config struct {
	DatabaseURL string
	ListenAddr  string
	JWTSecret   string
	JWTTTL      time.Duration

	// Gateway selection: mock unless USE_MOCK_PAYMENT=0 and live creds exist.
	UseMockGateway        bool
	RazorpayKeyID         string
	RazorpayKeySecret     string
	RazorpayWebhookSecret string
	GatewayTimeout        time.Duration

	TaxRate        decimal.Decimal
	CommissionRate decimal.Decimal

	FrontendURL        string
	WhatsAppPhone      string
	KafkaBrokers       []string
	BookingEventsTopic string

	OutboxPollInterval time.Duration
}

func Load() (*Config, error) {
	// Missing .env is fine; real deployments inject the environment directly.
	if err := godotenv.Load(); err == nil {
		log.Println("loaded environment from .env")
	}

	cfg := &Config{
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		ListenAddr:            envOrDefault("LISTEN_ADDR", ":8080"),
		JWTSecret:             os.Getenv("JWT_SECRET"),
		JWTTTL:                durationOrDefault("JWT_TTL", 24*time.Hour),
		UseMockGateway:        envOrDefault("USE_MOCK_PAYMENT", "1") != "0",
		RazorpayKeyID:         os.Getenv("RAZORPAY_KEY_ID"),
		RazorpayKeySecret:     os.Getenv("RAZORPAY_KEY_SECRET"),
		RazorpayWebhookSecret: os.Getenv("RAZORPAY_WEBHOOK_SECRET"),
		GatewayTimeout:        durationOrDefault("GATEWAY_TIMEOUT", 15*time.Second),
		TaxRate:               rateOrDefault("TAX_RATE", "0.12"),
		CommissionRate:        rateOrDefault("COMMISSION_RATE", "0.05"),
		FrontendURL:           envOrDefault("FRONTEND_URL", "https://wayantrails.com"),
		WhatsAppPhone:         envOrDefault("WHATSAPP_PHONE", "919876543210"),
		BookingEventsTopic:    envOrDefault("BOOKING_EVENTS_TOPIC", "booking-events"),
		OutboxPollInterval:    durationOrDefault("OUTBOX_POLL_INTERVAL", 5*time.Second),
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	return cfg, nil
}

func envOrDefault(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func durationOrDefault(name string, def time.Duration) time.Duration {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("level=warn msg=invalid duration env name=%s value=%s using default", name, v)
		return def
	}
	return d
}

func rateOrDefault(name, def string) decimal.Decimal {
	v := os.Getenv(name)
	if v == "" {
		v = def
	}
	d, err := decimal.NewFromString(v)
	if err != nil || d.IsNegative() {
		log.Printf("level=warn msg=invalid rate env name=%s value=%s using default", name, v)
		d, _ = decimal.NewFromString(def)
	}
	return d
}
