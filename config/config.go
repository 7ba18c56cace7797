package config

import (
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Application struct {
		Name          string
		Environment   string
		Port          int
		Debug         bool
		LogLevel      string
		Timeout       time.Duration
		Location      *time.Location
		TMFulfillment struct {
			BaseURL string
		}
	}
	Postgres struct {
		Host            string
		Port            int
		User            string
		Password        string
		DBName          string
		SSLMode         string
		MaxOpenConns    int
		MaxIdleConns    int
		ConnMaxLifetime time.Duration
	}
	Redis struct {
		Addr     string
		Password string
		DB       int
	}
	Kafka struct {
		Brokers []string
	}
	GCP struct {
		ProjectID      string
		Location       string
		ServiceAccount []byte
	}
	JWT struct {
		PrivateKey []byte
		PublicKey  []byte
	}
	Stripe struct {
		BaseURL          string
		SecretKey        string
		WebhookSecret    string
		WebhookTolerance time.Duration
		SuccessURL       string
		CancelURL        string
	}
	Fulfillment struct {
		NotificationURL           string
		NotificationQueue         string
		PurchasePaidTopic         string
		PurchaseItemRefundedTopic string
		WebhookEventTTL           time.Duration
		OutboxBatchSize           int
		OutboxInterval            time.Duration
		OutboxLease               time.Duration
		OutboxMaxRetry            int
	}
	CORS struct {
		AllowedOrigins   []string
		AllowedMethods   []string
		AllowedHeaders   []string
		ExposedHeaders   []string
		MaxAge           int
		AllowCredentials bool
	}
	Monitoring struct {
		OTLPEndpoint string
		OTLPInsecure bool
	}
}

var (
	cfg  *Config
	once sync.Once
)

// Get loads the configuration once from the environment (and an optional .env
// file in the working directory) and returns it.
func Get() *Config {
	once.Do(func() {
		cfg = load()
	})

	return cfg
}

func load() *Config {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig()
	v.AutomaticEnv()

	setDefaults(v)

	c := &Config{}

	c.Application.Name = v.GetString("APP_NAME")
	c.Application.Environment = v.GetString("APP_ENVIRONMENT")
	c.Application.Port = v.GetInt("APP_PORT")
	c.Application.Debug = v.GetBool("APP_DEBUG")
	c.Application.LogLevel = v.GetString("APP_LOG_LEVEL")
	c.Application.Timeout = v.GetDuration("APP_TIMEOUT")
	c.Application.TMFulfillment.BaseURL = v.GetString("APP_TM_FULFILLMENT_BASE_URL")

	location, err := time.LoadLocation(v.GetString("APP_TIMEZONE"))
	if err != nil {
		location = time.UTC
	}
	c.Application.Location = location

	c.Postgres.Host = v.GetString("POSTGRES_HOST")
	c.Postgres.Port = v.GetInt("POSTGRES_PORT")
	c.Postgres.User = v.GetString("POSTGRES_USER")
	c.Postgres.Password = v.GetString("POSTGRES_PASSWORD")
	c.Postgres.DBName = v.GetString("POSTGRES_DB_NAME")
	c.Postgres.SSLMode = v.GetString("POSTGRES_SSL_MODE")
	c.Postgres.MaxOpenConns = v.GetInt("POSTGRES_MAX_OPEN_CONNS")
	c.Postgres.MaxIdleConns = v.GetInt("POSTGRES_MAX_IDLE_CONNS")
	c.Postgres.ConnMaxLifetime = v.GetDuration("POSTGRES_CONN_MAX_LIFETIME")

	c.Redis.Addr = v.GetString("REDIS_ADDR")
	c.Redis.Password = v.GetString("REDIS_PASSWORD")
	c.Redis.DB = v.GetInt("REDIS_DB")

	c.Kafka.Brokers = splitCSV(v.GetString("KAFKA_BROKERS"))

	c.GCP.ProjectID = v.GetString("GCP_PROJECT_ID")
	c.GCP.Location = v.GetString("GCP_LOCATION")
	c.GCP.ServiceAccount = []byte(v.GetString("GCP_SERVICE_ACCOUNT"))

	c.JWT.PrivateKey = []byte(v.GetString("JWT_PRIVATE_KEY"))
	c.JWT.PublicKey = []byte(v.GetString("JWT_PUBLIC_KEY"))

	c.Stripe.BaseURL = v.GetString("STRIPE_BASE_URL")
	c.Stripe.SecretKey = v.GetString("STRIPE_SECRET_KEY")
	c.Stripe.WebhookSecret = v.GetString("STRIPE_WEBHOOK_SECRET")
	c.Stripe.WebhookTolerance = v.GetDuration("STRIPE_WEBHOOK_TOLERANCE")
	c.Stripe.SuccessURL = v.GetString("STRIPE_SUCCESS_URL")
	c.Stripe.CancelURL = v.GetString("STRIPE_CANCEL_URL")

	c.Fulfillment.NotificationURL = v.GetString("FULFILLMENT_NOTIFICATION_URL")
	c.Fulfillment.NotificationQueue = v.GetString("FULFILLMENT_NOTIFICATION_QUEUE")
	c.Fulfillment.PurchasePaidTopic = v.GetString("FULFILLMENT_PURCHASE_PAID_TOPIC")
	c.Fulfillment.PurchaseItemRefundedTopic = v.GetString("FULFILLMENT_PURCHASE_ITEM_REFUNDED_TOPIC")
	c.Fulfillment.WebhookEventTTL = v.GetDuration("FULFILLMENT_WEBHOOK_EVENT_TTL")
	c.Fulfillment.OutboxBatchSize = v.GetInt("FULFILLMENT_OUTBOX_BATCH_SIZE")
	c.Fulfillment.OutboxInterval = v.GetDuration("FULFILLMENT_OUTBOX_INTERVAL")
	c.Fulfillment.OutboxLease = v.GetDuration("FULFILLMENT_OUTBOX_LEASE")
	c.Fulfillment.OutboxMaxRetry = v.GetInt("FULFILLMENT_OUTBOX_MAX_RETRY")

	c.CORS.AllowedOrigins = splitCSV(v.GetString("CORS_ALLOWED_ORIGINS"))
	c.CORS.AllowedMethods = splitCSV(v.GetString("CORS_ALLOWED_METHODS"))
	c.CORS.AllowedHeaders = splitCSV(v.GetString("CORS_ALLOWED_HEADERS"))
	c.CORS.ExposedHeaders = splitCSV(v.GetString("CORS_EXPOSED_HEADERS"))
	c.CORS.MaxAge = v.GetInt("CORS_MAX_AGE")
	c.CORS.AllowCredentials = v.GetBool("CORS_ALLOW_CREDENTIALS")

	c.Monitoring.OTLPEndpoint = v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT")
	c.Monitoring.OTLPInsecure = v.GetBool("OTEL_EXPORTER_OTLP_INSECURE")

	return c
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_NAME", "tm-fulfillment")
	v.SetDefault("APP_ENVIRONMENT", "development")
	v.SetDefault("APP_PORT", 8080)
	v.SetDefault("APP_LOG_LEVEL", "info")
	v.SetDefault("APP_TIMEOUT", "15s")
	v.SetDefault("APP_TIMEZONE", "Asia/Jakarta")
	v.SetDefault("APP_TM_FULFILLMENT_BASE_URL", "http://localhost:8080/tm-fulfillment")

	v.SetDefault("POSTGRES_HOST", "localhost")
	v.SetDefault("POSTGRES_PORT", 5432)
	v.SetDefault("POSTGRES_USER", "postgres")
	v.SetDefault("POSTGRES_DB_NAME", "tm_fulfillment")
	v.SetDefault("POSTGRES_SSL_MODE", "disable")
	v.SetDefault("POSTGRES_MAX_OPEN_CONNS", 25)
	v.SetDefault("POSTGRES_MAX_IDLE_CONNS", 25)
	v.SetDefault("POSTGRES_CONN_MAX_LIFETIME", "5m")

	v.SetDefault("REDIS_ADDR", "localhost:6379")

	v.SetDefault("KAFKA_BROKERS", "localhost:9092")

	v.SetDefault("GCP_LOCATION", "asia-southeast2")

	v.SetDefault("STRIPE_BASE_URL", "https://api.stripe.com")
	v.SetDefault("STRIPE_WEBHOOK_TOLERANCE", "5m")

	v.SetDefault("FULFILLMENT_NOTIFICATION_QUEUE", "purchase-confirmation")
	v.SetDefault("FULFILLMENT_PURCHASE_PAID_TOPIC", "purchase-paid")
	v.SetDefault("FULFILLMENT_PURCHASE_ITEM_REFUNDED_TOPIC", "purchase-item-refunded")
	v.SetDefault("FULFILLMENT_WEBHOOK_EVENT_TTL", "72h")
	v.SetDefault("FULFILLMENT_OUTBOX_BATCH_SIZE", 100)
	v.SetDefault("FULFILLMENT_OUTBOX_INTERVAL", "500ms")
	v.SetDefault("FULFILLMENT_OUTBOX_LEASE", "30s")
	v.SetDefault("FULFILLMENT_OUTBOX_MAX_RETRY", 10)

	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("CORS_ALLOWED_METHODS", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
	v.SetDefault("CORS_ALLOWED_HEADERS", "Authorization,Content-Type,Idempotency-Key")
	v.SetDefault("CORS_MAX_AGE", 300)
}

func splitCSV(s string) []string {
	out := make([]string, 0)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}

	return out
}
