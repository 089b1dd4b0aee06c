package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	StoreBackendPostgres = "postgres"
	StoreBackendMemory   = "memory"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	Kafka        KafkaConfig
	Catalog      ServiceConfig
	Notification ServiceConfig
	Pricing      PricingConfig
	Auth         AuthConfig
	Log          LogConfig
	Features     FeatureFlags

	// StoreBackend selects where user documents live: postgres or memory.
	StoreBackend string
	// Location is the time zone used to decide which orders were placed
	// today.
	Location *time.Location
}

type ServerConfig struct {
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	Environment    string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

func (d DatabaseConfig) ConnectionString() string {
	return "host=" + d.Host +
		" port=" + strconv.Itoa(d.Port) +
		" user=" + d.User +
		" password=" + d.Password +
		" dbname=" + d.Name +
		" sslmode=" + d.SSLMode
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	TTL      time.Duration
}

type KafkaConfig struct {
	Brokers       []string
	OrdersTopic   string
	SessionsTopic string
	ConsumerGroup string
	// InstanceID names this replica. It must survive restarts: the session
	// consumer group is derived from it.
	InstanceID string
}

type ServiceConfig struct {
	BaseURL string
	Timeout time.Duration
}

type PricingConfig struct {
	ConversionRate        decimal.Decimal
	DiscountFlat          decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	FlatShippingFee       decimal.Decimal
	CouponCode            string
	// CouponAmount is in catalog currency.
	CouponAmount decimal.Decimal
	DeliveryDays int
}

type AuthConfig struct {
	JWTSecret     string
	TokenTTL      time.Duration
	ResetTokenTTL time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

type FeatureFlags struct {
	EnableEvents  bool
	EnableCaching bool
	EnableMetrics bool
}

// Load reads configuration from the environment. A .env file in the working
// directory, if present, is loaded first and never overrides variables that
// are already set.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:           getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:    time.Duration(getEnvInt("SERVER_READ_TIMEOUT", 30)) * time.Second,
			WriteTimeout:   time.Duration(getEnvInt("SERVER_WRITE_TIMEOUT", 30)) * time.Second,
			Environment:    getEnvString("ENVIRONMENT", "development"),
			AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		},
		Database: DatabaseConfig{
			Host:         getEnvString("DB_HOST", "localhost"),
			Port:         getEnvInt("DB_PORT", 5432),
			User:         getEnvString("DB_USER", "acme"),
			Password:     getEnvString("DB_PASSWORD", "acme"),
			Name:         getEnvString("DB_NAME", "acme_storefront"),
			SSLMode:      getEnvString("DB_SSLMODE", "disable"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  time.Duration(getEnvInt("DB_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		Redis: RedisConfig{
			Host:     getEnvString("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnvString("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			TTL:      time.Duration(getEnvInt("REDIS_TTL_SECONDS", 300)) * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:       getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
			OrdersTopic:   getEnvString("KAFKA_ORDERS_TOPIC", "storefront.orders"),
			SessionsTopic: getEnvString("KAFKA_SESSIONS_TOPIC", "storefront.sessions"),
			ConsumerGroup: getEnvString("KAFKA_CONSUMER_GROUP", "storefront"),
			InstanceID:    getEnvString("INSTANCE_ID", hostname()),
		},
		Catalog: ServiceConfig{
			BaseURL: getEnvString("CATALOG_URL", "https://fakestoreapi.com"),
			Timeout: time.Duration(getEnvInt("CATALOG_TIMEOUT", 10)) * time.Second,
		},
		Notification: ServiceConfig{
			BaseURL: getEnvString("NOTIFICATION_SERVICE_URL", ""),
			Timeout: time.Duration(getEnvInt("NOTIFICATION_SERVICE_TIMEOUT", 10)) * time.Second,
		},
		Pricing: PricingConfig{
			ConversionRate:        getEnvDecimal("PRICING_CONVERSION_RATE", "83.36"),
			DiscountFlat:          getEnvDecimal("PRICING_DISCOUNT", "100"),
			FreeShippingThreshold: getEnvDecimal("PRICING_FREE_SHIPPING_THRESHOLD", "2000"),
			FlatShippingFee:       getEnvDecimal("PRICING_SHIPPING_FEE", "79"),
			CouponCode:            getEnvString("PRICING_COUPON_CODE", "SAVE10"),
			CouponAmount:          getEnvDecimal("PRICING_COUPON_AMOUNT", "10"),
			DeliveryDays:          getEnvInt("PRICING_DELIVERY_DAYS", 2),
		},
		Auth: AuthConfig{
			JWTSecret:     getEnvString("JWT_SECRET", "dev-secret-change-me"),
			TokenTTL:      time.Duration(getEnvInt("JWT_TTL_HOURS", 72)) * time.Hour,
			ResetTokenTTL: time.Duration(getEnvInt("RESET_TOKEN_TTL_MINUTES", 30)) * time.Minute,
		},
		Log: LogConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "json"),
		},
		Features: FeatureFlags{
			EnableEvents:  getEnvBool("ENABLE_EVENTS", false),
			EnableCaching: getEnvBool("ENABLE_CACHING", false),
			EnableMetrics: getEnvBool("ENABLE_METRICS", true),
		},
		StoreBackend: getEnvString("STORE_BACKEND", StoreBackendPostgres),
		Location:     getEnvLocation("TIMEZONE", "Asia/Kolkata"),
	}
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDecimal(key, defaultValue string) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return decimal.RequireFromString(defaultValue)
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvLocation(key, defaultValue string) *time.Location {
	if loc, err := time.LoadLocation(getEnvString(key, defaultValue)); err == nil {
		return loc
	}
	return time.Local
}

// hostname is the pod name under Kubernetes.
func hostname() string {
	name, err := os.Hostname()
	if err != nil {
		return ""
	}
	return name
}
