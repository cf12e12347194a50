package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Kafka     KafkaConfig
	Forecast  ForecastConfig
	Payment   PaymentConfig
	Metrics   MetricsConfig
	Policy    PolicyConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

func (s ServerConfig) IsDevelopment() bool {
	return s.Env != "production"
}

// LogConfig overrides the env's default log level when Level is set.
type LogConfig struct {
	Level string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Schema   string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// JWTConfig holds the key used to verify bearer tokens issued by the
// identity provider.
type JWTConfig struct {
	Secret string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type ForecastConfig struct {
	BaseURL string
	Timeout time.Duration
	// StaticDailyDemand is used when BaseURL is empty
	StaticDailyDemand float64
}

type PaymentConfig struct {
	Currency string
}

type MetricsConfig struct {
	Enabled     bool
	Endpoint    string
	Insecure    bool
	ServiceName string
}

// PolicyConfig carries the business thresholds that are global policy
// rather than per-product data.
type PolicyConfig struct {
	UrgencyRedDays     float64
	UrgencyYellowDays  float64
	SafetyStock        int
	HorizonDays        int
	DiscountPrecedence string
}

type RateLimitConfig struct {
	RequestsPerWindow int
	Window            time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

func Load() *Config {
	// Export .env into the process environment so OTEL_* and other
	// library-level variables are visible too.
	_ = godotenv.Load()

	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("KAFKA_TOPIC", "retail-ops.notifications")
	viper.SetDefault("FORECAST_TIMEOUT", "10s")
	viper.SetDefault("FORECAST_STATIC_DAILY_DEMAND", 0)
	viper.SetDefault("PAYMENT_CURRENCY", "inr")
	viper.SetDefault("METRICS_ENABLED", false)
	viper.SetDefault("METRICS_ENDPOINT", "localhost:4318")
	viper.SetDefault("METRICS_INSECURE", true)
	viper.SetDefault("METRICS_SERVICE_NAME", "retail-ops")
	viper.SetDefault("POLICY_URGENCY_RED_DAYS", 2)
	viper.SetDefault("POLICY_URGENCY_YELLOW_DAYS", 5)
	viper.SetDefault("POLICY_SAFETY_STOCK", 5)
	viper.SetDefault("POLICY_HORIZON_DAYS", 7)
	viper.SetDefault("POLICY_DISCOUNT_PRECEDENCE", "festival_first")
	viper.SetDefault("RATE_LIMIT_REQUESTS", 30)
	viper.SetDefault("RATE_LIMIT_WINDOW", "1m")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	return &Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
			Env:  viper.GetString("SERVER_ENV"),
		},
		Log: LogConfig{
			Level: viper.GetString("LOG_LEVEL"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Database: viper.GetString("DB_DATABASE"),
			Schema:   viper.GetString("DB_SCHEMA"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret: viper.GetString("JWT_SECRET"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(viper.GetString("KAFKA_BROKERS")),
			Topic:   viper.GetString("KAFKA_TOPIC"),
		},
		Forecast: ForecastConfig{
			BaseURL:           viper.GetString("FORECAST_BASE_URL"),
			Timeout:           viper.GetDuration("FORECAST_TIMEOUT"),
			StaticDailyDemand: viper.GetFloat64("FORECAST_STATIC_DAILY_DEMAND"),
		},
		Payment: PaymentConfig{
			Currency: strings.ToLower(viper.GetString("PAYMENT_CURRENCY")),
		},
		Metrics: MetricsConfig{
			Enabled:     viper.GetBool("METRICS_ENABLED"),
			Endpoint:    viper.GetString("METRICS_ENDPOINT"),
			Insecure:    viper.GetBool("METRICS_INSECURE"),
			ServiceName: viper.GetString("METRICS_SERVICE_NAME"),
		},
		Policy: PolicyConfig{
			UrgencyRedDays:     viper.GetFloat64("POLICY_URGENCY_RED_DAYS"),
			UrgencyYellowDays:  viper.GetFloat64("POLICY_URGENCY_YELLOW_DAYS"),
			SafetyStock:        viper.GetInt("POLICY_SAFETY_STOCK"),
			HorizonDays:        viper.GetInt("POLICY_HORIZON_DAYS"),
			DiscountPrecedence: viper.GetString("POLICY_DISCOUNT_PRECEDENCE"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerWindow: viper.GetInt("RATE_LIMIT_REQUESTS"),
			Window:            viper.GetDuration("RATE_LIMIT_WINDOW"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(viper.GetString("CORS_ALLOWED_ORIGINS")),
		},
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
