package configs

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"rental-system/internal/constants"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type DBconfig struct {
	URL         string
	AutoMigrate bool
}

type RESTconfig struct {
	PORT           string
	AllowedOrigins []string
}

type AuthConfig struct {
	JWTSecret string
}

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PublicBaseURL   string
}

type ListingsConfig struct {
	MaxImageBytes       int64
	PlaceholderImageURL string
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

type RabbitMQConfig struct {
	Enabled  bool
	URL      string
	Exchange string
}

type StdoutLogConfig struct {
	Level string
}

type FluentBitConfig struct {
	Host    string
	Port    int
	Enabled bool
	Level   string
}

// AppConfig holds the whole application configuration.
type AppConfig struct {
	AppName      string
	Database     DBconfig
	Rest         RESTconfig
	Auth         AuthConfig
	S3           S3Config
	Listings     ListingsConfig
	Redis        RedisConfig
	RabbitMQ     RabbitMQConfig
	FluentBit    FluentBitConfig
	StdoutLogger StdoutLogConfig
}

// LoadConfig reads the configuration from the environment. A .env file is
// loaded first when present; a missing file is not an error.
func LoadConfig(envPath ...string) (*AppConfig, error) {
	var err error
	if len(envPath) > 0 {
		err = godotenv.Load(envPath[0])
	} else {
		err = godotenv.Load()
	}
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("could not load .env file (path: %v): %w", envPath, err)
		}
		log.Println("Info: no .env file found, using environment variables")
	}

	cfg := &AppConfig{}

	cfg.AppName = getEnvAsString("APP_NAME", "listing-service")

	cfg.Database.URL = os.Getenv("DATABASE_URL")
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	cfg.Database.AutoMigrate = getEnvAsBool("DB_AUTO_MIGRATE", true)

	cfg.Rest.PORT = getEnvAsString("PORT", "8085")
	cfg.Rest.AllowedOrigins = getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"})

	cfg.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	cfg.S3.Bucket = os.Getenv("S3_BUCKET")
	if cfg.S3.Bucket == "" {
		return nil, fmt.Errorf("S3_BUCKET environment variable is required")
	}
	cfg.S3.Region = getEnvAsString("S3_REGION", "us-east-1")
	cfg.S3.Endpoint = os.Getenv("S3_ENDPOINT")
	cfg.S3.AccessKeyID = os.Getenv("S3_ACCESS_KEY_ID")
	cfg.S3.SecretAccessKey = os.Getenv("S3_SECRET_ACCESS_KEY")
	cfg.S3.PublicBaseURL = os.Getenv("S3_PUBLIC_BASE_URL")

	cfg.Listings.MaxImageBytes = int64(getEnvAsInt("MAX_IMAGE_BYTES", 5<<20))
	cfg.Listings.PlaceholderImageURL = os.Getenv("PLACEHOLDER_IMAGE_URL")

	cfg.Redis.Enabled = getEnvAsBool("REDIS_ENABLED", false)
	if cfg.Redis.Enabled {
		cfg.Redis.Addr = getEnvAsString("REDIS_ADDR", "localhost:6379")
		cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
		cfg.Redis.DB = getEnvAsInt("REDIS_DB", 0)
		cfg.Redis.TTL = time.Duration(getEnvAsInt("REDIS_TTL_SECONDS", 300)) * time.Second
	}

	cfg.RabbitMQ.Enabled = getEnvAsBool("RABBITMQ_ENABLED", false)
	if cfg.RabbitMQ.Enabled {
		cfg.RabbitMQ.URL = os.Getenv("RABBITMQ_URL")
		if cfg.RabbitMQ.URL == "" {
			log.Println("WARNING: RABBITMQ_ENABLED is true, but RABBITMQ_URL is not set. Disabling event publishing.")
			cfg.RabbitMQ.Enabled = false
		}
		cfg.RabbitMQ.Exchange = getEnvAsString("RABBITMQ_EXCHANGE", constants.ListingEventsExchange)
	}

	cfg.FluentBit.Enabled = getEnvAsBool("FLUENTBIT_ENABLED", false)
	if cfg.FluentBit.Enabled {
		cfg.FluentBit.Host = os.Getenv("FLUENTBIT_HOST")
		if cfg.FluentBit.Host == "" {
			log.Println("WARNING: FLUENTBIT_ENABLED is true, but FLUENTBIT_HOST is not set. Disabling Fluent Bit.")
			cfg.FluentBit.Enabled = false
		}

		cfg.FluentBit.Port = getEnvAsInt("FLUENTBIT_PORT", 24224)
		cfg.FluentBit.Level = getEnvAsString("FLUENTBIT_LOG_LEVEL", "info")
	}

	cfg.StdoutLogger.Level = getEnvAsString("STDOUT_LOG_LEVEL", "debug")

	return cfg, nil
}

func getEnvAsString(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}

	valueInt, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as int: %v. Using default value: %d\n", key, valueStr, err, defaultValue)
		return defaultValue
	}
	return valueInt
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valBool, err := strconv.ParseBool(valStr)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as bool: %v. Using default value: %t\n", key, valStr, err, defaultValue)
		return defaultValue
	}
	return valBool
}

// getEnvAsList splits a comma separated value, dropping empty items.
func getEnvAsList(key string, defaultValue []string) []string {
	valStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(valStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
