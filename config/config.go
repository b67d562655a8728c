package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"home-scraper/models"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	StorageBackend string
	MongoURI       string
	MongoDB        string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	CSVExportPath string

	CitiesFile   string
	CitiesFileCA string
	Partition    string
	PartitionCA  string

	SiteBaseURL     string
	FetchMode       string
	FetchTimeout    time.Duration
	ChromeBin       string
	ResolveAttempts int
	MaxIndexPage    int

	MaxAttempts     int
	RetryDelay      time.Duration
	RateLimitWindow time.Duration
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		HTTPAddr:  getEnv("HTTP_ADDR", ":8080"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		StorageBackend: strings.ToLower(getEnv("STORAGE_BACKEND", "mongo")),
		MongoURI:       getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:        getEnv("MONGO_DB", "homes"),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "scraper"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "scraper123"),
		PostgresDB:       getEnv("POSTGRES_DB", "homes"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		CSVExportPath: getEnv("CSV_EXPORT_PATH", ""),

		CitiesFile:   getEnv("CITIES_FILE", "cities.txt"),
		CitiesFileCA: getEnv("CITIES_FILE_CA", "cities_ca.txt"),
		Partition:    getEnv("PARTITION", "properties"),
		PartitionCA:  getEnv("PARTITION_CA", "properties_ca"),

		SiteBaseURL:     getEnv("SITE_BASE_URL", "https://www.zillow.com"),
		FetchMode:       strings.ToLower(getEnv("FETCH_MODE", "http")),
		FetchTimeout:    getEnvDuration("FETCH_TIMEOUT", 30*time.Second),
		ChromeBin:       getEnv("CHROME_BIN", ""),
		ResolveAttempts: getEnvInt("RESOLVE_ATTEMPTS", 8),
		MaxIndexPage:    getEnvInt("MAX_INDEX_PAGE", 5),

		MaxAttempts:     getEnvInt("MAX_ATTEMPTS", 5),
		RetryDelay:      getEnvDuration("RETRY_DELAY", 10*time.Second),
		RateLimitWindow: getEnvDuration("RATE_LIMIT_WINDOW", 5*time.Second),
	}
}

// Validate enforces the invariants the rest of the service relies on.
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case "mongo", "postgres":
	default:
		return fmt.Errorf("config: unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	switch c.FetchMode {
	case "http", "browser":
	default:
		return fmt.Errorf("config: unknown FETCH_MODE %q", c.FetchMode)
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("config: MAX_ATTEMPTS must be > 0 (got %d)", c.MaxAttempts)
	}
	if c.ResolveAttempts <= 0 {
		return fmt.Errorf("config: RESOLVE_ATTEMPTS must be > 0 (got %d)", c.ResolveAttempts)
	}
	if c.MaxIndexPage <= 0 {
		return fmt.Errorf("config: MAX_INDEX_PAGE must be > 0 (got %d)", c.MaxIndexPage)
	}
	if c.RetryDelay < 0 || c.RateLimitWindow < 0 {
		return fmt.Errorf("config: durations must not be negative")
	}
	if strings.TrimSpace(c.Partition) == "" || strings.TrimSpace(c.PartitionCA) == "" {
		return fmt.Errorf("config: PARTITION and PARTITION_CA must be set")
	}
	return nil
}

// Market returns the market selected by the canada flag.
func (c *Config) Market(canada bool) models.Market {
	if canada {
		return models.Market{Region: models.RegionCA, CitiesFile: c.CitiesFileCA, Partition: c.PartitionCA}
	}
	return models.Market{Region: models.RegionUS, CitiesFile: c.CitiesFile, Partition: c.Partition}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err == nil {
			return d
		}
	}
	return fallback
}
