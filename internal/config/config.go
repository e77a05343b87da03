package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN returns the key/value connection string used by the GORM postgres driver.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// DatabaseURL returns the URL form used by golang-migrate.
func (c DatabaseConfig) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// KafkaConfig holds Kafka broker settings. Empty Brokers disables event publishing.
type KafkaConfig struct {
	Brokers     []string
	GroupPrefix string
}

// CatalogConfig selects where parking spots are loaded from.
type CatalogConfig struct {
	Source  string // file | http | postgres
	Path    string
	URL     string
	Timeout time.Duration
}

// GeocoderConfig configures the free-text location search provider.
type GeocoderConfig struct {
	URL            string
	UserAgent      string
	RequestsPerSec float64
	Timeout        time.Duration
}

// DiscoveryConfig holds ranking and display defaults.
type DiscoveryConfig struct {
	DefaultRadiusKm float64
	ResultCap       int
	DefaultLat      float64
	DefaultLng      float64
	CurrencySymbol  string
	MapsKey         string
}

// LedgerConfig selects the booking ledger backend.
type LedgerConfig struct {
	Backend string // postgres | redis | memory
	Key     string
}

// ServiceConfig holds all configuration for the parking service.
type ServiceConfig struct {
	Port            string
	AppEnv          string
	DBConfig        DatabaseConfig
	RedisConfig     RedisConfig
	KafkaConfig     KafkaConfig
	CatalogConfig   CatalogConfig
	GeocoderConfig  GeocoderConfig
	DiscoveryConfig DiscoveryConfig
	LedgerConfig    LedgerConfig
}

const envPrefix = "PARKING"

// Load reads configuration from an optional .env file and PARKING_* environment variables.
func Load() (*ServiceConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVICE_PORT", "8080")
	v.SetDefault("APP_ENV", "development")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "parking")
	v.SetDefault("DB_SSLMODE", "disable")

	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_GROUP_PREFIX", "parking-")

	v.SetDefault("CATALOG_SOURCE", "file")
	v.SetDefault("CATALOG_PATH", "data/parkings.json")
	v.SetDefault("CATALOG_URL", "")
	v.SetDefault("CATALOG_TIMEOUT", "10s")

	v.SetDefault("GEOCODER_URL", "https://nominatim.openstreetmap.org/search")
	v.SetDefault("GEOCODER_USER_AGENT", "parkfinder-service/1.0")
	v.SetDefault("GEOCODER_RPS", 1.0)
	v.SetDefault("GEOCODER_TIMEOUT", "8s")

	v.SetDefault("DEFAULT_RADIUS_KM", 5.0)
	v.SetDefault("RESULT_CAP", 30)
	v.SetDefault("DEFAULT_LAT", 18.5204)
	v.SetDefault("DEFAULT_LNG", 73.8567)
	v.SetDefault("CURRENCY_SYMBOL", "₹")
	v.SetDefault("MAPS_KEY", "")

	v.SetDefault("LEDGER_BACKEND", "postgres")
	v.SetDefault("LEDGER_KEY", "park_bookings")
}

// FromViper builds a ServiceConfig from an initialized viper instance.
func FromViper(v *viper.Viper) (*ServiceConfig, error) {
	cfg := &ServiceConfig{
		Port:   normalizePort(v.GetString("SERVICE_PORT")),
		AppEnv: v.GetString("APP_ENV"),
		DBConfig: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetInt("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		RedisConfig: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		KafkaConfig: KafkaConfig{
			Brokers:     splitList(v.GetString("KAFKA_BROKERS")),
			GroupPrefix: v.GetString("KAFKA_GROUP_PREFIX"),
		},
		CatalogConfig: CatalogConfig{
			Source:  strings.ToLower(v.GetString("CATALOG_SOURCE")),
			Path:    v.GetString("CATALOG_PATH"),
			URL:     v.GetString("CATALOG_URL"),
			Timeout: v.GetDuration("CATALOG_TIMEOUT"),
		},
		GeocoderConfig: GeocoderConfig{
			URL:            v.GetString("GEOCODER_URL"),
			UserAgent:      v.GetString("GEOCODER_USER_AGENT"),
			RequestsPerSec: v.GetFloat64("GEOCODER_RPS"),
			Timeout:        v.GetDuration("GEOCODER_TIMEOUT"),
		},
		DiscoveryConfig: DiscoveryConfig{
			DefaultRadiusKm: v.GetFloat64("DEFAULT_RADIUS_KM"),
			ResultCap:       v.GetInt("RESULT_CAP"),
			DefaultLat:      v.GetFloat64("DEFAULT_LAT"),
			DefaultLng:      v.GetFloat64("DEFAULT_LNG"),
			CurrencySymbol:  v.GetString("CURRENCY_SYMBOL"),
			MapsKey:         v.GetString("MAPS_KEY"),
		},
		LedgerConfig: LedgerConfig{
			Backend: strings.ToLower(v.GetString("LEDGER_BACKEND")),
			Key:     v.GetString("LEDGER_KEY"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *ServiceConfig) validate() error {
	switch c.CatalogConfig.Source {
	case "file", "http", "postgres":
	default:
		return fmt.Errorf("invalid CATALOG_SOURCE %q", c.CatalogConfig.Source)
	}
	if c.CatalogConfig.Source == "http" && c.CatalogConfig.URL == "" {
		return errors.New("CATALOG_URL is required when CATALOG_SOURCE=http")
	}
	switch c.LedgerConfig.Backend {
	case "postgres", "redis", "memory":
	default:
		return fmt.Errorf("invalid LEDGER_BACKEND %q", c.LedgerConfig.Backend)
	}
	if c.DiscoveryConfig.DefaultRadiusKm <= 0 {
		return errors.New("DEFAULT_RADIUS_KM must be positive")
	}
	if c.DiscoveryConfig.ResultCap <= 0 {
		return errors.New("RESULT_CAP must be positive")
	}
	if c.GeocoderConfig.RequestsPerSec <= 0 {
		return errors.New("GEOCODER_RPS must be positive")
	}
	return nil
}

// NeedsDatabase reports whether any configured component uses PostgreSQL.
func (c *ServiceConfig) NeedsDatabase() bool {
	return c.LedgerConfig.Backend == "postgres" || c.CatalogConfig.Source == "postgres"
}

func normalizePort(port string) string {
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
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
