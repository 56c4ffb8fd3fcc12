package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const EnvProduction = "production"

// Config holds all the configuration for the application.
type Config struct {
	Env         string `yaml:"env" env:"ENV" env-default:"production"`
	HTTPServer  `yaml:"http_server"`
	Database    `yaml:"database"`
	Redis       `yaml:"redis"`
	Links       `yaml:"links"`
	Tracking    `yaml:"tracking"`
	Geolocation `yaml:"geolocation"`
	ClientIP    `yaml:"client_ip"`
	Auth        `yaml:"auth"`
	UserAgent   `yaml:"user_agent"`
	Analytics   `yaml:"analytics"`
}

// HTTPServer holds HTTP listener configuration.
type HTTPServer struct {
	Address         string        `yaml:"address" env:"HTTP_ADDRESS" env-default:":8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"30s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"30s"`
	AllowedOrigins  []string      `yaml:"allowed_origins" env:"HTTP_ALLOWED_ORIGINS" env-separator:"," env-default:"http://localhost:3000,http://127.0.0.1:3000"`
}

// Database holds storage configuration. Driver is one of postgres, sqlite, mysql, memory.
type Database struct {
	Driver          string `yaml:"driver" env:"DB_DRIVER" env-default:"postgres"`
	Host            string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port            int    `yaml:"port" env:"DB_PORT" env-default:"5432"`
	User            string `yaml:"user" env:"DB_USER" env-default:"postgres"`
	Password        string `yaml:"password" env:"DB_PASSWORD"`
	DBName          string `yaml:"dbname" env:"DB_NAME" env-default:"utm_links"`
	SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE" env-default:"disable"`
	Timezone        string `yaml:"timezone" env:"DB_TIMEZONE" env-default:"UTC"`
	Path            string `yaml:"path" env:"DB_PATH" env-default:"utm_links.db"`
	MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS" env-default:"100"`
	ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME" env-default:"1h"`
	AutoMigrate     bool   `yaml:"auto_migrate" env:"DB_AUTO_MIGRATE" env-default:"true"`
	LogQueries      bool   `yaml:"log_queries" env:"DB_LOG_QUERIES" env-default:"false"`
}

// Redis holds the geolocation cache connection. Empty address disables the cache.
type Redis struct {
	Address  string `yaml:"address" env:"REDIS_ADDRESS"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// Links holds code generation and listing settings.
type Links struct {
	CodeLength      int    `yaml:"code_length" env:"CODE_LENGTH" env-default:"8"`
	MaxRetries      int    `yaml:"max_retries" env:"CODE_MAX_RETRIES" env-default:"10"`
	BaseURL         string `yaml:"base_url" env:"BASE_URL" env-default:"http://localhost:8080"`
	DefaultPageSize int    `yaml:"default_page_size" env:"DEFAULT_PAGE_SIZE" env-default:"10"`
	MaxPageSize     int    `yaml:"max_page_size" env:"MAX_PAGE_SIZE" env-default:"100"`
	QRSize          int    `yaml:"qr_size" env:"QR_SIZE" env-default:"256"`
}

// Tracking holds the click recorder settings.
type Tracking struct {
	Workers         int           `yaml:"workers" env:"TRACKING_WORKERS" env-default:"4"`
	BufferSize      int           `yaml:"buffer_size" env:"TRACKING_BUFFER_SIZE" env-default:"1000"`
	GeoTimeout      time.Duration `yaml:"geo_timeout" env:"TRACKING_GEO_TIMEOUT" env-default:"1500ms"`
	PublicIPTimeout time.Duration `yaml:"public_ip_timeout" env:"TRACKING_PUBLIC_IP_TIMEOUT" env-default:"1s"`
	PersistTimeout  time.Duration `yaml:"persist_timeout" env:"TRACKING_PERSIST_TIMEOUT" env-default:"5s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"TRACKING_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// Geolocation holds the outbound lookup providers.
type Geolocation struct {
	ProviderURL    string        `yaml:"provider_url" env:"GEO_PROVIDER_URL" env-default:"http://ipapi.co"`
	UserAgent      string        `yaml:"user_agent" env:"GEO_USER_AGENT" env-default:"VillFields-API/1.0"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"GEO_REQUEST_TIMEOUT" env-default:"2s"`
	PublicIPURL    string        `yaml:"public_ip_url" env:"GEO_PUBLIC_IP_URL" env-default:"https://api.ipify.org?format=json"`
	CacheTTL       time.Duration `yaml:"cache_ttl" env:"GEO_CACHE_TTL" env-default:"24h"`
}

// ClientIP holds the header priority used to find the visitor address.
type ClientIP struct {
	Headers []string `yaml:"headers" env:"CLIENT_IP_HEADERS" env-separator:"," env-default:"X-Client-Real-IP,X-Forwarded-For,X-Real-IP,CF-Connecting-IP,X-Client-IP"`
}

// Auth holds bearer token verification. Empty secret disables authentication.
type Auth struct {
	JWTSecret string        `yaml:"jwt_secret" env:"JWT_SECRET"`
	Issuer    string        `yaml:"issuer" env:"JWT_ISSUER"`
	TokenTTL  time.Duration `yaml:"token_ttl" env:"JWT_TOKEN_TTL" env-default:"15m"`
}

// UserAgent holds the optional uap-core regexes file.
type UserAgent struct {
	RegexesPath string `yaml:"regexes_path" env:"UA_REGEXES_PATH"`
}

// Analytics holds report settings.
type Analytics struct {
	Timezone string `yaml:"timezone" env:"ANALYTICS_TIMEZONE" env-default:"Local"`
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// Location resolves the analytics timezone.
func (a Analytics) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid analytics timezone %q: %w", a.Timezone, err)
	}
	return loc, nil
}

// Load reads configuration from the yaml file at path, or from the environment only if path does not exist.
func Load(path string) (*Config, error) {
	var cfg Config

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("cannot read config: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("cannot read config from environment: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite", "mysql", "memory":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Links.CodeLength <= 0 {
		return fmt.Errorf("code_length must be positive")
	}
	if c.Tracking.Workers <= 0 || c.Tracking.BufferSize <= 0 {
		return fmt.Errorf("tracking workers and buffer_size must be positive")
	}
	if _, err := c.Analytics.Location(); err != nil {
		return err
	}
	return nil
}

// MustLoad loads the application configuration.
func MustLoad() *Config {
	// Try to load .env file (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment variables")
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/local.yml" // default path
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot load config: %s", err)
	}

	return cfg
}
