package config

import (
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"

	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	Env       string          `yaml:"env" env:"APP_ENV" env-default:"local"`
	Storage   string          `yaml:"storage" env:"STORAGE" env-default:"postgres"`
	HTTP      HTTPConfig      `yaml:"http"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Auth      AuthConfig      `yaml:"auth"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr" env:"HTTP_ADDR" env-default:"0.0.0.0:8080"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"30s"`
	AllowedOrigins  []string      `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-separator:"," env-default:"http://localhost:3000"`
}

type PostgresConfig struct {
	Host     string `yaml:"host" env:"POSTGRES_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"POSTGRES_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"POSTGRES_USER" env-default:"postgres"`
	Password string `yaml:"password" env:"POSTGRES_PASSWORD"`
	DB       string `yaml:"db" env:"POSTGRES_DB" env-default:"poll"`
	SSLMode  string `yaml:"sslmode" env:"POSTGRES_SSLMODE" env-default:"disable"`
}

// DSN builds a lib/pq connection URL.
func (p PostgresConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     p.Host + ":" + p.Port,
		Path:     "/" + p.DB,
		RawQuery: "sslmode=" + url.QueryEscape(p.SSLMode),
	}
	return u.String()
}

type AuthConfig struct {
	JWTSecret           string        `yaml:"jwt_secret" env:"JWT_SECRET"`
	AccessTTL           time.Duration `yaml:"access_ttl" env:"ACCESS_TOKEN_TTL" env-default:"15m"`
	RefreshTTL          time.Duration `yaml:"refresh_ttl" env:"REFRESH_TOKEN_TTL" env-default:"168h"`
	GoogleClientID      string        `yaml:"google_client_id" env:"GOOGLE_CLIENT_ID"`
	BootstrapAdminEmail string        `yaml:"bootstrap_admin_email" env:"BOOTSTRAP_ADMIN_EMAIL"`
	CookieDomain        string        `yaml:"cookie_domain" env:"COOKIE_DOMAIN"`
}

// ReconcileConfig tunes the counter reconciliation job. Workers also caps its open connections.
type ReconcileConfig struct {
	Workers int `yaml:"workers" env:"RECONCILE_WORKERS" env-default:"8"`
}

// MustLoad loads the configuration or exits the process.
func MustLoad() *Config {
	cfg, err := Load(fetchConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot read config: %s\n", err)
		os.Exit(1)
	}
	return cfg
}

// Load reads an optional .env file and then the YAML file at path, if any, with environment
// variables taking precedence. An empty path reads the environment only.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file does not exist: %s", path)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, err
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Env {
	case EnvLocal, EnvDev, EnvProd:
	default:
		return fmt.Errorf("unknown env %q", c.Env)
	}
	switch c.Storage {
	case StoragePostgres, StorageMemory:
	default:
		return fmt.Errorf("unknown storage %q", c.Storage)
	}
	if c.Reconcile.Workers < 1 {
		return fmt.Errorf("reconcile workers must be positive, got %d", c.Reconcile.Workers)
	}
	return nil
}

// Validate checks the settings needed to issue tokens. Only the API server requires them.
func (a AuthConfig) Validate() error {
	if len(a.JWTSecret) < 16 {
		return errors.New("JWT_SECRET must be at least 16 characters")
	}
	return nil
}

// fetchConfigPath takes the path from the -config flag, falling back to CONFIG_PATH.
func fetchConfigPath() string {
	var res string

	if flag.Lookup("config") == nil {
		flag.StringVar(&res, "config", "", "path to config file")
	}
	if !flag.Parsed() {
		flag.Parse()
	}
	if f := flag.Lookup("config"); f != nil {
		res = f.Value.String()
	}
	return ResolvePath(res)
}

// ResolvePath returns path, or CONFIG_PATH when path is empty.
func ResolvePath(path string) string {
	if path == "" {
		return os.Getenv("CONFIG_PATH")
	}
	return path
}
