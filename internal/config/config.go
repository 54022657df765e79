package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// DefaultPath is used when neither a flag nor CONFIG_PATH names a file.
const DefaultPath = "config/config.toml"

type ServerConfig struct {
	Port            string `toml:"port" validate:"required,numeric"`
	MaxUploadBytes  int64  `toml:"max_upload_bytes" validate:"gt=0"`
	ShutdownSeconds int    `toml:"shutdown_seconds" validate:"gte=0"`
}

type SQLiteConfig struct {
	Path string `toml:"path"`
}

type BadgerConfig struct {
	Path     string `toml:"path"`
	InMemory bool   `toml:"in_memory"`
}

type MemgraphConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

type PostgresConfig struct {
	DSN string `toml:"dsn"`
}

type GCSConfig struct {
	Bucket          string `toml:"bucket"`
	Prefix          string `toml:"prefix"`
	CredentialsFile string `toml:"credentials_file"`
}

type StorageConfig struct {
	Backend  string         `toml:"backend" validate:"oneof=memory sqlite badger memgraph postgres gcs"`
	SQLite   SQLiteConfig   `toml:"sqlite"`
	Badger   BadgerConfig   `toml:"badger"`
	Memgraph MemgraphConfig `toml:"memgraph"`
	Postgres PostgresConfig `toml:"postgres"`
	GCS      GCSConfig      `toml:"gcs"`
}

type ShopifyConfig struct {
	StoreDomain       string  `toml:"store_domain"`
	AccessToken       string  `toml:"access_token"`
	APIVersion        string  `toml:"api_version" validate:"required"`
	PageSize          int     `toml:"page_size" validate:"gte=1,lte=250"`
	RequestsPerSecond float64 `toml:"requests_per_second" validate:"gt=0"`
	MaxRetries        uint    `toml:"max_retries"`
	TimeoutSeconds    int     `toml:"timeout_seconds" validate:"gt=0"`
	// RefreshIntervalMinutes re-fetches the catalog in the background. Zero disables it.
	RefreshIntervalMinutes int `toml:"refresh_interval_minutes" validate:"gte=0"`
}

// Enabled reports whether enough is configured to talk to a store.
func (c ShopifyConfig) Enabled() bool {
	return c.StoreDomain != "" && c.AccessToken != ""
}

type IngestionConfig struct {
	Delimiter       string `toml:"delimiter" validate:"csvdelimiter"`
	DuplicatePolicy string `toml:"duplicate_policy" validate:"oneof=last-write-wins reject merge"`
}

type LogConfig struct {
	Level string `toml:"level" validate:"oneof=debug info warn error"`
}

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Storage   StorageConfig   `toml:"storage"`
	Shopify   ShopifyConfig   `toml:"shopify"`
	Ingestion IngestionConfig `toml:"ingestion"`
	Log       LogConfig       `toml:"log"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("csvdelimiter", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if utf8.RuneCountInString(s) != 1 {
			return false
		}
		r, _ := utf8.DecodeRuneInString(s)
		return validDelimiter(r)
	})
}

// validDelimiter mirrors the runes encoding/csv accepts as a field separator.
func validDelimiter(r rune) bool {
	return r != 0 && r != '"' && r != '\r' && r != '\n' && utf8.ValidRune(r) && r != utf8.RuneError
}

// Default returns a configuration that runs without any file or environment.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			MaxUploadBytes:  10 << 20,
			ShutdownSeconds: 10,
		},
		Storage: StorageConfig{
			Backend: "memory",
			SQLite:  SQLiteConfig{Path: "data/compat.db"},
			Badger:  BadgerConfig{Path: "data/badger"},
			Memgraph: MemgraphConfig{
				URI: "bolt://localhost:7687",
			},
			GCS: GCSConfig{Prefix: "compat/"},
		},
		Shopify: ShopifyConfig{
			APIVersion:        "2023-10",
			PageSize:          250,
			RequestsPerSecond: 2,
			MaxRetries:        5,
			TimeoutSeconds:    30,
		},
		Ingestion: IngestionConfig{
			Delimiter:       ",",
			DuplicatePolicy: "last-write-wins",
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads a TOML file on top of Default, so a file only needs the keys it changes.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields Default. The boolean
// reports whether a file was read.
func LoadOrDefault(path string) (*Config, bool, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), false, nil
	}
	return nil, false, err
}

// ApplyEnv overrides file values with environment variables that are set.
func (c *Config) ApplyEnv() {
	setString(&c.Server.Port, "PORT")
	setString(&c.Storage.Backend, "STORAGE_BACKEND")
	if path := os.Getenv("STORAGE_PATH"); path != "" {
		c.Storage.SQLite.Path = path
		c.Storage.Badger.Path = path
	}
	setString(&c.Storage.Memgraph.URI, "MEMGRAPH_URI")
	setString(&c.Storage.Memgraph.User, "MEMGRAPH_USER")
	setString(&c.Storage.Memgraph.Password, "MEMGRAPH_PASSWORD")
	setString(&c.Storage.Postgres.DSN, "DATABASE_URL")
	setString(&c.Storage.GCS.Bucket, "GCS_BUCKET")
	setString(&c.Shopify.StoreDomain, "SHOPIFY_STORE_DOMAIN")
	setString(&c.Shopify.AccessToken, "SHOPIFY_ACCESS_TOKEN")
	setString(&c.Shopify.APIVersion, "SHOPIFY_API_VERSION")
	setString(&c.Log.Level, "LOG_LEVEL")
	if v := os.Getenv("MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Server.MaxUploadBytes = n
		}
	}
}

// Validate checks field constraints and the settings each storage backend needs.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	switch c.Storage.Backend {
	case "sqlite":
		if c.Storage.SQLite.Path == "" {
			return errors.New("invalid configuration: storage.sqlite.path is required")
		}
	case "badger":
		if c.Storage.Badger.Path == "" && !c.Storage.Badger.InMemory {
			return errors.New("invalid configuration: storage.badger.path is required unless in_memory is set")
		}
	case "memgraph":
		if c.Storage.Memgraph.URI == "" {
			return errors.New("invalid configuration: storage.memgraph.uri is required")
		}
	case "postgres":
		if c.Storage.Postgres.DSN == "" {
			return errors.New("invalid configuration: storage.postgres.dsn is required")
		}
	case "gcs":
		if c.Storage.GCS.Bucket == "" {
			return errors.New("invalid configuration: storage.gcs.bucket is required")
		}
	}

	return nil
}

// DelimiterRune returns the configured CSV delimiter.
func (c IngestionConfig) DelimiterRune() rune {
	r, _ := utf8.DecodeRuneInString(c.Delimiter)
	if r == utf8.RuneError {
		return ','
	}
	return r
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
