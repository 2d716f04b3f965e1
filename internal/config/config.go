// Package config loads the doglog server configuration from defaults, an
// optional YAML file, and DOGLOG_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"doglog/internal/blob"
	"doglog/internal/docstore"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "DOGLOG_"

// Config is the complete server configuration.
type Config struct {
	HTTP     HTTPConfig    `yaml:"http"`
	Storage  StorageConfig `yaml:"storage"`
	Blob     blob.Config   `yaml:"blob"`
	Photos   PhotoConfig   `yaml:"photos"`
	Cache    CacheConfig   `yaml:"cache"`
	Auth     AuthConfig    `yaml:"auth"`
	Log      LogConfig     `yaml:"log"`
	Features Features      `yaml:"features"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	// RateLimit is the sustained requests per second allowed per user; 0 disables limiting.
	RateLimit float64 `yaml:"rateLimit"`
	RateBurst int     `yaml:"rateBurst"`
}

// StorageConfig selects the document store driver.
type StorageConfig struct {
	Driver      docstore.Driver `yaml:"driver"`
	SQLitePath  string          `yaml:"sqlitePath"`
	PostgresDSN string          `yaml:"postgresDsn"`
	Firestore   FirestoreConfig `yaml:"firestore"`
}

// FirestoreConfig identifies the Firestore database.
type FirestoreConfig struct {
	ProjectID       string `yaml:"projectId"`
	DatabaseID      string `yaml:"databaseId"`
	CredentialsFile string `yaml:"credentialsFile"`
}

// PhotoConfig limits pet photo uploads.
type PhotoConfig struct {
	MaxBytes  int64         `yaml:"maxBytes"`
	URLExpiry time.Duration `yaml:"urlExpiry"`
}

// Cache drivers.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// CacheConfig configures the pets list cache.
type CacheConfig struct {
	Driver        string        `yaml:"driver"`
	Size          int           `yaml:"size"`
	TTL           time.Duration `yaml:"ttl"`
	RedisAddr     string        `yaml:"redisAddr"`
	RedisPassword string        `yaml:"redisPassword"`
	RedisDB       int           `yaml:"redisDb"`
}

// Auth drivers.
const (
	AuthFirebase = "firebase"
	AuthHMAC     = "hmac"
)

// AuthConfig selects how bearer tokens are verified.
type AuthConfig struct {
	Driver          string `yaml:"driver"`
	ProjectID       string `yaml:"projectId"`
	CredentialsFile string `yaml:"credentialsFile"`
	HMACSecret      string `yaml:"hmacSecret"`
	Issuer          string `yaml:"issuer"`
}

// LogConfig configures the zap logger and the optional JSON trace file.
type LogConfig struct {
	Level     string `yaml:"level"`  // debug, info, warn, error
	Format    string `yaml:"format"` // json, console
	TracePath string `yaml:"tracePath"`
}

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimit:       10,
			RateBurst:       20,
		},
		Storage: StorageConfig{
			Driver:     docstore.DriverSQLite,
			SQLitePath: "doglog.db",
		},
		Blob: blob.Config{
			Driver: blob.DriverFilesystem,
			Root:   "./blobdata",
		},
		Photos: PhotoConfig{
			MaxBytes:  5 << 20,
			URLExpiry: blob.DefaultURLExpiry,
		},
		Cache: CacheConfig{
			Driver: CacheMemory,
			Size:   1024,
			TTL:    5 * time.Minute,
		},
		Auth: AuthConfig{
			Driver: AuthFirebase,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Features: DefaultFeatures(),
	}
}

// Load builds the configuration: defaults, then the YAML file at path when
// path is non-empty, then environment overrides. The result is validated.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := cfg.applyEnvOverrides(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type lookupFunc func(string) (string, bool)

type envBinding struct {
	name string
	set  func(string) error
}

func (c *Config) envBindings() []envBinding {
	return []envBinding{
		{"HTTP_ADDR", setString(&c.HTTP.Addr)},
		{"HTTP_READ_TIMEOUT", setDuration(&c.HTTP.ReadTimeout)},
		{"HTTP_WRITE_TIMEOUT", setDuration(&c.HTTP.WriteTimeout)},
		{"HTTP_SHUTDOWN_TIMEOUT", setDuration(&c.HTTP.ShutdownTimeout)},
		{"HTTP_RATE_LIMIT", setFloat(&c.HTTP.RateLimit)},
		{"HTTP_RATE_BURST", setInt(&c.HTTP.RateBurst)},
		{"STORAGE_DRIVER", func(v string) error { c.Storage.Driver = docstore.Driver(strings.ToLower(v)); return nil }},
		{"SQLITE_PATH", setString(&c.Storage.SQLitePath)},
		{"POSTGRES_DSN", setString(&c.Storage.PostgresDSN)},
		{"FIRESTORE_PROJECT_ID", setString(&c.Storage.Firestore.ProjectID)},
		{"FIRESTORE_DATABASE_ID", setString(&c.Storage.Firestore.DatabaseID)},
		{"FIRESTORE_CREDENTIALS_FILE", setString(&c.Storage.Firestore.CredentialsFile)},
		{"BLOB_DRIVER", func(v string) error { c.Blob.Driver = blob.Driver(strings.ToLower(v)); return nil }},
		{"BLOB_ROOT", setString(&c.Blob.Root)},
		{"BLOB_S3_BUCKET", setString(&c.Blob.S3.Bucket)},
		{"BLOB_S3_REGION", setString(&c.Blob.S3.Region)},
		{"BLOB_S3_ENDPOINT", setString(&c.Blob.S3.Endpoint)},
		{"BLOB_S3_PATH_STYLE", setBool(&c.Blob.S3.PathStyle)},
		{"BLOB_S3_ACCESS_KEY_ID", setString(&c.Blob.S3.AccessKeyID)},
		{"BLOB_S3_SECRET_ACCESS_KEY", setString(&c.Blob.S3.SecretAccessKey)},
		{"PHOTO_MAX_BYTES", setInt64(&c.Photos.MaxBytes)},
		{"PHOTO_URL_EXPIRY", setDuration(&c.Photos.URLExpiry)},
		{"CACHE_DRIVER", setString(&c.Cache.Driver)},
		{"CACHE_SIZE", setInt(&c.Cache.Size)},
		{"CACHE_TTL", setDuration(&c.Cache.TTL)},
		{"REDIS_ADDR", setString(&c.Cache.RedisAddr)},
		{"REDIS_PASSWORD", setString(&c.Cache.RedisPassword)},
		{"REDIS_DB", setInt(&c.Cache.RedisDB)},
		{"AUTH_DRIVER", setString(&c.Auth.Driver)},
		{"AUTH_PROJECT_ID", setString(&c.Auth.ProjectID)},
		{"AUTH_CREDENTIALS_FILE", setString(&c.Auth.CredentialsFile)},
		{"AUTH_HMAC_SECRET", setString(&c.Auth.HMACSecret)},
		{"AUTH_ISSUER", setString(&c.Auth.Issuer)},
		{"LOG_LEVEL", setString(&c.Log.Level)},
		{"LOG_FORMAT", setString(&c.Log.Format)},
		{"TRACE_PATH", setString(&c.Log.TracePath)},
		{"FEATURE_PET_LIST", setBool(&c.Features.PetListEnabled)},
		{"FEATURE_PET_EDITING", setBool(&c.Features.PetEditingEnabled)},
		{"FEATURE_VETS", setBool(&c.Features.VetsEnabled)},
		{"FEATURE_PET_PHOTOS", setBool(&c.Features.PetPhotosEnabled)},
	}
}

// applyEnvOverrides applies DOGLOG_* variables found through lookup.
func (c *Config) applyEnvOverrides(lookup lookupFunc) error {
	for _, b := range c.envBindings() {
		v, ok := lookup(EnvPrefix + b.name)
		if !ok {
			continue
		}
		if err := b.set(strings.TrimSpace(v)); err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, b.name, err)
		}
	}
	return nil
}

func setString(dst *string) func(string) error {
	return func(v string) error { *dst = v; return nil }
}

func setBool(dst *bool) func(string) error {
	return func(v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*dst = b
		return nil
	}
}

func setInt(dst *int) func(string) error {
	return func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*dst = n
		return nil
	}
}

func setInt64(dst *int64) func(string) error {
	return func(v string) error {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return err
		}
		*dst = n
		return nil
	}
}

func setFloat(dst *float64) func(string) error {
	return func(v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*dst = f
		return nil
	}
}

func setDuration(dst *time.Duration) func(string) error {
	return func(v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*dst = d
		return nil
	}
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []error
	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("http.addr is required"))
	}
	if c.HTTP.RateLimit < 0 {
		errs = append(errs, errors.New("http.rateLimit must not be negative"))
	}
	if c.HTTP.RateLimit > 0 && c.HTTP.RateBurst < 1 {
		errs = append(errs, errors.New("http.rateBurst must be at least 1 when rate limiting"))
	}
	switch c.Storage.Driver {
	case docstore.DriverMemory, docstore.DriverSQLite:
	case docstore.DriverPostgres:
		if c.Storage.PostgresDSN == "" {
			errs = append(errs, errors.New("storage.postgresDsn is required for the postgres driver"))
		}
	case docstore.DriverFirestore:
		if c.Storage.Firestore.ProjectID == "" {
			errs = append(errs, errors.New("storage.firestore.projectId is required for the firestore driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}
	switch c.Blob.Driver {
	case "", blob.DriverFilesystem, blob.DriverMemory:
	case blob.DriverS3:
		if c.Blob.S3.Bucket == "" {
			errs = append(errs, errors.New("blob.s3.bucket is required for the s3 driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown blob driver %q", c.Blob.Driver))
	}
	if c.Photos.MaxBytes <= 0 {
		errs = append(errs, errors.New("photos.maxBytes must be positive"))
	}
	switch c.Cache.Driver {
	case CacheNone:
	case CacheMemory:
		if c.Cache.Size <= 0 {
			errs = append(errs, errors.New("cache.size must be positive for the memory cache"))
		}
	case CacheRedis:
		if c.Cache.RedisAddr == "" {
			errs = append(errs, errors.New("cache.redisAddr is required for the redis cache"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown cache driver %q", c.Cache.Driver))
	}
	switch c.Auth.Driver {
	case AuthFirebase:
		if c.Auth.ProjectID == "" && c.Auth.CredentialsFile == "" {
			errs = append(errs, errors.New("auth.projectId or auth.credentialsFile is required for firebase auth"))
		}
	case AuthHMAC:
		if len(c.Auth.HMACSecret) < 16 {
			errs = append(errs, errors.New("auth.hmacSecret must be at least 16 bytes"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown auth driver %q", c.Auth.Driver))
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}
