package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/tendant/simple-items/pkg/items"
)

// Env lists the environment variables read by WithEnv. Unset variables
// keep the value already configured.
type Env struct {
	Port        string `env:"ITEMS_PORT" env-description:"HTTP listen port"`
	Environment string `env:"ITEMS_ENVIRONMENT" env-description:"development, production or testing"`
	LogLevel    string `env:"ITEMS_LOG_LEVEL" env-description:"debug, info, warn or error"`
	LogFormat   string `env:"ITEMS_LOG_FORMAT" env-description:"text or json"`

	// DatabaseURL is "memory" or a postgres:// connection string
	DatabaseURL string `env:"ITEMS_DATABASE_URL"`
	DBSchema    string `env:"ITEMS_DB_SCHEMA"`
	AutoMigrate bool   `env:"ITEMS_AUTO_MIGRATE"`

	Languages      []string `env:"ITEMS_LANGUAGES" env-separator:","`
	CategoriesFile string   `env:"ITEMS_CATEGORIES_FILE" env-description:"JSON array of categories to seed"`

	SEOURL           bool     `env:"ITEMS_SEO_URL"`
	SEOURLWithID     bool     `env:"ITEMS_SEO_URL_WITH_ID"`
	AllowFutureItems bool     `env:"ITEMS_ALLOW_FUTURE_ITEMS"`
	AutoPendingItems bool     `env:"ITEMS_AUTO_PENDING_ITEMS"`
	PagesRootSlug    string   `env:"ITEMS_PAGES_ROOT_SLUG"`
	PerPage          int      `env:"ITEMS_PER_PAGE"`
	PaginationOrder  string   `env:"ITEMS_PAGINATION_ORDER"`
	MirrorEnabled    bool     `env:"ITEMS_MIRROR_ENABLED"`
	MirrorMax        int      `env:"ITEMS_MIRROR_MAX"`
	MirrorFields     []string `env:"ITEMS_MIRROR_FIELDS" env-separator:","`

	Notifier     string `env:"ITEMS_NOTIFIER" env-description:"none, log or redis"`
	RedisURL     string `env:"ITEMS_REDIS_URL"`
	RedisChannel string `env:"ITEMS_REDIS_CHANNEL"`

	// ReportStorageURL is memory://, file:///path or s3://bucket/prefix?region=...
	ReportStorageURL string `env:"ITEMS_REPORT_STORAGE_URL"`

	JWTSecret string `env:"ITEMS_JWT_SECRET"`
}

// WithEnv applies environment variable overrides.
func WithEnv() Option {
	return func(c *ServerConfig) error {
		env := envFrom(c)
		if err := cleanenv.ReadEnv(&env); err != nil {
			return fmt.Errorf("failed to read environment: %w", err)
		}
		return env.apply(c)
	}
}

func envFrom(c *ServerConfig) Env {
	return Env{
		Port:             c.Port,
		Environment:      c.Environment,
		LogLevel:         c.LogLevel,
		LogFormat:        c.LogFormat,
		DatabaseURL:      c.DatabaseURL,
		DBSchema:         c.DBSchema,
		AutoMigrate:      c.AutoMigrate,
		Languages:        c.Languages,
		SEOURL:           c.SEOURL,
		SEOURLWithID:     c.SEOURLWithID,
		AllowFutureItems: c.AllowFutureItems,
		AutoPendingItems: c.AutoPendingItems,
		PagesRootSlug:    c.PagesRootSlug,
		PerPage:          c.PerPage,
		PaginationOrder:  c.PaginationOrder,
		MirrorEnabled:    c.MirrorEnabled,
		MirrorMax:        c.MirrorMax,
		MirrorFields:     c.MirrorFields,
		Notifier:         c.NotifierType,
		RedisURL:         c.RedisURL,
		RedisChannel:     c.RedisChannel,
		JWTSecret:        c.JWTSecret,
	}
}

func (e Env) apply(c *ServerConfig) error {
	c.Port = e.Port
	c.Environment = e.Environment
	c.LogLevel = e.LogLevel
	c.LogFormat = e.LogFormat
	c.DBSchema = e.DBSchema
	c.AutoMigrate = e.AutoMigrate
	c.Languages = e.Languages
	c.SEOURL = e.SEOURL
	c.SEOURLWithID = e.SEOURLWithID
	c.AllowFutureItems = e.AllowFutureItems
	c.AutoPendingItems = e.AutoPendingItems
	c.PagesRootSlug = e.PagesRootSlug
	c.PerPage = e.PerPage
	c.PaginationOrder = e.PaginationOrder
	c.MirrorEnabled = e.MirrorEnabled
	c.MirrorMax = e.MirrorMax
	c.MirrorFields = e.MirrorFields
	c.NotifierType = e.Notifier
	c.RedisURL = e.RedisURL
	c.RedisChannel = e.RedisChannel
	c.JWTSecret = e.JWTSecret

	if err := applyDatabaseURL(e.DatabaseURL, c); err != nil {
		return err
	}
	if _, set := os.LookupEnv("ITEMS_NOTIFIER"); !set && e.RedisURL != "" {
		c.NotifierType = "redis"
	}
	if e.ReportStorageURL != "" {
		storage, err := parseReportStorageURL(e.ReportStorageURL)
		if err != nil {
			return err
		}
		c.ReportStorage = storage
	}
	if e.CategoriesFile != "" {
		categories, err := readCategories(e.CategoriesFile)
		if err != nil {
			return err
		}
		c.Categories = append(c.Categories, categories...)
	}
	return nil
}

// applyDatabaseURL selects the database type from the URL scheme
func applyDatabaseURL(dbURL string, c *ServerConfig) error {
	switch {
	case dbURL == "" || dbURL == "memory":
		c.DatabaseType = "memory"
		c.DatabaseURL = ""
	case strings.HasPrefix(dbURL, "postgresql://"), strings.HasPrefix(dbURL, "postgres://"):
		c.DatabaseType = "postgres"
		c.DatabaseURL = dbURL
	default:
		return fmt.Errorf("unsupported DATABASE_URL format: %s (use 'memory' or 'postgresql://...')", dbURL)
	}
	return nil
}

// parseReportStorageURL parses memory://, file:///path and s3://bucket/prefix URLs.
// S3 credentials fall back to the standard AWS variables.
func parseReportStorageURL(raw string) (ReportStorageConfig, error) {
	if raw == "memory" {
		return ReportStorageConfig{Type: "memory"}, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ReportStorageConfig{}, fmt.Errorf("invalid REPORT_STORAGE_URL: %w", err)
	}

	switch u.Scheme {
	case "memory":
		return ReportStorageConfig{Type: "memory"}, nil
	case "file":
		if u.Path == "" {
			return ReportStorageConfig{}, fmt.Errorf("filesystem path cannot be empty in REPORT_STORAGE_URL")
		}
		return ReportStorageConfig{
			Type:      "fs",
			BaseDir:   u.Path,
			URLPrefix: u.Query().Get("url_prefix"),
		}, nil
	case "s3":
		if u.Host == "" {
			return ReportStorageConfig{}, fmt.Errorf("S3 bucket name cannot be empty in REPORT_STORAGE_URL")
		}
		q := u.Query()
		storage := ReportStorageConfig{
			Type:            "s3",
			Bucket:          u.Host,
			Prefix:          strings.Trim(u.Path, "/"),
			Region:          firstNonEmpty(q.Get("region"), os.Getenv("AWS_REGION"), "us-east-1"),
			Endpoint:        q.Get("endpoint"),
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			UsePathStyle:    q.Get("path_style") == "true",
		}
		return storage, nil
	}
	return ReportStorageConfig{}, fmt.Errorf("unsupported REPORT_STORAGE_URL format: %s (use 'memory://', 'file://...', or 's3://...')", raw)
}

func readCategories(path string) ([]*items.Category, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read categories file: %w", err)
	}
	var categories []*items.Category
	if err := json.Unmarshal(data, &categories); err != nil {
		return nil, fmt.Errorf("failed to parse categories file %s: %w", path, err)
	}
	return categories, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Usage returns a description of the environment variables read by WithEnv.
func Usage() (string, error) {
	var env Env
	return cleanenv.GetDescription(&env, nil)
}
