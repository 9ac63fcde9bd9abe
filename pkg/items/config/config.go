package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/tendant/simple-items/pkg/items"
	"github.com/tendant/simple-items/pkg/items/events"
	"github.com/tendant/simple-items/pkg/items/repo/memory"
	repopg "github.com/tendant/simple-items/pkg/items/repo/postgres"
	"github.com/tendant/simple-items/pkg/items/report"
	fsreport "github.com/tendant/simple-items/pkg/items/report/fs"
	memoryreport "github.com/tendant/simple-items/pkg/items/report/memory"
	s3report "github.com/tendant/simple-items/pkg/items/report/s3"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	settings := items.DefaultSettings()
	return ServerConfig{
		Port:            "8080",
		Environment:     "development",
		LogLevel:        "info",
		LogFormat:       "text",
		DatabaseType:    "memory",
		DBSchema:        "items",
		Languages:       []string{"en"},
		PagesRootSlug:   settings.PagesRootSlug,
		PerPage:         settings.PerPage,
		PaginationOrder: settings.PaginationOrder,
		MirrorEnabled:   true,
		MirrorMax:       settings.Mirror.Max,
		NotifierType:    "log",
		RedisChannel:    "items:events",
		ReportStorage:   ReportStorageConfig{Type: "memory"},
	}
}

// ServerConfig represents configuration for the items server
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing
	LogLevel    string
	LogFormat   string // text, json

	// Database configuration
	DatabaseURL  string
	DatabaseType string // "memory", "postgres"
	DBSchema     string // Postgres schema to use (default: items)
	AutoMigrate  bool

	// Content languages in order; the first is the default
	Languages  []string
	Categories []*items.Category

	// Item settings
	SEOURL           bool
	SEOURLWithID     bool
	AllowFutureItems bool
	AutoPendingItems bool
	PagesRootSlug    string
	PerPage          int
	PaginationOrder  string
	MirrorEnabled    bool
	MirrorMax        int
	MirrorFields     []string

	// Events
	NotifierType string // "none", "log", "redis"
	RedisURL     string
	RedisChannel string

	ReportStorage ReportStorageConfig

	// JWTSecret signs API bearer tokens; empty disables authentication
	JWTSecret string
}

// ReportStorageConfig selects where published exports are stored
type ReportStorageConfig struct {
	Type      string // "memory", "fs", "s3"
	BaseDir   string
	URLPrefix string

	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	if c.DatabaseType != "memory" && c.DatabaseType != "postgres" {
		return errors.New("database_type must be 'memory' or 'postgres'")
	}

	if c.DatabaseType == "postgres" && c.DatabaseURL == "" {
		return errors.New("database_url is required when using postgres")
	}

	if len(c.Languages) == 0 {
		return errors.New("at least one language is required")
	}

	if c.MirrorMax < 0 {
		return errors.New("mirror_max cannot be negative")
	}

	if _, err := items.ParseOrder(c.PaginationOrder); err != nil {
		return fmt.Errorf("invalid pagination_order: %w", err)
	}

	switch c.NotifierType {
	case "none", "log":
	case "redis":
		if c.RedisURL == "" {
			return errors.New("redis_url is required when using the redis notifier")
		}
	default:
		return fmt.Errorf("unsupported notifier type: %s", c.NotifierType)
	}

	switch c.ReportStorage.Type {
	case "memory":
	case "fs":
		if c.ReportStorage.BaseDir == "" {
			return errors.New("report storage base_dir is required for fs")
		}
	case "s3":
		if c.ReportStorage.Bucket == "" {
			return errors.New("report storage bucket is required for s3")
		}
	default:
		return fmt.Errorf("unsupported report storage type: %s", c.ReportStorage.Type)
	}

	return nil
}

// Settings returns the item settings described by the configuration
func (c *ServerConfig) Settings() items.Settings {
	return items.Settings{
		SEOURL:           c.SEOURL,
		SEOURLWithID:     c.SEOURLWithID,
		AllowFutureItems: c.AllowFutureItems,
		AutoPendingItems: c.AutoPendingItems,
		PagesRootSlug:    c.PagesRootSlug,
		PerPage:          c.PerPage,
		PaginationOrder:  c.PaginationOrder,
		Mirror: items.MirrorSettings{
			Enabled:      c.MirrorEnabled,
			Max:          c.MirrorMax,
			CustomFields: append([]string(nil), c.MirrorFields...),
		},
	}
}

// Localizer returns the configured languages, all active
func (c *ServerConfig) Localizer() *items.StaticLocalizer {
	languages := make([]items.Language, 0, len(c.Languages))
	for _, code := range c.Languages {
		languages = append(languages, items.Language{Code: code, Active: true})
	}
	return items.NewStaticLocalizer(languages...)
}

// Runtime holds the components built from a ServerConfig
type Runtime struct {
	Service    items.Service
	Categories items.CategoryStore
	Reports    report.Store
	URLs       *items.URLBuilder
	Settings   items.Settings

	closers []func()
}

// Close releases pools and clients
func (r *Runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
	r.closers = nil
}

// Build creates the service and its collaborators from the server configuration
func (c *ServerConfig) Build(ctx context.Context, logger *slog.Logger) (*Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}
	rt := &Runtime{Settings: c.Settings()}

	store, categories, err := c.buildRepository(ctx, rt)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to build repository: %w", err)
	}
	rt.Categories = categories

	notifier, err := c.buildNotifier(ctx, rt, logger)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to build notifier: %w", err)
	}

	rt.Reports, err = c.buildReportStore()
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to build report storage: %w", err)
	}

	rt.URLs = items.NewURLBuilder(categories, rt.Settings, nil)

	rt.Service, err = items.New(
		items.WithStore(store),
		items.WithCategoryStore(categories),
		items.WithLocalizer(c.Localizer()),
		items.WithSettings(rt.Settings),
		items.WithNotifier(notifier),
		items.WithAuditLogger(items.NewSlogAuditLogger(logger)),
		items.WithLogger(logger),
	)
	if err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

// BuildService creates a Service instance from the server configuration
func (c *ServerConfig) BuildService() (items.Service, error) {
	rt, err := c.Build(context.Background(), nil)
	if err != nil {
		return nil, err
	}
	return rt.Service, nil
}

// buildRepository creates the item and category stores based on the configuration
func (c *ServerConfig) buildRepository(ctx context.Context, rt *Runtime) (items.Store, items.CategoryStore, error) {
	switch c.DatabaseType {
	case "memory":
		return memory.New(), memory.NewCategoryStore(c.Categories...), nil
	case "postgres":
		pool, err := NewPool(ctx, c.DatabaseURL, c.DBSchema)
		if err != nil {
			return nil, nil, err
		}
		rt.closers = append(rt.closers, pool.Close)

		if c.AutoMigrate {
			if err := repopg.Migrate(ctx, pool, c.DBSchema); err != nil {
				return nil, nil, err
			}
		}
		categories := repopg.NewCategoryStore(pool)
		for _, category := range c.Categories {
			if err := categories.PutCategory(ctx, category); err != nil {
				return nil, nil, fmt.Errorf("failed to seed category %d: %w", category.ID, err)
			}
		}
		return repopg.NewWithPool(pool), categories, nil
	default:
		return nil, nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

// NewPool opens a pgx pool whose sessions use schema as search_path.
func NewPool(ctx context.Context, databaseURL, schema string) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, errors.New("database_url is required for postgres")
	}
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	if schema != "" {
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			_, err := conn.Exec(ctx, "SET search_path TO "+pgx.Identifier{schema}.Sanitize())
			return err
		}
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	return pool, nil
}

func (c *ServerConfig) buildNotifier(ctx context.Context, rt *Runtime, logger *slog.Logger) (items.Notifier, error) {
	switch c.NotifierType {
	case "none":
		return items.NewNoopNotifier(), nil
	case "log":
		return events.NewLoggingNotifier(logger, slog.LevelDebug), nil
	case "redis":
		opts, err := redis.ParseURL(c.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		rt.closers = append(rt.closers, func() { _ = client.Close() })

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping failed: %w", err)
		}
		return events.Fanout{
			events.NewLoggingNotifier(logger, slog.LevelDebug),
			events.NewRedisNotifier(client, c.RedisChannel, logger),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported notifier type: %s", c.NotifierType)
	}
}

// buildReportStore creates a report.Store based on the configuration
func (c *ServerConfig) buildReportStore() (report.Store, error) {
	rs := c.ReportStorage
	switch rs.Type {
	case "memory":
		return memoryreport.New(), nil
	case "fs":
		return fsreport.New(fsreport.Config{BaseDir: rs.BaseDir, URLPrefix: rs.URLPrefix})
	case "s3":
		return s3report.New(s3report.Config{
			Region:          rs.Region,
			Bucket:          rs.Bucket,
			Prefix:          rs.Prefix,
			AccessKeyID:     rs.AccessKeyID,
			SecretAccessKey: rs.SecretAccessKey,
			Endpoint:        rs.Endpoint,
			UsePathStyle:    rs.UsePathStyle,
		})
	default:
		return nil, fmt.Errorf("unsupported report storage type: %s", rs.Type)
	}
}
