package config

import (
	"fmt"
	"strings"

	"github.com/tendant/simple-items/pkg/items"
)

// WithPort sets the server port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		if port == "" {
			return fmt.Errorf("port cannot be empty")
		}
		c.Port = port
		return nil
	}
}

// WithEnvironment sets the environment (development, production, testing)
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		if env == "" {
			return fmt.Errorf("environment cannot be empty")
		}
		c.Environment = env
		return nil
	}
}

// WithLogging sets the log level and format
func WithLogging(level, format string) Option {
	return func(c *ServerConfig) error {
		if format != "text" && format != "json" {
			return fmt.Errorf("log format must be 'text' or 'json', got: %s", format)
		}
		c.LogLevel = level
		c.LogFormat = format
		return nil
	}
}

// WithDatabase configures the database backend
func WithDatabase(dbType, url string) Option {
	return func(c *ServerConfig) error {
		if dbType != "memory" && dbType != "postgres" {
			return fmt.Errorf("database type must be 'memory' or 'postgres', got: %s", dbType)
		}
		if dbType == "postgres" && url == "" {
			return fmt.Errorf("database URL is required for postgres")
		}
		c.DatabaseType = dbType
		c.DatabaseURL = url
		return nil
	}
}

// WithDatabaseSchema sets the database schema (for Postgres)
func WithDatabaseSchema(schema string) Option {
	return func(c *ServerConfig) error {
		c.DBSchema = schema
		return nil
	}
}

// WithAutoMigrate applies the schema when the service is built
func WithAutoMigrate(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.AutoMigrate = enabled
		return nil
	}
}

// WithLanguages sets the content languages; the first is the default
func WithLanguages(codes ...string) Option {
	return func(c *ServerConfig) error {
		var cleaned []string
		for _, code := range codes {
			if code = strings.TrimSpace(code); code != "" {
				cleaned = append(cleaned, code)
			}
		}
		if len(cleaned) == 0 {
			return fmt.Errorf("at least one language is required")
		}
		c.Languages = cleaned
		return nil
	}
}

// WithCategories seeds the category store
func WithCategories(categories ...*items.Category) Option {
	return func(c *ServerConfig) error {
		for _, category := range categories {
			if category == nil || category.ID <= 0 {
				return fmt.Errorf("category id must be positive")
			}
		}
		c.Categories = append(c.Categories, categories...)
		return nil
	}
}

// WithMirror configures second category mirrors
func WithMirror(enabled bool, max int, customFields ...string) Option {
	return func(c *ServerConfig) error {
		if max < 0 {
			return fmt.Errorf("mirror max cannot be negative")
		}
		c.MirrorEnabled = enabled
		c.MirrorMax = max
		c.MirrorFields = customFields
		return nil
	}
}

// WithSEOURL configures slug based item URLs
func WithSEOURL(enabled, withID bool) Option {
	return func(c *ServerConfig) error {
		c.SEOURL = enabled
		c.SEOURLWithID = withID
		return nil
	}
}

// WithAllowFutureItems treats scheduled items as active
func WithAllowFutureItems(allow bool) Option {
	return func(c *ServerConfig) error {
		c.AllowFutureItems = allow
		return nil
	}
}

// WithAutoPending routes status changes through category grants
func WithAutoPending(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.AutoPendingItems = enabled
		return nil
	}
}

// WithPerPage sets the default page size
func WithPerPage(perPage int) Option {
	return func(c *ServerConfig) error {
		if perPage <= 0 {
			return fmt.Errorf("per page must be positive, got: %d", perPage)
		}
		c.PerPage = perPage
		return nil
	}
}

// WithPaginationOrder sets the default listing order, e.g. "priority ASC, created_at DESC"
func WithPaginationOrder(order string) Option {
	return func(c *ServerConfig) error {
		if _, err := items.ParseOrder(order); err != nil {
			return err
		}
		c.PaginationOrder = order
		return nil
	}
}

// WithNotifier selects the event notifier ("none", "log")
func WithNotifier(notifierType string) Option {
	return func(c *ServerConfig) error {
		c.NotifierType = notifierType
		return nil
	}
}

// WithRedis publishes events on a Redis channel
func WithRedis(url, channel string) Option {
	return func(c *ServerConfig) error {
		if url == "" {
			return fmt.Errorf("redis URL cannot be empty")
		}
		c.NotifierType = "redis"
		c.RedisURL = url
		if channel != "" {
			c.RedisChannel = channel
		}
		return nil
	}
}

// WithReportStorage sets where published exports are stored
func WithReportStorage(storage ReportStorageConfig) Option {
	return func(c *ServerConfig) error {
		if storage.Type == "" {
			return fmt.Errorf("report storage type cannot be empty")
		}
		c.ReportStorage = storage
		return nil
	}
}

// WithJWTSecret enables bearer token authentication on the API
func WithJWTSecret(secret string) Option {
	return func(c *ServerConfig) error {
		c.JWTSecret = secret
		return nil
	}
}
