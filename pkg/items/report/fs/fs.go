package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tendant/simple-items/pkg/items/report"
)

// Config options for the filesystem report store
type Config struct {
	BaseDir   string // Base directory for storing reports
	URLPrefix string // Optional URL prefix for download URLs
}

// Store is a filesystem implementation of report.Store
type Store struct {
	baseDir   string
	urlPrefix string
}

// New creates a new filesystem report store
func New(config Config) (*Store, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}

	if err := os.MkdirAll(config.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &Store{
		baseDir:   config.BaseDir,
		urlPrefix: strings.TrimSuffix(config.URLPrefix, "/"),
	}, nil
}

func (s *Store) path(key string) (string, error) {
	p := filepath.Join(s.baseDir, filepath.FromSlash(key))
	if !strings.HasPrefix(p, filepath.Clean(s.baseDir)+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid report key %q", key)
	}
	return p, nil
}

func (s *Store) Put(ctx context.Context, key, contentType string, reader io.Reader) error {
	filePath, err := s.path(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, reader); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	filePath, err := s.path(key)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filePath)
	if os.IsNotExist(err) {
		return nil, report.ErrReportNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// URL returns the prefixed download URL, or a file:// URL without a prefix.
func (s *Store) URL(ctx context.Context, key string) (string, error) {
	filePath, err := s.path(key)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return "", report.ErrReportNotFound
	}

	if s.urlPrefix == "" {
		return "file://" + filepath.ToSlash(filePath), nil
	}
	return fmt.Sprintf("%s/%s", s.urlPrefix, key), nil
}
