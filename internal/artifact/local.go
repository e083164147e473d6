package artifact

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore keeps artifacts in a directory served by the HTTP server.
type LocalStore struct {
	dir     string
	baseURL string
}

// NewLocalStore creates dir if needed. References are baseURL/key.
func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	if baseURL == "" {
		baseURL = "/output"
	}
	return &LocalStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Dir returns the directory artifacts are written to.
func (s *LocalStore) Dir() string { return s.dir }

// BaseURL returns the prefix of every reference.
func (s *LocalStore) BaseURL() string { return s.baseURL }

func (s *LocalStore) Save(ctx context.Context, data []byte, key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	_, span := tracer.Start(ctx, "artifact.local.save")
	defer span.End()

	// Write then rename so readers never see a partial file.
	path := filepath.Join(s.dir, key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("rename artifact: %w", err)
	}
	return s.ResolveURL(key), nil
}

func (s *LocalStore) ResolveURL(key string) string {
	return s.baseURL + "/" + key
}

func (s *LocalStore) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.dir, key))
	if errors.Is(err, fs.ErrNotExist) {
		logger.WarnContext(ctx, "artifact already absent", "key", key)
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete artifact: %w", err)
	}
	return nil
}
