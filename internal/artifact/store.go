// Package artifact stores synthesized audio and resolves references to it.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/speechcoach/coach/internal/config"
)

// ErrInvalidKey is returned for keys that are empty or contain path separators.
var ErrInvalidKey = errors.New("invalid artifact key")

// Store persists artifact bytes under a key and resolves the key to an
// externally reachable reference.
type Store interface {
	// Save writes data under key and returns its reference.
	Save(ctx context.Context, data []byte, key string) (string, error)
	// ResolveURL returns the reference of key without touching the backend.
	ResolveURL(key string) string
	// Delete removes the artifact stored under key.
	Delete(ctx context.Context, key string) error
}

// NewKey returns a fresh key for a synthesized reply.
func NewKey() string {
	return fmt.Sprintf("coach_tts_%s.wav", strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// ValidateKey rejects keys that could escape the store's namespace.
func ValidateKey(key string) error {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// New builds the store selected by cfg.StorageType.
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StorageType {
	case config.StorageLocal, "":
		return NewLocalStore(cfg.OutputDir, cfg.OutputBaseURL)
	case config.StorageS3:
		return NewS3Store(ctx, S3Options{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			PublicBaseURL:   cfg.S3PublicBaseURL,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretKey,
		})
	}
	return nil, fmt.Errorf("unknown storage type %q", cfg.StorageType)
}
