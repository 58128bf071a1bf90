// Package local implements the local filesystem attachment backend. Intended
// for development and single-node deployments only; multiple instances would
// need a shared filesystem. Use a cloud backend for production.
package local

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/societyhub/societyhub/internal/config"
	"github.com/societyhub/societyhub/internal/storage"
)

func init() {
	storage.Register("local", func(cfg *config.Config) (storage.Store, error) {
		return New(&cfg.Storage.Local, cfg.Server.BaseURL)
	})
}

// Store implements storage.Store on the local filesystem. The declared
// content type is not persisted; it is re-derived from the filename when the
// file is served.
type Store struct {
	basePath string
	baseURL  string
}

// New creates a local filesystem attachment store rooted at cfg.BasePath.
func New(cfg *config.LocalStorageConfig, serverBaseURL string) (*Store, error) {
	if err := os.MkdirAll(cfg.BasePath, 0750); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &Store{basePath: cfg.BasePath, baseURL: serverBaseURL}, nil
}

func (s *Store) fullPath(key string) string {
	return filepath.Join(s.basePath, filepath.FromSlash(key))
}

// Put writes the attachment to disk, hashing while writing.
func (s *Store) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (*storage.Attachment, error) {
	fullPath := s.fullPath(key)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0750); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	hasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(file, hasher), reader)
	if err != nil {
		_ = os.Remove(fullPath)
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	return &storage.Attachment{
		Key:         key,
		Size:        written,
		ContentType: contentType,
		Checksum:    hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// Get opens the attachment for reading.
func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	file, err := os.Open(s.fullPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("attachment not found: %s", key)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// Delete removes the attachment and prunes empty parent directories.
func (s *Store) Delete(ctx context.Context, key string) error {
	fullPath := s.fullPath(key)
	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}

	dir := filepath.Dir(fullPath)
	for dir != s.basePath {
		if err := os.Remove(dir); err != nil {
			break // directory not empty, stop pruning
		}
		dir = filepath.Dir(dir)
	}
	return nil
}

// URL returns an API-served path; the TTL is ignored since local files are
// served behind the same authorization as the rest of the API.
func (s *Store) URL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	exists, err := s.Exists(ctx, key)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", fmt.Errorf("attachment not found: %s", key)
	}
	return fmt.Sprintf("%s/api/files/%s", s.baseURL, key), nil
}

// Exists reports whether the attachment is on disk.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(s.fullPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check file existence: %w", err)
	}
	return true, nil
}
