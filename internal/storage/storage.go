// Package storage defines the Store interface for form-attachment storage
// and common types shared by all backends.
//
// New backends are added by implementing the Store interface and registering
// with the factory via an init() function in the backend's own package:
//
//	func init() {
//	    storage.Register("mybackend", func(cfg *config.Config) (Store, error) {
//	        return NewMyBackend(cfg)
//	    })
//	}
//
// The main package imports each backend with a blank import to trigger init(),
// so adding a backend requires no changes to the factory or main package.
package storage

import (
	"context"
	"io"
	"time"
)

// Store is the interface all attachment backends implement. Keys are
// slash-separated paths of the form societies/<id>/requests/<id>/<filename>;
// backends treat them as opaque.
type Store interface {
	// Put stores an attachment and returns its descriptor. The declared
	// contentType is persisted with the object where the backend supports it.
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (*Attachment, error)

	// Get retrieves an attachment body. The caller closes the reader.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes an attachment. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// URL returns a download URL for the attachment. Cloud backends return
	// a signed URL valid for the given TTL; the local backend returns an
	// API-served path.
	URL(ctx context.Context, key string, ttl time.Duration) (string, error)

	// Exists reports whether an attachment is present at the key.
	Exists(ctx context.Context, key string) (bool, error)
}

// Attachment describes a stored file.
type Attachment struct {
	// Key is the storage key the file was stored under.
	Key string

	// Size is the file size in bytes.
	Size int64

	// ContentType is the declared MIME type.
	ContentType string

	// Checksum is the SHA-256 hash of the file contents, hex encoded.
	Checksum string
}
