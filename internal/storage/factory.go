// factory.go implements the attachment backend registry and factory, mapping
// backend type strings (local, s3, azure, gcs) to constructor functions.
package storage

import (
	"fmt"

	"github.com/societyhub/societyhub/internal/config"
)

// FactoryFunc constructs a Store from application configuration.
type FactoryFunc func(*config.Config) (Store, error)

var factories = make(map[string]FactoryFunc)

// Register registers a storage backend factory
func Register(name string, factory FactoryFunc) {
	factories[name] = factory
}

// NewStore creates the attachment store named by storage.default_backend.
func NewStore(cfg *config.Config) (Store, error) {
	factory, ok := factories[cfg.Storage.DefaultBackend]
	if !ok {
		return nil, fmt.Errorf("unsupported storage backend: %s (must be 'local', 'azure', 's3', or 'gcs')", cfg.Storage.DefaultBackend)
	}
	return factory(cfg)
}
