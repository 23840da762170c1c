package repo

import (
	"context"
	"errors"
	"io"

	config "github.com/ipfs/pincore/config"

	ds "github.com/ipfs/go-datastore"
)

// ErrClosed is returned by a repo after Close.
var ErrClosed = errors.New("repo is closed")

// Repo is the on-disk (or in-memory) state of a node: its configuration
// and the datastore holding blocks and the pin set.
type Repo interface {
	// Config returns the current configuration. The returned value must
	// not be modified; use SetConfig.
	Config() (*config.Config, error)

	// SetConfig persists the updated configuration.
	SetConfig(*config.Config) error

	// Datastore returns a reference to the configured data storage backend.
	Datastore() Datastore

	// GetStorageUsage returns the number of bytes stored.
	GetStorageUsage(context.Context) (uint64, error)

	// Path is the repo root, or empty for repos that live in memory.
	Path() string

	io.Closer
}

// Datastore is the interface required from a datastore to be
// acceptable to FSRepo.
type Datastore interface {
	ds.Batching // must be thread-safe
}
