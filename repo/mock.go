package repo

import (
	"context"
	"sync"

	"github.com/ipfs/pincore/config"

	ds "github.com/ipfs/go-datastore"
	dssync "github.com/ipfs/go-datastore/sync"
)

var _ Repo = (*Mock)(nil)

// Mock is an in-memory Repo.
type Mock struct {
	C config.Config
	D Datastore

	mu     sync.Mutex
	closed bool
}

// NewMock returns a Mock over a fresh thread-safe map datastore.
func NewMock(c config.Config) *Mock {
	return &Mock{
		C: c,
		D: dssync.MutexWrap(ds.NewMapDatastore()),
	}
}

func (m *Mock) Config() (*config.Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	c := m.C
	return &c, nil
}

func (m *Mock) SetConfig(updated *config.Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.C = *updated
	return nil
}

func (m *Mock) Datastore() Datastore { return m.D }

func (m *Mock) GetStorageUsage(ctx context.Context) (uint64, error) {
	return ds.DiskUsage(ctx, m.D)
}

func (m *Mock) Path() string { return "" }

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	return m.D.Close()
}
