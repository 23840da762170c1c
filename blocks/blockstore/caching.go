package blockstore

import (
	"context"
	"errors"
)

// CacheOpts wraps options for CachedBlockStore().
// Next to each option is it aproximate memory usage per unit
type CacheOpts struct {
	HasSizeCacheSize int // 32 bytes
}

// DefaultCacheOpts returns a CacheOpts initialized with default values.
func DefaultCacheOpts() CacheOpts {
	return CacheOpts{
		HasSizeCacheSize: 64 << 10,
	}
}

// CachedBlockstore returns a blockstore wrapped in a size cache. A zero cache
// size returns bs unchanged.
func CachedBlockstore(
	ctx context.Context,
	bs Blockstore,
	opts CacheOpts) (cbs Blockstore, err error) {
	cbs = bs

	if opts.HasSizeCacheSize < 0 {
		return nil, errors.New("cache size needs to be greater or equal to zero")
	}

	if opts.HasSizeCacheSize > 0 {
		log.Debugw("enabling block size cache", "size", opts.HasSizeCacheSize)
		cbs, err = newSizeCachedBS(cbs, opts.HasSizeCacheSize)
	}
	return cbs, err
}
