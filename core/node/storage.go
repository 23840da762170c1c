package node

import (
	"github.com/ipfs/pincore/blocks/blockstore"
	"github.com/ipfs/pincore/config"
	"github.com/ipfs/pincore/repo"

	"github.com/ipfs/go-datastore"
	"go.uber.org/fx"
)

// RepoConfig loads configuration from the repo
func RepoConfig(repo repo.Repo) (*config.Config, error) {
	return repo.Config()
}

// Datastore provides the datastore
func Datastore(repo repo.Repo) datastore.Batching {
	return repo.Datastore()
}

// BaseBlocks is the lower level blockstore without GC layers
type BaseBlocks blockstore.Blockstore

// BaseBlockstoreCtor creates cached blockstore backed by the provided datastore
func BaseBlockstoreCtor(cacheOpts blockstore.CacheOpts, nilRepo bool, hashOnRead bool) func(mctx MetricsCtx, repo repo.Repo, lc fx.Lifecycle) (bs BaseBlocks, err error) {
	return func(mctx MetricsCtx, repo repo.Repo, lc fx.Lifecycle) (bs BaseBlocks, err error) {
		bs = blockstore.NewBlockstore(repo.Datastore())

		if !nilRepo {
			bs, err = blockstore.CachedBlockstore(lifecycleCtx(mctx, lc), bs, cacheOpts)
			if err != nil {
				return nil, err
			}
		}

		bs.HashOnRead(hashOnRead)
		return
	}
}

// GcBlockstoreCtor wraps the base blockstore with GC layers
func GcBlockstoreCtor(bb BaseBlocks) (gclocker blockstore.GCLocker, gcbs blockstore.GCBlockstore, bs blockstore.Blockstore) {
	gclocker = blockstore.NewGCLocker()
	gcbs = blockstore.NewGCBlockstore(bb, gclocker)

	bs = gcbs
	return
}
