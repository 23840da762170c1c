package node

import (
	"context"

	"github.com/ipfs/pincore/blocks/blockstore"
	"github.com/ipfs/pincore/blockservice"
	"github.com/ipfs/pincore/config"
	"github.com/ipfs/pincore/exchange"
	"github.com/ipfs/pincore/exchange/offline"
	"github.com/ipfs/pincore/merkledag"
	"github.com/ipfs/pincore/object"
	"github.com/ipfs/pincore/path"
	"github.com/ipfs/pincore/pin"
	"github.com/ipfs/pincore/repo"

	format "github.com/ipfs/go-ipld-format"
	"go.uber.org/fx"
)

// BlockServiceCtor constructs the block service and closes it, along with
// its exchange, when the node stops.
func BlockServiceCtor(lc fx.Lifecycle, bs blockstore.GCBlockstore, rem exchange.Interface) blockservice.BlockService {
	bsvc := blockservice.New(bs, rem)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return bsvc.Close()
		},
	})

	return bsvc
}

// OfflineExchange serves blocks from the local store only.
func OfflineExchange(bs blockstore.GCBlockstore) exchange.Interface {
	return offline.Exchange(bs)
}

func DagCtor(bs blockservice.BlockService) format.DAGService {
	return merkledag.NewDAGService(bs)
}

// ResolverCtor applies the configured per-fetch timeout.
func ResolverCtor(cfg *config.Config, dag format.DAGService) *path.Resolver {
	r := path.NewBasicResolver(dag)
	r.FetchTimeout = cfg.Resolver.FetchTimeout.WithDefault(config.DefaultFetchTimeout)
	return r
}

func StatterCtor(dag format.DAGService, r *path.Resolver) *object.Statter {
	return object.NewStatter(dag, r)
}

// Pinning loads the pin set from the repo datastore.
func Pinning(mctx MetricsCtx, lc fx.Lifecycle, cfg *config.Config, repo repo.Repo, dag format.DAGService) (*pin.Pinner, error) {
	concurrency := cfg.Pinning.WalkConcurrency.WithDefault(config.DefaultWalkConcurrency)
	return pin.New(lifecycleCtx(mctx, lc), repo.Datastore(), dag, pin.WalkConcurrency(int(concurrency)))
}
