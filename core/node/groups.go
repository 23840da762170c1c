package node

import (
	"context"

	"github.com/ipfs/pincore/blocks/blockstore"
	"github.com/ipfs/pincore/config"
	"github.com/ipfs/pincore/exchange"

	"go.uber.org/fx"
)

// Storage groups units which setup datastore based persistence and blockstore layers
func Storage(bcfg *BuildCfg, cfg *config.Config) fx.Option {
	cacheOpts := blockstore.DefaultCacheOpts()
	cacheOpts.HasSizeCacheSize = int(cfg.Datastore.BlockKeyCacheSize.WithDefault(config.DefaultBlockKeyCacheSize))

	return fx.Options(
		fx.Provide(RepoConfig),
		fx.Provide(Datastore),
		fx.Provide(BaseBlockstoreCtor(cacheOpts, bcfg.NilRepo, cfg.Datastore.HashOnRead)),
		fx.Provide(GcBlockstoreCtor),
	)
}

// Networked provides the exchange: the configured one, or the offline
// exchange when none was given.
func Networked(bcfg *BuildCfg) fx.Option {
	online := func() exchange.Interface { return bcfg.Exchange }
	return fx.Options(
		maybeProvide(online, bcfg.Exchange != nil),
		maybeProvide(OfflineExchange, bcfg.Exchange == nil),
	)
}

// Core groups basic pincore services
var Core = fx.Options(
	fx.Provide(BlockServiceCtor),
	fx.Provide(DagCtor),
	fx.Provide(ResolverCtor),
	fx.Provide(StatterCtor),
	fx.Provide(Pinning),
)

// Pincore builds a group of fx Options based on the passed BuildCfg
func Pincore(ctx context.Context, bcfg *BuildCfg) fx.Option {
	if bcfg == nil {
		bcfg = new(BuildCfg)
	}

	bcfgOpts, cfg := bcfg.options(ctx)
	if cfg == nil {
		return bcfgOpts // error
	}

	return fx.Options(
		bcfgOpts,

		Storage(bcfg, cfg),
		Networked(bcfg),

		Core,
	)
}
