package node

import (
	"context"
	"errors"

	"github.com/ipfs/pincore/config"
	"github.com/ipfs/pincore/exchange"
	"github.com/ipfs/pincore/repo"

	"go.uber.org/fx"
)

// BuildCfg configures the construction of a node.
type BuildCfg struct {
	// NilRepo builds the node over an in-memory repo. Repo must be nil.
	NilRepo bool

	// Repo holds the configuration and the datastore.
	Repo repo.Repo

	// Exchange fetches blocks the local store does not have. When nil the
	// node is offline and only serves local blocks.
	Exchange exchange.Interface
}

func (cfg *BuildCfg) fillDefaults() error {
	if cfg.Repo != nil && cfg.NilRepo {
		return errors.New("cannot set a Repo and specify nilrepo at the same time")
	}

	if cfg.Repo == nil {
		var err error
		cfg.Repo, err = defaultRepo()
		if err != nil {
			return err
		}
	}

	return nil
}

// options creates fx option group from this build config
func (cfg *BuildCfg) options(ctx context.Context) (fx.Option, *config.Config) {
	err := cfg.fillDefaults()
	if err != nil {
		return fx.Error(err), nil
	}

	repoOption := fx.Provide(func(lc fx.Lifecycle) repo.Repo {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return cfg.Repo.Close()
			},
		})

		return cfg.Repo
	})

	metricsCtx := fx.Provide(func() MetricsCtx {
		return MetricsCtx(ctx)
	})

	conf, err := cfg.Repo.Config()
	if err != nil {
		return fx.Error(err), nil
	}

	return fx.Options(
		repoOption,
		metricsCtx,
	), conf
}

func defaultRepo() (repo.Repo, error) {
	c, err := config.Init()
	if err != nil {
		return nil, err
	}
	if err := config.Profiles["test"].Transform(c); err != nil {
		return nil, err
	}
	return repo.NewMock(*c), nil
}
