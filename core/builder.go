package core

import (
	"context"
	"sync"

	"github.com/ipfs/pincore/core/node"

	"go.uber.org/fx"
)

type BuildCfg = node.BuildCfg // Alias for compatibility until we properly refactor the constructor interface

// NewNode constructs and returns a PincoreNode using the given cfg.
func NewNode(ctx context.Context, cfg *BuildCfg) (*PincoreNode, error) {
	// save this context as the "lifetime" ctx.
	lctx := ctx

	// derive a new context that ignores cancellations from the lifetime ctx.
	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	n := &PincoreNode{
		ctx: ctx,
	}

	app := fx.New(
		node.Pincore(ctx, cfg),

		fx.NopLogger,
		fx.Extract(n),
	)

	var once sync.Once
	var stopErr error
	n.stop = func() error {
		once.Do(func() {
			stopErr = app.Stop(context.Background())
			if stopErr != nil {
				log.Errorw("failure on stop", "error", stopErr)
			}
			// Cancel the context _after_ the app has stopped.
			cancel()
		})
		return stopErr
	}

	go func() {
		// Shut down the application if the lifetime context is canceled.
		select {
		case <-lctx.Done():
			err := n.stop()
			if err != nil {
				log.Errorw("failure on stop", "error", err)
			}
		case <-ctx.Done():
		}
	}()

	if app.Err() != nil {
		cancel()
		return nil, app.Err()
	}

	if err := app.Start(ctx); err != nil {
		n.stop()
		return nil, err
	}

	return n, nil
}
