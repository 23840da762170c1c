package coreapi

import (
	"context"

	caopts "github.com/ipfs/pincore/core/coreapi/options"
	"github.com/ipfs/pincore/pin/gc"
)

type RepoAPI CoreAPI

// LiveSet enumerates every cid garbage collection would keep. With the
// BestEffort option, references that cannot be fetched are skipped and
// reported through LiveSet.Skipped.
//
// The enumeration holds the GC lock, so it waits for pin mutations in
// flight and none start until it returns.
func (api *RepoAPI) LiveSet(ctx context.Context, opts ...caopts.RepoGCOption) (*gc.LiveSet, error) {
	settings, err := caopts.RepoGCOptions(opts...)
	if err != nil {
		return nil, err
	}

	defer api.blockstore.GCLock(ctx).Unlock(ctx)

	return gc.EnumerateLiveSet(ctx, gc.LocalLinks(api.blockstore), api.pinning, gc.Options{
		BestEffort: settings.BestEffort,
	})
}

// GC starts a garbage collection pass and streams its results. The channel
// is closed when the pass ends; a failed pass ends with an error Result.
func (api *RepoAPI) GC(ctx context.Context, opts ...caopts.RepoGCOption) (<-chan gc.Result, error) {
	settings, err := caopts.RepoGCOptions(opts...)
	if err != nil {
		return nil, err
	}

	return gc.GC(ctx, api.blockstore, gc.LocalLinks(api.blockstore), api.pinning, gc.Options{
		BestEffort: settings.BestEffort,
	}), nil
}
