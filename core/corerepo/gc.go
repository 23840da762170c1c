/*
Package corerepo provides garbage collection policies and statistics for
the repo of a pincore node.

The node keeps every block it was given until a collection runs. A
collection keeps the pinned blocks and removes everything else; it runs on
demand, when storage crosses the configured watermark, or periodically.
*/
package corerepo

import (
	"context"
	"errors"
	"time"

	"github.com/ipfs/pincore/config"
	"github.com/ipfs/pincore/core"
	"github.com/ipfs/pincore/pin/gc"
	"github.com/ipfs/pincore/repo"

	humanize "github.com/dustin/go-humanize"
	cid "github.com/ipfs/go-cid"
	logging "github.com/ipfs/go-log/v2"
	"go.uber.org/multierr"
)

var log = logging.Logger("corerepo")

var ErrMaxStorageExceeded = errors.New("maximum storage limit exceeded. Maybe unpin some files?")

// GC holds the thresholds a conditional collection is measured against.
type GC struct {
	Node       *core.PincoreNode
	Repo       repo.Repo
	StorageMax uint64
	StorageGC  uint64
	BestEffort bool
}

// NewGC reads the collection thresholds from the node's config.
func NewGC(n *core.PincoreNode) (*GC, error) {
	r := n.Repo
	cfg, err := r.Config()
	if err != nil {
		return nil, err
	}

	storageMaxStr := cfg.Datastore.StorageMax
	if storageMaxStr == "" {
		storageMaxStr = config.DefaultStorageMax
	}
	watermark := cfg.Datastore.StorageGCWatermark
	if watermark == 0 {
		watermark = config.DefaultStorageGCWatermark
	}
	if watermark < 0 || watermark > 100 {
		return nil, errors.New("Datastore.StorageGCWatermark must be between 0 and 100")
	}

	storageMax, err := humanize.ParseBytes(storageMaxStr)
	if err != nil {
		return nil, err
	}
	storageGC := storageMax * uint64(watermark) / 100

	return &GC{
		Node:       n,
		Repo:       r,
		StorageMax: storageMax,
		StorageGC:  storageGC,
		BestEffort: cfg.GC.BestEffort.WithDefault(false),
	}, nil
}

// GarbageCollect runs a collection to completion.
func GarbageCollect(n *core.PincoreNode, ctx context.Context, bestEffort bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel() // in case error occurs during operation

	gcOutChan := gc.GC(ctx, n.Blockstore, gc.LocalLinks(n.Blockstore), n.Pinning, gc.Options{
		BestEffort: bestEffort,
	})
	return CollectResult(ctx, gcOutChan, nil)
}

// CollectResult collects the output of a garbage collection run and calls the
// given callback for each object removed. It also collects all errors and
// returns them combined once the gc is completed.
func CollectResult(ctx context.Context, gcOut <-chan gc.Result, cb func(cid.Cid)) error {
	var collected error
loop:
	for {
		select {
		case res, ok := <-gcOut:
			if !ok {
				break loop
			}
			if res.Error != nil {
				collected = multierr.Append(collected, res.Error)
			} else if res.KeyRemoved.Defined() && cb != nil {
				cb(res.KeyRemoved)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return collected
}

// PeriodicGC runs a conditional collection every Datastore.GCPeriod until
// ctx is done. A zero period disables it.
func PeriodicGC(ctx context.Context, node *core.PincoreNode) error {
	cfg, err := node.Repo.Config()
	if err != nil {
		return err
	}

	periodStr := cfg.Datastore.GCPeriod
	if periodStr == "" {
		periodStr = config.DefaultGCPeriod
	}

	period, err := time.ParseDuration(periodStr)
	if err != nil {
		return err
	}
	if int64(period) == 0 {
		// if duration is 0, it means GC is disabled.
		return nil
	}

	gc, err := NewGC(node)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			// maybeGC doesn't recompute the thresholds, so they are read
			// from the config only once
			if err := gc.maybeGC(ctx, 0); err != nil {
				log.Errorw("periodic gc failed", "error", err)
			}
		}
	}
}

// ConditionalGC collects when the repo size plus offset crosses the
// watermark.
func ConditionalGC(ctx context.Context, node *core.PincoreNode, offset uint64) error {
	gc, err := NewGC(node)
	if err != nil {
		return err
	}
	return gc.maybeGC(ctx, offset)
}

func (gc *GC) maybeGC(ctx context.Context, offset uint64) error {
	storage, err := gc.Repo.GetStorageUsage(ctx)
	if err != nil {
		return err
	}

	if storage+offset <= gc.StorageGC {
		return nil
	}
	if storage+offset > gc.StorageMax {
		log.Warnf("pre-GC: %s", ErrMaxStorageExceeded)
	}

	log.Infow("watermark exceeded, starting repo gc",
		"usage", humanize.Bytes(storage+offset),
		"watermark", humanize.Bytes(gc.StorageGC))

	if err := GarbageCollect(gc.Node, ctx, gc.BestEffort); err != nil {
		return err
	}
	log.Info("repo gc done, see 'pincore repo stat' to see how much space got freed")
	return nil
}
