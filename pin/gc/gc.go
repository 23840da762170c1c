// Package gc computes the set of live blocks and removes everything else
// from the blockstore.
package gc

import (
	"context"
	"errors"
	"fmt"

	bstore "github.com/ipfs/pincore/blocks/blockstore"
	bserv "github.com/ipfs/pincore/blockservice"
	"github.com/ipfs/pincore/errs"
	"github.com/ipfs/pincore/exchange/offline"
	dag "github.com/ipfs/pincore/merkledag"
	"github.com/ipfs/pincore/metrics"
	"github.com/ipfs/pincore/tracing"

	"github.com/google/uuid"
	cid "github.com/ipfs/go-cid"
	ipld "github.com/ipfs/go-ipld-format"
	logging "github.com/ipfs/go-log/v2"
	"go.uber.org/multierr"
)

var log = logging.Logger("gc")

// Result represents an incremental output from a garbage collection
// run.  It contains either an error, or the cid of a removed object.
type Result struct {
	KeyRemoved cid.Cid
	Error      error
}

// Pinner is the part of the pin set the collector reads.
type Pinner interface {
	DirectKeys(ctx context.Context) ([]cid.Cid, error)
	RecursiveKeys(ctx context.Context) ([]cid.Cid, error)
}

// Options tune the live set enumeration.
type Options struct {
	// BestEffort skips, and reports, references that cannot be fetched
	// instead of aborting.
	BestEffort bool

	// BestEffortRoots are walked like recursive pins, but a missing node
	// below them is always skipped.
	BestEffortRoots []cid.Cid

	// Concurrency bounds parallel fetches. Zero means
	// merkledag.DefaultConcurrentFetch.
	Concurrency int
}

// LocalLinks reads links from bs alone. A collection must never reach for
// blocks the node does not hold, nor write any.
func LocalLinks(bs bstore.Blockstore) dag.GetLinks {
	ds := dag.NewReadOnlyDagService(dag.NewDAGService(bserv.New(bs, offline.Exchange(bs))))
	return dag.GetLinksDirect(ds)
}

// LiveSet is the set of cids the collector must keep.
type LiveSet struct {
	*cid.Set

	// Skipped joins, with multierr, every reference a best-effort
	// enumeration could not follow. It is nil when nothing was skipped.
	Skipped error
}

// EnumerateLiveSet returns every directly pinned cid, every recursively
// pinned cid and everything reachable from a recursive pin. Each cid is
// walked at most once.
//
// In strict mode the first reference that cannot be fetched aborts the
// enumeration with an *errs.UnresolvableError.
func EnumerateLiveSet(ctx context.Context, getLinks dag.GetLinks, pn Pinner, opts Options) (*LiveSet, error) {
	ctx, span := tracing.Span(ctx, "GC", "EnumerateLiveSet")
	defer span.End()

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = dag.DefaultConcurrentFetch
	}

	live := &LiveSet{Set: cid.NewSet()}

	strictLinks := func(ctx context.Context, c cid.Cid) ([]*ipld.Link, error) {
		links, err := getLinks(ctx, c)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			return nil, &errs.UnresolvableError{Cid: c, Err: err}
		}
		return links, nil
	}
	skip := func(c cid.Cid, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		log.Warnw("skipping unresolvable reference", "cid", c, "error", err)
		live.Skipped = multierr.Append(live.Skipped, err)
		return nil
	}

	walk := func(root cid.Cid, bestEffort bool) error {
		wopts := []dag.WalkOption{dag.Concurrency(concurrency)}
		if bestEffort {
			wopts = append(wopts, dag.OnError(skip))
		}
		return dag.Walk(ctx, strictLinks, root, live.Visit, wopts...)
	}

	rkeys, err := pn.RecursiveKeys(ctx)
	if err != nil {
		return nil, err
	}
	for _, k := range rkeys {
		if err := walk(k, opts.BestEffort); err != nil {
			return nil, err
		}
	}

	for _, k := range opts.BestEffortRoots {
		if err := walk(k, true); err != nil {
			return nil, err
		}
	}

	dkeys, err := pn.DirectKeys(ctx)
	if err != nil {
		return nil, err
	}
	for _, k := range dkeys {
		live.Add(k)
	}

	return live, nil
}

// GC performs a mark and sweep garbage collection of the blocks in the blockstore
// first, it creates a 'marked' set and adds to it the following:
//   - all recursively pinned blocks, plus all of their descendants (recursively)
//   - bestEffortRoots, plus all of its descendants (recursively)
//   - all directly pinned blocks
//
// The routine then iterates over every block in the blockstore and
// deletes any block that is not found in the marked set.
//
// GCLock is held for the whole run, so no pin can change meanwhile. The
// sweep additionally holds SweepLock, which keeps readers out only while
// blocks are being deleted.
func GC(ctx context.Context, bs bstore.GCBlockstore, getLinks dag.GetLinks, pn Pinner, opts Options) <-chan Result {
	ctx, cancel := context.WithCancel(ctx)

	output := make(chan Result, 128)

	go func() {
		defer cancel()
		defer close(output)

		runID := uuid.New().String()
		llog := log.With("run", runID)

		ctx, span := tracing.Span(ctx, "GC", "GC")
		defer span.End()

		unlocker := bs.GCLock(ctx)
		defer unlocker.Unlock(ctx)
		llog.Infow("gc started", "bestEffort", opts.BestEffort)

		outcome := "error"
		defer func() { metrics.GCRuns.WithLabelValues(outcome).Inc() }()

		live, err := EnumerateLiveSet(ctx, getLinks, pn, opts)
		if err != nil {
			llog.Errorw("gc aborted while marking", "error", err)
			select {
			case output <- Result{Error: err}:
			case <-ctx.Done():
				return
			}
			if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				select {
				case output <- Result{Error: ErrCannotFetchAllLinks}:
				case <-ctx.Done():
				}
			}
			return
		}
		if live.Skipped != nil {
			llog.Warnw("gc skipped unresolvable references", "count", len(multierr.Errors(live.Skipped)))
		}

		keychan, err := bs.AllKeysChan(ctx)
		if err != nil {
			select {
			case output <- Result{Error: err}:
			case <-ctx.Done():
			}
			return
		}

		sweeper := bs.SweepLock(ctx)
		defer sweeper.Unlock(ctx)

		var removed, kept int
		deleteFailed := false
	loop:
		for {
			select {
			case k, ok := <-keychan:
				if !ok {
					break loop
				}
				if live.Has(k) {
					kept++
					continue
				}
				if err := bs.DeleteBlock(ctx, k); err != nil {
					deleteFailed = true
					select {
					case output <- Result{Error: &CannotDeleteBlockError{k, err}}:
					case <-ctx.Done():
						break loop
					}
					continue
				}
				removed++
				metrics.GCRemoved.Inc()
				select {
				case output <- Result{KeyRemoved: k}:
				case <-ctx.Done():
					break loop
				}
			case <-ctx.Done():
				break loop
			}
		}

		llog.Infow("gc finished", "removed", removed, "kept", kept, "live", live.Len())

		if deleteFailed {
			select {
			case output <- Result{Error: ErrCannotDeleteSomeBlocks}:
			case <-ctx.Done():
			}
			return
		}
		if err := ctx.Err(); err != nil {
			select {
			case output <- Result{Error: err}:
			default:
			}
			return
		}
		outcome = "ok"
	}()

	return output
}

// ErrCannotFetchAllLinks is returned as the last Result in the GC output
// channel when there was an error creating the marked set because of a
// problem when finding descendants.
var ErrCannotFetchAllLinks = errors.New("garbage collection aborted: could not retrieve some links")

// ErrCannotDeleteSomeBlocks is returned when removing blocks marked for
// deletion fails as the last Result in GC output channel.
var ErrCannotDeleteSomeBlocks = errors.New("garbage collection incomplete: could not delete some blocks")

// CannotDeleteBlockError provides detailed information about
// GC failures to delete a block.
type CannotDeleteBlockError struct {
	Key cid.Cid
	Err error
}

func (e *CannotDeleteBlockError) Error() string {
	return fmt.Sprintf("could not remove %s: %s", e.Key, e.Err)
}

func (e *CannotDeleteBlockError) Unwrap() error {
	return e.Err
}
