// Package blockstoreutil removes blocks from a blockstore while keeping the
// pinned ones.
package blockstoreutil

import (
	"context"
	"errors"
	"fmt"
	"io"

	bs "github.com/ipfs/pincore/blocks/blockstore"
	"github.com/ipfs/pincore/pin"

	cid "github.com/ipfs/go-cid"
	ipld "github.com/ipfs/go-ipld-format"
)

// ErrPinned is matched by the error of a block that was kept because a
// pin reaches it.
var ErrPinned = errors.New("pinned")

// RemovedBlock is used to represent the result of removing a block. If a
// block was removed successfully, then the Error will be nil. If Cid is
// undefined the whole removal was aborted.
type RemovedBlock struct {
	Cid   cid.Cid
	Error error
}

// RmBlocksOpts is used to wrap options for RmBlocks().
type RmBlocksOpts struct {
	Quiet bool
	Force bool
}

// PinChecker classifies cids against a pin set.
type PinChecker interface {
	CheckIfPinned(ctx context.Context, cids ...cid.Cid) ([]pin.Listing, error)
}

// RmBlocks removes the blocks provided in the cids slice. The whole
// removal holds the GC lock, so no pin can land on a block between the
// check and the delete. It returns a channel where objects of type
// RemovedBlock are placed, when not using the Quiet option. Block removal
// is asynchronous and will skip any pinned blocks.
func RmBlocks(ctx context.Context, blocks bs.GCBlockstore, pins PinChecker, cids []cid.Cid, opts RmBlocksOpts) (<-chan RemovedBlock, error) {
	// make the channel large enough to hold any result to avoid
	// blocking while holding the GCLock
	out := make(chan RemovedBlock, len(cids))
	go func() {
		defer close(out)

		unlocker := blocks.GCLock(ctx)
		defer unlocker.Unlock(ctx)

		stillOkay, err := FilterPinned(ctx, pins, out, cids)
		if err != nil {
			out <- RemovedBlock{Error: fmt.Errorf("pin check failed: %w", err)}
			return
		}

		sweep := blocks.SweepLock(ctx)
		defer sweep.Unlock(ctx)

		for _, c := range stillOkay {
			has, err := blocks.Has(ctx, c)
			if err == nil && !has {
				if opts.Force {
					continue
				}
				err = ipld.ErrNotFound{Cid: c}
			}
			if err == nil {
				err = blocks.DeleteBlock(ctx, c)
				if opts.Force && ipld.IsNotFound(err) {
					err = nil
				}
			}

			if err != nil {
				out <- RemovedBlock{Cid: c, Error: err}
			} else if !opts.Quiet {
				out <- RemovedBlock{Cid: c}
			}
		}
	}()
	return out, nil
}

// FilterPinned takes a slice of Cids and returns it with the pinned Cids
// removed. If a Cid is pinned, it will place RemovedBlock objects in the
// given out channel, with an error which indicates that the Cid is pinned.
// This function is used in RmBlocks to filter out any blocks which are not
// to be removed (because they are pinned).
func FilterPinned(ctx context.Context, pins PinChecker, out chan<- RemovedBlock, cids []cid.Cid) ([]cid.Cid, error) {
	stillOkay := make([]cid.Cid, 0, len(cids))
	res, err := pins.CheckIfPinned(ctx, cids...)
	if err != nil {
		return nil, err
	}
	for _, r := range res {
		if !r.Pinned() {
			stillOkay = append(stillOkay, r.Cid)
		} else {
			out <- RemovedBlock{
				Cid:   r.Cid,
				Error: fmt.Errorf("%w: %s", ErrPinned, r.Classification()),
			}
		}
	}
	return stillOkay, nil
}

// ProcRmOutput reads the output of RmBlocks, writing removed blocks to
// sout and failures to serr. format renders a cid for output.
func ProcRmOutput(in <-chan RemovedBlock, sout io.Writer, serr io.Writer, format func(cid.Cid) string) error {
	someFailed := false
	for r := range in {
		switch {
		case !r.Cid.Defined() && r.Error != nil:
			return fmt.Errorf("aborted: %w", r.Error)
		case r.Error != nil:
			someFailed = true
			fmt.Fprintf(serr, "cannot remove %s: %s\n", format(r.Cid), r.Error)
		default:
			fmt.Fprintf(sout, "removed %s\n", format(r.Cid))
		}
	}
	if someFailed {
		return errors.New("some blocks not removed")
	}
	return nil
}
