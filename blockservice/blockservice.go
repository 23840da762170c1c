// Package blockservice implements a BlockService interface that provides
// a single GetBlock/AddBlock interface that seamlessly retrieves data either
// locally or from a remote peer through the exchange.
package blockservice

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ipfs/pincore/blocks/blockstore"
	"github.com/ipfs/pincore/exchange"
	"github.com/ipfs/pincore/tracing"

	blocks "github.com/ipfs/go-block-format"
	cid "github.com/ipfs/go-cid"
	ipld "github.com/ipfs/go-ipld-format"
	logging "github.com/ipfs/go-log/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var log = logging.Logger("blockservice")

// ErrWrongHash is returned when a fetched block does not hash to its CID.
var ErrWrongHash = errors.New("data did not match given hash")

// BlockGetter is the common interface shared between blockservice sessions and
// the blockservice.
type BlockGetter interface {
	// GetBlock gets the requested block.
	GetBlock(ctx context.Context, c cid.Cid) (blocks.Block, error)

	// GetBlocks does a batch request for the given cids, returning blocks as
	// they are found, in no particular order.
	GetBlocks(ctx context.Context, ks []cid.Cid) <-chan blocks.Block
}

// BlockService is a hybrid block datastore. It stores data in a local
// datastore and may retrieve data from a remote Exchange.
// It uses an internal `datastore.Datastore` instance to store values.
type BlockService interface {
	io.Closer
	BlockGetter

	// Blockstore returns a reference to the underlying blockstore
	Blockstore() blockstore.Blockstore

	// Exchange returns a reference to the underlying exchange (usually bitswap)
	Exchange() exchange.Interface

	// AddBlock puts a given block to the underlying datastore
	AddBlock(ctx context.Context, o blocks.Block) error

	// AddBlocks adds a slice of blocks at the same time using batching
	// capabilities of the underlying datastore whenever possible.
	AddBlocks(ctx context.Context, bs []blocks.Block) error

	// DeleteBlock deletes the given block from the blockservice.
	DeleteBlock(ctx context.Context, o cid.Cid) error
}

type blockService struct {
	blockstore blockstore.Blockstore
	exchange   exchange.Interface
}

// New creates a BlockService with given datastore instance.
func New(bs blockstore.Blockstore, exchange exchange.Interface) BlockService {
	if exchange == nil {
		log.Debug("blockservice running in local (offline) mode.")
	}

	return &blockService{
		blockstore: bs,
		exchange:   exchange,
	}
}

// Blockstore returns the blockstore behind this blockservice.
func (s *blockService) Blockstore() blockstore.Blockstore {
	return s.blockstore
}

// Exchange returns the exchange behind this blockservice.
func (s *blockService) Exchange() exchange.Interface {
	return s.exchange
}

// AddBlock adds a particular block to the service, Putting it into the datastore.
func (s *blockService) AddBlock(ctx context.Context, o blocks.Block) error {
	ctx, span := tracing.Span(ctx, "BlockService", "AddBlock", trace.WithAttributes(attribute.Stringer("CID", o.Cid())))
	defer span.End()

	if err := s.blockstore.Put(ctx, o); err != nil {
		return err
	}

	log.Debugw("BlockService.BlockAdded", "cid", o.Cid())

	if s.exchange != nil {
		if err := s.exchange.NotifyNewBlocks(ctx, o); err != nil {
			log.Errorf("NotifyNewBlocks: %s", err.Error())
		}
	}
	return nil
}

func (s *blockService) AddBlocks(ctx context.Context, bs []blocks.Block) error {
	ctx, span := tracing.Span(ctx, "BlockService", "AddBlocks")
	defer span.End()

	if len(bs) == 0 {
		return nil
	}

	if err := s.blockstore.PutMany(ctx, bs); err != nil {
		return err
	}

	if s.exchange != nil {
		if err := s.exchange.NotifyNewBlocks(ctx, bs...); err != nil {
			log.Errorf("NotifyNewBlocks: %s", err.Error())
		}
	}
	return nil
}

// GetBlock retrieves a particular block from the service,
// Getting it from the datastore using the key (hash).
func (s *blockService) GetBlock(ctx context.Context, c cid.Cid) (blocks.Block, error) {
	if !c.Defined() {
		return nil, ipld.ErrNotFound{Cid: c}
	}

	ctx, span := tracing.Span(ctx, "BlockService", "GetBlock", trace.WithAttributes(attribute.Stringer("CID", c)))
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("failed to get block for %s: %w", c, err)
	}

	block, err := s.blockstore.Get(ctx, c)
	if err == nil {
		return block, nil
	}

	if ipld.IsNotFound(err) && s.exchange != nil {
		log.Debugw("block not in local store, fetching through exchange", "cid", c)
		blk, err := s.exchange.GetBlock(ctx, c)
		if err != nil {
			return nil, wrapFetchError(c, err)
		}
		if err := verifyBlock(c, blk); err != nil {
			return nil, err
		}
		// also write in the blockstore for caching
		if err := s.blockstore.Put(ctx, blk); err != nil {
			return nil, err
		}
		log.Debugw("BlockService.BlockFetched", "cid", c)
		return blk, nil
	}

	log.Debugw("BlockService GetBlock: not found", "cid", c)
	return nil, wrapFetchError(c, err)
}

// GetBlocks gets a list of blocks asynchronously and returns through
// the returned channel.
// NB: No guarantees are made about order.
func (s *blockService) GetBlocks(ctx context.Context, ks []cid.Cid) <-chan blocks.Block {
	out := make(chan blocks.Block)
	go func() {
		defer close(out)

		var misses []cid.Cid
		for _, c := range ks {
			hit, err := s.blockstore.Get(ctx, c)
			if err != nil {
				misses = append(misses, c)
				continue
			}
			select {
			case out <- hit:
			case <-ctx.Done():
				return
			}
		}

		if len(misses) == 0 || s.exchange == nil {
			return
		}

		rblocks, err := s.exchange.GetBlocks(ctx, misses)
		if err != nil {
			log.Debugf("Error with GetBlocks: %s", err)
			return
		}

		for b := range rblocks {
			if err := verifyBlock(b.Cid(), b); err != nil {
				log.Errorw("dropping fetched block", "cid", b.Cid(), "error", err)
				continue
			}
			if err := s.blockstore.Put(ctx, b); err != nil {
				log.Errorf("could not write block %s to blockstore: %s", b.Cid(), err)
				continue
			}
			select {
			case out <- b:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// DeleteBlock deletes a block in the blockservice from the datastore
func (s *blockService) DeleteBlock(ctx context.Context, c cid.Cid) error {
	ctx, span := tracing.Span(ctx, "BlockService", "DeleteBlock", trace.WithAttributes(attribute.Stringer("CID", c)))
	defer span.End()

	err := s.blockstore.DeleteBlock(ctx, c)
	if err == nil {
		log.Debugw("BlockService.BlockDeleted", "cid", c)
	}
	return err
}

func (s *blockService) Close() error {
	log.Debug("blockservice is shutting down...")
	if s.exchange == nil {
		return nil
	}
	return s.exchange.Close()
}

func verifyBlock(c cid.Cid, b blocks.Block) error {
	actual, err := c.Prefix().Sum(b.RawData())
	if err != nil {
		return err
	}
	if !actual.Equals(c) {
		return fmt.Errorf("%w: expected %s, got %s", ErrWrongHash, c, actual)
	}
	return nil
}

// wrapFetchError keeps not-found errors untouched so callers can match the
// missing CID, and names the CID for timeouts and cancellation.
func wrapFetchError(c cid.Cid, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to get block for %s: %w", c, err)
	}
	return err
}
