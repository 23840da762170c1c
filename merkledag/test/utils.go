// Package mdutils provides in-memory DAG services and DAG generators for
// tests.
package mdutils

import (
	"context"

	"github.com/ipfs/pincore/blocks/blockstore"
	bsrv "github.com/ipfs/pincore/blockservice"
	"github.com/ipfs/pincore/exchange/offline"
	dag "github.com/ipfs/pincore/merkledag"

	blocks "github.com/ipfs/go-block-format"
	cid "github.com/ipfs/go-cid"
	ds "github.com/ipfs/go-datastore"
	dssync "github.com/ipfs/go-datastore/sync"
	ipld "github.com/ipfs/go-ipld-format"
)

// Mock returns a new thread-safe, mock DAGService.
func Mock() ipld.DAGService {
	return dag.NewDAGService(Bserv())
}

// Bserv returns a new, thread-safe, mock BlockService.
func Bserv() bsrv.BlockService {
	bstore := blockstore.NewBlockstore(dssync.MutexWrap(ds.NewMapDatastore()))
	return bsrv.New(bstore, offline.Exchange(bstore))
}

// Stalled returns a DAGService over a fresh in-memory blockstore whose
// exchange never answers: fetching a block that is not stored blocks until
// the context ends. The blockstore is returned so tests can seed it.
func Stalled() (ipld.DAGService, blockstore.Blockstore) {
	bstore := blockstore.NewBlockstore(dssync.MutexWrap(ds.NewMapDatastore()))
	return dag.NewDAGService(bsrv.New(bstore, stalledExchange{})), bstore
}

type stalledExchange struct{}

func (stalledExchange) GetBlock(ctx context.Context, _ cid.Cid) (blocks.Block, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (stalledExchange) GetBlocks(ctx context.Context, _ []cid.Cid) (<-chan blocks.Block, error) {
	out := make(chan blocks.Block)
	go func() {
		<-ctx.Done()
		close(out)
	}()
	return out, nil
}

func (stalledExchange) NotifyNewBlocks(context.Context, ...blocks.Block) error { return nil }

func (stalledExchange) Close() error { return nil }
