package blockservice

import (
	"context"
	"testing"
	"time"

	"github.com/ipfs/pincore/blocks/blockstore"
	"github.com/ipfs/pincore/blocks/blocksutil"
	offline "github.com/ipfs/pincore/exchange/offline"

	blocks "github.com/ipfs/go-block-format"
	cid "github.com/ipfs/go-cid"
	ds "github.com/ipfs/go-datastore"
	dssync "github.com/ipfs/go-datastore/sync"
	ipld "github.com/ipfs/go-ipld-format"
	"github.com/stretchr/testify/require"
)

func newBlockstore() blockstore.Blockstore {
	return blockstore.NewBlockstore(dssync.MutexWrap(ds.NewMapDatastore()))
}

func TestWriteThroughWorks(t *testing.T) {
	ctx := context.Background()
	bstore := &PutCountingBlockstore{newBlockstore(), 0}
	exch := offline.Exchange(newBlockstore())
	bserv := New(bstore, exch)
	bgen := blocksutil.NewBlockGenerator()

	block := bgen.Next()

	require.NoError(t, bserv.AddBlock(ctx, block))
	require.Equal(t, 1, bstore.PutCounter)

	got, err := bserv.GetBlock(ctx, block.Cid())
	require.NoError(t, err)
	require.Equal(t, block.RawData(), got.RawData())
}

func TestFetchesThroughExchange(t *testing.T) {
	ctx := context.Background()
	local := newBlockstore()
	remote := newBlockstore()
	bserv := New(local, offline.Exchange(remote))

	block := blocks.NewBlock([]byte("only on the remote"))
	require.NoError(t, remote.Put(ctx, block))

	got, err := bserv.GetBlock(ctx, block.Cid())
	require.NoError(t, err)
	require.Equal(t, block.RawData(), got.RawData())

	has, err := local.Has(ctx, block.Cid())
	require.NoError(t, err)
	require.True(t, has, "fetched block should be cached locally")
}

func TestGetBlockNotFound(t *testing.T) {
	bserv := New(newBlockstore(), offline.Exchange(newBlockstore()))
	c := blocks.NewBlock([]byte("nowhere")).Cid()

	_, err := bserv.GetBlock(context.Background(), c)
	require.True(t, ipld.IsNotFound(err))
}

func TestGetBlockRespectsDeadline(t *testing.T) {
	bserv := New(newBlockstore(), blockingExchange{})
	c := blocks.NewBlock([]byte("never arrives")).Cid()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := bserv.GetBlock(ctx, c)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.EqualError(t, err, "failed to get block for "+c.String()+": context deadline exceeded")
}

func TestRejectsWrongBlockFromExchange(t *testing.T) {
	want := blocks.NewBlock([]byte("wanted"))
	other := blocks.NewBlock([]byte("something else"))
	liar, err := blocks.NewBlockWithCid(other.RawData(), want.Cid())
	require.NoError(t, err)

	bserv := New(newBlockstore(), &fixedExchange{blk: liar})
	_, err = bserv.GetBlock(context.Background(), want.Cid())
	require.ErrorIs(t, err, ErrWrongHash)
}

func TestGetBlocks(t *testing.T) {
	ctx := context.Background()
	local := newBlockstore()
	remote := newBlockstore()
	bserv := New(local, offline.Exchange(remote))

	bgen := blocksutil.NewBlockGenerator()
	blks := bgen.Blocks(10)
	var keys []cid.Cid
	for i, b := range blks {
		keys = append(keys, b.Cid())
		if i%2 == 0 {
			require.NoError(t, local.Put(ctx, b))
		} else {
			require.NoError(t, remote.Put(ctx, b))
		}
	}

	var got []cid.Cid
	for b := range bserv.GetBlocks(ctx, keys) {
		got = append(got, b.Cid())
	}
	require.ElementsMatch(t, keys, got)
}

var _ blockstore.Blockstore = (*PutCountingBlockstore)(nil)

type PutCountingBlockstore struct {
	blockstore.Blockstore
	PutCounter int
}

func (bs *PutCountingBlockstore) Put(ctx context.Context, block blocks.Block) error {
	bs.PutCounter++
	return bs.Blockstore.Put(ctx, block)
}

type blockingExchange struct{}

func (blockingExchange) GetBlock(ctx context.Context, _ cid.Cid) (blocks.Block, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (blockingExchange) GetBlocks(ctx context.Context, _ []cid.Cid) (<-chan blocks.Block, error) {
	out := make(chan blocks.Block)
	go func() {
		<-ctx.Done()
		close(out)
	}()
	return out, nil
}

func (blockingExchange) NotifyNewBlocks(context.Context, ...blocks.Block) error { return nil }
func (blockingExchange) Close() error                                          { return nil }

type fixedExchange struct {
	blk blocks.Block
}

func (e *fixedExchange) GetBlock(context.Context, cid.Cid) (blocks.Block, error) {
	return e.blk, nil
}

func (e *fixedExchange) GetBlocks(context.Context, []cid.Cid) (<-chan blocks.Block, error) {
	out := make(chan blocks.Block, 1)
	out <- e.blk
	close(out)
	return out, nil
}

func (e *fixedExchange) NotifyNewBlocks(context.Context, ...blocks.Block) error { return nil }
func (e *fixedExchange) Close() error                                          { return nil }
