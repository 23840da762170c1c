package blockstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ipfs/pincore/blocks/blocksutil"

	blocks "github.com/ipfs/go-block-format"
	cid "github.com/ipfs/go-cid"
	ds "github.com/ipfs/go-datastore"
	dsq "github.com/ipfs/go-datastore/query"
	dssync "github.com/ipfs/go-datastore/sync"
	ipld "github.com/ipfs/go-ipld-format"
	"github.com/stretchr/testify/require"
)

func newTestBlockstore() (Blockstore, ds.Batching) {
	d := dssync.MutexWrap(ds.NewMapDatastore())
	return NewBlockstore(d), d
}

func TestGetWhenKeyNotPresent(t *testing.T) {
	bs, _ := newTestBlockstore()
	c := blocks.NewBlock([]byte("stuff")).Cid()

	bl, err := bs.Get(context.Background(), c)
	require.Nil(t, bl)
	require.True(t, ipld.IsNotFound(err))
	require.Equal(t, ipld.ErrNotFound{Cid: c}, err)
}

func TestGetWhenKeyIsUndefined(t *testing.T) {
	bs, _ := newTestBlockstore()
	_, err := bs.Get(context.Background(), cid.Undef)
	require.True(t, ipld.IsNotFound(err))
}

func TestPutThenGetBlock(t *testing.T) {
	ctx := context.Background()
	bs, _ := newTestBlockstore()
	block := blocks.NewBlock([]byte("some data"))

	require.NoError(t, bs.Put(ctx, block))

	blockFromBlockstore, err := bs.Get(ctx, block.Cid())
	require.NoError(t, err)
	require.Equal(t, block.RawData(), blockFromBlockstore.RawData())

	size, err := bs.GetSize(ctx, block.Cid())
	require.NoError(t, err)
	require.Equal(t, len(block.RawData()), size)
}

func TestHashOnRead(t *testing.T) {
	ctx := context.Background()
	bs, d := newTestBlockstore()
	orig := blocks.NewBlock([]byte("some data"))
	bad := blocks.NewBlock([]byte("some other data"))

	// store the bytes of bad under the key of orig
	key := ds.NewKey(DefaultPrefix).Child(CidToDsKey(orig.Cid()))
	require.NoError(t, d.Put(ctx, key, bad.RawData()))

	_, err := bs.Get(ctx, orig.Cid())
	require.NoError(t, err, "corruption is not detected without HashOnRead")

	bs.HashOnRead(true)
	_, err = bs.Get(ctx, orig.Cid())
	require.ErrorIs(t, err, ErrHashMismatch)
}

func TestDeleteBlock(t *testing.T) {
	ctx := context.Background()
	bs, _ := newTestBlockstore()
	block := blocks.NewBlock([]byte("some data"))
	require.NoError(t, bs.Put(ctx, block))

	require.NoError(t, bs.DeleteBlock(ctx, block.Cid()))
	has, err := bs.Has(ctx, block.Cid())
	require.NoError(t, err)
	require.False(t, has)

	require.True(t, ipld.IsNotFound(bs.DeleteBlock(ctx, block.Cid())))
}

func TestAllKeysChan(t *testing.T) {
	ctx := context.Background()
	bs, _ := newTestBlockstore()
	bg := blocksutil.NewBlockGenerator()
	blks := bg.Blocks(100)
	require.NoError(t, bs.PutMany(ctx, blks))

	ch, err := bs.AllKeysChan(ctx)
	require.NoError(t, err)

	var expected, actual []cid.Cid
	for _, b := range blks {
		expected = append(expected, b.Cid())
	}
	for c := range ch {
		actual = append(actual, c)
	}
	require.ElementsMatch(t, expected, actual)
}

func TestAllKeysRespectsContext(t *testing.T) {
	bs, _ := newTestBlockstore()
	bg := blocksutil.NewBlockGenerator()
	require.NoError(t, bs.PutMany(context.Background(), bg.Blocks(200)))

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := bs.AllKeysChan(ctx)
	require.NoError(t, err)
	cancel()

	done := make(chan struct{})
	go func() {
		for range ch {
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("AllKeysChan did not close after cancellation")
	}
}

func TestCidKeyRoundTrip(t *testing.T) {
	for _, data := range []string{"a", "b", "c"} {
		v0 := blocks.NewBlock([]byte(data)).Cid()
		v1 := cid.NewCidV1(cid.Raw, v0.Hash())
		for _, c := range []cid.Cid{v0, v1} {
			k := CidToDsKey(c)
			back, err := DsKeyToCid(k)
			require.NoError(t, err)
			require.Equal(t, c, back)
		}
	}
}

func TestGCLockerExcludesPinLock(t *testing.T) {
	ctx := context.Background()
	gcl := NewGCLocker()

	pinUnlock := gcl.PinLock(ctx)

	acquired := make(chan struct{})
	go func() {
		unlock := gcl.GCLock(ctx)
		close(acquired)
		unlock.Unlock(ctx)
	}()

	require.Eventually(t, func() bool { return gcl.GCRequested(ctx) }, time.Second, time.Millisecond)
	select {
	case <-acquired:
		t.Fatal("GCLock acquired while PinLock held")
	case <-time.After(20 * time.Millisecond):
	}

	pinUnlock.Unlock(ctx)
	<-acquired
	require.False(t, gcl.GCRequested(ctx))
}

func TestGCLockerReadersRunDuringMark(t *testing.T) {
	ctx := context.Background()
	gcl := NewGCLocker()

	gcUnlock := gcl.GCLock(ctx)
	defer gcUnlock.Unlock(ctx)

	// marking: readers proceed
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			gcl.ReadLock(ctx).Unlock(ctx)
		}()
	}
	wg.Wait()

	// sweeping: readers wait
	sweepUnlock := gcl.SweepLock(ctx)
	read := make(chan struct{})
	go func() {
		gcl.ReadLock(ctx).Unlock(ctx)
		close(read)
	}()
	select {
	case <-read:
		t.Fatal("ReadLock acquired during sweep")
	case <-time.After(20 * time.Millisecond):
	}
	sweepUnlock.Unlock(ctx)
	<-read
}

func TestCachedBlockstore(t *testing.T) {
	ctx := context.Background()
	base, _ := newTestBlockstore()
	cbs, err := CachedBlockstore(ctx, base, DefaultCacheOpts())
	require.NoError(t, err)

	block := blocks.NewBlock([]byte("cached"))
	has, err := cbs.Has(ctx, block.Cid())
	require.NoError(t, err)
	require.False(t, has)

	// the negative answer is cached, writes through the cache invalidate it
	require.NoError(t, cbs.Put(ctx, block))
	has, err = cbs.Has(ctx, block.Cid())
	require.NoError(t, err)
	require.True(t, has)

	size, err := cbs.GetSize(ctx, block.Cid())
	require.NoError(t, err)
	require.Equal(t, len(block.RawData()), size)

	require.NoError(t, cbs.DeleteBlock(ctx, block.Cid()))
	_, err = cbs.Get(ctx, block.Cid())
	require.True(t, ipld.IsNotFound(err))

	_, err = CachedBlockstore(ctx, base, CacheOpts{HasSizeCacheSize: -1})
	require.Error(t, err)
}

func TestDeleteMissingBlock(t *testing.T) {
	ctx := context.Background()
	base, d := newTestBlockstore()
	block := blocks.NewBlock([]byte("never stored"))

	err := base.DeleteBlock(ctx, block.Cid())
	require.True(t, ipld.IsNotFound(err))
	var nf ipld.ErrNotFound
	require.ErrorAs(t, err, &nf)
	require.Equal(t, block.Cid(), nf.Cid)

	// a cold cache asks the store, which must report the miss too
	cbs, err := CachedBlockstore(ctx, base, DefaultCacheOpts())
	require.NoError(t, err)
	require.True(t, ipld.IsNotFound(cbs.DeleteBlock(ctx, block.Cid())))

	res, err := d.Query(ctx, dsq.Query{KeysOnly: true})
	require.NoError(t, err)
	entries, err := res.Rest()
	require.NoError(t, err)
	require.Empty(t, entries)
}
