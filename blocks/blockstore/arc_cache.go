package blockstore

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
	blocks "github.com/ipfs/go-block-format"
	cid "github.com/ipfs/go-cid"
	ipld "github.com/ipfs/go-ipld-format"
)

// sizeCache remembers, per CID, the size of the stored block or -1 if the
// block is known to be absent.
type sizeCache struct {
	cache      *lru.Cache[string, int]
	blockstore Blockstore
}

func newSizeCachedBS(bs Blockstore, size int) (*sizeCache, error) {
	c, err := lru.New[string, int](size)
	if err != nil {
		return nil, err
	}
	return &sizeCache{cache: c, blockstore: bs}, nil
}

func (b *sizeCache) DeleteBlock(ctx context.Context, k cid.Cid) error {
	if has, _, ok := b.queryCache(k); ok && !has {
		return ipld.ErrNotFound{Cid: k}
	}

	b.cache.Remove(k.KeyString()) // Invalidate cache before deleting.
	err := b.blockstore.DeleteBlock(ctx, k)
	if err == nil || ipld.IsNotFound(err) {
		b.cacheHave(k, -1)
	}
	return err
}

// queryCache checks if the CID is in the cache. If so, it returns:
//
//	exists (bool): whether the CID is known to exist or not.
//	size (int): the size if cached, or -1 if not cached.
//	ok (bool): whether present in the cache.
func (b *sizeCache) queryCache(k cid.Cid) (exists bool, size int, ok bool) {
	if !k.Defined() {
		log.Error("undefined cid in sizeCache")
		// Return cache invalid so the call to blockstore happens
		// in case of invalid key and correct error is created.
		return false, -1, false
	}

	size, ok = b.cache.Get(k.KeyString())
	if !ok {
		return false, -1, false
	}
	return size >= 0, size, true
}

func (b *sizeCache) Has(ctx context.Context, k cid.Cid) (bool, error) {
	if has, _, ok := b.queryCache(k); ok {
		return has, nil
	}
	has, err := b.blockstore.Has(ctx, k)
	if err != nil {
		return false, err
	}
	if !has {
		b.cacheHave(k, -1)
	}
	return has, nil
}

func (b *sizeCache) GetSize(ctx context.Context, k cid.Cid) (int, error) {
	if has, blockSize, ok := b.queryCache(k); ok {
		if !has {
			return -1, ipld.ErrNotFound{Cid: k}
		}
		return blockSize, nil
	}
	blockSize, err := b.blockstore.GetSize(ctx, k)
	if ipld.IsNotFound(err) {
		b.cacheHave(k, -1)
	} else if err == nil {
		b.cacheHave(k, blockSize)
	}
	return blockSize, err
}

func (b *sizeCache) Get(ctx context.Context, k cid.Cid) (blocks.Block, error) {
	if has, _, ok := b.queryCache(k); ok && !has {
		return nil, ipld.ErrNotFound{Cid: k}
	}

	bl, err := b.blockstore.Get(ctx, k)
	if bl == nil && ipld.IsNotFound(err) {
		b.cacheHave(k, -1)
	} else if bl != nil {
		b.cacheHave(k, len(bl.RawData()))
	}
	return bl, err
}

func (b *sizeCache) Put(ctx context.Context, bl blocks.Block) error {
	if has, _, ok := b.queryCache(bl.Cid()); ok && has {
		return nil
	}

	err := b.blockstore.Put(ctx, bl)
	if err == nil {
		b.cacheHave(bl.Cid(), len(bl.RawData()))
	}
	return err
}

func (b *sizeCache) PutMany(ctx context.Context, bs []blocks.Block) error {
	good := make([]blocks.Block, 0, len(bs))
	for _, block := range bs {
		// call put on block if result is inconclusive or we are sure that
		// the block isn't in storage
		if has, _, ok := b.queryCache(block.Cid()); !ok || (ok && !has) {
			good = append(good, block)
		}
	}
	err := b.blockstore.PutMany(ctx, good)
	if err != nil {
		return err
	}
	for _, block := range good {
		b.cacheHave(block.Cid(), len(block.RawData()))
	}
	return nil
}

func (b *sizeCache) HashOnRead(enabled bool) {
	b.blockstore.HashOnRead(enabled)
}

func (b *sizeCache) cacheHave(c cid.Cid, blockSize int) {
	b.cache.Add(c.KeyString(), blockSize)
}

func (b *sizeCache) AllKeysChan(ctx context.Context) (<-chan cid.Cid, error) {
	return b.blockstore.AllKeysChan(ctx)
}
