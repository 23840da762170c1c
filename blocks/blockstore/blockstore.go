// Package blockstore implements a thin wrapper over a datastore, giving a
// clean interface for Getting and Putting block objects.
package blockstore

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	blocks "github.com/ipfs/go-block-format"
	cid "github.com/ipfs/go-cid"
	ds "github.com/ipfs/go-datastore"
	dsns "github.com/ipfs/go-datastore/namespace"
	dsq "github.com/ipfs/go-datastore/query"
	ipld "github.com/ipfs/go-ipld-format"
	logging "github.com/ipfs/go-log/v2"
	mbase "github.com/multiformats/go-multibase"
)

var log = logging.Logger("blockstore")

// DefaultPrefix namespaces blockstore datastores
const DefaultPrefix = "/blocks"

// ErrHashMismatch is returned when the data read back from storage no longer
// hashes to the requested CID.
var ErrHashMismatch = errors.New("block in storage has different hash than requested")

// Blockstore wraps a Datastore block-centered methods and provides a layer
// of abstraction which allows to add different caching strategies.
type Blockstore interface {
	DeleteBlock(context.Context, cid.Cid) error
	Has(context.Context, cid.Cid) (bool, error)
	Get(context.Context, cid.Cid) (blocks.Block, error)

	// GetSize returns the CIDs mapped BlockSize
	GetSize(context.Context, cid.Cid) (int, error)

	Put(context.Context, blocks.Block) error
	PutMany(context.Context, []blocks.Block) error

	// AllKeysChan returns a channel from which
	// the CIDs in the Blockstore can be read. It should respect
	// the given context, closing the channel if it becomes Done.
	AllKeysChan(ctx context.Context) (<-chan cid.Cid, error)

	// HashOnRead specifies if every read block should be
	// rehashed to make sure it matches its CID.
	HashOnRead(enabled bool)
}

// GCLocker abstracts the locks that keep garbage collection away from the
// pinner and from readers.
//
// There are two lock domains. GCLock excludes PinLock for the whole GC
// pass, so the live set can never be computed from a pin set that is being
// changed. SweepLock excludes ReadLock only while blocks are being deleted:
// listing and stat calls may run during the mark phase but not the sweep.
type GCLocker interface {
	// GCLock locks the blockstore for garbage collection. No operations
	// that expect to finish with a pin should occur simultaneously.
	GCLock(context.Context) Unlocker

	// PinLock locks the blockstore for sequences of puts expected to finish
	// with a pin (before GC). Multiple put->pin sequences can write through
	// at the same time, but no GC should happen simultaneously.
	PinLock(context.Context) Unlocker

	// SweepLock is taken by the collector, while it already holds GCLock,
	// for the duration of block deletion.
	SweepLock(context.Context) Unlocker

	// ReadLock is held by pin listings and stat walks.
	ReadLock(context.Context) Unlocker

	// GCRequested returns true if GCLock has been called and is waiting to
	// take the lock
	GCRequested(context.Context) bool
}

// GCBlockstore is a blockstore that can safely run garbage-collection
// operations.
type GCBlockstore interface {
	Blockstore
	GCLocker
}

// NewGCBlockstore returns a default implementation of GCBlockstore
// using the given Blockstore and GCLocker.
func NewGCBlockstore(bs Blockstore, gcl GCLocker) GCBlockstore {
	return gcBlockstore{bs, gcl}
}

type gcBlockstore struct {
	Blockstore
	GCLocker
}

// NewBlockstore returns a default Blockstore implementation
// using the provided datastore.Batching backend.
func NewBlockstore(d ds.Batching) Blockstore {
	return NewBlockstoreWithPrefix(d, DefaultPrefix)
}

// NewBlockstoreWithPrefix is like NewBlockstore but namespaces blocks under
// an arbitrary prefix.
func NewBlockstoreWithPrefix(d ds.Batching, prefix string) Blockstore {
	return &blockstore{
		datastore: dsns.Wrap(d, ds.NewKey(prefix)),
	}
}

type blockstore struct {
	datastore ds.Batching

	rehash atomic.Bool
}

func (bs *blockstore) HashOnRead(enabled bool) {
	bs.rehash.Store(enabled)
}

func (bs *blockstore) Get(ctx context.Context, k cid.Cid) (blocks.Block, error) {
	if !k.Defined() {
		log.Error("undefined cid in blockstore")
		return nil, ipld.ErrNotFound{Cid: k}
	}

	bdata, err := bs.datastore.Get(ctx, CidToDsKey(k))
	if err == ds.ErrNotFound {
		return nil, ipld.ErrNotFound{Cid: k}
	}
	if err != nil {
		return nil, err
	}

	if bs.rehash.Load() {
		rbcid, err := k.Prefix().Sum(bdata)
		if err != nil {
			return nil, err
		}

		if !rbcid.Equals(k) {
			return nil, ErrHashMismatch
		}
	}
	return blocks.NewBlockWithCid(bdata, k)
}

func (bs *blockstore) Put(ctx context.Context, block blocks.Block) error {
	k := CidToDsKey(block.Cid())

	// Has is cheaper than Put, so see if we already have it
	exists, err := bs.datastore.Has(ctx, k)
	if err == nil && exists {
		return nil
	}
	return bs.datastore.Put(ctx, k, block.RawData())
}

func (bs *blockstore) PutMany(ctx context.Context, blocks []blocks.Block) error {
	t, err := bs.datastore.Batch(ctx)
	if err != nil {
		return err
	}
	for _, b := range blocks {
		k := CidToDsKey(b.Cid())
		exists, err := bs.datastore.Has(ctx, k)
		if err == nil && exists {
			continue
		}

		err = t.Put(ctx, k, b.RawData())
		if err != nil {
			return err
		}
	}
	return t.Commit(ctx)
}

func (bs *blockstore) Has(ctx context.Context, k cid.Cid) (bool, error) {
	return bs.datastore.Has(ctx, CidToDsKey(k))
}

func (bs *blockstore) GetSize(ctx context.Context, k cid.Cid) (int, error) {
	size, err := bs.datastore.GetSize(ctx, CidToDsKey(k))
	if err == ds.ErrNotFound {
		return -1, ipld.ErrNotFound{Cid: k}
	}
	return size, err
}

func (bs *blockstore) DeleteBlock(ctx context.Context, k cid.Cid) error {
	key := CidToDsKey(k)
	// Delete of a missing key succeeds in go-datastore
	has, err := bs.datastore.Has(ctx, key)
	if err != nil {
		return err
	}
	if !has {
		return ipld.ErrNotFound{Cid: k}
	}
	return bs.datastore.Delete(ctx, key)
}

// AllKeysChan runs a query for keys from the blockstore.
//
// AllKeysChan respects context.
func (bs *blockstore) AllKeysChan(ctx context.Context) (<-chan cid.Cid, error) {
	// KeysOnly, because that would be _a lot_ of data.
	q := dsq.Query{KeysOnly: true}
	res, err := bs.datastore.Query(ctx, q)
	if err != nil {
		return nil, err
	}

	output := make(chan cid.Cid, dsq.KeysOnlyBufSize)
	go func() {
		defer func() {
			res.Close() // ensure exit (signals early exit, too)
			close(output)
		}()

		for {
			e, ok := res.NextSync()
			if !ok {
				return
			}
			if e.Error != nil {
				log.Errorf("blockstore.AllKeysChan got err: %s", e.Error)
				return
			}

			k, err := DsKeyToCid(ds.RawKey(e.Key))
			if err != nil {
				log.Warnf("error parsing key from binary: %s", err)
				continue
			}

			select {
			case <-ctx.Done():
				return
			case output <- k:
			}
		}
	}()

	return output, nil
}

// CidToDsKey maps a CID to the datastore key its block is stored under. The
// key is the upper-case base32 multibase form of the binary CID, which is a
// valid key for every datastore this repo can mount, flatfs included.
func CidToDsKey(k cid.Cid) ds.Key {
	s, err := mbase.Encode(mbase.Base32Upper, k.Bytes())
	if err != nil {
		// Base32Upper is always a valid encoding.
		panic(err)
	}
	return ds.NewKey(s)
}

// DsKeyToCid is the inverse of CidToDsKey.
func DsKeyToCid(dsKey ds.Key) (cid.Cid, error) {
	_, b, err := mbase.Decode(dsKey.BaseNamespace())
	if err != nil {
		return cid.Undef, err
	}
	return cid.Cast(b)
}

// NewGCLocker returns a default implementation of
// GCLocker using standard [RW] mutexes.
func NewGCLocker() GCLocker {
	return &gclocker{}
}

type gclocker struct {
	lk      sync.RWMutex
	sweepLk sync.RWMutex
	gcreq   int32
}

// Unlocker represents an object which can Unlock
// something.
type Unlocker interface {
	Unlock(context.Context)
}

type unlocker struct {
	unlock func()
}

func (u *unlocker) Unlock(_ context.Context) {
	u.unlock()
	u.unlock = nil // ensure its not called twice
}

func (bs *gclocker) GCLock(_ context.Context) Unlocker {
	atomic.AddInt32(&bs.gcreq, 1)
	bs.lk.Lock()
	atomic.AddInt32(&bs.gcreq, -1)
	return &unlocker{bs.lk.Unlock}
}

func (bs *gclocker) PinLock(_ context.Context) Unlocker {
	bs.lk.RLock()
	return &unlocker{bs.lk.RUnlock}
}

func (bs *gclocker) SweepLock(_ context.Context) Unlocker {
	bs.sweepLk.Lock()
	return &unlocker{bs.sweepLk.Unlock}
}

func (bs *gclocker) ReadLock(_ context.Context) Unlocker {
	bs.sweepLk.RLock()
	return &unlocker{bs.sweepLk.RUnlock}
}

func (bs *gclocker) GCRequested(_ context.Context) bool {
	return atomic.LoadInt32(&bs.gcreq) > 0
}
