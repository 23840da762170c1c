package coreapi

import (
	"context"
	"fmt"
	"testing"

	opt "github.com/ipfs/pincore/core/coreapi/options"
	"github.com/ipfs/pincore/errs"
	dag "github.com/ipfs/pincore/merkledag"
	"github.com/ipfs/pincore/path"
	"github.com/ipfs/pincore/pin"

	cid "github.com/ipfs/go-cid"
	"github.com/stretchr/testify/require"
)

func pathOf(nd *dag.ProtoNode, names ...string) path.Path {
	return path.FromCid(nd.Cid()).Join(names...)
}

func listed(ls []pin.Listing) map[cid.Cid]string {
	out := make(map[cid.Cid]string, len(ls))
	for _, l := range ls {
		out[l.Cid] = l.Classification()
	}
	return out
}

// pinFixtures pins the directory and file0 recursively and file1 directly.
func pinFixtures(t *testing.T) (*CoreAPI, *fixtures) {
	t.Helper()
	ctx := context.Background()
	api, _ := makeAPI(t)
	f := addFixtures(t, api)

	_, err := api.Pin().Add(ctx, pathOf(f.dir), opt.Pin.Recursive(true))
	require.NoError(t, err)
	_, err = api.Pin().Add(ctx, pathOf(f.file0))
	require.NoError(t, err)
	_, err = api.Pin().Add(ctx, pathOf(f.file1), opt.Pin.Recursive(false))
	require.NoError(t, err)
	return api, f
}

func TestPinLs(t *testing.T) {
	ctx := context.Background()
	api, f := pinFixtures(t)
	indirect := "indirect through " + f.dir.Cid().String()

	t.Run("recursive", func(t *testing.T) {
		ls, err := api.Pin().Ls(ctx, opt.Pin.Ls.Recursive())
		require.NoError(t, err)
		require.Equal(t, map[cid.Cid]string{
			f.dir.Cid():   "recursive",
			f.file0.Cid(): "recursive",
		}, listed(ls))
	})

	t.Run("indirect", func(t *testing.T) {
		ls, err := api.Pin().Ls(ctx, opt.Pin.Ls.Indirect())
		require.NoError(t, err)
		require.Equal(t, map[cid.Cid]string{
			f.files.Cid(): indirect,
			f.hello.Cid(): indirect,
			f.ipfs.Cid():  indirect,
		}, listed(ls))
	})

	t.Run("all", func(t *testing.T) {
		ls, err := api.Pin().Ls(ctx)
		require.NoError(t, err)
		require.Len(t, ls, 6)
		require.Equal(t, map[cid.Cid]string{
			f.dir.Cid():   "recursive",
			f.file0.Cid(): "recursive",
			f.file1.Cid(): "direct",
			f.files.Cid(): indirect,
			f.hello.Cid(): indirect,
			f.ipfs.Cid():  indirect,
		}, listed(ls))
	})

	t.Run("direct", func(t *testing.T) {
		ls, err := api.Pin().Ls(ctx, opt.Pin.Ls.Direct())
		require.NoError(t, err)
		require.Equal(t, []pin.Listing{{Cid: f.file1.Cid(), Mode: pin.Direct}}, ls)
	})

	t.Run("invalid type", func(t *testing.T) {
		_, err := api.Pin().Ls(ctx, opt.Pin.Ls.Type("sideways"))
		require.ErrorIs(t, err, errs.ErrInvalidArgument)
	})
}

func TestPinLsPath(t *testing.T) {
	ctx := context.Background()
	api, f := pinFixtures(t)

	t.Run("specific hash", func(t *testing.T) {
		ls, err := api.Pin().LsPath(ctx, pathOf(f.file0))
		require.NoError(t, err)
		require.Equal(t, []pin.Listing{{Cid: f.file0.Cid(), Mode: pin.Recursive}}, ls)

		ls, err = api.Pin().LsPath(ctx, pathOf(f.file0), opt.Pin.Ls.Recursive())
		require.NoError(t, err)
		require.Equal(t, []pin.Listing{{Cid: f.file0.Cid(), Mode: pin.Recursive}}, ls)
	})

	t.Run("not pinned under type", func(t *testing.T) {
		p := pathOf(f.dir, "files", "ipfs.txt")
		_, err := api.Pin().LsPath(ctx, p, opt.Pin.Ls.Direct())
		require.EqualError(t, err, fmt.Sprintf("path '/ipfs/%s/files/ipfs.txt' is not pinned", f.dir.Cid()))

		var npErr *ErrNotPinnedUnderType
		require.ErrorAs(t, err, &npErr)
		require.Equal(t, "direct", npErr.Type)
		require.Equal(t, "NotPinnedUnderType", errs.Kind(err))
	})

	t.Run("missing link", func(t *testing.T) {
		_, err := api.Pin().LsPath(ctx, pathOf(f.dir, "I-DONT-EXIST.txt"), opt.Pin.Ls.Direct())
		require.EqualError(t, err, fmt.Sprintf("no link named \"I-DONT-EXIST.txt\" under %s", f.dir.Cid()))
		require.Equal(t, "NoSuchLink", errs.Kind(err))
	})

	t.Run("indirect through path", func(t *testing.T) {
		ls, err := api.Pin().LsPath(ctx, pathOf(f.dir, "files", "ipfs.txt"), opt.Pin.Ls.Indirect())
		require.NoError(t, err)
		require.Len(t, ls, 1)
		require.Equal(t, f.ipfs.Cid(), ls[0].Cid)
		require.Equal(t, "indirect through "+f.dir.Cid().String(), ls[0].Classification())
	})
}

func TestPinIsPinned(t *testing.T) {
	ctx := context.Background()
	api, f := pinFixtures(t)

	reason, pinned, err := api.Pin().IsPinned(ctx, pathOf(f.dir, "files", "hello.txt"))
	require.NoError(t, err)
	require.True(t, pinned)
	require.Equal(t, "indirect through "+f.dir.Cid().String(), reason)

	_, pinned, err = api.Pin().IsPinned(ctx, pathOf(f.dir, "files"), opt.Pin.IsPinned.Direct())
	require.NoError(t, err)
	require.False(t, pinned)

	_, _, err = api.Pin().IsPinned(ctx, pathOf(f.dir, "nope"))
	require.Equal(t, "NoSuchLink", errs.Kind(err))
}

func TestPinRm(t *testing.T) {
	ctx := context.Background()
	api, f := pinFixtures(t)

	// a non-recursive removal only drops direct pins
	_, err := api.Pin().Rm(ctx, pathOf(f.file0), opt.Pin.RmRecursive(false))
	require.Equal(t, "NotPinned", errs.Kind(err))

	c, err := api.Pin().Rm(ctx, pathOf(f.file0))
	require.NoError(t, err)
	require.Equal(t, f.file0.Cid(), c)

	_, err = api.Pin().Rm(ctx, pathOf(f.file0))
	require.ErrorIs(t, err, pin.ErrNotPinnedKind)

	_, err = api.Pin().Rm(ctx, pathOf(f.file1), opt.Pin.RmRecursive(false))
	require.NoError(t, err)

	ls, err := api.Pin().Ls(ctx, opt.Pin.Ls.Recursive())
	require.NoError(t, err)
	require.Equal(t, []pin.Listing{{Cid: f.dir.Cid(), Mode: pin.Recursive}}, ls)
}

func TestPinUpdate(t *testing.T) {
	ctx := context.Background()
	api, f := pinFixtures(t)

	require.NoError(t, api.Pin().Update(ctx, pathOf(f.file0), pathOf(f.dir, "files"), opt.Pin.Unpin(false)))
	_, pinned, err := api.Pin().IsPinned(ctx, pathOf(f.file0), opt.Pin.IsPinned.Recursive())
	require.NoError(t, err)
	require.True(t, pinned)

	require.NoError(t, api.Pin().Update(ctx, pathOf(f.dir, "files"), pathOf(f.hello)))
	_, pinned, err = api.Pin().IsPinned(ctx, pathOf(f.dir, "files"), opt.Pin.IsPinned.Recursive())
	require.NoError(t, err)
	require.False(t, pinned)
	_, pinned, err = api.Pin().IsPinned(ctx, pathOf(f.hello), opt.Pin.IsPinned.Recursive())
	require.NoError(t, err)
	require.True(t, pinned)

	err = api.Pin().Update(ctx, pathOf(f.file1), pathOf(f.hello))
	require.ErrorIs(t, err, pin.ErrNotPinnedKind)
}

func TestPinAddMissing(t *testing.T) {
	ctx := context.Background()
	api, n := makeAPI(t)
	f := addFixtures(t, api)
	require.NoError(t, n.Blockstore.DeleteBlock(ctx, f.ipfs.Cid()))

	_, err := api.Pin().Add(ctx, pathOf(f.dir))
	require.ErrorIs(t, err, errs.ErrUnresolvable)

	ls, err := api.Pin().Ls(ctx)
	require.NoError(t, err)
	require.Empty(t, ls)

	// a direct pin only needs the root
	_, err = api.Pin().Add(ctx, pathOf(f.dir), opt.Pin.Recursive(false))
	require.NoError(t, err)
}

func TestPinVerify(t *testing.T) {
	ctx := context.Background()
	api, n := makeAPI(t)
	f := addFixtures(t, api)

	_, err := api.Pin().Add(ctx, pathOf(f.dir))
	require.NoError(t, err)
	_, err = api.Pin().Add(ctx, pathOf(f.file0))
	require.NoError(t, err)

	require.NoError(t, n.Blockstore.DeleteBlock(ctx, f.hello.Cid()))

	statuses, err := api.Pin().Verify(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 2)

	byCid := make(map[cid.Cid]pin.PinStatus)
	for _, s := range statuses {
		byCid[s.Cid] = s
	}
	require.True(t, byCid[f.file0.Cid()].Ok())

	bad := byCid[f.dir.Cid()]
	require.False(t, bad.Ok())
	require.Len(t, bad.BadNodes, 1)
	require.Equal(t, f.hello.Cid(), bad.BadNodes[0].Cid)
}
