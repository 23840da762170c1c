package object

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/ipfs/pincore/errs"
	dag "github.com/ipfs/pincore/merkledag"
	mdutils "github.com/ipfs/pincore/merkledag/test"
	"github.com/ipfs/pincore/path"

	blocks "github.com/ipfs/go-block-format"
	ipld "github.com/ipfs/go-ipld-format"
	"github.com/stretchr/testify/require"
)

func newStatter(ng ipld.NodeGetter) *Statter {
	return NewStatter(ng, path.NewBasicResolver(ng))
}

func TestStatVectors(t *testing.T) {
	ctx := context.Background()
	dserv := mdutils.Mock()
	s := newStatter(dserv)

	empty := dag.NodeWithData(nil)
	require.NoError(t, dserv.Add(ctx, empty))
	st, err := s.Stat(ctx, empty.Cid())
	require.NoError(t, err)
	require.Equal(t, "QmdfTbBqBPQ7VNxZEYEj14VmRuZBkqFbiwReogJgS1zR1n", st.Hash.String())
	require.Equal(t, Stat{Hash: empty.Cid()}, *st)

	single := dag.NodeWithData([]byte("get test object"))
	require.NoError(t, dserv.Add(ctx, single))
	st, err = s.Stat(ctx, single.Cid())
	require.NoError(t, err)
	require.Equal(t, Stat{
		Hash:           single.Cid(),
		NumLinks:       0,
		BlockSize:      17,
		LinksSize:      2,
		DataSize:       15,
		CumulativeSize: 17,
	}, *st)
	require.Equal(t, "QmNggDXca24S6cMPEYHZjeuc4QRmofkRrAEqVL3Ms2sdJZ", st.Hash.String())

	child := dag.NodeWithData([]byte("Some data 2"))
	parent := dag.NodeWithData([]byte("Some data 1"))
	require.NoError(t, parent.AddNodeLink("some-link", child))
	require.NoError(t, dserv.AddMany(ctx, []ipld.Node{child, parent}))

	st, err = s.Stat(ctx, parent.Cid())
	require.NoError(t, err)
	require.Equal(t, "QmPR7W4kaADkAo4GKEVVPQN81EDUFCHJtqejQZ5dEG7pBC", st.Hash.String())
	require.Equal(t, Stat{
		Hash:           parent.Cid(),
		NumLinks:       1,
		BlockSize:      64,
		LinksSize:      53,
		DataSize:       11,
		CumulativeSize: 77,
	}, *st)

	st, err = s.StatPath(ctx, path.FromCid(parent.Cid()).Join("some-link"))
	require.NoError(t, err)
	require.True(t, st.Hash.Equals(child.Cid()))
	require.Equal(t, 13, st.CumulativeSize)
}

func TestStatIgnoresSizeHints(t *testing.T) {
	ctx := context.Background()
	dserv := mdutils.Mock()

	child := dag.NodeWithData([]byte("child"))
	root := dag.NodeWithData([]byte("root"))
	root.AddRawLink("lying", &ipld.Link{Cid: child.Cid(), Size: 1 << 40})
	require.NoError(t, dserv.AddMany(ctx, []ipld.Node{child, root}))

	st, err := newStatter(dserv).Stat(ctx, root.Cid())
	require.NoError(t, err)
	require.Equal(t, len(root.RawData())+len(child.RawData()), st.CumulativeSize)

	local, err := NodeStat(root)
	require.NoError(t, err)
	require.Equal(t, len(root.RawData())+(1<<40), local.CumulativeSize)
}

func TestStatCountsSharedSubtreesPerReference(t *testing.T) {
	ctx := context.Background()
	dserv := mdutils.Mock()

	leaf := dag.NewRawNode([]byte("shared leaf"))
	mid := dag.NodeWithData([]byte("mid"))
	require.NoError(t, mid.AddNodeLink("leaf", leaf))
	root := dag.NodeWithData([]byte("root"))
	require.NoError(t, root.AddNodeLink("a", mid))
	require.NoError(t, root.AddNodeLink("b", mid))
	require.NoError(t, root.AddNodeLink("c", leaf))
	require.NoError(t, dserv.AddMany(ctx, []ipld.Node{leaf, mid, root}))

	st, err := newStatter(dserv).Stat(ctx, root.Cid())
	require.NoError(t, err)

	leafSize := len(leaf.RawData())
	midCum := len(mid.RawData()) + leafSize
	require.Equal(t, len(root.RawData())+2*midCum+leafSize, st.CumulativeSize)
	require.Equal(t, 3, st.NumLinks)
}

func TestStatCumulativeSizeBound(t *testing.T) {
	ctx := context.Background()
	dserv := mdutils.Mock()
	s := newStatter(dserv)

	var gen mdutils.DAGGenerator
	root, all, err := gen.MakeDagNode(dserv.Add, 3, 3)
	require.NoError(t, err)

	for _, c := range append(all, root) {
		st, err := s.Stat(ctx, c)
		require.NoError(t, err)
		require.GreaterOrEqual(t, st.CumulativeSize, st.BlockSize)
		require.Equal(t, st.NumLinks == 0, st.CumulativeSize == st.BlockSize)
		require.Equal(t, st.BlockSize, st.LinksSize+st.DataSize)
	}

	// generated link hints are exact, so the resolved size matches them
	nd, err := dserv.Get(ctx, root)
	require.NoError(t, err)
	hint, err := nd.Size()
	require.NoError(t, err)
	st, err := s.Stat(ctx, root)
	require.NoError(t, err)
	require.Equal(t, int(hint), st.CumulativeSize)
}

func TestStatRawLeaf(t *testing.T) {
	ctx := context.Background()
	dserv := mdutils.Mock()

	raw := dag.NewRawNode([]byte("raw bytes"))
	require.NoError(t, dserv.Add(ctx, raw))

	st, err := newStatter(dserv).Stat(ctx, raw.Cid())
	require.NoError(t, err)
	require.Equal(t, Stat{Hash: raw.Cid(), BlockSize: 9, DataSize: 9, CumulativeSize: 9}, *st)
}

func TestStatMissingDescendant(t *testing.T) {
	ctx := context.Background()
	dserv := mdutils.Mock()

	missing := dag.NodeWithData([]byte("gone"))
	root := dag.NodeWithData([]byte("root"))
	require.NoError(t, root.AddNodeLink("gone", missing))
	require.NoError(t, dserv.Add(ctx, root))

	st, err := newStatter(dserv).Stat(ctx, root.Cid())
	require.Nil(t, st)
	require.True(t, ipld.IsNotFound(err))
	require.Equal(t, "NotFound", errs.Kind(err))
}

func TestStatUndecodableDescendant(t *testing.T) {
	ctx := context.Background()
	dserv, bstore := mdutils.Stalled()

	garbage := []byte{0xff, 0xff, 0xff}
	c, err := dag.V0CidPrefix().Sum(garbage)
	require.NoError(t, err)
	blk, err := blocks.NewBlockWithCid(garbage, c)
	require.NoError(t, err)
	require.NoError(t, bstore.Put(ctx, blk))

	root := dag.NodeWithData([]byte("root"))
	root.AddRawLink("bad", &ipld.Link{Cid: c, Size: 3})
	require.NoError(t, dserv.Add(ctx, root))

	_, err = newStatter(dserv).Stat(ctx, root.Cid())
	var de *errs.DecodeError
	require.ErrorAs(t, err, &de)
	require.True(t, de.Cid.Equals(c))
}

func TestStatDeadline(t *testing.T) {
	dserv, _ := mdutils.Stalled()
	ctx := context.Background()

	missing := dag.NodeWithData([]byte("never arrives"))
	root := dag.NodeWithData([]byte("root"))
	require.NoError(t, root.AddNodeLink("slow", missing))
	require.NoError(t, dserv.Add(ctx, root))

	ctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()

	_, err := newStatter(dserv).Stat(ctx, root.Cid())
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.EqualError(t, err, "failed to get block for "+missing.Cid().String()+": context deadline exceeded")
}

func TestAddSizeOverflow(t *testing.T) {
	n, err := addSize(1, 2)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	n, err = addSize(math.MaxInt-1, 1)
	require.NoError(t, err)
	require.Equal(t, math.MaxInt, n)

	_, err = addSize(math.MaxInt, 1)
	require.ErrorIs(t, err, errs.ErrOverflow)
	require.Equal(t, "Overflow", errs.Kind(err))
}
