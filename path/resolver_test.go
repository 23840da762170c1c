package path_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ipfs/pincore/errs"
	dag "github.com/ipfs/pincore/merkledag"
	mdutils "github.com/ipfs/pincore/merkledag/test"
	path "github.com/ipfs/pincore/path"

	ipld "github.com/ipfs/go-ipld-format"
	"github.com/stretchr/testify/require"
)

func randNode(data string) *dag.ProtoNode {
	return dag.NodeWithData([]byte(data))
}

func TestRecursivePathResolution(t *testing.T) {
	ctx := context.Background()
	dagService := mdutils.Mock()

	a := randNode("a")
	b := randNode("b")
	c := randNode("c")

	require.NoError(t, b.AddNodeLink("grandchild", c))
	require.NoError(t, a.AddNodeLink("child", b))

	for _, n := range []ipld.Node{a, b, c} {
		require.NoError(t, dagService.Add(ctx, n))
	}

	p, err := path.FromSegments("/ipfs/", a.Cid().String(), "child", "grandchild")
	require.NoError(t, err)

	resolver := path.NewBasicResolver(dagService)
	got, rest, err := resolver.ResolvePath(ctx, p)
	require.NoError(t, err)
	require.Empty(t, rest)
	require.True(t, got.Equals(c.Cid()), "recursive path resolution failed for %s: %s != %s", p, got, c.Cid())

	nodes, err := resolver.ResolvePathComponents(ctx, p)
	require.NoError(t, err)
	require.Len(t, nodes, 3)
	require.True(t, nodes[0].Cid().Equals(a.Cid()))
	require.True(t, nodes[1].Cid().Equals(b.Cid()))

	// a bare root resolves to itself
	got, _, err = resolver.ResolvePath(ctx, path.FromCid(a.Cid()))
	require.NoError(t, err)
	require.True(t, got.Equals(a.Cid()))
}

func TestResolveFirstLinkWins(t *testing.T) {
	ctx := context.Background()
	dagService := mdutils.Mock()

	first := randNode("first")
	second := randNode("second")
	root := randNode("root")
	require.NoError(t, root.AddNodeLink("dup", first))
	require.NoError(t, root.AddNodeLink("dup", second))
	for _, n := range []ipld.Node{first, second, root} {
		require.NoError(t, dagService.Add(ctx, n))
	}

	got, _, err := path.NewBasicResolver(dagService).ResolvePath(ctx, path.FromCid(root.Cid()).Join("dup"))
	require.NoError(t, err)
	require.True(t, got.Equals(first.Cid()))
}

func TestResolveNoLink(t *testing.T) {
	ctx := context.Background()
	dagService := mdutils.Mock()

	file := randNode("file")
	dir := randNode("dir")
	require.NoError(t, dir.AddNodeLink("ipfs.txt", file))
	root := randNode("root")
	require.NoError(t, root.AddNodeLink("files", dir))
	for _, n := range []ipld.Node{file, dir, root} {
		require.NoError(t, dagService.Add(ctx, n))
	}

	resolver := path.NewBasicResolver(dagService)
	_, _, err := resolver.ResolvePath(ctx, path.FromCid(root.Cid()).Join("files", "I-DONT-EXIST.txt"))

	var noLink *path.ErrNoLink
	require.True(t, errors.As(err, &noLink))
	require.Equal(t, "I-DONT-EXIST.txt", noLink.Name)
	require.True(t, noLink.Node.Equals(dir.Cid()))
	require.EqualError(t, err, `no link named "I-DONT-EXIST.txt" under `+dir.Cid().String())
	require.Equal(t, "NoSuchLink", errs.Kind(err))

	// raw leaves have no links at all
	raw := dag.NewRawNode([]byte("leaf"))
	require.NoError(t, dagService.Add(ctx, raw))
	_, _, err = resolver.ResolvePath(ctx, path.FromCid(raw.Cid()).Join("x"))
	require.True(t, errors.As(err, &noLink))
	require.True(t, noLink.Node.Equals(raw.Cid()))
}

func TestResolveDotNames(t *testing.T) {
	ctx := context.Background()
	dagService := mdutils.Mock()

	file := randNode("file")
	up := randNode("up")
	dir := randNode("dir")
	require.NoError(t, dir.AddNodeLink("ipfs.txt", file))
	require.NoError(t, dir.AddNodeLink("..", up))
	root := randNode("root")
	require.NoError(t, root.AddNodeLink("files", dir))
	require.NoError(t, root.AddNodeLink("ipfs.txt", randNode("decoy")))
	for _, n := range []ipld.Node{file, up, dir, root} {
		require.NoError(t, dagService.Add(ctx, n))
	}
	resolver := path.NewBasicResolver(dagService)

	// ".." is matched as a link name, never as the parent
	got, _, err := resolver.ResolvePath(ctx, path.FromCid(root.Cid()).Join("files", ".."))
	require.NoError(t, err)
	require.True(t, got.Equals(up.Cid()))

	_, _, err = resolver.ResolvePath(ctx, path.FromCid(root.Cid()).Join("files", ".", "ipfs.txt"))
	var noLink *path.ErrNoLink
	require.True(t, errors.As(err, &noLink))
	require.Equal(t, ".", noLink.Name)
	require.True(t, noLink.Node.Equals(dir.Cid()))

	_, _, err = resolver.ResolvePath(ctx, path.FromCid(root.Cid()).Join("files", "..", "..", "ipfs.txt"))
	require.True(t, errors.As(err, &noLink))
	require.Equal(t, "..", noLink.Name)
	require.True(t, noLink.Node.Equals(up.Cid()))
}

func TestResolveMissingNode(t *testing.T) {
	ctx := context.Background()
	dagService := mdutils.Mock()

	child := randNode("never stored")
	root := randNode("root")
	require.NoError(t, root.AddNodeLink("child", child))
	require.NoError(t, dagService.Add(ctx, root))

	resolver := path.NewBasicResolver(dagService)
	_, _, err := resolver.ResolvePath(ctx, path.FromCid(root.Cid()).Join("child"))
	require.True(t, ipld.IsNotFound(err))

	_, _, err = resolver.ResolvePath(ctx, path.FromCid(child.Cid()))
	require.True(t, ipld.IsNotFound(err))
}

func TestResolveFetchTimeout(t *testing.T) {
	dagService, _ := mdutils.Stalled()
	missing := randNode("unreachable")

	resolver := &path.Resolver{DAG: dagService, FetchTimeout: 20 * time.Millisecond}
	_, _, err := resolver.ResolvePath(context.Background(), path.FromCid(missing.Cid()))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.EqualError(t, err, "failed to get block for "+missing.Cid().String()+": context deadline exceeded")
	require.Equal(t, "DeadlineExceeded", errs.Kind(err))
}

func TestResolveCancelled(t *testing.T) {
	dagService, _ := mdutils.Stalled()
	missing := randNode("unreachable")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := path.NewBasicResolver(dagService).ResolvePath(ctx, path.FromCid(missing.Cid()))
	require.ErrorIs(t, err, context.Canceled)
}
