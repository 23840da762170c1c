package coreapi

import (
	"context"
	"testing"

	"github.com/ipfs/pincore/core"
	dag "github.com/ipfs/pincore/merkledag"

	ipld "github.com/ipfs/go-ipld-format"
	"github.com/stretchr/testify/require"
)

func makeAPI(t *testing.T) (*CoreAPI, *core.PincoreNode) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	n, err := core.NewNode(ctx, &core.BuildCfg{NilRepo: true})
	require.NoError(t, err)
	t.Cleanup(func() { n.Close() })

	return NewCoreAPI(n), n
}

// fixtures is a directory DAG, dir -> files -> {hello.txt, ipfs.txt}, and
// two loose files.
type fixtures struct {
	dir, files, hello, ipfs *dag.ProtoNode
	file0, file1            *dag.ProtoNode
}

func addFixtures(t *testing.T, api *CoreAPI) *fixtures {
	t.Helper()
	f := &fixtures{
		hello: dag.NodeWithData([]byte("hello world\n")),
		ipfs:  dag.NodeWithData([]byte("ipfs is a merkle dag\n")),
		files: dag.NodeWithData([]byte{0x08, 0x01}),
		dir:   dag.NodeWithData([]byte{0x08, 0x01}),
		file0: dag.NodeWithData([]byte("loose file 0")),
		file1: dag.NodeWithData([]byte("loose file 1")),
	}
	require.NoError(t, f.files.AddNodeLink("hello.txt", f.hello))
	require.NoError(t, f.files.AddNodeLink("ipfs.txt", f.ipfs))
	require.NoError(t, f.dir.AddNodeLink("files", f.files))

	require.NoError(t, api.Dag().AddMany(context.Background(), []ipld.Node{
		f.hello, f.ipfs, f.files, f.dir, f.file0, f.file1,
	}))
	return f
}

func TestResolvePath(t *testing.T) {
	ctx := context.Background()
	api, _ := makeAPI(t)
	f := addFixtures(t, api)

	c, err := api.ResolvePath(ctx, pathOf(f.dir, "files", "ipfs.txt"))
	require.NoError(t, err)
	require.Equal(t, f.ipfs.Cid(), c)

	nd, err := api.ResolveNode(ctx, pathOf(f.dir, "files"))
	require.NoError(t, err)
	require.Len(t, nd.Links(), 2)
}
