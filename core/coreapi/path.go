package coreapi

import (
	"context"

	"github.com/ipfs/pincore/path"

	cid "github.com/ipfs/go-cid"
	ipld "github.com/ipfs/go-ipld-format"
)

// ResolveNode resolves the path `p` and returns the node it names.
func (api *CoreAPI) ResolveNode(ctx context.Context, p path.Path) (ipld.Node, error) {
	c, err := api.ResolvePath(ctx, p)
	if err != nil {
		return nil, err
	}

	node, err := api.dag.Get(ctx, c)
	if err != nil {
		return nil, err
	}
	return node, nil
}

// ResolvePath resolves the path `p` to the CID it names, one link name at a
// time. The first missing name fails with *path.ErrNoLink.
func (api *CoreAPI) ResolvePath(ctx context.Context, p path.Path) (cid.Cid, error) {
	c, _, err := api.resolver.ResolvePath(ctx, p)
	if err != nil {
		return cid.Undef, err
	}
	return c, nil
}
