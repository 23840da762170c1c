package coreapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	caopts "github.com/ipfs/pincore/core/coreapi/options"
	"github.com/ipfs/pincore/errs"
	dag "github.com/ipfs/pincore/merkledag"
	"github.com/ipfs/pincore/object"
	"github.com/ipfs/pincore/path"
	"github.com/ipfs/pincore/pin"

	cid "github.com/ipfs/go-cid"
	ipld "github.com/ipfs/go-ipld-format"
)

const inputLimit = 2 << 20

type ObjectAPI CoreAPI

// Link is a link of a Node as it appears in 'object put' input.
type Link struct {
	Name, Hash string
	Size       uint64
}

// Node is the JSON form of a dag-pb node accepted by Put.
type Node struct {
	Links []Link
	Data  string
}

// New creates a node of the requested type and stores it.
func (api *ObjectAPI) New(ctx context.Context, opts ...caopts.ObjectNewOption) (ipld.Node, error) {
	options, err := caopts.ObjectNewOptions(opts...)
	if err != nil {
		return nil, err
	}

	var n ipld.Node
	switch options.Type {
	case "empty":
		n = new(dag.ProtoNode)
	default:
		return nil, errs.InvalidArgument("unknown node type '%s'", options.Type)
	}

	err = api.dag.Add(ctx, n)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// Put decodes a node from src and stores it. Linked nodes do not have to
// exist locally.
func (api *ObjectAPI) Put(ctx context.Context, src io.Reader, opts ...caopts.ObjectPutOption) (cid.Cid, error) {
	options, err := caopts.ObjectPutOptions(opts...)
	if err != nil {
		return cid.Undef, err
	}

	data, err := io.ReadAll(io.LimitReader(src, inputLimit+10))
	if err != nil {
		return cid.Undef, err
	}
	if len(data) >= inputLimit {
		return cid.Undef, errs.InvalidArgument("object too large, limit is %d bytes", inputLimit)
	}

	var dagnode *dag.ProtoNode
	switch options.InputEnc {
	case "json":
		node := new(Node)
		err = json.Unmarshal(data, node)
		if err != nil {
			return cid.Undef, errs.InvalidArgument("invalid json node: %s", err)
		}

		// check that we have data in the Node to add
		// otherwise we will add the empty object without raising an error
		if nodeEmpty(node) {
			return cid.Undef, errs.InvalidArgument("no data or links in this node")
		}

		dagnode, err = deserializeNode(node, options.DataType)
		if err != nil {
			return cid.Undef, err
		}

	case "protobuf":
		dagnode, err = dag.DecodeProtobuf(data)
		if err != nil {
			return cid.Undef, err
		}

	default:
		return cid.Undef, errs.InvalidArgument("unknown object encoding '%s'", options.InputEnc)
	}

	if options.Pin {
		defer api.blockstore.PinLock(ctx).Unlock(ctx)
	}

	err = api.dag.Add(ctx, dagnode)
	if err != nil {
		return cid.Undef, err
	}

	if options.Pin {
		if err := api.pinning.Pin(ctx, dagnode.Cid(), pin.Direct); err != nil {
			return cid.Undef, err
		}
	}

	return dagnode.Cid(), nil
}

// Stat resolves p and computes the stat of the DAG below it. Every linked
// node is fetched; nothing is estimated from size hints.
func (api *ObjectAPI) Stat(ctx context.Context, p path.Path) (*object.Stat, error) {
	defer api.blockstore.ReadLock(ctx).Unlock(ctx)

	return api.statter.StatPath(ctx, p)
}

// LocalStat resolves p and stats only the node it names. The cumulative
// size comes from the link size hints, so no child is fetched.
func (api *ObjectAPI) LocalStat(ctx context.Context, p path.Path) (*object.Stat, error) {
	defer api.blockstore.ReadLock(ctx).Unlock(ctx)

	nd, err := (*CoreAPI)(api).ResolveNode(ctx, p)
	if err != nil {
		return nil, err
	}
	return object.NodeStat(nd)
}

func deserializeNode(nd *Node, dataFieldEncoding string) (*dag.ProtoNode, error) {
	dagnode := new(dag.ProtoNode)
	switch dataFieldEncoding {
	case "text":
		dagnode.SetData([]byte(nd.Data))
	case "base64":
		data, err := base64.StdEncoding.DecodeString(nd.Data)
		if err != nil {
			return nil, errs.InvalidArgument("invalid base64 data: %s", err)
		}
		dagnode.SetData(data)
	default:
		return nil, errs.InvalidArgument("unknown data field encoding '%s'", dataFieldEncoding)
	}

	links := make([]*ipld.Link, len(nd.Links))
	for i, link := range nd.Links {
		c, err := path.ParseCid(link.Hash)
		if err != nil {
			return nil, fmt.Errorf("link %q: %w", link.Name, err)
		}
		links[i] = &ipld.Link{
			Name: link.Name,
			Size: link.Size,
			Cid:  c,
		}
	}
	dagnode.SetLinks(links)

	return dagnode, nil
}

func nodeEmpty(node *Node) bool {
	return node.Data == "" && len(node.Links) == 0
}
