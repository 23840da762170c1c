package mdutils

import (
	"context"
	"fmt"

	dag "github.com/ipfs/pincore/merkledag"

	cid "github.com/ipfs/go-cid"
	ipld "github.com/ipfs/go-ipld-format"
)

// NodeAdder is a function that adds a node to a DAGService.
type NodeAdder func(ctx context.Context, node ipld.Node) error

// DAGGenerator generates balanced dag-pb DAGs on demand.
// For each instance of DAGGenerator, each new DAG is different from the
// previous, although two different instances will produce the same, given
// the same parameters.
type DAGGenerator struct {
	seq int
}

// MakeDagNode generate a balanced DAG with the given fanout and depth, and add
// the blocks to the adder. This adder can be for example a blockstore.Put or a
// blockservice.AddBlock.
func (dg *DAGGenerator) MakeDagNode(adder NodeAdder, fanout uint, depth uint) (c cid.Cid, allCids []cid.Cid, err error) {
	c, _, allCids, err = dg.generate(adder, fanout, depth)
	if err != nil {
		return cid.Undef, nil, err
	}
	return c, allCids, nil
}

func (dg *DAGGenerator) generate(adder NodeAdder, fanout uint, depth uint) (c cid.Cid, size uint64, allCids []cid.Cid, err error) {
	if depth == 0 {
		panic("don't generate dags of zero depth")
	}
	if depth == 1 {
		c, size, err = dg.encodeBlock(adder)
		if err != nil {
			return cid.Undef, 0, nil, err
		}
		return c, size, []cid.Cid{c}, nil
	}

	nd := dag.NodeWithData([]byte(fmt.Sprintf("node-%d", dg.nextSeq())))
	for i := uint(0); i < fanout; i++ {
		root, rsize, children, err := dg.generate(adder, fanout, depth-1)
		if err != nil {
			return cid.Undef, 0, nil, err
		}
		allCids = append(allCids, children...)
		nd.AddRawLink(fmt.Sprintf("link-%d", i), &ipld.Link{Cid: root, Size: rsize})
	}
	if err := adder(context.Background(), nd); err != nil {
		return cid.Undef, 0, nil, err
	}
	size, err = nd.Size()
	if err != nil {
		return cid.Undef, 0, nil, err
	}
	allCids = append(allCids, nd.Cid())
	return nd.Cid(), size, allCids, nil
}

func (dg *DAGGenerator) encodeBlock(adder NodeAdder) (cid.Cid, uint64, error) {
	nd := dag.NodeWithData([]byte(fmt.Sprintf("leaf-%d", dg.nextSeq())))
	if err := adder(context.Background(), nd); err != nil {
		return cid.Undef, 0, err
	}
	size, err := nd.Size()
	return nd.Cid(), size, err
}

func (dg *DAGGenerator) nextSeq() int {
	dg.seq++
	return dg.seq
}
