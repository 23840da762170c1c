/*
Package core implements the pincore node: a repo, the block layers over its
datastore, the DAG built on them, and the pin set that decides what
garbage collection keeps.

Nodes are assembled with go.uber.org/fx from the units in core/node; use
NewNode to build one and Close to release it.
*/
package core

import (
	"context"

	"github.com/ipfs/pincore/blocks/blockstore"
	"github.com/ipfs/pincore/blockservice"
	"github.com/ipfs/pincore/exchange"
	"github.com/ipfs/pincore/object"
	"github.com/ipfs/pincore/path"
	"github.com/ipfs/pincore/pin"
	"github.com/ipfs/pincore/repo"

	ipld "github.com/ipfs/go-ipld-format"
	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("core")

// PincoreNode is the pincore core module. It represents a pincore instance.
type PincoreNode struct {
	Repo repo.Repo

	// Local node
	Pinning *pin.Pinner // the pinning manager

	// Services
	Blockstore blockstore.GCBlockstore   // the block store (lower level)
	GCLocker   blockstore.GCLocker       // the locker used to protect the blockstore during gc
	Blocks     blockservice.BlockService // the block service, get/add blocks.
	DAG        ipld.DAGService           // the merkle dag service, get/add objects.
	Resolver   *path.Resolver            // the path resolution system
	Statter    *object.Statter           // cumulative DAG statistics
	Exchange   exchange.Interface        // the block exchange, offline unless configured

	ctx  context.Context
	stop func() error
}

// Context returns the node context. It is cancelled when the node closes.
func (n *PincoreNode) Context() context.Context {
	if n.ctx == nil {
		n.ctx = context.TODO()
	}
	return n.ctx
}

// Close calls Close() on the App object
func (n *PincoreNode) Close() error {
	return n.stop()
}
