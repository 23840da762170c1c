/*
Package coreapi provides direct access to the core operations of a pincore
node: pinning, path resolution, object stats and garbage collection.

The command line talks to a node only through this package. Mutations of
the pin set hold the blockstore's PinLock, so they never interleave with a
garbage collection pass; listings and stats hold ReadLock, so they never
observe blocks disappearing under them.
*/
package coreapi

import (
	"github.com/ipfs/pincore/blocks/blockstore"
	"github.com/ipfs/pincore/core"
	"github.com/ipfs/pincore/object"
	"github.com/ipfs/pincore/path"
	"github.com/ipfs/pincore/pin"
	"github.com/ipfs/pincore/repo"

	ipld "github.com/ipfs/go-ipld-format"
	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("coreapi")

// CoreAPI is the facade over a pincore node.
type CoreAPI struct {
	repo       repo.Repo
	blockstore blockstore.GCBlockstore
	pinning    *pin.Pinner

	dag      ipld.DAGService
	resolver *path.Resolver
	statter  *object.Statter
}

// NewCoreAPI creates new instance of CoreAPI backed by a pincore node.
func NewCoreAPI(n *core.PincoreNode) *CoreAPI {
	return &CoreAPI{
		repo:       n.Repo,
		blockstore: n.Blockstore,
		pinning:    n.Pinning,

		dag:      n.DAG,
		resolver: n.Resolver,
		statter:  n.Statter,
	}
}

// Pin returns the PinAPI backed by the node
func (api *CoreAPI) Pin() *PinAPI {
	return (*PinAPI)(api)
}

// Block returns the BlockAPI backed by the node
func (api *CoreAPI) Block() *BlockAPI {
	return (*BlockAPI)(api)
}

// Object returns the ObjectAPI backed by the node
func (api *CoreAPI) Object() *ObjectAPI {
	return (*ObjectAPI)(api)
}

// Repo returns the RepoAPI backed by the node
func (api *CoreAPI) Repo() *RepoAPI {
	return (*RepoAPI)(api)
}

// Dag returns the DAG service of the node.
func (api *CoreAPI) Dag() ipld.DAGService {
	return api.dag
}
