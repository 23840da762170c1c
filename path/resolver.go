package path

import (
	"context"
	"errors"
	"fmt"
	"time"

	dag "github.com/ipfs/pincore/merkledag"
	"github.com/ipfs/pincore/tracing"

	cid "github.com/ipfs/go-cid"
	ipld "github.com/ipfs/go-ipld-format"
	logging "github.com/ipfs/go-log/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var log = logging.Logger("path")

// DefaultFetchTimeout bounds every node fetch made while resolving a path.
const DefaultFetchTimeout = time.Minute

// ErrNoLink is returned when a link is not found in a path
type ErrNoLink struct {
	Name string
	Node cid.Cid
}

func (e *ErrNoLink) Error() string {
	return fmt.Sprintf("no link named %q under %s", e.Name, e.Node)
}

// NoSuchLink marks the error for errs.Kind.
func (e *ErrNoLink) NoSuchLink() bool { return true }

// Resolver provides path resolution over a NodeGetter.
type Resolver struct {
	DAG ipld.NodeGetter

	// FetchTimeout bounds each node fetch on top of the caller's context.
	// Zero disables it.
	FetchTimeout time.Duration
}

// NewBasicResolver constructs a Resolver with the default fetch timeout.
func NewBasicResolver(ng ipld.NodeGetter) *Resolver {
	return &Resolver{DAG: ng, FetchTimeout: DefaultFetchTimeout}
}

func (r *Resolver) get(ctx context.Context, c cid.Cid) (ipld.Node, error) {
	if r.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.FetchTimeout)
		defer cancel()
	}
	return r.DAG.Get(ctx, c)
}

// ResolvePath resolves fpath to the CID of the node it names. The returned
// slice holds the part of the path left for the codec to resolve inside that
// node; it is empty for dag-pb and raw nodes.
func (r *Resolver) ResolvePath(ctx context.Context, fpath Path) (cid.Cid, []string, error) {
	ctx, span := tracing.Span(ctx, "Resolver", "ResolvePath", trace.WithAttributes(attribute.String("Path", fpath.String())))
	defer span.End()

	nodes, rest, err := r.resolve(ctx, fpath)
	if err != nil {
		return cid.Undef, nil, err
	}
	return nodes[len(nodes)-1].Cid(), rest, nil
}

// ResolvePathComponents fetches the nodes for each segment of the given path.
// It uses the first path component as the CID of the first node, then
// resolves all other components walking the links, with ResolveLinks.
func (r *Resolver) ResolvePathComponents(ctx context.Context, fpath Path) ([]ipld.Node, error) {
	nodes, _, err := r.resolve(ctx, fpath)
	return nodes, err
}

func (r *Resolver) resolve(ctx context.Context, fpath Path) ([]ipld.Node, []string, error) {
	root, parts, err := SplitAbsPath(fpath)
	if err != nil {
		return nil, nil, err
	}

	log.Debugw("resolve", "path", fpath)
	nd, err := r.get(ctx, root)
	if err != nil {
		return nil, nil, err
	}

	return r.resolveLinks(ctx, nd, parts)
}

// ResolveLinks iteratively resolves names by walking the link hierarchy.
// Every node is fetched from the NodeGetter, resolving the next name.
// Returns the list of nodes forming the path, starting with ndd.
//
// ResolveLinks(nd, []string{"foo", "bar", "baz"})
// would retrieve "baz" in ("bar" in ("foo" in nd.Links).Links).Links
func (r *Resolver) ResolveLinks(ctx context.Context, ndd ipld.Node, names []string) ([]ipld.Node, error) {
	nodes, _, err := r.resolveLinks(ctx, ndd, names)
	return nodes, err
}

func (r *Resolver) resolveLinks(ctx context.Context, ndd ipld.Node, names []string) ([]ipld.Node, []string, error) {
	result := make([]ipld.Node, 0, len(names)+1)
	result = append(result, ndd)
	nd := ndd

	rest := names
	for len(rest) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		name := rest[0]
		lnk, next, err := nd.ResolveLink(rest)
		switch {
		case errors.Is(err, dag.ErrLinkNotFound):
			return nil, nil, &ErrNoLink{Name: name, Node: nd.Cid()}
		case err != nil:
			return nil, nil, err
		}

		nextnode, err := r.get(ctx, lnk.Cid)
		if err != nil {
			return nil, nil, err
		}

		nd = nextnode
		rest = next
		result = append(result, nextnode)
	}
	return result, nil, nil
}
