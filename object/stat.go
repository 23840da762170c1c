// Package object computes statistics over DAG nodes and the subgraphs they
// root.
package object

import (
	"context"
	"math"
	"time"

	"github.com/ipfs/pincore/errs"
	"github.com/ipfs/pincore/metrics"
	"github.com/ipfs/pincore/path"
	"github.com/ipfs/pincore/tracing"

	cid "github.com/ipfs/go-cid"
	ipld "github.com/ipfs/go-ipld-format"
	logging "github.com/ipfs/go-log/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var log = logging.Logger("object")

// Stat describes a node and the subgraph below it.
type Stat struct {
	Hash           cid.Cid
	NumLinks       int // number of links in link table
	BlockSize      int // size of the raw, encoded data
	LinksSize      int // size of the links segment
	DataSize       int // size of the data segment
	CumulativeSize int // cumulative size of the node and every resolved descendant
}

// Statter computes stats by resolving every block of a DAG.
type Statter struct {
	DAG      ipld.NodeGetter
	Resolver *path.Resolver
}

// NewStatter returns a Statter reading nodes from ng and resolving paths
// with r.
func NewStatter(ng ipld.NodeGetter, r *path.Resolver) *Statter {
	return &Statter{DAG: ng, Resolver: r}
}

// StatPath resolves p and stats the node it names.
func (s *Statter) StatPath(ctx context.Context, p path.Path) (*Stat, error) {
	c, _, err := s.Resolver.ResolvePath(ctx, p)
	if err != nil {
		return nil, err
	}
	return s.Stat(ctx, c)
}

type frame struct {
	nd    ipld.Node
	links []*ipld.Link
	next  int
	cum   int
}

// Stat fetches root and every block reachable from it and returns the
// stat of root. CumulativeSize adds the resolved size of each linked
// subgraph, once per link, so a subgraph linked twice counts twice. The
// size hints stored in links are never used.
//
// Any unreachable or undecodable block fails the whole call.
func (s *Statter) Stat(ctx context.Context, root cid.Cid) (*Stat, error) {
	ctx, span := tracing.Span(ctx, "Statter", "Stat", trace.WithAttributes(attribute.Stringer("CID", root)))
	defer span.End()

	start := time.Now()
	defer func() { metrics.StatDuration.Observe(time.Since(start).Seconds()) }()

	rootNd, err := s.DAG.Get(ctx, root)
	if err != nil {
		return nil, err
	}

	// cumulative sizes of finished subgraphs
	memo := make(map[cid.Cid]int)
	// nodes on the current descent, for cycle detection
	active := map[cid.Cid]struct{}{root: {}}

	stack := []*frame{newFrame(rootNd)}
	var rootCum int
	for len(stack) > 0 {
		f := stack[len(stack)-1]

		if f.next < len(f.links) {
			c := f.links[f.next].Cid
			f.next++

			if size, ok := memo[c]; ok {
				if f.cum, err = addSize(f.cum, size); err != nil {
					return nil, err
				}
				continue
			}
			if _, ok := active[c]; ok {
				return nil, &errs.CycleError{Cid: c}
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			nd, err := s.DAG.Get(ctx, c)
			if err != nil {
				return nil, err
			}
			active[c] = struct{}{}
			stack = append(stack, newFrame(nd))
			continue
		}

		stack = stack[:len(stack)-1]
		c := f.nd.Cid()
		delete(active, c)
		memo[c] = f.cum

		if len(stack) == 0 {
			rootCum = f.cum
			break
		}
		parent := stack[len(stack)-1]
		if parent.cum, err = addSize(parent.cum, f.cum); err != nil {
			return nil, err
		}
	}

	st, err := localStat(rootNd)
	if err != nil {
		return nil, err
	}
	st.CumulativeSize = rootCum
	log.Debugw("stat", "cid", root, "cumulative", rootCum, "blocks", len(memo))
	return st, nil
}

func newFrame(nd ipld.Node) *frame {
	return &frame{
		nd:    nd,
		links: nd.Links(),
		cum:   len(nd.RawData()),
	}
}

// addSize adds two non-negative sizes, failing instead of wrapping.
func addSize(a, b int) (int, error) {
	if b > math.MaxInt-a {
		return 0, errs.ErrOverflow
	}
	return a + b, nil
}

func localStat(nd ipld.Node) (*Stat, error) {
	ns, err := nd.Stat()
	if err != nil {
		return nil, err
	}
	return &Stat{
		Hash:           nd.Cid(),
		NumLinks:       ns.NumLinks,
		BlockSize:      ns.BlockSize,
		LinksSize:      ns.BlockSize - ns.DataSize,
		DataSize:       ns.DataSize,
		CumulativeSize: ns.CumulativeSize,
	}, nil
}

// NodeStat returns the stat of nd without fetching anything: the cumulative
// size is taken from the size hints of its links.
func NodeStat(nd ipld.Node) (*Stat, error) {
	return localStat(nd)
}
