package merkledag

import (
	"context"

	cid "github.com/ipfs/go-cid"
	ipld "github.com/ipfs/go-ipld-format"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrentFetch is the number of node fetches a concurrent walk
// keeps in flight.
const DefaultConcurrentFetch = 32

// GetLinks is the type of function passed to the walkers to retrieve the
// links of a node.
type GetLinks func(context.Context, cid.Cid) ([]*ipld.Link, error)

// GetLinksDirect creates a function to get the links for a node, from
// the node, bypassing the LinkService.
//
// If the node does not exist locally (and can not be retrieved) an error will
// be returned.
func GetLinksDirect(serv ipld.NodeGetter) GetLinks {
	return func(ctx context.Context, c cid.Cid) ([]*ipld.Link, error) {
		nd, err := serv.Get(ctx, c)
		if err != nil {
			return nil, err
		}
		return nd.Links(), nil
	}
}

// walkOptions represent the parameters of a graph walking algorithm
type walkOptions struct {
	SkipRoot     bool
	Concurrency  int
	ErrorHandler func(c cid.Cid, err error) error
}

// WalkOption is a setter for walkOptions
type WalkOption func(*walkOptions)

// SkipRoot is a WalkOption indicating that the root node should skipped
func SkipRoot() WalkOption {
	return func(walkOptions *walkOptions) {
		walkOptions.SkipRoot = true
	}
}

// Concurrent is a WalkOption indicating that node fetching should be done in
// parallel, with the default concurrency factor.
// NOTE: When using that option, the walk order is *not* guaranteed.
// NOTE: It *does not* make multiple concurrent calls to the passed `visit` function.
func Concurrent() WalkOption {
	return func(walkOptions *walkOptions) {
		walkOptions.Concurrency = DefaultConcurrentFetch
	}
}

// Concurrency is a WalkOption indicating that node fetching should be done in
// parallel, with a specific concurrency factor.
// NOTE: When using that option, the walk order is *not* guarantee.
// NOTE: It *does not* make multiple concurrent calls to the passed `visit` function.
func Concurrency(worker int) WalkOption {
	return func(walkOptions *walkOptions) {
		walkOptions.Concurrency = worker
	}
}

// OnError is a WalkOption given a handler called with the CID whose links
// could not be fetched. If the handler returns nil the walk skips that
// subtree and carries on; otherwise the returned error aborts the walk.
func OnError(handler func(c cid.Cid, err error) error) WalkOption {
	return func(walkOptions *walkOptions) {
		walkOptions.ErrorHandler = handler
	}
}

func (o *walkOptions) handle(c cid.Cid, err error) error {
	if o.ErrorHandler == nil {
		return err
	}
	return o.ErrorHandler(c, err)
}

// Walk walks the graph starting at root. visit is called once for every
// node reached and returns true when the node's links should be explored.
// Nodes are visited in depth-first pre-order, following links in the order
// they are stored, unless a concurrency option is given.
//
// The walk keeps an explicit work stack, so the depth of the DAG does not
// grow the goroutine stack.
func Walk(ctx context.Context, getLinks GetLinks, root cid.Cid, visit func(cid.Cid) bool, options ...WalkOption) error {
	opts := &walkOptions{}
	for _, opt := range options {
		opt(opts)
	}

	if opts.Concurrency > 1 {
		return parallelWalk(ctx, getLinks, root, visit, opts)
	}
	return sequentialWalk(ctx, getLinks, root, visit, opts)
}

// WalkOrdered is Walk restricted to the sequential depth-first pre-order,
// whatever concurrency option is given.
func WalkOrdered(ctx context.Context, getLinks GetLinks, root cid.Cid, visit func(cid.Cid) bool, options ...WalkOption) error {
	opts := &walkOptions{}
	for _, opt := range options {
		opt(opts)
	}
	return sequentialWalk(ctx, getLinks, root, visit, opts)
}

func sequentialWalk(ctx context.Context, getLinks GetLinks, root cid.Cid, visit func(cid.Cid) bool, opts *walkOptions) error {
	stack := []cid.Cid{root}
	isRoot := true
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !(isRoot && opts.SkipRoot) && !visit(c) {
			isRoot = false
			continue
		}
		isRoot = false

		links, err := getLinks(ctx, c)
		if err != nil {
			if err := opts.handle(c, err); err != nil {
				return err
			}
			continue
		}

		// pushed in reverse so the first link is explored first
		for i := len(links) - 1; i >= 0; i-- {
			stack = append(stack, links[i].Cid)
		}
	}
	return nil
}

type fetchResult struct {
	c     cid.Cid
	links []*ipld.Link
	err   error
}

// parallelWalk keeps visit on the calling goroutine. A fixed pool of workers
// fetches links and hands them back; the caller decides what to fetch next.
func parallelWalk(ctx context.Context, getLinks GetLinks, root cid.Cid, visit func(cid.Cid) bool, opts *walkOptions) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	todo := make(chan cid.Cid)
	done := make(chan fetchResult)

	for i := 0; i < opts.Concurrency; i++ {
		g.Go(func() error {
			for c := range todo {
				links, err := getLinks(gctx, c)
				select {
				case done <- fetchResult{c: c, links: links, err: err}:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}

	var queue []cid.Cid
	if opts.SkipRoot || visit(root) {
		queue = append(queue, root)
	}

	var walkErr error
	inFlight := 0
	for walkErr == nil && (len(queue) > 0 || inFlight > 0) {
		var send chan<- cid.Cid
		var next cid.Cid
		if len(queue) > 0 {
			send = todo
			next = queue[len(queue)-1]
		}

		select {
		case send <- next:
			queue = queue[:len(queue)-1]
			inFlight++
		case res := <-done:
			inFlight--
			if res.err != nil {
				walkErr = opts.handle(res.c, res.err)
				continue
			}
			for _, l := range res.links {
				if visit(l.Cid) {
					queue = append(queue, l.Cid)
				}
			}
		case <-gctx.Done():
			walkErr = gctx.Err()
		}
	}

	close(todo)
	cancel()
	_ = g.Wait()
	return walkErr
}
