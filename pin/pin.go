// Package pin implements the pin set: the persisted record of which DAGs
// must be kept by the garbage collector.
package pin

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ipfs/pincore/errs"
	dag "github.com/ipfs/pincore/merkledag"
	"github.com/ipfs/pincore/metrics"
	"github.com/ipfs/pincore/tracing"

	cid "github.com/ipfs/go-cid"
	ds "github.com/ipfs/go-datastore"
	ipld "github.com/ipfs/go-ipld-format"
	logging "github.com/ipfs/go-log/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var log = logging.Logger("pin")

// Mode allows to specify different types of pin (recursive, direct etc.).
// See the Pin Modes constants for a full list.
type Mode int

// Pin Modes
const (
	// Recursive pins pin the target cids along with any reachable children.
	Recursive Mode = iota

	// Direct pins pin just the target cid.
	Direct

	// Indirect pins are cids who have some ancestor pinned recursively.
	Indirect

	// NotPinned marks a cid that is not pinned in any way.
	NotPinned

	// Any refers to any pinned cid.
	Any
)

var modeNames = map[Mode]string{
	Recursive: "recursive",
	Direct:    "direct",
	Indirect:  "indirect",
	NotPinned: "not pinned",
	Any:       "all",
}

// ModeToString returns a human-readable name for the Mode.
func ModeToString(mode Mode) (string, bool) {
	s, ok := modeNames[mode]
	return s, ok
}

// StringToMode parses the result of ModeToString() back to a Mode.
// It returns a boolean which is set to false if the mode is unknown.
func StringToMode(s string) (Mode, bool) {
	switch s {
	case "recursive":
		return Recursive, true
	case "direct":
		return Direct, true
	case "indirect":
		return Indirect, true
	case "all", "any":
		return Any, true
	}
	return NotPinned, false
}

func (m Mode) String() string {
	if s, ok := ModeToString(m); ok {
		return s
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ErrNotPinnedKind is matched by every *ErrNotPinned.
var ErrNotPinnedKind = errors.New("not pinned")

// ErrNotPinned is returned when a cid holds no pin of the requested mode.
type ErrNotPinned struct {
	Cid  cid.Cid
	Mode Mode
}

func (e *ErrNotPinned) Error() string {
	switch e.Mode {
	case Recursive:
		return fmt.Sprintf("%s is not pinned recursively", e.Cid)
	case Direct:
		return fmt.Sprintf("%s is not pinned directly", e.Cid)
	case Indirect:
		return fmt.Sprintf("%s is not pinned indirectly", e.Cid)
	default:
		return fmt.Sprintf("%s is not pinned", e.Cid)
	}
}

func (e *ErrNotPinned) Is(target error) bool { return target == ErrNotPinnedKind }

// NotPinned marks the error for errs.Kind.
func (e *ErrNotPinned) NotPinned() bool { return true }

// Entry is one persisted pin. Seq orders entries by insertion.
type Entry struct {
	Cid  cid.Cid
	Mode Mode
	Seq  uint64
}

// Listing is one row of a pin listing. Via is the recursive root an
// indirect pin was reached from.
type Listing struct {
	Cid  cid.Cid
	Mode Mode
	Via  cid.Cid
}

// Pinned reports whether the listing describes a pinned cid.
func (l Listing) Pinned() bool {
	return l.Mode != NotPinned
}

// Classification renders the pin type the way listings print it.
func (l Listing) Classification() string {
	switch l.Mode {
	case Indirect:
		return "indirect through " + l.Via.String()
	default:
		return l.Mode.String()
	}
}

// Option configures a Pinner.
type Option func(*Pinner)

// WalkConcurrency sets how many nodes are fetched in parallel while checking
// that a recursive pin is complete.
func WalkConcurrency(n int) Option {
	return func(p *Pinner) {
		p.walkConcurrency = n
	}
}

// Pinner holds the pin set of a repo. It is safe for concurrent use.
type Pinner struct {
	dstore          ds.Datastore
	dserv           ipld.NodeGetter
	walkConcurrency int

	// writeLk serializes mutations, from resolution through persistence.
	writeLk sync.Mutex

	lk    sync.RWMutex
	state *snapshot
}

// New loads the pin set stored in dstore. Nodes are fetched from dserv.
func New(ctx context.Context, dstore ds.Datastore, dserv ipld.NodeGetter, opts ...Option) (*Pinner, error) {
	s, err := loadSnapshot(ctx, dstore)
	if err != nil {
		return nil, err
	}

	p := &Pinner{
		dstore:          dstore,
		dserv:           dserv,
		walkConcurrency: dag.DefaultConcurrentFetch,
		state:           s,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.report(s)
	log.Debugw("loaded pin set", "recursive", len(s.recursive), "direct", len(s.direct))
	return p, nil
}

func (p *Pinner) current() *snapshot {
	p.lk.RLock()
	defer p.lk.RUnlock()
	return p.state
}

// commit persists next and then makes it the visible state. On failure the
// visible state is left untouched.
func (p *Pinner) commit(ctx context.Context, next *snapshot) error {
	if err := saveSnapshot(ctx, p.dstore, next); err != nil {
		if rerr := saveSnapshot(context.WithoutCancel(ctx), p.dstore, p.current()); rerr != nil {
			log.Errorw("failed to restore pin set after a failed write", "error", rerr)
		}
		return err
	}

	p.lk.Lock()
	p.state = next
	p.lk.Unlock()

	p.report(next)
	return nil
}

func (p *Pinner) report(s *snapshot) {
	metrics.Pins.WithLabelValues(Recursive.String()).Set(float64(len(s.recursive)))
	metrics.Pins.WithLabelValues(Direct.String()).Set(float64(len(s.direct)))
}

// Pin adds a pin of the given mode on c. A recursive pin requires c and
// every node reachable from it to be retrievable; a direct pin only
// requires c. Pinning twice with the same mode does nothing.
func (p *Pinner) Pin(ctx context.Context, c cid.Cid, mode Mode) error {
	ctx, span := tracing.Span(ctx, "Pinner", "Pin", trace.WithAttributes(attribute.Stringer("CID", c), attribute.Stringer("Mode", mode)))
	defer span.End()

	if mode != Recursive && mode != Direct {
		return errs.InvalidArgument("cannot pin with mode %q", mode)
	}
	if !c.Defined() {
		return errs.InvalidArgument("cannot pin an undefined cid")
	}

	p.writeLk.Lock()
	defer p.writeLk.Unlock()

	cur := p.current()
	if cur.has(c, mode) {
		return nil
	}

	var err error
	if mode == Recursive {
		err = p.fetchClosure(ctx, c)
	} else {
		_, err = p.dserv.Get(ctx, c)
		err = unresolvable(c, err)
	}
	if err != nil {
		return err
	}

	if err := p.commit(ctx, cur.with(c, mode)); err != nil {
		return err
	}
	log.Infow("pinned", "cid", c, "mode", mode)
	return nil
}

// Unpin removes the pin of the given mode on c; Any removes every pin c
// holds. Pins held by nodes below c are not touched.
func (p *Pinner) Unpin(ctx context.Context, c cid.Cid, mode Mode) error {
	ctx, span := tracing.Span(ctx, "Pinner", "Unpin", trace.WithAttributes(attribute.Stringer("CID", c), attribute.Stringer("Mode", mode)))
	defer span.End()

	var modes []Mode
	switch mode {
	case Recursive, Direct:
		modes = []Mode{mode}
	case Any:
		modes = []Mode{Recursive, Direct}
	default:
		return errs.InvalidArgument("cannot unpin with mode %q", mode)
	}

	p.writeLk.Lock()
	defer p.writeLk.Unlock()

	cur := p.current()
	next := cur
	for _, m := range modes {
		if next.has(c, m) {
			next = next.without(c, m)
		}
	}
	if next == cur {
		return &ErrNotPinned{Cid: c, Mode: mode}
	}

	if err := p.commit(ctx, next); err != nil {
		return err
	}
	log.Infow("unpinned", "cid", c, "mode", mode)
	return nil
}

// Update moves a recursive pin from one root to another. The new root's
// DAG must be fully retrievable. With unpin false the old pin is kept.
func (p *Pinner) Update(ctx context.Context, from, to cid.Cid, unpin bool) error {
	ctx, span := tracing.Span(ctx, "Pinner", "Update", trace.WithAttributes(attribute.Stringer("From", from), attribute.Stringer("To", to)))
	defer span.End()

	p.writeLk.Lock()
	defer p.writeLk.Unlock()

	cur := p.current()
	if !cur.has(from, Recursive) {
		return &ErrNotPinned{Cid: from, Mode: Recursive}
	}
	if from.Equals(to) {
		return nil
	}

	if err := p.fetchClosure(ctx, to); err != nil {
		return err
	}

	next := cur
	if !next.has(to, Recursive) {
		next = next.with(to, Recursive)
	}
	if unpin {
		next = next.without(from, Recursive)
	}
	if err := p.commit(ctx, next); err != nil {
		return err
	}
	log.Infow("updated pin", "from", from, "to", to, "unpin", unpin)
	return nil
}

// fetchClosure retrieves root and everything below it, failing on the
// first node that cannot be retrieved.
func (p *Pinner) fetchClosure(ctx context.Context, root cid.Cid) error {
	getLinks := dag.GetLinksDirect(p.dserv)
	strict := func(ctx context.Context, c cid.Cid) ([]*ipld.Link, error) {
		links, err := getLinks(ctx, c)
		if err != nil {
			return nil, unresolvable(c, err)
		}
		return links, nil
	}

	seen := cid.NewSet()
	return dag.Walk(ctx, strict, root, seen.Visit, dag.Concurrency(p.walkConcurrency))
}

// unresolvable wraps a fetch failure. Context errors are returned as they
// are, so callers see the cancellation rather than a missing target.
func unresolvable(c cid.Cid, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &errs.UnresolvableError{Cid: c, Err: err}
}

// DirectKeys returns the directly pinned cids in insertion order.
func (p *Pinner) DirectKeys(ctx context.Context) ([]cid.Cid, error) {
	return p.current().keys(Direct), nil
}

// RecursiveKeys returns the recursively pinned cids in insertion order.
func (p *Pinner) RecursiveKeys(ctx context.Context) ([]cid.Cid, error) {
	return p.current().keys(Recursive), nil
}

// Entries returns a copy of the persisted entries in insertion order.
func (p *Pinner) Entries() []Entry {
	s := p.current()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// snapshot is an immutable view of the pin set. Mutations build a new one.
type snapshot struct {
	seq       uint64
	entries   []Entry
	recursive map[cid.Cid]uint64
	direct    map[cid.Cid]uint64
}

func newSnapshot(seq uint64, entries []Entry) (*snapshot, error) {
	s := &snapshot{
		seq:       seq,
		entries:   entries,
		recursive: make(map[cid.Cid]uint64),
		direct:    make(map[cid.Cid]uint64),
	}
	sort.SliceStable(s.entries, func(i, j int) bool { return s.entries[i].Seq < s.entries[j].Seq })
	for _, e := range s.entries {
		set := s.set(e.Mode)
		if _, dup := set[e.Cid]; dup {
			return nil, fmt.Errorf("pin set holds %s twice as %s", e.Cid, e.Mode)
		}
		set[e.Cid] = e.Seq
	}
	return s, nil
}

func (s *snapshot) set(mode Mode) map[cid.Cid]uint64 {
	if mode == Recursive {
		return s.recursive
	}
	return s.direct
}

func (s *snapshot) has(c cid.Cid, mode Mode) bool {
	_, ok := s.set(mode)[c]
	return ok
}

func (s *snapshot) keys(mode Mode) []cid.Cid {
	out := make([]cid.Cid, 0, len(s.set(mode)))
	for _, e := range s.entries {
		if e.Mode == mode {
			out = append(out, e.Cid)
		}
	}
	return out
}

func (s *snapshot) with(c cid.Cid, mode Mode) *snapshot {
	seq := s.seq + 1
	entries := make([]Entry, len(s.entries), len(s.entries)+1)
	copy(entries, s.entries)
	entries = append(entries, Entry{Cid: c, Mode: mode, Seq: seq})
	next, _ := newSnapshot(seq, entries)
	return next
}

func (s *snapshot) without(c cid.Cid, mode Mode) *snapshot {
	entries := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if e.Mode == mode && e.Cid.Equals(c) {
			continue
		}
		entries = append(entries, e)
	}
	next, _ := newSnapshot(s.seq+1, entries)
	return next
}
