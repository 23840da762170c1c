package pin

import (
	"context"
	"errors"

	"github.com/ipfs/pincore/errs"
	dag "github.com/ipfs/pincore/merkledag"
	"github.com/ipfs/pincore/tracing"

	cid "github.com/ipfs/go-cid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// walkIndirect walks the recursive roots of s in insertion order and calls
// fn once for every cid found below a root, along with the first root whose
// walk reached it. Roots reached from an earlier root are not walked again.
// fn returns false to end the walk.
func (p *Pinner) walkIndirect(ctx context.Context, s *snapshot, fn func(c, via cid.Cid) bool) error {
	getLinks := dag.GetLinksDirect(p.dserv)
	seen := cid.NewSet()
	stopped := false

	for _, root := range s.keys(Recursive) {
		visit := func(c cid.Cid) bool {
			if stopped || !seen.Visit(c) {
				return false
			}
			if !c.Equals(root) && !fn(c, root) {
				stopped = true
				return false
			}
			return true
		}
		if err := dag.WalkOrdered(ctx, getLinks, root, visit); err != nil {
			return err
		}
		if stopped {
			return nil
		}
	}
	return nil
}

// Ls lists the pins of the given mode. With Any every pinned cid appears
// once: recursive before direct before indirect. Indirect listings never
// include a cid that is itself pinned directly or recursively.
func (p *Pinner) Ls(ctx context.Context, mode Mode) ([]Listing, error) {
	ctx, span := tracing.Span(ctx, "Pinner", "Ls", trace.WithAttributes(attribute.Stringer("Mode", mode)))
	defer span.End()

	s := p.current()
	var out []Listing

	switch mode {
	case Recursive, Direct, Indirect, Any:
	default:
		return nil, errs.InvalidArgument("invalid pin type %q, must be one of {direct, indirect, recursive, all}", mode)
	}

	if mode == Recursive || mode == Any {
		for _, c := range s.keys(Recursive) {
			out = append(out, Listing{Cid: c, Mode: Recursive})
		}
	}
	if mode == Direct || mode == Any {
		for _, c := range s.keys(Direct) {
			if mode == Any && s.has(c, Recursive) {
				continue
			}
			out = append(out, Listing{Cid: c, Mode: Direct})
		}
	}
	if mode == Indirect || mode == Any {
		err := p.walkIndirect(ctx, s, func(c, via cid.Cid) bool {
			if !s.has(c, Recursive) && !s.has(c, Direct) {
				out = append(out, Listing{Cid: c, Mode: Indirect, Via: via})
			}
			return true
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// LsCid returns the single listing of c under mode, or *ErrNotPinned.
func (p *Pinner) LsCid(ctx context.Context, c cid.Cid, mode Mode) ([]Listing, error) {
	ctx, span := tracing.Span(ctx, "Pinner", "LsCid", trace.WithAttributes(attribute.Stringer("CID", c), attribute.Stringer("Mode", mode)))
	defer span.End()

	switch mode {
	case Recursive, Direct, Indirect, Any:
	default:
		return nil, errs.InvalidArgument("invalid pin type %q, must be one of {direct, indirect, recursive, all}", mode)
	}

	l, err := p.classify(ctx, p.current(), c, mode)
	if err != nil {
		return nil, err
	}
	if !l.Pinned() {
		return nil, &ErrNotPinned{Cid: c, Mode: mode}
	}
	return []Listing{l}, nil
}

func (p *Pinner) classify(ctx context.Context, s *snapshot, c cid.Cid, mode Mode) (Listing, error) {
	if (mode == Recursive || mode == Any) && s.has(c, Recursive) {
		return Listing{Cid: c, Mode: Recursive}, nil
	}
	if (mode == Direct || mode == Any) && s.has(c, Direct) {
		return Listing{Cid: c, Mode: Direct}, nil
	}
	if mode != Indirect && mode != Any {
		return Listing{Cid: c, Mode: NotPinned}, nil
	}
	if s.has(c, Recursive) || s.has(c, Direct) {
		return Listing{Cid: c, Mode: NotPinned}, nil
	}

	out := Listing{Cid: c, Mode: NotPinned}
	err := p.walkIndirect(ctx, s, func(found, via cid.Cid) bool {
		if found.Equals(c) {
			out = Listing{Cid: c, Mode: Indirect, Via: via}
			return false
		}
		return true
	})
	return out, err
}

// IsPinned returns whether c is pinned in any way, and the reason.
func (p *Pinner) IsPinned(ctx context.Context, c cid.Cid) (string, bool, error) {
	return p.IsPinnedWithType(ctx, c, Any)
}

// IsPinnedWithType returns whether c is pinned under mode. The reason is the
// listing classification, e.g. "indirect through <cid>".
func (p *Pinner) IsPinnedWithType(ctx context.Context, c cid.Cid, mode Mode) (string, bool, error) {
	l, err := p.LsCid(ctx, c, mode)
	if errors.Is(err, ErrNotPinnedKind) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return l[0].Classification(), true, nil
}

// CheckIfPinned classifies every cid with one pass over the recursive pins.
// Cids that are not pinned come back with Mode NotPinned.
func (p *Pinner) CheckIfPinned(ctx context.Context, cids ...cid.Cid) ([]Listing, error) {
	s := p.current()
	out := make([]Listing, 0, len(cids))

	pending := make(map[cid.Cid]int)
	for _, c := range cids {
		switch {
		case s.has(c, Recursive):
			out = append(out, Listing{Cid: c, Mode: Recursive})
		case s.has(c, Direct):
			out = append(out, Listing{Cid: c, Mode: Direct})
		default:
			if _, dup := pending[c]; !dup {
				pending[c] = len(out)
			}
			out = append(out, Listing{Cid: c, Mode: NotPinned})
		}
	}
	if len(pending) == 0 {
		return out, nil
	}

	left := len(pending)
	err := p.walkIndirect(ctx, s, func(c, via cid.Cid) bool {
		if i, ok := pending[c]; ok {
			out[i] = Listing{Cid: c, Mode: Indirect, Via: via}
			left--
		}
		return left > 0
	})
	if err != nil {
		return nil, err
	}

	// repeated cids share the classification of their first occurrence
	for i := range out {
		if j, ok := pending[out[i].Cid]; ok && j != i {
			out[i] = out[j]
		}
	}
	return out, nil
}

// BadNode is a node of a pinned DAG that could not be retrieved or decoded.
type BadNode struct {
	Cid cid.Cid
	Err error
}

// PinStatus reports the health of one pin.
type PinStatus struct {
	Cid      cid.Cid
	Mode     Mode
	BadNodes []BadNode
}

// Ok reports whether every node of the pin is available.
func (s PinStatus) Ok() bool {
	return len(s.BadNodes) == 0
}

// Verify checks that every pinned DAG is complete. Missing or undecodable
// nodes are reported per pin; they do not stop the check.
func (p *Pinner) Verify(ctx context.Context) ([]PinStatus, error) {
	ctx, span := tracing.Span(ctx, "Pinner", "Verify")
	defer span.End()

	s := p.current()
	getLinks := dag.GetLinksDirect(p.dserv)
	out := make([]PinStatus, 0, len(s.entries))

	for _, e := range s.entries {
		st := PinStatus{Cid: e.Cid, Mode: e.Mode}
		onError := func(c cid.Cid, err error) error {
			if ctx.Err() != nil {
				return err
			}
			st.BadNodes = append(st.BadNodes, BadNode{Cid: c, Err: err})
			return nil
		}

		if e.Mode == Direct {
			if _, err := p.dserv.Get(ctx, e.Cid); err != nil {
				if err := onError(e.Cid, err); err != nil {
					return nil, err
				}
			}
		} else {
			seen := cid.NewSet()
			err := dag.Walk(ctx, getLinks, e.Cid, seen.Visit, dag.OnError(onError))
			if err != nil {
				return nil, err
			}
		}

		if !st.Ok() {
			log.Warnw("pin is incomplete", "cid", e.Cid, "mode", e.Mode, "bad", len(st.BadNodes))
		}
		out = append(out, st)
	}
	return out, nil
}
