// Package path contains utilities to work with pincore paths and resolve
// them against the DAG.
package path

import (
	"strings"

	"github.com/ipfs/pincore/errs"

	cid "github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"
)

var (
	// ErrBadPath is returned when a given path is incorrectly formatted
	ErrBadPath = errs.InvalidArgument("invalid path")

	// ErrNoComponents is used when Paths after a protocol
	// do not contain at least one component
	ErrNoComponents = errs.InvalidArgument("path must contain at least one component")
)

// A Path represents a content path rooted at a CID:
//   - /ipfs/<cid>
//   - /ipfs/<cid>/path/to/file
//
// Paths are always stored with the /ipfs/ prefix.
type Path string

// FromCid safely converts a cid.Cid type to a Path type.
func FromCid(c cid.Cid) Path {
	return Path("/ipfs/" + c.String())
}

// Segments returns the different elements of a path (elements are
// delimited by a /). Runs of slashes count as one separator. "." and ".."
// are kept as they are: they are link names like any other.
func (p Path) Segments() []string {
	segments := strings.Split(string(p), "/")
	out := segments[:0]
	for _, s := range segments {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// String converts a path to string.
func (p Path) String() string {
	return string(p)
}

// IsJustAKey returns true if the path is of the form /ipfs/<cid>.
func (p Path) IsJustAKey() bool {
	parts := p.Segments()
	return len(parts) == 2 && parts[0] == "ipfs"
}

// Root returns the CID the path starts at.
func (p Path) Root() (cid.Cid, error) {
	c, _, err := SplitAbsPath(p)
	return c, err
}

// PopLastSegment returns a new Path without its final segment, and the final
// segment, separately. If there is no more to pop (the path is just a key),
// the original path is returned.
func (p Path) PopLastSegment() (Path, string, error) {
	if p.IsJustAKey() {
		return p, "", nil
	}

	segs := p.Segments()
	newPath, err := ParsePath("/" + strings.Join(segs[:len(segs)-1], "/"))
	if err != nil {
		return "", "", err
	}

	return newPath, segs[len(segs)-1], nil
}

// Join returns a new path with the names appended.
func (p Path) Join(names ...string) Path {
	if len(names) == 0 {
		return p
	}
	return Path(strings.TrimSuffix(string(p), "/") + "/" + strings.Join(names, "/"))
}

// FromSegments returns a path given its different segments.
func FromSegments(prefix string, seg ...string) (Path, error) {
	return ParsePath(prefix + strings.Join(seg, "/"))
}

// ParsePath returns a well-formed Path. The /ipfs/ prefix is added if the
// string starts with a CID. Anything else that does not start with
// /ipfs/<cid> is rejected.
func ParsePath(txt string) (Path, error) {
	if txt == "" {
		return "", ErrNoComponents
	}

	parts := strings.Split(txt, "/")

	// if the path doesnt begin with a '/'
	// we expect this to start with a CID
	if parts[0] != "" {
		if _, err := decodeRoot(parts[0]); err != nil {
			return "", err
		}
		return Path("/ipfs/" + txt), nil
	}

	if len(parts) < 3 || parts[1] != "ipfs" {
		return "", errs.InvalidArgument("invalid path %q: must start with /ipfs/<cid> or <cid>", txt)
	}
	if _, err := decodeRoot(parts[2]); err != nil {
		return "", err
	}

	return Path(txt), nil
}

func decodeRoot(txt string) (cid.Cid, error) {
	if txt == "" {
		return cid.Undef, ErrNoComponents
	}
	c, err := cid.Decode(txt)
	if err != nil {
		return cid.Undef, errs.InvalidArgument("invalid cid %q: %s", txt, err)
	}
	return c, nil
}

// ParseCid is the single place untyped input becomes a CID. It accepts
// a string holding a bare CID or an /ipfs/<cid> path without further
// components, a binary CID, a multihash (read as CIDv0) or a cid.Cid.
func ParseCid(v interface{}) (cid.Cid, error) {
	var c cid.Cid
	var err error
	switch v := v.(type) {
	case string:
		var p Path
		p, err = ParsePath(v)
		if err != nil {
			return cid.Undef, err
		}
		var rest []string
		c, rest, err = SplitAbsPath(p)
		if err == nil && len(rest) > 0 {
			return cid.Undef, errs.InvalidArgument("%q is a path, not a cid", v)
		}
	case []byte:
		c, err = cid.Cast(v)
	case mh.Multihash:
		c, err = cid.Parse(v)
	case cid.Cid:
		c = v
	case *cid.Cid:
		if v != nil {
			c = *v
		}
	default:
		return cid.Undef, errs.InvalidArgument("cannot parse %T as a cid", v)
	}
	if err != nil {
		if errs.Kind(err) == "InvalidArgument" {
			return cid.Undef, err
		}
		return cid.Undef, errs.InvalidArgument("invalid cid: %s", err)
	}
	if !c.Defined() {
		return cid.Undef, errs.InvalidArgument("undefined cid")
	}
	return c, nil
}

// SplitAbsPath splits fpath into its segments. It extracts the first component (which
// must be a CID) and return it separately.
func SplitAbsPath(fpath Path) (cid.Cid, []string, error) {
	parts := fpath.Segments()
	if len(parts) > 0 && parts[0] == "ipfs" {
		parts = parts[1:]
	}

	// if nothing, bail.
	if len(parts) == 0 {
		return cid.Undef, nil, ErrNoComponents
	}

	c, err := decodeRoot(parts[0])
	if err != nil {
		return cid.Undef, nil, err
	}

	return c, parts[1:], nil
}
