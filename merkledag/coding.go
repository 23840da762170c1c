package merkledag

import (
	"errors"
	"fmt"

	"github.com/ipfs/pincore/errs"

	blocks "github.com/ipfs/go-block-format"
	cid "github.com/ipfs/go-cid"
	ipld "github.com/ipfs/go-ipld-format"
	"google.golang.org/protobuf/encoding/protowire"
)

// dag-pb field numbers.
const (
	pbNodeData  protowire.Number = 1
	pbNodeLinks protowire.Number = 2

	pbLinkHash  protowire.Number = 1
	pbLinkName  protowire.Number = 2
	pbLinkTsize protowire.Number = 3
)

// Codec errors.
var (
	ErrLinksAfterData = errors.New("links must precede data")
	ErrDuplicateField = errors.New("duplicate field")
	ErrMissingHash    = errors.New("link has no hash")
)

// marshal encodes the node in canonical dag-pb form: every link (hash, name,
// tsize) in stored order, followed by the data field when it is not empty.
func (n *ProtoNode) marshal() ([]byte, error) {
	size := 0
	encLinks := make([][]byte, len(n.links))
	for i, l := range n.links {
		if !l.Cid.Defined() {
			return nil, fmt.Errorf("link %d (%q) has an undefined cid", i, l.Name)
		}
		var lb []byte
		lb = protowire.AppendTag(lb, pbLinkHash, protowire.BytesType)
		lb = protowire.AppendBytes(lb, l.Cid.Bytes())
		lb = protowire.AppendTag(lb, pbLinkName, protowire.BytesType)
		lb = protowire.AppendString(lb, l.Name)
		lb = protowire.AppendTag(lb, pbLinkTsize, protowire.VarintType)
		lb = protowire.AppendVarint(lb, l.Size)
		encLinks[i] = lb
		size += protowire.SizeTag(pbNodeLinks) + protowire.SizeBytes(len(lb))
	}
	if len(n.data) > 0 {
		size += protowire.SizeTag(pbNodeData) + protowire.SizeBytes(len(n.data))
	}

	out := make([]byte, 0, size)
	for _, lb := range encLinks {
		out = protowire.AppendTag(out, pbNodeLinks, protowire.BytesType)
		out = protowire.AppendBytes(out, lb)
	}
	if len(n.data) > 0 {
		out = protowire.AppendTag(out, pbNodeData, protowire.BytesType)
		out = protowire.AppendBytes(out, n.data)
	}
	return out, nil
}

// unmarshal decodes raw dag-pb bytes into n. Unknown fields, wrong wire
// types, repeated data and links placed after data are rejected.
func (n *ProtoNode) unmarshal(encoded []byte) error {
	var links []*ipld.Link
	var data []byte
	haveData := false

	b := encoded
	for len(b) > 0 {
		num, typ, l := protowire.ConsumeTag(b)
		if l < 0 {
			return protowire.ParseError(l)
		}
		b = b[l:]

		switch num {
		case pbNodeData:
			if typ != protowire.BytesType {
				return fmt.Errorf("PBNode.Data: wrong wire type %d", typ)
			}
			if haveData {
				return fmt.Errorf("PBNode.Data: %w", ErrDuplicateField)
			}
			v, l := protowire.ConsumeBytes(b)
			if l < 0 {
				return fmt.Errorf("PBNode.Data: %w", protowire.ParseError(l))
			}
			data = append([]byte{}, v...)
			haveData = true
			b = b[l:]
		case pbNodeLinks:
			if typ != protowire.BytesType {
				return fmt.Errorf("PBNode.Links: wrong wire type %d", typ)
			}
			if haveData {
				return ErrLinksAfterData
			}
			v, l := protowire.ConsumeBytes(b)
			if l < 0 {
				return fmt.Errorf("PBNode.Links: %w", protowire.ParseError(l))
			}
			lnk, err := unmarshalLink(v)
			if err != nil {
				return fmt.Errorf("PBNode.Links[%d]: %w", len(links), err)
			}
			links = append(links, lnk)
			b = b[l:]
		default:
			return fmt.Errorf("PBNode: unknown field %d", num)
		}
	}

	n.links = links
	n.data = data
	return nil
}

func unmarshalLink(b []byte) (*ipld.Link, error) {
	lnk := new(ipld.Link)
	var haveHash, haveName, haveSize bool
	for len(b) > 0 {
		num, typ, l := protowire.ConsumeTag(b)
		if l < 0 {
			return nil, protowire.ParseError(l)
		}
		b = b[l:]

		switch num {
		case pbLinkHash:
			if typ != protowire.BytesType {
				return nil, fmt.Errorf("Hash: wrong wire type %d", typ)
			}
			if haveHash {
				return nil, fmt.Errorf("Hash: %w", ErrDuplicateField)
			}
			v, l := protowire.ConsumeBytes(b)
			if l < 0 {
				return nil, fmt.Errorf("Hash: %w", protowire.ParseError(l))
			}
			c, err := cid.Cast(v)
			if err != nil {
				return nil, fmt.Errorf("Hash: %w", err)
			}
			lnk.Cid = c
			haveHash = true
			b = b[l:]
		case pbLinkName:
			if typ != protowire.BytesType {
				return nil, fmt.Errorf("Name: wrong wire type %d", typ)
			}
			if haveName {
				return nil, fmt.Errorf("Name: %w", ErrDuplicateField)
			}
			v, l := protowire.ConsumeString(b)
			if l < 0 {
				return nil, fmt.Errorf("Name: %w", protowire.ParseError(l))
			}
			lnk.Name = v
			haveName = true
			b = b[l:]
		case pbLinkTsize:
			if typ != protowire.VarintType {
				return nil, fmt.Errorf("Tsize: wrong wire type %d", typ)
			}
			if haveSize {
				return nil, fmt.Errorf("Tsize: %w", ErrDuplicateField)
			}
			v, l := protowire.ConsumeVarint(b)
			if l < 0 {
				return nil, fmt.Errorf("Tsize: %w", protowire.ParseError(l))
			}
			lnk.Size = v
			haveSize = true
			b = b[l:]
		default:
			return nil, fmt.Errorf("unknown field %d", num)
		}
	}
	if !haveHash {
		return nil, ErrMissingHash
	}
	return lnk, nil
}

// EncodeProtobuf returns the encoded raw data version of a Node instance.
// It may use a cached encoded version, unless the force flag is given.
func (n *ProtoNode) EncodeProtobuf(force bool) ([]byte, error) {
	if n.encoded == nil || force {
		n.cached = cid.Undef
		var err error
		n.encoded, err = n.marshal()
		if err != nil {
			return nil, err
		}
	}

	if !n.cached.Defined() {
		c, err := n.CidBuilder().Sum(n.encoded)
		if err != nil {
			return n.encoded, err
		}

		n.cached = c
	}

	return n.encoded, nil
}

// DecodeProtobuf decodes raw data and returns a new Node instance.
func DecodeProtobuf(encoded []byte) (*ProtoNode, error) {
	n := new(ProtoNode)
	err := n.unmarshal(encoded)
	if err != nil {
		return nil, &errs.DecodeError{Err: fmt.Errorf("incorrectly formatted merkledag node: %w", err)}
	}
	return n, nil
}

// DecodeProtobufBlock is a block decoder for protobuf IPLD nodes conforming to
// node.DecodeBlockFunc
func DecodeProtobufBlock(b blocks.Block) (ipld.Node, error) {
	c := b.Cid()
	if c.Type() != cid.DagProtobuf {
		return nil, &errs.DecodeError{Cid: c, Err: ErrNotProtobuf}
	}

	decnd, err := DecodeProtobuf(b.RawData())
	if err != nil {
		var de *errs.DecodeError
		if errors.As(err, &de) {
			de.Cid = c
		}
		return nil, err
	}

	// Keep the stored bytes: they are what the CID hashes, even when the
	// encoding is not canonical.
	decnd.encoded = b.RawData()
	decnd.cached = c
	decnd.builder = c.Prefix()
	return decnd, nil
}

// Type assertion
var _ ipld.DecodeBlockFunc = DecodeProtobufBlock
