package pin

import (
	"context"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	cid "github.com/ipfs/go-cid"
	ds "github.com/ipfs/go-datastore"
)

// pinsKey holds the whole pin set as one record, so a single Put replaces
// it atomically.
var pinsKey = ds.NewKey("/local/pins")

const recordVersion = 1

type record struct {
	Version int           `cbor:"1,keyasint"`
	Seq     uint64        `cbor:"2,keyasint"`
	Entries []recordEntry `cbor:"3,keyasint"`
}

type recordEntry struct {
	Cid  []byte `cbor:"1,keyasint"`
	Mode Mode   `cbor:"2,keyasint"`
	Seq  uint64 `cbor:"3,keyasint"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	decMode, err = cbor.DecOptions{TimeTag: cbor.DecTagIgnored}.DecMode()
	if err != nil {
		panic(err)
	}
}

func encodeRecord(s *snapshot) ([]byte, error) {
	rec := record{
		Version: recordVersion,
		Seq:     s.seq,
		Entries: make([]recordEntry, 0, len(s.entries)),
	}
	for _, e := range s.entries {
		rec.Entries = append(rec.Entries, recordEntry{Cid: e.Cid.Bytes(), Mode: e.Mode, Seq: e.Seq})
	}
	return encMode.Marshal(rec)
}

func decodeRecord(b []byte) (*snapshot, error) {
	var rec record
	if err := decMode.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("cannot decode pin set: %w", err)
	}
	if rec.Version != recordVersion {
		return nil, fmt.Errorf("unsupported pin set version %d", rec.Version)
	}

	entries := make([]Entry, 0, len(rec.Entries))
	for i, re := range rec.Entries {
		c, err := cid.Cast(re.Cid)
		if err != nil {
			return nil, fmt.Errorf("pin set entry %d: %w", i, err)
		}
		if re.Mode != Recursive && re.Mode != Direct {
			return nil, fmt.Errorf("pin set entry %d: invalid mode %d", i, re.Mode)
		}
		if re.Seq > rec.Seq {
			return nil, fmt.Errorf("pin set entry %d: sequence %d beyond %d", i, re.Seq, rec.Seq)
		}
		entries = append(entries, Entry{Cid: c, Mode: re.Mode, Seq: re.Seq})
	}
	return newSnapshot(rec.Seq, entries)
}

// loadSnapshot reads the persisted pin set. A datastore without one holds
// an empty set.
func loadSnapshot(ctx context.Context, d ds.Datastore) (*snapshot, error) {
	b, err := d.Get(ctx, pinsKey)
	if err == ds.ErrNotFound {
		return newSnapshot(0, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot load pin set: %w", err)
	}
	return decodeRecord(b)
}

// saveSnapshot durably replaces the persisted pin set with s.
func saveSnapshot(ctx context.Context, d ds.Datastore, s *snapshot) error {
	b, err := encodeRecord(s)
	if err != nil {
		return err
	}
	if err := d.Put(ctx, pinsKey, b); err != nil {
		return fmt.Errorf("cannot store pin set: %w", err)
	}
	if err := d.Sync(ctx, pinsKey); err != nil {
		return fmt.Errorf("cannot sync pin set: %w", err)
	}
	return nil
}
