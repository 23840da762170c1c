package pin

import (
	"context"
	"testing"

	"github.com/fxamacker/cbor/v2"
	ds "github.com/ipfs/go-datastore"
	dssync "github.com/ipfs/go-datastore/sync"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRecord(t *testing.T) {
	ctx := context.Background()
	d := dssync.MutexWrap(ds.NewMapDatastore())

	empty, err := loadSnapshot(ctx, d)
	require.NoError(t, err)
	require.Empty(t, empty.entries)

	_, a := randNode()
	_, b := randNode()
	s := empty.with(a, Recursive).with(b, Direct).with(a, Direct)
	require.NoError(t, saveSnapshot(ctx, d, s))

	loaded, err := loadSnapshot(ctx, d)
	require.NoError(t, err)
	require.Equal(t, s.seq, loaded.seq)
	require.Equal(t, s.entries, loaded.entries)
	require.True(t, loaded.has(a, Recursive))
	require.True(t, loaded.has(a, Direct))
	require.False(t, loaded.has(b, Recursive))

	// the record is canonical: the same set always encodes the same way
	b1, err := encodeRecord(s)
	require.NoError(t, err)
	b2, err := encodeRecord(loaded)
	require.NoError(t, err)
	require.Equal(t, b1, b2)
}

func TestDecodeRecordRejects(t *testing.T) {
	_, c := randNode()

	encode := func(rec record) []byte {
		b, err := cbor.Marshal(rec)
		require.NoError(t, err)
		return b
	}

	cases := map[string][]byte{
		"garbage": {0xff, 0x00},
		"version": encode(record{Version: 7}),
		"bad cid": encode(record{Version: recordVersion, Seq: 1, Entries: []recordEntry{{Cid: []byte{1, 2}, Mode: Direct, Seq: 1}}}),
		"mode":    encode(record{Version: recordVersion, Seq: 1, Entries: []recordEntry{{Cid: c.Bytes(), Mode: Indirect, Seq: 1}}}),
		"seq":     encode(record{Version: recordVersion, Seq: 1, Entries: []recordEntry{{Cid: c.Bytes(), Mode: Direct, Seq: 2}}}),
		"duplicate": encode(record{Version: recordVersion, Seq: 2, Entries: []recordEntry{
			{Cid: c.Bytes(), Mode: Direct, Seq: 1},
			{Cid: c.Bytes(), Mode: Direct, Seq: 2},
		}}),
	}
	for name, b := range cases {
		_, err := decodeRecord(b)
		require.Error(t, err, name)
	}
}
