package coreapi

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	opt "github.com/ipfs/pincore/core/coreapi/options"
	"github.com/ipfs/pincore/errs"
	dag "github.com/ipfs/pincore/merkledag"
	"github.com/ipfs/pincore/object"
	"github.com/ipfs/pincore/path"

	"github.com/stretchr/testify/require"
)

func TestObjectNew(t *testing.T) {
	ctx := context.Background()
	api, _ := makeAPI(t)

	nd, err := api.Object().New(ctx)
	require.NoError(t, err)
	require.Equal(t, "QmdfTbBqBPQ7VNxZEYEj14VmRuZBkqFbiwReogJgS1zR1n", nd.Cid().String())

	st, err := api.Object().Stat(ctx, path.FromCid(nd.Cid()))
	require.NoError(t, err)
	require.Equal(t, object.Stat{Hash: nd.Cid()}, *st)

	_, err = api.Object().New(ctx, opt.Object.Type("unixfs-dir"))
	require.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestObjectPutAndStat(t *testing.T) {
	ctx := context.Background()
	api, _ := makeAPI(t)

	c, err := api.Object().Put(ctx, strings.NewReader(`{"Data":"get test object"}`))
	require.NoError(t, err)
	require.Equal(t, "QmNggDXca24S6cMPEYHZjeuc4QRmofkRrAEqVL3Ms2sdJZ", c.String())

	st, err := api.Object().Stat(ctx, path.FromCid(c))
	require.NoError(t, err)
	require.Equal(t, object.Stat{
		Hash:           c,
		NumLinks:       0,
		BlockSize:      17,
		LinksSize:      2,
		DataSize:       15,
		CumulativeSize: 17,
	}, *st)

	child := dag.NodeWithData([]byte("Some data 2"))
	require.NoError(t, api.Dag().Add(ctx, child))

	in := fmt.Sprintf(`{"Data":"Some data 1","Links":[{"Name":"some-link","Hash":"%s","Size":13}]}`, child.Cid())
	c, err = api.Object().Put(ctx, strings.NewReader(in))
	require.NoError(t, err)
	require.Equal(t, "QmPR7W4kaADkAo4GKEVVPQN81EDUFCHJtqejQZ5dEG7pBC", c.String())

	st, err = api.Object().Stat(ctx, path.FromCid(c))
	require.NoError(t, err)
	require.Equal(t, object.Stat{
		Hash:           c,
		NumLinks:       1,
		BlockSize:      64,
		LinksSize:      53,
		DataSize:       11,
		CumulativeSize: 77,
	}, *st)

	// the hint says 13, the resolved child is 13 as well
	local, err := api.Object().LocalStat(ctx, path.FromCid(c))
	require.NoError(t, err)
	require.Equal(t, *st, *local)

	require.NoError(t, api.Dag().Remove(ctx, child.Cid()))
	local, err = api.Object().LocalStat(ctx, path.FromCid(c))
	require.NoError(t, err)
	require.Equal(t, 77, local.CumulativeSize)
	_, err = api.Object().Stat(ctx, path.FromCid(c))
	require.Equal(t, "NotFound", errs.Kind(err))
	require.NoError(t, api.Dag().Add(ctx, child))

	st, err = api.Object().Stat(ctx, path.FromCid(c).Join("some-link"))
	require.NoError(t, err)
	require.Equal(t, child.Cid(), st.Hash)

	_, err = api.Object().Stat(ctx, path.FromCid(c).Join("other-link"))
	require.Equal(t, "NoSuchLink", errs.Kind(err))
}

func TestObjectPutBase64AndPin(t *testing.T) {
	ctx := context.Background()
	api, _ := makeAPI(t)

	c, err := api.Object().Put(ctx, strings.NewReader(`{"Data":"Z2V0IHRlc3Qgb2JqZWN0"}`),
		opt.Object.DataType("base64"), opt.Object.Pin(true))
	require.NoError(t, err)
	require.Equal(t, "QmNggDXca24S6cMPEYHZjeuc4QRmofkRrAEqVL3Ms2sdJZ", c.String())

	reason, pinned, err := api.Pin().IsPinned(ctx, path.FromCid(c))
	require.NoError(t, err)
	require.True(t, pinned)
	require.Equal(t, "direct", reason)
}

func TestObjectPutProtobuf(t *testing.T) {
	ctx := context.Background()
	api, _ := makeAPI(t)

	nd := dag.NodeWithData([]byte("get test object"))
	raw, err := nd.EncodeProtobuf(false)
	require.NoError(t, err)

	c, err := api.Object().Put(ctx, bytes.NewReader(raw), opt.Object.InputEnc("protobuf"))
	require.NoError(t, err)
	require.Equal(t, nd.Cid(), c)
}

func TestObjectPutErrors(t *testing.T) {
	ctx := context.Background()
	api, _ := makeAPI(t)

	for name, tc := range map[string]struct {
		in   string
		opts []opt.ObjectPutOption
	}{
		"empty node":    {in: `{}`},
		"bad json":      {in: `{"Data":`},
		"bad link":      {in: `{"Links":[{"Name":"a","Hash":"not-a-cid"}]}`},
		"bad encoding":  {in: `{"Data":"x"}`, opts: []opt.ObjectPutOption{opt.Object.InputEnc("xml")}},
		"bad data type": {in: `{"Data":"x"}`, opts: []opt.ObjectPutOption{opt.Object.DataType("hex")}},
		"bad base64":    {in: `{"Data":"!!"}`, opts: []opt.ObjectPutOption{opt.Object.DataType("base64")}},
		"too large":     {in: `{"Data":"` + strings.Repeat("a", inputLimit) + `"}`},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := api.Object().Put(ctx, strings.NewReader(tc.in), tc.opts...)
			require.ErrorIs(t, err, errs.ErrInvalidArgument)
		})
	}
}
