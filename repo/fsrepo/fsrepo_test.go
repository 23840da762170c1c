package fsrepo

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	config "github.com/ipfs/pincore/config"
	serialize "github.com/ipfs/pincore/config/serialize"

	ds "github.com/ipfs/go-datastore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRepoPath(t *testing.T) string {
	return filepath.Join(t.TempDir(), "repo")
}

func defaultConfig(t *testing.T) *config.Config {
	cfg, err := config.Init()
	require.NoError(t, err)
	return cfg
}

func TestInitIdempotent(t *testing.T) {
	path := testRepoPath(t)
	assert.False(t, IsInitialized(path))
	require.NoError(t, Init(path, defaultConfig(t)))
	assert.True(t, IsInitialized(path))
	require.NoError(t, Init(path, defaultConfig(t)), "multiple inits should succeed")

	for _, f := range []string{config.DefaultConfigFile, specFn, versionFile} {
		_, err := os.Stat(filepath.Join(path, f))
		require.NoError(t, err, f)
	}
}

func TestOpenUninitialized(t *testing.T) {
	path := testRepoPath(t)
	_, err := Open(path)
	require.Error(t, err)
	var nre NoRepoError
	require.ErrorAs(t, err, &nre)
	require.Equal(t, path, nre.Path)
	require.ErrorIs(t, err, serialize.ErrNotInitialized)
}

func TestDatastoreGetNotAllowedAfterClose(t *testing.T) {
	path := testRepoPath(t)

	require.NoError(t, Init(path, defaultConfig(t)))
	r, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, r.Close(), "should be able to close")
	_, err = r.Config()
	require.Error(t, err, "config should not be available after close")
}

func TestDatastorePersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := testRepoPath(t)
	require.NoError(t, Init(path, defaultConfig(t)))

	r, err := Open(path)
	require.NoError(t, err)
	k := ds.NewKey("/local/pins")
	require.NoError(t, r.Datastore().Put(ctx, k, []byte("bar")))
	require.NoError(t, r.Close())

	r, err = Open(path)
	require.NoError(t, err)
	defer r.Close()
	v, err := r.Datastore().Get(ctx, k)
	require.NoError(t, err)
	require.Equal(t, "bar", string(v))
}

func TestLockedWhileOpen(t *testing.T) {
	path := testRepoPath(t)
	require.NoError(t, Init(path, defaultConfig(t)))

	r, err := Open(path)
	require.NoError(t, err)

	_, err = Open(path)
	require.Error(t, err, "a second open of the same repo must fail")

	require.NoError(t, r.Close())
	r, err = Open(path)
	require.NoError(t, err)
	require.NoError(t, r.Close())
}

func TestSpecMismatch(t *testing.T) {
	path := testRepoPath(t)
	require.NoError(t, Init(path, defaultConfig(t)))

	cfg, err := ConfigAt(path)
	require.NoError(t, err)
	require.NoError(t, config.ApplyProfiles(cfg, "badgerds"))
	fn, err := config.Filename(path, "")
	require.NoError(t, err)
	require.NoError(t, serialize.WriteConfigFile(fn, cfg))

	_, err = Open(path)
	require.ErrorContains(t, err, "does not match what is on disk")
}

func TestVersionMismatch(t *testing.T) {
	path := testRepoPath(t)
	require.NoError(t, Init(path, defaultConfig(t)))
	require.NoError(t, writeVersion(path, RepoVersion+1))

	_, err := Open(path)
	require.ErrorContains(t, err, "repo version mismatch")
}

func TestSetConfigPersists(t *testing.T) {
	path := testRepoPath(t)
	require.NoError(t, Init(path, defaultConfig(t)))

	r, err := Open(path)
	require.NoError(t, err)
	cfg, err := r.Config()
	require.NoError(t, err)
	cfg, err = cfg.Clone()
	require.NoError(t, err)
	cfg.Datastore.StorageMax = "3GB"
	require.NoError(t, r.SetConfig(cfg))
	require.NoError(t, r.Close())

	onDisk, err := ConfigAt(path)
	require.NoError(t, err)
	require.Equal(t, "3GB", onDisk.Datastore.StorageMax)
}

func TestMemSpec(t *testing.T) {
	ctx := context.Background()
	path := testRepoPath(t)
	cfg := defaultConfig(t)
	require.NoError(t, config.ApplyProfiles(cfg, "test"))
	require.NoError(t, Init(path, cfg))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.Datastore().Put(ctx, ds.NewKey("/a"), []byte("b")))
	_, err = os.Stat(filepath.Join(path, "blocks"))
	require.True(t, os.IsNotExist(err), "mem datastore must not touch the disk")
}

func TestDiskSpec(t *testing.T) {
	dsc, err := AnyDatastoreConfig(config.DefaultDatastoreConfig().Spec)
	require.NoError(t, err)
	require.Equal(t,
		`{"mounts":[{"mountpoint":"/blocks","path":"blocks","shardFunc":"/repo/flatfs/shard/v1/next-to-last/2","type":"flatfs"},{"mountpoint":"/","path":"datastore","type":"levelds"}],"type":"mount"}`,
		dsc.DiskSpec().String())

	_, err = AnyDatastoreConfig(map[string]interface{}{"type": "nope"})
	require.ErrorContains(t, err, "unknown datastore type: nope")

	_, err = AnyDatastoreConfig(map[string]interface{}{"type": "levelds", "path": "x", "compression": "zstd"})
	require.ErrorContains(t, err, "unrecognized value for compression")
}

func TestAlternativeDatastores(t *testing.T) {
	for _, profile := range []string{"pebbleds", "badgerds"} {
		t.Run(profile, func(t *testing.T) {
			ctx := context.Background()
			path := testRepoPath(t)
			cfg := defaultConfig(t)
			require.NoError(t, config.ApplyProfiles(cfg, profile))
			require.NoError(t, Init(path, cfg))

			r, err := Open(path)
			require.NoError(t, err)
			k := ds.NewKey("/local/pins")
			require.NoError(t, r.Datastore().Put(ctx, k, []byte(profile)))
			require.NoError(t, r.Close())

			r, err = Open(path)
			require.NoError(t, err)
			defer r.Close()
			v, err := r.Datastore().Get(ctx, k)
			require.NoError(t, err)
			require.Equal(t, profile, string(v))
		})
	}
}
