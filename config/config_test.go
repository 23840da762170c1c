package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInitDefaults(t *testing.T) {
	cfg, err := Init()
	require.NoError(t, err)

	require.Equal(t, DefaultStorageMax, cfg.Datastore.StorageMax)
	require.EqualValues(t, DefaultStorageGCWatermark, cfg.Datastore.StorageGCWatermark)
	require.Equal(t, DefaultGCPeriod, cfg.Datastore.GCPeriod)
	require.Equal(t, "mount", cfg.Datastore.Spec["type"])
	require.Equal(t, time.Minute, cfg.Resolver.FetchTimeout.WithDefault(time.Hour))
	require.True(t, cfg.Pinning.WalkConcurrency.IsDefault())
	require.False(t, cfg.GC.BestEffort.WithDefault(false))
}

func TestCloneIsIndependent(t *testing.T) {
	cfg, err := Init()
	require.NoError(t, err)

	clone, err := cfg.Clone()
	require.NoError(t, err)
	require.Equal(t, cfg.Datastore.StorageMax, clone.Datastore.StorageMax)

	clone.Datastore.Spec["type"] = "mem"
	clone.GC.BestEffort = True
	require.Equal(t, "mount", cfg.Datastore.Spec["type"])
	require.Equal(t, Default, cfg.GC.BestEffort)
}

func TestMapRoundTrip(t *testing.T) {
	cfg, err := Init()
	require.NoError(t, err)
	cfg.Pinning.WalkConcurrency = *NewOptionalInteger(4)

	m, err := ToMap(cfg)
	require.NoError(t, err)
	require.EqualValues(t, 4, m["Pinning"].(map[string]interface{})["WalkConcurrency"])

	back, err := FromMap(m)
	require.NoError(t, err)
	require.EqualValues(t, 4, back.Pinning.WalkConcurrency.WithDefault(0))
	require.Equal(t, time.Minute, back.Resolver.FetchTimeout.WithDefault(0))
}

func TestProfiles(t *testing.T) {
	cfg, err := Init()
	require.NoError(t, err)

	require.NoError(t, ApplyProfiles(cfg, "test, best-effort-gc"))
	require.Equal(t, "mem", cfg.Datastore.Spec["type"])
	require.True(t, cfg.GC.BestEffort.WithDefault(false))

	require.NoError(t, ApplyProfiles(cfg, "badgerds"))
	child := cfg.Datastore.Spec["child"].(map[string]interface{})
	require.Equal(t, "badgerds", child["type"])

	require.NoError(t, ApplyProfiles(cfg, "default-datastore"))
	require.Equal(t, "mount", cfg.Datastore.Spec["type"])

	err = ApplyProfiles(cfg, "nope")
	require.ErrorContains(t, err, "invalid configuration profile: nope")
}

func TestPathRoot(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvDir, dir)

	root, err := PathRoot()
	require.NoError(t, err)
	require.Equal(t, dir, root)

	p, err := Filename("", "")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, DefaultConfigFile), p)

	p, err = Filename("/repo", "other")
	require.NoError(t, err)
	require.Equal(t, filepath.Join("/repo", "other"), p)

	abs := filepath.Join(dir, "sub", "cfg")
	p, err = Filename("/repo", abs)
	require.NoError(t, err)
	require.Equal(t, abs, p)

	t.Setenv(EnvDir, "")
	home := t.TempDir()
	t.Setenv("HOME", home)
	root, err = PathRoot()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, DefaultPathName), root)
}
