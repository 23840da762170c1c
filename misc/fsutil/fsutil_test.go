package fsutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDirWritableCreatesRepoRoot(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("home is not read from HOME")
	}
	home := t.TempDir()
	t.Setenv("HOME", home)

	require.NoError(t, DirWritable("~/.pincore"))
	fi, err := os.Stat(filepath.Join(home, ".pincore"))
	require.NoError(t, err)
	require.True(t, fi.IsDir())

	// a second init over the same root probes it and leaves nothing behind
	require.NoError(t, DirWritable("~/.pincore"))
	entries, err := os.ReadDir(filepath.Join(home, ".pincore"))
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestDirWritableRejects(t *testing.T) {
	require.EqualError(t, DirWritable(""), "directory not specified")

	dir := t.TempDir()
	file := filepath.Join(dir, "config")
	require.NoError(t, os.WriteFile(file, nil, 0o600))
	require.ErrorContains(t, DirWritable(file), "not a directory")

	// only the last element is created
	err := DirWritable(filepath.Join(dir, "a", "b"))
	require.ErrorIs(t, err, fs.ErrNotExist)

	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}
	ro := filepath.Join(dir, "ro")
	require.NoError(t, os.Mkdir(ro, 0o500))
	require.ErrorIs(t, DirWritable(ro), fs.ErrPermission)
	require.ErrorIs(t, DirWritable(filepath.Join(ro, "repo")), fs.ErrPermission)
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	fn := filepath.Join(dir, "datastore_spec")
	require.False(t, FileExists(fn))

	require.NoError(t, os.WriteFile(fn, []byte("{}"), 0o600))
	require.True(t, FileExists(fn))
	require.True(t, FileExists(dir))

	if runtime.GOOS == "windows" {
		return
	}
	// a dangling link still occupies the name
	link := filepath.Join(dir, "dangling")
	require.NoError(t, os.Symlink(filepath.Join(dir, "gone"), link))
	require.True(t, FileExists(link))
}

func TestExpandHome(t *testing.T) {
	for _, p := range []string{"", "relative/repo", "/abs/repo"} {
		got, err := ExpandHome(p)
		require.NoError(t, err)
		require.Equal(t, p, got)
	}

	_, err := ExpandHome("~someone/repo")
	require.Error(t, err)

	if runtime.GOOS == "windows" {
		t.Skip("home is not read from HOME")
	}
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := ExpandHome("~")
	require.NoError(t, err)
	require.Equal(t, home, got)

	got, err = ExpandHome("~/.pincore")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".pincore"), got)

	t.Setenv("HOME", "")
	_, err = ExpandHome("~/.pincore")
	require.Error(t, err)
}
