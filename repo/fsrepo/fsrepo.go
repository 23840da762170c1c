package fsrepo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	config "github.com/ipfs/pincore/config"
	serialize "github.com/ipfs/pincore/config/serialize"
	"github.com/ipfs/pincore/misc/fsutil"
	repo "github.com/ipfs/pincore/repo"

	ds "github.com/ipfs/go-datastore"
	lockfile "github.com/ipfs/go-fs-lock"
	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("fsrepo")

// RepoVersion is the version number that we are currently expecting to see.
const RepoVersion = 1

const (
	// LockFile is the filename of the repo lock, relative to config dir
	LockFile    = "repo.lock"
	specFn      = "datastore_spec"
	versionFile = "version"
)

// ErrNoVersion is returned when a repo has no version file.
var ErrNoVersion = errors.New("no version file found in repo")

// NoRepoError is returned when trying to open a repo in which one has not
// been initialized.
type NoRepoError struct {
	Path string
}

var _ error = NoRepoError{}

func (err NoRepoError) Error() string {
	return fmt.Sprintf("no pincore repo found in %s.\nplease run: 'pincore init'", err.Path)
}

// Unwrap lets errors.Is match serialize.ErrNotInitialized.
func (err NoRepoError) Unwrap() error {
	return serialize.ErrNotInitialized
}

// packageLock serializes Init and Open within the process.
var packageLock sync.Mutex

// FSRepo represents a pincore repo stored on the local filesystem.
type FSRepo struct {
	// has Close been called already
	closed bool
	// path is the file-system path
	path string
	// lockfile is the file system lock to prevent others from opening
	// the same fsrepo path concurrently
	lockfile io.Closer
	config   *config.Config
	ds       repo.Datastore

	mu sync.Mutex
}

var _ repo.Repo = (*FSRepo)(nil)

// Open the FSRepo at path. Returns an error if the repo is not
// initialized.
func Open(repoPath string) (repo.Repo, error) {
	packageLock.Lock()
	defer packageLock.Unlock()

	r, err := newFSRepo(repoPath)
	if err != nil {
		return nil, err
	}

	// Check if its initialized
	if err := checkInitialized(r.path); err != nil {
		return nil, err
	}

	r.lockfile, err = lockfile.Lock(r.path, LockFile)
	if err != nil {
		return nil, err
	}
	keepLocked := false
	defer func() {
		// unlock on error, leave it locked on success
		if !keepLocked {
			r.lockfile.Close()
		}
	}()

	ver, err := readVersion(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoVersion
		}
		return nil, err
	}
	if ver != RepoVersion {
		return nil, fmt.Errorf("repo version mismatch: the repo at %s has version %d, this build expects %d", r.path, ver, RepoVersion)
	}

	if err := r.openConfig(); err != nil {
		return nil, err
	}

	if err := r.openDatastore(); err != nil {
		return nil, err
	}

	keepLocked = true
	log.Debugw("repo opened", "path", r.path)
	return r, nil
}

func newFSRepo(rpath string) (*FSRepo, error) {
	expPath, err := fsutil.ExpandHome(filepath.Clean(rpath))
	if err != nil {
		return nil, err
	}

	return &FSRepo{path: expPath}, nil
}

func checkInitialized(path string) error {
	if !isInitializedUnsynced(path) {
		return NoRepoError{Path: path}
	}
	return nil
}

func readVersion(repoPath string) (int, error) {
	b, err := os.ReadFile(filepath.Join(repoPath, versionFile))
	if err != nil {
		return 0, err
	}
	ver, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return 0, fmt.Errorf("repo version file is malformed: %w", err)
	}
	return ver, nil
}

func writeVersion(repoPath string, version int) error {
	vfp := filepath.Join(repoPath, versionFile)
	return os.WriteFile(vfp, []byte(fmt.Sprintf("%d\n", version)), 0o644)
}

// ConfigAt returns an error if the FSRepo at the given path is not
// initialized. This function allows callers to read the config file even when
// another process is running and holding the lock.
func ConfigAt(repoPath string) (*config.Config, error) {
	// packageLock must be held to ensure that the Read is atomic.
	packageLock.Lock()
	defer packageLock.Unlock()

	configFilename, err := config.Filename(repoPath, "")
	if err != nil {
		return nil, err
	}
	return serialize.Load(configFilename)
}

// configIsInitialized returns true if the repo is initialized at
// provided |path|.
func configIsInitialized(path string) bool {
	configFilename, err := config.Filename(path, "")
	if err != nil {
		return false
	}
	return fsutil.FileExists(configFilename)
}

func initConfig(path string, conf *config.Config) error {
	if configIsInitialized(path) {
		return nil
	}
	configFilename, err := config.Filename(path, "")
	if err != nil {
		return err
	}
	// initialization is the one time when it's okay to write to the config
	// without reading the config from disk and merging any user-provided keys
	// that may exist.
	return serialize.WriteConfigFile(configFilename, conf)
}

func initSpec(path string, conf map[string]interface{}) error {
	fn, err := config.Path(path, specFn)
	if err != nil {
		return err
	}

	if fsutil.FileExists(fn) {
		return nil
	}

	dsc, err := AnyDatastoreConfig(conf)
	if err != nil {
		return err
	}
	bytes := dsc.DiskSpec().Bytes()

	return os.WriteFile(fn, bytes, 0o600)
}

// Init initializes a new FSRepo at the given path with the provided config.
func Init(repoPath string, conf *config.Config) error {
	// packageLock must be held to ensure that the repo is not initialized more
	// than once.
	packageLock.Lock()
	defer packageLock.Unlock()

	expPath, err := fsutil.ExpandHome(filepath.Clean(repoPath))
	if err != nil {
		return err
	}

	if isInitializedUnsynced(expPath) {
		return nil
	}

	if err := fsutil.DirWritable(expPath); err != nil {
		return err
	}

	if err := initConfig(expPath, conf); err != nil {
		return err
	}

	if err := initSpec(expPath, conf.Datastore.Spec); err != nil {
		return err
	}

	if err := writeVersion(expPath, RepoVersion); err != nil {
		return fmt.Errorf("failed to write version file: %w", err)
	}

	return nil
}

// LockedByOtherProcess returns true if the FSRepo is locked by another
// process. If true, then the repo cannot be opened by this process.
func LockedByOtherProcess(repoPath string) (bool, error) {
	repoPath = filepath.Clean(repoPath)
	locked, err := lockfile.Locked(repoPath, LockFile)
	if locked {
		log.Debugf("(%t)<->Lock is held at %s", locked, repoPath)
	}
	return locked, err
}

// openConfig returns an error if the config file is not present.
func (r *FSRepo) openConfig() error {
	configFilename, err := config.Filename(r.path, "")
	if err != nil {
		return err
	}
	conf, err := serialize.Load(configFilename)
	if err != nil {
		return err
	}
	r.config = conf
	return nil
}

func (r *FSRepo) readSpec() (string, error) {
	fn, err := config.Path(r.path, specFn)
	if err != nil {
		return "", err
	}
	b, err := os.ReadFile(fn)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// openDatastore returns an error if the config file is not present.
func (r *FSRepo) openDatastore() error {
	if r.config.Datastore.Spec == nil {
		return fmt.Errorf("required Datastore.Spec entry missing from config file")
	}

	dsc, err := AnyDatastoreConfig(r.config.Datastore.Spec)
	if err != nil {
		return err
	}
	spec := dsc.DiskSpec()

	oldSpec, err := r.readSpec()
	if err != nil {
		return err
	}
	if oldSpec != spec.String() {
		return fmt.Errorf("datastore configuration of '%s' does not match what is on disk '%s'",
			oldSpec, spec.String())
	}

	d, err := dsc.Create(r.path)
	if err != nil {
		return err
	}
	r.ds = d

	return nil
}

// Close closes the FSRepo, releasing held resources.
func (r *FSRepo) Close() error {
	packageLock.Lock()
	defer packageLock.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}

	if err := r.ds.Close(); err != nil {
		return err
	}

	r.closed = true
	return r.lockfile.Close()
}

// Path returns the repo root.
func (r *FSRepo) Path() string {
	return r.path
}

// Config the current config. This function DOES NOT copy the config. The caller
// MUST NOT modify it without first calling `Clone`.
//
// Result when not Open is undefined. The method may panic if it pleases.
func (r *FSRepo) Config() (*config.Config, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, repo.ErrClosed
	}
	return r.config, nil
}

// SetConfig updates the FSRepo's config. The config file will be written with
// the new values.
func (r *FSRepo) SetConfig(updated *config.Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return repo.ErrClosed
	}

	// to avoid Clone failures on error, the repo keeps its own copy
	conf, err := updated.Clone()
	if err != nil {
		return err
	}

	configFilename, err := config.Filename(r.path, "")
	if err != nil {
		return err
	}
	if err := serialize.WriteConfigFile(configFilename, conf); err != nil {
		return err
	}
	r.config = conf
	return nil
}

// Datastore returns a repo-owned datastore. If FSRepo is Closed, return value
// is undefined.
func (r *FSRepo) Datastore() repo.Datastore {
	r.mu.Lock()
	d := r.ds
	r.mu.Unlock()
	return d
}

// GetStorageUsage computes the storage space taken by the repo in bytes.
func (r *FSRepo) GetStorageUsage(ctx context.Context) (uint64, error) {
	return ds.DiskUsage(ctx, r.Datastore())
}

// IsInitialized returns true if the repo is initialized at provided |path|.
func IsInitialized(path string) bool {
	// packageLock is held to ensure that another caller doesn't attempt to
	// Init or Remove the repo while this call is in progress.
	packageLock.Lock()
	defer packageLock.Unlock()

	return isInitializedUnsynced(path)
}

// private methods below this point. NB: packageLock must held by caller.

// isInitializedUnsynced reports whether the repo is initialized. Caller must
// hold the packageLock.
func isInitializedUnsynced(repoPath string) bool {
	return configIsInitialized(repoPath)
}
