package main

import (
	"context"
	"fmt"
	"io"

	"github.com/ipfs/pincore/config"
	"github.com/ipfs/pincore/core"
	"github.com/ipfs/pincore/core/coreapi"
	"github.com/ipfs/pincore/repo/fsrepo"

	cid "github.com/ipfs/go-cid"
	"github.com/ipfs/go-cidutil/cidenc"
	logging "github.com/ipfs/go-log/v2"
	mbase "github.com/multiformats/go-multibase"
	"github.com/spf13/cobra"
)

// cmdEnv carries the global flags and the streams commands read and write.
type cmdEnv struct {
	repoPath string
	logLevel string
	cidBase  string

	enc cidenc.Encoder
	in  io.Reader
	out io.Writer
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	env := &cmdEnv{in: in, out: out, enc: cidenc.Default()}

	root := &cobra.Command{
		Use:   "pincore",
		Short: "Content-addressed DAG store with pinning and garbage collection",
		Long: `pincore stores merkle DAG nodes in a local repository, keeps a set of
pins over them and removes every block no pin reaches when garbage is
collected.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return env.setup()
		},
	}
	root.SetIn(in)
	root.SetOut(out)

	defaultRepo, err := fsrepo.BestKnownPath()
	if err != nil {
		defaultRepo = config.DefaultPathRoot
	}

	pf := root.PersistentFlags()
	pf.StringVar(&env.repoPath, "repo", defaultRepo, "path to the pincore repository")
	pf.StringVar(&env.logLevel, "log-level", "", "log level for every subsystem (debug, info, warn, error)")
	pf.StringVar(&env.cidBase, "cid-base", "", "multibase encoding of printed CIDs, upgrades CIDv0 to CIDv1")

	root.AddCommand(
		newInitCmd(env),
		newPinCmd(env),
		newObjectCmd(env),
		newBlockCmd(env),
		newResolveCmd(env),
		newRepoCmd(env),
		newVersionCmd(env),
	)
	return root
}

func (env *cmdEnv) setup() error {
	if env.logLevel != "" {
		lvl, err := logging.LevelFromString(env.logLevel)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", env.logLevel, err)
		}
		logging.SetAllLoggers(lvl)
	}

	if env.cidBase != "" {
		base, err := mbase.EncoderByName(env.cidBase)
		if err != nil {
			return err
		}
		env.enc = cidenc.Encoder{Base: base, Upgrade: true}
	}
	return nil
}

// encodeCid renders c in the encoding selected with --cid-base.
func (env *cmdEnv) encodeCid(c cid.Cid) string {
	return env.enc.Encode(c)
}

// withAPI opens the repo, builds a node over it and hands fn the API. The
// node and the repo lock are released when fn returns.
func (env *cmdEnv) withAPI(ctx context.Context, fn func(api *coreapi.CoreAPI, n *core.PincoreNode) error) error {
	if err := fileDescriptorCheck(); err != nil {
		log.Warnw("cannot raise file descriptor limit", "error", err)
	}

	r, err := fsrepo.Open(env.repoPath)
	if err != nil {
		return err
	}

	n, err := core.NewNode(ctx, &core.BuildCfg{Repo: r})
	if err != nil {
		r.Close()
		return fmt.Errorf("constructing node: %w", err)
	}
	defer func() {
		if err := n.Close(); err != nil {
			log.Errorw("closing node", "error", err)
		}
	}()

	return fn(coreapi.NewCoreAPI(n), n)
}
