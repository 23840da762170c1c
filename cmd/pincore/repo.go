package main

import (
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/ipfs/pincore/core"
	"github.com/ipfs/pincore/core/coreapi"
	caopts "github.com/ipfs/pincore/core/coreapi/options"
	"github.com/ipfs/pincore/core/corerepo"

	humanize "github.com/dustin/go-humanize"
	cid "github.com/ipfs/go-cid"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

func newRepoCmd(env *cmdEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repo",
		Short: "Manipulate the pincore repo",
	}
	cmd.AddCommand(
		newRepoGCCmd(env),
		newRepoLiveCmd(env),
		newRepoStatCmd(env),
	)
	return cmd
}

// bestEffortFlag returns the --best-effort value, or the GC.BestEffort
// config entry when the flag was not given.
func bestEffortFlag(cmd *cobra.Command, flag bool, n *core.PincoreNode) (bool, error) {
	if cmd.Flags().Changed("best-effort") {
		return flag, nil
	}
	cfg, err := n.Repo.Config()
	if err != nil {
		return false, err
	}
	return cfg.GC.BestEffort.WithDefault(false), nil
}

func newRepoGCCmd(env *cmdEnv) *cobra.Command {
	var (
		bestEffort bool
		quiet      bool
	)

	cmd := &cobra.Command{
		Use:   "gc",
		Short: "Remove every block no pin reaches",
		Long: `Computes the live set from the pins and deletes every other block.
In strict mode (the default) a pinned reference that is missing locally
aborts the collection before anything is deleted. With --best-effort the
missing reference is skipped and reported, and blocks only reachable
through it are removed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withAPI(cmd.Context(), func(api *coreapi.CoreAPI, n *core.PincoreNode) error {
				be, err := bestEffortFlag(cmd, bestEffort, n)
				if err != nil {
					return err
				}

				start := time.Now()
				out, err := api.Repo().GC(cmd.Context(), caopts.Repo.BestEffort(be))
				if err != nil {
					return err
				}

				removed := 0
				err = corerepo.CollectResult(cmd.Context(), out, func(k cid.Cid) {
					removed++
					if !quiet {
						fmt.Fprintf(env.out, "removed %s\n", env.encodeCid(k))
					}
				})

				log.Desugar().Info("repo gc finished",
					zap.Int("removed", removed),
					zap.Bool("bestEffort", be),
					zap.Duration("took", time.Since(start)),
					zap.Int("errors", len(multierr.Errors(err))),
				)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&bestEffort, "best-effort", false, "skip pinned references that cannot be fetched instead of aborting")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "write minimal output")
	return cmd
}

func newRepoLiveCmd(env *cmdEnv) *cobra.Command {
	var bestEffort bool

	cmd := &cobra.Command{
		Use:   "live",
		Short: "List the blocks a collection would keep",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withAPI(cmd.Context(), func(api *coreapi.CoreAPI, n *core.PincoreNode) error {
				be, err := bestEffortFlag(cmd, bestEffort, n)
				if err != nil {
					return err
				}

				live, err := api.Repo().LiveSet(cmd.Context(), caopts.Repo.BestEffort(be))
				if err != nil {
					return err
				}

				keys := make([]string, 0, live.Len())
				for _, k := range live.Keys() {
					keys = append(keys, env.encodeCid(k))
				}
				sort.Strings(keys)
				for _, k := range keys {
					fmt.Fprintln(env.out, k)
				}

				for _, skipped := range multierr.Errors(live.Skipped) {
					fmt.Fprintf(cmd.ErrOrStderr(), "skipped: %s\n", skipped)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&bestEffort, "best-effort", false, "skip pinned references that cannot be fetched instead of aborting")
	return cmd
}

func newRepoStatCmd(env *cmdEnv) *cobra.Command {
	var (
		human    bool
		sizeOnly bool
	)

	cmd := &cobra.Command{
		Use:   "stat",
		Short: "Get stats for the currently used repo",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withAPI(cmd.Context(), func(_ *coreapi.CoreAPI, n *core.PincoreNode) error {
				var stat corerepo.Stat
				var err error
				if sizeOnly {
					stat.SizeStat, err = corerepo.RepoSize(cmd.Context(), n)
				} else {
					stat, err = corerepo.RepoStat(cmd.Context(), n)
				}
				if err != nil {
					return err
				}

				wtr := tabwriter.NewWriter(env.out, 0, 0, 1, ' ', 0)
				printSize := func(name string, size uint64) {
					sizeStr := fmt.Sprintf("%d", size)
					if human {
						sizeStr = humanize.Bytes(size)
					}
					fmt.Fprintf(wtr, "%s:\t%s\n", name, sizeStr)
				}

				if !sizeOnly {
					fmt.Fprintf(wtr, "NumObjects:\t%d\n", stat.NumObjects)
				}
				printSize("RepoSize", stat.RepoSize)
				printSize("StorageMax", stat.StorageMax)
				if !sizeOnly {
					fmt.Fprintf(wtr, "RepoPath:\t%s\n", stat.RepoPath)
					fmt.Fprintf(wtr, "Version:\t%s\n", stat.Version)
				}
				return wtr.Flush()
			})
		},
	}
	cmd.Flags().BoolVarP(&human, "human", "H", false, "print sizes in human readable format")
	cmd.Flags().BoolVarP(&sizeOnly, "size-only", "s", false, "only report RepoSize and StorageMax")
	return cmd
}
