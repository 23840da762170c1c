package main

import (
	util "github.com/ipfs/pincore/blocks/blockstore/util"
	"github.com/ipfs/pincore/core"
	"github.com/ipfs/pincore/core/coreapi"
	"github.com/ipfs/pincore/path"

	cid "github.com/ipfs/go-cid"
	"github.com/spf13/cobra"
)

func newBlockCmd(env *cmdEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "block",
		Short: "Interact with raw blocks in the blockstore",
	}
	cmd.AddCommand(newBlockRmCmd(env))
	return cmd
}

func newBlockRmCmd(env *cmdEnv) *cobra.Command {
	var force, quiet bool

	cmd := &cobra.Command{
		Use:   "rm <cid>...",
		Short: "Remove blocks from the blockstore",
		Long: `Removes the given blocks. Pinned blocks, including blocks reached
through a recursive pin, are kept and reported.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cids := make([]cid.Cid, 0, len(args))
			for _, a := range args {
				c, err := path.ParseCid(a)
				if err != nil {
					return err
				}
				cids = append(cids, c)
			}

			return env.withAPI(cmd.Context(), func(_ *coreapi.CoreAPI, n *core.PincoreNode) error {
				out, err := util.RmBlocks(cmd.Context(), n.Blockstore, n.Pinning, cids, util.RmBlocksOpts{
					Force: force,
					Quiet: quiet,
				})
				if err != nil {
					return err
				}
				return util.ProcRmOutput(out, env.out, cmd.ErrOrStderr(), env.encodeCid)
			})
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "ignore nonexistent blocks")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "write minimal output")
	return cmd
}
