package main

import (
	"fmt"

	"github.com/ipfs/pincore/core"
	"github.com/ipfs/pincore/core/coreapi"
	"github.com/ipfs/pincore/path"

	"github.com/spf13/cobra"
)

func newResolveCmd(env *cmdEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <path>",
		Short: "Resolve a path to the cid of the node it names",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := path.ParsePath(args[0])
			if err != nil {
				return err
			}
			return env.withAPI(cmd.Context(), func(api *coreapi.CoreAPI, _ *core.PincoreNode) error {
				c, err := api.ResolvePath(cmd.Context(), p)
				if err != nil {
					return err
				}
				fmt.Fprintf(env.out, "/ipfs/%s\n", env.encodeCid(c))
				return nil
			})
		},
	}
}
