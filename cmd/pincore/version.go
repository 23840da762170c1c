package main

import (
	"fmt"

	pincore "github.com/ipfs/pincore"

	"github.com/spf13/cobra"
)

func newVersionCmd(env *cmdEnv) *cobra.Command {
	var (
		number bool
		all    bool
	)

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show pincore version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := pincore.GetVersionInfo()
			switch {
			case number:
				fmt.Fprintln(env.out, v.Version)
			case all:
				fmt.Fprintf(env.out, "pincore version: %s\n", v.Version)
				fmt.Fprintf(env.out, "Agent: %s\n", pincore.GetUserAgentVersion())
				fmt.Fprintf(env.out, "Repo version: %s\n", v.Repo)
				fmt.Fprintf(env.out, "System version: %s\n", v.System)
				fmt.Fprintf(env.out, "Golang version: %s\n", v.Golang)
				if v.Commit != "" {
					fmt.Fprintf(env.out, "Commit: %s\n", v.Commit)
				}
			default:
				fmt.Fprintf(env.out, "pincore version %s\n", v.Version)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&number, "number", "n", false, "only show the version number")
	cmd.Flags().BoolVar(&all, "all", false, "show all version information")
	return cmd
}
