package main

import (
	"errors"
	"fmt"

	"github.com/ipfs/pincore/core"
	"github.com/ipfs/pincore/core/coreapi"
	caopts "github.com/ipfs/pincore/core/coreapi/options"
	"github.com/ipfs/pincore/path"
	"github.com/ipfs/pincore/pin"

	"github.com/spf13/cobra"
)

func newPinCmd(env *cmdEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pin",
		Short: "Pin objects to local storage",
	}
	cmd.AddCommand(
		newPinAddCmd(env),
		newPinRmCmd(env),
		newPinLsCmd(env),
		newPinUpdateCmd(env),
		newPinVerifyCmd(env),
	)
	return cmd
}

func parsePaths(args []string) ([]path.Path, error) {
	out := make([]path.Path, 0, len(args))
	for _, a := range args {
		p, err := path.ParsePath(a)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func newPinAddCmd(env *cmdEnv) *cobra.Command {
	var recursive bool

	cmd := &cobra.Command{
		Use:   "add <path>...",
		Short: "Pin objects to local storage",
		Long: `Stores the objects named by the paths and keeps them from being
garbage collected. A recursive pin (the default) fetches and keeps the whole
DAG below each object.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := parsePaths(args)
			if err != nil {
				return err
			}
			pintype := "directly"
			if recursive {
				pintype = "recursively"
			}
			return env.withAPI(cmd.Context(), func(api *coreapi.CoreAPI, _ *core.PincoreNode) error {
				for _, p := range paths {
					c, err := api.Pin().Add(cmd.Context(), p, caopts.Pin.Recursive(recursive))
					if err != nil {
						return err
					}
					fmt.Fprintf(env.out, "pinned %s %s\n", env.encodeCid(c), pintype)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", true, "recursively pin the object linked to by the specified object(s)")
	return cmd
}

func newPinRmCmd(env *cmdEnv) *cobra.Command {
	var recursive bool

	cmd := &cobra.Command{
		Use:   "rm <path>...",
		Short: "Remove pinned objects from local storage",
		Long: `Removes the pin from the given objects allowing them to be garbage
collected if needed. Without --recursive only a direct pin is removed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := parsePaths(args)
			if err != nil {
				return err
			}
			return env.withAPI(cmd.Context(), func(api *coreapi.CoreAPI, _ *core.PincoreNode) error {
				for _, p := range paths {
					c, err := api.Pin().Rm(cmd.Context(), p, caopts.Pin.RmRecursive(recursive))
					if err != nil {
						return err
					}
					fmt.Fprintf(env.out, "unpinned %s\n", env.encodeCid(c))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", true, "recursively unpin the object linked to by the specified object(s)")
	return cmd
}

func newPinLsCmd(env *cmdEnv) *cobra.Command {
	var (
		typ   string
		quiet bool
	)

	cmd := &cobra.Command{
		Use:   "ls [<path>...]",
		Short: "List objects pinned to local storage",
		Long: `Lists pins of the given type (direct, indirect, recursive or all).
With paths, only those objects are checked; an object pinned under no
matching type is an error.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := parsePaths(args)
			if err != nil {
				return err
			}
			return env.withAPI(cmd.Context(), func(api *coreapi.CoreAPI, _ *core.PincoreNode) error {
				var listings []pin.Listing
				if len(paths) == 0 {
					listings, err = api.Pin().Ls(cmd.Context(), caopts.Pin.Ls.Type(typ))
					if err != nil {
						return err
					}
				}
				for _, p := range paths {
					ls, err := api.Pin().LsPath(cmd.Context(), p, caopts.Pin.Ls.Type(typ))
					if err != nil {
						return err
					}
					listings = append(listings, ls...)
				}

				for _, l := range listings {
					if quiet {
						fmt.Fprintln(env.out, env.encodeCid(l.Cid))
						continue
					}
					class := l.Mode.String()
					if l.Mode == pin.Indirect {
						class = "indirect through " + env.encodeCid(l.Via)
					}
					fmt.Fprintf(env.out, "%s %s\n", env.encodeCid(l.Cid), class)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&typ, "type", "t", "all", "the type of pinned keys to list: direct, indirect, recursive or all")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "write just hashes of objects")
	return cmd
}

func newPinUpdateCmd(env *cmdEnv) *cobra.Command {
	var unpin bool

	cmd := &cobra.Command{
		Use:   "update <from-path> <to-path>",
		Short: "Update a recursive pin",
		Long: `Pins <to-path> recursively and, unless --unpin=false, removes the
recursive pin of <from-path>. Pinning the new DAG fetches only what the
node does not hold.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := parsePaths(args)
			if err != nil {
				return err
			}
			return env.withAPI(cmd.Context(), func(api *coreapi.CoreAPI, _ *core.PincoreNode) error {
				if err := api.Pin().Update(cmd.Context(), paths[0], paths[1], caopts.Pin.Unpin(unpin)); err != nil {
					return err
				}
				fmt.Fprintf(env.out, "updated %s to %s\n", paths[0], paths[1])
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&unpin, "unpin", true, "remove the old pin")
	return cmd
}

var errBrokenPins = errors.New("some pinned DAGs are incomplete")

func newPinVerifyCmd(env *cmdEnv) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify that pinned DAGs are complete",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withAPI(cmd.Context(), func(api *coreapi.CoreAPI, _ *core.PincoreNode) error {
				statuses, err := api.Pin().Verify(cmd.Context())
				if err != nil {
					return err
				}

				broken := 0
				for _, s := range statuses {
					if s.Ok() {
						if verbose {
							fmt.Fprintf(env.out, "%s ok\n", env.encodeCid(s.Cid))
						}
						continue
					}
					broken++
					fmt.Fprintf(env.out, "%s broken\n", env.encodeCid(s.Cid))
					for _, bad := range s.BadNodes {
						fmt.Fprintf(env.out, "  %s: %s\n", env.encodeCid(bad.Cid), bad.Err)
					}
				}
				if broken > 0 {
					return fmt.Errorf("%w: %d of %d", errBrokenPins, broken, len(statuses))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&verbose, "verbose", false, "also write the hashes of non-broken pins")
	return cmd
}
