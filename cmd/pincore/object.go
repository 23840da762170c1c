package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/ipfs/pincore/core"
	"github.com/ipfs/pincore/core/coreapi"
	caopts "github.com/ipfs/pincore/core/coreapi/options"
	"github.com/ipfs/pincore/path"

	"github.com/spf13/cobra"
)

func newObjectCmd(env *cmdEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "object",
		Short: "Interact with dag-pb objects",
	}
	cmd.AddCommand(
		newObjectStatCmd(env),
		newObjectPutCmd(env),
		newObjectNewCmd(env),
	)
	return cmd
}

func newObjectStatCmd(env *cmdEnv) *cobra.Command {
	var (
		timeout time.Duration
		local   bool
	)

	cmd := &cobra.Command{
		Use:   "stat <path>",
		Short: "Get stats for the DAG node named by <path>",
		Long: `Prints the sizes of the node and the cumulative size of the DAG
below it. Every block of the DAG is resolved; --timeout bounds the whole
computation.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := path.ParsePath(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			return env.withAPI(cmd.Context(), func(api *coreapi.CoreAPI, _ *core.PincoreNode) error {
				stat := api.Object().Stat
				if local {
					stat = api.Object().LocalStat
				}
				st, err := stat(ctx, p)
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(env.out, 0, 0, 1, ' ', 0)
				fmt.Fprintf(w, "Hash:\t%s\n", env.encodeCid(st.Hash))
				fmt.Fprintf(w, "NumLinks:\t%d\n", st.NumLinks)
				fmt.Fprintf(w, "BlockSize:\t%d\n", st.BlockSize)
				fmt.Fprintf(w, "LinksSize:\t%d\n", st.LinksSize)
				fmt.Fprintf(w, "DataSize:\t%d\n", st.DataSize)
				fmt.Fprintf(w, "CumulativeSize:\t%d\n", st.CumulativeSize)
				return w.Flush()
			})
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "maximum time to spend resolving the DAG, 0 for no limit")
	cmd.Flags().BoolVar(&local, "local", false, "stat only the named node, trusting link size hints for CumulativeSize")
	return cmd
}

func newObjectPutCmd(env *cmdEnv) *cobra.Command {
	var (
		inputEnc string
		dataEnc  string
		pin      bool
	)

	cmd := &cobra.Command{
		Use:   "put",
		Short: "Store a dag-pb node read from stdin",
		Long: `Reads a node from stdin and stores it. The json encoding expects

  {"Data": "...", "Links": [{"Name": "...", "Hash": "<cid>", "Size": 0}]}

and --datafieldenc selects whether Data is plain text or base64. The
protobuf encoding expects a serialized dag-pb node.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withAPI(cmd.Context(), func(api *coreapi.CoreAPI, _ *core.PincoreNode) error {
				c, err := api.Object().Put(cmd.Context(), env.in,
					caopts.Object.InputEnc(inputEnc),
					caopts.Object.DataType(dataEnc),
					caopts.Object.Pin(pin),
				)
				if err != nil {
					return err
				}
				fmt.Fprintf(env.out, "added %s\n", env.encodeCid(c))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&inputEnc, "input-enc", "json", "encoding of the input: json or protobuf")
	cmd.Flags().StringVar(&dataEnc, "datafieldenc", "text", "encoding of the Data field: text or base64")
	cmd.Flags().BoolVar(&pin, "pin", false, "pin the stored node directly")
	return cmd
}

func newObjectNewCmd(env *cmdEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "new [<template>]",
		Short: "Create a new object from a template",
		Long:  `Stores a new node built from the template. The only template is "empty".`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			typ := "empty"
			if len(args) == 1 {
				typ = args[0]
			}
			return env.withAPI(cmd.Context(), func(api *coreapi.CoreAPI, _ *core.PincoreNode) error {
				nd, err := api.Object().New(cmd.Context(), caopts.Object.Type(typ))
				if err != nil {
					return err
				}
				fmt.Fprintln(env.out, env.encodeCid(nd.Cid()))
				return nil
			})
		},
	}
}
