package main

import (
	"errors"
	"fmt"

	"github.com/ipfs/pincore/config"
	"github.com/ipfs/pincore/repo/fsrepo"

	"github.com/spf13/cobra"
)

var errRepoExists = errors.New("pincore configuration file already exists")

func newInitCmd(env *cmdEnv) *cobra.Command {
	var profiles string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a pincore repository",
		Long: `Writes the config file, the datastore spec and the repo version under
--repo. Profiles adjust the default config before it is written, for
example --profile=badgerds selects the badger datastore.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			locked, err := fsrepo.LockedByOtherProcess(env.repoPath)
			if err != nil {
				log.Debugw("checking repo lock", "error", err)
			}
			if locked {
				return fmt.Errorf("another process is using the repo at %s", env.repoPath)
			}
			if fsrepo.IsInitialized(env.repoPath) {
				return errRepoExists
			}

			conf, err := config.Init()
			if err != nil {
				return err
			}
			if err := config.ApplyProfiles(conf, profiles); err != nil {
				return err
			}

			fmt.Fprintf(env.out, "initializing pincore repo at %s\n", env.repoPath)
			return fsrepo.Init(env.repoPath, conf)
		},
	}
	cmd.Flags().StringVarP(&profiles, "profile", "p", "", "comma separated configuration profiles to apply")
	return cmd
}
