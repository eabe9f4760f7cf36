package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aexvir/toolsetup/cache"
)

func newListCmd(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "list <tool>",
		Short: "List the cached versions of a tool, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := s.config()
			if err != nil {
				return err
			}

			target, err := s.target()
			if err != nil {
				return err
			}

			index := cache.New(conf.CacheDir)
			versions := index.Versions(args[0], string(target.Arch))
			if len(versions) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "no cached versions of %s for %s\n", args[0], target.Arch)
				return nil
			}

			for _, ver := range versions {
				key := cache.Key{Tool: args[0], Version: ver, Arch: string(target.Arch)}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", ver, index.Dir(key))
			}
			return nil
		},
	}
}
