package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newPlatformsCmd(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "platforms <tool>",
		Short: "Show the platforms a tool is published for",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := s.registry()
			if err != nil {
				return err
			}

			def, err := reg.Lookup(args[0])
			if err != nil {
				return err
			}

			table := def.Table()

			out := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(out, "PLATFORM\tARTIFACT\tEXECUTABLE")
			for _, target := range table.Targets() {
				desc := table[target]

				executable := "-"
				if desc.IsArchive() {
					executable = desc.ExecutablePath
				}

				fmt.Fprintf(out, "%s\t%s%s\t%s\n", target, desc.Artifact, desc.ArchiveExtension, executable)
			}

			return out.Flush()
		},
	}
}
