package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/aexvir/toolsetup"
	"github.com/aexvir/toolsetup/binary"
)

func newExecCmd(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "exec <tool>[@version] -- [args...]",
		Short: "Run a tool, installing it first if needed",
		Long: `Run a tool with the given arguments.

The tool is published only to the environment of the command being run, the
environment of the caller is left untouched. Install progress is written to
stderr so the tool output can be piped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// stdout belongs to the tool
			color.Output = cmd.ErrOrStderr()

			env := binary.NewEnv(os.Environ())

			bins, err := s.binaries(args[:1], binary.WithPathEnv(env))
			if err != nil {
				return err
			}

			// the environment is only complete once the tool is published,
			// so it's read when the command is built
			return toolsetup.RunTool(
				cmd.Context(),
				bins[0],
				environ(env),
				toolsetup.WithArgs(args[1:]...),
				toolsetup.WithStdOut(cmd.OutOrStdout()),
				toolsetup.WithStdErr(cmd.ErrOrStderr()),
			)
		},
	}
}

func environ(env *binary.Env) toolsetup.RunnerOpt {
	return func(r *toolsetup.TaskRunner) error {
		return toolsetup.WithEnviron(env.Environ())(r)
	}
}
