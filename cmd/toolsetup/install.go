package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aexvir/toolsetup"
	"github.com/aexvir/toolsetup/binary"
	"github.com/aexvir/toolsetup/tools"
)

func newInstallCmd(s *settings) *cobra.Command {
	var pathfile string

	cmd := &cobra.Command{
		Use:   "install <tool>[@version]...",
		Short: "Install tools into the cache and publish them",
		Long: `Install every tool given, at the requested version or the latest one.

Tools already in the cache are not downloaded again. The directory of each tool
is printed; when running on a pipeline runner that exposes a path file
($GITHUB_PATH) the directory is also appended to it so later steps find the tool.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if pathfile == "" {
				pathfile = os.Getenv("GITHUB_PATH")
			}

			env := binary.PathEnv(binary.ProcessEnv())
			if pathfile != "" {
				env = &runnerpath{file: pathfile, next: env}
			}

			bins, err := s.binaries(args, binary.WithPathEnv(env))
			if err != nil {
				return err
			}

			if err := toolsetup.New().Execute(cmd.Context(), tools.Provision(bins...)); err != nil {
				return err
			}

			for _, bin := range bins {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", bin.Name(), bin.Version(), bin.Dir())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&pathfile, "path-file", "", "file collecting directories to add to PATH (default: $GITHUB_PATH)")

	return cmd
}

// binaries builds a binary for every "tool[@version]" reference.
func (s *settings) binaries(refs []string, options ...binary.Option) ([]*binary.Binary, error) {
	conf, err := s.config()
	if err != nil {
		return nil, err
	}

	reg, err := s.registry()
	if err != nil {
		return nil, err
	}

	target, err := s.target()
	if err != nil {
		return nil, err
	}

	bins := make([]*binary.Binary, 0, len(refs))
	for _, ref := range refs {
		name, ver, err := parseRef(ref)
		if err != nil {
			return nil, err
		}

		def, err := reg.Lookup(name)
		if err != nil {
			return nil, err
		}

		bin, err := def.Binary(ver, conf, append([]binary.Option{binary.WithTarget(target)}, options...)...)
		if err != nil {
			return nil, err
		}

		bins = append(bins, bin)
	}

	return bins, nil
}

// runnerpath publishes to the path file read by pipeline runners between
// steps, besides publishing to next.
type runnerpath struct {
	file string
	next binary.PathEnv
}

func (p *runnerpath) PrependPath(dir string) error {
	if err := p.next.PrependPath(dir); err != nil {
		return err
	}

	out, err := os.OpenFile(p.file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open path file %s: %w", p.file, err)
	}

	if _, err := fmt.Fprintln(out, dir); err != nil {
		out.Close()
		return fmt.Errorf("failed to write path file %s: %w", p.file, err)
	}

	return out.Close()
}
