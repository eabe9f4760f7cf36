package toolsetup

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/aexvir/toolsetup/binary"
)

// TaskRunner holds the metadata for a specific command.
type TaskRunner struct {
	// Executable is the resolved, absolute path of the program.
	Executable string
	Arguments  []string

	cmd      *exec.Cmd
	env      []string
	dir      string
	stdout   io.Writer
	stderr   io.Writer
	stdin    io.Reader
	okmsg    string
	errmsg   string
	quiet    bool
	allowerr bool
}

// Cmd builds a command runner for a specific executable.
//
// Bare names are searched in the PATH of the command environment, which is
// the one set via [WithEnviron] or the process one. Relative paths are
// resolved against the current directory, not the one set via [WithDir].
func Cmd(ctx context.Context, executable string, opts ...RunnerOpt) (*TaskRunner, error) {
	r := TaskRunner{
		stdout: os.Stdout,
		stderr: os.Stderr,
		stdin:  os.Stdin,
	}

	for _, opt := range opts {
		err := opt(&r)
		if err != nil {
			return nil, err
		}
	}

	path, err := r.lookup(executable)
	if err != nil {
		return nil, err
	}
	r.Executable = path

	r.cmd = exec.CommandContext(ctx, path, r.Arguments...)
	r.cmd.Args[0] = executable
	r.cmd.Env = r.env
	r.cmd.Dir = r.dir
	r.cmd.Stdout = r.stdout
	r.cmd.Stderr = r.stderr
	r.cmd.Stdin = r.stdin

	return &r, nil
}

func (r *TaskRunner) lookup(executable string) (string, error) {
	if filepath.IsAbs(executable) {
		return executable, nil
	}

	if strings.ContainsRune(executable, filepath.Separator) || strings.ContainsRune(executable, '/') {
		abs, err := filepath.Abs(executable)
		if err != nil {
			return "", fmt.Errorf("failed to resolve %s: %w", executable, err)
		}
		return abs, nil
	}

	var (
		path string
		err  error
	)
	if r.env != nil {
		path, err = binary.NewEnv(r.env).LookPath(executable)
	} else {
		path, err = exec.LookPath(executable)
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", executable, err)
	}

	return filepath.Abs(path)
}

// Exec a command returning its error and pretty printing the ok and error messages.
func (r *TaskRunner) Exec() error {
	var err error

	start := time.Now()
	defer func() {
		elapsed := time.Since(start).Round(time.Millisecond)
		if err != nil {
			color.Red(" ✘ %s\n\n", elapsed)
			return
		}
		color.Green(" ✔ %s\n\n", elapsed)
	}()

	if !r.quiet {
		logstep(fmt.Sprint(r.cmd.Args[0], " ", strings.Join(r.Arguments, " ")))
	}

	err = r.cmd.Run()

	if !r.allowerr && err != nil {
		if !r.quiet && r.errmsg != "" {
			color.Red(r.errmsg)
		}
		return fmt.Errorf("%s: %w", r.cmd.Args[0], err)
	}

	if !r.quiet && r.okmsg != "" {
		color.Green(r.okmsg)
	}

	return nil
}

// Run is a helper function to avoid repetition while gracefully handling errors.
func Run(ctx context.Context, program string, opts ...RunnerOpt) error {
	rnr, err := Cmd(ctx, program, opts...)
	if err != nil {
		return err
	}

	return rnr.Exec()
}

// RunTool ensures bin is installed and runs it.
func RunTool(ctx context.Context, bin *binary.Binary, opts ...RunnerOpt) error {
	if err := bin.Ensure(ctx); err != nil {
		return err
	}

	return Run(ctx, bin.BinPath(), opts...)
}

// fancy-ish log of a task step.
func logstep(text string) {
	fmt.Fprintln(
		color.Output,
		color.MagentaString(" ⌘"),
		color.New(color.Bold).Sprint(text),
	)
}

// RunnerOpt allows customizing the behavior of the command runner.
type RunnerOpt func(r *TaskRunner) error

// WithEnviron replaces the whole command environment, e.g. with the
// environment a tool was published to, see [binary.Env].
func WithEnviron(environ []string) RunnerOpt {
	return func(r *TaskRunner) error {
		r.env = append([]string(nil), environ...)
		return nil
	}
}

// WithEnv sets up environment variables for the command, on top of the
// process environment or the one set via [WithEnviron].
func WithEnv(vars ...string) RunnerOpt {
	return func(r *TaskRunner) error {
		if r.env == nil {
			r.env = os.Environ()
		}
		for _, vrb := range vars {
			name, _, ok := strings.Cut(vrb, "=")
			if !ok || name == "" {
				return fmt.Errorf("invalid env format; %s doesn't match NAME=value expectation", vrb)
			}
			r.env = append(r.env, vrb)
		}
		return nil
	}
}

// WithArgs command arguments.
func WithArgs(args ...string) RunnerOpt {
	return func(r *TaskRunner) error {
		r.Arguments = args
		return nil
	}
}

// WithOKMsg sets a message to be printed when the command finishes successfully.
func WithOKMsg(msg string) RunnerOpt {
	return func(r *TaskRunner) error {
		r.okmsg = msg
		return nil
	}
}

// WithErrMsg sets a message to be printed when the command fails.
func WithErrMsg(msg string) RunnerOpt {
	return func(r *TaskRunner) error {
		r.errmsg = msg
		return nil
	}
}

// WithDir sets the directory where the command should be run inside.
func WithDir(dir string) RunnerOpt {
	return func(r *TaskRunner) error {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("failed to resolve directory %s: %w", dir, err)
		}
		r.dir = abs
		return nil
	}
}

// WithoutNoise silences all output for the command; useful when handling that on the caller side.
func WithoutNoise() RunnerOpt {
	return func(r *TaskRunner) error {
		r.quiet = true
		r.stdout = nil
		r.stderr = nil

		return nil
	}
}

// WithStdOut set up stdout writer.
func WithStdOut(w io.Writer) RunnerOpt {
	return func(r *TaskRunner) error {
		r.stdout = w
		return nil
	}
}

// WithStdErr set up stderr writer.
func WithStdErr(w io.Writer) RunnerOpt {
	return func(r *TaskRunner) error {
		r.stderr = w
		return nil
	}
}

// WithStdIn set up stdin reader.
func WithStdIn(read io.Reader) RunnerOpt {
	return func(r *TaskRunner) error {
		r.stdin = read
		return nil
	}
}

// WithAllowErrors allow errors in the command.
func WithAllowErrors() RunnerOpt {
	return func(r *TaskRunner) error {
		r.allowerr = true
		return nil
	}
}
