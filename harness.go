// Package toolsetup runs pipeline tasks that depend on external command line
// tools. Tools are provisioned with the binary package and executed with
// [Run] inside a [Harness], which takes care of consistent output and of
// collecting failures.
package toolsetup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"
)

// Harness is a support structure that runs tasks, the harness can be customized with
// pre- and post- execution hook functions, where common functionality to all tasks
// can be defined.
type Harness struct {
	PreExecHook  Task
	PostExecHook Task
}

// New constructs a harness.
func New(opts ...Option) *Harness {
	h := Harness{
		PreExecHook:  func(_ context.Context) error { return nil },
		PostExecHook: func(_ context.Context) error { return nil },
	}

	for _, opt := range opts {
		opt(&h)
	}

	return &h
}

// Execute a list of tasks inside the harness.
// Every task inside the harness is run sequentially, showing a consistent output where
// the task status and timing info are clearly visible.
// A failing task doesn't stop the following ones; all failures are joined in
// the returned error so callers can still match them with [errors.As].
func (h *Harness) Execute(ctx context.Context, tasks ...Task) error {
	var errs []error
	start := time.Now()

	fmt.Fprintln(color.Output)

	if err := h.PreExecHook(ctx); err != nil {
		return fmt.Errorf("failed to run pre exec hook: %w", err)
	}

	for _, task := range tasks {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		if err := task(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if err := h.PostExecHook(ctx); err != nil {
		return fmt.Errorf("failed to run post exec hook: %w", err)
	}

	elapsed := time.Since(start).Round(time.Millisecond)
	color.New(color.FgHiBlack).Printf("------------------------\n\n")

	if len(errs) > 0 {
		color.Red(" ✘ finished with errors after %s", elapsed)
		for _, err := range errs {
			color.Red("   • %s", err)
		}
		fmt.Fprintln(color.Output)
		return errors.Join(errs...)
	}

	color.Green(" ✔ all good after %s\n\n", elapsed)
	return nil
}

// Task defines the basic function that the harness executes.
// Additional configuration and tweaks can be done by using closures which return
// Tasks.
type Task func(ctx context.Context) error

type Option func(h *Harness)

// WithPreExecFunc allows specifying a task that will be run every execution, before the
// specific execution tasks are run.
func WithPreExecFunc(hook Task) Option {
	return func(h *Harness) {
		h.PreExecHook = hook
	}
}

// WithPostExecFunc allows specifying a task that will be run every execution, after
// all the specific execution tasks are run, whether they failed or not.
func WithPostExecFunc(hook Task) Option {
	return func(h *Harness) {
		h.PostExecHook = hook
	}
}

// LogStep prints a step line in the harness format.
func LogStep(text string) {
	fmt.Fprintln(
		color.Output,
		color.BlueString(" •"),
		color.New(color.FgHiBlack).Sprint(text),
	)
}
