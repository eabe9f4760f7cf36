package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/aexvir/toolsetup"
	"github.com/aexvir/toolsetup/binary"
)

// Provision a list of binaries.
// Generates a task where [binary.Binary.Ensure] is called on each binary
// collecting and returning any errors encountered.
// Every binary is attempted even when a previous one failed.
func Provision(binaries ...*binary.Binary) toolsetup.Task {
	return func(ctx context.Context) (err error) {
		var errs []error
		start := time.Now()
		defer func() {
			elapsed := time.Since(start).Round(time.Millisecond)
			if err != nil {
				color.Red(" ✘ %s\n\n", elapsed)
				return
			}
			color.Green(" ✔ %s\n\n", elapsed)
		}()

		names := make([]string, 0, len(binaries))
		for _, bin := range binaries {
			names = append(names, bin.Name())
		}
		toolsetup.LogStep(fmt.Sprintf("provisioning %d binaries: %s", len(binaries), strings.Join(names, ", ")))

		for _, bin := range binaries {
			if err := bin.Ensure(ctx); err != nil {
				color.Red(" • failed to provision %s: %s", bin.Name(), err)
				errs = append(errs, fmt.Errorf("failed to provision %s: %w", bin.Name(), err))
			}
		}

		return errors.Join(errs...)
	}
}
