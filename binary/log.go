package binary

import (
	"fmt"
	"time"

	"github.com/fatih/color"
)

func logstep(text string) {
	fmt.Fprintln(
		color.Output,
		color.BlueString(" •"),
		color.New(color.FgHiBlack).Sprint(text),
	)
}

func logdetail(text string) {
	fmt.Fprintln(
		color.Output,
		color.New(color.FgHiBlack).Sprint("   └"),
		color.New(color.FgHiBlack).Sprint(text),
	)
}

// logtiming prints the elapsed time since start, in red when *err is set.
// Meant to be deferred by functions with a named error return.
func logtiming(start time.Time, err *error) {
	elapsed := time.Since(start).Round(time.Millisecond)
	if *err != nil {
		color.Red("     ✘ %s", elapsed)
		return
	}
	color.Green("     ✔ %s", elapsed)
}
