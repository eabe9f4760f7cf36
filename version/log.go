package version

import (
	"fmt"

	"github.com/fatih/color"
)

func logdetail(text string) {
	fmt.Fprintln(
		color.Output,
		color.New(color.FgHiBlack).Sprint("   └"),
		color.New(color.FgHiBlack).Sprint(text),
	)
}
