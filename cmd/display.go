package main

import (
	"fmt"
	"io"

	"github.com/pterm/pterm"

	"github.com/coderline/phase/compiler"
)

// printReport renders one row per unit and lists the diagnostics of units that
// did not emit cleanly
func printReport(out io.Writer, report *compiler.Report, check bool) {
	data := pterm.TableData{{"Backend", "Type", "Status", "Artifacts", "Diagnostics"}}
	for _, u := range report.Units {
		artifacts := fmt.Sprint(len(u.Outputs))
		if check {
			artifacts = "-"
		}
		data = append(data, []string{u.Backend, u.Type, statusText(u.Status), artifacts, fmt.Sprint(len(u.Diagnostics))})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(data).WithWriter(out).Render()

	for _, u := range report.Units {
		for _, d := range u.Diagnostics {
			fmt.Fprintf(out, "%s %s: %s\n", u.Backend, u.Type, d.String())
		}
	}
	fmt.Fprintf(out, "%d ok, %d fallback, %d failed\n",
		report.Count(compiler.StatusOK), report.Count(compiler.StatusFallback), report.Count(compiler.StatusFailed))
}

func statusText(s compiler.UnitStatus) string {
	switch s {
	case compiler.StatusFailed:
		return pterm.Red(s.String())
	case compiler.StatusFallback:
		return pterm.Yellow(s.String())
	}
	return pterm.Green(s.String())
}
