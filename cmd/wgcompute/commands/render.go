package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"

	"github.com/openfluke/wgcompute/detector"
	"github.com/openfluke/wgcompute/kernels"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7B68EE"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00D4FF")).Width(24)
	dimStyle    = lipgloss.NewStyle().Faint(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#32CD32"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F"))
	promptStyle = lipgloss.NewStyle().Bold(true)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1).Align(lipgloss.Right)
)

// renderTable draws a matrix as a bordered grid; a 1 x n table is drawn on one row.
func renderTable(t kernels.Table) string {
	tbl := lgtable.New().
		Border(lipgloss.RoundedBorder()).
		StyleFunc(func(row, col int) lipgloss.Style { return cellStyle })
	for i := 0; i < t.Rows; i++ {
		row := make([]string, t.Cols)
		for j := range row {
			row[j] = strconv.FormatInt(int64(t.Data[i*t.Cols+j]), 10)
		}
		tbl.Row(row...)
	}
	return fmt.Sprintf("%s (%dx%d)\n%s\n", t.Label, t.Rows, t.Cols, tbl.Render())
}

func renderResult(r *kernels.Result, verified bool, verr error) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("== "+r.Demo+" ==") + "\n")
	for _, in := range r.Inputs {
		b.WriteString(renderTable(in))
	}
	b.WriteString(renderTable(r.Output))
	switch {
	case verr != nil:
		b.WriteString(errStyle.Render("mismatch: "+verr.Error()) + "\n")
	case verified:
		b.WriteString(okStyle.Render("matches host reference") + "\n")
	}
	b.WriteString("\n")
	return b.String()
}

func renderDemoList(names []string) string {
	var b strings.Builder
	for _, name := range names {
		d, _ := kernels.Lookup(name)
		b.WriteString(labelStyle.Render(name) + dimStyle.Render(d.Description) + "\n")
	}
	return b.String()
}

func renderMenu(names []string) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Compute demos") + "\n")
	for i, name := range names {
		fmt.Fprintf(&b, "  %d) %s\n", i+1, name)
	}
	b.WriteString("  q) quit\n")
	return b.String()
}

func renderReport(r *detector.Report) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Compute device") + "\n")
	for _, f := range r.Fields() {
		b.WriteString(labelStyle.Render(f.Label) + f.Value + "\n")
	}
	if len(r.Features) > 0 {
		b.WriteString(dimStyle.Render(strings.Join(r.Features, ", ")) + "\n")
	}
	return b.String()
}
