package annotations

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// StepInfo is the shape of one plan step for rendering: the sort
// variable its iterators intersect on, how many iterators it drives, and
// how many rows it produced. Negative counts mean "not known yet" and
// are omitted from the output.
type StepInfo struct {
	SortVar   string
	Iterators int
	Rows      int
}

// StepRenderer pretty-prints plan steps and their row flow.
type StepRenderer struct {
	useColor bool
}

// NewStepRenderer creates a step renderer.
func NewStepRenderer(useColor bool) *StepRenderer {
	return &StepRenderer{useColor: useColor}
}

// RenderStep renders a single step as Step([$var], N iterators, M rows),
// dropping the parts that are unknown.
func (r *StepRenderer) RenderStep(s StepInfo) string {
	var parts []string
	if s.SortVar != "" {
		if r.useColor {
			parts = append(parts, color.BlueString("[")+color.CyanString(s.SortVar)+color.BlueString("]"))
		} else {
			parts = append(parts, "["+s.SortVar+"]")
		}
	}
	if s.Iterators >= 0 {
		parts = append(parts, r.colorizeCount("iterators", s.Iterators))
	}
	if s.Rows >= 0 {
		parts = append(parts, r.colorizeCount("rows", s.Rows))
	}

	body := strings.Join(parts, ", ")
	if r.useColor {
		return color.BlueString("Step(") + body + color.BlueString(")")
	}
	return fmt.Sprintf("Step(%s)", body)
}

// RenderFlow renders a step consuming input rows and producing output
// rows: N rows → Step(...) → M rows.
func (r *StepRenderer) RenderFlow(inRows int, step StepInfo, outRows int) string {
	arrow := " → "
	if r.useColor {
		arrow = color.YellowString(" → ")
	}
	return r.colorizeCount("rows", inRows) + arrow + r.RenderStep(step) + arrow + r.colorizeCount("rows", outRows)
}

// colorizeCount formats a count with a label, color-coded by magnitude so
// empty and exploding steps stand out.
func (r *StepRenderer) colorizeCount(label string, count int) string {
	if !r.useColor {
		return fmt.Sprintf("%d %s", count, label)
	}

	countStr := fmt.Sprintf("%d", count)
	switch {
	case count == 0:
		countStr = color.RedString(countStr)
	case count < 100:
		countStr = color.GreenString(countStr)
	case count < 10000:
		countStr = color.YellowString(countStr)
	default:
		countStr = color.RedString(countStr)
	}

	return fmt.Sprintf("%s %s", countStr, label)
}
