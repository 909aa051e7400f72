package annotations

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
)

// OutputFormatter formats events for human-readable display.
type OutputFormatter struct {
	useColor bool
	writer   io.Writer
	renderer *StepRenderer
}

// NewOutputFormatter creates a formatter with color support detection.
func NewOutputFormatter(w io.Writer) *OutputFormatter {
	if w == nil {
		w = os.Stdout
	}

	useColor := false
	if f, ok := w.(*os.File); ok {
		useColor = isTerminal(f.Fd())
	}

	return &OutputFormatter{
		useColor: useColor,
		writer:   w,
		renderer: NewStepRenderer(useColor),
	}
}

// Handle implements the Handler interface - prints events as they occur.
func (f *OutputFormatter) Handle(event Event) {
	output := f.Format(event)
	if output != "" {
		fmt.Fprintln(f.writer, output)
	}
}

// Format converts an event to a human-readable string.
func (f *OutputFormatter) Format(event Event) string {
	latency := f.formatLatency(event.Latency)

	switch event.Name {
	case PlanInvoked:
		return fmt.Sprintf("%s Planning conjunction with %s",
			latency,
			f.colorizeCount("patterns", event.Data["pattern.count"].(int)))

	case PlanCompleted:
		return fmt.Sprintf("%s %s Plan found with %s",
			latency,
			f.colorize("===", color.FgGreen),
			f.colorizeCount("steps", event.Data["step.count"].(int)))

	case PlanLowered:
		return fmt.Sprintf("\n%s\n", event.Data["plan"].(string))

	case BeamIterationBegin:
		return fmt.Sprintf("%s Beam iteration %d starting with %s",
			latency,
			event.Data["iteration"],
			f.colorizeCount("candidates", event.Data["beam.size"].(int)))

	case BeamIterationComplete:
		return fmt.Sprintf("%s Beam iteration %d kept %s of %s",
			latency,
			event.Data["iteration"],
			f.colorizeCount("plans", event.Data["kept"].(int)),
			f.colorizeCount("candidates", event.Data["considered"].(int)))

	case BeamPlanPruned:
		return ""

	case StepOpened:
		return fmt.Sprintf("%s Opened %s",
			latency,
			f.renderer.RenderStep(StepInfo{
				SortVar:   fmt.Sprintf("%v", event.Data["join.var"]),
				Iterators: -1,
				Rows:      -1,
			}))

	case StepClosed:
		step := StepInfo{Iterators: event.Data["pattern.count"].(int), Rows: -1}
		in, okIn := event.Data["rows.in"].(int)
		out, okOut := event.Data["rows.out"].(int)
		if okIn && okOut {
			return fmt.Sprintf("%s Closed %s", latency, f.renderer.RenderFlow(in, step, out))
		}
		return fmt.Sprintf("%s Closed %s", latency, f.renderer.RenderStep(step))

	case QueryInvoked:
		return fmt.Sprintf("%s Query invoked", latency)

	case QueryComplete:
		success := event.Data["success"].(bool)
		if !success {
			return fmt.Sprintf("%s %s Query failed: %v",
				latency,
				f.colorize("✗", color.FgRed),
				event.Data["error"])
		}
		return fmt.Sprintf("%s %s Query done with %s total.",
			latency,
			f.colorize("===", color.FgGreen),
			f.colorizeCount("rows", event.Data["rows.count"].(int)))

	case IntersectionPrepare:
		sortVar, _ := event.Data["sort.var"].(string)
		return fmt.Sprintf("%s Intersecting %s",
			latency,
			f.renderer.RenderStep(StepInfo{
				SortVar:   sortVar,
				Iterators: event.Data["iterator.count"].(int),
				Rows:      -1,
			}))

	case IntersectionAdvanced:
		return fmt.Sprintf("%s %s advanced past value with multiplicity %v",
			latency,
			f.colorize("∩", color.FgCyan),
			event.Data["multiplicity"])

	case IntersectionFailed:
		return fmt.Sprintf("%s %s intersection exhausted",
			latency,
			f.colorize("∩", color.FgRed))

	case CartesianActivated:
		return fmt.Sprintf("%s %s cartesian activated over %s",
			latency,
			f.colorize("×", color.FgYellow),
			f.colorizeCount("iterators", event.Data["iterator.count"].(int)))

	case CartesianReopened:
		return fmt.Sprintf("%s %s cartesian reopened iterator %v",
			latency,
			f.colorize("×", color.FgYellow),
			event.Data["index"])

	case CartesianExhausted:
		return fmt.Sprintf("%s %s cartesian exhausted", latency, f.colorize("×", color.FgYellow))

	case ErrorPlanning:
		return fmt.Sprintf("%s %s planning error: %v",
			latency,
			f.colorize("✗", color.FgRed),
			event.Data["error"])

	case ErrorExecution:
		return fmt.Sprintf("%s %s execution error: %v",
			latency,
			f.colorize("✗", color.FgRed),
			event.Data["error"])

	default:
		return fmt.Sprintf("%s %s %v", latency, event.Name, event.Data)
	}
}

// formatLatency formats a duration as [XXXms] or [XXXµs] with color coding.
func (f *OutputFormatter) formatLatency(d time.Duration) string {
	if d < time.Millisecond {
		us := d.Microseconds()
		s := fmt.Sprintf("[%dµs]", us)
		if !f.useColor {
			return s
		}
		return color.GreenString(s)
	}

	ms := float64(d.Microseconds()) / 1000.0
	s := fmt.Sprintf("[%.1fms]", ms)

	if !f.useColor {
		return s
	}

	switch {
	case ms < 50:
		return color.GreenString(s)
	case ms < 200:
		return color.YellowString(s)
	default:
		return color.RedString(s)
	}
}

// colorizeCount formats a count with a label, using color based on the label type.
func (f *OutputFormatter) colorizeCount(label string, count int) string {
	text := fmt.Sprintf("%d %s", count, label)

	if !f.useColor {
		return text
	}

	switch strings.ToLower(label) {
	case "rows":
		return color.MagentaString(text)
	case "iterators":
		return color.BlueString(text)
	case "patterns", "candidates", "plans", "steps":
		return color.CyanString(text)
	default:
		return text
	}
}

// colorize applies color if enabled.
func (f *OutputFormatter) colorize(text string, attrs ...color.Attribute) string {
	if !f.useColor {
		return text
	}
	return color.New(attrs...).Sprint(text)
}

// ConsoleHandler creates a handler that prints formatted events to stdout.
func ConsoleHandler() Handler {
	formatter := NewOutputFormatter(os.Stdout)
	return func(event Event) {
		fmt.Fprintln(formatter.writer, formatter.Format(event))
	}
}

// isTerminal treats file descriptors 1 and 2 (stdout, stderr) as
// terminals; it does not query the descriptor itself.
func isTerminal(fd uintptr) bool {
	return fd == uintptr(1) || fd == uintptr(2)
}
