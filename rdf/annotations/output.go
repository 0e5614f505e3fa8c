package annotations

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
)

// OutputFormatter formats events for human-readable display
type OutputFormatter struct {
	useColor bool
	writer   io.Writer
	renderer *DocSetRenderer
}

// NewOutputFormatter creates a formatter. Colour is enabled when w is a
// terminal.
func NewOutputFormatter(w io.Writer) *OutputFormatter {
	if w == nil {
		w = os.Stdout
	}

	useColor := false
	if f, ok := w.(*os.File); ok {
		useColor = !color.NoColor && (f == os.Stdout || f == os.Stderr)
	}

	return &OutputFormatter{
		useColor: useColor,
		writer:   w,
		renderer: NewDocSetRenderer(useColor),
	}
}

// Handle prints an event; usable as a Handler
func (f *OutputFormatter) Handle(event Event) {
	if out := f.Format(event); out != "" {
		fmt.Fprintln(f.writer, out)
	}
}

// Format converts an event to a human-readable line
func (f *OutputFormatter) Format(event Event) string {
	latency := f.formatLatency(event.Latency)
	d := event.Data

	switch event.Name {
	case BGPBegin:
		return fmt.Sprintf("%s %s BGP %s starting with %d patterns, %d filters",
			latency,
			f.colorize("===", color.FgYellow),
			shortID(stringValue(d, "execution.id")),
			intValue(d, "pattern.count"),
			intValue(d, "filter.count"))

	case PatternResolved:
		pushed := ""
		if n := intValue(d, "filters.pushed"); n > 0 {
			pushed = fmt.Sprintf(" (%d filters pushed)", n)
		}
		return fmt.Sprintf("%s %s %s%s%s",
			latency,
			f.renderer.RenderPattern(stringValue(d, "pattern")),
			f.colorize(stringValue(d, "predicate"), color.FgCyan),
			f.arrow()+f.renderer.colorizeCount("docs", intValue(d, "docs.count")),
			pushed)

	case PlanOrdered:
		return fmt.Sprintf("\n%s\n", stringValue(d, "plan"))

	case JoinStep:
		return fmt.Sprintf("%s %s",
			latency,
			f.renderer.RenderJoin(
				stringValue(d, "left.pattern"), intValue(d, "left.size"),
				stringValue(d, "right.pattern"), intValue(d, "right.size"),
				stringsValue(d, "result.vars"), intValue(d, "result.size")))

	case BindingsCollected:
		return fmt.Sprintf("%s Collected %s over %s",
			latency,
			f.renderer.colorizeCount("bindings", intValue(d, "binding.count")),
			f.renderer.RenderDocSet(stringsValue(d, "vars"), intValue(d, "docs.count")))

	case FilterApplied:
		return fmt.Sprintf("%s Filter(%s) %d in%s%d out",
			latency,
			stringValue(d, "filters"),
			intValue(d, "input.size"),
			f.arrow(),
			intValue(d, "output.size"))

	case BGPComplete:
		if ok, _ := d["success"].(bool); !ok {
			return fmt.Sprintf("%s %s BGP failed: %v",
				latency,
				f.colorize("✗", color.FgRed),
				d["error"])
		}
		return fmt.Sprintf("%s %s BGP done with %s",
			latency,
			f.colorize("===", color.FgGreen),
			f.renderer.colorizeCount("docs", intValue(d, "docs.count")))

	case ErrorPatternResolution, ErrorJoin:
		return fmt.Sprintf("%s %s %s: %v",
			latency,
			f.colorize("✗", color.FgRed),
			stringValue(d, "pattern"),
			d["error"])

	default:
		return fmt.Sprintf("%s %s %v", latency, event.Name, d)
	}
}

// formatLatency formats a duration as [XXXms] or [XXXµs]
func (f *OutputFormatter) formatLatency(d time.Duration) string {
	if d < time.Millisecond {
		s := fmt.Sprintf("[%dµs]", d.Microseconds())
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

func (f *OutputFormatter) arrow() string {
	if f.useColor {
		return color.YellowString(" → ")
	}
	return " → "
}

func (f *OutputFormatter) colorize(text string, attrs ...color.Attribute) string {
	if !f.useColor {
		return text
	}
	return color.New(attrs...).Sprint(text)
}

// ConsoleHandler creates a handler printing formatted events to w
func ConsoleHandler(w io.Writer) Handler {
	return NewOutputFormatter(w).Handle
}

func stringValue(d map[string]interface{}, key string) string {
	switch v := d[key].(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func intValue(d map[string]interface{}, key string) int {
	n, _ := d[key].(int)
	return n
}

func stringsValue(d map[string]interface{}, key string) []string {
	v, _ := d[key].([]string)
	return v
}

func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}
