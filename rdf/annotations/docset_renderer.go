package annotations

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// DocSetRenderer pretty-prints patterns and document sets
type DocSetRenderer struct {
	useColor bool
}

// NewDocSetRenderer creates a renderer
func NewDocSetRenderer(useColor bool) *DocSetRenderer {
	return &DocSetRenderer{useColor: useColor}
}

// RenderPattern renders Pattern((s p o))
func (r *DocSetRenderer) RenderPattern(pattern string) string {
	if r.useColor {
		return color.BlueString("Pattern(") + color.CyanString(pattern) + color.BlueString(")")
	}
	return fmt.Sprintf("Pattern(%s)", pattern)
}

// RenderDocSet renders DocSet([?a ?b], N docs). A negative count omits it.
func (r *DocSetRenderer) RenderDocSet(vars []string, count int) string {
	varList := strings.Join(vars, " ")

	if r.useColor {
		s := color.BlueString("DocSet([") + color.CyanString(varList) + color.BlueString("]")
		if count >= 0 {
			s += color.BlueString(", ") + r.colorizeCount("docs", count)
		}
		return s + color.BlueString(")")
	}

	if count >= 0 {
		return fmt.Sprintf("DocSet([%s], %d docs)", varList, count)
	}
	return fmt.Sprintf("DocSet([%s])", varList)
}

// RenderJoin renders left ⋉ right → result
func (r *DocSetRenderer) RenderJoin(left string, leftCount int, right string, rightCount int, resultVars []string, resultCount int) string {
	op := " ⋉ "
	arrow := " → "
	if r.useColor {
		op = color.YellowString(op)
		arrow = color.YellowString(arrow)
	}
	return fmt.Sprintf("%s[%s]%s%s[%s]%s%s",
		r.RenderPattern(left), r.colorizeCount("docs", leftCount),
		op,
		r.RenderPattern(right), r.colorizeCount("docs", rightCount),
		arrow,
		r.RenderDocSet(resultVars, resultCount))
}

// colorizeCount colours a count by magnitude
func (r *DocSetRenderer) colorizeCount(label string, count int) string {
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
