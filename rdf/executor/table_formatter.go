package executor

import (
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/wbrown/janus-rdf/rdf"
)

// TableFormatter renders bindings as markdown tables
type TableFormatter struct {
	// MaxWidth is the maximum width of a cell (0 = unlimited)
	MaxWidth int
	// TruncateString is appended to truncated cells
	TruncateString string
}

// NewTableFormatter creates a formatter with default settings
func NewTableFormatter() *TableFormatter {
	return &TableFormatter{
		MaxWidth:       60,
		TruncateString: "...",
	}
}

// FormatBindings renders one row per binding and one column per variable.
// With no vars the columns are the variables of the bindings in order of
// first appearance. Unbound cells are left blank.
func (tf *TableFormatter) FormatBindings(vars []rdf.Var, bindings []*rdf.Binding) string {
	if len(vars) == 0 {
		vars = bindingVars(bindings)
	}
	if len(bindings) == 0 {
		return fmt.Sprintf("_Columns: %v_\n\n_No rows_", vars)
	}

	sb := &strings.Builder{}

	alignment := make([]tw.Align, len(vars))
	for i := range alignment {
		alignment[i] = tw.AlignNone
	}

	table := tablewriter.NewTable(sb,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithAlignment(alignment),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)

	headers := make([]string, len(vars))
	for i, v := range vars {
		headers[i] = v.String()
	}
	table.Header(headers)

	for _, b := range bindings {
		row := make([]string, len(vars))
		for i, v := range vars {
			if t, ok := b.Get(v); ok {
				row[i] = tf.formatTerm(t)
			}
		}
		table.Append(row)
	}

	table.Render()
	sb.WriteString(fmt.Sprintf("\n_%d rows_\n", len(bindings)))
	return sb.String()
}

// formatTerm shows literals by lexical form and everything else in
// N-Triples syntax
func (tf *TableFormatter) formatTerm(t rdf.Term) string {
	s := t.String()
	if t.IsLiteral() && t.Lang() == "" {
		s = t.Value()
	}
	// Markdown cells cannot hold raw newlines or pipes
	s = strings.NewReplacer("\n", `\n`, "|", `\|`).Replace(s)

	if r := []rune(s); tf.MaxWidth > 0 && len(r) > tf.MaxWidth {
		cut := tf.MaxWidth - len([]rune(tf.TruncateString))
		if cut < 0 {
			cut = 0
		}
		s = string(r[:cut]) + tf.TruncateString
	}
	return s
}

func bindingVars(bindings []*rdf.Binding) []rdf.Var {
	var vars []rdf.Var
	seen := newVarSet()
	for _, b := range bindings {
		for _, v := range b.Vars() {
			if !seen.has(v) {
				seen.add(v)
				vars = append(vars, v)
			}
		}
	}
	return vars
}

// BindingsString renders bindings with the default formatter
func BindingsString(vars []rdf.Var, bindings []*rdf.Binding) string {
	return NewTableFormatter().FormatBindings(vars, bindings)
}
