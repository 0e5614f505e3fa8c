package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/wbrown/janus-rdf/rdf"
	"github.com/wbrown/janus-rdf/rdf/executor"
)

var queryFile string

var queryCmd = &cobra.Command{
	Use:   "query [bgp]",
	Short: "Evaluate a basic graph pattern",
	Long: `Evaluates one basic graph pattern and prints the bindings as a markdown
table. Patterns are "s p o" separated by newlines or ';'. A line starting
with FILTER adds a comparison, e.g.

  rdfql query '?p <knows> ?f ; ?f <age> ?a ; FILTER ?a > 30'`,
	Args: cobra.MaximumNArgs(1),
	RunE: runQuery,
}

var explainCmd = &cobra.Command{
	Use:   "explain [bgp]",
	Short: "Show the join order and index predicates of a pattern",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runExplain,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(explainCmd)
	for _, cmd := range []*cobra.Command{queryCmd, explainCmd} {
		cmd.Flags().StringVarP(&queryFile, "file", "f", "", "read the pattern from a file")
	}
}

// parseQuery splits text into patterns and FILTER comparisons
func parseQuery(text string) ([]rdf.TriplePattern, *rdf.FilterSet, error) {
	var patterns []rdf.TriplePattern
	filters := rdf.NewFilterSet()

	for _, line := range splitStatements(text) {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if rest, ok := cutKeyword(line, "FILTER"); ok {
			c, err := rdf.ParseComparison(rest)
			if err != nil {
				return nil, nil, fmt.Errorf("filter %q: %w", rest, err)
			}
			filters.Add(c)
			continue
		}
		p, err := rdf.ParsePattern(line)
		if err != nil {
			return nil, nil, fmt.Errorf("pattern %q: %w", line, err)
		}
		patterns = append(patterns, p)
	}
	if len(patterns) == 0 {
		return nil, nil, fmt.Errorf("no triple patterns in query")
	}
	return patterns, filters, nil
}

// splitStatements splits text on newlines and on ';' outside quoted
// literals. A newline always ends a statement.
func splitStatements(text string) []string {
	var out []string
	start, quoted, escaped := 0, false, false
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case quoted && c == '\\':
			escaped = true
		case c == '"':
			quoted = !quoted
		case c == '\n' || (c == ';' && !quoted):
			out = append(out, text[start:i])
			start, quoted = i+1, false
		}
	}
	return append(out, text[start:])
}

func cutKeyword(line, keyword string) (string, bool) {
	if len(line) <= len(keyword) || !strings.EqualFold(line[:len(keyword)], keyword) {
		return "", false
	}
	rest := line[len(keyword):]
	if rest[0] != ' ' && rest[0] != '\t' && rest[0] != '(' {
		return "", false
	}
	rest = strings.TrimSpace(rest)
	if strings.HasPrefix(rest, "(") && strings.HasSuffix(rest, ")") {
		rest = rest[1 : len(rest)-1]
	}
	return rest, true
}

func queryText(args []string) (string, error) {
	switch {
	case queryFile != "":
		data, err := os.ReadFile(queryFile)
		if err != nil {
			return "", fmt.Errorf("failed to read query: %w", err)
		}
		return string(data), nil
	case len(args) == 1:
		return args[0], nil
	default:
		return "", fmt.Errorf("a pattern argument or --file is required")
	}
}

func runQuery(cmd *cobra.Command, args []string) error {
	text, err := queryText(args)
	if err != nil {
		return err
	}
	patterns, filters, err := parseQuery(text)
	if err != nil {
		return err
	}

	s := openSession()
	defer s.Close()

	out, err := evaluate(cmd.Context(), s.executor(), patterns, filters)
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}

// evaluate runs one query and renders its table with timing
func evaluate(ctx context.Context, exec *executor.Executor, patterns []rdf.TriplePattern, filters *rdf.FilterSet) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	res := exec.Execute(ctx, patterns, filters)
	bindings, err := res.Filter(filters).All()
	elapsed := time.Since(start)
	if err != nil {
		return "", fmt.Errorf("execution failed: %w", err)
	}

	table := executor.BindingsString(res.Vars(), bindings)
	// Append timing to the row count line
	lines := strings.Split(table, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.HasPrefix(lines[i], "_") && strings.HasSuffix(lines[i], "rows_") {
			lines[i] = strings.TrimSuffix(lines[i], "_") +
				fmt.Sprintf(" (%.3fms)_", float64(elapsed.Microseconds())/1000.0)
			break
		}
	}
	return strings.Join(lines, "\n") + "\n", nil
}

func runExplain(cmd *cobra.Command, args []string) error {
	text, err := queryText(args)
	if err != nil {
		return err
	}
	patterns, filters, err := parseQuery(text)
	if err != nil {
		return err
	}

	s := openSession()
	defer s.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	plan, err := s.executor().Explain(ctx, patterns, filters)
	if err != nil {
		return err
	}
	fmt.Print(plan)
	return nil
}
