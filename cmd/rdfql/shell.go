package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/wbrown/janus-rdf/rdf"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive query shell",
	RunE:  runShell,
}

func init() {
	rootCmd.AddCommand(shellCmd)
}

func runShell(cmd *cobra.Command, args []string) error {
	s := openSession()
	defer s.Close()

	fmt.Println("=== rdfql shell ===")
	fmt.Println("Commands:")
	fmt.Println("  .help     - Show help")
	fmt.Println("  .exit     - Exit")
	fmt.Println("  .add      - Add N-Triples (empty line to finish)")
	fmt.Println("  .explain  - Explain the next query")
	fmt.Println("  .count    - Number of stored triples")
	fmt.Println("Queries are patterns and FILTER lines; an empty line runs them.")
	fmt.Println()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	exec := s.executor()
	scanner := bufio.NewScanner(os.Stdin)
	explain := false
	var pending []string

	for {
		if len(pending) == 0 {
			fmt.Print("> ")
		} else {
			fmt.Print("  ")
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == ".exit":
			return nil

		case line == ".help":
			fmt.Println("Enter one pattern per line, e.g. ?s <name> ?n, then an empty line")

		case line == ".add":
			addTriples(s, scanner)

		case line == ".explain":
			explain = true

		case line == ".count":
			n, err := s.store.Count()
			if err != nil {
				fmt.Printf("Error: %v\n", err)
				continue
			}
			fmt.Printf("%d triples\n", n)

		case line == "" && len(pending) > 0:
			text := strings.Join(pending, "\n")
			pending = pending[:0]

			patterns, filters, err := parseQuery(text)
			if err != nil {
				fmt.Printf("Parse error: %v\n", err)
				continue
			}
			if explain {
				explain = false
				plan, err := exec.Explain(ctx, patterns, filters)
				if err != nil {
					fmt.Printf("Explain error: %v\n", err)
					continue
				}
				fmt.Print(plan)
				continue
			}
			out, err := evaluate(ctx, exec, patterns, filters)
			if err != nil {
				fmt.Printf("Execution error: %v\n", err)
				continue
			}
			fmt.Print(out)

		case line == "":

		case strings.HasPrefix(line, "."):
			fmt.Println("Unknown command. Use .help for help.")

		default:
			pending = append(pending, line)
		}
	}
}

func addTriples(s *session, scanner *bufio.Scanner) {
	fmt.Println("Adding triples (empty line to finish):")

	var triples []rdf.Triple
	for {
		fmt.Print("  triple> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			break
		}
		t, err := rdf.ParseTriple(line)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}
		triples = append(triples, t)
	}

	if len(triples) == 0 {
		fmt.Println("No data added")
		return
	}
	added, err := s.store.Add(triples...)
	s.invalidate()
	if err != nil {
		fmt.Printf("Add failed: %v\n", err)
		return
	}
	fmt.Printf("Added %d of %d triples\n", added, len(triples))
}
