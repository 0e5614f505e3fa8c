package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"github.com/wbrown/janus-rdf/rdf/storage"
)

func main() {
	configType := flag.String("config", "default", "Config type: default, medium, or large")
	ntOut := flag.String("nt", "", "write N-Triples to this file instead of building a database")
	flag.Parse()

	var config storage.TestDataConfig
	switch *configType {
	case "default":
		config = storage.DefaultOHLCConfig()
	case "medium":
		config = storage.MediumOHLCConfig()
	case "large":
		config = storage.LargeOHLCConfig()
	default:
		fmt.Fprintf(os.Stderr, "Unknown config type: %s (use 'default', 'medium', or 'large')\n", *configType)
		os.Exit(1)
	}

	fmt.Printf("  Symbols: %d\n", config.NumSymbols)
	fmt.Printf("  Days: %d\n", config.NumDays)
	fmt.Printf("  Bars/day: %d\n", config.BarsPerDay)
	fmt.Printf("  Total triples: %d\n", config.NumTriples())
	fmt.Println()

	if *ntOut != "" {
		fmt.Printf("Writing N-Triples: %s\n", *ntOut)
		if err := writeNTriples(*ntOut, config); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write triples: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("\n✅ Done! Load it with:\n   rdfql load %s\n", *ntOut)
		return
	}

	fmt.Printf("Building test database: %s\n", config.OutputPath)
	store, err := storage.BuildTestDatabase(config, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := storage.TestDatabaseStats(os.Stdout, store); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to get stats: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\n✅ Done! Query it with:")
	fmt.Printf("   rdfql --db %s query '?bar <http://example.org/price/open> ?o ; FILTER ?o > 150'\n", config.OutputPath)
}

func writeNTriples(path string, config storage.TestDataConfig) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := storage.WriteTestData(w, config); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
