package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/wbrown/janus-rdf/rdf"
)

const xsdDateTime = "http://www.w3.org/2001/XMLSchema#dateTime"

// TestDataConfig specifies what kind of test database to build
type TestDataConfig struct {
	NumSymbols int       // Number of stock symbols
	NumDays    int       // Number of days of data
	BarsPerDay int       // Number of bars per day (1=daily, 24=hourly, 390=minute)
	OutputPath string    // Where to store the database
	BaseIRI    string    // Prefix of every generated IRI
	StartDate  time.Time // Start date for data generation
}

// DefaultOHLCConfig returns a small OHLC dataset for profiling
// Size: 10 symbols × 30 days × 24 hours = 7,200 bars = 50,410 triples
func DefaultOHLCConfig() TestDataConfig {
	return TestDataConfig{
		NumSymbols: 10,
		NumDays:    30,
		BarsPerDay: 24,
		OutputPath: "testdata/ohlc_benchmark.db",
		BaseIRI:    "http://example.org/",
		StartDate:  time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

// MediumOHLCConfig returns a medium-sized dataset for profiling
// Size: 50 symbols × 30 days × 24 hours = 36,000 bars = 252,050 triples
func MediumOHLCConfig() TestDataConfig {
	cfg := DefaultOHLCConfig()
	cfg.NumSymbols = 50
	cfg.OutputPath = "testdata/ohlc_medium.db"
	return cfg
}

// LargeOHLCConfig returns a large dataset for stress testing
func LargeOHLCConfig() TestDataConfig {
	return TestDataConfig{
		NumSymbols: 500,
		NumDays:    365,
		BarsPerDay: 390, // Minute bars (6.5 hour trading day)
		OutputPath: "testdata/ohlc_large.db",
		BaseIRI:    "http://example.org/",
		StartDate:  time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC),
	}
}

// NumTriples is the number of triples GenerateOHLCData produces
func (c TestDataConfig) NumTriples() int {
	return c.NumSymbols + c.NumSymbols*c.NumDays*c.BarsPerDay*7
}

// GenerateOHLCData creates OHLC bars as triples: each symbol has a label,
// each bar links to its symbol and carries time, minute of day and four
// prices
func GenerateOHLCData(config TestDataConfig) []rdf.Triple {
	triples := make([]rdf.Triple, 0, config.NumTriples())
	iri := func(path string) rdf.Term { return rdf.NewIRI(config.BaseIRI + path) }

	var (
		pSymbol = iri("price/symbol")
		pTime   = iri("price/time")
		pMinute = iri("price/minute-of-day")
		pOpen   = iri("price/open")
		pHigh   = iri("price/high")
		pLow    = iri("price/low")
		pClose  = iri("price/close")
		pLabel  = iri("symbol/label")
	)
	price := func(f float64) rdf.Term {
		return rdf.NewTypedLiteral(strconv.FormatFloat(f, 'f', 2, 64), rdf.XSDDecimal)
	}

	barIdx := 0
	for symbolIdx := 0; symbolIdx < config.NumSymbols; symbolIdx++ {
		symbol := fmt.Sprintf("TICK%04d", symbolIdx)
		symbolIRI := iri("symbol/" + symbol)
		triples = append(triples, rdf.Triple{S: symbolIRI, P: pLabel, O: rdf.NewLiteral(symbol)})

		for day := 0; day < config.NumDays; day++ {
			for bar := 0; bar < config.BarsPerDay; bar++ {
				barIdx++
				barIRI := iri(fmt.Sprintf("bar/%d", barIdx))

				minutesPerBar := (24 * 60) / config.BarsPerDay
				barTime := config.StartDate.AddDate(0, 0, day).Add(time.Duration(bar*minutesPerBar) * time.Minute)

				// Simple deterministic walk
				open := 100.0 + float64(symbolIdx)*10.0 + float64(day)*0.1 + float64(bar)*0.01

				triples = append(triples,
					rdf.Triple{S: barIRI, P: pSymbol, O: symbolIRI},
					rdf.Triple{S: barIRI, P: pTime, O: rdf.NewTypedLiteral(barTime.Format(time.RFC3339), xsdDateTime)},
					rdf.Triple{S: barIRI, P: pMinute, O: rdf.NewTypedLiteral(strconv.Itoa(bar*minutesPerBar), rdf.XSDInteger)},
					rdf.Triple{S: barIRI, P: pOpen, O: price(open)},
					rdf.Triple{S: barIRI, P: pHigh, O: price(open + 2.0)},
					rdf.Triple{S: barIRI, P: pLow, O: price(open - 1.5)},
					rdf.Triple{S: barIRI, P: pClose, O: price(open + 0.5)},
				)
			}
		}
	}
	return triples
}

// WriteTestData writes the generated dataset as N-Triples
func WriteTestData(w io.Writer, config TestDataConfig) error {
	return rdf.WriteTriples(w, GenerateOHLCData(config)...)
}

// BuildTestDatabase creates a pre-populated Badger store for benchmarking.
// An existing database at config.OutputPath is replaced.
func BuildTestDatabase(config TestDataConfig, progress io.Writer) (*BadgerStore, error) {
	if progress == nil {
		progress = io.Discard
	}
	if err := os.RemoveAll(config.OutputPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to remove existing db: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(config.OutputPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	store, err := NewBadgerStore(config.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	triples := GenerateOHLCData(config)
	batchSize := 5000
	fmt.Fprintf(progress, "Writing %d triples to %s in batches of %d...\n", len(triples), config.OutputPath, batchSize)

	for start := 0; start < len(triples); start += batchSize {
		end := start + batchSize
		if end > len(triples) {
			end = len(triples)
		}
		if _, err := store.Add(triples[start:end]...); err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to write batch %d-%d: %w", start, end, err)
		}
		fmt.Fprintf(progress, "  Written %d/%d triples (%.1f%%)\n", end, len(triples),
			float64(end)/float64(len(triples))*100)
	}
	return store, nil
}

// TestDatabaseStats prints statistics about a test database
func TestDatabaseStats(w io.Writer, store *BadgerStore) error {
	n, err := store.Count()
	if err != nil {
		return err
	}
	dir := store.db.Opts().Dir
	var size int64
	err = filepath.Walk(dir, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to stat database: %w", err)
	}

	fmt.Fprintf(w, "Database Statistics:\n")
	fmt.Fprintf(w, "  Path: %s\n", dir)
	fmt.Fprintf(w, "  Triples: %d\n", n)
	fmt.Fprintf(w, "  Size on disk: %.2f MB\n", float64(size)/1024/1024)
	return nil
}
