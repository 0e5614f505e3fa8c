package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/wbrown/janus-rdf/rdf/storage"
)

var batchSize int

var loadCmd = &cobra.Command{
	Use:   "load [file.nt ...]",
	Short: "Load N-Triples files into the store",
	Long:  `Reads N-Triples from each file (or stdin when none is given) and adds them to the store. Triples already present are skipped.`,
	RunE:  runLoad,
}

func init() {
	rootCmd.AddCommand(loadCmd)
	loadCmd.Flags().IntVar(&batchSize, "batch", storage.DefaultBatchSize, "triples per write batch")
}

func runLoad(cmd *cobra.Command, args []string) error {
	s := openSession()
	defer s.Close()

	if len(args) == 0 {
		return loadFrom(s, "stdin", os.Stdin)
	}
	for _, path := range args {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		err = loadFrom(s, path, f)
		f.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func loadFrom(s *session, name string, r io.Reader) error {
	start := time.Now()
	read, added, err := storage.LoadNTriples(r, s.store, batchSize)
	s.invalidate()
	if err != nil {
		return fmt.Errorf("%s: after %d triples: %w", name, read, err)
	}
	total, err := s.store.Count()
	if err != nil {
		return err
	}
	fmt.Printf("%s: read %d triples, added %d (%d stored) in %v\n",
		name, read, added, total, time.Since(start).Round(time.Millisecond))
	return nil
}
