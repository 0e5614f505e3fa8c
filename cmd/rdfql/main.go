// Command rdfql loads N-Triples into a triple index and evaluates basic
// graph patterns against it.
package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/wbrown/janus-rdf/rdf/annotations"
	"github.com/wbrown/janus-rdf/rdf/config"
	"github.com/wbrown/janus-rdf/rdf/executor"
	"github.com/wbrown/janus-rdf/rdf/index"
)

var (
	configPath string
	dbPath     string
	backend    string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "rdfql",
	Short: "Basic graph pattern queries over a triple index",
	Long: `rdfql stores RDF triples as indexed documents (Badger or Bleve) and
answers basic graph patterns with a selectivity-ordered semi-join.`,
	SilenceUsage: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "YAML config file")
	flags.StringVar(&dbPath, "db", "", "database path (overrides config)")
	flags.StringVar(&backend, "backend", "", "storage backend: badger or bleve (overrides config)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "show execution annotations")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// session is an opened store plus everything needed to query it
type session struct {
	cfg     *config.Config
	store   config.Store
	idx     index.Index
	release func()
	logger  *slog.Logger
	handler annotations.Handler
}

func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if dbPath != "" {
		cfg.Storage.Path = dbPath
		cfg.Storage.InMemory = false
	}
	if backend != "" {
		cfg.Storage.Backend = config.Backend(backend)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openSession() *session {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	store, err := cfg.OpenStore(logger)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.Storage.Backend, err)
	}
	idx, release, err := cfg.QueryIndex(store)
	if err != nil {
		store.Close()
		log.Fatalf("Failed to create index cache: %v", err)
	}

	s := &session{
		cfg:     cfg,
		store:   store,
		idx:     idx,
		release: release,
		logger:  logger,
	}
	if verbose {
		s.handler = annotations.ConsoleHandler(os.Stderr)
	}
	return s
}

func (s *session) executor() *executor.Executor {
	return executor.NewExecutor(s.idx, s.cfg.ExecutorOptions(s.handler, s.logger))
}

// invalidate drops cached results after the store changed
func (s *session) invalidate() {
	if cached, ok := s.idx.(*index.CachedIndex); ok {
		cached.Purge()
	}
}

func (s *session) Close() {
	s.release()
	if err := s.store.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close store: %v\n", err)
	}
}
