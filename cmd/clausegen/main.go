package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"clausegen/internal/config"
	"clausegen/internal/corpus"
	"clausegen/internal/ir"
	"clausegen/internal/storage"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	rootCmd = &cobra.Command{
		Use:           "clausegen",
		Short:         "Draft contract sections from a request form and a precedent corpus",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	dbPath     string
	configPath string
	verbose    bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "clausegen.db", "Path to the local corpus and artifact database (SQLite)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the YAML configuration")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(artifactsCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Development || verbose {
		zc = zap.NewDevelopmentConfig()
	}
	if cfg.Level != "" {
		lvl, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("log.level: %w", err)
		}
		zc.Level = zap.NewAtomicLevelAt(lvl)
	}
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return zc.Build()
}

func newIndex(cfg *config.Config, logger *zap.Logger) *corpus.Index {
	opts := []corpus.Option{corpus.WithLogger(logger)}
	if len(cfg.Corpus.StopWords) > 0 {
		stop := make(map[ir.Language][]string, len(cfg.Corpus.StopWords))
		for lang, words := range cfg.Corpus.StopWords {
			stop[ir.Language(lang)] = words
		}
		opts = append(opts, corpus.WithTokenizer(corpus.NewTokenizer(stop)))
	}
	return corpus.NewIndex(opts...)
}

var indexCmd = &cobra.Command{
	Use:   "index <corpus.jsonl>",
	Short: "Validate a JSONL precedent corpus and store it in the database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg.Log)
		if err != nil {
			return err
		}
		defer logger.Sync()

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		fmt.Printf("📂 Reading corpus: %s\n", args[0])
		start := time.Now()
		records, err := corpus.ReadJSONL(f)
		if err != nil {
			return fmt.Errorf("failed to read corpus: %w", err)
		}

		ix := newIndex(cfg, logger)
		if _, err := ix.Load(records); err != nil {
			return fmt.Errorf("corpus rejected: %w", err)
		}
		stats := ix.Stats()
		fmt.Printf("✅ Indexed %d sections from %d contracts in %v.\n", stats.Total, stats.Contracts, time.Since(start))
		for _, k := range stats.Keys() {
			fmt.Printf("  -> %s: %d\n", k, stats.ByKey[k])
		}
		if stats.LowSignal > 0 {
			fmt.Printf("⚠️  %d sections carry little text and will rarely rank.\n", stats.LowSignal)
		}

		store, err := storage.NewSQLiteStore(dbPath)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer store.Close()

		fmt.Println("💾 Saving to local database...")
		if err := store.SaveCorpus(cmd.Context(), ix.Records()); err != nil {
			return fmt.Errorf("failed to save corpus: %w", err)
		}
		fmt.Printf("🎉 Index complete! Database: %s\n", dbPath)
		return nil
	},
}

var artifactsCmd = &cobra.Command{
	Use:   "artifacts [request-id] [attempt]",
	Short: "List stored section requests or print the attempts of one",
	Args:  cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := storage.NewSQLiteStore(dbPath)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer store.Close()
		ctx := cmd.Context()

		if len(args) == 0 {
			reqs, err := store.Requests(ctx)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "REQUEST\tSECTION\tLANG\tATTEMPTS\tLAST STATE")
			for _, r := range reqs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", r.RequestID, r.Section, r.Language, r.Attempts, r.LastState)
			}
			return w.Flush()
		}

		arts, err := store.Lookup(ctx, args[0])
		if err != nil {
			return err
		}
		if len(arts) == 0 {
			return fmt.Errorf("no artifacts for request %s", args[0])
		}
		if len(args) == 2 {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("attempt must be a number: %w", err)
			}
			for _, a := range arts {
				if a.Attempt == n {
					enc := json.NewEncoder(os.Stdout)
					enc.SetIndent("", "  ")
					return enc.Encode(a)
				}
			}
			return fmt.Errorf("request %s has no attempt %d", args[0], n)
		}

		for _, a := range arts {
			fmt.Printf("#%d %s %s (%dms)\n", a.Attempt, a.State, a.StartedAt.Format(time.RFC3339), a.DurationMS)
			if a.EngineError != "" {
				fmt.Printf("   engine: %s\n", a.EngineError)
			}
			for _, f := range a.Failures {
				fmt.Printf("   - %s: %s\n", f.RuleID, f.Message)
			}
		}
		return nil
	},
}
