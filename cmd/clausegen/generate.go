package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"clausegen/internal/cleaner"
	"clausegen/internal/corpus"
	"clausegen/internal/form"
	"clausegen/internal/generator"
	"clausegen/internal/ir"
	"clausegen/internal/knowledge"
	"clausegen/internal/pipeline"
	"clausegen/internal/retrieval"
	"clausegen/internal/storage"
	"clausegen/internal/validator"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	corpusPath  string
	outDir      string
	reportPath  string
	metricsFile string
)

func init() {
	generateCmd.Flags().StringVar(&corpusPath, "corpus", "", "Read precedents from this JSONL file instead of the database")
	generateCmd.Flags().StringVarP(&outDir, "out", "o", "out", "Directory for the drafted sections")
	generateCmd.Flags().StringVar(&reportPath, "report", "", "Run report path (default: pipeline.report_path)")
	generateCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics in text format to this file")
}

var generateCmd = &cobra.Command{
	Use:   "generate <form.json>",
	Short: "Draft every section requested by a form",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg.Log)
		if err != nil {
			return err
		}
		defer logger.Sync()

		if reportPath == "" {
			reportPath = cfg.Pipeline.ReportPath
		}
		report := pipeline.NewReport("generate", outDir)
		defer func() {
			if reportPath == "" {
				return
			}
			if err := report.Save(reportPath); err != nil {
				logger.Error("failed to save run report", zap.String("path", reportPath), zap.Error(err))
			}
		}()

		// 1. Check the form
		h := report.BeginStage("check_form")
		data, err := os.ReadFile(args[0])
		if err != nil {
			report.EndStage(h, "error", nil, nil, err)
			return err
		}
		checker, err := form.NewChecker()
		if err != nil {
			report.EndStage(h, "error", nil, nil, err)
			return err
		}
		f, err := checker.Parse(data)
		if err != nil {
			report.EndStage(h, "error", nil, nil, err)
			var fe *form.FormError
			if errors.As(err, &fe) {
				for _, is := range fe.Issues {
					fmt.Printf("  ❌ %s: %s\n", is.Path, is.Message)
				}
			}
			return err
		}
		report.EndStage(h, "ok", map[string]float64{
			"sections":  float64(len(f.Sections)),
			"variables": float64(len(f.Variables)),
		}, nil, nil)
		fmt.Printf("📝 Form: %d section(s), language %s, %d parameter(s).\n", len(f.Sections), f.Language, len(f.Variables))

		store, err := storage.NewSQLiteStore(dbPath)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer store.Close()

		// 2. Load the corpus
		h = report.BeginStage("load_corpus")
		records, err := loadRecords(cmd, store)
		if err != nil {
			report.EndStage(h, "error", nil, nil, err)
			return err
		}
		ix := newIndex(cfg, logger)
		if _, err := ix.Load(records); err != nil {
			report.EndStage(h, "error", nil, nil, err)
			return fmt.Errorf("corpus rejected: %w", err)
		}
		stats := ix.Stats()
		report.EndStage(h, "ok", map[string]float64{
			"sections":   float64(stats.Total),
			"contracts":  float64(stats.Contracts),
			"low_signal": float64(stats.LowSignal),
		}, stats.Keys(), nil)
		fmt.Printf("📚 Corpus: %d sections from %d contracts.\n", stats.Total, stats.Contracts)

		// 3. Wire the drafter
		engine, err := knowledge.NewEngine(cfg.Engine)
		if err != nil {
			return fmt.Errorf("failed to create generation engine: %w", err)
		}
		reg := prometheus.NewRegistry()
		sink := generator.ArtifactSink(store)
		if cfg.Pipeline.ArtifactDir != "" {
			sink = generator.MultiSink(store, storage.NewDirSink(cfg.Pipeline.ArtifactDir))
		}
		v := validator.NewEngine(cfg.Sections)
		ctrl := generator.NewController(engine, v, generator.OptionsFromConfig(cfg.Controller),
			generator.WithSink(sink),
			generator.WithMetrics(generator.NewMetrics(reg)),
			generator.WithLogger(logger))
		drafter := pipeline.NewDrafter(
			retrieval.New(ix, retrieval.ParamsFromConfig(cfg.Retrieval), retrieval.WithLogger(logger)),
			cleaner.New(cleaner.OptionsFromConfig(cfg.Cleaner), logger),
			v, ctrl,
			pipeline.WithReport(report),
			pipeline.WithConcurrency(cfg.Pipeline.Concurrency),
			pipeline.WithLogger(logger))

		// 4. Draft
		fmt.Println("✍️  Drafting sections...")
		results, draftErr := drafter.DraftAll(ctx, pipeline.Requests(f))

		// 5. Write what we have, even after an interruption
		h = report.BeginStage("write_output")
		written, err := writeSections(outDir, results)
		if err == nil {
			if doc := pipeline.Assemble(results); doc != "" {
				err = os.WriteFile(filepath.Join(outDir, "contract.txt"), []byte(doc), 0644)
				written++
			}
		}
		report.EndStage(h, "ok", map[string]float64{"files": float64(written)}, nil, err)
		if err != nil {
			return err
		}

		if metricsFile != "" {
			if err := prometheus.WriteToTextfile(metricsFile, reg); err != nil {
				logger.Error("failed to write metrics", zap.String("path", metricsFile), zap.Error(err))
			}
		}

		exhausted := printResults(results)
		if draftErr != nil {
			return fmt.Errorf("drafting interrupted: %w", draftErr)
		}
		if exhausted > 0 {
			return fmt.Errorf("%d section(s) failed validation after %d attempts", exhausted, cfg.Controller.MaxAttempts)
		}
		fmt.Printf("🎉 All sections accepted. Output: %s\n", outDir)
		return nil
	},
}

func loadRecords(cmd *cobra.Command, store storage.CorpusStore) ([]ir.Record, error) {
	if corpusPath == "" {
		records, err := store.LoadCorpus(cmd.Context())
		if err != nil {
			return nil, fmt.Errorf("failed to load corpus from %s: %w", dbPath, err)
		}
		return records, nil
	}
	file, err := os.Open(corpusPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	records, err := corpus.ReadJSONL(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus: %w", err)
	}
	return records, nil
}

// writeSections writes one <section_type>.txt per drafted section. Best-effort
// text of exhausted sections is written too, with an .unverified suffix.
func writeSections(dir string, results []pipeline.SectionResult) (int, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, err
	}
	n := 0
	for _, r := range results {
		if r.Outcome.Text == "" {
			continue
		}
		name := string(r.Request.Section) + ".txt"
		if !r.Accepted() {
			name += ".unverified"
		}
		text := strings.TrimRight(r.Outcome.Text, "\n") + "\n"
		if err := os.WriteFile(filepath.Join(dir, name), []byte(text), 0644); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func printResults(results []pipeline.SectionResult) int {
	exhausted := 0
	for _, r := range results {
		if r.Request.ID == "" {
			continue
		}
		switch {
		case r.Accepted():
			fmt.Printf("  ✅ %s: accepted on attempt %d (%d precedents)\n", r.Request.Section, r.Outcome.Best, len(r.Precedents))
		case r.Exhausted():
			exhausted++
			fmt.Printf("  ❌ %s: no valid draft after %d attempts, best attempt %d (request %s)\n",
				r.Request.Section, len(r.Outcome.Attempts), r.Outcome.Best, r.Request.ID)
			var ex *generator.RetryExhaustedError
			if errors.As(r.Err, &ex) {
				for _, f := range ex.Failures {
					fmt.Printf("     - %s: %s\n", f.RuleID, f.Message)
				}
				if ex.EngineErr != nil {
					fmt.Printf("     - engine: %v\n", ex.EngineErr)
				}
			}
		case r.Err != nil:
			fmt.Printf("  ⚠️  %s: %v\n", r.Request.Section, r.Err)
		}
	}
	return exhausted
}
