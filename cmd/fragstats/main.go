package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"fragstats/catalog"
	"fragstats/config"
	"fragstats/datatypes"
	"fragstats/format"
	"fragstats/logging"
	"fragstats/source"
	"fragstats/statistics"
	"fragstats/statsfile"
)

func main() {
	cfg := config.Default()
	if err := cfg.ApplyEnv(nil); err != nil {
		log.Fatalf("Invalid environment: %v", err)
	}
	cfg.RegisterFlags(flag.CommandLine)
	flag.Parse()
	if args := flag.Args(); len(args) > 0 {
		cfg.Inputs = args
	}

	if len(cfg.Inputs) == 0 {
		fmt.Println("Usage: fragstats [flags] <file.parquet|url> ...")
		fmt.Println("Examples:")
		fmt.Println("  fragstats -dataset events data/events.parquet")
		fmt.Println("  fragstats -stats-compression lz4 -metrics https://example.com/events.parquet")
		flag.PrintDefaults()
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	tracer := logging.GetTracer()
	cfg.ApplyTracing(tracer)
	defer tracer.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, os.Stdout); err != nil {
		log.Fatalf("fragstats failed: %v", err)
	}
}

// fileResult summarises one processed input
type fileResult struct {
	input     string
	fragment  *catalog.FragmentRecord
	fields    int
	skipped   []string
	elapsed   time.Duration
	statsFile string
}

// run registers every input as one fragment of the configured dataset
func run(ctx context.Context, cfg *config.Config, out io.Writer) error {
	store, err := catalog.CreateFragmentStore(cfg.StoreType, cfg.StoreConfig())
	if err != nil {
		return fmt.Errorf("failed to create fragment store: %w", err)
	}
	manager := catalog.NewManager(store)
	if err := manager.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize catalog: %w", err)
	}
	defer manager.Close()

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	compression, err := statsfile.ParseCompression(cfg.StatsCompression)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	metrics := statistics.NewMetrics(reg)

	fmt.Fprintf(out, "Processing %d file(s) into dataset %s\n", len(cfg.Inputs), cfg.Dataset)

	var results []fileResult
	for _, input := range cfg.Inputs {
		res, err := processFile(ctx, manager, cfg.Dataset, input, cfg.OutputDir, compression, metrics)
		if err != nil {
			return fmt.Errorf("%s: %w", input, err)
		}
		results = append(results, res)
	}

	printSummary(out, results)
	if cfg.DumpMetrics {
		if err := dumpMetrics(out, reg); err != nil {
			return err
		}
	}
	return nil
}

func processFile(ctx context.Context, manager *catalog.Manager, dataset, input, outDir string, compression statsfile.Compression, metrics *statistics.Metrics) (fileResult, error) {
	startTime := time.Now()
	tracer := logging.GetTracer()

	src, err := source.Open(input)
	if err != nil {
		return fileResult{}, err
	}
	defer src.Close()

	fields := supportedFields(src.Fields())
	if _, err := manager.EnsureDataset(ctx, dataset, fields); err != nil {
		return fileResult{}, err
	}
	// File-local ids follow column order; the dataset's ids are what fragments
	// and statistics files are keyed by.
	fields, err = manager.ResolveFields(ctx, dataset, fields)
	if err != nil {
		return fileResult{}, err
	}

	collector := statistics.NewCollector(fields, statistics.WithMetrics(metrics))
	defer collector.Release()

	rows, err := source.Scan(ctx, src, collector)
	if err != nil {
		return fileResult{}, err
	}
	rec, err := collector.Finish()
	if err != nil {
		return fileResult{}, err
	}
	defer rec.Release()

	statsPath := statsfile.NewPath(outDir)
	if err := statsfile.Write(statsPath, rec, compression, nil); err != nil {
		return fileResult{}, err
	}

	ids := make([]int32, len(fields))
	for i, f := range fields {
		ids[i] = f.ID
	}
	files := []format.DataFile{format.NewDataFile(input, ids...)}
	fragment, err := manager.RegisterFragment(ctx, dataset, files, statsPath, rows, int(rec.NumRows()))
	if err != nil {
		return fileResult{}, err
	}

	tracer.Info(logging.TraceComponentCLI, "File processed",
		zap.String("input", input),
		zap.Uint64("fragment_id", fragment.Fragment.ID),
		zap.Int64("rows", rows),
		zap.Duration("elapsed", time.Since(startTime)))

	return fileResult{
		input:     input,
		fragment:  fragment,
		fields:    len(fields),
		skipped:   src.Skipped(),
		elapsed:   time.Since(startTime),
		statsFile: statsPath,
	}, nil
}

// supportedFields keeps the top-level fields statistics can be collected for
func supportedFields(fields []datatypes.Field) []datatypes.Field {
	kept := make([]datatypes.Field, 0, len(fields))
	for _, f := range fields {
		if statistics.Supported(f.Type) {
			kept = append(kept, f)
		}
	}
	return kept
}

func printSummary(out io.Writer, results []fileResult) {
	var totalRows int64
	totalChunks := 0

	for _, res := range results {
		fmt.Fprintf(out, "\n=== %s ===\n", res.input)
		fmt.Fprintf(out, "Fragment: %d\n", res.fragment.Fragment.ID)
		fmt.Fprintf(out, "Rows: %d in %d chunk(s)\n", res.fragment.NumRows, res.fragment.NumChunks)
		fmt.Fprintf(out, "Fields with statistics: %d\n", res.fields)
		if len(res.skipped) > 0 {
			fmt.Fprintf(out, "Skipped columns: %s\n", strings.Join(res.skipped, ", "))
		}
		fmt.Fprintf(out, "Statistics file: %s\n", res.statsFile)
		fmt.Fprintf(out, "Elapsed: %v\n", res.elapsed.Round(time.Millisecond))

		totalRows += res.fragment.NumRows
		totalChunks += res.fragment.NumChunks
	}

	fmt.Fprintf(out, "\n=== OVERALL SUMMARY ===\n")
	fmt.Fprintf(out, "Fragments: %d\n", len(results))
	fmt.Fprintf(out, "Rows: %d\n", totalRows)
	fmt.Fprintf(out, "Chunks: %d\n", totalChunks)
}

func dumpMetrics(out io.Writer, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	fmt.Fprintf(out, "\n=== METRICS ===\n")
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
			}
			sort.Strings(labels)

			name := mf.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}
			fmt.Fprintf(out, "%s %g\n", name, m.GetCounter().GetValue())
		}
	}
	return nil
}
