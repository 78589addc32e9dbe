// Package config holds the settings of the fragstats command.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"fragstats/catalog"
	"fragstats/logging"
	"fragstats/statsfile"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "FRAGSTATS_"

// Config is the complete command configuration
type Config struct {
	// Inputs are parquet paths or HTTP(S) URLs, one fragment each
	Inputs []string

	Dataset   string
	OutputDir string

	// StoreType names a registered catalog.FragmentStore
	StoreType           string
	StorePath           string
	ManifestCompression string
	ManifestLevel       int

	StatsCompression string

	TraceLevel      string
	TraceComponents string

	DumpMetrics bool
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	return &Config{
		Dataset:             "default",
		OutputDir:           "./stats",
		StoreType:           "file",
		StorePath:           "./catalog",
		ManifestCompression: string(catalog.CompressionNone),
		ManifestLevel:       int(catalog.CompressionLevelDefault),
		StatsCompression:    string(statsfile.CompressionZstd),
		TraceLevel:          logging.TraceLevelInfo.String(),
		TraceComponents:     "ALL",
	}
}

// RegisterFlags binds the configuration to fs. Values already in c become
// the flag defaults.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Dataset, "dataset", c.Dataset, "Dataset the fragments are registered in")
	fs.StringVar(&c.OutputDir, "out", c.OutputDir, "Directory for statistics files")
	fs.StringVar(&c.StoreType, "store", c.StoreType, "Fragment store type (file, memory)")
	fs.StringVar(&c.StorePath, "store-path", c.StorePath, "Directory of the file fragment store")
	fs.StringVar(&c.ManifestCompression, "manifest-compression", c.ManifestCompression, "Manifest compression (none, gzip, snappy, zstd)")
	fs.IntVar(&c.ManifestLevel, "manifest-level", c.ManifestLevel, "Manifest compression level (0 default, 1 fastest, 3 better, 9 best)")
	fs.StringVar(&c.StatsCompression, "stats-compression", c.StatsCompression, "Statistics file compression (none, zstd, lz4)")
	fs.StringVar(&c.TraceLevel, "trace-level", c.TraceLevel, "Trace level (OFF, ERROR, WARN, INFO, DEBUG, VERBOSE)")
	fs.StringVar(&c.TraceComponents, "trace-components", c.TraceComponents, "Comma-separated trace components or ALL")
	fs.BoolVar(&c.DumpMetrics, "metrics", c.DumpMetrics, "Print collected metrics after the run")
}

// ApplyEnv overrides settings from FRAGSTATS_* variables found by lookup.
// A nil lookup reads the process environment.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	strs := map[string]*string{
		"DATASET":              &c.Dataset,
		"OUTPUT_DIR":           &c.OutputDir,
		"STORE":                &c.StoreType,
		"STORE_PATH":           &c.StorePath,
		"MANIFEST_COMPRESSION": &c.ManifestCompression,
		"STATS_COMPRESSION":    &c.StatsCompression,
		"TRACE_LEVEL":          &c.TraceLevel,
		"TRACE_COMPONENTS":     &c.TraceComponents,
	}
	for name, dst := range strs {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}

	var errs []error
	if v, ok := lookup(EnvPrefix + "MANIFEST_LEVEL"); ok {
		level, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %sMANIFEST_LEVEL: %w", EnvPrefix, err))
		} else {
			c.ManifestLevel = level
		}
	}
	if v, ok := lookup(EnvPrefix + "METRICS"); ok {
		dump, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %sMETRICS: %w", EnvPrefix, err))
		} else {
			c.DumpMetrics = dump
		}
	}
	if v, ok := lookup(EnvPrefix + "INPUTS"); ok {
		c.Inputs = splitList(v)
	}
	return errors.Join(errs...)
}

// Validate reports every invalid setting at once
func (c *Config) Validate() error {
	var errs []error

	if len(c.Inputs) == 0 {
		errs = append(errs, errors.New("no input files"))
	}
	if strings.TrimSpace(c.Dataset) == "" {
		errs = append(errs, errors.New("dataset name is required"))
	}
	if c.OutputDir == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	known := false
	for _, name := range catalog.RegisteredStores() {
		if name == c.StoreType {
			known = true
		}
	}
	if !known {
		errs = append(errs, fmt.Errorf("unknown store type: %s", c.StoreType))
	}
	if c.StoreType == "file" && c.StorePath == "" {
		errs = append(errs, errors.New("file store requires a store path"))
	}

	if _, err := catalog.ParseCompressionType(c.ManifestCompression); err != nil {
		errs = append(errs, err)
	}
	switch catalog.CompressionLevel(c.ManifestLevel) {
	case catalog.CompressionLevelDefault, catalog.CompressionLevelFastest,
		catalog.CompressionLevelBetter, catalog.CompressionLevelBest:
	default:
		errs = append(errs, fmt.Errorf("invalid manifest compression level: %d", c.ManifestLevel))
	}
	if _, err := statsfile.ParseCompression(c.StatsCompression); err != nil {
		errs = append(errs, err)
	}
	if _, ok := logging.ParseTraceLevel(c.TraceLevel); !ok {
		errs = append(errs, fmt.Errorf("invalid trace level: %s", c.TraceLevel))
	}

	return errors.Join(errs...)
}

// StoreConfig returns the factory configuration of the fragment store
func (c *Config) StoreConfig() map[string]interface{} {
	return map[string]interface{}{
		"path":              c.StorePath,
		"compression":       c.ManifestCompression,
		"compression_level": c.ManifestLevel,
	}
}

// ApplyTracing configures tracer from the trace settings
func (c *Config) ApplyTracing(tracer *logging.Tracer) {
	if level, ok := logging.ParseTraceLevel(c.TraceLevel); ok {
		tracer.SetLevel(level)
	}
	if c.TraceComponents != "" {
		tracer.EnableComponents(c.TraceComponents)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
