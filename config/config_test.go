package config

import (
	"flag"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fragstats/logging"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestDefaultNeedsInputs(t *testing.T) {
	cfg := Default()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no input files")

	cfg.Inputs = []string{"events.parquet"}
	assert.NoError(t, cfg.Validate())
}

func TestRegisterFlags(t *testing.T) {
	cfg := Default()
	fs := flag.NewFlagSet("fragstats", flag.ContinueOnError)
	cfg.RegisterFlags(fs)

	err := fs.Parse([]string{
		"-dataset", "events",
		"-store", "memory",
		"-stats-compression", "lz4",
		"-manifest-compression", "snappy",
		"-metrics",
		"a.parquet", "b.parquet",
	})
	require.NoError(t, err)
	cfg.Inputs = fs.Args()

	assert.Equal(t, "events", cfg.Dataset)
	assert.Equal(t, "memory", cfg.StoreType)
	assert.Equal(t, "lz4", cfg.StatsCompression)
	assert.Equal(t, "snappy", cfg.ManifestCompression)
	assert.True(t, cfg.DumpMetrics)
	assert.Equal(t, "./stats", cfg.OutputDir, "unset flags keep defaults")
	assert.Equal(t, []string{"a.parquet", "b.parquet"}, cfg.Inputs)
	assert.NoError(t, cfg.Validate())
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(envMap(map[string]string{
		"FRAGSTATS_DATASET":        "logs",
		"FRAGSTATS_INPUTS":         "x.parquet, ,https://example.com/y.parquet",
		"FRAGSTATS_MANIFEST_LEVEL": "9",
		"FRAGSTATS_METRICS":        "true",
		"FRAGSTATS_TRACE_LEVEL":    "debug",
	}))
	require.NoError(t, err)

	assert.Equal(t, "logs", cfg.Dataset)
	assert.Equal(t, []string{"x.parquet", "https://example.com/y.parquet"}, cfg.Inputs)
	assert.Equal(t, 9, cfg.ManifestLevel)
	assert.True(t, cfg.DumpMetrics)
	assert.Equal(t, "debug", cfg.TraceLevel)
	assert.NoError(t, cfg.Validate())
}

func TestApplyEnvInvalid(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(envMap(map[string]string{
		"FRAGSTATS_MANIFEST_LEVEL": "high",
		"FRAGSTATS_METRICS":        "maybe",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FRAGSTATS_MANIFEST_LEVEL")
	assert.Contains(t, err.Error(), "FRAGSTATS_METRICS")
}

func TestValidateReportsAll(t *testing.T) {
	cfg := Default()
	cfg.Inputs = []string{"a.parquet"}
	cfg.StoreType = "etcd"
	cfg.ManifestCompression = "brotli"
	cfg.ManifestLevel = 5
	cfg.StatsCompression = "snappy"
	cfg.TraceLevel = "LOUD"

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"etcd", "brotli", "level: 5", "snappy", "LOUD"} {
		assert.Contains(t, err.Error(), want)
	}

	cfg = Default()
	cfg.Inputs = []string{"a.parquet"}
	cfg.StorePath = ""
	assert.ErrorContains(t, cfg.Validate(), "store path")
}

func TestApplyTracing(t *testing.T) {
	tracer := logging.NewTracer(nil)
	cfg := Default()
	cfg.TraceLevel = "DEBUG"
	cfg.TraceComponents = "COLLECTOR,source"
	cfg.ApplyTracing(tracer)

	assert.Equal(t, logging.TraceLevelDebug, tracer.Level())
	assert.True(t, tracer.IsEnabled(logging.TraceLevelDebug, logging.TraceComponentCollector))
	assert.True(t, tracer.IsEnabled(logging.TraceLevelInfo, logging.TraceComponentSource))
	assert.False(t, tracer.IsEnabled(logging.TraceLevelInfo, logging.TraceComponentCatalog))
	assert.False(t, tracer.IsEnabled(logging.TraceLevelVerbose, logging.TraceComponentCollector))
}

func TestStoreConfig(t *testing.T) {
	cfg := Default()
	cfg.StorePath = "/tmp/catalog"
	sc := cfg.StoreConfig()
	assert.Equal(t, "/tmp/catalog", sc["path"])
	assert.Equal(t, "none", sc["compression"])
	assert.Equal(t, 0, sc["compression_level"])
}
