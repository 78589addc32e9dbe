package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"fragstats/logging"
)

const manifestSuffix = ".manifest.json"

// FileFragmentStore is a file-based implementation of FragmentStore. Each
// dataset is one manifest file under basePath, rewritten atomically on every
// change.
type FileFragmentStore struct {
	basePath string
	codec    Codec
	mu       sync.RWMutex

	// In-memory cache
	datasets manifests
}

// NewFileFragmentStore creates a new file-based fragment store. A nil codec
// stores plain JSON.
func NewFileFragmentStore(basePath string, codec Codec) *FileFragmentStore {
	if codec == nil {
		codec = noneCodec
	}
	return &FileFragmentStore{
		basePath: basePath,
		codec:    codec,
		datasets: make(manifests),
	}
}

// Initialize creates the base directory and loads existing manifests
func (f *FileFragmentStore) Initialize(ctx context.Context) error {
	if err := os.MkdirAll(f.basePath, 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.loadManifests(); err != nil {
		return fmt.Errorf("failed to load manifests: %w", err)
	}
	return nil
}

// Close closes the store
func (f *FileFragmentStore) Close() error {
	if closer, ok := f.codec.(interface{ Close() }); ok {
		closer.Close()
	}
	return nil
}

func (f *FileFragmentStore) manifestPath(name string) string {
	return filepath.Join(f.basePath, name+manifestSuffix+f.codec.Extension())
}

// loadManifests loads every manifest written with the store's codec
func (f *FileFragmentStore) loadManifests() error {
	entries, err := os.ReadDir(f.basePath)
	if err != nil {
		return err
	}

	suffix := manifestSuffix + f.codec.Extension()
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), suffix) {
			continue
		}

		path := filepath.Join(f.basePath, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		data, err = f.codec.Decompress(data)
		if err != nil {
			return fmt.Errorf("failed to decompress %s: %w", entry.Name(), err)
		}

		var manifest DatasetManifest
		if err := json.Unmarshal(data, &manifest); err != nil {
			return fmt.Errorf("failed to parse %s: %w", entry.Name(), err)
		}
		f.datasets[manifest.Name] = &manifest
	}

	logging.GetTracer().Debug(logging.TraceComponentCatalog, "Manifests loaded",
		zap.String("path", f.basePath), zap.Int("datasets", len(f.datasets)))
	return nil
}

// saveManifest writes one dataset's manifest
func (f *FileFragmentStore) saveManifest(name string) error {
	manifest, err := f.datasets.get(name)
	if err != nil {
		return err
	}
	return f.writeJSON(f.manifestPath(name), manifest)
}

// writeJSON writes data to a JSON file atomically
func (f *FileFragmentStore) writeJSON(path string, data interface{}) error {
	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	encoded, err = f.codec.Compress(encoded)
	if err != nil {
		return fmt.Errorf("failed to compress manifest: %w", err)
	}

	// Write to temp file first
	tempPath := path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return err
	}

	if _, err := file.Write(encoded); err != nil {
		file.Close()
		os.Remove(tempPath)
		return err
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return err
	}

	// Atomic rename
	return os.Rename(tempPath, path)
}

// Dataset operations

func (f *FileFragmentStore) CreateDataset(ctx context.Context, manifest *DatasetManifest) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.datasets.create(manifest, time.Now()); err != nil {
		return err
	}
	if err := f.saveManifest(manifest.Name); err != nil {
		delete(f.datasets, manifest.Name)
		return fmt.Errorf("failed to save manifest: %w", err)
	}
	return nil
}

func (f *FileFragmentStore) GetDataset(ctx context.Context, name string) (*DatasetManifest, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	manifest, err := f.datasets.get(name)
	if err != nil {
		return nil, err
	}
	return copyManifest(manifest), nil
}

func (f *FileFragmentStore) ListDatasets(ctx context.Context) ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.datasets.names(), nil
}

// Fragment operations

func (f *FileFragmentStore) AddFragment(ctx context.Context, rec *FragmentRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	previous, err := f.datasets.get(rec.Dataset)
	if err != nil {
		return err
	}
	backup := copyManifest(previous)

	now := time.Now()
	manifest, err := f.datasets.add(stamped(rec, now))
	if err != nil {
		return err
	}
	manifest.UpdatedAt = now

	if err := f.saveManifest(rec.Dataset); err != nil {
		f.datasets[rec.Dataset] = backup
		return fmt.Errorf("failed to save manifest: %w", err)
	}
	return nil
}

func (f *FileFragmentStore) GetFragment(ctx context.Context, dataset string, id uint64) (*FragmentRecord, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	rec, err := f.datasets.fragment(dataset, id)
	if err != nil {
		return nil, err
	}
	return copyRecord(rec), nil
}

func (f *FileFragmentStore) ListFragments(ctx context.Context, dataset string) ([]*FragmentRecord, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	manifest, err := f.datasets.get(dataset)
	if err != nil {
		return nil, err
	}
	return copyManifest(manifest).Fragments, nil
}

func (f *FileFragmentStore) NextFragmentID(ctx context.Context, dataset string) (uint64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.datasets.nextID(dataset)
}

// fileStoreFactory reads "path" (required), "compression" and
// "compression_level" from the config map.
type fileStoreFactory struct{}

func (fileStoreFactory) CreateStore(config map[string]interface{}) (FragmentStore, error) {
	path, _ := config["path"].(string)
	if path == "" {
		return nil, fmt.Errorf("file store requires a path")
	}

	compression, _ := config["compression"].(string)
	ct, err := ParseCompressionType(compression)
	if err != nil {
		return nil, err
	}
	level, _ := config["compression_level"].(int)

	codec, err := NewCodec(ct, CompressionLevel(level))
	if err != nil {
		return nil, err
	}
	return NewFileFragmentStore(path, codec), nil
}

func init() {
	RegisterFragmentStore("file", fileStoreFactory{})
}
