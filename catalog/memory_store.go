package catalog

import (
	"context"
	"sync"
	"time"
)

// MemoryFragmentStore is an in-memory implementation of FragmentStore
type MemoryFragmentStore struct {
	mu       sync.RWMutex
	datasets manifests
}

// NewMemoryFragmentStore creates a new in-memory fragment store
func NewMemoryFragmentStore() *MemoryFragmentStore {
	return &MemoryFragmentStore{
		datasets: make(manifests),
	}
}

// Initialize initializes the store
func (m *MemoryFragmentStore) Initialize(ctx context.Context) error {
	return nil
}

// Close closes the store
func (m *MemoryFragmentStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Clear all data
	m.datasets = make(manifests)
	return nil
}

// Dataset operations

func (m *MemoryFragmentStore) CreateDataset(ctx context.Context, manifest *DatasetManifest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.datasets.create(manifest, time.Now())
}

func (m *MemoryFragmentStore) GetDataset(ctx context.Context, name string) (*DatasetManifest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	manifest, err := m.datasets.get(name)
	if err != nil {
		return nil, err
	}
	return copyManifest(manifest), nil
}

func (m *MemoryFragmentStore) ListDatasets(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.datasets.names(), nil
}

// Fragment operations

func (m *MemoryFragmentStore) AddFragment(ctx context.Context, rec *FragmentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	manifest, err := m.datasets.add(stamped(rec, now))
	if err != nil {
		return err
	}
	manifest.UpdatedAt = now
	return nil
}

func (m *MemoryFragmentStore) GetFragment(ctx context.Context, dataset string, id uint64) (*FragmentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, err := m.datasets.fragment(dataset, id)
	if err != nil {
		return nil, err
	}
	return copyRecord(rec), nil
}

func (m *MemoryFragmentStore) ListFragments(ctx context.Context, dataset string) ([]*FragmentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	manifest, err := m.datasets.get(dataset)
	if err != nil {
		return nil, err
	}
	return copyManifest(manifest).Fragments, nil
}

func (m *MemoryFragmentStore) NextFragmentID(ctx context.Context, dataset string) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.datasets.nextID(dataset)
}

// stamped returns rec with its creation time set
func stamped(rec *FragmentRecord, now time.Time) *FragmentRecord {
	if !rec.CreatedAt.IsZero() {
		return rec
	}
	recordCopy := *rec
	recordCopy.CreatedAt = now
	return &recordCopy
}

type memoryStoreFactory struct{}

func (memoryStoreFactory) CreateStore(config map[string]interface{}) (FragmentStore, error) {
	return NewMemoryFragmentStore(), nil
}

func init() {
	RegisterFragmentStore("memory", memoryStoreFactory{})
}
