package catalog

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// FragmentStore is the interface for pluggable fragment manifest storage
type FragmentStore interface {
	// Dataset operations
	CreateDataset(ctx context.Context, manifest *DatasetManifest) error
	GetDataset(ctx context.Context, name string) (*DatasetManifest, error)
	ListDatasets(ctx context.Context) ([]string, error)

	// Fragment operations
	AddFragment(ctx context.Context, rec *FragmentRecord) error
	GetFragment(ctx context.Context, dataset string, id uint64) (*FragmentRecord, error)
	ListFragments(ctx context.Context, dataset string) ([]*FragmentRecord, error)
	NextFragmentID(ctx context.Context, dataset string) (uint64, error)

	// Lifecycle
	Initialize(ctx context.Context) error
	Close() error
}

// FragmentStoreFactory creates fragment store instances
type FragmentStoreFactory interface {
	CreateStore(config map[string]interface{}) (FragmentStore, error)
}

// Registry of available fragment store implementations
var fragmentStoreFactories = make(map[string]FragmentStoreFactory)

// RegisterFragmentStore registers a new fragment store implementation
func RegisterFragmentStore(name string, factory FragmentStoreFactory) {
	fragmentStoreFactories[name] = factory
}

// CreateFragmentStore creates a fragment store instance
func CreateFragmentStore(storeType string, config map[string]interface{}) (FragmentStore, error) {
	factory, exists := fragmentStoreFactories[storeType]
	if !exists {
		return nil, fmt.Errorf("unknown fragment store type: %s", storeType)
	}
	return factory.CreateStore(config)
}

// RegisteredStores returns the names of the registered store types
func RegisteredStores() []string {
	names := make([]string, 0, len(fragmentStoreFactories))
	for name := range fragmentStoreFactories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// manifests is the dataset map shared by the memory and file stores. Callers
// hold the store lock.
type manifests map[string]*DatasetManifest

func (m manifests) create(manifest *DatasetManifest, now time.Time) error {
	if _, exists := m[manifest.Name]; exists {
		return ErrDatasetExists
	}
	created := copyManifest(manifest)
	created.CreatedAt = now
	created.UpdatedAt = now
	m[manifest.Name] = created
	return nil
}

func (m manifests) get(name string) (*DatasetManifest, error) {
	manifest, exists := m[name]
	if !exists {
		return nil, ErrDatasetNotFound
	}
	return manifest, nil
}

func (m manifests) names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m manifests) fragment(dataset string, id uint64) (*FragmentRecord, error) {
	manifest, err := m.get(dataset)
	if err != nil {
		return nil, err
	}
	for _, rec := range manifest.Fragments {
		if rec.Fragment.ID == id {
			return rec, nil
		}
	}
	return nil, fmt.Errorf("%w: %s/%d", ErrFragmentNotFound, dataset, id)
}

func (m manifests) add(rec *FragmentRecord) (*DatasetManifest, error) {
	manifest, err := m.get(rec.Dataset)
	if err != nil {
		return nil, err
	}
	for _, existing := range manifest.Fragments {
		if existing.Fragment.ID == rec.Fragment.ID {
			return nil, fmt.Errorf("%w: %s/%d", ErrFragmentExists, rec.Dataset, rec.Fragment.ID)
		}
	}

	manifest.Fragments = append(manifest.Fragments, copyRecord(rec))
	sort.Slice(manifest.Fragments, func(i, j int) bool {
		return manifest.Fragments[i].Fragment.ID < manifest.Fragments[j].Fragment.ID
	})
	return manifest, nil
}

func (m manifests) nextID(dataset string) (uint64, error) {
	manifest, err := m.get(dataset)
	if err != nil {
		return 0, err
	}
	if len(manifest.Fragments) == 0 {
		return 0, nil
	}
	return manifest.Fragments[len(manifest.Fragments)-1].Fragment.ID + 1, nil
}
