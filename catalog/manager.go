package catalog

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"fragstats/datatypes"
	"fragstats/format"
	"fragstats/logging"
)

// Manager provides high-level fragment registration on top of a store
type Manager struct {
	store  FragmentStore
	tracer *logging.Tracer
}

// NewManager creates a new catalog manager
func NewManager(store FragmentStore) *Manager {
	return &Manager{
		store:  store,
		tracer: logging.GetTracer(),
	}
}

// Initialize initializes the underlying store
func (m *Manager) Initialize(ctx context.Context) error {
	return m.store.Initialize(ctx)
}

// Close closes the underlying store
func (m *Manager) Close() error {
	return m.store.Close()
}

// Store returns the underlying fragment store
func (m *Manager) Store() FragmentStore {
	return m.store
}

// EnsureDataset creates the dataset with the given fields unless it exists
func (m *Manager) EnsureDataset(ctx context.Context, name string, fields []datatypes.Field) (*DatasetManifest, error) {
	manifest, err := m.store.GetDataset(ctx, name)
	if err == nil {
		return manifest, nil
	}
	if !errors.Is(err, ErrDatasetNotFound) {
		return nil, fmt.Errorf("failed to check dataset existence: %w", err)
	}

	manifest = &DatasetManifest{
		Name:    name,
		Columns: ColumnsFromFields(fields),
	}
	if err := m.store.CreateDataset(ctx, manifest); err != nil && !errors.Is(err, ErrDatasetExists) {
		return nil, fmt.Errorf("failed to create dataset: %w", err)
	}
	m.tracer.Info(logging.TraceComponentCatalog, "Dataset created",
		zap.String("dataset", name), zap.Int("columns", len(manifest.Columns)))
	return m.store.GetDataset(ctx, name)
}

// ResolveFields maps the fields of one data file onto the dataset columns by
// name. The returned fields carry the dataset's column ids. A field the dataset
// does not have, or whose type differs from the column's, is a conflict.
func (m *Manager) ResolveFields(ctx context.Context, dataset string, fields []datatypes.Field) ([]datatypes.Field, error) {
	manifest, err := m.store.GetDataset(ctx, dataset)
	if err != nil {
		return nil, err
	}

	columns := make(map[string]ColumnMetadata, len(manifest.Columns))
	for _, col := range manifest.Columns {
		columns[col.Name] = col
	}

	resolved := make([]datatypes.Field, 0, len(fields))
	for _, f := range fields {
		col, ok := columns[f.Name]
		if !ok {
			return nil, fmt.Errorf("%w: column %q is not in dataset %s", ErrSchemaConflict, f.Name, dataset)
		}
		if col.Type != f.Type.String() {
			return nil, fmt.Errorf("%w: column %q is %s in dataset %s, file has %s",
				ErrSchemaConflict, f.Name, col.Type, dataset, f.Type)
		}
		f.ID = col.ID
		f.Children = nil
		resolved = append(resolved, f)
	}
	return resolved, nil
}

// RegisterFragment assigns the next fragment id of the dataset, records the
// fragment and returns its manifest entry.
func (m *Manager) RegisterFragment(ctx context.Context, dataset string, files []format.DataFile, statsFile string, numRows int64, numChunks int) (*FragmentRecord, error) {
	id, err := m.store.NextFragmentID(ctx, dataset)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate fragment id: %w", err)
	}

	rec := &FragmentRecord{
		Dataset:   dataset,
		Fragment:  format.NewFragment(id, files...),
		StatsFile: statsFile,
		NumRows:   numRows,
		NumChunks: numChunks,
	}
	if err := m.store.AddFragment(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to add fragment: %w", err)
	}

	m.tracer.Info(logging.TraceComponentCatalog, "Fragment registered",
		zap.String("dataset", dataset),
		zap.Uint64("fragment_id", id),
		zap.Int("files", len(files)),
		zap.Int64("rows", numRows),
		zap.String("stats_file", statsFile))
	return m.store.GetFragment(ctx, dataset, id)
}

// MissingFields returns, per fragment id, the dataset columns the fragment
// stores in none of its files.
func (m *Manager) MissingFields(ctx context.Context, dataset string) (map[uint64][]int32, error) {
	manifest, err := m.store.GetDataset(ctx, dataset)
	if err != nil {
		return nil, err
	}

	ids := make([]int32, len(manifest.Columns))
	for i, col := range manifest.Columns {
		ids[i] = col.ID
	}

	missing := make(map[uint64][]int32)
	for _, rec := range manifest.Fragments {
		if fields := rec.Fragment.MissingFields(ids); len(fields) > 0 {
			missing[rec.Fragment.ID] = fields
		}
	}
	return missing, nil
}
