package catalog

import (
	"errors"
	"time"

	"fragstats/datatypes"
	"fragstats/format"
)

// ColumnMetadata describes one field of a dataset schema
type ColumnMetadata struct {
	ID       int32  `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

// FragmentRecord is the manifest entry of one fragment: its data files and
// the statistics file describing its chunks.
type FragmentRecord struct {
	Dataset    string            `json:"dataset"`
	Fragment   format.Fragment   `json:"fragment"`
	StatsFile  string            `json:"stats_file"`
	NumRows    int64             `json:"num_rows"`
	NumChunks  int               `json:"num_chunks"`
	Properties map[string]string `json:"properties,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// DatasetManifest lists the fragments of one dataset
type DatasetManifest struct {
	Name      string            `json:"name"`
	Columns   []ColumnMetadata  `json:"columns"`
	Fragments []*FragmentRecord `json:"fragments"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// ColumnsFromFields converts top-level fields into manifest columns
func ColumnsFromFields(fields []datatypes.Field) []ColumnMetadata {
	columns := make([]ColumnMetadata, len(fields))
	for i, f := range fields {
		columns[i] = ColumnMetadata{
			ID:       f.ID,
			Name:     f.Name,
			Type:     f.Type.String(),
			Nullable: f.Nullable,
		}
	}
	return columns
}

func copyRecord(rec *FragmentRecord) *FragmentRecord {
	recordCopy := *rec
	files := make([]format.DataFile, len(rec.Fragment.Files))
	for i, f := range rec.Fragment.Files {
		files[i] = format.NewDataFile(f.Path, f.Fields...)
	}
	recordCopy.Fragment = format.NewFragment(rec.Fragment.ID, files...)
	if rec.Properties != nil {
		recordCopy.Properties = make(map[string]string, len(rec.Properties))
		for k, v := range rec.Properties {
			recordCopy.Properties[k] = v
		}
	}
	return &recordCopy
}

func copyManifest(m *DatasetManifest) *DatasetManifest {
	manifestCopy := *m
	manifestCopy.Columns = append([]ColumnMetadata(nil), m.Columns...)
	manifestCopy.Fragments = make([]*FragmentRecord, len(m.Fragments))
	for i, rec := range m.Fragments {
		manifestCopy.Fragments[i] = copyRecord(rec)
	}
	return &manifestCopy
}

// Errors
var (
	ErrDatasetNotFound  = errors.New("dataset not found")
	ErrDatasetExists    = errors.New("dataset already exists")
	ErrFragmentNotFound = errors.New("fragment not found")
	ErrFragmentExists   = errors.New("fragment already exists")
	ErrSchemaConflict   = errors.New("fields conflict with dataset columns")
)
