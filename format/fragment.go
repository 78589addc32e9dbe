package format

import (
	"fmt"
	"path"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/google/uuid"
)

// DataFileExtension is the suffix given to generated data file paths
const DataFileExtension = ".lance"

// signFlip maps int32 field ids onto uint32 while keeping their order, so that
// negative ids sort before non-negative ones inside a roaring bitmap.
const signFlip = uint32(1) << 31

// DataFile is one physical file of a fragment. It stores the columns listed in
// Fields, in that order. A DataFile is not modified after construction.
type DataFile struct {
	Path   string  `json:"path"`
	Fields []int32 `json:"fields"`
}

// NewDataFile creates a data file, copying the field list
func NewDataFile(path string, fields ...int32) DataFile {
	return DataFile{
		Path:   path,
		Fields: append([]int32(nil), fields...),
	}
}

// NewDataFilePath returns a fresh relative path for a data file under dir
func NewDataFilePath(dir string) string {
	return path.Join(dir, uuid.New().String()+DataFileExtension)
}

// Fragment is a set of data files holding different columns of the same rows.
// A column that exists in the schema but in none of the files is read as nulls.
type Fragment struct {
	ID    uint64     `json:"id"`
	Files []DataFile `json:"files"`
}

// NewFragment creates a fragment from its files
func NewFragment(id uint64, files ...DataFile) Fragment {
	return Fragment{
		ID:    id,
		Files: append([]DataFile(nil), files...),
	}
}

// NumFiles returns the number of data files in the fragment
func (f Fragment) NumFiles() int {
	return len(f.Files)
}

func (f Fragment) fieldBitmap() *roaring.Bitmap {
	bitmap := roaring.New()
	for _, file := range f.Files {
		for _, id := range file.Fields {
			bitmap.Add(uint32(id) ^ signFlip)
		}
	}
	return bitmap
}

// FieldIDs returns the sorted, de-duplicated ids of all fields stored by the
// fragment's files.
func (f Fragment) FieldIDs() []int32 {
	bitmap := f.fieldBitmap()
	ids := make([]int32, 0, bitmap.GetCardinality())
	it := bitmap.Iterator()
	for it.HasNext() {
		ids = append(ids, int32(it.Next()^signFlip))
	}
	return ids
}

// HasField reports whether any file of the fragment stores the field
func (f Fragment) HasField(id int32) bool {
	for _, file := range f.Files {
		for _, fid := range file.Fields {
			if fid == id {
				return true
			}
		}
	}
	return false
}

// MissingFields returns, in ascending order, the ids from schemaIDs that no
// file of the fragment stores. Readers fill these columns with nulls.
func (f Fragment) MissingFields(schemaIDs []int32) []int32 {
	expected := roaring.New()
	for _, id := range schemaIDs {
		expected.Add(uint32(id) ^ signFlip)
	}
	expected.AndNot(f.fieldBitmap())

	missing := make([]int32, 0, expected.GetCardinality())
	for _, v := range expected.ToArray() {
		missing = append(missing, int32(v^signFlip))
	}
	return missing
}

// String returns a short description of the fragment
func (f Fragment) String() string {
	return fmt.Sprintf("Fragment(id=%d, files=%d, fields=%v)", f.ID, len(f.Files), f.FieldIDs())
}
