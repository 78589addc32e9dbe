package format

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFragmentFieldIDs(t *testing.T) {
	testCases := []struct {
		name     string
		files    []DataFile
		expected []int32
	}{
		{
			name:     "NoFiles",
			expected: []int32{},
		},
		{
			name:     "SingleFile",
			files:    []DataFile{NewDataFile("a.lance", 2, 0, 1)},
			expected: []int32{0, 1, 2},
		},
		{
			name: "OverlappingFiles",
			files: []DataFile{
				NewDataFile("a.lance", 0, 4, 2),
				NewDataFile("b.lance", 2, 3),
				NewDataFile("c.lance", 7, 0),
			},
			expected: []int32{0, 2, 3, 4, 7},
		},
		{
			name: "NegativeIDs",
			files: []DataFile{
				NewDataFile("a.lance", 5, -1),
				NewDataFile("b.lance", -3, 5),
			},
			expected: []int32{-3, -1, 5},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			frag := NewFragment(1, tc.files...)
			require.Equal(t, tc.expected, frag.FieldIDs())
		})
	}
}

func TestFragmentMissingFields(t *testing.T) {
	frag := NewFragment(3,
		NewDataFile("a.lance", 0, 1),
		NewDataFile("b.lance", 3),
	)

	assert.Equal(t, []int32{2, 4}, frag.MissingFields([]int32{4, 0, 1, 2, 3}))
	assert.Empty(t, frag.MissingFields([]int32{0, 3}))
	assert.True(t, frag.HasField(3))
	assert.False(t, frag.HasField(2))
	assert.Equal(t, 2, frag.NumFiles())
}

func TestDataFileIsCopied(t *testing.T) {
	fields := []int32{1, 2}
	file := NewDataFile("a.lance", fields...)
	fields[0] = 9
	require.Equal(t, []int32{1, 2}, file.Fields)

	files := []DataFile{file}
	frag := NewFragment(1, files...)
	files[0] = NewDataFile("other.lance")
	require.Equal(t, "a.lance", frag.Files[0].Path)
}

func TestNewDataFilePath(t *testing.T) {
	p1 := NewDataFilePath("data")
	p2 := NewDataFilePath("data")

	require.True(t, strings.HasPrefix(p1, "data/"))
	require.True(t, strings.HasSuffix(p1, DataFileExtension))
	require.NotEqual(t, p1, p2)
}
