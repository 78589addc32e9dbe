package catalog

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// CompressionType names a manifest compression algorithm
type CompressionType string

const (
	CompressionNone   CompressionType = "none"
	CompressionGzip   CompressionType = "gzip"
	CompressionSnappy CompressionType = "snappy"
	CompressionZstd   CompressionType = "zstd"
)

// CompressionLevel represents compression level for algorithms that support it
type CompressionLevel int

const (
	CompressionLevelFastest CompressionLevel = 1
	CompressionLevelDefault CompressionLevel = 0
	CompressionLevelBetter  CompressionLevel = 3
	CompressionLevelBest    CompressionLevel = 9
)

// ParseCompressionType parses a compression name, case-insensitively. The
// empty string means no compression.
func ParseCompressionType(s string) (CompressionType, error) {
	switch ct := CompressionType(strings.ToLower(strings.TrimSpace(s))); ct {
	case "":
		return CompressionNone, nil
	case CompressionNone, CompressionGzip, CompressionSnappy, CompressionZstd:
		return ct, nil
	default:
		return "", fmt.Errorf("unsupported compression type: %s", s)
	}
}

// Codec compresses manifest files
type Codec interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
	Type() CompressionType
	// Extension is appended to manifest file names
	Extension() string
}

// funcCodec is a Codec assembled from a pair of byte transforms
type funcCodec struct {
	typ        CompressionType
	ext        string
	compress   func([]byte) ([]byte, error)
	decompress func([]byte) ([]byte, error)
	close      func()
}

func (c *funcCodec) Compress(data []byte) ([]byte, error)   { return c.compress(data) }
func (c *funcCodec) Decompress(data []byte) ([]byte, error) { return c.decompress(data) }
func (c *funcCodec) Type() CompressionType                  { return c.typ }
func (c *funcCodec) Extension() string                      { return c.ext }

// Close releases encoder state held by the codec
func (c *funcCodec) Close() {
	if c.close != nil {
		c.close()
	}
}

func identity(data []byte) ([]byte, error) { return data, nil }

var noneCodec = &funcCodec{typ: CompressionNone, compress: identity, decompress: identity}

// codecLevels maps a CompressionLevel onto the zstd and gzip levels
var codecLevels = map[CompressionLevel]struct {
	zstd zstd.EncoderLevel
	gzip int
}{
	CompressionLevelDefault: {zstd.SpeedDefault, gzip.DefaultCompression},
	CompressionLevelFastest: {zstd.SpeedFastest, gzip.BestSpeed},
	CompressionLevelBetter:  {zstd.SpeedBetterCompression, 7},
	CompressionLevelBest:    {zstd.SpeedBestCompression, gzip.BestCompression},
}

// NewCodec creates the codec for compressionType. Unknown levels fall back to
// the default level.
func NewCodec(compressionType CompressionType, level CompressionLevel) (Codec, error) {
	levels, ok := codecLevels[level]
	if !ok {
		levels = codecLevels[CompressionLevelDefault]
	}

	switch compressionType {
	case CompressionNone, "":
		return noneCodec, nil

	case CompressionSnappy:
		return &funcCodec{
			typ: CompressionSnappy,
			ext: ".snappy",
			compress: func(data []byte) ([]byte, error) {
				return snappy.Encode(nil, data), nil
			},
			decompress: func(data []byte) ([]byte, error) {
				return snappy.Decode(nil, data)
			},
		}, nil

	case CompressionZstd:
		encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(levels.zstd))
		if err != nil {
			return nil, err
		}
		decoder, err := zstd.NewReader(nil)
		if err != nil {
			encoder.Close()
			return nil, err
		}
		return &funcCodec{
			typ: CompressionZstd,
			ext: ".zst",
			compress: func(data []byte) ([]byte, error) {
				return encoder.EncodeAll(data, nil), nil
			},
			decompress: func(data []byte) ([]byte, error) {
				return decoder.DecodeAll(data, nil)
			},
			close: func() {
				encoder.Close()
				decoder.Close()
			},
		}, nil

	case CompressionGzip:
		return &funcCodec{
			typ: CompressionGzip,
			ext: ".gz",
			compress: func(data []byte) ([]byte, error) {
				var buf bytes.Buffer
				w, err := gzip.NewWriterLevel(&buf, levels.gzip)
				if err != nil {
					return nil, err
				}
				if _, err := w.Write(data); err != nil {
					w.Close()
					return nil, err
				}
				if err := w.Close(); err != nil {
					return nil, err
				}
				return buf.Bytes(), nil
			},
			decompress: func(data []byte) ([]byte, error) {
				r, err := gzip.NewReader(bytes.NewReader(data))
				if err != nil {
					return nil, err
				}
				defer r.Close()
				return io.ReadAll(r)
			},
		}, nil

	default:
		return nil, fmt.Errorf("unsupported compression type: %s", compressionType)
	}
}
