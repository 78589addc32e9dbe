package catalog

import (
	"bytes"
	"testing"
)

func TestCodecs(t *testing.T) {
	data := bytes.Repeat([]byte(`{"dataset":"events","fragment":{"id":1}}`), 50)

	for _, ct := range []CompressionType{CompressionNone, CompressionGzip, CompressionSnappy, CompressionZstd} {
		for _, level := range []CompressionLevel{CompressionLevelFastest, CompressionLevelDefault, CompressionLevelBest} {
			codec, err := NewCodec(ct, level)
			if err != nil {
				t.Fatalf("Failed to create %s codec: %v", ct, err)
			}
			if codec.Type() != ct {
				t.Errorf("Expected type %s, got %s", ct, codec.Type())
			}

			compressed, err := codec.Compress(data)
			if err != nil {
				t.Fatalf("%s: compress failed: %v", ct, err)
			}
			if ct != CompressionNone && len(compressed) >= len(data) {
				t.Errorf("%s: expected repetitive data to shrink, %d >= %d", ct, len(compressed), len(data))
			}

			decompressed, err := codec.Decompress(compressed)
			if err != nil {
				t.Fatalf("%s: decompress failed: %v", ct, err)
			}
			if !bytes.Equal(decompressed, data) {
				t.Errorf("%s: data mismatch after decompression", ct)
			}
		}
	}
}

func TestParseCompressionType(t *testing.T) {
	tests := []struct {
		input    string
		expected CompressionType
		wantErr  bool
	}{
		{"", CompressionNone, false},
		{"none", CompressionNone, false},
		{"GZIP", CompressionGzip, false},
		{" snappy ", CompressionSnappy, false},
		{"zstd", CompressionZstd, false},
		{"brotli", "", true},
	}

	for _, tt := range tests {
		ct, err := ParseCompressionType(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseCompressionType(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if ct != tt.expected {
			t.Errorf("ParseCompressionType(%q) = %s, want %s", tt.input, ct, tt.expected)
		}
	}
}

func TestCodecExtensions(t *testing.T) {
	expected := map[CompressionType]string{
		CompressionNone:   "",
		CompressionGzip:   ".gz",
		CompressionSnappy: ".snappy",
		CompressionZstd:   ".zst",
	}
	for ct, ext := range expected {
		codec, err := NewCodec(ct, CompressionLevelDefault)
		if err != nil {
			t.Fatalf("Failed to create %s codec: %v", ct, err)
		}
		if codec.Extension() != ext {
			t.Errorf("%s: expected extension %q, got %q", ct, ext, codec.Extension())
		}
	}
}

func TestCodecUnknownLevelUsesDefault(t *testing.T) {
	data := bytes.Repeat([]byte("fragment"), 100)
	for _, ct := range []CompressionType{CompressionGzip, CompressionZstd} {
		codec, err := NewCodec(ct, CompressionLevel(42))
		if err != nil {
			t.Fatalf("%s: expected fallback to the default level, got %v", ct, err)
		}
		compressed, err := codec.Compress(data)
		if err != nil {
			t.Fatalf("%s: compress failed: %v", ct, err)
		}
		decompressed, err := codec.Decompress(compressed)
		if err != nil || !bytes.Equal(decompressed, data) {
			t.Errorf("%s: round trip failed: %v", ct, err)
		}
		if closer, ok := codec.(interface{ Close() }); ok {
			closer.Close()
		}
	}

	if _, err := NewCodec("brotli", CompressionLevelDefault); err == nil {
		t.Errorf("Expected error for unknown compression type")
	}
}
