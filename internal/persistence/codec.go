package persistence

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/tidwall/gjson"
)

// DefaultCompressThreshold is the serialized size above which payloads are
// gzip-compressed.
const DefaultCompressThreshold = 1 << 20

// DefaultChunkSize is how many bytes are compressed between progress reports.
const DefaultChunkSize = 64 << 10

// Compressed is the wire form of a compressed payload.
type Compressed struct {
	Compressed     bool    `json:"compressed"`
	Data           string  `json:"data"`
	OriginalSize   int     `json:"originalSize"`
	CompressedSize int     `json:"compressedSize"`
	Ratio          float64 `json:"ratio"`
}

// IsCompressed reports whether data is a Compressed wrapper.
func IsCompressed(data []byte) bool {
	return gjson.GetBytes(data, "compressed").Bool()
}

func compress(raw []byte, chunkSize int, progress func(int)) (Compressed, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.DefaultCompression)
	if err != nil {
		return Compressed{}, err
	}
	for off := 0; off < len(raw); off += chunkSize {
		end := min(off+chunkSize, len(raw))
		if _, err := zw.Write(raw[off:end]); err != nil {
			return Compressed{}, fmt.Errorf("gzip write: %w", err)
		}
		if progress != nil {
			progress(end * 100 / len(raw))
		}
	}
	if err := zw.Close(); err != nil {
		return Compressed{}, fmt.Errorf("gzip close: %w", err)
	}
	out := Compressed{
		Compressed:     true,
		Data:           base64.StdEncoding.EncodeToString(buf.Bytes()),
		OriginalSize:   len(raw),
		CompressedSize: buf.Len(),
	}
	if len(raw) > 0 {
		out.Ratio = float64(buf.Len()) / float64(len(raw))
	}
	return out, nil
}

func decompress(data []byte) ([]byte, error) {
	var wrapper Compressed
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("decode wrapper: %w", err)
	}
	packed, err := base64.StdEncoding.DecodeString(wrapper.Data)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	zr, err := gzip.NewReader(bytes.NewReader(packed))
	if err != nil {
		return nil, fmt.Errorf("gzip open: %w", err)
	}
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("gzip read: %w", err)
	}
	if wrapper.OriginalSize > 0 && len(raw) != wrapper.OriginalSize {
		return nil, fmt.Errorf("size mismatch: got %d, want %d", len(raw), wrapper.OriginalSize)
	}
	return raw, nil
}
