package format

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weightscope/weightscope/pkg/artifact"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		path string
		want FileType
	}{
		{"model.gguf", FileTypeGGUF},
		{"MODEL.GGUF", FileTypeGGUF},
		{"weights.safetensors", FileTypeSafetensors},
		{"net.onnx", FileTypeONNX},
		{"dir/nested/model.Onnx", FileTypeONNX},
		{"model.bin", FileTypeUnknown},
		{"model", FileTypeUnknown},
		{"", FileTypeUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.path), "path %q", tt.path)
	}
}

func TestFileTypeString(t *testing.T) {
	assert.Equal(t, "gguf", FileTypeGGUF.String())
	assert.Equal(t, "safetensors", FileTypeSafetensors.String())
	assert.Equal(t, "onnx", FileTypeONNX.String())
	assert.Equal(t, "unknown", FileTypeUnknown.String())
}

func TestGetRegisteredFormats(t *testing.T) {
	for _, name := range []artifact.Format{
		artifact.FormatGGUF, artifact.FormatSafetensors, artifact.FormatONNX,
	} {
		f, err := Get(name)
		require.NoError(t, err)
		assert.Equal(t, name, f.Name())
	}

	_, err := Get("pickle")
	assert.Error(t, err)
}

// ggufBytes is an empty GGUF header: magic, version 3, zero tensors, zero
// metadata entries.
func ggufBytes() []byte {
	buf := make([]byte, 24)
	copy(buf, "GGUF")
	binary.LittleEndian.PutUint32(buf[4:], 3)
	return buf
}

func safetensorsBytes(header string) []byte {
	buf := make([]byte, 8, 8+len(header))
	binary.LittleEndian.PutUint64(buf, uint64(len(header)))
	return append(buf, header...)
}

func onnxBytes() []byte {
	data := protowire.AppendTag(nil, 1, protowire.VarintType) // ir_version
	return protowire.AppendVarint(data, 9)
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		prefix []byte
		want   artifact.Format
	}{
		{"gguf magic", "model.bin", ggufBytes(), artifact.FormatGGUF},
		{"gguf magic beats extension", "model.safetensors", ggufBytes(), artifact.FormatGGUF},
		{"onnx extension wins", "model.onnx", ggufBytes(), artifact.FormatONNX},
		{"safetensors sniff", "weights", safetensorsBytes(`{"a":1}`), artifact.FormatSafetensors},
		{"fallback", "mystery.bin", []byte{0, 1, 2, 3}, artifact.FormatSafetensors},
		{"empty prefix", "empty", nil, artifact.FormatSafetensors},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prefix := tt.prefix
			if len(prefix) > 16 {
				prefix = prefix[:16]
			}
			assert.Equal(t, tt.want, Detect(tt.path, prefix).Name())
		})
	}
}

func TestSniff(t *testing.T) {
	ggufImpl, err := Get(artifact.FormatGGUF)
	require.NoError(t, err)
	assert.True(t, ggufImpl.Sniff([]byte("GGUF\x03\x00\x00\x00")))
	assert.False(t, ggufImpl.Sniff([]byte("GGU")))
	assert.False(t, ggufImpl.Sniff([]byte("NOPE1234")))

	stImpl, err := Get(artifact.FormatSafetensors)
	require.NoError(t, err)
	assert.True(t, stImpl.Sniff(safetensorsBytes(`{"a":1}`)[:9]))
	assert.False(t, stImpl.Sniff(safetensorsBytes(``)))
	assert.False(t, stImpl.Sniff([]byte{1, 2, 3}))

	onnxImpl, err := Get(artifact.FormatONNX)
	require.NoError(t, err)
	assert.False(t, onnxImpl.Sniff(onnxBytes()))
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestParseFileRouting(t *testing.T) {
	ggufPath := writeFile(t, "model.gguf", ggufBytes())
	a, err := ParseFile(ggufPath)
	require.NoError(t, err)
	assert.Equal(t, artifact.FormatGGUF, a.Format)

	stPath := writeFile(t, "model.safetensors",
		safetensorsBytes(`{"w": {"dtype": "F32", "shape": [2], "data_offsets": [0, 8]}}`))
	a, err = ParseFile(stPath)
	require.NoError(t, err)
	assert.Equal(t, artifact.FormatSafetensors, a.Format)
	assert.Len(t, a.Tensors, 1)

	onnxPath := writeFile(t, "model.onnx", onnxBytes())
	a, err = ParseFile(onnxPath)
	require.NoError(t, err)
	assert.Equal(t, artifact.FormatONNX, a.Format)
	require.NotNil(t, a.Version)
	assert.Equal(t, int64(9), *a.Version)
}

// Files shorter than the sniff prefix must still parse; a GGUF header with
// no tensors and no metadata is longer than 16 bytes, so use an empty
// safetensors header instead.
func TestParseFileShortFile(t *testing.T) {
	path := writeFile(t, "tiny.safetensors", safetensorsBytes(`{}`))
	a, err := ParseFile(path)
	require.NoError(t, err)
	assert.Empty(t, a.Tensors)
}

func TestParseFileMissing(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "absent.gguf"))
	assert.Error(t, err)
}
