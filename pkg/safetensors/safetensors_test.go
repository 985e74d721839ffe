package safetensors

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weightscope/weightscope/pkg/artifact"
)

// file prefixes the JSON header with its 8-byte little-endian length.
func file(header string) *bytes.Reader {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint64(len(header)))
	buf.WriteString(header)
	return bytes.NewReader(buf.Bytes())
}

func TestParseValidFile(t *testing.T) {
	a, err := Parse(file(`{
		"__metadata__": {"format": "pt", "pruned": false, "epoch": 3, "loss": 0.25, "parent": null},
		"model.embed_tokens.weight": {"dtype": "F32", "shape": [32000, 4096], "data_offsets": [0, 524288000]},
		"model.norm.weight": {"dtype": "BF16", "shape": [4096], "data_offsets": [524288000, 524296192]}
	}`))
	require.NoError(t, err)

	assert.Equal(t, artifact.FormatSafetensors, a.Format)
	assert.Nil(t, a.Version)

	require.Len(t, a.Metadata, 5)
	assert.True(t, a.Metadata["format"].Equal(artifact.String("pt")))
	assert.True(t, a.Metadata["pruned"].Equal(artifact.Bool(false)))
	assert.True(t, a.Metadata["epoch"].Equal(artifact.Int(3)))
	assert.True(t, a.Metadata["loss"].Equal(artifact.Float(0.25)))
	assert.True(t, a.Metadata["parent"].Equal(artifact.Null()))

	require.Len(t, a.Tensors, 2)
	embed := a.Tensors["model.embed_tokens.weight"]
	assert.Equal(t, "f32", embed.Dtype, "dtype is normalized to lower case")
	assert.Equal(t, []uint64{32000, 4096}, embed.Shape)
	assert.Equal(t, uint64(524288000), embed.ByteLength)

	norm := a.Tensors["model.norm.weight"]
	assert.Equal(t, "bf16", norm.Dtype)
	assert.Equal(t, uint64(8192), norm.ByteLength)
}

func TestParseNoMetadata(t *testing.T) {
	a, err := Parse(file(`{"w": {"dtype": "F16", "shape": [2], "data_offsets": [0, 4]}}`))
	require.NoError(t, err)
	assert.Empty(t, a.Metadata)
	require.Len(t, a.Tensors, 1)
}

func TestParseScalarTensor(t *testing.T) {
	a, err := Parse(file(`{"step": {"dtype": "I64", "shape": [], "data_offsets": [0, 8]}}`))
	require.NoError(t, err)
	tensor := a.Tensors["step"]
	assert.Empty(t, tensor.Shape)
	assert.Equal(t, uint64(8), tensor.ByteLength)
}

func TestParseMissingFields(t *testing.T) {
	tests := []struct {
		name   string
		header string
		field  string
	}{
		{"no dtype", `{"w": {"shape": [2], "data_offsets": [0, 4]}}`, "dtype"},
		{"no shape", `{"w": {"dtype": "F32", "data_offsets": [0, 4]}}`, "shape"},
		{"no data_offsets", `{"w": {"dtype": "F32", "shape": [2]}}`, "data_offsets"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(file(tt.header))
			var missing *MissingFieldError
			require.ErrorAs(t, err, &missing)
			assert.Equal(t, "w", missing.Tensor)
			assert.Equal(t, tt.field, missing.Field)
		})
	}
}

func TestParseInvalidShape(t *testing.T) {
	headers := []string{
		`{"w": {"dtype": "F32", "shape": [2, -1], "data_offsets": [0, 4]}}`,
		`{"w": {"dtype": "F32", "shape": [2.5], "data_offsets": [0, 4]}}`,
		`{"w": {"dtype": "F32", "shape": "not-an-array", "data_offsets": [0, 4]}}`,
	}
	for _, header := range headers {
		_, err := Parse(file(header))
		var invalid *InvalidShapeError
		assert.ErrorAs(t, err, &invalid, "header %s", header)
	}
}

func TestParseInvalidByteRange(t *testing.T) {
	_, err := Parse(file(`{"w": {"dtype": "F32", "shape": [2], "data_offsets": [8, 8]}}`))
	var invalid *InvalidByteLengthError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, uint64(8), invalid.Start)
	assert.Equal(t, uint64(8), invalid.End)

	_, err = Parse(file(`{"w": {"dtype": "F32", "shape": [2], "data_offsets": [8, 4]}}`))
	assert.ErrorAs(t, err, &invalid)
}

func TestParseBadDataOffsets(t *testing.T) {
	headers := []string{
		`{"w": {"dtype": "F32", "shape": [2], "data_offsets": [0]}}`,
		`{"w": {"dtype": "F32", "shape": [2], "data_offsets": [0, 4, 8]}}`,
		`{"w": {"dtype": "F32", "shape": [2], "data_offsets": "bad"}}`,
		`{"w": {"dtype": "F32", "shape": [2], "data_offsets": [-1, 4]}}`,
	}
	for _, header := range headers {
		_, err := Parse(file(header))
		assert.ErrorIs(t, err, ErrInvalidHeader, "header %s", header)
	}
}

// The length prefix is validated before any header allocation: a file that
// is only 8 bytes long but declares a huge header must fail on the declared
// length alone.
func TestParseHeaderTooLarge(t *testing.T) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint64(maxHeaderSize+1))

	_, err := Parse(bytes.NewReader(buf.Bytes()))
	assert.ErrorIs(t, err, ErrHeaderTooLarge)
}

func TestParseMalformedHeader(t *testing.T) {
	_, err := Parse(file(`{not json`))
	assert.ErrorIs(t, err, ErrInvalidHeader)

	_, err = Parse(file(`[1, 2, 3]`))
	assert.ErrorIs(t, err, ErrInvalidHeader)

	// Invalid UTF-8 in the header body.
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint64(2))
	buf.Write([]byte{0xff, 0xfe})
	_, err = Parse(bytes.NewReader(buf.Bytes()))
	assert.ErrorIs(t, err, ErrInvalidHeader)

	// Truncated: header length declares more bytes than the file has.
	buf.Reset()
	binary.Write(&buf, binary.LittleEndian, uint64(100))
	buf.WriteString("{}")
	_, err = Parse(bytes.NewReader(buf.Bytes()))
	assert.Error(t, err)
}

func TestParseNestedMetadataRejected(t *testing.T) {
	_, err := Parse(file(`{"__metadata__": {"nested": {"a": 1}}}`))
	assert.ErrorIs(t, err, ErrInvalidHeader)

	_, err = Parse(file(`{"__metadata__": {"list": [1, 2]}}`))
	assert.ErrorIs(t, err, ErrInvalidHeader)
}

func TestParseHugeIntegerMetadata(t *testing.T) {
	// Out of int64 range, preserved as a float.
	a, err := Parse(file(`{"__metadata__": {"big": 18446744073709551615}}`))
	require.NoError(t, err)
	assert.Equal(t, artifact.KindFloat, a.Metadata["big"].Kind())
}
