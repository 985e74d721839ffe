package format

import (
	"path/filepath"
	"strings"
)

// FileType classifies a path by extension.
type FileType int

const (
	// FileTypeUnknown is an unrecognized file type.
	FileTypeUnknown FileType = iota
	// FileTypeGGUF is a GGUF model weight file.
	FileTypeGGUF
	// FileTypeSafetensors is a safetensors model weight file.
	FileTypeSafetensors
	// FileTypeONNX is an ONNX model file.
	FileTypeONNX
)

// String returns a string representation of the file type.
func (ft FileType) String() string {
	switch ft {
	case FileTypeGGUF:
		return "gguf"
	case FileTypeSafetensors:
		return "safetensors"
	case FileTypeONNX:
		return "onnx"
	}
	return "unknown"
}

// Classify determines the file type from the path's extension.
func Classify(path string) FileType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gguf":
		return FileTypeGGUF
	case ".safetensors":
		return FileTypeSafetensors
	case ".onnx":
		return FileTypeONNX
	}
	return FileTypeUnknown
}
