package onnx

import "fmt"

// dtypeName maps an ONNX TensorProto.DataType code to its canonical
// lower-case name. Unknown codes produce "unknown_<code>" rather than an
// error, so files using newer element types still hash and diff.
func dtypeName(code int32) string {
	switch code {
	case 1:
		return "float32"
	case 2:
		return "uint8"
	case 3:
		return "int8"
	case 4:
		return "uint16"
	case 5:
		return "int16"
	case 6:
		return "int32"
	case 7:
		return "int64"
	case 8:
		return "string"
	case 9:
		return "bool"
	case 10:
		return "float16"
	case 11:
		return "float64"
	case 12:
		return "uint32"
	case 13:
		return "uint64"
	case 14:
		return "complex64"
	case 15:
		return "complex128"
	case 16:
		return "bfloat16"
	case 17:
		return "float8e4m3fn"
	case 18:
		return "float8e4m3fnuz"
	case 19:
		return "float8e5m2"
	case 20:
		return "float8e5m2fnuz"
	case 21:
		return "uint4"
	case 22:
		return "int4"
	case 23:
		return "float4e2m1"
	default:
		return fmt.Sprintf("unknown_%d", code)
	}
}

// elementSize returns the per-element byte width for a data type code.
// Sub-byte and unknown types use a 1-byte fallback.
func elementSize(code int32) uint64 {
	switch code {
	case 1, 6, 12: // float32, int32, uint32
		return 4
	case 4, 5, 10, 16: // uint16, int16, float16, bfloat16
		return 2
	case 7, 11, 13, 14: // int64, float64, uint64, complex64
		return 8
	case 15: // complex128
		return 16
	default:
		return 1
	}
}
