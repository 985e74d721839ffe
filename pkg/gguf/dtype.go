package gguf

import (
	"fmt"
	"math/bits"
)

// dtypeName maps a GGML tensor type code to its canonical lower-case name.
// Unknown codes are not an error: newer quantization schemes appear as
// "unknown_<code>" so hashing and diffing keep working on files produced by
// newer toolchains.
func dtypeName(code uint32) string {
	switch code {
	case 0:
		return "f32"
	case 1:
		return "f16"
	case 2:
		return "q4_0"
	case 3:
		return "q4_1"
	case 6:
		return "q5_0"
	case 7:
		return "q5_1"
	case 8:
		return "q8_0"
	case 9:
		return "q8_1"
	case 10:
		return "q2_k"
	case 11:
		return "q3_k"
	case 12:
		return "q4_k"
	case 13:
		return "q5_k"
	case 14:
		return "q6_k"
	case 15:
		return "q8_k"
	case 16:
		return "iq2_xxs"
	case 17:
		return "iq2_xs"
	case 18:
		return "iq3_xxs"
	case 19:
		return "iq1_s"
	case 20:
		return "iq4_nl"
	case 21:
		return "iq3_s"
	case 22:
		return "iq2_s"
	case 23:
		return "iq4_xs"
	case 24:
		return "i8"
	case 25:
		return "i16"
	case 26:
		return "i32"
	case 27:
		return "i64"
	case 28:
		return "f64"
	case 29:
		return "iq1_m"
	case 30:
		return "bf16"
	case 34:
		return "tq1_0"
	case 35:
		return "tq2_0"
	case 39:
		return "mxfp4"
	default:
		return fmt.Sprintf("unknown_%d", code)
	}
}

// byteLength computes the tensor payload size from its shape and type code.
// Both the dimension product and the element-width multiply saturate to
// zero on overflow. Block-quantized types have no simple per-element width
// and report zero (unknown).
func byteLength(shape []uint64, code uint32) uint64 {
	elements := uint64(1)
	for _, dim := range shape {
		hi, lo := bits.Mul64(elements, dim)
		if hi != 0 {
			elements = 0
			break
		}
		elements = lo
	}
	var width uint64
	switch code {
	case 0, 26: // f32, i32
		width = 4
	case 1, 25, 30: // f16, i16, bf16
		width = 2
	case 24: // i8
		width = 1
	case 27, 28: // i64, f64
		width = 8
	default:
		return 0
	}
	hi, lo := bits.Mul64(elements, width)
	if hi != 0 {
		return 0
	}
	return lo
}
