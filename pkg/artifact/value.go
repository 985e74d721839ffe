package artifact

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf16"
)

// Kind identifies the concrete variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindUint8
	KindInt8
	KindUint16
	KindInt16
	KindUint32
	KindInt32
	KindUint64
	KindInt64
	KindInt
	KindFloat
	KindFloat32
	KindString
	KindArray
)

// Value is a closed tagged union over the scalar and array kinds a model
// header can carry. All integer widths share 64-bit signed storage; the
// declared width is kept only as the kind tag. Float64 and Float32 are
// distinct kinds so that values originating in 32-bit formats round-trip
// bit-for-bit through the canonical encoding.
//
// A Value is immutable after construction.
type Value struct {
	kind Kind
	num  int64
	flt  float64
	str  string
	arr  []Value
}

// Null returns the null value.
func Null() Value { return Value{kind: KindNull} }

// Bool returns a boolean value.
func Bool(b bool) Value {
	v := Value{kind: KindBool}
	if b {
		v.num = 1
	}
	return v
}

// Uint8 returns an 8-bit unsigned integer value.
func Uint8(n uint8) Value { return Value{kind: KindUint8, num: int64(n)} }

// Int8 returns an 8-bit signed integer value.
func Int8(n int8) Value { return Value{kind: KindInt8, num: int64(n)} }

// Uint16 returns a 16-bit unsigned integer value.
func Uint16(n uint16) Value { return Value{kind: KindUint16, num: int64(n)} }

// Int16 returns a 16-bit signed integer value.
func Int16(n int16) Value { return Value{kind: KindInt16, num: int64(n)} }

// Uint32 returns a 32-bit unsigned integer value.
func Uint32(n uint32) Value { return Value{kind: KindUint32, num: int64(n)} }

// Int32 returns a 32-bit signed integer value.
func Int32(n int32) Value { return Value{kind: KindInt32, num: int64(n)} }

// Uint64 returns a 64-bit unsigned integer value. Values above MaxInt64
// wrap into the signed storage; the canonical encoding is the decimal form
// of the stored signed value.
func Uint64(n uint64) Value { return Value{kind: KindUint64, num: int64(n)} }

// Int64 returns a 64-bit signed integer value.
func Int64(n int64) Value { return Value{kind: KindInt64, num: n} }

// Int returns a generic integer value.
func Int(n int64) Value { return Value{kind: KindInt, num: n} }

// Float returns a 64-bit float value.
func Float(f float64) Value { return Value{kind: KindFloat, flt: f} }

// Float32 returns a 32-bit float value. The value is stored widened; the
// canonical encoding carries the 32-bit bit pattern.
func Float32(f float32) Value { return Value{kind: KindFloat32, flt: float64(f)} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Array returns an array value holding the given elements.
func Array(elems []Value) Value { return Value{kind: KindArray, arr: elems} }

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// Encode produces the canonical token for the value. The token is the
// substrate for structural hashing: floats encode as the decimal digits of
// their bit pattern (32-bit floats with an "f32:" prefix), so bit-distinct
// floats, including different NaN encodings, never collide and no
// locale- or precision-sensitive float formatting is involved.
func (v Value) Encode() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		if v.num != 0 {
			return "true"
		}
		return "false"
	case KindFloat:
		return strconv.FormatUint(math.Float64bits(v.flt), 10)
	case KindFloat32:
		return "f32:" + strconv.FormatUint(uint64(math.Float32bits(float32(v.flt))), 10)
	case KindString:
		return `"` + escapeString(v.str) + `"`
	case KindArray:
		parts := make([]string, len(v.arr))
		for i, e := range v.arr {
			parts[i] = e.Encode()
		}
		return "[" + strings.Join(parts, ",") + "]"
	default:
		return strconv.FormatInt(v.num, 10)
	}
}

// Equal reports whether two values are structurally identical. Equality is
// defined over the canonical encoding: float comparison is bitwise
// (identical NaN bit patterns compare equal, deliberately not IEEE
// semantics), and integer variants with the same stored value compare equal
// regardless of declared width. This keeps hashing and diffing total,
// reflexive and deterministic, and makes the encode/decode round trip exact.
func (v Value) Equal(o Value) bool {
	return v.Encode() == o.Encode()
}

// String renders the value for human display. Unlike Encode, floats render
// as decimal numbers and strings render unquoted.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		if v.num != 0 {
			return "true"
		}
		return "false"
	case KindFloat:
		return strconv.FormatFloat(v.flt, 'g', -1, 64)
	case KindFloat32:
		return strconv.FormatFloat(v.flt, 'g', -1, 32)
	case KindString:
		return v.str
	case KindArray:
		parts := make([]string, len(v.arr))
		for i, e := range v.arr {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return strconv.FormatInt(v.num, 10)
	}
}

// MarshalJSON serializes the value as its canonical token.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Encode())
}

// UnmarshalJSON restores a value from its canonical token.
func (v *Value) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*v = DecodeToken(s)
	return nil
}

// DecodeToken reverses Encode. Bare decimal tokens in signed 64-bit range
// parse as integers; the "f32:" prefix restores a 32-bit float from its bit
// pattern; decimal tokens above the signed range restore a 64-bit float
// from its bit pattern; tokens with a decimal point or exponent parse as
// 64-bit floats; quoted tokens unescape to strings; bracketed tokens decode
// recursively as arrays. Anything else falls back to an opaque string.
func DecodeToken(s string) Value {
	switch s {
	case "null":
		return Null()
	case "true":
		return Bool(true)
	case "false":
		return Bool(false)
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Int(n)
	}
	if rest, ok := strings.CutPrefix(s, "f32:"); ok {
		if bits, err := strconv.ParseUint(rest, 10, 32); err == nil {
			return Float32(math.Float32frombits(uint32(bits)))
		}
	}
	if bits, err := strconv.ParseUint(s, 10, 64); err == nil {
		return Float(math.Float64frombits(bits))
	}
	if strings.ContainsAny(s, ".eE") && !strings.ContainsAny(s, `"[\`) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return Float(f)
		}
	}
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		return String(unescapeString(s[1 : len(s)-1]))
	}
	if len(s) >= 2 && strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		inner := s[1 : len(s)-1]
		if inner == "" {
			return Array([]Value{})
		}
		parts := splitTopLevel(inner)
		elems := make([]Value, len(parts))
		for i, p := range parts {
			elems[i] = DecodeToken(p)
		}
		return Array(elems)
	}
	return String(s)
}

// escapeString keeps printable ASCII as-is and escapes everything else so
// the token is a single unambiguous line of text.
func escapeString(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r == ' ' || (r > 0x20 && r < 0x7f) {
				b.WriteRune(r)
			} else if r > 0xffff {
				// Surrogate pair, as in JSON, so every escape is
				// exactly four hex digits.
				hi, lo := utf16.EncodeRune(r)
				fmt.Fprintf(&b, `\u%04x\u%04x`, hi, lo)
			} else {
				fmt.Fprintf(&b, `\u%04x`, r)
			}
		}
	}
	return b.String()
}

func unescapeString(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case '"':
			b.WriteByte('"')
		case '\\':
			b.WriteByte('\\')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case 'u':
			if i+4 < len(s) {
				if n, err := strconv.ParseUint(s[i+1:i+5], 16, 32); err == nil {
					r := rune(n)
					i += 4
					if utf16.IsSurrogate(r) && i+6 < len(s) && s[i+1] == '\\' && s[i+2] == 'u' {
						if n2, err := strconv.ParseUint(s[i+3:i+7], 16, 32); err == nil {
							if dec := utf16.DecodeRune(r, rune(n2)); dec != 0xfffd {
								r = dec
								i += 6
							}
						}
					}
					b.WriteRune(r)
					continue
				}
			}
			b.WriteString(`\u`)
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// splitTopLevel splits an array body at commas that are outside nested
// brackets and outside quoted strings.
func splitTopLevel(s string) []string {
	var parts []string
	depth := 0
	inString := false
	escaped := false
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}
