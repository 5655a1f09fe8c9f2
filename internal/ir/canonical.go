package ir

import (
	"bytes"
	"slices"
	"strconv"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// node is the canonical JSON tree that references encode into.
// There is no null and no float: absent optional fields are omitted.
type node interface {
	writeCanonical(buf *bytes.Buffer)
}

type strNode string

type boolNode bool

type intNode int64

type listNode []node

type objNode map[string]node

// Canonical is implemented by every reference variant.
type Canonical interface {
	canonical() objNode
}

// MarshalCanonical produces RFC 8785 canonical JSON for a reference.
// CRITICAL: This is the ONLY serialization used for Key computation.
//
// Differences from encoding/json:
//  1. Object keys sorted by UTF-16 code units (not UTF-8 bytes)
//  2. No HTML escaping, U+2028/U+2029 written literally
//  3. Strings are NFC normalized
func MarshalCanonical(v Canonical) []byte {
	var buf bytes.Buffer
	v.canonical().writeCanonical(&buf)
	return buf.Bytes()
}

func (s strNode) writeCanonical(buf *bytes.Buffer) {
	writeCanonicalString(buf, string(s))
}

func (b boolNode) writeCanonical(buf *bytes.Buffer) {
	if b {
		buf.WriteString("true")
		return
	}
	buf.WriteString("false")
}

func (n intNode) writeCanonical(buf *bytes.Buffer) {
	buf.WriteString(strconv.FormatInt(int64(n), 10))
}

func (l listNode) writeCanonical(buf *bytes.Buffer) {
	buf.WriteByte('[')
	for i, elem := range l {
		if i > 0 {
			buf.WriteByte(',')
		}
		elem.writeCanonical(buf)
	}
	buf.WriteByte(']')
}

func (o objNode) writeCanonical(buf *bytes.Buffer) {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeCanonicalString(buf, k)
		buf.WriteByte(':')
		o[k].writeCanonical(buf)
	}
	buf.WriteByte('}')
}

// set stores v under key unless v is nil; used for optional fields.
func (o objNode) set(key string, v node) {
	if v != nil {
		o[key] = v
	}
}

// writeCanonicalString escapes only quote, backslash and control
// characters, as RFC 8785 requires.
func writeCanonicalString(buf *bytes.Buffer, s string) {
	s = norm.NFC.String(s)
	buf.WriteByte('"')
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case r == '"':
			buf.WriteString(`\"`)
		case r == '\\':
			buf.WriteString(`\\`)
		case r == '\b':
			buf.WriteString(`\b`)
		case r == '\f':
			buf.WriteString(`\f`)
		case r == '\n':
			buf.WriteString(`\n`)
		case r == '\r':
			buf.WriteString(`\r`)
		case r == '\t':
			buf.WriteString(`\t`)
		case r < 0x20:
			buf.WriteString(`\u00`)
			buf.WriteByte(hexDigits[r>>4])
			buf.WriteByte(hexDigits[r&0xf])
		default:
			buf.WriteString(s[i : i+size])
		}
		i += size
	}
	buf.WriteByte('"')
}

const hexDigits = "0123456789abcdef"

// compareUTF16 orders strings by UTF-16 code units.
// Go's native string order is UTF-8 and differs above U+FFFF.
func compareUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	return slices.Compare(a16, b16)
}
