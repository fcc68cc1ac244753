package export

import (
	"fmt"
	"strings"
	"unicode"
)

const bytesPerLine = 16

// EnvelopeAsm renders a raw envelope as a ca65-style .byte table
func EnvelopeAsm(label, comment string, raw []byte) string {
	var b strings.Builder

	if comment != "" {
		fmt.Fprintf(&b, "; %s\n", comment)
	}
	fmt.Fprintf(&b, "%s:\n", asmLabel(label))

	for start := 0; start < len(raw); start += bytesPerLine {
		end := start + bytesPerLine
		if end > len(raw) {
			end = len(raw)
		}
		parts := make([]string, 0, end-start)
		for _, v := range raw[start:end] {
			parts = append(parts, fmt.Sprintf("$%02x", v))
		}
		fmt.Fprintf(&b, "\t.byte %s\n", strings.Join(parts, ","))
	}
	return b.String()
}

// asmLabel turns an arbitrary name into a valid assembler label
func asmLabel(name string) string {
	var b strings.Builder
	for i, r := range name {
		switch {
		case r == '_' || unicode.IsLetter(r) && r < unicode.MaxASCII:
			b.WriteRune(r)
		case unicode.IsDigit(r) && i > 0:
			b.WriteRune(r)
		case unicode.IsDigit(r):
			b.WriteRune('_')
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "tempo_envelope"
	}
	return b.String()
}
