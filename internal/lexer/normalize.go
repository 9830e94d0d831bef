package lexer

import (
	"bytes"

	"golang.org/x/text/unicode/norm"
)

// bomUTF8 is the UTF-8 Byte Order Mark
var bomUTF8 = []byte{0xEF, 0xBB, 0xBF}

// Normalize prepares raw source bytes for lexing: strips a leading UTF-8 BOM
// and applies Unicode NFC normalization so that encoding variations of the
// same identifier produce identical token streams.
func Normalize(src []byte) []byte {
	src = bytes.TrimPrefix(src, bomUTF8)

	if !norm.NFC.IsNormal(src) {
		src = norm.NFC.Bytes(src)
	}

	return src
}
