package progress

import (
	"bytes"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// DecodeLine converts one raw output line to text. Trailing CR/LF is removed
// and ill-formed UTF-8 is replaced with U+FFFD, so titles and paths in
// arbitrary encodings never break parsing.
func DecodeLine(raw []byte) string {
	raw = bytes.TrimRight(raw, "\r\n")
	out, _, err := transform.Bytes(runes.ReplaceIllFormed(), raw)
	if err != nil {
		return string(bytes.ToValidUTF8(raw, []byte("\uFFFD")))
	}
	return string(out)
}
