package loc

import (
	"bytes"
)

// ///////////////////////////////////////////////
// Comment Heuristics
// ///////////////////////////////////////////////

// Stripper removes comment text from file content before lines are counted.
// It must be a pure function of its input.
type Stripper func(content []byte) []byte

// CommentPrefixes are the single-line comment markers recognized at column 0.
// Indented occurrences are not comments to the counter.
var CommentPrefixes = [][]byte{
	[]byte("#"),
	[]byte("//"),
	[]byte("--"),
	[]byte("@REM"),
}

var (
	blockOpen  = []byte("/*")
	blockClose = []byte("*/")
)

// StripBlockComments removes every "/* ... */" span, matching each opener to
// the nearest following closer across line boundaries. It is applied to every
// file regardless of language, so it also strips such spans from languages
// that have no block comments. An opener with no closer is left in place.
//
// This is a heuristic, not a parser. Its output feeds a published total and
// must stay stable; do not teach it about strings or nesting.
func StripBlockComments(content []byte) []byte {
	start := bytes.Index(content, blockOpen)
	if start < 0 {
		return content
	}

	out := make([]byte, 0, len(content))
	rest := content
	for start >= 0 {
		end := bytes.Index(rest[start+len(blockOpen):], blockClose)
		if end < 0 {
			break
		}
		out = append(out, rest[:start]...)
		rest = rest[start+len(blockOpen)+end+len(blockClose):]
		start = bytes.Index(rest, blockOpen)
	}
	return append(out, rest...)
}

// CountLines applies strip to content, splits the result on '\n' and counts
// the lines that are neither zero-length nor start with a [CommentPrefixes]
// marker. Whitespace-only lines and a lone '\r' count as code. A nil strip
// uses [StripBlockComments].
func CountLines(content []byte, strip Stripper) int {
	if strip == nil {
		strip = StripBlockComments
	}
	text := strip(content)

	count := 0
	for len(text) > 0 {
		var line []byte
		if i := bytes.IndexByte(text, '\n'); i >= 0 {
			line, text = text[:i], text[i+1:]
		} else {
			line, text = text, nil
		}
		if len(line) == 0 || isCommentLine(line) {
			continue
		}
		count++
	}
	return count
}

// isCommentLine reports whether line begins with a single-line comment prefix.
func isCommentLine(line []byte) bool {
	for _, p := range CommentPrefixes {
		if bytes.HasPrefix(line, p) {
			return true
		}
	}
	return false
}
