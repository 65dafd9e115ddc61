// Package textrecovery implements spec.md §4.B: sample the first 64 KiB
// of a file, infer whether it is already valid UTF-8, and otherwise
// transcode it to a temporary UTF-8 file, falling back to lossy
// replacement-character substitution when strict decoding fails.
// Grounded on the teacher's encoding-aware stack (golang.org/x/text rides
// along in the teacher's go.mod for exactly this kind of non-UTF-8 text
// handling, though no teacher file exercises it directly) combined with
// pkg/csv/infer_schema.go's pattern of sampling a bounded file prefix
// before committing to a parse strategy.
package textrecovery

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const sampleSize = 64 * 1024

// Result describes the outcome of a text-recovery attempt.
type Result struct {
	Path     string // path to read from: the original, or a temp file
	Encoding string // empty for binary formats or already-UTF-8 input
	Lossy    bool   // true if replacement characters were substituted
}

// candidateEncodings are tried, in order, against the 64 KiB sample when
// the input is not already valid UTF-8. UTF-16 variants are checked via
// their byte-order-mark; Windows-1252 is the fallback for single-byte
// Western European text, the most common mojibake source for CSV/TSV
// exports.
var candidateEncodings = []struct {
	name string
	enc  func() transform.Transformer
}{
	{"utf-16le", func() transform.Transformer { return unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder() }},
	{"utf-16be", func() transform.Transformer { return unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder() }},
	{"windows-1252", func() transform.Transformer { return charmap.Windows1252.NewDecoder() }},
}

// Recover inspects path and, if binary is false, ensures its content is
// valid UTF-8, per spec.md §4.B. Binary formats are passed through
// untouched with no encoding reported.
func Recover(path string, binary bool) (Result, error) {
	if binary {
		return Result{Path: path}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("textrecovery: failed to open %s: %w", path, err)
	}
	defer f.Close()

	sample := make([]byte, sampleSize)
	n, readErr := f.Read(sample)
	if readErr != nil && readErr != io.EOF {
		return Result{}, fmt.Errorf("textrecovery: failed to sample %s: %w", path, readErr)
	}
	sample = sample[:n]

	if utf8.Valid(sample) {
		return Result{Path: path}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("textrecovery: failed to read %s: %w", path, err)
	}

	for _, cand := range candidateEncodings {
		decoded, err := transform.Bytes(cand.enc(), data)
		if err == nil && utf8.Valid(decoded) {
			tmp, werr := writeTemp(decoded)
			if werr != nil {
				return Result{}, werr
			}
			return Result{Path: tmp, Encoding: cand.name, Lossy: false}, nil
		}
	}

	// Strict decode failed for every candidate; fall back to a lossy
	// replacement-character pass using the best-guess encoding
	// (windows-1252 never itself errors, since every byte maps to some
	// rune), then mark the result lossy per spec.md §4.B.
	decoded, _ := transform.Bytes(charmap.Windows1252.NewDecoder(), data)
	cleaned := bytes.ToValidUTF8(decoded, string(utf8.RuneError))
	tmp, werr := writeTemp(cleaned)
	if werr != nil {
		return Result{}, werr
	}
	return Result{Path: tmp, Encoding: "windows-1252", Lossy: true}, nil
}

func writeTemp(data []byte) (string, error) {
	tmp, err := os.CreateTemp("", "cleanroom-recovered-*.txt")
	if err != nil {
		return "", fmt.Errorf("textrecovery: failed to create temp file: %w", err)
	}
	defer tmp.Close()
	if _, err := tmp.Write(data); err != nil {
		return "", fmt.Errorf("textrecovery: failed to write temp file: %w", err)
	}
	return tmp.Name(), nil
}

// Cleanup removes a temporary file produced by Recover, bounding its
// lifetime to the stage that consumes it, per spec.md §4.B.
func Cleanup(result Result, originalPath string) {
	if result.Path != originalPath {
		_ = os.Remove(result.Path)
	}
}
