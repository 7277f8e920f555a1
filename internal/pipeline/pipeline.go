// Package pipeline reads raw report documents from files or stdin so
// commands can sit at either end of a shell pipe.
package pipeline

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// MaxDocumentBytes caps a single input document.
const MaxDocumentBytes = 256 << 20

// Source is one raw input document and where it came from.
type Source struct {
	Name string // file path, or "stdin"
	Raw  []byte
}

// StdinName labels documents read from standard input.
const StdinName = "stdin"

// IsStdin reports whether path names standard input.
func IsStdin(path string) bool {
	return path == "" || path == "-"
}

// ReadSource reads one document from path, or from stdin when path is "" or "-".
// Surrounding whitespace is trimmed; a whitespace-only document reads as empty.
func ReadSource(path string, stdin io.Reader) (Source, error) {
	if IsStdin(path) {
		raw, err := readAll(stdin)
		if err != nil {
			return Source{}, fmt.Errorf("reading stdin: %w", err)
		}
		return Source{Name: StdinName, Raw: raw}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Source{}, fmt.Errorf("opening input: %w", err)
	}
	defer f.Close()
	raw, err := readAll(f)
	if err != nil {
		return Source{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return Source{Name: path, Raw: raw}, nil
}

func readAll(r io.Reader) ([]byte, error) {
	raw, err := io.ReadAll(io.LimitReader(r, MaxDocumentBytes+1))
	if err != nil {
		return nil, err
	}
	if len(raw) > MaxDocumentBytes {
		return nil, fmt.Errorf("document exceeds %d bytes", MaxDocumentBytes)
	}
	return []byte(strings.TrimSpace(string(raw))), nil
}

// IsTTY returns true if f is a terminal (not a pipe or file).
func IsTTY(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
