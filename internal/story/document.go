package story

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Document is a story source loaded from disk. It is never mutated after load.
type Document struct {
	Path string
	Text string
}

// LoadError reports a document that could not be read or decoded.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load story %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

var (
	bomUTF16BE = []byte{0xFE, 0xFF}
	bomUTF16LE = []byte{0xFF, 0xFE}
)

// LoadDocument reads a story file, strips a leading byte-order mark and
// decodes it to UTF-8. UTF-16 input is accepted when it carries a BOM.
func LoadDocument(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	text, err := DecodeDocument(raw)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	return &Document{Path: path, Text: text}, nil
}

// DecodeDocument converts raw document bytes to a string without its BOM.
func DecodeDocument(raw []byte) (string, error) {
	isUTF16 := bytes.HasPrefix(raw, bomUTF16BE) || bytes.HasPrefix(raw, bomUTF16LE)
	if !isUTF16 && !utf8.Valid(raw) {
		return "", fmt.Errorf("document is not valid UTF-8")
	}

	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(raw), decoder))
	if err != nil {
		return "", fmt.Errorf("failed to decode document: %w", err)
	}

	return string(decoded), nil
}
