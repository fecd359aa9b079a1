// Package container reads and writes collections of documents: a single JSON
// file, a directory of JSON files, or a zip or compressed tar archive of them.
// Input and output map one-to-one by entry name.
package container

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cognicore/concord/pkg/concord/internalerr"
	"github.com/cognicore/concord/pkg/concord/schema"
)

// Kind is the on-disk shape of a container.
type Kind int

const (
	KindFile Kind = iota
	KindDir
	KindArchive
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDir:
		return "dir"
	case KindArchive:
		return "archive"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Archive suffixes recognised by KindOf.
const (
	SuffixTarXZ = ".tar.xz"
	SuffixTarGZ = ".tar.gz"
	SuffixZip   = ".zip"
)

// Entry is one document of a container.
type Entry struct {
	Name     string
	Document *schema.Document
}

// KindOf classifies path. An existing directory is KindDir; otherwise the
// suffix decides.
func KindOf(path string) (Kind, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return KindDir, nil
	}
	switch {
	case strings.HasSuffix(path, SuffixTarXZ), strings.HasSuffix(path, SuffixTarGZ), strings.HasSuffix(path, SuffixZip):
		return KindArchive, nil
	case strings.HasSuffix(path, ".json"):
		return KindFile, nil
	}
	return 0, &internalerr.ValidationError{Field: "container", Message: "unsupported container: " + path}
}

// DefaultOutput derives the output path for an input path: the stem gets an
// ".annotated" infix before the extension.
func DefaultOutput(input string) string {
	clean := filepath.Clean(input)
	for _, ext := range []string{SuffixTarXZ, SuffixTarGZ, SuffixZip, ".json"} {
		if strings.HasSuffix(clean, ext) {
			return strings.TrimSuffix(clean, ext) + ".annotated" + ext
		}
	}
	return clean + ".annotated"
}

// Decode parses one document.
func Decode(data []byte) (*schema.Document, error) {
	var doc schema.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.ID == "" {
		return nil, internalerr.NewValidation("id", "document has no id")
	}
	return &doc, nil
}

// Encode renders a document as indented JSON.
func Encode(doc *schema.Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReadFile loads a single-document container.
func ReadFile(path string) (*schema.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return doc, nil
}

// WriteFile writes a single document through a temporary file that is
// renamed into place, so readers never see a partial document.
func WriteFile(path string, doc *schema.Document) error {
	data, err := Encode(doc)
	if err != nil {
		return err
	}
	return writeAtomic(path, data)
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return err
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return err
	}
	return nil
}
