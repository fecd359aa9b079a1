package container

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Visit receives each entry of a container. A decode failure is passed as
// err with a nil document so the caller can record it and continue.
type Visit func(name string, entry *Entry, err error) error

// Walk visits every document in the container at path, in name order for
// directories and in stream order for archives.
func Walk(path string, visit Visit) error {
	kind, err := KindOf(path)
	if err != nil {
		return err
	}
	switch kind {
	case KindFile:
		doc, err := ReadFile(path)
		name := filepath.Base(path)
		if err != nil {
			return visit(name, nil, err)
		}
		return visit(name, &Entry{Name: name, Document: doc}, nil)

	case KindDir:
		names, err := jsonFiles(path)
		if err != nil {
			return err
		}
		for _, name := range names {
			doc, err := ReadFile(filepath.Join(path, name))
			var entry *Entry
			if err == nil {
				entry = &Entry{Name: name, Document: doc}
			}
			if verr := visit(name, entry, err); verr != nil {
				return verr
			}
		}
		return nil

	default:
		each := func(name string, content io.Reader) error {
			data, err := io.ReadAll(content)
			if err != nil {
				return fmt.Errorf("read %s: %w", name, err)
			}
			doc, err := Decode(data)
			if err != nil {
				return visit(name, nil, fmt.Errorf("decode %s: %w", name, err))
			}
			return visit(name, &Entry{Name: name, Document: doc}, nil)
		}
		if strings.HasSuffix(path, SuffixZip) {
			return iterateZip(path, each)
		}
		r, err := openArchive(path)
		if err != nil {
			return err
		}
		defer r.Close()
		return r.iterate(each)
	}
}

// ReadAll loads every document. The first decode failure aborts.
func ReadAll(path string) ([]Entry, error) {
	var out []Entry
	err := Walk(path, func(name string, e *Entry, err error) error {
		if err != nil {
			return err
		}
		out = append(out, *e)
		return nil
	})
	return out, err
}

func jsonFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Sink collects output documents. Only documents passed to Put are written;
// a failed document simply never reaches the sink. Put is safe for
// concurrent use.
type Sink struct {
	path string
	kind Kind

	mu      sync.Mutex
	pending map[string][]byte
	written int
}

// NewSink prepares output at path with the given kind.
func NewSink(path string, kind Kind) (*Sink, error) {
	if kind == KindDir {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, err
		}
	}
	return &Sink{path: path, kind: kind, pending: make(map[string][]byte)}, nil
}

// Put writes one document. Files and directory entries are renamed into place
// immediately; archive entries are buffered until Commit.
func (s *Sink) Put(e Entry) error {
	data, err := Encode(e.Document)
	if err != nil {
		return fmt.Errorf("encode %s: %w", e.Name, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.kind {
	case KindFile:
		if err := writeAtomic(s.path, data); err != nil {
			return err
		}
	case KindDir:
		if err := writeAtomic(filepath.Join(s.path, filepath.Base(e.Name)), data); err != nil {
			return err
		}
	default:
		s.pending[e.Name] = data
	}
	s.written++
	return nil
}

// Written reports how many documents reached the sink.
func (s *Sink) Written() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written
}

// Commit finishes the output. For archives the whole stream is written to a
// temporary file and renamed over path.
func (s *Sink) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.kind != KindArchive {
		return nil
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if err := writeArchive(tmp, s.path, s.pending); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return err
	}
	return os.Rename(name, s.path)
}
