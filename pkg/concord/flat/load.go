package flat

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// LoadJSONL reads a flat annotation stream, one sentence record per line.
// Unlike a best-effort feed reader, a malformed line is an error: skipping it
// would shift every following record onto the wrong sentence.
func LoadJSONL(path string) ([]*Sentence, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open stream %s: %w", path, err)
	}
	defer f.Close()
	return ReadJSONL(f)
}

// ReadJSONL is LoadJSONL over a reader.
func ReadJSONL(r io.Reader) ([]*Sentence, error) {
	var sents []*Sentence
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var s Sentence
		if err := json.Unmarshal([]byte(text), &s); err != nil {
			return nil, fmt.Errorf("stream line %d: %w", line, err)
		}
		sents = append(sents, &s)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read stream: %w", err)
	}
	return sents, nil
}

// WriteJSONL writes sentences one per line.
func WriteJSONL(w io.Writer, sents []*Sentence) error {
	enc := json.NewEncoder(w)
	for i, s := range sents {
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("encode sentence %d: %w", i, err)
		}
	}
	return nil
}

// Load reads a whole flat document (sentences and coreference chains) from a
// JSON file. Files ending in .jsonl are read as a bare sentence stream.
func Load(path string) (*Document, error) {
	if strings.HasSuffix(path, ".jsonl") {
		sents, err := LoadJSONL(path)
		if err != nil {
			return nil, err
		}
		return &Document{Sentences: sents}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read flat document %s: %w", path, err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse flat document %s: %w", path, err)
	}
	return &doc, nil
}
