package container

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/ulikunitz/xz"
)

// archiveReader wraps a tar.Reader with decompression for .tar.xz and .tar.gz.
type archiveReader struct {
	*tar.Reader
	file         *os.File
	decompressor io.Closer
}

func openArchive(path string) (*archiveReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	var reader io.Reader
	var decompressor io.Closer
	switch {
	case strings.HasSuffix(path, SuffixTarXZ):
		xzr, err := xz.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("xz reader: %w", err)
		}
		reader = xzr
	case strings.HasSuffix(path, SuffixTarGZ):
		gzr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		reader = gzr
		decompressor = gzr
	default:
		f.Close()
		return nil, fmt.Errorf("unsupported archive format: %s", path)
	}
	return &archiveReader{Reader: tar.NewReader(reader), file: f, decompressor: decompressor}, nil
}

func (r *archiveReader) Close() error {
	var first error
	if r.decompressor != nil {
		first = r.decompressor.Close()
	}
	if err := r.file.Close(); err != nil && first == nil {
		first = err
	}
	return first
}

// iterate calls visit for every regular .json entry.
func (r *archiveReader) iterate(visit func(name string, content io.Reader) error) error {
	for {
		header, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read header: %w", err)
		}
		if header.Typeflag != tar.TypeReg || !strings.HasSuffix(header.Name, ".json") {
			continue
		}
		if err := visit(header.Name, r); err != nil {
			return err
		}
	}
}

// iterateZip calls visit for every regular .json entry of a zip archive, in
// central directory order.
func iterateZip(path string, visit func(name string, content io.Reader) error) error {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer zr.Close()
	for _, f := range zr.File {
		if !f.Mode().IsRegular() || !strings.HasSuffix(f.Name, ".json") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("open %s: %w", f.Name, err)
		}
		err = visit(f.Name, rc)
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func sortedNames(entries map[string][]byte) []string {
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func writeZip(w io.Writer, entries map[string][]byte) error {
	zw := zip.NewWriter(w)
	now := time.Now()
	for _, name := range sortedNames(entries) {
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: now})
		if err != nil {
			return err
		}
		if _, err := fw.Write(entries[name]); err != nil {
			return err
		}
	}
	return zw.Close()
}

// writeArchive writes entries, sorted by name, as a zip or compressed tar
// stream chosen by the suffix of path.
func writeArchive(w io.Writer, path string, entries map[string][]byte) error {
	if strings.HasSuffix(path, SuffixZip) {
		return writeZip(w, entries)
	}
	var (
		out io.WriteCloser
		err error
	)
	switch {
	case strings.HasSuffix(path, SuffixTarXZ):
		out, err = xz.NewWriter(w)
	case strings.HasSuffix(path, SuffixTarGZ):
		out = gzip.NewWriter(w)
	default:
		return fmt.Errorf("unsupported archive format: %s", path)
	}
	if err != nil {
		return fmt.Errorf("xz writer: %w", err)
	}

	tw := tar.NewWriter(out)
	now := time.Now()
	for _, name := range sortedNames(entries) {
		data := entries[name]
		hdr := &tar.Header{
			Name:     name,
			Mode:     0o644,
			Size:     int64(len(data)),
			ModTime:  now,
			Typeflag: tar.TypeReg,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if _, err := tw.Write(data); err != nil {
			return err
		}
	}
	if err := tw.Close(); err != nil {
		return err
	}
	return out.Close()
}
