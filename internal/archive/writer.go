package archive

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ulikunitz/xz"
)

// Compression formats, named by their file suffix.
const (
	FormatTarXz = ".tar.xz"
	FormatTarGz = ".tar.gz"
)

// FormatFor returns the compression format implied by path.
func FormatFor(path string) (string, error) {
	switch {
	case strings.HasSuffix(path, FormatTarXz):
		return FormatTarXz, nil
	case strings.HasSuffix(path, FormatTarGz):
		return FormatTarGz, nil
	}
	return "", fmt.Errorf("unsupported archive format: %s", path)
}

// Writer writes a compressed tar stream. Every entry carries the same
// modification time so that archives of identical content are identical.
type Writer struct {
	tw      *tar.Writer
	comp    io.WriteCloser
	modTime time.Time
	dirs    map[string]bool
}

// NewWriter returns a Writer compressing to w in the given format.
func NewWriter(w io.Writer, format string, modTime time.Time) (*Writer, error) {
	var comp io.WriteCloser
	switch format {
	case FormatTarXz:
		xzw, err := xz.NewWriter(w)
		if err != nil {
			return nil, fmt.Errorf("xz writer: %w", err)
		}
		comp = xzw
	case FormatTarGz:
		comp = gzip.NewWriter(w)
	default:
		return nil, fmt.Errorf("unsupported archive format: %s", format)
	}
	return &Writer{
		tw:      tar.NewWriter(comp),
		comp:    comp,
		modTime: modTime.UTC().Truncate(time.Second),
		dirs:    make(map[string]bool),
	}, nil
}

// AddFile writes one regular file, creating header entries for any parent
// directories not yet written.
func (w *Writer) AddFile(name string, data []byte) error {
	name = strings.TrimPrefix(filepath.ToSlash(name), "/")
	if err := w.addParents(name); err != nil {
		return err
	}
	header := &tar.Header{
		Typeflag: tar.TypeReg,
		Name:     name,
		Mode:     0644,
		Size:     int64(len(data)),
		ModTime:  w.modTime,
	}
	if err := w.tw.WriteHeader(header); err != nil {
		return fmt.Errorf("write header %s: %w", name, err)
	}
	if _, err := w.tw.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func (w *Writer) addParents(name string) error {
	parts := strings.Split(name, "/")
	for i := 1; i < len(parts); i++ {
		dir := strings.Join(parts[:i], "/") + "/"
		if w.dirs[dir] {
			continue
		}
		header := &tar.Header{
			Typeflag: tar.TypeDir,
			Name:     dir,
			Mode:     0755,
			ModTime:  w.modTime,
		}
		if err := w.tw.WriteHeader(header); err != nil {
			return fmt.Errorf("write header %s: %w", dir, err)
		}
		w.dirs[dir] = true
	}
	return nil
}

// Close flushes the tar stream and the compressor. It does not close the
// underlying writer.
func (w *Writer) Close() error {
	if err := w.tw.Close(); err != nil {
		w.comp.Close()
		return fmt.Errorf("close tar: %w", err)
	}
	if err := w.comp.Close(); err != nil {
		return fmt.Errorf("close compressor: %w", err)
	}
	return nil
}

// Entry is one file to place in an archive.
type Entry struct {
	Name string
	Data []byte
}

// Create writes entries to a new archive at dstPath, picking the format
// from its suffix. If createParentDir is true, parent directories of
// dstPath are created.
func Create(dstPath string, entries []Entry, modTime time.Time, createParentDir bool) error {
	format, err := FormatFor(dstPath)
	if err != nil {
		return err
	}
	if createParentDir {
		if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
			return fmt.Errorf("failed to create parent directory: %w", err)
		}
	}

	outFile, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer outFile.Close()

	w, err := NewWriter(outFile, format, modTime)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := w.AddFile(e.Name, e.Data); err != nil {
			w.Close()
			return fmt.Errorf("failed to create archive: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return err
	}
	return outFile.Close()
}
