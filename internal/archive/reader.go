// Package archive reads and writes the compressed tar archives used for
// document bundles. It supports tar.xz and tar.gz.
package archive

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"

	"github.com/ulikunitz/xz"
)

// Reader is a tar reader over a decompressed archive file.
type Reader struct {
	*tar.Reader
	file         *os.File
	decompressor io.Closer
}

// NewReader opens the archive at path, choosing the decompressor from its
// suffix.
func NewReader(path string) (*Reader, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	var reader io.Reader = f
	var decompressor io.Closer

	switch format {
	case FormatTarXz:
		xzr, err := xz.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("xz reader: %w", err)
		}
		reader = xzr
	case FormatTarGz:
		gzr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		reader = gzr
		decompressor = gzr
	}

	return &Reader{
		Reader:       tar.NewReader(reader),
		file:         f,
		decompressor: decompressor,
	}, nil
}

// Close releases the decompressor and the file. The first error wins.
func (r *Reader) Close() error {
	var err error
	if r.decompressor != nil {
		err = r.decompressor.Close()
	}
	if ferr := r.file.Close(); err == nil {
		err = ferr
	}
	return err
}

// Visitor is called for each entry. Returning stop ends the walk early.
type Visitor func(header *tar.Header, content io.Reader) (stop bool, err error)

// Iterate calls visitor for every entry in archive order.
func (r *Reader) Iterate(visitor Visitor) error {
	for {
		header, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read header: %w", err)
		}

		stop, err := visitor(header, r)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
}

// IterateArchive opens path and walks it with visitor.
func IterateArchive(path string, visitor Visitor) error {
	r, err := NewReader(path)
	if err != nil {
		return err
	}
	defer r.Close()
	return r.Iterate(visitor)
}

// ReadFile returns the content of the regular file stored as name.
func ReadFile(archivePath, name string) ([]byte, error) {
	var (
		content []byte
		found   bool
	)
	err := IterateArchive(archivePath, func(header *tar.Header, r io.Reader) (bool, error) {
		if header.Typeflag != tar.TypeReg || header.Name != name {
			return false, nil
		}
		found = true
		var err error
		content, err = io.ReadAll(r)
		return true, err
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%s: no entry %s", archivePath, name)
	}
	return content, nil
}

// List returns the names of the regular files in the archive, in archive
// order.
func List(archivePath string) ([]string, error) {
	var names []string
	err := IterateArchive(archivePath, func(header *tar.Header, _ io.Reader) (bool, error) {
		if header.Typeflag == tar.TypeReg {
			names = append(names, header.Name)
		}
		return false, nil
	})
	return names, err
}
