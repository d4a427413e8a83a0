package archive

import (
	"archive/tar"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

var fixedTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func sampleEntries() []Entry {
	return []Entry{
		{Name: "manifest.json", Data: []byte(`{"id":"x"}`)},
		{Name: "documents/a.xml", Data: []byte("<a/>")},
		{Name: "documents/b.xml", Data: []byte("<b/>")},
	}
}

func TestCreateAndList(t *testing.T) {
	for _, ext := range []string{FormatTarXz, FormatTarGz} {
		t.Run(ext, func(t *testing.T) {
			dst := filepath.Join(t.TempDir(), "out", "bundle"+ext)
			if err := Create(dst, sampleEntries(), fixedTime, true); err != nil {
				t.Fatalf("Create failed: %v", err)
			}

			names, err := List(dst)
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			want := []string{"manifest.json", "documents/a.xml", "documents/b.xml"}
			if !reflect.DeepEqual(names, want) {
				t.Errorf("List() = %v, want %v", names, want)
			}
		})
	}
}

func TestCreateNoParentDir(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "missing", "bundle.tar.xz")
	if err := Create(dst, sampleEntries(), fixedTime, false); err == nil {
		t.Error("expected error when parent directory does not exist")
	}
}

func TestCreateUnsupportedFormat(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "bundle.zip")
	if err := Create(dst, sampleEntries(), fixedTime, false); err == nil {
		t.Error("expected error for unsupported format")
	}
	if _, err := NewReader(dst); err == nil {
		t.Error("expected reader error for unsupported format")
	}
}

func TestWriterDirectoryHeaders(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "bundle.tar.xz")
	if err := Create(dst, sampleEntries(), fixedTime, false); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	var dirs []string
	err := IterateArchive(dst, func(h *tar.Header, _ io.Reader) (bool, error) {
		if h.Typeflag == tar.TypeDir {
			dirs = append(dirs, h.Name)
		}
		if !h.ModTime.Equal(fixedTime) {
			t.Errorf("%s: ModTime = %v, want %v", h.Name, h.ModTime, fixedTime)
		}
		return false, nil
	})
	if err != nil {
		t.Fatalf("Iterate failed: %v", err)
	}
	if !reflect.DeepEqual(dirs, []string{"documents/"}) {
		t.Errorf("directory entries = %v", dirs)
	}
}

func TestReproducible(t *testing.T) {
	var a, b bytes.Buffer
	for _, buf := range []*bytes.Buffer{&a, &b} {
		w, err := NewWriter(buf, FormatTarXz, fixedTime)
		if err != nil {
			t.Fatal(err)
		}
		for _, e := range sampleEntries() {
			if err := w.AddFile(e.Name, e.Data); err != nil {
				t.Fatal(err)
			}
		}
		if err := w.Close(); err != nil {
			t.Fatal(err)
		}
	}
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Error("identical input should produce identical archives")
	}
}

func TestReadFile(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "bundle.tar.gz")
	if err := Create(dst, sampleEntries(), fixedTime, false); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	data, err := ReadFile(dst, "documents/b.xml")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "<b/>" {
		t.Errorf("ReadFile() = %q", data)
	}

	if _, err := ReadFile(dst, "missing.xml"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestNewReaderErrors(t *testing.T) {
	tmp := t.TempDir()
	if _, err := NewReader(filepath.Join(tmp, "absent.tar.xz")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(tmp, "bad.tar.gz")
	if err := os.WriteFile(bad, []byte("not gzip"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewReader(bad); err == nil {
		t.Error("expected error for corrupt gzip")
	}
}
