package export

import (
	"archive/tar"
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/FocuswithJustin/digitalsee/core/corpus"
	"github.com/FocuswithJustin/digitalsee/core/search"
	"github.com/FocuswithJustin/digitalsee/internal/archive"
	"github.com/FocuswithJustin/digitalsee/internal/validation"
)

// Bundle layout.
const (
	ManifestName = "manifest.json"
	DocumentsDir = "documents"
)

// Manifest describes the contents of a bundle.
type Manifest struct {
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	Query     string          `json:"query"`
	Documents []ManifestEntry `json:"documents"`
}

// ManifestEntry describes one bundled document. Blake3 and Size describe
// the bundled bytes; SourceBlake3 is the digest of the corpus file.
type ManifestEntry struct {
	Name         string `json:"name"`
	Blake3       string `json:"blake3"`
	Size         int64  `json:"size"`
	SourceBlake3 string `json:"source_blake3"`
}

// NewManifest builds the manifest for docs without writing anything.
func NewManifest(docs []*corpus.Document, q search.Query, now time.Time) *Manifest {
	m := &Manifest{
		ID:        uuid.NewString(),
		CreatedAt: now.UTC().Truncate(time.Second),
		Query:     q.String(),
		Documents: make([]ManifestEntry, 0, len(docs)),
	}
	for _, doc := range docs {
		data := Render(doc)
		sum := blake3.Sum256(data)
		m.Documents = append(m.Documents, ManifestEntry{
			Name:         doc.Name,
			Blake3:       hex.EncodeToString(sum[:]),
			Size:         int64(len(data)),
			SourceBlake3: doc.Hash,
		})
	}
	return m
}

// WriteBundle writes docs and their manifest to w as a tar.xz stream.
func WriteBundle(w io.Writer, docs []*corpus.Document, q search.Query, now time.Time) (*Manifest, error) {
	return writeBundle(w, archive.FormatTarXz, docs, q, now)
}

func writeBundle(w io.Writer, format string, docs []*corpus.Document, q search.Query, now time.Time) (*Manifest, error) {
	m := NewManifest(docs, q, now)
	manifest, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}

	aw, err := archive.NewWriter(w, format, m.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := aw.AddFile(ManifestName, manifest); err != nil {
		aw.Close()
		return nil, err
	}
	for _, doc := range docs {
		if err := aw.AddFile(path.Join(DocumentsDir, doc.Name), Render(doc)); err != nil {
			aw.Close()
			return nil, err
		}
	}
	if err := aw.Close(); err != nil {
		return nil, err
	}
	return m, nil
}

// CreateBundle writes a bundle file at dst, compressed with xz or gzip
// according to its suffix.
func CreateBundle(dst string, docs []*corpus.Document, q search.Query, now time.Time) (*Manifest, error) {
	format, err := archive.FormatFor(dst)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	m, err := writeBundle(&buf, format, docs, q, now)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(dst, buf.Bytes(), 0644); err != nil {
		return nil, fmt.Errorf("write bundle: %w", err)
	}
	return m, nil
}

// ReadManifest reads the manifest of the bundle at src. The content must be
// compressed the way its suffix says.
func ReadManifest(src string) (*Manifest, error) {
	if err := checkBundle(src); err != nil {
		return nil, err
	}
	data, err := archive.ReadFile(src, ManifestName)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return &m, nil
}

func checkBundle(src string) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open bundle: %w", err)
	}
	defer f.Close()
	_, err = validation.ValidateFileType(f, src)
	return err
}

// Mismatch is a bundled document that does not agree with its manifest
// entry. Problem is "missing", "unlisted", "size" or "blake3".
type Mismatch struct {
	Name    string
	Problem string
}

// VerifyBundle checks every document in the bundle at src against the
// manifest and returns the manifest together with any mismatches, sorted
// by name.
func VerifyBundle(src string) (*Manifest, []Mismatch, error) {
	m, err := ReadManifest(src)
	if err != nil {
		return nil, nil, err
	}
	want := make(map[string]ManifestEntry, len(m.Documents))
	for _, e := range m.Documents {
		want[e.Name] = e
	}

	var mismatches []Mismatch
	seen := make(map[string]bool, len(want))
	prefix := DocumentsDir + "/"
	err = archive.IterateArchive(src, func(h *tar.Header, r io.Reader) (bool, error) {
		if h.Typeflag != tar.TypeReg || !strings.HasPrefix(h.Name, prefix) {
			return false, nil
		}
		name := strings.TrimPrefix(h.Name, prefix)
		entry, ok := want[name]
		if !ok {
			mismatches = append(mismatches, Mismatch{Name: name, Problem: "unlisted"})
			return false, nil
		}
		seen[name] = true

		hasher := blake3.New()
		n, err := io.Copy(hasher, r)
		if err != nil {
			return true, fmt.Errorf("read %s: %w", h.Name, err)
		}
		switch {
		case n != entry.Size:
			mismatches = append(mismatches, Mismatch{Name: name, Problem: "size"})
		case hex.EncodeToString(hasher.Sum(nil)) != entry.Blake3:
			mismatches = append(mismatches, Mismatch{Name: name, Problem: "blake3"})
		}
		return false, nil
	})
	if err != nil {
		return nil, nil, err
	}
	for name := range want {
		if !seen[name] {
			mismatches = append(mismatches, Mismatch{Name: name, Problem: "missing"})
		}
	}
	sort.Slice(mismatches, func(i, j int) bool { return mismatches[i].Name < mismatches[j].Name })
	return m, mismatches, nil
}
