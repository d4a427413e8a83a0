// Package export writes matched documents out of the corpus: a single
// pretty-printed document, a compressed bundle with a manifest, or a
// SQLite catalog of documents and correlations.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/FocuswithJustin/digitalsee/core/corpus"
	"github.com/FocuswithJustin/digitalsee/internal/validation"
)

// DefaultPrefix is prepended to the file name of an exported document.
const DefaultPrefix = "matched_"

// Name returns the download name of doc.
func Name(prefix string, doc *corpus.Document) string {
	return prefix + doc.Name
}

// Render returns the UTF-8 serialization of doc with an XML declaration.
func Render(doc *corpus.Document) []byte {
	return doc.Tree.Serialize()
}

// WriteDocument writes the serialization of doc to w.
func WriteDocument(w io.Writer, doc *corpus.Document) (int64, error) {
	n, err := w.Write(Render(doc))
	return int64(n), err
}

// WriteFile writes doc into dir under its prefixed name and returns the
// written path.
func WriteFile(dir, prefix string, doc *corpus.Document) (string, error) {
	name := Name(prefix, doc)
	if err := validation.ValidateFilename(name); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, Render(doc), 0644); err != nil {
		return "", fmt.Errorf("export %s: %w", doc.Name, err)
	}
	return path, nil
}
