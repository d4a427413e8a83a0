// Package corpus loads a directory of TEI files into an immutable snapshot
// holding the parsed documents, the per-file failures and the author index.
package corpus

import (
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"

	"github.com/FocuswithJustin/digitalsee/core/errors"
	"github.com/FocuswithJustin/digitalsee/core/tei"
	"github.com/FocuswithJustin/digitalsee/core/xml"
)

// Extension is the only file extension the loader picks up.
const Extension = ".xml"

// Document is one successfully parsed corpus file.
type Document struct {
	// Name is the base filename and the document's identity.
	Name string
	Path string
	// Hash is the hex BLAKE3 digest of the file as read.
	Hash string
	Size int64
	Tree *xml.Document
	Meta *tei.Metadata
}

// LoadResult is the outcome for one discovered file: exactly one of
// Document and Err is set.
type LoadResult struct {
	Name     string
	Path     string
	Document *Document
	Err      *errors.ParseError
}

// OK reports whether the file parsed.
func (r LoadResult) OK() bool {
	return r.Document != nil
}

// Discover lists the *.xml files directly inside dir, sorted by name.
// It fails with a MissingCorpusError when dir is absent, is not a
// directory, or holds no matching files.
func Discover(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &errors.MissingCorpusError{Dir: dir, Reason: errors.ReasonNotExist, Err: err}
		}
		return nil, errors.NewIO("stat", dir, err)
	}
	if !info.IsDir() {
		return nil, errors.NewMissingCorpus(dir, errors.ReasonNotDir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.NewIO("read directory", dir, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != Extension {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	if len(paths) == 0 {
		return nil, errors.NewMissingCorpus(dir, errors.ReasonNoXMLFiles)
	}
	return paths, nil
}

// Load discovers and parses every file in dir. Per-file failures are
// reported in the results; the returned error is only set when discovery
// itself fails.
func Load(dir string) ([]LoadResult, error) {
	paths, err := Discover(dir)
	if err != nil {
		return nil, err
	}

	results := make([]LoadResult, 0, len(paths))
	for _, path := range paths {
		results = append(results, LoadFile(path))
	}
	return results, nil
}

// LoadFile reads, parses and extracts one file.
func LoadFile(path string) LoadResult {
	name := filepath.Base(path)
	result := LoadResult{Name: name, Path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		result.Err = errors.NewParse("XML", name, err)
		return result
	}

	doc, err := NewDocument(name, path, data)
	if err != nil {
		result.Err = errors.NewParse("XML", name, err)
		return result
	}
	result.Document = doc
	return result
}

// NewDocument parses data and runs the extractor over it.
func NewDocument(name, path string, data []byte) (*Document, error) {
	tree, err := xml.Parse(data)
	if err != nil {
		return nil, err
	}
	sum := blake3.Sum256(data)
	return &Document{
		Name: name,
		Path: path,
		Hash: hex.EncodeToString(sum[:]),
		Size: int64(len(data)),
		Tree: tree,
		Meta: tei.Extract(tree),
	}, nil
}

// Partition splits results into parsed documents and failures, both in
// result order.
func Partition(results []LoadResult) ([]*Document, []*errors.ParseError) {
	var docs []*Document
	var failures []*errors.ParseError
	for _, r := range results {
		if r.OK() {
			docs = append(docs, r.Document)
		} else if r.Err != nil {
			failures = append(failures, r.Err)
		}
	}
	return docs, failures
}
