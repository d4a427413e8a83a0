package corpus

import (
	"sort"
	"time"

	"github.com/FocuswithJustin/digitalsee/core/errors"
	"github.com/FocuswithJustin/digitalsee/core/tei"
)

// Snapshot is the context for one invocation: the parsed documents, the
// files that failed, the corpus-wide values and the author index. A
// snapshot is never modified after it is built, so it can be shared by
// concurrent readers.
type Snapshot struct {
	Dir       string
	Documents []*Document
	Failures  []*errors.ParseError
	Values    Values
	Index     *Index
	LoadedAt  time.Time

	byName map[string]*Document
}

// Open loads dir and builds a snapshot from it.
func Open(dir string) (*Snapshot, error) {
	results, err := Load(dir)
	if err != nil {
		return nil, err
	}
	return NewSnapshot(dir, results)
}

// NewSnapshot builds a snapshot from load results. It fails with an
// AllFilesInvalidError when no result parsed.
func NewSnapshot(dir string, results []LoadResult) (*Snapshot, error) {
	docs, failures := Partition(results)
	if len(docs) == 0 {
		return nil, &errors.AllFilesInvalidError{Dir: dir, Failures: failures}
	}

	sort.SliceStable(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	byName := make(map[string]*Document, len(docs))
	for _, doc := range docs {
		byName[doc.Name] = doc
	}

	return &Snapshot{
		Dir:       dir,
		Documents: docs,
		Failures:  failures,
		Values:    CollectValues(docs),
		Index:     BuildIndex(docs),
		LoadedAt:  time.Now(),
		byName:    byName,
	}, nil
}

// Document looks up a document by file name.
func (s *Snapshot) Document(name string) (*Document, error) {
	doc, ok := s.byName[name]
	if !ok {
		return nil, errors.NewNotFound("document", name)
	}
	return doc, nil
}

// Facets holds the sorted values offered for selection.
type Facets struct {
	// Author is the author the lists were narrowed to, empty when they are
	// corpus-wide.
	Author   string   `json:"author,omitempty"`
	Authors  []string `json:"authors"`
	Places   []string `json:"places"`
	Keywords []string `json:"keywords"`
}

// Facets returns the selectable values. With a known author, places and
// keywords are narrowed to that author's correlations; otherwise they are
// the corpus-wide lists. Authors are always corpus-wide.
func (s *Snapshot) Facets(author string) Facets {
	f := Facets{
		Authors:  s.Values.Authors.Sorted(),
		Places:   s.Values.Places.Sorted(),
		Keywords: s.Values.Keywords.Sorted(),
	}
	if author == "" {
		return f
	}
	places, okPlaces := s.Index.PlacesFor(author)
	keywords, okKeywords := s.Index.KeywordsFor(author)
	if okPlaces && okKeywords {
		f.Author = author
		f.Places = places
		f.Keywords = keywords
	}
	return f
}

// Detail is the presentation view of one document.
type Detail struct {
	Name       string                  `json:"name"`
	Hash       string                  `json:"blake3"`
	Size       int64                   `json:"size"`
	Header     tei.Header              `json:"header"`
	Commentary []tei.CommentarySection `json:"commentary"`
	Editions   []tei.EditionSection    `json:"editions"`
	Places     []string                `json:"places"`
	Keywords   []string                `json:"keywords"`
}

// Detail assembles the view of doc. When author is set, the associated
// places and keywords come from that author's correlations; otherwise they
// are the document's own.
func (s *Snapshot) Detail(doc *Document, author string) Detail {
	meta := doc.metadata()
	d := Detail{
		Name:       doc.Name,
		Hash:       doc.Hash,
		Size:       doc.Size,
		Header:     meta.Header,
		Commentary: meta.Commentary,
		Editions:   meta.Editions,
	}
	if author != "" {
		d.Places, _ = s.Index.PlacesFor(author)
		d.Keywords, _ = s.Index.KeywordsFor(author)
		if d.Places == nil {
			d.Places = []string{}
		}
		if d.Keywords == nil {
			d.Keywords = []string{}
		}
		return d
	}
	d.Places = meta.Places.Sorted()
	d.Keywords = meta.Keywords.Sorted()
	return d
}
