package corpus

import "github.com/FocuswithJustin/digitalsee/core/tei"

// Index correlates each bibliographic author with the places and keywords
// of every document that credits them. It is derived data and is rebuilt
// with every snapshot.
type Index struct {
	AuthorPlaces   map[string]tei.Set
	AuthorKeywords map[string]tei.Set
}

// BuildIndex unions each document's full place and keyword sets into every
// author the document credits. An author whose documents carry no places
// still gets an (empty) entry; a document with no authors contributes
// nothing.
func BuildIndex(docs []*Document) *Index {
	ix := &Index{
		AuthorPlaces:   make(map[string]tei.Set),
		AuthorKeywords: make(map[string]tei.Set),
	}
	for _, doc := range docs {
		meta := doc.metadata()
		for author := range meta.Authors {
			places, ok := ix.AuthorPlaces[author]
			if !ok {
				places = make(tei.Set)
				ix.AuthorPlaces[author] = places
			}
			places.Union(meta.Places)

			keywords, ok := ix.AuthorKeywords[author]
			if !ok {
				keywords = make(tei.Set)
				ix.AuthorKeywords[author] = keywords
			}
			keywords.Union(meta.Keywords)
		}
	}
	return ix
}

// PlacesFor returns the sorted places correlated with author and whether
// the author is indexed.
func (ix *Index) PlacesFor(author string) ([]string, bool) {
	s, ok := ix.AuthorPlaces[author]
	if !ok {
		return nil, false
	}
	return s.Sorted(), true
}

// KeywordsFor returns the sorted keywords correlated with author and
// whether the author is indexed.
func (ix *Index) KeywordsFor(author string) ([]string, bool) {
	s, ok := ix.AuthorKeywords[author]
	if !ok {
		return nil, false
	}
	return s.Sorted(), true
}

// Values is the corpus-wide union of each facet.
type Values struct {
	Authors  tei.Set
	Places   tei.Set
	Keywords tei.Set
}

// CollectValues unions the authors, places and keywords of every document,
// including documents that credit no author.
func CollectValues(docs []*Document) Values {
	v := Values{Authors: make(tei.Set), Places: make(tei.Set), Keywords: make(tei.Set)}
	for _, doc := range docs {
		meta := doc.metadata()
		v.Authors.Union(meta.Authors)
		v.Places.Union(meta.Places)
		v.Keywords.Union(meta.Keywords)
	}
	return v
}

// metadata returns the extraction result, running the extractor when the
// document was built without one. The document is not modified.
func (d *Document) metadata() *tei.Metadata {
	if d.Meta != nil {
		return d.Meta
	}
	return tei.Extract(d.Tree)
}
