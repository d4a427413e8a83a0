// Package search evaluates author, place and keyword terms against corpus
// documents.
//
// Every term is a case-insensitive substring match. The locations searched
// for each term are fixed and deliberately differ from the locations the
// extractor lists values from:
//
//   - author: bibliographic authors only, never the header author
//   - place: provenance places, contemporary names inside commentary
//     divisions subtyped "general", and location geo coordinates
//   - keyword: whole keyword items and commentary segments
//
// A document matches a query when it has at least one hit for every term
// present. A query with no terms matches every document.
package search

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/FocuswithJustin/digitalsee/core/corpus"
	"github.com/FocuswithJustin/digitalsee/core/tei"
	"github.com/FocuswithJustin/digitalsee/core/xml"
)

// Hit field labels.
const (
	FieldBiblAuthor        = "Bibliography Author"
	FieldProvenancePlace   = "Provenance Place"
	FieldContemporaryName  = "Contemporary Name"
	FieldLocationGeo       = "Location Geo"
	FieldKeyword           = "Keyword"
	FieldCommentarySegment = "Commentary Segment"
)

// Query holds the optional search terms. A term that is empty after
// trimming is absent.
type Query struct {
	Author  string `json:"author,omitempty"`
	Place   string `json:"place,omitempty"`
	Keyword string `json:"keyword,omitempty"`
}

// Normalize returns q with every term trimmed.
func (q Query) Normalize() Query {
	return Query{
		Author:  strings.TrimSpace(q.Author),
		Place:   strings.TrimSpace(q.Place),
		Keyword: strings.TrimSpace(q.Keyword),
	}
}

// IsEmpty reports whether q carries no terms.
func (q Query) IsEmpty() bool {
	return q.Normalize() == Query{}
}

// String renders q in the query language accepted by core/query.
func (q Query) String() string {
	q = q.Normalize()
	var parts []string
	for _, t := range []struct{ field, value string }{
		{"author", q.Author},
		{"place", q.Place},
		{"keyword", q.Keyword},
	} {
		if t.value != "" {
			parts = append(parts, t.field+":"+quote(t.value))
		}
	}
	return strings.Join(parts, " ")
}

// quote leaves a value bare only when it lexes as a single word.
func quote(s string) string {
	if strings.IndexFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(`:"\`, r)
	}) >= 0 {
		return strconv.Quote(s)
	}
	return s
}

// Hit is one occurrence that caused a match.
type Hit struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (h Hit) String() string {
	return h.Field + ": " + h.Value
}

// Match is a matched document together with the hits of every term.
type Match struct {
	Document *corpus.Document
	Hits     []Hit
}

// Search returns the documents matching every present term of q, in the
// order of docs.
func Search(docs []*corpus.Document, q Query) []Match {
	q = q.Normalize()
	matches := make([]Match, 0, len(docs))
	for _, doc := range docs {
		if hits, ok := MatchDocument(doc.Tree, q); ok {
			matches = append(matches, Match{Document: doc, Hits: hits})
		}
	}
	return matches
}

// Documents is Search without the hits.
func Documents(docs []*corpus.Document, q Query) []*corpus.Document {
	matches := Search(docs, q)
	out := make([]*corpus.Document, len(matches))
	for i, m := range matches {
		out[i] = m.Document
	}
	return out
}

// MatchDocument evaluates q against one tree. It reports whether every
// present term has at least one hit; the hits are returned in term order.
func MatchDocument(doc *xml.Document, q Query) ([]Hit, bool) {
	q = q.Normalize()
	var hits []Hit
	for _, t := range []struct {
		term string
		fn   func(*xml.Document, string) []Hit
	}{
		{q.Author, SearchAuthor},
		{q.Place, SearchPlace},
		{q.Keyword, SearchKeyword},
	} {
		if t.term == "" {
			continue
		}
		found := t.fn(doc, t.term)
		if len(found) == 0 {
			return nil, false
		}
		hits = append(hits, found...)
	}
	return hits, true
}

// SearchAuthor matches bibliographic author names.
func SearchAuthor(doc *xml.Document, term string) []Hit {
	needle := strings.ToLower(term)
	var hits []Hit
	for _, text := range tei.BiblAuthor.Texts(doc) {
		if contains(text, needle) {
			hits = append(hits, Hit{FieldBiblAuthor, text})
		}
	}
	return hits
}

// SearchPlace matches provenance places, contemporary names in general
// commentary, and geo coordinates. Provenance and geo text equal to the
// absence marker never matches.
func SearchPlace(doc *xml.Document, term string) []Hit {
	needle := strings.ToLower(term)
	var hits []Hit
	for _, text := range tei.ProvenancePlace.Texts(doc) {
		if contains(text, needle) && strings.ToLower(text) != tei.AbsentPlace {
			hits = append(hits, Hit{FieldProvenancePlace, strings.TrimSpace(text)})
		}
	}
	for _, text := range tei.GeneralContemporary.Texts(doc) {
		if contains(text, needle) {
			hits = append(hits, Hit{FieldContemporaryName, strings.TrimSpace(text)})
		}
	}
	for _, text := range tei.LocationGeo.Texts(doc) {
		if contains(text, needle) && strings.ToLower(text) != tei.AbsentPlace {
			hits = append(hits, Hit{FieldLocationGeo, strings.TrimSpace(text)})
		}
	}
	return hits
}

// SearchKeyword matches whole keyword items, before comma splitting, and
// commentary segments.
func SearchKeyword(doc *xml.Document, term string) []Hit {
	needle := strings.ToLower(term)
	var hits []Hit
	for _, text := range tei.KeywordItem.Texts(doc) {
		if contains(text, needle) {
			hits = append(hits, Hit{FieldKeyword, text})
		}
	}
	for _, text := range tei.CommentarySeg.Texts(doc) {
		if contains(text, needle) {
			hits = append(hits, Hit{FieldCommentarySegment, text})
		}
	}
	return hits
}

// contains reports whether text holds needle, which must already be
// lower-cased. Empty text never matches.
func contains(text, needle string) bool {
	return text != "" && strings.Contains(strings.ToLower(text), needle)
}
