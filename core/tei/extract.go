package tei

import (
	"strings"

	"github.com/FocuswithJustin/digitalsee/core/xml"
)

// AbsentPlace is the placeholder editors enter for an unknown place. It is
// compared case-insensitively and never surfaces as a place.
const AbsentPlace = "none"

// Section defaults for missing attributes.
const (
	DefaultSubtype = "general"
	DefaultLang    = "unknown"
)

// placePaths are the four locations that contribute to a document's places.
var placePaths = []Path{ProvenancePlace, LocationPlace, CommentaryContemporary, CurrentName}

// CommentarySection is one commentary division of a document.
type CommentarySection struct {
	// Subtype is the division's subtype attribute, DefaultSubtype when absent.
	Subtype string `json:"subtype"`
	// Content is the pretty-printed division subtree.
	Content string `json:"content"`
}

// EditionSection is one edition division of a document.
type EditionSection struct {
	// Lang is the division's xml:lang attribute, DefaultLang when absent.
	Lang    string `json:"lang"`
	Content string `json:"content"`
}

// Header holds the first title, author, publisher and date of the TEI
// header. A field is empty when the document does not carry it.
type Header struct {
	Title     string `json:"title,omitempty"`
	Author    string `json:"author,omitempty"`
	Publisher string `json:"publisher,omitempty"`
	Date      string `json:"date,omitempty"`
}

// HeaderField is a labelled, present header value.
type HeaderField struct {
	Label string
	Value string
}

// Fields returns the present header values in display order.
func (h Header) Fields() []HeaderField {
	var fields []HeaderField
	for _, f := range []HeaderField{
		{"Title", h.Title},
		{"Author", h.Author},
		{"Publisher", h.Publisher},
		{"Date", h.Date},
	} {
		if f.Value != "" {
			fields = append(fields, f)
		}
	}
	return fields
}

// Metadata is everything extracted from one document.
type Metadata struct {
	Authors    Set
	Places     Set
	Keywords   Set
	Header     Header
	Commentary []CommentarySection
	Editions   []EditionSection
}

// Extract runs every extractor over doc.
func Extract(doc *xml.Document) *Metadata {
	return &Metadata{
		Authors:    Authors(doc),
		Places:     Places(doc),
		Keywords:   Keywords(doc),
		Header:     ExtractHeader(doc),
		Commentary: CommentarySections(doc),
		Editions:   EditionSections(doc),
	}
}

// Authors returns the trimmed names of every bibliographic author.
// Header authors are not included.
func Authors(doc *xml.Document) Set {
	authors := make(Set)
	for _, text := range BiblAuthor.Texts(doc) {
		if name := strings.TrimSpace(text); name != "" {
			authors.Add(name)
		}
	}
	return authors
}

// Places returns the union of provenance places, typed location places,
// contemporary names inside commentary, and current names.
func Places(doc *xml.Document) Set {
	places := make(Set)
	for _, p := range placePaths {
		for _, text := range p.Texts(doc) {
			if place, ok := NormalizePlace(text); ok {
				places.Add(place)
			}
		}
	}
	return places
}

// NormalizePlace trims raw and reports whether it names a real place.
func NormalizePlace(raw string) (string, bool) {
	place := strings.TrimSpace(raw)
	if place == "" || IsAbsent(place) {
		return "", false
	}
	return place, true
}

// IsAbsent reports whether s is the absence placeholder in any casing.
func IsAbsent(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), AbsentPlace)
}

// Keywords returns every comma-separated segment of every keyword item.
func Keywords(doc *xml.Document) Set {
	keywords := make(Set)
	for _, text := range KeywordItem.Texts(doc) {
		for _, kw := range SplitKeywords(text) {
			keywords.Add(kw)
		}
	}
	return keywords
}

// SplitKeywords splits a keyword item on commas, trims each segment and
// drops empty ones. "a, b,c" yields [a b c].
func SplitKeywords(item string) []string {
	var out []string
	for _, part := range strings.Split(item, ",") {
		if kw := strings.TrimSpace(part); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

// CommentarySections returns every commentary division in document order.
func CommentarySections(doc *xml.Document) []CommentarySection {
	nodes := CommentaryDiv.Select(doc)
	sections := make([]CommentarySection, 0, len(nodes))
	for _, n := range nodes {
		sections = append(sections, CommentarySection{
			Subtype: n.AttrOr("subtype", DefaultSubtype),
			Content: n.Format(),
		})
	}
	return sections
}

// EditionSections returns every edition division in document order.
func EditionSections(doc *xml.Document) []EditionSection {
	nodes := EditionDiv.Select(doc)
	sections := make([]EditionSection, 0, len(nodes))
	for _, n := range nodes {
		sections = append(sections, EditionSection{
			Lang:    n.AttrOr("xml:lang", DefaultLang),
			Content: n.Format(),
		})
	}
	return sections
}

// ExtractHeader reads the first match of each header field.
func ExtractHeader(doc *xml.Document) Header {
	return Header{
		Title:     firstText(doc, HeaderTitle),
		Author:    firstText(doc, HeaderAuthor),
		Publisher: firstText(doc, HeaderPublisher),
		Date:      firstText(doc, HeaderDate),
	}
}

func firstText(doc *xml.Document, p Path) string {
	return strings.TrimSpace(p.First(doc).Text())
}
