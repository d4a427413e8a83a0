// Package tei extracts bibliographic metadata from TEI documents.
//
// Every structural location the package reads is declared once in the path
// table below; extractors and the search predicates select through these
// typed paths instead of carrying XPath strings of their own.
package tei

import (
	"github.com/antchfx/xpath"

	"github.com/FocuswithJustin/digitalsee/core/xml"
)

// Namespace is the TEI namespace URI. All paths are qualified with it.
const Namespace = "http://www.tei-c.org/ns/1.0"

var namespaces = xml.Namespaces{"tei": Namespace}

// Path is one recognized structural location in a TEI document.
type Path struct {
	Name string `json:"name"`
	Expr string `json:"xpath"`
	expr *xpath.Expr
}

func newPath(name, expr string) Path {
	return Path{Name: name, Expr: expr, expr: xml.MustCompile(expr, namespaces)}
}

// Recognized paths.
var (
	BiblAuthor             = newPath("bibl-author", `//tei:bibl/tei:author/tei:persName`)
	KeywordItem            = newPath("keyword-item", `//tei:keywords/tei:list/tei:item`)
	ProvenancePlace        = newPath("provenance-place", `//tei:provenance/tei:placeName`)
	LocationPlace          = newPath("location-place", `//tei:location/tei:name[@type="place"]`)
	CommentaryContemporary = newPath("commentary-contemporary", `//tei:div[@type="commentary"]//tei:name[@type="contemporary"]`)
	GeneralContemporary    = newPath("general-contemporary", `//tei:div[@type="commentary" and @subtype="general"]//tei:name[@type="contemporary"]`)
	CurrentName            = newPath("current-name", `//tei:name[@type="current"]`)
	LocationGeo            = newPath("location-geo", `//tei:location//tei:geo`)
	CommentaryDiv          = newPath("commentary-div", `//tei:div[@type="commentary"]`)
	CommentarySeg          = newPath("commentary-seg", `//tei:div[@type="commentary"]//tei:seg`)
	EditionDiv             = newPath("edition-div", `//tei:div[@type="edition"]`)
	HeaderTitle            = newPath("header-title", `//tei:teiHeader/tei:fileDesc/tei:titleStmt/tei:title`)
	HeaderAuthor           = newPath("header-author", `//tei:teiHeader/tei:fileDesc/tei:titleStmt/tei:author/tei:persName`)
	HeaderPublisher        = newPath("header-publisher", `//tei:teiHeader/tei:fileDesc/tei:publicationStmt/tei:publisher`)
	HeaderDate             = newPath("header-date", `//tei:teiHeader/tei:fileDesc/tei:publicationStmt/tei:date`)
)

// Paths returns the full path table in a fixed order.
func Paths() []Path {
	return []Path{
		BiblAuthor,
		KeywordItem,
		ProvenancePlace,
		LocationPlace,
		CommentaryContemporary,
		GeneralContemporary,
		CurrentName,
		LocationGeo,
		CommentaryDiv,
		CommentarySeg,
		EditionDiv,
		HeaderTitle,
		HeaderAuthor,
		HeaderPublisher,
		HeaderDate,
	}
}

// Select returns every node at p in document order.
func (p Path) Select(doc *xml.Document) []*xml.Node {
	return doc.Select(p.expr)
}

// First returns the first node at p, or nil.
func (p Path) First(doc *xml.Document) *xml.Node {
	return doc.SelectFirst(p.expr)
}

// Texts returns the own text of every node at p, untrimmed.
func (p Path) Texts(doc *xml.Document) []string {
	nodes := p.Select(doc)
	texts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		texts = append(texts, n.Text())
	}
	return texts
}
