package search

import (
	"reflect"
	"testing"

	"github.com/FocuswithJustin/digitalsee/core/corpus"
)

func openFixtures(t *testing.T) *corpus.Snapshot {
	t.Helper()
	snap, err := corpus.Open("../../testdata/corpus")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return snap
}

func names(docs []*corpus.Document) []string {
	out := []string{}
	for _, d := range docs {
		out = append(out, d.Name)
	}
	return out
}

func document(t *testing.T, body string) *corpus.Document {
	t.Helper()
	doc, err := corpus.NewDocument("doc.xml", "doc.xml", []byte(`<TEI xmlns="http://www.tei-c.org/ns/1.0">`+body+`</TEI>`))
	if err != nil {
		t.Fatalf("NewDocument failed: %v", err)
	}
	return doc
}

func TestSearchAuthorScenario(t *testing.T) {
	doc := document(t, `<bibl><author><persName>Jane Doe</persName></author></bibl>
		<provenance><placeName>Rome</placeName></provenance>`)
	docs := []*corpus.Document{doc}

	if got := Documents(docs, Query{Author: "jane"}); len(got) != 1 {
		t.Error("author query jane should match")
	}
	if got := Documents(docs, Query{Author: "john"}); len(got) != 0 {
		t.Error("author query john should not match")
	}
}

func TestSearchFixtures(t *testing.T) {
	snap := openFixtures(t)

	tests := []struct {
		name  string
		query Query
		want  []string
	}{
		{"no terms", Query{}, []string{"anonymous.xml", "jane_rome.xml", "smith_paris.xml", "smith_trade.xml"}},
		{"blank terms", Query{Author: "  ", Place: "\t"}, []string{"anonymous.xml", "jane_rome.xml", "smith_paris.xml", "smith_trade.xml"}},
		{"author substring", Query{Author: "smith"}, []string{"smith_paris.xml", "smith_trade.xml"}},
		{"author case", Query{Author: "JANE"}, []string{"jane_rome.xml"}},
		{"header author not searched", Query{Author: "Edith"}, []string{}},
		{"provenance place", Query{Place: "paris"}, []string{"smith_paris.xml"}},
		{"general contemporary", Query{Place: "roma"}, []string{"jane_rome.xml"}},
		{"non-general contemporary not searched", Query{Place: "Lutetia"}, []string{}},
		{"location place not searched", Query{Place: "Athens"}, []string{}},
		{"geo coordinates", Query{Place: "41.89"}, []string{"jane_rome.xml"}},
		{"keyword item", Query{Keyword: "temple"}, []string{"jane_rome.xml"}},
		{"whole keyword item", Query{Keyword: "boundary, law"}, []string{"anonymous.xml"}},
		{"commentary segment", Query{Keyword: "grain"}, []string{"smith_trade.xml"}},
		{"intersection", Query{Author: "smith", Keyword: "trade"}, []string{"smith_trade.xml"}},
		{"empty intersection", Query{Author: "jane", Place: "paris"}, []string{}},
		{"trimmed term", Query{Place: "  rome  "}, []string{"jane_rome.xml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := names(Documents(snap.Documents, tt.query))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Search(%+v) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestSearchHits(t *testing.T) {
	snap := openFixtures(t)
	matches := Search(snap.Documents, Query{Author: "doe", Place: "rom"})
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
	want := []Hit{
		{FieldBiblAuthor, "Jane Doe"},
		{FieldProvenancePlace, "Rome"},
		{FieldContemporaryName, "Roma"},
	}
	if !reflect.DeepEqual(matches[0].Hits, want) {
		t.Errorf("hits = %v, want %v", matches[0].Hits, want)
	}
	if matches[0].Hits[0].String() != "Bibliography Author: Jane Doe" {
		t.Errorf("Hit.String() = %q", matches[0].Hits[0].String())
	}
}

func TestSearchAbsentMarkerNeverMatches(t *testing.T) {
	doc := document(t, `<provenance><placeName>None</placeName></provenance>
		<location><geo>none</geo></location>`)
	if hits := SearchPlace(doc.Tree, "no"); len(hits) != 0 {
		t.Errorf("absence marker matched: %v", hits)
	}
	if hits := SearchPlace(doc.Tree, "none"); len(hits) != 0 {
		t.Errorf("absence marker matched: %v", hits)
	}
}

// TestSearchIntersectionLaw checks that a combined query equals the
// intersection of its single-term queries for every combination of terms.
func TestSearchIntersectionLaw(t *testing.T) {
	snap := openFixtures(t)
	authors := []string{"", "smith", "jane", "nobody"}
	places := []string{"", "rom", "paris", "41"}
	keywords := []string{"", "trade", "temple", "grain"}

	single := func(q Query) map[string]bool {
		set := make(map[string]bool)
		for _, d := range Documents(snap.Documents, q) {
			set[d.Name] = true
		}
		return set
	}

	for _, a := range authors {
		for _, p := range places {
			for _, k := range keywords {
				got := names(Documents(snap.Documents, Query{Author: a, Place: p, Keyword: k}))

				sa, sp, sk := single(Query{Author: a}), single(Query{Place: p}), single(Query{Keyword: k})
				want := []string{}
				for _, d := range snap.Documents {
					if sa[d.Name] && sp[d.Name] && sk[d.Name] {
						want = append(want, d.Name)
					}
				}
				if !reflect.DeepEqual(got, want) {
					t.Errorf("Search(%q,%q,%q) = %v, want %v", a, p, k, got, want)
				}
			}
		}
	}
}

func TestSearchIdempotent(t *testing.T) {
	snap := openFixtures(t)
	q := Query{Place: "rom"}
	if !reflect.DeepEqual(Search(snap.Documents, q), Search(snap.Documents, q)) {
		t.Error("Search should be idempotent")
	}
}

func TestQueryString(t *testing.T) {
	tests := []struct {
		q    Query
		want string
	}{
		{Query{}, ""},
		{Query{Author: "Jane Doe"}, `author:"Jane Doe"`},
		{Query{Place: " Rome ", Keyword: "trade"}, `place:Rome keyword:trade`},
		{Query{Keyword: `say "hi"`}, `keyword:"say \"hi\""`},
		{Query{Place: "41.89:12.49"}, `place:"41.89:12.49"`},
		{Query{Keyword: "harbour\ndues"}, `keyword:"harbour\ndues"`},
		{Query{Author: "Jane\u00a0Doe"}, `author:"Jane\u00a0Doe"`},
	}
	for _, tt := range tests {
		if got := tt.q.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
	if !(Query{Author: " "}).IsEmpty() {
		t.Error("blank query should be empty")
	}
}
