// Package query parses the free-text search syntax used by the CLI and the
// HTTP API into a search.Query.
//
// A query is a sequence of field:value terms separated by whitespace:
//
//	author:"Jane Doe" place:Rome keyword:trade
//
// Fields are author, place and keyword, matched case-insensitively. Values
// containing whitespace, colons or quotes must be double-quoted; inside
// quotes, \" and \\ are escapes. Each field may appear at most once.
package query

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/FocuswithJustin/digitalsee/core/errors"
	"github.com/FocuswithJustin/digitalsee/core/search"
)

// Field names.
const (
	FieldAuthor  = "author"
	FieldPlace   = "place"
	FieldKeyword = "keyword"
)

//nolint:govet // participle grammar tags are not standard struct tags
type grammar struct {
	Terms []*term `parser:"@@*"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type term struct {
	Pos   lexer.Position
	Field string `parser:"@Word \":\""`
	Value string `parser:"@(String | Word)"`
}

var queryLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "String", Pattern: `"(\\.|[^"\\])*"`},
	{Name: "Colon", Pattern: `:`},
	{Name: "Word", Pattern: `[^\s:"]+`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var queryParser = participle.MustBuild[grammar](
	participle.Lexer(queryLexer),
	participle.Elide("Whitespace"),
	participle.Unquote("String"),
)

// Parse parses s into a query. An empty or blank string yields the empty
// query, which matches every document.
func Parse(s string) (search.Query, error) {
	var q search.Query
	if strings.TrimSpace(s) == "" {
		return q, nil
	}

	parsed, err := queryParser.ParseString("", s)
	if err != nil {
		return q, invalid(s, err.Error())
	}

	seen := make(map[string]bool, len(parsed.Terms))
	for _, t := range parsed.Terms {
		field := strings.ToLower(t.Field)
		if seen[field] {
			return q, invalid(s, fmt.Sprintf("%d:%d: duplicate field %q", t.Pos.Line, t.Pos.Column, field))
		}
		seen[field] = true

		switch field {
		case FieldAuthor:
			q.Author = t.Value
		case FieldPlace:
			q.Place = t.Value
		case FieldKeyword:
			q.Keyword = t.Value
		default:
			return q, invalid(s, fmt.Sprintf("%d:%d: unknown field %q", t.Pos.Line, t.Pos.Column, t.Field))
		}
	}
	return q.Normalize(), nil
}

// Merge overlays the non-empty terms of override onto base.
func Merge(base, override search.Query) search.Query {
	override = override.Normalize()
	if override.Author != "" {
		base.Author = override.Author
	}
	if override.Place != "" {
		base.Place = override.Place
	}
	if override.Keyword != "" {
		base.Keyword = override.Keyword
	}
	return base.Normalize()
}

func invalid(s, msg string) *errors.ValidationError {
	return errors.NewValidation("query", s, msg)
}
