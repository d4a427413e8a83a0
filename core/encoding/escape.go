// Package encoding provides text escaping for serialized TEI output.
package encoding

import "strings"

// EscapeXMLText escapes only the basic XML entities for text content.
// Whitespace and quotes pass through untouched so mixed content keeps
// its layout when a document is re-serialized.
func EscapeXMLText(s string) string {
	if !strings.ContainsAny(s, "&<>") {
		return s
	}
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

// EscapeXMLAttr escapes text for use in double-quoted XML attributes.
func EscapeXMLAttr(s string) string {
	s = EscapeXMLText(s)
	s = strings.ReplaceAll(s, "\"", "&quot;")
	s = strings.ReplaceAll(s, "\n", "&#10;")
	s = strings.ReplaceAll(s, "\t", "&#9;")
	return s
}

// EscapeCDATA splits any "]]>" terminator so the text can sit inside a
// single CDATA section.
func EscapeCDATA(s string) string {
	return strings.ReplaceAll(s, "]]>", "]]]]><![CDATA[>")
}
