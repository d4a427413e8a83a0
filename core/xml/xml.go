// Package xml provides XML parsing, namespace-aware XPath, and pretty
// serialization on top of xmlquery.
//
// Security Notes:
//   - xmlquery parses with Go's encoding/xml, which never fetches external
//     entities, so XXE (CWE-611) does not apply to corpus files.
package xml

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

// XMLNamespace is the namespace bound to the reserved xml: prefix.
const XMLNamespace = "http://www.w3.org/XML/1998/namespace"

// Declaration is written at the top of every serialized document.
const Declaration = `<?xml version="1.0" encoding="UTF-8"?>`

// DefaultIndent is the indentation used by Serialize and Node.Format.
const DefaultIndent = "  "

// Namespaces maps query prefixes to namespace URIs.
type Namespaces map[string]string

// Document represents a parsed XML document.
type Document struct {
	root *xmlquery.Node
}

// Node represents an XML element node.
type Node struct {
	node *xmlquery.Node
}

// Parse parses XML data and returns a Document.
// Input without a root element is rejected.
func Parse(data []byte) (*Document, error) {
	root, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing XML: %w", err)
	}
	doc := &Document{root: root}
	if doc.Root() == nil {
		return nil, fmt.Errorf("parsing XML: document has no root element")
	}
	if err := checkProlog(root); err != nil {
		return nil, fmt.Errorf("parsing XML: %w", err)
	}
	return doc, nil
}

// checkProlog rejects content encoding/xml tolerates outside the root
// element: a second top-level element or non-blank top-level text.
func checkProlog(doc *xmlquery.Node) error {
	elements := 0
	for child := doc.FirstChild; child != nil; child = child.NextSibling {
		switch child.Type {
		case xmlquery.ElementNode:
			if elements++; elements > 1 {
				return fmt.Errorf("multiple root elements")
			}
		case xmlquery.TextNode, xmlquery.CharDataNode:
			if strings.TrimSpace(child.Data) != "" {
				return fmt.Errorf("text outside the root element")
			}
		}
	}
	return nil
}

// Compile compiles an XPath expression with the given prefix bindings.
func Compile(expr string, ns Namespaces) (*xpath.Expr, error) {
	compiled, err := xpath.CompileWithNS(expr, ns)
	if err != nil {
		return nil, fmt.Errorf("invalid xpath %q: %w", expr, err)
	}
	return compiled, nil
}

// MustCompile is like Compile but panics on error. It is meant for
// package-level path tables.
func MustCompile(expr string, ns Namespaces) *xpath.Expr {
	compiled, err := Compile(expr, ns)
	if err != nil {
		panic(err)
	}
	return compiled
}

// Root returns the root element of the document.
func (d *Document) Root() *Node {
	if d == nil || d.root == nil {
		return nil
	}
	for child := d.root.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode {
			return &Node{node: child}
		}
	}
	return nil
}

// Select evaluates a compiled expression against the document and returns
// the matching nodes in document order.
func (d *Document) Select(expr *xpath.Expr) []*Node {
	if d == nil || d.root == nil {
		return nil
	}
	return wrap(xmlquery.QuerySelectorAll(d.root, expr))
}

// SelectFirst returns the first node matching expr, or nil.
func (d *Document) SelectFirst(expr *xpath.Expr) *Node {
	if d == nil || d.root == nil {
		return nil
	}
	n := xmlquery.QuerySelector(d.root, expr)
	if n == nil {
		return nil
	}
	return &Node{node: n}
}

// Serialize renders the document as UTF-8 with the XML declaration and
// two-space indentation. Mixed content is written inline so its text is
// preserved exactly.
func (d *Document) Serialize() []byte {
	var buf bytes.Buffer
	buf.WriteString(Declaration)
	buf.WriteString("\n")
	if d == nil || d.root == nil {
		return buf.Bytes()
	}

	f := &formatter{w: &buf, indent: DefaultIndent}
	for child := d.root.FirstChild; child != nil; child = child.NextSibling {
		f.topLevel(child)
	}
	return buf.Bytes()
}

func wrap(nodes []*xmlquery.Node) []*Node {
	result := make([]*Node, len(nodes))
	for i, n := range nodes {
		result[i] = &Node{node: n}
	}
	return result
}

// Text returns the character data that precedes the element's first child
// element, comment or processing instruction. This is the element's own text in the ElementTree
// sense, not the text of its descendants.
func (n *Node) Text() string {
	if n == nil || n.node == nil {
		return ""
	}
	var sb strings.Builder
	for child := n.node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != xmlquery.TextNode && child.Type != xmlquery.CharDataNode {
			break
		}
		sb.WriteString(child.Data)
	}
	return sb.String()
}

// Select evaluates a compiled expression relative to this node.
func (n *Node) Select(expr *xpath.Expr) []*Node {
	if n == nil || n.node == nil {
		return nil
	}
	return wrap(xmlquery.QuerySelectorAll(n.node, expr))
}

// LookupAttr returns the value of an attribute and whether it is present.
// A prefixed name such as "xml:lang" matches the attribute in that
// namespace.
func (n *Node) LookupAttr(name string) (string, bool) {
	if n == nil || n.node == nil {
		return "", false
	}

	space, local := "", name
	if i := strings.IndexByte(name, ':'); i > 0 {
		space, local = name[:i], name[i+1:]
	}
	for _, attr := range n.node.Attr {
		if attr.Name.Local != local {
			continue
		}
		if attr.Name.Space == space {
			return attr.Value, true
		}
		if space == "xml" && attr.Name.Space == XMLNamespace {
			return attr.Value, true
		}
	}
	return "", false
}

// AttrOr returns the value of an attribute, or def when it is absent.
func (n *Node) AttrOr(name, def string) string {
	if v, ok := n.LookupAttr(name); ok {
		return v
	}
	return def
}

// Format pretty-prints the node's subtree. The element carries a namespace
// declaration for its own namespace so the fragment stands alone.
func (n *Node) Format() string {
	if n == nil || n.node == nil {
		return ""
	}
	var buf bytes.Buffer
	f := &formatter{w: &buf, indent: DefaultIndent}
	f.element(n.node, 0, true)
	return buf.String()
}
