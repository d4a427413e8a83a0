package xml

import (
	"bytes"
	"strings"

	"github.com/FocuswithJustin/digitalsee/core/encoding"
	"github.com/antchfx/xmlquery"
)

// formatter writes xmlquery trees. Elements holding only elements are
// indented; elements holding non-blank text are written inline with their
// whitespace untouched.
type formatter struct {
	w      *bytes.Buffer
	indent string
}

func (f *formatter) topLevel(n *xmlquery.Node) {
	switch n.Type {
	case xmlquery.DeclarationNode:
		// The xml declaration is replaced by Declaration.
	case xmlquery.ElementNode:
		f.element(n, 0, false)
	case xmlquery.CommentNode:
		f.comment(n)
		f.w.WriteString("\n")
	case xmlquery.ProcessingInstruction:
		f.procInst(n)
		f.w.WriteString("\n")
	}
}

func (f *formatter) element(n *xmlquery.Node, depth int, declareNS bool) {
	f.writeIndent(depth)
	f.startTag(n, declareNS)

	if n.FirstChild == nil {
		f.w.WriteString("/>\n")
		return
	}
	f.w.WriteString(">")

	if inlineContent(n) {
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			f.inline(child)
		}
		f.endTag(n)
		f.w.WriteString("\n")
		return
	}

	f.w.WriteString("\n")
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		switch child.Type {
		case xmlquery.ElementNode:
			f.element(child, depth+1, false)
		case xmlquery.CommentNode:
			f.writeIndent(depth + 1)
			f.comment(child)
			f.w.WriteString("\n")
		case xmlquery.CharDataNode:
			f.writeIndent(depth + 1)
			f.cdata(child)
			f.w.WriteString("\n")
		case xmlquery.ProcessingInstruction:
			f.writeIndent(depth + 1)
			f.procInst(child)
			f.w.WriteString("\n")
		}
	}
	f.writeIndent(depth)
	f.endTag(n)
	f.w.WriteString("\n")
}

// inline writes a node without adding any whitespace.
func (f *formatter) inline(n *xmlquery.Node) {
	switch n.Type {
	case xmlquery.TextNode:
		f.w.WriteString(encoding.EscapeXMLText(n.Data))
	case xmlquery.CharDataNode:
		f.cdata(n)
	case xmlquery.CommentNode:
		f.comment(n)
	case xmlquery.ProcessingInstruction:
		f.procInst(n)
	case xmlquery.ElementNode:
		f.startTag(n, false)
		if n.FirstChild == nil {
			f.w.WriteString("/>")
			return
		}
		f.w.WriteString(">")
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			f.inline(child)
		}
		f.endTag(n)
	}
}

func (f *formatter) startTag(n *xmlquery.Node, declareNS bool) {
	f.w.WriteString("<")
	f.w.WriteString(qualified(n.Prefix, n.Data))
	if declareNS && n.NamespaceURI != "" && !declares(n, n.Prefix) {
		if qualified(n.Prefix, "") == "" {
			f.w.WriteString(` xmlns="`)
		} else {
			f.w.WriteString(` xmlns:` + n.Prefix + `="`)
		}
		f.w.WriteString(encoding.EscapeXMLAttr(n.NamespaceURI))
		f.w.WriteString(`"`)
	}
	f.attrs(n)
}

func (f *formatter) endTag(n *xmlquery.Node) {
	f.w.WriteString("</")
	f.w.WriteString(qualified(n.Prefix, n.Data))
	f.w.WriteString(">")
}

func (f *formatter) attrs(n *xmlquery.Node) {
	for _, attr := range n.Attr {
		name := attrName(attr)
		if name == "" {
			continue
		}
		f.w.WriteString(" ")
		f.w.WriteString(name)
		f.w.WriteString(`="`)
		f.w.WriteString(encoding.EscapeXMLAttr(attr.Value))
		f.w.WriteString(`"`)
	}
}

func (f *formatter) comment(n *xmlquery.Node) {
	f.w.WriteString("<!--")
	f.w.WriteString(n.Data)
	f.w.WriteString("-->")
}

func (f *formatter) procInst(n *xmlquery.Node) {
	target, inst := n.Data, ""
	if n.ProcInst != nil {
		target, inst = n.ProcInst.Target, n.ProcInst.Inst
	}
	f.w.WriteString("<?")
	f.w.WriteString(target)
	if inst != "" {
		f.w.WriteString(" ")
		f.w.WriteString(inst)
	}
	f.w.WriteString("?>")
}

func (f *formatter) cdata(n *xmlquery.Node) {
	f.w.WriteString("<![CDATA[")
	f.w.WriteString(encoding.EscapeCDATA(n.Data))
	f.w.WriteString("]]>")
}

func (f *formatter) writeIndent(depth int) {
	for i := 0; i < depth; i++ {
		f.w.WriteString(f.indent)
	}
}

// inlineContent reports whether n's children must be written without
// indentation: it holds non-blank text, or nothing but text.
func inlineContent(n *xmlquery.Node) bool {
	onlyText := true
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != xmlquery.TextNode {
			onlyText = false
			continue
		}
		if strings.TrimSpace(child.Data) != "" {
			return true
		}
	}
	return onlyText
}

// declares reports whether n carries a namespace declaration for prefix.
func declares(n *xmlquery.Node, prefix string) bool {
	for _, attr := range n.Attr {
		if prefix == "" && attr.Name.Space == "" && attr.Name.Local == "xmlns" {
			return true
		}
		if prefix != "" && attr.Name.Space == "xmlns" && attr.Name.Local == prefix {
			return true
		}
	}
	return false
}

// attrName renders an attribute name. xmlquery keeps the prefix in
// Name.Space when the namespace was declared; the xml: prefix may also
// arrive as its full URI. Attributes in an undeclared namespace lose their
// qualifier.
func attrName(attr xmlquery.Attr) string {
	switch {
	case attr.Name.Local == "":
		return ""
	case attr.Name.Space == "":
		return attr.Name.Local
	case attr.Name.Space == XMLNamespace:
		return "xml:" + attr.Name.Local
	case strings.ContainsAny(attr.Name.Space, ":/"):
		return attr.Name.Local
	default:
		return attr.Name.Space + ":" + attr.Name.Local
	}
}

// qualified joins prefix and local name. A prefix that is really a
// namespace URI (no declared prefix was found for it) is dropped.
func qualified(prefix, local string) string {
	if prefix == "" || strings.ContainsAny(prefix, ":/") {
		return local
	}
	return prefix + ":" + local
}
