package richtext

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var htmlSpaceRe = regexp.MustCompile(`\s+`)

// FromHTML converts editor HTML (the body of a contenteditable element) into
// a normalised fragment. Unknown elements contribute their children; script
// and style contents are dropped.
func FromHTML(src string) (Fragment, error) {
	context := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(src), context)
	if err != nil {
		return nil, fmt.Errorf("richtext: parse html: %w", err)
	}
	var out Fragment
	for _, n := range nodes {
		out = append(out, fromHTMLNode(n)...)
	}
	return Normalize(out), nil
}

func fromHTMLNode(n *html.Node) []Node {
	switch n.Type {
	case html.TextNode:
		return []Node{Text(htmlSpaceRe.ReplaceAllString(n.Data, " "))}
	case html.ElementNode:
	default:
		return nil
	}

	var children []Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		children = append(children, fromHTMLNode(c)...)
	}

	switch n.DataAtom {
	case atom.Br:
		return []Node{LineBreak()}
	case atom.Img:
		return []Node{Image(attr(n, "src"), attr(n, "alt"))}
	case atom.Strong, atom.B:
		return []Node{Bold(children...)}
	case atom.Em, atom.I:
		return []Node{Italic(children...)}
	case atom.S, atom.Strike, atom.Del:
		return []Node{Strikethrough(children...)}
	case atom.A:
		return []Node{Link(attr(n, "href"), children...)}
	case atom.P, atom.Div:
		return []Node{Paragraph(children...)}
	case atom.Ul:
		return []Node{UnorderedList(children...)}
	case atom.Ol:
		return []Node{OrderedList(children...)}
	case atom.Li:
		return []Node{ListItem(children...)}
	case atom.Script, atom.Style:
		return nil
	}
	return children
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

// ToHTML renders f as editor HTML.
func ToHTML(f Fragment) string {
	var b strings.Builder
	for _, n := range f {
		writeHTML(&b, n)
	}
	return b.String()
}

var htmlTags = map[Kind]string{
	KindBold:          "strong",
	KindItalic:        "em",
	KindStrikethrough: "s",
	KindParagraph:     "p",
	KindUnorderedList: "ul",
	KindOrderedList:   "ol",
	KindListItem:      "li",
}

func writeHTML(b *strings.Builder, n Node) {
	switch n.Kind {
	case KindText:
		b.WriteString(html.EscapeString(n.Text))
		return
	case KindLineBreak:
		b.WriteString("<br>")
		return
	case KindImage:
		if n.Src == "" {
			return
		}
		fmt.Fprintf(b, `<img alt="%s" src="%s">`, html.EscapeString(n.Alt), html.EscapeString(n.Src))
		return
	case KindLink:
		fmt.Fprintf(b, `<a href="%s">`, html.EscapeString(n.Href))
		for _, c := range n.Children {
			writeHTML(b, c)
		}
		b.WriteString("</a>")
		return
	}
	tag, ok := htmlTags[n.Kind]
	if ok {
		b.WriteString("<" + tag + ">")
	}
	for _, c := range n.Children {
		writeHTML(b, c)
	}
	if ok {
		b.WriteString("</" + tag + ">")
	}
}
