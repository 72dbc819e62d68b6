package richtext

import "strings"

// Normalize returns the canonical form of f: the shape the markdown format
// can represent and that decoding reproduces.
//
// Top-level inline runs are wrapped in paragraphs, blocks nested inside
// inline containers are unwrapped, nested lists are flattened into their
// enclosing list, and empty text, wrappers, paragraphs and lists are dropped.
// Line breaks survive only directly inside paragraphs; two or more in a row
// split the paragraph.
func Normalize(f Fragment) Fragment {
	var (
		out Fragment
		run []Node
	)
	flush := func() {
		out = append(out, paragraphs(run)...)
		run = nil
	}
	for _, n := range f {
		switch {
		case n.Kind.IsInline():
			run = append(run, n)
		case n.Kind == KindParagraph:
			flush()
			out = append(out, paragraphs(n.Children)...)
		case n.Kind.IsList():
			flush()
			if l, ok := normalizeList(n); ok {
				out = append(out, l)
			}
		case n.Kind == KindListItem:
			flush()
			if l, ok := normalizeList(UnorderedList(n)); ok {
				out = append(out, l)
			}
		default:
			flush()
			out = append(out, Normalize(n.Children)...)
		}
	}
	flush()
	return out
}

// paragraphs normalises inline content and splits it at blank lines.
func paragraphs(nodes []Node) Fragment {
	var (
		out    Fragment
		cur    []Node
		breaks int
	)
	emit := func() {
		if hasContent(cur) {
			out = append(out, Paragraph(cur...))
		}
		cur = nil
	}
	for _, n := range normalizeInline(nil, nodes, false) {
		if n.Kind == KindLineBreak {
			breaks++
			continue
		}
		if breaks > 0 && n.Kind == KindText && strings.TrimSpace(n.Text) == "" {
			continue
		}
		switch {
		case breaks >= 2:
			emit()
		case breaks == 1 && len(cur) > 0:
			cur = append(cur, LineBreak())
		}
		breaks = 0
		cur = append(cur, n)
	}
	emit()
	return out
}

func normalizeList(l Node) (Node, bool) {
	out := Node{Kind: l.Kind}
	var walk func(children []Node)
	walk = func(children []Node) {
		for _, c := range children {
			if c.Kind.IsList() {
				walk(c.Children)
				continue
			}
			src := c.Children
			if c.Kind != KindListItem {
				src = []Node{c}
			}
			var inline, nested []Node
			for _, x := range src {
				if x.Kind.IsList() {
					nested = append(nested, x)
				} else {
					inline = append(inline, x)
				}
			}
			if content := trimInline(normalizeInline(nil, inline, true)); hasContent(content) {
				out.Children = append(out.Children, ListItem(content...))
			}
			for _, n := range nested {
				walk(n.Children)
			}
		}
	}
	walk(l.Children)
	return out, len(out.Children) > 0
}

// normalizeInline appends the canonical inline form of nodes to out. When
// flat is set, line breaks become spaces.
func normalizeInline(out, nodes []Node, flat bool) []Node {
	for _, n := range nodes {
		switch n.Kind {
		case KindText:
			out = pushText(out, n.Text, flat)
		case KindLineBreak:
			if flat {
				out = pushText(out, " ", true)
			} else {
				out = append(out, LineBreak())
			}
		case KindImage:
			if n.Src != "" {
				out = append(out, Image(n.Src, n.Alt))
			}
		case KindBold, KindItalic, KindStrikethrough:
			if c := normalizeInline(nil, n.Children, true); len(c) > 0 {
				out = append(out, Node{Kind: n.Kind, Children: c})
			}
		case KindLink:
			c := normalizeInline(nil, n.Children, true)
			if n.Href == "" {
				out = appendInline(out, c)
				continue
			}
			out = append(out, Link(n.Href, c...))
		case KindUnorderedList, KindOrderedList:
			for i, item := range n.Children {
				if i > 0 {
					out = normalizeInline(out, []Node{LineBreak()}, flat)
				}
				out = normalizeInline(out, item.Children, flat)
			}
		default:
			out = normalizeInline(out, n.Children, flat)
		}
	}
	return out
}

// pushText appends s, merging with a preceding text node. Outside flat
// content embedded newlines become line breaks.
func pushText(out []Node, s string, flat bool) []Node {
	if s == "" {
		return out
	}
	if flat {
		s = strings.ReplaceAll(s, "\n", " ")
	} else if strings.Contains(s, "\n") {
		for i, part := range strings.Split(s, "\n") {
			if i > 0 {
				out = append(out, LineBreak())
			}
			out = pushText(out, part, true)
		}
		return out
	}
	if k := len(out); k > 0 && out[k-1].Kind == KindText {
		out[k-1].Text += s
		return out
	}
	return append(out, Text(s))
}

func appendInline(out, nodes []Node) []Node {
	for _, n := range nodes {
		if n.Kind == KindText {
			out = pushText(out, n.Text, true)
			continue
		}
		out = append(out, n)
	}
	return out
}

func trimInline(nodes []Node) []Node {
	if len(nodes) == 0 {
		return nodes
	}
	if first := &nodes[0]; first.Kind == KindText {
		first.Text = strings.TrimLeft(first.Text, " \t")
	}
	if last := &nodes[len(nodes)-1]; last.Kind == KindText {
		last.Text = strings.TrimRight(last.Text, " \t")
	}
	out := nodes[:0]
	for _, n := range nodes {
		if n.Kind == KindText && n.Text == "" {
			continue
		}
		out = append(out, n)
	}
	return out
}

func hasContent(nodes []Node) bool {
	for _, n := range nodes {
		switch n.Kind {
		case KindText:
			if strings.TrimSpace(n.Text) != "" {
				return true
			}
		case KindLineBreak:
		default:
			return true
		}
	}
	return false
}
