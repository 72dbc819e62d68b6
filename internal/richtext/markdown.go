package richtext

import (
	"regexp"
	"strconv"
	"strings"
)

var blankRunRe = regexp.MustCompile(`\n{3,}`)

// Render converts f to markdown. Top-level chunks are separated by one
// blank line and never by more.
func Render(f Fragment) string {
	chunks := make([]string, 0, len(f))
	for _, n := range f {
		if s := strings.TrimSpace(renderNode(n, 0)); s != "" {
			chunks = append(chunks, s)
		}
	}
	return blankRunRe.ReplaceAllString(strings.Join(chunks, "\n\n"), "\n\n")
}

func renderNode(n Node, depth int) string {
	switch n.Kind {
	case KindText:
		return n.Text
	case KindLineBreak:
		return "\n"
	case KindImage:
		if n.Src == "" {
			return ""
		}
		return "![" + n.Alt + "](" + n.Src + ")"
	case KindBold:
		return "**" + renderChildren(n.Children, depth) + "**"
	case KindItalic:
		return "*" + renderChildren(n.Children, depth) + "*"
	case KindStrikethrough:
		return "~~" + renderChildren(n.Children, depth) + "~~"
	case KindLink:
		return "[" + renderChildren(n.Children, depth) + "](" + n.Href + ")"
	case KindUnorderedList, KindOrderedList:
		return renderList(n, depth)
	case KindParagraph:
		text := strings.TrimSpace(renderChildren(n.Children, depth))
		if text == "" {
			return ""
		}
		return "\n" + text + "\n"
	default:
		return renderChildren(n.Children, depth)
	}
}

func renderChildren(children []Node, depth int) string {
	var b strings.Builder
	for _, c := range children {
		b.WriteString(renderNode(c, depth))
	}
	return b.String()
}

func renderList(list Node, depth int) string {
	indent := strings.Repeat("  ", depth)
	lines := make([]string, 0, len(list.Children))
	index := 1
	for _, item := range list.Children {
		if item.Kind != KindListItem {
			continue
		}
		prefix := "- "
		if list.Kind == KindOrderedList {
			prefix = strconv.Itoa(index) + ". "
		}
		var (
			content strings.Builder
			nested  []string
		)
		for _, c := range item.Children {
			if c.Kind.IsList() {
				nested = append(nested, renderList(c, depth+1))
				continue
			}
			content.WriteString(renderNode(c, depth+1))
		}
		lines = append(lines, indent+prefix+strings.TrimSpace(content.String()))
		lines = append(lines, nested...)
		index++
	}
	return strings.Join(lines, "\n")
}
