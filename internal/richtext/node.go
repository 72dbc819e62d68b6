// Package richtext models report section content as a small closed tree of
// inline and block nodes, and converts it to and from markdown and HTML.
package richtext

import (
	"fmt"
	"strings"
)

// Kind identifies a node variant.
type Kind int

const (
	KindText Kind = iota
	KindBold
	KindItalic
	KindStrikethrough
	KindLink
	KindImage
	KindLineBreak
	KindParagraph
	KindUnorderedList
	KindOrderedList
	KindListItem
)

var kindNames = [...]string{
	KindText:          "text",
	KindBold:          "bold",
	KindItalic:        "italic",
	KindStrikethrough: "strikethrough",
	KindLink:          "link",
	KindImage:         "image",
	KindLineBreak:     "line_break",
	KindParagraph:     "paragraph",
	KindUnorderedList: "unordered_list",
	KindOrderedList:   "ordered_list",
	KindListItem:      "list_item",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	if k < 0 || int(k) >= len(kindNames) {
		return nil, fmt.Errorf("richtext: unknown kind %d", int(k))
	}
	return []byte(kindNames[k]), nil
}

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(b []byte) error {
	name := strings.ToLower(string(b))
	for i, n := range kindNames {
		if n == name {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("richtext: unknown kind %q", name)
}

// IsInline reports whether nodes of this kind may appear inside a paragraph
// or list item.
func (k Kind) IsInline() bool {
	switch k {
	case KindText, KindBold, KindItalic, KindStrikethrough, KindLink, KindImage, KindLineBreak:
		return true
	}
	return false
}

// IsList reports whether k is one of the list kinds.
func (k Kind) IsList() bool {
	return k == KindUnorderedList || k == KindOrderedList
}

// Node is one element of a rich-text tree. Only the fields meaningful for
// Kind are set: Text for KindText, Href for KindLink, Src and Alt for
// KindImage, Children for the wrapping kinds.
type Node struct {
	Kind     Kind   `json:"kind"`
	Text     string `json:"text,omitempty"`
	Href     string `json:"href,omitempty"`
	Src      string `json:"src,omitempty"`
	Alt      string `json:"alt,omitempty"`
	Children []Node `json:"children,omitempty"`
}

// Fragment is an ordered sequence of sibling nodes.
type Fragment []Node

func Text(s string) Node { return Node{Kind: KindText, Text: s} }

func Bold(children ...Node) Node { return Node{Kind: KindBold, Children: children} }

func Italic(children ...Node) Node { return Node{Kind: KindItalic, Children: children} }

func Strikethrough(children ...Node) Node {
	return Node{Kind: KindStrikethrough, Children: children}
}

// Link wraps label nodes pointing at href.
func Link(href string, label ...Node) Node {
	return Node{Kind: KindLink, Href: href, Children: label}
}

func Image(src, alt string) Node { return Node{Kind: KindImage, Src: src, Alt: alt} }

func LineBreak() Node { return Node{Kind: KindLineBreak} }

func Paragraph(children ...Node) Node { return Node{Kind: KindParagraph, Children: children} }

func UnorderedList(items ...Node) Node { return Node{Kind: KindUnorderedList, Children: items} }

func OrderedList(items ...Node) Node { return Node{Kind: KindOrderedList, Children: items} }

func ListItem(children ...Node) Node { return Node{Kind: KindListItem, Children: children} }

// PlainText returns the concatenated text content of the fragment, with
// line breaks and block boundaries as newlines. Used for indexing.
func (f Fragment) PlainText() string {
	var b strings.Builder
	for i, n := range f {
		if i > 0 && !n.Kind.IsInline() {
			b.WriteByte('\n')
		}
		writePlain(&b, n)
	}
	return strings.TrimSpace(b.String())
}

func writePlain(b *strings.Builder, n Node) {
	switch n.Kind {
	case KindText:
		b.WriteString(n.Text)
	case KindLineBreak:
		b.WriteByte('\n')
	case KindImage:
		b.WriteString(n.Alt)
	default:
		for i, c := range n.Children {
			if i > 0 && c.Kind == KindListItem {
				b.WriteByte('\n')
			}
			writePlain(b, c)
		}
	}
}

// Clone returns a deep copy of the fragment.
func (f Fragment) Clone() Fragment {
	if f == nil {
		return nil
	}
	out := make(Fragment, len(f))
	for i, n := range f {
		out[i] = n.clone()
	}
	return out
}

func (n Node) clone() Node {
	if n.Children != nil {
		n.Children = []Node(Fragment(n.Children).Clone())
	}
	return n
}

// Validate reports the first structural invariant the fragment violates.
func (f Fragment) Validate() error {
	for i, n := range f {
		if err := validateNode(n, false, fmt.Sprintf("[%d]", i)); err != nil {
			return err
		}
	}
	return nil
}

func validateNode(n Node, inline bool, at string) error {
	if n.Kind < 0 || int(n.Kind) >= len(kindNames) {
		return fmt.Errorf("richtext: %s: unknown kind %d", at, int(n.Kind))
	}
	if inline && !n.Kind.IsInline() {
		return fmt.Errorf("richtext: %s: %s not allowed in inline content", at, n.Kind)
	}
	switch n.Kind {
	case KindText, KindImage, KindLineBreak:
		if len(n.Children) > 0 {
			return fmt.Errorf("richtext: %s: %s cannot have children", at, n.Kind)
		}
		return nil
	case KindUnorderedList, KindOrderedList:
		for i, c := range n.Children {
			path := fmt.Sprintf("%s.%s[%d]", at, n.Kind, i)
			if c.Kind != KindListItem {
				return fmt.Errorf("richtext: %s: lists may only contain list items, got %s", path, c.Kind)
			}
			if err := validateNode(c, false, path); err != nil {
				return err
			}
		}
		return nil
	}
	for i, c := range n.Children {
		if err := validateNode(c, true, fmt.Sprintf("%s.%s[%d]", at, n.Kind, i)); err != nil {
			return err
		}
	}
	return nil
}
