package richtext

import (
	"regexp"
	"strings"
)

var (
	imageRe  = regexp.MustCompile(`!\[([^\]]*)\]\(([^)]+)\)`)
	linkRe   = regexp.MustCompile(`\[([^\]]*)\]\(([^)]+)\)`)
	italicRe = regexp.MustCompile(`\*([^*]+)\*`)
	strikeRe = regexp.MustCompile(`~~([^~]+)~~`)

	unorderedItemRe = regexp.MustCompile(`^-\s+(.+)`)
	orderedItemRe   = regexp.MustCompile(`^\d+\.\s+(.+)`)
)

// Inline patterns are applied as successive substitutions over the line.
// Each match is replaced with marker runes from the private use areas so
// later patterns see the earlier result as opaque text: they can wrap it but
// cannot re-match the delimiters it consumed.
const (
	boldOpen    = '\uE001'
	boldClose   = '\uE002'
	italicOpen  = '\uE003'
	italicClose = '\uE004'
	strikeOpen  = '\uE005'
	strikeClose = '\uE006'
	linkClose   = '\uE007'

	linkOpenBase = 0xF0000 // + link index
	imageBase    = 0xF8000 // + image index
	markerLimit  = 0xFFFFD
)

func isMarker(r rune) bool {
	return (r >= boldOpen && r <= linkClose) || (r >= linkOpenBase && r <= markerLimit)
}

func closerFor(r rune) rune {
	switch {
	case r == boldOpen:
		return boldClose
	case r == italicOpen:
		return italicClose
	case r == strikeOpen:
		return strikeClose
	case r >= linkOpenBase && r < imageBase:
		return linkClose
	}
	return 0
}

// ParseInline converts one line of markdown into inline nodes: images,
// links, bold, italic and strikethrough, in that order.
func ParseInline(line string) Fragment {
	if line == "" {
		return nil
	}
	if strings.ContainsFunc(line, isMarker) {
		return Fragment{Text(line)}
	}
	p := &inlineParser{}
	s := imageRe.ReplaceAllStringFunc(line, p.image)
	s = linkRe.ReplaceAllStringFunc(s, p.link)
	s = wrapBold(s)
	s = wrap(italicRe, s, italicOpen, italicClose)
	s = wrap(strikeRe, s, strikeOpen, strikeClose)
	return p.build(s)
}

type inlineParser struct {
	images []Node
	links  []string
}

func (p *inlineParser) image(match string) string {
	if imageBase+len(p.images) > markerLimit {
		return match
	}
	m := imageRe.FindStringSubmatch(match)
	p.images = append(p.images, Image(m[2], m[1]))
	return string(rune(imageBase + len(p.images) - 1))
}

func (p *inlineParser) link(match string) string {
	m := linkRe.FindStringSubmatch(match)
	if linkOpenBase+len(p.links) >= imageBase || strings.ContainsFunc(m[2], isMarker) {
		return match
	}
	p.links = append(p.links, m[2])
	return string(rune(linkOpenBase+len(p.links)-1)) + m[1] + string(linkClose)
}

// wrap substitutes every match of re with its captured text between opener
// and closer. A match whose captured text would cut across an existing node
// is left as it is.
func wrap(re *regexp.Regexp, s string, opener, closer rune) string {
	return re.ReplaceAllStringFunc(s, func(match string) string {
		inner := re.FindStringSubmatch(match)[1]
		if !balanced(inner) {
			return match
		}
		return string(opener) + inner + string(closer)
	})
}

// wrapBold substitutes every **text** span. The text may hold single
// asterisks as long as they pair up, so italic nested in bold survives. A
// run of three asterisks opens with its last two when that closes, which
// reads ***x*** as italic around bold.
func wrapBold(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); {
		open, end := boldAt(s, i)
		if end < 0 {
			b.WriteByte(s[i])
			i++
			continue
		}
		b.WriteString(s[i:open])
		b.WriteRune(boldOpen)
		b.WriteString(s[open+2 : end])
		b.WriteRune(boldClose)
		i = end + 2
	}
	return b.String()
}

// boldAt returns the offsets of the opening and closing "**" of a bold span
// starting at i. end is -1 when there is none.
func boldAt(s string, i int) (open, end int) {
	if !strings.HasPrefix(s[i:], "**") {
		return i, -1
	}
	if strings.HasPrefix(s[i:], "***") {
		if end := boldEnd(s, i+1); end >= 0 {
			return i + 1, end
		}
	}
	return i, boldEnd(s, i)
}

// boldEnd finds the first closing "**" for the opener at open whose enclosed
// text is non-empty, pairs its single asterisks and stays within one node.
func boldEnd(s string, open int) int {
	for j := open + 3; j+2 <= len(s); j++ {
		if s[j] != '*' || s[j+1] != '*' {
			continue
		}
		inner := s[open+2 : j]
		if strings.Count(inner, "*")%2 == 0 && balanced(inner) {
			return j
		}
	}
	return -1
}

func balanced(s string) bool {
	var want []rune
	for _, r := range s {
		if c := closerFor(r); c != 0 {
			want = append(want, c)
			continue
		}
		switch r {
		case boldClose, italicClose, strikeClose, linkClose:
			if len(want) == 0 || want[len(want)-1] != r {
				return false
			}
			want = want[:len(want)-1]
		}
	}
	return len(want) == 0
}

// build turns the marked-up line into a node tree.
func (p *inlineParser) build(s string) Fragment {
	stack := []Node{{}}
	var text strings.Builder
	flush := func() {
		if text.Len() == 0 {
			return
		}
		top := &stack[len(stack)-1]
		top.Children = append(top.Children, Text(text.String()))
		text.Reset()
	}
	push := func(n Node) {
		flush()
		stack = append(stack, n)
	}
	pop := func() {
		flush()
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		top := &stack[len(stack)-1]
		top.Children = append(top.Children, n)
	}
	for _, r := range s {
		switch {
		case r == boldOpen:
			push(Node{Kind: KindBold})
		case r == italicOpen:
			push(Node{Kind: KindItalic})
		case r == strikeOpen:
			push(Node{Kind: KindStrikethrough})
		case r >= linkOpenBase && r < imageBase:
			push(Link(p.links[r-linkOpenBase]))
		case r >= imageBase && r <= markerLimit:
			flush()
			top := &stack[len(stack)-1]
			top.Children = append(top.Children, p.images[r-imageBase])
		case r == boldClose || r == italicClose || r == strikeClose || r == linkClose:
			if len(stack) > 1 {
				pop()
			}
		default:
			text.WriteRune(r)
		}
	}
	for len(stack) > 1 {
		pop()
	}
	flush()
	return Fragment(stack[0].Children)
}

// listState is the block parser's position relative to lists.
type listState int

const (
	listNone listState = iota
	listUnordered
	listOrdered
)

func (s listState) kind() Kind {
	if s == listOrdered {
		return KindOrderedList
	}
	return KindUnorderedList
}

type blockParser struct {
	out   Fragment
	state listState
	items []Node
	para  []Node
}

// ParseBlock converts multi-line markdown into paragraphs and lists.
// Consecutive plain lines form one paragraph joined by line breaks; a blank
// line ends the current paragraph or list.
func ParseBlock(text string) Fragment {
	p := &blockParser{}
	for _, raw := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line := strings.TrimSpace(raw)
		if m := unorderedItemRe.FindStringSubmatch(line); m != nil {
			p.item(listUnordered, m[1])
			continue
		}
		if m := orderedItemRe.FindStringSubmatch(line); m != nil {
			p.item(listOrdered, m[1])
			continue
		}
		if line == "" {
			p.closeParagraph()
			p.closeList()
			continue
		}
		p.plain(line)
	}
	p.closeParagraph()
	p.closeList()
	return p.out
}

func (p *blockParser) item(state listState, content string) {
	p.closeParagraph()
	if p.state != state {
		p.closeList()
		p.state = state
	}
	p.items = append(p.items, ListItem(ParseInline(content)...))
}

func (p *blockParser) plain(line string) {
	p.closeList()
	if len(p.para) > 0 {
		p.para = append(p.para, LineBreak())
	}
	p.para = append(p.para, ParseInline(line)...)
}

func (p *blockParser) closeList() {
	if p.state == listNone {
		return
	}
	p.out = append(p.out, Node{Kind: p.state.kind(), Children: p.items})
	p.items = nil
	p.state = listNone
}

func (p *blockParser) closeParagraph() {
	if len(p.para) == 0 {
		return
	}
	p.out = append(p.out, Paragraph(p.para...))
	p.para = nil
}
