package richtext

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInline_BoldThenItalic(t *testing.T) {
	got := ParseInline("**bold** and *italic*")
	assert.Equal(t, Fragment{
		Bold(Text("bold")),
		Text(" and "),
		Italic(Text("italic")),
	}, got)
}

func TestParseInline_ImageAndLink(t *testing.T) {
	assert.Equal(t, Fragment{Image("a.png", "shot"), Text(" caption")}, ParseInline("![shot](a.png) caption"))

	got := ParseInline("see [**docs**](https://x.io) now")
	assert.Equal(t, Fragment{
		Text("see "),
		Link("https://x.io", Bold(Text("docs"))),
		Text(" now"),
	}, got)
}

func TestParseInline_NestedStyles(t *testing.T) {
	tests := []struct {
		in   string
		want Fragment
	}{
		{"**a *b* c**", Fragment{Bold(Text("a "), Italic(Text("b")), Text(" c"))}},
		{"**a *b***", Fragment{Bold(Text("a "), Italic(Text("b")))}},
		{"***b* a**", Fragment{Bold(Italic(Text("b")), Text(" a"))}},
		{"***x***", Fragment{Italic(Bold(Text("x")))}},
		{"*a **b***", Fragment{Italic(Text("a "), Bold(Text("b")))}},
		{"***a** c*", Fragment{Italic(Bold(Text("a")), Text(" c"))}},
		{"**a ~~b~~**", Fragment{Bold(Text("a "), Strikethrough(Text("b")))}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseInline(tt.in))
		})
	}
}

func TestParseInline_Strikethrough(t *testing.T) {
	assert.Equal(t, Fragment{Text("was "), Strikethrough(Text("old"))}, ParseInline("was ~~old~~"))
}

func TestParseInline_SkipsMatchesCrossingNodes(t *testing.T) {
	got := ParseInline("**a [b** c](u)")
	assert.Equal(t, Fragment{Text("**a "), Link("u", Text("b** c"))}, got)
}

func TestParseInline_PlainAndEmpty(t *testing.T) {
	assert.Nil(t, ParseInline(""))
	assert.Equal(t, Fragment{Text("2 * 3 = 6")}, ParseInline("2 * 3 = 6"))
}

func TestParseBlock_AdjacentListsStayDistinct(t *testing.T) {
	got := ParseBlock("- a\n- b\n1. x\n2. y")
	require.Len(t, got, 2)
	assert.Equal(t, UnorderedList(ListItem(Text("a")), ListItem(Text("b"))), got[0])
	assert.Equal(t, OrderedList(ListItem(Text("x")), ListItem(Text("y"))), got[1])
	assert.Equal(t, "- a\n- b\n\n1. x\n2. y", Render(got))
}

func TestParseBlock_ParagraphGrouping(t *testing.T) {
	got := ParseBlock("one\ntwo\n\nthree\n- item\nfour")
	assert.Equal(t, Fragment{
		Paragraph(Text("one"), LineBreak(), Text("two")),
		Paragraph(Text("three")),
		UnorderedList(ListItem(Text("item"))),
		Paragraph(Text("four")),
	}, got)
}

func TestParseBlock_BlankLineSplitsList(t *testing.T) {
	got := ParseBlock("- a\n\n- b")
	require.Len(t, got, 2)
	assert.Equal(t, KindUnorderedList, got[0].Kind)
	assert.Equal(t, KindUnorderedList, got[1].Kind)
}

func TestRender_Nodes(t *testing.T) {
	tests := []struct {
		name string
		in   Fragment
		want string
	}{
		{"paragraph", Fragment{Paragraph(Text("  hi  "))}, "hi"},
		{"line break", Fragment{Paragraph(Text("one"), LineBreak(), Text("two"))}, "one\ntwo"},
		{"image", Fragment{Paragraph(Image("i.png", "alt"))}, "![alt](i.png)"},
		{"image without src", Fragment{Paragraph(Text("x "), Image("", "alt"))}, "x"},
		{"styles", Fragment{Paragraph(Bold(Italic(Text("x"))), Strikethrough(Text("y")))}, "***x***~~y~~"},
		{"link", Fragment{Paragraph(Link("https://e.com", Text("site")))}, "[site](https://e.com)"},
		{"ordered", Fragment{OrderedList(ListItem(Text("a")), ListItem(Text("b")))}, "1. a\n2. b"},
		{"nested list", Fragment{UnorderedList(ListItem(Text("a"), UnorderedList(ListItem(Text("b")))))}, "- a\n  - b"},
		{"collapse", Fragment{Paragraph(Text("a"), LineBreak(), LineBreak(), LineBreak(), Text("b"))}, "a\n\nb"},
		{"chunks", Fragment{Paragraph(Text("a")), Paragraph(), Paragraph(Text("b"))}, "a\n\nb"},
		{"unknown kind", Fragment{{Kind: Kind(99), Children: []Node{Text("kept")}}}, "kept"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.in))
		})
	}
}

func TestNormalize(t *testing.T) {
	in := Fragment{
		Text("loose "),
		Bold(Text("run")),
		UnorderedList(
			ListItem(Text("a"), OrderedList(ListItem(Text("b")))),
			ListItem(),
		),
		Paragraph(Text("x"), LineBreak(), LineBreak(), Text("y")),
		Paragraph(Text("  ")),
	}
	assert.Equal(t, Fragment{
		Paragraph(Text("loose "), Bold(Text("run"))),
		UnorderedList(ListItem(Text("a")), ListItem(Text("b"))),
		Paragraph(Text("x")),
		Paragraph(Text("y")),
	}, Normalize(in))
}

func TestNormalize_FlattensBreaksInsideItems(t *testing.T) {
	in := Fragment{UnorderedList(ListItem(Text("a"), LineBreak(), Text("b")))}
	assert.Equal(t, Fragment{UnorderedList(ListItem(Text("a b")))}, Normalize(in))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Fragment{Paragraph(Bold(Link("u", Text("x"))))}.Validate())

	err := Fragment{UnorderedList(ListItem(Text("a"), UnorderedList(ListItem(Text("b")))))}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not allowed in inline content")

	err = Fragment{UnorderedList(Text("x"))}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lists may only contain list items")

	err = Fragment{Image("a", "b")}.Validate()
	assert.NoError(t, err)
	err = Fragment{{Kind: KindImage, Children: []Node{Text("x")}}}.Validate()
	assert.Error(t, err)
}

func TestRoundTrip(t *testing.T) {
	f := Fragment{
		Paragraph(
			Text("Intro with "), Bold(Text("bold")), Text(", "), Italic(Text("italic")),
			Text(" and "), Strikethrough(Text("gone")), Text("."),
		),
		UnorderedList(
			ListItem(Link("https://example.com", Text("a link"))),
			ListItem(Image("shot.png", "Screen")),
		),
		OrderedList(ListItem(Text("first")), ListItem(Text("second"))),
		Paragraph(Text("line one"), LineBreak(), Text("line two")),
		Paragraph(
			Bold(Text("a "), Italic(Text("b")), Text(" c")), Text(" "),
			Italic(Text("d "), Bold(Text("e"))), Text(" "),
			Bold(Text("f "), Strikethrough(Text("g"))),
		),
	}
	md := Render(f)
	assert.Equal(t, "Intro with **bold**, *italic* and ~~gone~~.\n\n"+
		"- [a link](https://example.com)\n- ![Screen](shot.png)\n\n"+
		"1. first\n2. second\n\n"+
		"line one\nline two\n\n"+
		"**a *b* c** *d **e*** **f ~~g~~**", md)

	decoded := ParseBlock(md)
	assert.Equal(t, Normalize(f), decoded)
	assert.Equal(t, md, Render(decoded))
}

func TestFromHTML(t *testing.T) {
	src := `<p>Hello <strong>world</strong></p><ul><li>one</li><li><em>two</em></li></ul>` +
		`<p>see <a href="https://e.com">site</a><br>next</p><img src="i.png" alt="pic"><script>x()</script>`
	got, err := FromHTML(src)
	require.NoError(t, err)
	assert.Equal(t, Fragment{
		Paragraph(Text("Hello "), Bold(Text("world"))),
		UnorderedList(ListItem(Text("one")), ListItem(Italic(Text("two")))),
		Paragraph(Text("see "), Link("https://e.com", Text("site")), LineBreak(), Text("next")),
		Paragraph(Image("i.png", "pic")),
	}, got)
}

func TestToHTML(t *testing.T) {
	f := Fragment{
		Paragraph(Text("a < b"), Bold(Text("x")), LineBreak(), Link("https://e.com", Text("e"))),
		OrderedList(ListItem(Text("1"))),
	}
	assert.Equal(t,
		`<p>a &lt; b<strong>x</strong><br><a href="https://e.com">e</a></p><ol><li>1</li></ol>`,
		ToHTML(f))
}

func TestKindJSON(t *testing.T) {
	b, err := json.Marshal(Bold(Text("x")))
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"bold","children":[{"kind":"text","text":"x"}]}`, string(b))

	var n Node
	require.NoError(t, json.Unmarshal([]byte(`{"kind":"ordered_list","children":[{"kind":"list_item"}]}`), &n))
	assert.Equal(t, KindOrderedList, n.Kind)
	assert.Equal(t, KindListItem, n.Children[0].Kind)

	assert.Error(t, json.Unmarshal([]byte(`{"kind":"table"}`), &n))
}

func TestPlainText(t *testing.T) {
	f := Fragment{
		Paragraph(Text("Hello "), Bold(Text("there"))),
		UnorderedList(ListItem(Text("a")), ListItem(Image("x.png", "pic"))),
	}
	assert.Equal(t, "Hello there\na\npic", f.PlainText())
}
