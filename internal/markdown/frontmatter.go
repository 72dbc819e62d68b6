// Package markdown converts report documents to and from markdown files with
// a key/value front matter block.
package markdown

import (
	"strings"
)

const delim = "---"

// FrontMatter is the fixed key set written at the top of a report file.
type FrontMatter struct {
	Title    string
	Date     string
	Category string
	Author   string
}

// String renders fm between delimiter lines. Date is written bare; the other
// values are double-quoted with inner quotes backslash-escaped. Author is
// omitted when empty.
func (fm FrontMatter) String() string {
	lines := []string{
		delim,
		"title: " + quote(fm.Title),
		"date: " + singleLine(fm.Date),
		"category: " + quote(fm.Category),
	}
	if fm.Author != "" {
		lines = append(lines, "author: "+quote(fm.Author))
	}
	lines = append(lines, delim)
	return strings.Join(lines, "\n")
}

// Split separates the front matter from the body. The block must start on
// the first line and is closed by the next line beginning with "---"; without
// a closing line the whole text is body and ok is false. Line endings are
// normalised to LF.
func Split(text string) (fm FrontMatter, body string, ok bool) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if !strings.HasPrefix(text, delim) {
		return FrontMatter{}, text, false
	}
	lines := strings.Split(text, "\n")
	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.HasPrefix(lines[i], delim) {
			end = i
			break
		}
	}
	if end < 0 {
		return FrontMatter{}, text, false
	}
	for _, line := range lines[1:end] {
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		value = unquote(strings.TrimSpace(value))
		switch strings.TrimSpace(key) {
		case "title":
			fm.Title = value
		case "date":
			fm.Date = value
		case "category":
			fm.Category = value
		case "author":
			fm.Author = value
		}
	}
	return fm, strings.Join(lines[end+1:], "\n"), true
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(singleLine(s), `"`, `\"`) + `"`
}

// unquote strips one layer of surrounding double quotes and reverses the
// quote escaping.
func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	return strings.ReplaceAll(s, `\"`, `"`)
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// singleLine folds line breaks into spaces so a value cannot spill out of
// its line.
func singleLine(s string) string {
	return lineBreaks.Replace(s)
}
