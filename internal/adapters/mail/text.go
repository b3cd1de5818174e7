package mail

import (
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTMLToText derives the plain-text alternative of an HTML body. Links keep
// their target in parentheses; script and style content is dropped.
func HTMLToText(src string) (string, error) {
	z := html.NewTokenizer(strings.NewReader(src))
	var (
		b     strings.Builder
		skip  int
		hrefs []string
	)
	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return "", err
			}
			return tidy(b.String()), nil
		case html.TextToken:
			if skip == 0 {
				b.WriteString(collapse(string(z.Text())))
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			switch tok.DataAtom {
			case atom.Script, atom.Style, atom.Head:
				skip++
			case atom.Br:
				b.WriteString("\n")
			case atom.Li:
				b.WriteString("\n- ")
			case atom.A:
				hrefs = append(hrefs, attr(tok, "href"))
			default:
				if isBlock(tok.DataAtom) {
					b.WriteString("\n\n")
				}
			}
		case html.EndTagToken:
			tok := z.Token()
			switch tok.DataAtom {
			case atom.Script, atom.Style, atom.Head:
				if skip > 0 {
					skip--
				}
			case atom.A:
				if n := len(hrefs); n > 0 {
					if href := hrefs[n-1]; href != "" && skip == 0 {
						b.WriteString(" (" + href + ")")
					}
					hrefs = hrefs[:n-1]
				}
			default:
				if isBlock(tok.DataAtom) {
					b.WriteString("\n\n")
				}
			}
		}
	}
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.H1, atom.H2, atom.H3, atom.H4, atom.Table, atom.Tr, atom.Ul, atom.Ol:
		return true
	}
	return false
}

func attr(tok html.Token, name string) string {
	for _, a := range tok.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

// collapse folds runs of whitespace inside a text node into single spaces.
func collapse(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		if s != "" {
			return " "
		}
		return ""
	}
	out := strings.Join(fields, " ")
	if isSpace(s[0]) {
		out = " " + out
	}
	if isSpace(s[len(s)-1]) {
		out += " "
	}
	return out
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\t' || c == '\r'
}

// tidy trims every line and keeps at most one blank line between paragraphs.
func tidy(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, l)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
