package normalisers

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/russross/blackfriday/v2"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// MIME types assigned by DetectMIMEType
const (
	MIMEPlain    = "text/plain"
	MIMEMarkdown = "text/markdown"
	MIMEHTML     = "text/html"
)

var (
	htmlTagPattern     = regexp.MustCompile(`(?i)</?(p|div|br|ul|ol|li|a|h[1-6]|span|strong|em|table|tr|td|pre|code)\b[^>]*>`)
	markdownLinePrefix = regexp.MustCompile(`(?m)^\s*(#{1,6}\s|[-*+]\s|>\s?|\d+\.\s|` + "```" + `)`)
	markdownInline     = regexp.MustCompile(`\*\*[^*]+\*\*|\[[^\]]+\]\([^)]+\)|` + "`[^`]+`")
)

// DetectMIMEType guesses the markup of an upstream body.
// Feeds do not declare a content type, so HTML tags win over markdown
// markers and anything else is plain text.
func DetectMIMEType(body string) string {
	switch {
	case htmlTagPattern.MatchString(body):
		return MIMEHTML
	case markdownLinePrefix.MatchString(body), markdownInline.MatchString(body):
		return MIMEMarkdown
	}
	return MIMEPlain
}

// PlaintextNormaliser handles plain text content.
type PlaintextNormaliser struct{}

func (n *PlaintextNormaliser) Normalise(content string, mimeType string) string {
	return normaliseLineEndings(content)
}

func (n *PlaintextNormaliser) SupportedTypes() []string {
	return []string{MIMEPlain, "*/*"}
}

func (n *PlaintextNormaliser) Priority() int {
	return 1
}

// MarkdownNormaliser renders markdown release notes and extracts their text.
type MarkdownNormaliser struct{}

func (n *MarkdownNormaliser) Normalise(content string, mimeType string) string {
	rendered := blackfriday.Run([]byte(normaliseLineEndings(content)))
	return htmlToText(rendered)
}

func (n *MarkdownNormaliser) SupportedTypes() []string {
	return []string{MIMEMarkdown, "text/x-markdown"}
}

func (n *MarkdownNormaliser) Priority() int {
	return 50
}

// HTMLNormaliser extracts text from HTML bodies.
type HTMLNormaliser struct{}

func (n *HTMLNormaliser) Normalise(content string, mimeType string) string {
	return htmlToText([]byte(content))
}

func (n *HTMLNormaliser) SupportedTypes() []string {
	return []string{MIMEHTML, "application/xhtml+xml"}
}

func (n *HTMLNormaliser) Priority() int {
	return 50
}

var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Li: true, atom.Ul: true, atom.Ol: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Pre: true, atom.Blockquote: true, atom.Table: true, atom.Tr: true, atom.Hr: true,
	atom.Section: true, atom.Article: true, atom.Header: true, atom.Footer: true,
}

// htmlToText walks the parsed document and emits its text with one line
// break per block element. Script and style contents are skipped.
func htmlToText(markup []byte) string {
	doc, err := html.Parse(bytes.NewReader(markup))
	if err != nil {
		return strings.TrimSpace(string(markup))
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode {
			if node.DataAtom == atom.Script || node.DataAtom == atom.Style {
				return
			}
			if blockElements[node.DataAtom] {
				b.WriteByte('\n')
			}
		}
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
		if node.Type == html.ElementNode && blockElements[node.DataAtom] {
			b.WriteByte('\n')
		}
	}
	walk(doc)

	return compactLines(b.String())
}

// compactLines trims every line, collapses inner runs of spaces and drops
// blank lines.
func compactLines(s string) string {
	lines := strings.Split(normaliseLineEndings(s), "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func normaliseLineEndings(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.TrimSpace(s)
}
