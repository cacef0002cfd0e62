package normalisers

import (
	"strings"
	"testing"
)

func TestDetectMIMEType(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{"<p>Fedora 40 is out</p>", MIMEHTML},
		{"## Highlights\n- faster boot", MIMEMarkdown},
		{"See the **kernel** update", MIMEMarkdown},
		{"> [!NOTE]\n> read this", MIMEMarkdown},
		{"Fedora 40 is out. Enjoy.", MIMEPlain},
	}
	for _, tt := range tests {
		if got := DetectMIMEType(tt.body); got != tt.want {
			t.Errorf("DetectMIMEType(%q) = %s, want %s", tt.body, got, tt.want)
		}
	}
}

func TestMarkdownNormaliser(t *testing.T) {
	n := &MarkdownNormaliser{}
	got := n.Normalise("## Highlights\n\n- Kernel 6.8 update\n- **GNOME** 46 release\n\nSee [notes](https://example.com).", MIMEMarkdown)

	lines := strings.Split(got, "\n")
	want := []string{"Highlights", "Kernel 6.8 update", "GNOME 46 release", "See notes."}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %d: %q", len(want), len(lines), got)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d: expected %q, got %q", i, want[i], lines[i])
		}
	}
}

func TestHTMLNormaliser(t *testing.T) {
	n := &HTMLNormaliser{}
	got := n.Normalise(`<div><p>Ubuntu &amp; Debian   news</p><script>alert(1)</script><ul><li>one</li><li>two</li></ul></div>`, MIMEHTML)

	if got != "Ubuntu & Debian news\none\ntwo" {
		t.Errorf("unexpected text %q", got)
	}
}

func TestPlaintextNormaliser(t *testing.T) {
	n := &PlaintextNormaliser{}
	if got := n.Normalise("a\r\nb\rc  ", MIMEPlain); got != "a\nb\nc" {
		t.Errorf("unexpected text %q", got)
	}
}
