package postprocessors

import (
	"reflect"
	"strings"
	"testing"

	"github.com/custodia-labs/releasetrain-lake/internal/core/domain"
	"github.com/custodia-labs/releasetrain-lake/internal/core/ports/driven"
)

type staticVocab struct {
	set *domain.VendorSet
}

func (s staticVocab) Vendors() *domain.VendorSet {
	return s.set
}

func vocab(names ...string) driven.VendorVocabulary {
	return staticVocab{set: domain.NewVendorSet(names)}
}

func texts(candidates []driven.Candidate) []string {
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.Text
	}
	return out
}

func kept(candidates []driven.Candidate) []driven.Candidate {
	var out []driven.Candidate
	for _, c := range candidates {
		if !c.Dropped {
			out = append(out, c)
		}
	}
	return out
}

func TestNewPipeline(t *testing.T) {
	p := NewPipeline()
	if p == nil {
		t.Fatal("expected non-nil pipeline")
	}
	if len(p.processors) != 0 {
		t.Errorf("expected empty processors, got %d", len(p.processors))
	}
}

func TestPipeline_OrdersStages(t *testing.T) {
	p := NewPipeline()
	p.Add(NewKeepFilter())
	p.Add(NewTagger(nil, 3))
	p.Add(NewCleaner())
	p.Add(NewSegmenter(12))

	p.Process("")

	want := []string{"cleaner", "segmenter", "tagger", "keep-filter"}
	if got := p.List(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestDefaultPipeline_List(t *testing.T) {
	p := DefaultPipeline(vocab("ubuntu"))
	p.Process("x")

	want := []string{"cleaner", "segmenter", "tagger", "keep-filter", "deduplicator"}
	if got := p.List(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestCleaner(t *testing.T) {
	c := NewCleaner()
	got := c.Process([]driven.Candidate{{Text: "Release [!NOTE] notes\n> ## **Fedora**\t40  `released`"}})

	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	if strings.ContainsAny(got[0].Text, "#>*`[") {
		t.Errorf("markdown artifacts left in %q", got[0].Text)
	}
	if !strings.Contains(got[0].Text, "\n") {
		t.Error("cleaner must keep line breaks")
	}
	if strings.Contains(got[0].Text, "NOTE") {
		t.Error("callout marker should be removed")
	}
}

func TestSegmenter(t *testing.T) {
	s := NewSegmenter(12)
	got := s.Process([]driven.Candidate{{
		Text: "Fedora 40.2 is out now. Short one. Did it break anything?   Yes it did!\nLine two is long enough\n\n\nv2.0.1 is not a split point",
	}})

	want := []string{
		"Fedora 40.2 is out now.",
		"Did it break anything?",
		"Line two is long enough",
		"v2.0.1 is not a split point",
	}
	if !reflect.DeepEqual(texts(got), want) {
		t.Fatalf("expected %q, got %q", want, texts(got))
	}
	for i, c := range got {
		if c.Position != i+1 {
			t.Errorf("sentence %d: expected position %d, got %d", i, i+1, c.Position)
		}
	}
}

func TestSegmenter_Empty(t *testing.T) {
	if got := NewSegmenter(12).Process([]driven.Candidate{{Text: ""}}); len(got) != 0 {
		t.Errorf("expected no sentences, got %v", texts(got))
	}
}

func TestTagger(t *testing.T) {
	tagger := NewTagger(vocab("ubuntu", "debian", "fedora", "arch"), 3)
	got := tagger.Process([]driven.Candidate{
		{Text: "Ubuntu 24.04 and Debian 12.5 fixed CVE-2024-3094", Position: 1},
	})

	c := got[0]
	if !c.Flags.CVE || !c.Flags.Patch {
		t.Errorf("expected cve and patch flags, got %+v", c.Flags)
	}
	if !reflect.DeepEqual(c.Versions, []string{"24.04", "12.5"}) {
		t.Errorf("unexpected versions %v", c.Versions)
	}
	if !reflect.DeepEqual(c.CVEs, []string{"CVE-2024-3094"}) {
		t.Errorf("unexpected cves %v", c.CVEs)
	}
	if !reflect.DeepEqual(c.Vendors, []string{"debian", "ubuntu"}) {
		t.Errorf("unexpected vendors %v", c.Vendors)
	}
	if c.Position != 1 {
		t.Error("tagger must keep the position")
	}
}

func TestTagger_NilVocabulary(t *testing.T) {
	got := NewTagger(nil, 3).Process([]driven.Candidate{{Text: "A new release shipped today"}})
	if len(got[0].Vendors) != 0 {
		t.Errorf("expected no vendors, got %v", got[0].Vendors)
	}
	if !got[0].Flags.Version {
		t.Error("expected version flag")
	}
}

func TestKeepFilter(t *testing.T) {
	in := []driven.Candidate{
		{Text: "Ubuntu 24.04 released", Vendors: []string{"ubuntu"}},
		{Text: "The weather is nice today"},
		{Text: "https://example.com/some/path/to/a/page?id=12345"},
	}
	got := NewKeepFilter().Process(in)

	if got[0].Dropped {
		t.Error("vendor sentence must be kept")
	}
	if !got[1].Dropped {
		t.Error("sentence without signal must be dropped")
	}
	if !got[2].Dropped {
		t.Error("bare url must be dropped")
	}
}

func TestDeduplicator(t *testing.T) {
	in := []driven.Candidate{
		{Text: "Fedora 40 released", Position: 1},
		{Text: "noise", Position: 2, Dropped: true},
		{Text: "FEDORA 40 RELEASED", Position: 3},
		{Text: "noise", Position: 4},
	}
	got := NewDeduplicator().Process(in)

	if got[0].Dropped || !got[2].Dropped {
		t.Error("expected the second fedora line to be dropped")
	}
	if got[3].Dropped {
		t.Error("a dropped earlier copy must not shadow a kept one")
	}
}

func TestDefaultPipeline_Document(t *testing.T) {
	p := DefaultPipeline(vocab("fedora", "gnome"))

	doc := &domain.Document{
		Title:    "Fedora 40.2",
		BodyText: "## Highlights\nFedora 40.2 release is now available for download.\nThanks to everyone who tested it.\nSee https://fedoraproject.org/",
	}
	all := p.Process(doc.FullText())
	survivors := kept(all)

	want := []string{"Fedora 40.2.", "Fedora 40.2 release is now available for download."}
	if !reflect.DeepEqual(texts(survivors), want) {
		t.Fatalf("expected kept %q, got %q", want, texts(survivors))
	}
	if len(all) != 4 {
		t.Errorf("expected 4 segmented sentences, got %d: %q", len(all), texts(all))
	}
	if survivors[1].Position != 2 {
		t.Errorf("expected position 2, got %d", survivors[1].Position)
	}
}
