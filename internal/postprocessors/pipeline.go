package postprocessors

import (
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/custodia-labs/releasetrain-lake/internal/core/domain"
	"github.com/custodia-labs/releasetrain-lake/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.PostProcessorPipeline = (*Pipeline)(nil)

// Pipeline implements PostProcessorPipeline.
// It chains the sentence stages in order, starting from a single candidate
// holding the whole document text.
type Pipeline struct {
	mu         sync.RWMutex
	processors []driven.PostProcessor
	sorted     bool
}

// NewPipeline creates a new post-processor pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{
		processors: make([]driven.PostProcessor, 0),
	}
}

// Add adds a processor to the pipeline.
// Processors are sorted by Order() before processing.
func (p *Pipeline) Add(processor driven.PostProcessor) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.processors = append(p.processors, processor)
	p.sorted = false
}

// Process applies all processors in order and returns every candidate,
// dropped ones included.
func (p *Pipeline) Process(content string) []driven.Candidate {
	p.mu.Lock()
	if !p.sorted {
		sort.SliceStable(p.processors, func(i, j int) bool {
			return p.processors[i].Order() < p.processors[j].Order()
		})
		p.sorted = true
	}
	processors := make([]driven.PostProcessor, len(p.processors))
	copy(processors, p.processors)
	p.mu.Unlock()

	candidates := []driven.Candidate{{Text: content}}
	for _, proc := range processors {
		candidates = proc.Process(candidates)
	}
	return candidates
}

// List returns processor names in order.
func (p *Pipeline) List() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, len(p.processors))
	for i, proc := range p.processors {
		names[i] = proc.Name()
	}
	return names
}

// DefaultPipeline creates the Silver sentence pipeline: clean, segment,
// tag, filter, dedup.
func DefaultPipeline(vocab driven.VendorVocabulary) *Pipeline {
	p := NewPipeline()
	p.Add(NewCleaner())
	p.Add(NewSegmenter(domain.MinSentenceLength))
	p.Add(NewTagger(vocab, domain.DefaultSentenceVendorHits))
	p.Add(NewKeepFilter())
	p.Add(NewDeduplicator())
	return p
}

var (
	calloutPattern  = regexp.MustCompile(`\[!\w+\]`)
	markdownPattern = regexp.MustCompile("[#>*`]")
	hspacePattern   = regexp.MustCompile(`[\t\f\v\p{Zs}]+`)
)

// Cleaner strips markdown artifacts and callouts such as [!NOTE].
// Line breaks survive so the segmenter can split on them.
type Cleaner struct{}

// Verify interface compliance
var _ driven.PostProcessor = (*Cleaner)(nil)

// NewCleaner creates a new cleaner.
func NewCleaner() *Cleaner {
	return &Cleaner{}
}

// Process cleans every candidate.
func (c *Cleaner) Process(candidates []driven.Candidate) []driven.Candidate {
	result := make([]driven.Candidate, 0, len(candidates))
	for _, cand := range candidates {
		text := strings.ReplaceAll(cand.Text, "\r\n", "\n")
		text = calloutPattern.ReplaceAllString(text, " ")
		text = markdownPattern.ReplaceAllString(text, " ")
		text = hspacePattern.ReplaceAllString(text, " ")
		cand.Text = strings.TrimSpace(text)
		result = append(result, cand)
	}
	return result
}

// Name returns the processor name.
func (c *Cleaner) Name() string {
	return "cleaner"
}

// Order returns 0 - cleaning runs first.
func (c *Cleaner) Order() int {
	return 0
}

// Segmenter splits text into sentences.
// A sentence ends at '.', '?' or '!' followed by whitespace, or at a line
// break. Fragments shorter than minLength characters are discarded.
type Segmenter struct {
	minLength int
}

// Verify interface compliance
var _ driven.PostProcessor = (*Segmenter)(nil)

// NewSegmenter creates a segmenter discarding fragments under minLength.
func NewSegmenter(minLength int) *Segmenter {
	return &Segmenter{minLength: minLength}
}

// Process splits every candidate and numbers the sentences from 1.
func (s *Segmenter) Process(candidates []driven.Candidate) []driven.Candidate {
	var result []driven.Candidate
	position := 0

	for _, cand := range candidates {
		for _, sentence := range splitSentences(cand.Text) {
			sentence = strings.Join(strings.Fields(sentence), " ")
			if utf8.RuneCountInString(sentence) < s.minLength {
				continue
			}
			position++
			result = append(result, driven.Candidate{Text: sentence, Position: position})
		}
	}

	return result
}

// Name returns the processor name.
func (s *Segmenter) Name() string {
	return "segmenter"
}

// Order returns 10 - segmentation runs after cleaning.
func (s *Segmenter) Order() int {
	return 10
}

// splitSentences cuts text after terminal punctuation that is followed by
// whitespace, and at every run of line breaks.
func splitSentences(text string) []string {
	var parts []string
	runes := []rune(text)
	start := 0

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '\n' || r == '\r':
			parts = append(parts, string(runes[start:i]))
			for i+1 < len(runes) && (runes[i+1] == '\n' || runes[i+1] == '\r') {
				i++
			}
			start = i + 1
		case (r == '.' || r == '?' || r == '!') && i+1 < len(runes) && unicode.IsSpace(runes[i+1]):
			parts = append(parts, string(runes[start:i+1]))
			for i+1 < len(runes) && unicode.IsSpace(runes[i+1]) && runes[i+1] != '\n' && runes[i+1] != '\r' {
				i++
			}
			start = i + 1
		}
	}
	if start < len(runes) {
		parts = append(parts, string(runes[start:]))
	}

	return parts
}

// Tagger detects intent flags and extracts versions, CVE ids and vendor
// mentions.
type Tagger struct {
	vocab   driven.VendorVocabulary
	maxHits int
}

// Verify interface compliance
var _ driven.PostProcessor = (*Tagger)(nil)

// NewTagger creates a tagger recording at most maxHits vendors per sentence.
func NewTagger(vocab driven.VendorVocabulary, maxHits int) *Tagger {
	return &Tagger{vocab: vocab, maxHits: maxHits}
}

// Process tags every candidate.
func (t *Tagger) Process(candidates []driven.Candidate) []driven.Candidate {
	var vendors *domain.VendorSet
	if t.vocab != nil {
		vendors = t.vocab.Vendors()
	}

	result := make([]driven.Candidate, 0, len(candidates))
	for _, cand := range candidates {
		cand.Flags = domain.DetectIntentFlags(cand.Text)
		cand.Versions = domain.ExtractVersions(cand.Text)
		cand.CVEs = domain.ExtractCVEs(cand.Text)
		cand.Vendors = vendors.MatchAll(cand.Text, t.maxHits)
		result = append(result, cand)
	}
	return result
}

// Name returns the processor name.
func (t *Tagger) Name() string {
	return "tagger"
}

// Order returns 20 - tagging runs on segmented sentences.
func (t *Tagger) Order() int {
	return 20
}

// KeepFilter marks low-value sentences as dropped.
type KeepFilter struct{}

// Verify interface compliance
var _ driven.PostProcessor = (*KeepFilter)(nil)

// NewKeepFilter creates a new keep filter.
func NewKeepFilter() *KeepFilter {
	return &KeepFilter{}
}

// Process applies domain.KeepSentence to every candidate.
func (k *KeepFilter) Process(candidates []driven.Candidate) []driven.Candidate {
	for i := range candidates {
		if !domain.KeepSentence(candidates[i].Text, candidates[i].Vendors, candidates[i].Flags) {
			candidates[i].Dropped = true
		}
	}
	return candidates
}

// Name returns the processor name.
func (k *KeepFilter) Name() string {
	return "keep-filter"
}

// Order returns 30 - filtering needs the tags.
func (k *KeepFilter) Order() int {
	return 30
}

// Deduplicator drops kept sentences repeating an earlier kept sentence of
// the same document, compared case-insensitively.
type Deduplicator struct{}

// Verify interface compliance
var _ driven.PostProcessor = (*Deduplicator)(nil)

// NewDeduplicator creates a new deduplicator.
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{}
}

// Process marks repeated sentences as dropped.
func (d *Deduplicator) Process(candidates []driven.Candidate) []driven.Candidate {
	seen := make(map[string]bool)
	for i := range candidates {
		if candidates[i].Dropped {
			continue
		}
		key := strings.ToLower(candidates[i].Text)
		if seen[key] {
			candidates[i].Dropped = true
			continue
		}
		seen[key] = true
	}
	return candidates
}

// Name returns the processor name.
func (d *Deduplicator) Name() string {
	return "deduplicator"
}

// Order returns 40 - dedup only looks at kept sentences.
func (d *Deduplicator) Order() int {
	return 40
}
