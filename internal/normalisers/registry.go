package normalisers

import (
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/releasetrain-lake/internal/core/ports/driven"
)

var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry selects a body normaliser by MIME type. Entries are kept in
// descending priority so the first match is the most specific one; equal
// priorities keep registration order.
type Registry struct {
	mu      sync.RWMutex
	entries []driven.Normaliser
}

func NewRegistry() *Registry {
	return &Registry{}
}

// DefaultRegistry holds the plaintext, markdown and HTML body normalisers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&PlaintextNormaliser{})
	r.Register(&MarkdownNormaliser{})
	r.Register(&HTMLNormaliser{})
	return r
}

func (r *Registry) Register(n driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()

	at := sort.Search(len(r.entries), func(i int) bool {
		return r.entries[i].Priority() < n.Priority()
	})
	r.entries = append(r.entries, nil)
	copy(r.entries[at+1:], r.entries[at:])
	r.entries[at] = n
}

// Get returns the highest priority normaliser for mimeType, or nil.
func (r *Registry) Get(mimeType string) driven.Normaliser {
	mimeType = baseMIMEType(mimeType)

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, n := range r.entries {
		for _, pattern := range n.SupportedTypes() {
			if mimeMatches(pattern, mimeType) {
				return n
			}
		}
	}
	return nil
}

// List returns the sorted set of supported MIME patterns.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var out []string
	for _, n := range r.entries {
		for _, t := range n.SupportedTypes() {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	sort.Strings(out)
	return out
}

// Normalise converts content declared as mimeType, trimming it when no
// normaliser applies.
func (r *Registry) Normalise(content, mimeType string) string {
	if n := r.Get(mimeType); n != nil {
		return n.Normalise(content, mimeType)
	}
	return strings.TrimSpace(content)
}

// NormaliseBody is Normalise with the type sniffed by DetectMIMEType. Feed
// bodies carry no content type.
func (r *Registry) NormaliseBody(body string) string {
	return r.Normalise(body, DetectMIMEType(body))
}

// baseMIMEType lower-cases t and drops parameters such as charset.
func baseMIMEType(t string) string {
	t, _, _ = strings.Cut(t, ";")
	return strings.ToLower(strings.TrimSpace(t))
}

// mimeMatches reports whether pattern ("text/html", "text/*" or "*/*")
// covers mimeType.
func mimeMatches(pattern, mimeType string) bool {
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	switch {
	case pattern == "*/*", pattern == mimeType:
		return true
	case strings.HasSuffix(pattern, "/*"):
		return strings.HasPrefix(mimeType, strings.TrimSuffix(pattern, "*"))
	}
	return false
}
