package normalisers

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/releasetrain-lake/internal/core/domain"
	"github.com/custodia-labs/releasetrain-lake/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ItemNormaliserRegistry = (*ItemRegistry)(nil)

// UntitledDocument is the title used when an item carries none.
const UntitledDocument = "Untitled"

// ItemRegistry maps each source to its item normaliser.
type ItemRegistry struct {
	mu          sync.RWMutex
	normalisers map[domain.Source]driven.ItemNormaliser
}

// NewItemRegistry creates an empty item registry.
func NewItemRegistry() *ItemRegistry {
	return &ItemRegistry{normalisers: make(map[domain.Source]driven.ItemNormaliser)}
}

// DefaultItemRegistry registers the os and reddit normalisers, both
// converting bodies through bodies.
func DefaultItemRegistry(bodies driven.NormaliserRegistry) *ItemRegistry {
	r := NewItemRegistry()
	r.Register(NewReleaseNormaliser(bodies))
	r.Register(NewRedditNormaliser(bodies))
	return r
}

func (r *ItemRegistry) Get(source domain.Source) driven.ItemNormaliser {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.normalisers[source]
}

func (r *ItemRegistry) Register(n driven.ItemNormaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.normalisers[n.Source()] = n
}

func (r *ItemRegistry) List() []domain.Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Source, 0, len(r.normalisers))
	for s := range r.normalisers {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// fieldMapping lists, per canonical field, the raw keys tried in order.
type fieldMapping struct {
	title []string
	body  []string
	url   []string
	date  []string
	// epochKeys hold unix seconds rather than ISO strings
	epochKeys map[string]bool
}

// mappedNormaliser applies a fieldMapping and converts the body to text.
type mappedNormaliser struct {
	source  domain.Source
	mapping fieldMapping
	bodies  driven.NormaliserRegistry
	// resolveURL may rewrite a raw url value before the http check
	resolveURL func(string) string
}

func (n *mappedNormaliser) Source() domain.Source {
	return n.source
}

func (n *mappedNormaliser) Normalise(item domain.RawItem) (*domain.Document, error) {
	if item == nil {
		return nil, fmt.Errorf("%w: empty item", domain.ErrInvalidInput)
	}

	title := firstString(item, n.mapping.title)
	if title == "" {
		title = UntitledDocument
	}

	body := firstString(item, n.mapping.body)
	if body != "" && n.bodies != nil {
		body = n.bodies.NormaliseBody(body)
	}

	url := n.pickURL(item)
	raw, err := json.Marshal(item)
	if err != nil {
		raw = []byte("{}")
	}

	return &domain.Document{
		ID:          domain.DocumentID(n.source, url, title),
		Source:      n.source,
		Title:       title,
		BodyText:    body,
		URL:         url,
		PublishedAt: pickTimestamp(item, n.mapping.date, n.mapping.epochKeys),
		RawJSON:     string(raw),
	}, nil
}

func (n *mappedNormaliser) pickURL(item domain.RawItem) string {
	for _, key := range n.mapping.url {
		v, ok := item[key].(string)
		if !ok {
			continue
		}
		v = strings.TrimSpace(v)
		if n.resolveURL != nil {
			v = n.resolveURL(v)
		}
		if strings.HasPrefix(v, "http") {
			return v
		}
	}
	return ""
}

// firstString returns the first non-blank string value among keys.
func firstString(item domain.RawItem, keys []string) string {
	for _, key := range keys {
		if v, ok := item[key].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// pickTimestamp returns the first parseable timestamp among keys as RFC3339
// UTC, or "" when none parses.
func pickTimestamp(item domain.RawItem, keys []string, epochKeys map[string]bool) string {
	for _, key := range keys {
		v, ok := item[key]
		if !ok || v == nil {
			continue
		}
		if epochKeys[key] {
			if t, ok := epochSeconds(v); ok {
				return domain.FormatTimestamp(t)
			}
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		if t, err := domain.ParseTimestamp(s); err == nil {
			return domain.FormatTimestamp(t)
		}
	}
	return ""
}

// maxEpochSeconds is roughly the year 5138. Larger values are usually
// milliseconds and overflow int64 once converted to nanoseconds.
const maxEpochSeconds = 1e11

func epochSeconds(v any) (time.Time, bool) {
	var secs float64
	switch x := v.(type) {
	case float64:
		secs = x
	case int:
		secs = float64(x)
	case int64:
		secs = float64(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return time.Time{}, false
		}
		secs = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return time.Time{}, false
		}
		secs = f
	default:
		return time.Time{}, false
	}
	if math.IsNaN(secs) || math.IsInf(secs, 0) || secs < 0 || secs > maxEpochSeconds {
		return time.Time{}, false
	}
	return time.Unix(int64(secs), 0).UTC(), true
}
