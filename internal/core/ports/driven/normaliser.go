package driven

import (
	"github.com/custodia-labs/releasetrain-lake/internal/core/domain"
)

// ItemNormaliser turns one source's raw items into canonical documents.
// Each source has its own explicit field mapping.
type ItemNormaliser interface {
	// Normalise maps a raw item onto a Document.
	// Missing or malformed fields become empty values, never errors;
	// an error means the item is unusable (e.g. not an object).
	Normalise(item domain.RawItem) (*domain.Document, error)

	// Source returns the source this normaliser handles
	Source() domain.Source
}

// ItemNormaliserRegistry resolves the normaliser for a source.
type ItemNormaliserRegistry interface {
	// Get returns the normaliser for source, or nil
	Get(source domain.Source) ItemNormaliser

	// Register adds or replaces a normaliser
	Register(normaliser ItemNormaliser)

	// List returns registered sources
	List() []domain.Source
}

// Normaliser converts body markup to plain text before segmentation.
type Normaliser interface {
	// Normalise transforms raw content into plain text, keeping one line
	// break between block elements.
	Normalise(content string, mimeType string) string

	// SupportedTypes returns MIME types this normaliser handles.
	// Can include wildcards like "text/*".
	SupportedTypes() []string

	// Priority returns the normaliser priority (higher = more specific).
	//   50-89:  Format-specific (Markdown, HTML)
	//   10-49:  Generic (basic text processing)
	Priority() int
}

// NormaliserRegistry manages body normalisers.
// When multiple normalisers match a MIME type, the highest priority one is used.
type NormaliserRegistry interface {
	// Get retrieves the best-matching normaliser for a MIME type.
	// Returns nil if no normaliser is registered for the type.
	Get(mimeType string) Normaliser

	// Register registers a normaliser.
	Register(normaliser Normaliser)

	// List returns all registered MIME types.
	List() []string

	// NormaliseBody sniffs the markup of an untyped item body and returns
	// its plain text.
	NormaliseBody(body string) string
}

// PostProcessor is one stage of the sentence pipeline.
// Stages run in Order(): cleaning, segmentation, tagging, filtering.
type PostProcessor interface {
	// Process transforms the candidates produced by the previous stage.
	// The first stage receives a single candidate holding the full text.
	Process(candidates []Candidate) []Candidate

	// Name returns the processor name for logging/debugging.
	Name() string

	// Order returns the processor order in the pipeline (lower = earlier).
	Order() int
}

// Candidate is a piece of document text moving through the pipeline.
type Candidate struct {
	// Text is the candidate text
	Text string

	// Position is the 1-based sentence position assigned by segmentation
	Position int

	// Flags, Versions, CVEs and Vendors are filled in by tagging
	Flags    domain.IntentFlags
	Versions []string
	CVEs     []string
	Vendors  []string

	// Dropped marks a candidate rejected by the keep filter
	Dropped bool
}

// PostProcessorPipeline chains post-processors in order.
type PostProcessorPipeline interface {
	// Process runs every stage over content and returns all candidates,
	// including dropped ones.
	Process(content string) []Candidate

	// Add adds a processor to the pipeline.
	Add(processor PostProcessor)

	// List returns processor names in order.
	List() []string
}
