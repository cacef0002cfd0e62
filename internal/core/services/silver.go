package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/custodia-labs/releasetrain-lake/internal/core/domain"
	"github.com/custodia-labs/releasetrain-lake/internal/core/ports/driven"
)

// SilverBuilder turns raw feed items into Silver documents and sentences.
// Each item is normalised, segmented, tagged and filtered; kept sentences
// are upserted by their content-derived ID so reprocessing is idempotent.
type SilverBuilder struct {
	documents driven.DocumentStore
	sentences driven.SentenceStore
	index     driven.SentenceIndex
	items     driven.ItemNormaliserRegistry
	pipeline  driven.PostProcessorPipeline
	logger    *slog.Logger
}

// SilverBuilderConfig holds dependencies for SilverBuilder.
type SilverBuilderConfig struct {
	Documents driven.DocumentStore
	Sentences driven.SentenceStore
	Index     driven.SentenceIndex // Optional: full-text index of kept sentences
	Items     driven.ItemNormaliserRegistry
	Pipeline  driven.PostProcessorPipeline
	Logger    *slog.Logger
}

// NewSilverBuilder creates a new Silver builder.
func NewSilverBuilder(cfg SilverBuilderConfig) *SilverBuilder {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &SilverBuilder{
		documents: cfg.Documents,
		sentences: cfg.Sentences,
		index:     cfg.Index,
		items:     cfg.Items,
		pipeline:  cfg.Pipeline,
		logger:    logger,
	}
}

// Build normalises and stores items from one source.
// Unusable items are skipped; storage errors abort the pass.
func (b *SilverBuilder) Build(ctx context.Context, source domain.Source, items []domain.RawItem) (domain.BuildStats, error) {
	stats := domain.BuildStats{ItemsFetched: len(items)}
	if len(items) == 0 {
		return stats, nil
	}

	normaliser := b.items.Get(source)
	if normaliser == nil {
		return stats, fmt.Errorf("%w: no normaliser for source %q", domain.ErrInvalidInput, source)
	}

	var kept []*domain.Sentence
	for _, item := range items {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		doc, err := normaliser.Normalise(item)
		if err != nil {
			b.logger.Warn("skipping unusable item", "source", source, "error", err)
			continue
		}

		if err := b.documents.Upsert(ctx, doc); err != nil {
			return stats, fmt.Errorf("failed to upsert document: %w", err)
		}
		stats.DocumentsUpserted++

		sentences, dropped := b.segment(doc)
		stats.SentencesDropped += dropped
		for _, s := range sentences {
			if err := b.sentences.Upsert(ctx, s); err != nil {
				return stats, fmt.Errorf("failed to upsert sentence: %w", err)
			}
		}
		stats.SentencesKept += len(sentences)
		kept = append(kept, sentences...)
	}

	if b.index != nil && len(kept) > 0 {
		if err := b.index.Index(ctx, kept); err != nil {
			b.logger.Warn("failed to index sentences", "source", source, "count", len(kept), "error", err)
		} else {
			stats.SentencesIndexed = len(kept)
		}
	}

	b.logger.Debug("silver pass complete",
		"source", source,
		"documents", stats.DocumentsUpserted,
		"sentences_kept", stats.SentencesKept,
		"sentences_dropped", stats.SentencesDropped,
	)

	return stats, nil
}

// segment runs the sentence pipeline over a document and returns the kept
// sentences together with the number dropped.
func (b *SilverBuilder) segment(doc *domain.Document) ([]*domain.Sentence, int) {
	candidates := b.pipeline.Process(doc.FullText())

	var kept []*domain.Sentence
	dropped := 0
	for _, c := range candidates {
		if c.Dropped {
			dropped++
			continue
		}
		kept = append(kept, &domain.Sentence{
			ID:          domain.SentenceID(doc.ID, c.Position, c.Text),
			DocID:       doc.ID,
			Source:      doc.Source,
			URL:         doc.URL,
			PublishedAt: doc.PublishedAt,
			Text:        c.Text,
			TextLC:      strings.ToLower(c.Text),
			HasCVE:      c.Flags.CVE,
			HasPatch:    c.Flags.Patch,
			HasVersion:  c.Flags.Version,
			Versions:    c.Versions,
			CVEs:        c.CVEs,
			Vendors:     c.Vendors,
			VendorCount: len(c.Vendors),
		})
	}
	return kept, dropped
}
