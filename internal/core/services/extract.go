package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/custodia-labs/releasetrain-lake/internal/core/domain"
	"github.com/custodia-labs/releasetrain-lake/internal/core/ports/driven"
)

// FactExtractor derives Gold version-candidate facts from Silver sentences.
type FactExtractor struct {
	sentences driven.SentenceStore
	facts     driven.FactStore
	logger    *slog.Logger
}

// FactExtractorConfig holds dependencies for FactExtractor.
type FactExtractorConfig struct {
	Sentences driven.SentenceStore
	Facts     driven.FactStore
	Logger    *slog.Logger
}

// NewFactExtractor creates a new fact extractor.
func NewFactExtractor(cfg FactExtractorConfig) *FactExtractor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &FactExtractor{sentences: cfg.Sentences, facts: cfg.Facts, logger: logger}
}

// Extract scans version-bearing sentences, attributes each to the longest
// matching vendor and records one fact per version token.
// Sentences without a vendor match are skipped. Returns the number of
// facts written; facts already present are ignored.
func (e *FactExtractor) Extract(ctx context.Context, vendors *domain.VendorSet) (int, error) {
	sentences, err := e.sentences.ListVersionBearing(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list version sentences: %w", err)
	}

	inserted := 0
	skipped := 0
	for _, s := range sentences {
		vendor, ok := vendors.Match(s.TextLC)
		if !ok {
			skipped++
			continue
		}
		for _, version := range s.Versions {
			wrote, err := e.facts.InsertIgnore(ctx, domain.NewVersionFact(vendor, s, version))
			if err != nil {
				return inserted, fmt.Errorf("failed to insert fact: %w", err)
			}
			if wrote {
				inserted++
			}
		}
	}

	e.logger.Debug("facts extracted", "sentences", len(sentences), "unmatched", skipped, "inserted", inserted)
	return inserted, nil
}
