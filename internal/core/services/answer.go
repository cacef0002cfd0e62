package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/custodia-labs/releasetrain-lake/internal/core/domain"
	"github.com/custodia-labs/releasetrain-lake/internal/core/ports/driven"
	"github.com/custodia-labs/releasetrain-lake/internal/core/ports/driving"
)

// Verify interface compliance
var _ driving.AnswerService = (*AnswerService)(nil)

// AnswerService answers vendor questions from the Gold and Silver tables.
// Reads take no lock and may observe a rebuild in progress.
type AnswerService struct {
	vocab     driven.VendorVocabulary
	latest    driven.LatestVersionStore
	sentences driven.SentenceStore
	index     driven.SentenceIndex
	lake      driving.LakeService
	limit     int
	logger    *slog.Logger
}

// AnswerServiceConfig holds dependencies for AnswerService.
type AnswerServiceConfig struct {
	Vocabulary driven.VendorVocabulary
	Latest     driven.LatestVersionStore
	Sentences  driven.SentenceStore
	Index      driven.SentenceIndex  // Optional: enables Search
	Lake       driving.LakeService   // Optional: Ask refreshes stale vendors through it
	Limit      int                   // Default evidence limit (default: 12)
	Logger     *slog.Logger
}

// NewAnswerService creates a new answer service.
func NewAnswerService(cfg AnswerServiceConfig) *AnswerService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	limit := cfg.Limit
	if limit <= 0 {
		limit = domain.DefaultAnswerLimit
	}

	return &AnswerService{
		vocab:     cfg.Vocabulary,
		latest:    cfg.Latest,
		sentences: cfg.Sentences,
		index:     cfg.Index,
		lake:      cfg.Lake,
		limit:     limit,
		logger:    logger,
	}
}

// Ask infers intent and vendor from query, refreshes the vendor when it is
// stale and answers. Upstream and lock problems never fail the answer.
func (s *AnswerService) Ask(ctx context.Context, query string, limit int) (*domain.Answer, error) {
	query = strings.TrimSpace(query)
	intent := domain.InferIntent(query)

	var vendors *domain.VendorSet
	if s.vocab != nil {
		vendors = s.vocab.Vendors()
	}
	vendor, ok := vendors.Match(query)
	if !ok {
		return noVendorAnswer(intent), nil
	}

	if s.lake != nil {
		result, err := s.lake.EnsureFresh(ctx, vendor)
		if err != nil {
			return nil, err
		}
		if result.Warning != "" {
			s.logger.Warn("answering from existing data", "vendor", vendor, "reason", result.Warning)
		}
	}

	return s.Answer(ctx, intent, vendor, limit)
}

// Answer reads the tables for a resolved intent and vendor.
func (s *AnswerService) Answer(ctx context.Context, intent domain.Intent, vendor string, limit int) (*domain.Answer, error) {
	vendor = strings.ToLower(strings.TrimSpace(vendor))
	if vendor == "" {
		return noVendorAnswer(intent), nil
	}
	if limit <= 0 {
		limit = s.limit
	}

	switch intent {
	case domain.IntentVersion:
		return s.answerVersion(ctx, vendor)
	case domain.IntentCVE, domain.IntentPatch:
		return s.answerEvidence(ctx, intent, vendor, limit)
	default:
		return s.answerVendor(ctx, intent, vendor, limit)
	}
}

// Search runs a full-text query over kept sentences.
func (s *AnswerService) Search(ctx context.Context, vendor, query string, limit int) ([]domain.SearchHit, error) {
	if s.index == nil {
		return nil, domain.ErrIndexUnavailable
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", domain.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = s.limit
	}
	return s.index.Search(ctx, strings.ToLower(strings.TrimSpace(vendor)), query, limit)
}

func (s *AnswerService) answerVersion(ctx context.Context, vendor string) (*domain.Answer, error) {
	intent := domain.IntentVersion

	row, err := s.latest.Get(ctx, vendor)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to get latest version: %w", err)
	}

	if row == nil {
		conf := domain.ConfidenceVersionUnknown
		return &domain.Answer{
			Abstained:       true,
			Confidence:      conf,
			Intent:          intent,
			ResolvedVendors: []string{vendor},
			ShortAnswer:     fmt.Sprintf("I don't know the latest version of %s from the current evidence.", vendor),
			Meta:            meta(intent, vendor, conf, "VersionFound: no"),
			Evidence:        []domain.Evidence{},
		}, nil
	}

	conf := domain.ConfidenceVersionFound
	return &domain.Answer{
		Confidence:      conf,
		Intent:          intent,
		ResolvedVendors: []string{vendor},
		ShortAnswer:     fmt.Sprintf("Latest version of %s is **%s**.", vendor, row.Version),
		Meta:            meta(intent, vendor, conf, "VersionFound: yes"),
		Evidence: []domain.Evidence{{
			Source:  row.Source,
			Title:   vendor + " " + row.Version,
			Date:    row.Date,
			URL:     row.URL,
			Snippet: row.Snippet,
		}},
	}, nil
}

func (s *AnswerService) answerEvidence(ctx context.Context, intent domain.Intent, vendor string, limit int) (*domain.Answer, error) {
	evidence, err := s.evidence(ctx, intent, vendor, limit, fmt.Sprintf("%s %s evidence", vendor, intent))
	if err != nil {
		return nil, err
	}

	if len(evidence) == 0 {
		conf := domain.ConfidenceEvidenceUnknown
		return &domain.Answer{
			Abstained:       true,
			Confidence:      conf,
			Intent:          intent,
			ResolvedVendors: []string{vendor},
			ShortAnswer:     fmt.Sprintf("I don't know about %s for %s from the current evidence.", vendor, intent),
			Meta:            meta(intent, vendor, conf, "SameSentence: no", "Evidence: 0"),
			Evidence:        evidence,
		}, nil
	}

	conf := domain.ConfidenceEvidenceFound
	return &domain.Answer{
		Confidence:      conf,
		Intent:          intent,
		ResolvedVendors: []string{vendor},
		ShortAnswer:     fmt.Sprintf("Here's what I found for **%s** related to **%s**.", vendor, intent),
		Meta:            meta(intent, vendor, conf, "SameSentence: yes", fmt.Sprintf("Evidence: %d", len(evidence))),
		Evidence:        evidence,
	}, nil
}

func (s *AnswerService) answerVendor(ctx context.Context, intent domain.Intent, vendor string, limit int) (*domain.Answer, error) {
	if intent == "" {
		intent = domain.IntentGeneric
	}

	evidence, err := s.evidence(ctx, intent, vendor, limit, vendor+" evidence")
	if err != nil {
		return nil, err
	}

	if len(evidence) == 0 {
		conf := domain.ConfidenceGenericUnknown
		return &domain.Answer{
			Abstained:       true,
			Confidence:      conf,
			Intent:          intent,
			ResolvedVendors: []string{vendor},
			ShortAnswer:     fmt.Sprintf("I don't know about %s from the current evidence.", vendor),
			Meta:            meta(intent, vendor, conf, "Evidence: 0"),
			Evidence:        evidence,
		}, nil
	}

	conf := domain.ConfidenceGenericFound
	return &domain.Answer{
		Confidence:      conf,
		Intent:          intent,
		ResolvedVendors: []string{vendor},
		ShortAnswer:     fmt.Sprintf("Here's what I found mentioning **%s**.", vendor),
		Meta:            meta(intent, vendor, conf, fmt.Sprintf("Evidence: %d", len(evidence))),
		Evidence:        evidence,
	}, nil
}

func (s *AnswerService) evidence(ctx context.Context, intent domain.Intent, vendor string, limit int, title string) ([]domain.Evidence, error) {
	sentences, err := s.sentences.ListForVendor(ctx, domain.SentenceFilter{
		Vendor: vendor,
		Intent: intent,
		Limit:  limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list sentences: %w", err)
	}

	evidence := make([]domain.Evidence, 0, len(sentences))
	for _, sent := range sentences {
		evidence = append(evidence, domain.Evidence{
			Source:  sent.Source,
			Title:   title,
			Date:    sent.PublishedAt,
			URL:     sent.URL,
			Snippet: domain.TruncateRunes(sent.Text, domain.EvidenceSnippetLength),
		})
	}
	return evidence, nil
}

func noVendorAnswer(intent domain.Intent) *domain.Answer {
	conf := domain.ConfidenceNoVendor
	return &domain.Answer{
		Abstained:       true,
		Confidence:      conf,
		Intent:          intent,
		ResolvedVendors: []string{},
		ShortAnswer:     "I don't know. Vendor not found in vendor index.",
		Meta:            fmt.Sprintf("Intent: %s · VendorMatch: no · Confidence: %.0f%%", intent, conf*100),
		Evidence:        []domain.Evidence{},
	}
}

// meta renders the compact answer summary line.
func meta(intent domain.Intent, vendor string, conf float64, parts ...string) string {
	fields := append([]string{"Intent: " + string(intent), "Vendor: " + vendor}, parts...)
	fields = append(fields, fmt.Sprintf("Confidence: %.0f%%", conf*100))
	return strings.Join(fields, " · ")
}
