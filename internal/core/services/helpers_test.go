package services

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/custodia-labs/releasetrain-lake/internal/core/domain"
	"github.com/custodia-labs/releasetrain-lake/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/releasetrain-lake/internal/normalisers"
	"github.com/custodia-labs/releasetrain-lake/internal/postprocessors"
	"github.com/custodia-labs/releasetrain-lake/internal/runtime"
)

var testVendors = []string{"fedora", "ubuntu", "windows", "openssl", "debian"}

// testLake wires every lake service over in-memory mocks
type testLake struct {
	vocab     *runtime.Vocabulary
	documents *mocks.MockDocumentStore
	sentences *mocks.MockSentenceStore
	facts     *mocks.MockFactStore
	latest    *mocks.MockLatestVersionStore
	states    *mocks.MockBuildStateStore
	index     *mocks.MockSentenceIndex
	feed      *mocks.MockFeedClient
	lock      *mocks.MockDistributedLock

	silver       *SilverBuilder
	extractor    *FactExtractor
	resolver     *LatestResolver
	orchestrator *BuildOrchestrator
	answers      *AnswerService

	clock time.Time
}

func newTestLake(t *testing.T) *testLake {
	t.Helper()

	l := &testLake{
		vocab:     runtime.NewVocabulary(testVendors, nil),
		documents: mocks.NewMockDocumentStore(),
		sentences: mocks.NewMockSentenceStore(),
		facts:     mocks.NewMockFactStore(),
		latest:    mocks.NewMockLatestVersionStore(),
		states:    mocks.NewMockBuildStateStore(),
		index:     mocks.NewMockSentenceIndex(),
		feed:      mocks.NewMockFeedClient(),
		lock:      mocks.NewMockDistributedLock(),
		clock:     time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	l.silver = NewSilverBuilder(SilverBuilderConfig{
		Documents: l.documents,
		Sentences: l.sentences,
		Index:     l.index,
		Items:     normalisers.DefaultItemRegistry(normalisers.DefaultRegistry()),
		Pipeline:  postprocessors.DefaultPipeline(l.vocab),
		Logger:    logger,
	})
	l.extractor = NewFactExtractor(FactExtractorConfig{Sentences: l.sentences, Facts: l.facts, Logger: logger})
	l.resolver = NewLatestResolver(LatestResolverConfig{Facts: l.facts, Latest: l.latest, Logger: logger})
	l.orchestrator = NewBuildOrchestrator(BuildOrchestratorConfig{
		Feed:       l.feed,
		States:     l.states,
		Lock:       l.lock,
		Silver:     l.silver,
		Extractor:  l.extractor,
		Resolver:   l.resolver,
		Vocabulary: l.vocab,
		Logger:     logger,
		LockName:   "/tmp/releasetrain.db",
		LockWait:   200 * time.Millisecond,
		Now:        func() time.Time { return l.clock },
	})
	l.answers = NewAnswerService(AnswerServiceConfig{
		Vocabulary: l.vocab,
		Latest:     l.latest,
		Sentences:  l.sentences,
		Index:      l.index,
		Lake:       l.orchestrator,
		Logger:     logger,
	})

	return l
}

// fedoraItems are two os releases a month apart
func fedoraItems() []domain.RawItem {
	return []domain.RawItem{
		{
			"title":               "Fedora 40.1",
			"versionReleaseNotes": "Fedora 40.1 release is available.",
			"url":                 "https://fedoraproject.org/40.1",
			"updatedAt":           "2024-04-10T00:00:00Z",
		},
		{
			"title":               "Fedora 40.2",
			"versionReleaseNotes": "Fedora 40.2 release is available.",
			"url":                 "https://fedoraproject.org/40.2",
			"updatedAt":           "2024-05-10T00:00:00Z",
		},
	}
}
