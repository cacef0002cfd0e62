package acceptance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cucumber/godog"

	"github.com/custodia-labs/releasetrain-lake/internal/adapters/driven/sqlite"
	"github.com/custodia-labs/releasetrain-lake/internal/core/domain"
	"github.com/custodia-labs/releasetrain-lake/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/releasetrain-lake/internal/core/services"
	"github.com/custodia-labs/releasetrain-lake/internal/normalisers"
	"github.com/custodia-labs/releasetrain-lake/internal/postprocessors"
	"github.com/custodia-labs/releasetrain-lake/internal/runtime"
)

// lakeWorld is one scenario's lake: a private sqlite database, a file lock
// in a scratch directory and a scripted feed.
type lakeWorld struct {
	dir   string
	db    *sqlite.DB
	clock time.Time

	vocab     *runtime.Vocabulary
	feed      *mocks.MockFeedClient
	documents *sqlite.DocumentStore
	sentences *sqlite.SentenceStore
	facts     *sqlite.FactStore
	latest    *sqlite.LatestVersionStore
	states    *sqlite.BuildStateStore

	builds  *services.BuildOrchestrator
	answers *services.AnswerService

	answer   *domain.Answer
	result   *domain.BuildResult
	recorded [4]int
}

func (w *lakeWorld) open(ctx context.Context) error {
	dir, err := os.MkdirTemp("", "lake-acceptance-")
	if err != nil {
		return err
	}
	w.dir = dir

	db, err := sqlite.Open(ctx, sqlite.DefaultConfig(filepath.Join(dir, "releasetrain.db")))
	if err != nil {
		return err
	}
	w.db = db
	w.clock = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	w.vocab = runtime.NewVocabulary(nil, nil)
	w.feed = mocks.NewMockFeedClient()
	w.documents = sqlite.NewDocumentStore(db)
	w.sentences = sqlite.NewSentenceStore(db)
	w.facts = sqlite.NewFactStore(db)
	w.latest = sqlite.NewLatestVersionStore(db)
	w.states = sqlite.NewBuildStateStore(db)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	silver := services.NewSilverBuilder(services.SilverBuilderConfig{
		Documents: w.documents,
		Sentences: w.sentences,
		Items:     normalisers.DefaultItemRegistry(normalisers.DefaultRegistry()),
		Pipeline:  postprocessors.DefaultPipeline(w.vocab),
		Logger:    logger,
	})
	w.builds = services.NewBuildOrchestrator(services.BuildOrchestratorConfig{
		Feed:       w.feed,
		States:     w.states,
		Lock:       sqlite.NewFileLockForDB(db.Path()),
		Silver:     silver,
		Extractor:  services.NewFactExtractor(services.FactExtractorConfig{Sentences: w.sentences, Facts: w.facts, Logger: logger}),
		Resolver:   services.NewLatestResolver(services.LatestResolverConfig{Facts: w.facts, Latest: w.latest, Logger: logger}),
		Vocabulary: w.vocab,
		Logger:     logger,
		LockName:   db.Path(),
		LockWait:   time.Second,
		Now:        func() time.Time { return w.clock },
	})
	w.answers = services.NewAnswerService(services.AnswerServiceConfig{
		Vocabulary: w.vocab,
		Latest:     w.latest,
		Sentences:  w.sentences,
		Lake:       w.builds,
		Logger:     logger,
	})
	return nil
}

func (w *lakeWorld) close() error {
	var err error
	if w.db != nil {
		err = w.db.Close()
	}
	if w.dir != "" {
		err = errors.Join(err, os.RemoveAll(w.dir))
	}
	return err
}

func (w *lakeWorld) theVendorVocabulary(list string) error {
	w.vocab.Replace(strings.Split(list, ","))
	return nil
}

func (w *lakeWorld) theOSFeedHasReleases(table *godog.Table) error {
	if len(table.Rows) < 2 {
		return errors.New("release table needs a header and at least one row")
	}
	header := table.Rows[0].Cells
	var items []domain.RawItem
	for _, row := range table.Rows[1:] {
		item := domain.RawItem{}
		for i, cell := range row.Cells {
			switch header[i].Value {
			case "title":
				item["title"] = cell.Value
			case "notes":
				item["versionReleaseNotes"] = cell.Value
			case "url":
				item["url"] = cell.Value
			case "date":
				item["updatedAt"] = cell.Value
			default:
				return fmt.Errorf("unknown column %q", header[i].Value)
			}
		}
		items = append(items, item)
	}
	w.feed.SetItems(domain.SourceOS, items...)
	return nil
}

func (w *lakeWorld) theFeedsAreUnavailable() error {
	w.feed.FetchFn = func(source domain.Source, vendor string) ([]domain.RawItem, error) {
		return nil, errors.New("upstream unavailable")
	}
	return nil
}

func (w *lakeWorld) vendorWasBuiltFromTheFeed(ctx context.Context, vendor string) error {
	result, err := w.builds.Rebuild(ctx, vendor)
	if err != nil {
		return err
	}
	if !result.Rebuilt {
		return fmt.Errorf("expected %s to be rebuilt", vendor)
	}
	return nil
}

func (w *lakeWorld) vendorWasLastBuiltHoursAgo(ctx context.Context, vendor string, hours int) error {
	return w.states.MarkBuilt(ctx, vendor, w.clock.Add(-time.Duration(hours)*time.Hour))
}

func (w *lakeWorld) iAsk(ctx context.Context, query string) error {
	answer, err := w.answers.Ask(ctx, query, 0)
	if err != nil {
		return err
	}
	w.answer = answer
	return nil
}

func (w *lakeWorld) iEnsureIsFresh(ctx context.Context, vendor string) error {
	result, err := w.builds.EnsureFresh(ctx, vendor)
	if err != nil {
		return err
	}
	w.result = result
	return nil
}

func (w *lakeWorld) iIngestTheOSFeedTimes(ctx context.Context, times int) error {
	items, err := w.feed.Fetch(ctx, domain.SourceOS, "")
	if err != nil {
		return err
	}
	for i := 0; i < times; i++ {
		if _, err := w.builds.Ingest(ctx, domain.SourceOS, items); err != nil {
			return err
		}
	}
	return nil
}

func (w *lakeWorld) rowCounts(ctx context.Context) ([4]int, error) {
	var counts [4]int
	var err error
	if counts[0], err = w.documents.Count(ctx); err != nil {
		return counts, err
	}
	if counts[1], err = w.sentences.Count(ctx); err != nil {
		return counts, err
	}
	if counts[2], err = w.facts.Count(ctx); err != nil {
		return counts, err
	}
	rows, err := w.latest.List(ctx)
	if err != nil {
		return counts, err
	}
	counts[3] = len(rows)
	return counts, nil
}

func (w *lakeWorld) iRecordTheLakeRowCounts(ctx context.Context) error {
	counts, err := w.rowCounts(ctx)
	if err != nil {
		return err
	}
	w.recorded = counts
	return nil
}

func (w *lakeWorld) theLakeRowCountsAreUnchanged(ctx context.Context) error {
	counts, err := w.rowCounts(ctx)
	if err != nil {
		return err
	}
	if counts != w.recorded {
		return fmt.Errorf("row counts changed from %v to %v", w.recorded, counts)
	}
	return nil
}

func (w *lakeWorld) theLakeHoldsDocumentsAndFacts(ctx context.Context, docs, facts int) error {
	counts, err := w.rowCounts(ctx)
	if err != nil {
		return err
	}
	if counts[0] != docs || counts[2] != facts {
		return fmt.Errorf("expected %d documents and %d facts, got %d and %d", docs, facts, counts[0], counts[2])
	}
	return nil
}

func (w *lakeWorld) theAnswerIsAbstained(not string) error {
	if w.answer == nil {
		return errors.New("no answer recorded")
	}
	want := not == ""
	if w.answer.Abstained != want {
		return fmt.Errorf("expected abstained=%v, got %+v", want, w.answer)
	}
	return nil
}

func (w *lakeWorld) theShortAnswerMentions(text string) error {
	if w.answer == nil {
		return errors.New("no answer recorded")
	}
	if !strings.Contains(w.answer.ShortAnswer, text) {
		return fmt.Errorf("short answer %q does not mention %q", w.answer.ShortAnswer, text)
	}
	return nil
}

func (w *lakeWorld) theConfidenceIs(want float64) error {
	if w.answer == nil {
		return errors.New("no answer recorded")
	}
	if math.Abs(w.answer.Confidence-want) > 1e-9 {
		return fmt.Errorf("expected confidence %v, got %v", want, w.answer.Confidence)
	}
	return nil
}

func (w *lakeWorld) theLatestVersionIs(ctx context.Context, vendor, version, date, source string) error {
	row, err := w.latest.Get(ctx, vendor)
	if err != nil {
		return fmt.Errorf("latest version of %s: %w", vendor, err)
	}
	if row.Version != version || row.Date != date || string(row.Source) != source {
		return fmt.Errorf("unexpected latest row %+v", row)
	}
	return nil
}

func (w *lakeWorld) thereIsNoLatestVersionFor(ctx context.Context, vendor string) error {
	_, err := w.latest.Get(ctx, vendor)
	if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("expected no latest row for %s, got err=%v", vendor, err)
	}
	return nil
}

func (w *lakeWorld) theBuildWas(outcome string) error {
	if w.result == nil {
		return errors.New("no build result recorded")
	}
	want := outcome == "run"
	if w.result.Rebuilt != want {
		return fmt.Errorf("expected rebuilt=%v, got %+v", want, w.result)
	}
	return nil
}

// InitializeScenario registers the lake steps against a fresh world.
func InitializeScenario(sc *godog.ScenarioContext) {
	w := &lakeWorld{}

	sc.Before(func(ctx context.Context, s *godog.Scenario) (context.Context, error) {
		return ctx, w.open(ctx)
	})
	sc.After(func(ctx context.Context, s *godog.Scenario, err error) (context.Context, error) {
		return ctx, w.close()
	})

	sc.Step(`^the vendor vocabulary "([^"]*)"$`, w.theVendorVocabulary)
	sc.Step(`^the os feed has releases:$`, w.theOSFeedHasReleases)
	sc.Step(`^the feeds are unavailable$`, w.theFeedsAreUnavailable)
	sc.Step(`^"([^"]*)" was built from the feed$`, w.vendorWasBuiltFromTheFeed)
	sc.Step(`^"([^"]*)" was last built (\d+) hours ago$`, w.vendorWasLastBuiltHoursAgo)
	sc.Step(`^I ask "([^"]*)"$`, w.iAsk)
	sc.Step(`^I ensure "([^"]*)" is fresh$`, w.iEnsureIsFresh)
	sc.Step(`^I ingest the os feed (\d+) times$`, w.iIngestTheOSFeedTimes)
	sc.Step(`^I record the lake row counts$`, w.iRecordTheLakeRowCounts)
	sc.Step(`^the lake row counts are unchanged$`, w.theLakeRowCountsAreUnchanged)
	sc.Step(`^the lake holds (\d+) documents and (\d+) facts$`, w.theLakeHoldsDocumentsAndFacts)
	sc.Step(`^the answer is (not )?abstained$`, w.theAnswerIsAbstained)
	sc.Step(`^the short answer mentions "([^"]*)"$`, w.theShortAnswerMentions)
	sc.Step(`^the confidence is ([0-9.]+)$`, w.theConfidenceIs)
	sc.Step(`^the latest version of "([^"]*)" is "([^"]*)" dated "([^"]*)" from "([^"]*)"$`, w.theLatestVersionIs)
	sc.Step(`^there is no latest version for "([^"]*)"$`, w.thereIsNoLatestVersionFor)
	sc.Step(`^the build was (skipped|run)$`, w.theBuildWas)
}
