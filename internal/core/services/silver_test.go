package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/releasetrain-lake/internal/core/domain"
)

func TestSilverBuilder_Build(t *testing.T) {
	l := newTestLake(t)
	ctx := context.Background()

	stats, err := l.silver.Build(ctx, domain.SourceOS, fedoraItems())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.ItemsFetched)
	assert.Equal(t, 2, stats.DocumentsUpserted)
	assert.Equal(t, 4, stats.SentencesKept)
	assert.Equal(t, 4, stats.SentencesIndexed)

	docID := domain.DocumentID(domain.SourceOS, "https://fedoraproject.org/40.2", "Fedora 40.2")
	doc, err := l.documents.Get(ctx, docID)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-10T00:00:00Z", doc.PublishedAt)

	text := "Fedora 40.2 release is available."
	sent, err := l.sentences.Get(ctx, domain.SentenceID(docID, 2, text))
	require.NoError(t, err)
	assert.Equal(t, text, sent.Text)
	assert.Equal(t, "fedora 40.2 release is available.", sent.TextLC)
	assert.True(t, sent.HasVersion)
	assert.Equal(t, []string{"40.2"}, sent.Versions)
	assert.Equal(t, []string{"fedora"}, sent.Vendors)
	assert.Equal(t, 1, sent.VendorCount)
	assert.Equal(t, doc.URL, sent.URL)
	assert.Equal(t, doc.PublishedAt, sent.PublishedAt)
}

func TestSilverBuilder_Idempotent(t *testing.T) {
	l := newTestLake(t)
	ctx := context.Background()

	_, err := l.silver.Build(ctx, domain.SourceOS, fedoraItems())
	require.NoError(t, err)
	docs1, _ := l.documents.Count(ctx)
	sents1, _ := l.sentences.Count(ctx)

	_, err = l.silver.Build(ctx, domain.SourceOS, fedoraItems())
	require.NoError(t, err)
	docs2, _ := l.documents.Count(ctx)
	sents2, _ := l.sentences.Count(ctx)

	assert.Equal(t, docs1, docs2)
	assert.Equal(t, sents1, sents2)
}

func TestSilverBuilder_DropsLowValueSentences(t *testing.T) {
	l := newTestLake(t)

	stats, err := l.silver.Build(context.Background(), domain.SourceReddit, []domain.RawItem{{
		"title":    "Weekend thread",
		"selftext": "The weather is nice today.\nhttps://example.com/some/path/to/a/page?id=12345",
	}})
	require.NoError(t, err)

	assert.Equal(t, 1, stats.DocumentsUpserted)
	assert.Equal(t, 0, stats.SentencesKept)
	assert.Equal(t, 3, stats.SentencesDropped)
	assert.Equal(t, 0, stats.SentencesIndexed)
}

func TestSilverBuilder_SkipsUnusableItems(t *testing.T) {
	l := newTestLake(t)

	items := append([]domain.RawItem{nil}, fedoraItems()...)
	stats, err := l.silver.Build(context.Background(), domain.SourceOS, items)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.ItemsFetched)
	assert.Equal(t, 2, stats.DocumentsUpserted)
}

func TestSilverBuilder_StorageErrorIsFatal(t *testing.T) {
	l := newTestLake(t)
	boom := errors.New("disk full")
	l.documents.UpsertFn = func(*domain.Document) error { return boom }

	_, err := l.silver.Build(context.Background(), domain.SourceOS, fedoraItems())
	assert.ErrorIs(t, err, boom)
}

func TestSilverBuilder_IndexErrorIsNotFatal(t *testing.T) {
	l := newTestLake(t)
	l.index.IndexFn = func([]*domain.Sentence) error { return errors.New("index closed") }

	stats, err := l.silver.Build(context.Background(), domain.SourceOS, fedoraItems())
	require.NoError(t, err)
	assert.Equal(t, 4, stats.SentencesKept)
	assert.Equal(t, 0, stats.SentencesIndexed)
}

func TestSilverBuilder_UnknownSource(t *testing.T) {
	l := newTestLake(t)

	_, err := l.silver.Build(context.Background(), domain.Source("twitter"), fedoraItems())
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
