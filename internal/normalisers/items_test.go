package normalisers

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/releasetrain-lake/internal/core/domain"
)

func TestReleaseNormaliser_FieldFallbacks(t *testing.T) {
	n := NewReleaseNormaliser(DefaultRegistry())

	doc, err := n.Normalise(domain.RawItem{
		"versionProductName":  "Fedora",
		"versionReleaseNotes": "Fedora 40.2 release is available.",
		"link":                "ftp://not-http.example.com",
		"sourceUrl":           "https://fedoraproject.org/40.2",
		"updatedAt":           "not a date",
		"createdAt":           "2024-05-10T12:00:00+02:00",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.SourceOS, doc.Source)
	assert.Equal(t, "Fedora", doc.Title)
	assert.Equal(t, "Fedora 40.2 release is available.", doc.BodyText)
	assert.Equal(t, "https://fedoraproject.org/40.2", doc.URL)
	assert.Equal(t, "2024-05-10T10:00:00Z", doc.PublishedAt)
	assert.Equal(t, domain.DocumentID(domain.SourceOS, doc.URL, doc.Title), doc.ID)
	assert.Contains(t, doc.RawJSON, "versionProductName")
}

func TestReleaseNormaliser_Defaults(t *testing.T) {
	n := NewReleaseNormaliser(DefaultRegistry())

	doc, err := n.Normalise(domain.RawItem{"title": "   ", "summary": 42})
	require.NoError(t, err)

	assert.Equal(t, UntitledDocument, doc.Title)
	assert.Empty(t, doc.BodyText)
	assert.Empty(t, doc.URL)
	assert.Empty(t, doc.PublishedAt)
	assert.Equal(t, domain.DocumentID(domain.SourceOS, "", UntitledDocument), doc.ID)
}

func TestReleaseNormaliser_RejectsNil(t *testing.T) {
	_, err := NewReleaseNormaliser(nil).Normalise(nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRedditNormaliser(t *testing.T) {
	n := NewRedditNormaliser(DefaultRegistry())

	doc, err := n.Normalise(domain.RawItem{
		"title":       "Windows 11 24H2 update broke my drivers",
		"selftext":    "After the **update** my GPU driver crashed.",
		"permalink":   "/r/windows/comments/abc/update/",
		"created_utc": float64(1714521600),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.SourceReddit, doc.Source)
	assert.Equal(t, "https://www.reddit.com/r/windows/comments/abc/update/", doc.URL)
	assert.Equal(t, "2024-05-01T00:00:00Z", doc.PublishedAt)
	assert.Equal(t, "After the update my GPU driver crashed.", doc.BodyText)
}

func TestEpochAsString(t *testing.T) {
	got := pickTimestamp(domain.RawItem{"created_utc": "1714521600"}, dateKeys, map[string]bool{"created_utc": true})
	assert.Equal(t, "2024-05-01T00:00:00Z", got)
}

func TestEpochOutOfRange(t *testing.T) {
	epoch := map[string]bool{"created_utc": true}
	for _, v := range []any{1e300, 1714521600000.0, int64(1) << 62, "1e19", json.Number("9.3e18")} {
		_, ok := epochSeconds(v)
		assert.False(t, ok, "%v", v)
		assert.Empty(t, pickTimestamp(domain.RawItem{"created_utc": v}, dateKeys, epoch), "%v", v)
	}

	got, ok := epochSeconds(float64(maxEpochSeconds))
	assert.True(t, ok)
	assert.Equal(t, 5138, got.Year())
}

func TestItemRegistry(t *testing.T) {
	r := DefaultItemRegistry(DefaultRegistry())

	assert.Equal(t, []domain.Source{domain.SourceOS, domain.SourceReddit}, r.List())
	assert.NotNil(t, r.Get(domain.SourceOS))
	assert.Nil(t, r.Get(domain.Source("twitter")))
}
