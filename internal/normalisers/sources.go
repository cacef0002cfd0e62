package normalisers

import (
	"strings"

	"github.com/custodia-labs/releasetrain-lake/internal/core/domain"
	"github.com/custodia-labs/releasetrain-lake/internal/core/ports/driven"
)

var (
	titleKeys = []string{"title", "name", "versionProductName", "product"}
	bodyKeys  = []string{"versionReleaseNotes", "summary", "description", "content", "selftext"}
	urlKeys   = []string{"url", "link", "permalink", "sourceUrl", "source_url"}
	dateKeys  = []string{"updatedAt", "createdAt", "date", "published", "created_utc"}
)

// NewReleaseNormaliser maps release-train component items (the os source).
func NewReleaseNormaliser(bodies driven.NormaliserRegistry) driven.ItemNormaliser {
	return &mappedNormaliser{
		source: domain.SourceOS,
		mapping: fieldMapping{
			title:     titleKeys,
			body:      bodyKeys,
			url:       urlKeys,
			date:      dateKeys,
			epochKeys: map[string]bool{"created_utc": true},
		},
		bodies: bodies,
	}
}

// redditBase prefixes relative permalinks.
const redditBase = "https://www.reddit.com"

// NewRedditNormaliser maps reddit post items. Relative permalinks such as
// "/r/linux/comments/..." are made absolute.
func NewRedditNormaliser(bodies driven.NormaliserRegistry) driven.ItemNormaliser {
	return &mappedNormaliser{
		source: domain.SourceReddit,
		mapping: fieldMapping{
			title:     titleKeys,
			body:      bodyKeys,
			url:       urlKeys,
			date:      dateKeys,
			epochKeys: map[string]bool{"created_utc": true},
		},
		bodies: bodies,
		resolveURL: func(u string) string {
			if strings.HasPrefix(u, "/r/") {
				return redditBase + u
			}
			return u
		},
	}
}
