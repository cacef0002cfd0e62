package driven

import "github.com/custodia-labs/releasetrain-lake/internal/core/domain"

// VendorVocabulary supplies the current cleaned vendor set.
// Implementations may swap the set at runtime; callers fetch it per use.
type VendorVocabulary interface {
	Vendors() *domain.VendorSet
}
