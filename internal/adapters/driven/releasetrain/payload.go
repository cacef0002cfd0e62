package releasetrain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/custodia-labs/releasetrain-lake/internal/core/domain"
)

// ParsePayload reads a feed response. The API answers either with a bare
// list of items or with an object holding them under "results".
// Entries that are not objects are skipped.
func ParsePayload(data []byte) ([]domain.RawItem, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	var list []json.RawMessage
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("%w: decode item list: %v", domain.ErrInvalidInput, err)
		}
	case '{':
		var wrapped struct {
			Results []json.RawMessage `json:"results"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, fmt.Errorf("%w: decode results: %v", domain.ErrInvalidInput, err)
		}
		list = wrapped.Results
	default:
		return nil, fmt.Errorf("%w: payload is neither a list nor an object", domain.ErrInvalidInput)
	}

	items := make([]domain.RawItem, 0, len(list))
	for _, raw := range list {
		var item domain.RawItem
		if err := json.Unmarshal(raw, &item); err != nil || item == nil {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// ReadItemsFile loads raw items from a JSON file in either payload shape
func ReadItemsFile(path string) ([]domain.RawItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read items file: %w", err)
	}
	return ParsePayload(data)
}
