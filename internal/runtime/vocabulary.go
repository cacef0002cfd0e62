package runtime

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/custodia-labs/releasetrain-lake/internal/core/domain"
)

// VendorLoader returns the raw vendor names the vocabulary is built from.
type VendorLoader func(ctx context.Context) ([]string, error)

// Vocabulary holds the current vendor set.
// Pipeline stages read it through Vendors; Reload swaps it atomically.
// Thread-safe for concurrent access.
type Vocabulary struct {
	mu     sync.RWMutex
	set    *domain.VendorSet
	loader VendorLoader
}

// NewVocabulary creates a vocabulary from an initial name list.
// loader may be nil, in which case Reload is a no-op.
func NewVocabulary(names []string, loader VendorLoader) *Vocabulary {
	return &Vocabulary{
		set:    domain.NewVendorSet(names),
		loader: loader,
	}
}

// Vendors returns the current cleaned vendor set
func (v *Vocabulary) Vendors() *domain.VendorSet {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.set
}

// Replace swaps in a new vendor set built from names
func (v *Vocabulary) Replace(names []string) {
	set := domain.NewVendorSet(names)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.set = set
}

// Reload re-reads names through the loader and swaps the set.
// The previous set stays in place when loading fails.
func (v *Vocabulary) Reload(ctx context.Context) (int, error) {
	if v.loader == nil {
		return v.Vendors().Len(), nil
	}

	names, err := v.loader(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load vendors: %w", err)
	}

	v.Replace(names)
	return v.Vendors().Len(), nil
}

// FileLoader reads vendors from path. A file starting with "[" is parsed as
// a JSON string array; anything else is read one vendor per line, with
// blank lines and "#" comments skipped.
func FileLoader(path string) VendorLoader {
	return func(ctx context.Context) ([]string, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return ParseVendorList(string(data))
	}
}

// StaticLoader always returns names.
func StaticLoader(names []string) VendorLoader {
	return func(ctx context.Context) ([]string, error) {
		return names, nil
	}
}

// ParseVendorList parses the vendor file format accepted by FileLoader.
func ParseVendorList(content string) ([]string, error) {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "[") {
		var names []string
		if err := json.Unmarshal([]byte(trimmed), &names); err != nil {
			return nil, fmt.Errorf("invalid vendor json: %w", err)
		}
		return names, nil
	}

	var names []string
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	return names, scanner.Err()
}
