package runtime

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestVocabulary_ReplaceAndVendors(t *testing.T) {
	v := NewVocabulary([]string{"fedora", "os"}, nil)
	if v.Vendors().Len() != 1 {
		t.Fatalf("expected 1 vendor after cleaning, got %d", v.Vendors().Len())
	}

	v.Replace([]string{"ubuntu", "debian"})
	if !v.Vendors().Contains("debian") || v.Vendors().Contains("fedora") {
		t.Errorf("replace did not swap the set: %v", v.Vendors().Names())
	}
}

func TestVocabulary_ReloadKeepsOldSetOnError(t *testing.T) {
	calls := 0
	loader := func(ctx context.Context) ([]string, error) {
		calls++
		if calls > 1 {
			return nil, errors.New("disk gone")
		}
		return []string{"arch", "gentoo"}, nil
	}

	v := NewVocabulary(nil, loader)
	n, err := v.Reload(context.Background())
	if err != nil || n != 2 {
		t.Fatalf("expected 2 vendors, got %d (%v)", n, err)
	}

	if _, err := v.Reload(context.Background()); err == nil {
		t.Fatal("expected reload error")
	}
	if v.Vendors().Len() != 2 {
		t.Errorf("previous set should survive a failed reload")
	}
}

func TestVocabulary_ReloadWithoutLoader(t *testing.T) {
	v := NewVocabulary([]string{"fedora"}, nil)
	n, err := v.Reload(context.Background())
	if err != nil || n != 1 {
		t.Errorf("expected no-op reload, got %d (%v)", n, err)
	}
}

func TestParseVendorList(t *testing.T) {
	lines, err := ParseVendorList("# distros\nfedora\n\n  ubuntu  \n")
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 2 || lines[0] != "fedora" || lines[1] != "ubuntu" {
		t.Errorf("unexpected line parse %v", lines)
	}

	js, err := ParseVendorList(`["windows", "macos"]`)
	if err != nil {
		t.Fatal(err)
	}
	if len(js) != 2 {
		t.Errorf("unexpected json parse %v", js)
	}

	if _, err := ParseVendorList(`["broken"`); err == nil {
		t.Error("expected error for malformed json")
	}
}

func TestFileLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vendors.txt")
	if err := os.WriteFile(path, []byte("fedora\nubuntu\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	v := NewVocabulary(nil, FileLoader(path))
	n, err := v.Reload(context.Background())
	if err != nil || n != 2 {
		t.Errorf("expected 2 vendors from file, got %d (%v)", n, err)
	}

	missing := NewVocabulary(nil, FileLoader(filepath.Join(t.TempDir(), "nope")))
	if _, err := missing.Reload(context.Background()); err == nil {
		t.Error("expected error for missing file")
	}
}
