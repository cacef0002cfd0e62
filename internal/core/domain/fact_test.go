package domain

import (
	"reflect"
	"testing"
)

func TestParseSemver(t *testing.T) {
	tests := []struct {
		in   string
		want []int
	}{
		{"2.10.1", []int{2, 10, 1}},
		{"2.9.9-rc1", []int{2, 9, 9}},
		{"40.2", []int{40, 2}},
		{" 1.2.3.4 ", []int{1, 2, 3, 4}},
		{"v1.2", []int{0}},
		{"", []int{0}},
	}
	for _, tt := range tests {
		if got := ParseSemver(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseSemver(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestCompareSemver(t *testing.T) {
	tests := []struct {
		a, b []int
		want int
	}{
		{[]int{2, 10, 0}, []int{2, 9, 9}, 1},
		{[]int{2, 9, 9}, []int{2, 10, 0}, -1},
		{[]int{2, 10}, []int{2, 10, 0}, -1},
		{[]int{1, 0}, []int{1, 0}, 0},
	}
	for _, tt := range tests {
		if got := CompareSemver(tt.a, tt.b); got != tt.want {
			t.Errorf("CompareSemver(%v, %v) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestRankKey_Compare(t *testing.T) {
	base := RankKey{Date: "2024-01-01T00:00:00Z", Semver: []int{2, 9, 9}, FactID: "b"}

	higherVersion := base
	higherVersion.Semver = []int{2, 10, 0}
	if higherVersion.Compare(base) <= 0 {
		t.Error("same date: higher semver must rank above")
	}

	newer := RankKey{Date: "2024-06-01T00:00:00Z", Semver: []int{1, 0}, FactID: "z"}
	if newer.Compare(higherVersion) <= 0 {
		t.Error("date takes priority over version")
	}

	undated := RankKey{Date: "", Semver: []int{99}}
	if undated.Compare(base) >= 0 {
		t.Error("empty date must sort lowest")
	}

	osKey := base
	osKey.PreferredSource = true
	if osKey.Compare(base) <= 0 {
		t.Error("os source must win a date and version tie")
	}

	smallerID := base
	smallerID.FactID = "a"
	if smallerID.Compare(base) <= 0 {
		t.Error("smaller fact id must win a full tie")
	}
	if base.Compare(base) != 0 {
		t.Error("identical keys must compare equal")
	}
}

func TestNewVersionFact(t *testing.T) {
	sent := &Sentence{
		ID:          "sent-1",
		Source:      SourceOS,
		URL:         "https://example.com/fedora",
		PublishedAt: "2024-05-01T00:00:00Z",
		Text:        "Fedora 40.2 release is available",
	}

	f := NewVersionFact("fedora", sent, "40.2")
	if f.ID != FactID("fedora", "sent-1", "40.2") {
		t.Errorf("unexpected fact id %s", f.ID)
	}
	if f.Type != FactTypeLatestVersionCandidate {
		t.Errorf("expected candidate type, got %s", f.Type)
	}
	if f.Date != sent.PublishedAt || f.Source != SourceOS || f.URL != sent.URL {
		t.Errorf("fact did not inherit sentence metadata: %+v", f)
	}

	key := f.RankKey()
	if !key.PreferredSource {
		t.Error("os fact should carry the preferred source flag")
	}

	latest := LatestFromFact(f)
	if latest.Version != "40.2" || latest.Vendor != "fedora" {
		t.Errorf("unexpected latest projection %+v", latest)
	}
}
