package core

import (
	"errors"
	"testing"
)

func TestParseDecision(t *testing.T) {
	cases := map[string]Decision{
		"accept":   Accepted,
		"Accepted": Accepted,
		" REJECT ": Rejected,
		"rejected": Rejected,
	}
	for in, want := range cases {
		got, err := ParseDecision(in)
		if err != nil {
			t.Fatalf("ParseDecision(%q) failed: %v", in, err)
		}
		if got != want {
			t.Errorf("ParseDecision(%q) = %q, want %q", in, got, want)
		}
	}

	if _, err := ParseDecision("maybe"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestAcceptanceRate(t *testing.T) {
	tests := []struct {
		accepted, total int
		want            float64
	}{
		{0, 0, 0},
		{2, 3, 66.7},
		{1, 3, 33.3},
		{1, 1, 100},
		{0, 4, 0},
		{1, 8, 12.5},
	}
	for _, tt := range tests {
		if got := AcceptanceRate(tt.accepted, tt.total); got != tt.want {
			t.Errorf("AcceptanceRate(%d, %d) = %v, want %v", tt.accepted, tt.total, got, tt.want)
		}
	}
}

func TestStorageKey(t *testing.T) {
	key := StorageKey("analytics")
	if key != "ai_feedback_analytics" {
		t.Fatalf("unexpected key %q", key)
	}
	ns, ok := NamespaceFromKey(key)
	if !ok || ns != "analytics" {
		t.Errorf("NamespaceFromKey(%q) = %q, %v", key, ns, ok)
	}
	if _, ok := NamespaceFromKey("other_key"); ok {
		t.Error("expected foreign key to be rejected")
	}
	if _, ok := NamespaceFromKey(StorageKeyPrefix); ok {
		t.Error("expected bare prefix to be rejected")
	}
}

func TestMerge(t *testing.T) {
	base := Metadata{"user_agent": "ua", "component": "demo"}
	out := Merge(base, Metadata{"component": "analytics", "confidence": 0.5})

	if out["component"] != "analytics" {
		t.Errorf("overlay must win, got %v", out["component"])
	}
	if out["user_agent"] != "ua" || out["confidence"] != 0.5 {
		t.Errorf("unexpected merge result: %v", out)
	}
	if base["component"] != "demo" {
		t.Error("Merge must not mutate its inputs")
	}
}
