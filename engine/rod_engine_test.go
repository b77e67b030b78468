package engine

import (
	"testing"

	"github.com/go-rod/rod/lib/proto"
)

func TestBlockedSet_IgnoresUnknown(t *testing.T) {
	set := blockedSet([]string{"Image", "Font", "Script", "bogus"})

	if len(set) != 2 {
		t.Fatalf("expected 2 blocked types, got %d: %v", len(set), set)
	}
	if _, ok := set[proto.NetworkResourceTypeImage]; !ok {
		t.Error("Image should be blocked")
	}
	if _, ok := set[proto.NetworkResourceTypeFont]; !ok {
		t.Error("Font should be blocked")
	}
}

func TestToHeadersMap(t *testing.T) {
	m := toHeadersMap(map[string]string{"Accept-Language": "ja"})

	v, ok := m["Accept-Language"]
	if !ok {
		t.Fatal("header missing from map")
	}
	if got := v.Str(); got != "ja" {
		t.Errorf("header value = %q, want %q", got, "ja")
	}
}
