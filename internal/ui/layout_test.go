package ui

import "testing"

func TestDetermineLayoutMode(t *testing.T) {
	if got := DetermineLayoutMode(80); got != LayoutCompact {
		t.Fatalf("expected compact, got %v", got)
	}
	if got := DetermineLayoutMode(140); got != LayoutWide {
		t.Fatalf("expected wide, got %v", got)
	}
	if got := DetermineLayoutMode(0); got != LayoutWide {
		t.Fatalf("unknown width should render wide, got %v", got)
	}
}
