package ui

type LayoutMode int

const (
	LayoutCompact LayoutMode = iota
	LayoutWide
)

// DetermineLayoutMode picks the board layout for a terminal cols wide.
// Zero means the width is unknown.
func DetermineLayoutMode(cols int) LayoutMode {
	if cols > 0 && cols < 100 {
		return LayoutCompact
	}
	return LayoutWide
}

// textWidth is how much of a mission's objective fits on one board row.
func textWidth(mode LayoutMode) int {
	if mode == LayoutCompact {
		return 40
	}
	return 72
}
