package ui

import "github.com/charmbracelet/lipgloss"

type Theme struct {
	Header       lipgloss.Style
	Border       lipgloss.Style
	Cell         lipgloss.Style
	Overlay      lipgloss.Style
	OverlayTitle lipgloss.Style
	Accent       lipgloss.Style
	Pass         lipgloss.Style
	Fail         lipgloss.Style
	Pending      lipgloss.Style
	Muted        lipgloss.Style
	Info         lipgloss.Style
}

func DefaultTheme() Theme {
	return ThemeForVariant("badlands")
}

func ThemeForVariant(variant string) Theme {
	switch variant {
	case "plain":
		return plainTheme()
	case "retro_terminal":
		return retroTerminalTheme()
	default:
		return badlandsTheme()
	}
}

// Variants lists the accepted theme names.
func Variants() []string {
	return []string{"badlands", "retro_terminal", "plain"}
}

func badlandsTheme() Theme {
	sand := lipgloss.Color("#F2C14E")
	crystal := lipgloss.Color("#5EEBFF")
	rust := lipgloss.Color("#F25C54")
	sage := lipgloss.Color("#7BD389")
	dust := lipgloss.Color("#9C8F7A")
	ink := lipgloss.Color("#1C1612")
	paper := lipgloss.Color("#F7EFE2")

	return Theme{
		Header: lipgloss.NewStyle().
			Foreground(sand).
			Bold(true).
			Padding(0, 1),
		Border: lipgloss.NewStyle().
			Foreground(dust),
		Cell: lipgloss.NewStyle().
			Padding(0, 1),
		Overlay: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(crystal).
			Background(ink).
			Foreground(paper).
			Padding(1, 2),
		OverlayTitle: lipgloss.NewStyle().
			Foreground(crystal).
			Bold(true),
		Accent: lipgloss.NewStyle().
			Foreground(crystal).
			Bold(true),
		Pass: lipgloss.NewStyle().
			Foreground(sage).
			Bold(true),
		Fail: lipgloss.NewStyle().
			Foreground(rust).
			Bold(true),
		Pending: lipgloss.NewStyle().
			Foreground(sand),
		Muted: lipgloss.NewStyle().
			Foreground(dust),
		Info: lipgloss.NewStyle().
			Foreground(crystal),
	}
}

func retroTerminalTheme() Theme {
	lime := lipgloss.Color("#9CF5A2")
	amber := lipgloss.Color("#E5D47A")
	red := lipgloss.Color("#FF6B6B")
	deep := lipgloss.Color("#07150A")
	forest := lipgloss.Color("#1F5C2F")
	glow := lipgloss.Color("#C5F7C4")

	return Theme{
		Header: lipgloss.NewStyle().Foreground(amber).Bold(true).Padding(0, 1),
		Border: lipgloss.NewStyle().Foreground(forest),
		Cell:   lipgloss.NewStyle().Foreground(glow).Padding(0, 1),
		Overlay: lipgloss.NewStyle().
			BorderStyle(lipgloss.DoubleBorder()).
			BorderForeground(amber).
			Background(deep).
			Foreground(glow).
			Padding(1, 2),
		OverlayTitle: lipgloss.NewStyle().Foreground(amber).Bold(true),
		Accent:       lipgloss.NewStyle().Foreground(lime).Bold(true),
		Pass:         lipgloss.NewStyle().Foreground(lime).Bold(true),
		Fail:         lipgloss.NewStyle().Foreground(red).Bold(true),
		Pending:      lipgloss.NewStyle().Foreground(amber),
		Muted:        lipgloss.NewStyle().Foreground(lipgloss.Color("#73A17A")),
		Info:         lipgloss.NewStyle().Foreground(lime),
	}
}

func plainTheme() Theme {
	cell := lipgloss.NewStyle().Padding(0, 1)
	return Theme{
		Header:       lipgloss.NewStyle().Bold(true).Padding(0, 1),
		Border:       lipgloss.NewStyle(),
		Cell:         cell,
		Overlay:      lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).Padding(1, 2),
		OverlayTitle: lipgloss.NewStyle().Bold(true),
		Accent:       lipgloss.NewStyle().Bold(true),
		Pass:         lipgloss.NewStyle(),
		Fail:         lipgloss.NewStyle(),
		Pending:      lipgloss.NewStyle(),
		Muted:        lipgloss.NewStyle(),
		Info:         lipgloss.NewStyle(),
	}
}
