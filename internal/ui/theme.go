package ui

import (
	"image/color"

	"charm.land/lipgloss/v2"
)

type Theme struct {
	Header      lipgloss.Style
	Status      lipgloss.Style
	PanelTitle  lipgloss.Style
	PanelBorder lipgloss.Style
	PanelBody   lipgloss.Style
	Accent      lipgloss.Style
	Pass        lipgloss.Style
	Fail        lipgloss.Style
	Pending     lipgloss.Style
	Muted       lipgloss.Style
}

// palette is the handful of colours a style variant chooses; every Theme
// style derives from it.
type palette struct {
	base    color.Color
	bar     color.Color
	text    color.Color
	title   color.Color
	border  color.Color
	accent  color.Color
	pass    color.Color
	fail    color.Color
	pending color.Color
	muted   color.Color
}

func ThemeForVariant(variant string) Theme {
	switch variant {
	case "cozy_clean":
		return themeFrom(palette{
			base:    lipgloss.Color("#1E2430"),
			bar:     lipgloss.Color("#30394A"),
			text:    lipgloss.Color("#F4F6FA"),
			title:   lipgloss.Color("#F2B872"),
			border:  lipgloss.Color("#4A5972"),
			accent:  lipgloss.Color("#86B6F6"),
			pass:    lipgloss.Color("#80C4A3"),
			fail:    lipgloss.Color("#D17A86"),
			pending: lipgloss.Color("#F2B872"),
			muted:   lipgloss.Color("#A3ACC2"),
		})
	case "retro_terminal":
		return themeFrom(palette{
			base:    lipgloss.Color("#07150A"),
			bar:     lipgloss.Color("#12301A"),
			text:    lipgloss.Color("#C5F7C4"),
			title:   lipgloss.Color("#E5D47A"),
			border:  lipgloss.Color("#1F5C2F"),
			accent:  lipgloss.Color("#9CF5A2"),
			pass:    lipgloss.Color("#9CF5A2"),
			fail:    lipgloss.Color("#FF6B6B"),
			pending: lipgloss.Color("#E5D47A"),
			muted:   lipgloss.Color("#73A17A"),
		})
	default:
		return themeFrom(palette{
			base:    lipgloss.Color("#0E1420"),
			bar:     lipgloss.Color("#1B2740"),
			text:    lipgloss.Color("#EAF2FF"),
			title:   lipgloss.Color("#5EEBFF"),
			border:  lipgloss.Color("#4B5F8A"),
			accent:  lipgloss.Color("#5EEBFF"),
			pass:    lipgloss.Color("#67F0A8"),
			fail:    lipgloss.Color("#FF6F91"),
			pending: lipgloss.Color("#FFC857"),
			muted:   lipgloss.Color("#9CAAC6"),
		})
	}
}

func themeFrom(p palette) Theme {
	return Theme{
		Header:      lipgloss.NewStyle().Background(p.base).Foreground(p.text).Padding(0, 1),
		Status:      lipgloss.NewStyle().Background(p.bar).Foreground(p.text).Padding(0, 1),
		PanelTitle:  lipgloss.NewStyle().Foreground(p.title).Bold(true),
		PanelBorder: lipgloss.NewStyle().Foreground(p.border),
		PanelBody:   lipgloss.NewStyle().Foreground(p.text),
		Accent:      lipgloss.NewStyle().Foreground(p.accent).Bold(true),
		Pass:        lipgloss.NewStyle().Foreground(p.pass).Bold(true),
		Fail:        lipgloss.NewStyle().Foreground(p.fail).Bold(true),
		Pending:     lipgloss.NewStyle().Foreground(p.pending),
		Muted:       lipgloss.NewStyle().Foreground(p.muted),
	}
}
