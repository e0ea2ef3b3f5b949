package tui

import (
	"github.com/charmbracelet/lipgloss"

	"jucket/config"
	"jucket/stylesheet"
)

// Palette is the color set of one theme.
type Palette struct {
	Primary   lipgloss.Color // focused items, active states
	Secondary lipgloss.Color

	FgBase   lipgloss.Color
	FgMuted  lipgloss.Color
	FgSubtle lipgloss.Color

	BgCursor lipgloss.Color
	Border   lipgloss.Color

	Disliked lipgloss.Color
	Error    lipgloss.Color
}

var darkPalette = Palette{
	Primary:   lipgloss.Color("#1db954"),
	Secondary: lipgloss.Color("#f1a208"),
	FgBase:    lipgloss.Color("#e0e0e0"),
	FgMuted:   lipgloss.Color("#a0a0a0"),
	FgSubtle:  lipgloss.Color("#606060"),
	BgCursor:  lipgloss.Color("#303030"),
	Border:    lipgloss.Color("#505050"),
	Disliked:  lipgloss.Color("#ff5555"),
	Error:     lipgloss.Color("#ff5555"),
}

var lightPalette = Palette{
	Primary:   lipgloss.Color("#148a3d"),
	Secondary: lipgloss.Color("#b36b00"),
	FgBase:    lipgloss.Color("#202020"),
	FgMuted:   lipgloss.Color("#505050"),
	FgSubtle:  lipgloss.Color("#909090"),
	BgCursor:  lipgloss.Color("#e0e0e0"),
	Border:    lipgloss.Color("#b0b0b0"),
	Disliked:  lipgloss.Color("#c62828"),
	Error:     lipgloss.Color("#c62828"),
}

// PaletteFor returns the palette of a resolved theme.
func PaletteFor(theme config.Theme) Palette {
	if theme == config.ThemeLight {
		return lightPalette
	}
	return darkPalette
}

// Styles are the prebuilt styles of the views, with the custom style sheet
// applied.
type Styles struct {
	Palette Palette

	Header             lipgloss.Style
	TrackName          lipgloss.Style
	ArtistsName        lipgloss.Style
	AlbumName          lipgloss.Style
	ContextDescription lipgloss.Style
	Controller         lipgloss.Style
	Progress           lipgloss.Style

	Muted    lipgloss.Style
	Subtle   lipgloss.Style
	Cursor   lipgloss.Style
	Disliked lipgloss.Style
	Error    lipgloss.Style

	Tab       lipgloss.Style
	ActiveTab lipgloss.Style
	Button    lipgloss.Style
	Panel     lipgloss.Style
}

// NewStyles builds the styles for a resolved theme and style sheet.
func NewStyles(theme config.Theme, sheet stylesheet.Sheet) Styles {
	p := PaletteFor(theme)
	base := lipgloss.NewStyle().Foreground(p.FgBase)

	return Styles{
		Palette: p,

		Header:             sheet.Apply(stylesheet.Header, lipgloss.NewStyle().Foreground(p.FgMuted)),
		TrackName:          sheet.Apply(stylesheet.TrackName, base.Bold(true)),
		ArtistsName:        sheet.Apply(stylesheet.ArtistsName, base),
		AlbumName:          sheet.Apply(stylesheet.AlbumName, lipgloss.NewStyle().Foreground(p.FgMuted)),
		ContextDescription: sheet.Apply(stylesheet.ContextDescription, lipgloss.NewStyle().Foreground(p.FgMuted).Italic(true)),
		Controller:         sheet.Apply(stylesheet.Controller, lipgloss.NewStyle().Foreground(p.Primary)),
		Progress:           sheet.Apply(stylesheet.Progress, lipgloss.NewStyle().Foreground(p.Primary)),

		Muted:    lipgloss.NewStyle().Foreground(p.FgMuted),
		Subtle:   lipgloss.NewStyle().Foreground(p.FgSubtle),
		Cursor:   lipgloss.NewStyle().Background(p.BgCursor).Foreground(p.FgBase),
		Disliked: lipgloss.NewStyle().Foreground(p.Disliked).Bold(true),
		Error:    lipgloss.NewStyle().Foreground(p.Error),

		Tab:       lipgloss.NewStyle().Foreground(p.FgMuted).Padding(0, 1),
		ActiveTab: lipgloss.NewStyle().Foreground(p.Primary).Bold(true).Underline(true).Padding(0, 1),
		Button:    lipgloss.NewStyle().Foreground(p.FgBase).Background(p.BgCursor).Padding(0, 1),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.Border).
			Padding(0, 1),
	}
}
