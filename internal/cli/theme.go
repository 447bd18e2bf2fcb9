package cli

import "github.com/charmbracelet/lipgloss"

// Palette holds the colors used for table and status output.
type Palette struct {
	Name   string
	Border lipgloss.Color
	Dim    lipgloss.Color
	Muted  lipgloss.Color
	Text   lipgloss.Color
	Accent lipgloss.Color
	Green  lipgloss.Color
	Orange lipgloss.Color
	Red    lipgloss.Color
}

// FlexokiDark is the default palette.
var FlexokiDark = Palette{
	Name:   "flexoki-dark",
	Border: lipgloss.Color("#282726"),
	Dim:    lipgloss.Color("#575653"),
	Muted:  lipgloss.Color("#6F6E69"),
	Text:   lipgloss.Color("#FFFCF0"),
	Accent: lipgloss.Color("#3AA99F"),
	Green:  lipgloss.Color("#879A39"),
	Orange: lipgloss.Color("#DA702C"),
	Red:    lipgloss.Color("#D14D41"),
}

// CatppuccinMocha is a softer pastel palette.
var CatppuccinMocha = Palette{
	Name:   "catppuccin-mocha",
	Border: lipgloss.Color("#313244"),
	Dim:    lipgloss.Color("#585B70"),
	Muted:  lipgloss.Color("#7F849C"),
	Text:   lipgloss.Color("#CDD6F4"),
	Accent: lipgloss.Color("#89B4FA"),
	Green:  lipgloss.Color("#A6E3A1"),
	Orange: lipgloss.Color("#FAB387"),
	Red:    lipgloss.Color("#F38BA8"),
}

// Terminal uses the terminal's own ANSI colors.
var Terminal = Palette{
	Name:   "terminal",
	Border: lipgloss.Color("8"),
	Dim:    lipgloss.Color("8"),
	Muted:  lipgloss.Color("7"),
	Text:   lipgloss.Color("15"),
	Accent: lipgloss.Color("6"),
	Green:  lipgloss.Color("2"),
	Orange: lipgloss.Color("3"),
	Red:    lipgloss.Color("1"),
}

// Palettes lists the selectable palettes.
var Palettes = []Palette{FlexokiDark, CatppuccinMocha, Terminal}

// PaletteByName returns the named palette, or FlexokiDark.
func PaletteByName(name string) Palette {
	for _, p := range Palettes {
		if p.Name == name {
			return p
		}
	}
	return FlexokiDark
}

// PaletteNames returns the names of all palettes.
func PaletteNames() []string {
	names := make([]string, len(Palettes))
	for i, p := range Palettes {
		names[i] = p.Name
	}
	return names
}

var (
	active      = FlexokiDark
	titleStyle  lipgloss.Style
	headerStyle lipgloss.Style
	valueStyle  lipgloss.Style
	mutedStyle  lipgloss.Style
	goodStyle   lipgloss.Style
	warnStyle   lipgloss.Style
	badStyle    lipgloss.Style
	dimStyle    lipgloss.Style
)

func init() { applyPalette(FlexokiDark) }

// SetTheme switches the output palette by name.
func SetTheme(name string) {
	applyPalette(PaletteByName(name))
}

func applyPalette(p Palette) {
	active = p
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(p.Text).Align(lipgloss.Center)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(p.Accent)
	valueStyle = lipgloss.NewStyle().Foreground(p.Text)
	mutedStyle = lipgloss.NewStyle().Foreground(p.Muted)
	goodStyle = lipgloss.NewStyle().Foreground(p.Green)
	warnStyle = lipgloss.NewStyle().Foreground(p.Orange)
	badStyle = lipgloss.NewStyle().Foreground(p.Red)
	dimStyle = lipgloss.NewStyle().Foreground(p.Dim)
}

// Active returns the palette selected by SetTheme.
func Active() Palette { return active }
