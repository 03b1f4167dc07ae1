package style

import "github.com/charmbracelet/lipgloss"

var (
	Cyan    = lipgloss.Color("#00E5FF")
	Magenta = lipgloss.Color("#FF1B6B")
	Yellow  = lipgloss.Color("#FFB500")
	Green   = lipgloss.Color("#2AFFAA")
	Red     = lipgloss.Color("#FF5555")
	Blue    = lipgloss.Color("#3B82F6")

	Base03 = lipgloss.Color("#1B1D23") // background
	Base01 = lipgloss.Color("#6C7280") // muted text
	Base2  = lipgloss.Color("#ECEFF4") // primary text
)

// Palette groups the dashboard colours by role.
type Palette struct {
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Success   lipgloss.Color
	Error     lipgloss.Color
	Warning   lipgloss.Color
	Info      lipgloss.Color

	Background lipgloss.Color
	Text       lipgloss.Color
	TextMuted  lipgloss.Color

	Buy      lipgloss.Color
	Sell     lipgloss.Color
	Complete lipgloss.Color
}

// DefaultPalette returns the default color palette
func DefaultPalette() Palette {
	return Palette{
		Primary:   Cyan,
		Secondary: Magenta,
		Success:   Green,
		Error:     Red,
		Warning:   Yellow,
		Info:      Blue,

		Background: Base03,
		Text:       Base2,
		TextMuted:  Base01,

		Buy:      Green,
		Sell:     Red,
		Complete: Yellow,
	}
}

// Styles are the lipgloss styles shared by the dashboard and CLI tables.
type Styles struct {
	Title    lipgloss.Style
	Header   lipgloss.Style
	Cell     lipgloss.Style
	Selected lipgloss.Style
	Muted    lipgloss.Style
	Error    lipgloss.Style
	Complete lipgloss.Style
	Buy      lipgloss.Style
	Sell     lipgloss.Style
	Border   lipgloss.Style
}

// DefaultStyles derives Styles from p.
func DefaultStyles(p Palette) Styles {
	return Styles{
		Title:    lipgloss.NewStyle().Foreground(p.Primary).Bold(true).Padding(0, 1),
		Header:   lipgloss.NewStyle().Foreground(p.Secondary).Bold(true).Padding(0, 1),
		Cell:     lipgloss.NewStyle().Foreground(p.Text).Padding(0, 1),
		Selected: lipgloss.NewStyle().Foreground(p.Background).Background(p.Primary).Padding(0, 1),
		Muted:    lipgloss.NewStyle().Foreground(p.TextMuted).Padding(0, 1),
		Error:    lipgloss.NewStyle().Foreground(p.Error).Bold(true).Padding(0, 1),
		Complete: lipgloss.NewStyle().Foreground(p.Complete).Bold(true),
		Buy:      lipgloss.NewStyle().Foreground(p.Buy).Padding(0, 1),
		Sell:     lipgloss.NewStyle().Foreground(p.Sell).Padding(0, 1),
		Border:   lipgloss.NewStyle().Foreground(p.TextMuted),
	}
}
