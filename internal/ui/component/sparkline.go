package component

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/launchlab/internal/ui/style"
)

var sparkChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline renders the most recent width samples of a series, scaled
// between their own minimum and maximum.
type Sparkline struct {
	data  []float64
	width int
	style lipgloss.Style
}

// NewSparkline creates a sparkline keeping width samples.
func NewSparkline(width int) *Sparkline {
	return &Sparkline{
		width: width,
		style: lipgloss.NewStyle().Foreground(style.DefaultPalette().Primary),
	}
}

// Push appends a sample. Repeating the previous value is a no-op so that
// polling an idle curve does not flatten its history.
func (s *Sparkline) Push(v float64) {
	if n := len(s.data); n > 0 && s.data[n-1] == v {
		return
	}
	s.data = append(s.data, v)
	if len(s.data) > s.width {
		s.data = s.data[len(s.data)-s.width:]
	}
}

// Len returns the number of samples held.
func (s *Sparkline) Len() int { return len(s.data) }

// Trend is "↗", "↘" or "→" comparing the first and last samples.
func (s *Sparkline) Trend() string {
	if len(s.data) < 2 {
		return "→"
	}
	first, last := s.data[0], s.data[len(s.data)-1]
	switch {
	case last > first:
		return "↗"
	case last < first:
		return "↘"
	default:
		return "→"
	}
}

// View renders the sparkline padded to its width.
func (s *Sparkline) View() string {
	return s.style.Render(s.blocks())
}

func (s *Sparkline) blocks() string {
	if len(s.data) == 0 {
		return strings.Repeat("▁", s.width)
	}

	lo, hi := s.data[0], s.data[0]
	for _, v := range s.data {
		lo = min(lo, v)
		hi = max(hi, v)
	}

	var b strings.Builder
	for _, v := range s.data {
		idx := len(sparkChars) / 2
		if hi > lo {
			idx = int((v - lo) / (hi - lo) * float64(len(sparkChars)-1))
		}
		b.WriteRune(sparkChars[idx])
	}
	if pad := s.width - len(s.data); pad > 0 {
		b.WriteString(strings.Repeat(" ", pad))
	}
	return b.String()
}
