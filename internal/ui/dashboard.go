// Package ui renders a live terminal dashboard of bonding curves.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/launchlab/internal/api"
	"github.com/rovshanmuradov/launchlab/internal/curve"
	"github.com/rovshanmuradov/launchlab/internal/events"
	"github.com/rovshanmuradov/launchlab/internal/export"
	"github.com/rovshanmuradov/launchlab/internal/ui/component"
	"github.com/rovshanmuradov/launchlab/internal/ui/style"
)

const (
	sparkWidth    = 16
	feedSize      = 5
	barWidth      = 24
	fetchTimeout  = 5 * time.Second
	minRefreshGap = 200 * time.Millisecond
)

type (
	tickMsg   time.Time
	curvesMsg struct {
		curves []export.CurveJSON
		at     time.Time
	}
	errMsg struct{ err error }
)

// Model is the bubbletea model of the curve dashboard.
type Model struct {
	source   Source
	interval time.Duration
	keys     KeyMap
	styles   style.Styles
	help     help.Model
	bar      progress.Model

	curves   []export.CurveJSON
	prices   map[string]*component.Sparkline
	feed     []api.EventMessage // newest first
	selected int
	updated  time.Time
	err      error
}

// NewModel creates a dashboard polling source every interval.
func NewModel(source Source, interval time.Duration) Model {
	if interval < minRefreshGap {
		interval = minRefreshGap
	}
	return Model{
		source:   source,
		interval: interval,
		keys:     DefaultKeyMap(),
		styles:   style.DefaultStyles(style.DefaultPalette()),
		help:     help.New(),
		bar: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(barWidth),
			progress.WithoutPercentage(),
		),
		prices: make(map[string]*component.Sparkline),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetch(), m.tick())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Up):
			if m.selected > 0 {
				m.selected--
			}
		case key.Matches(msg, m.keys.Down):
			if m.selected < len(m.curves)-1 {
				m.selected++
			}
		case key.Matches(msg, m.keys.Refresh):
			return m, m.fetch()
		}

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width

	case tickMsg:
		return m, tea.Batch(m.fetch(), m.tick())

	case curvesMsg:
		m.curves = msg.curves
		m.updated = msg.at
		m.err = nil
		for _, c := range m.curves {
			spark, ok := m.prices[c.TokenID]
			if !ok {
				spark = component.NewSparkline(sparkWidth)
				m.prices[c.TokenID] = spark
			}
			if p, err := decimal.NewFromString(c.PriceSOL); err == nil {
				spark.Push(p.InexactFloat64())
			}
		}
		if m.selected >= len(m.curves) {
			m.selected = max(len(m.curves)-1, 0)
		}

	case errMsg:
		m.err = msg.err

	case api.EventMessage:
		m.feed = append([]api.EventMessage{msg}, m.feed...)
		if len(m.feed) > feedSize {
			m.feed = m.feed[:feedSize]
		}
		return m, m.fetch()
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Bonding curves"))
	b.WriteString("\n\n")

	if len(m.curves) == 0 {
		b.WriteString(m.styles.Muted.Render("No curves yet"))
		b.WriteString("\n")
	}
	for i, c := range m.curves {
		b.WriteString(m.row(i, c))
		b.WriteString("\n")
	}

	if len(m.feed) > 0 {
		b.WriteString("\n")
		b.WriteString(m.styles.Header.Render("Live"))
		b.WriteString("\n")
		for _, ev := range m.feed {
			b.WriteString(m.feedLine(ev))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	switch {
	case m.err != nil:
		b.WriteString(m.styles.Error.Render("Refresh failed: " + m.err.Error()))
	case !m.updated.IsZero():
		b.WriteString(m.styles.Muted.Render("Updated " + m.updated.Format("15:04:05")))
	default:
		b.WriteString(m.styles.Muted.Render("Loading..."))
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) row(i int, c export.CurveJSON) string {
	pct, _ := decimal.NewFromString(c.ProgressPercent)

	symbol := m.styles.Cell.Render(fmt.Sprintf("%-8s", c.Symbol))
	if i == m.selected {
		symbol = m.styles.Selected.Render(fmt.Sprintf("%-8s", c.Symbol))
	}

	status := fmt.Sprintf("%6s%%", c.ProgressPercent)
	if c.Complete {
		status = m.styles.Complete.Render("COMPLETE")
	}

	trend := ""
	spark := m.prices[c.TokenID]
	if spark != nil {
		trend = spark.View() + " " + spark.Trend()
	}

	return lipgloss.JoinHorizontal(lipgloss.Center,
		symbol,
		m.styles.Muted.Render(shortID(c.TokenID)),
		m.styles.Cell.Render(fmt.Sprintf("%14s SOL", c.PriceSOL)),
		m.bar.ViewAs(pct.Div(decimal.NewFromInt(100)).InexactFloat64()),
		m.styles.Cell.Render(status),
		m.styles.Cell.Render(fmt.Sprintf("mcap %s", c.MarketCapSOL)),
		trend,
	)
}

func (m Model) feedLine(ev api.EventMessage) string {
	at := ev.Time.Local().Format("15:04:05")
	switch ev.Type {
	case events.TradeApplied:
		line := fmt.Sprintf("%s %-4s %s tokens for %s SOL on %s", at, ev.Direction, ev.TokenAmount, ev.SOLAmount, shortID(ev.TokenID))
		if ev.Direction == curve.Buy.String() {
			return m.styles.Buy.Render(line)
		}
		return m.styles.Sell.Render(line)
	case events.CurveCompleted:
		return m.styles.Complete.Render(fmt.Sprintf("%s %s completed with %s SOL", at, shortID(ev.TokenID), ev.SOLAmount))
	default:
		return m.styles.Muted.Render(fmt.Sprintf("%s %s launched %s", at, ev.Symbol, shortID(ev.TokenID)))
	}
}

func (m Model) fetch() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		curves, err := m.source.ListCurves(ctx)
		if err != nil {
			return errMsg{err: err}
		}
		return curvesMsg{curves: curves, at: time.Now()}
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func shortID(id string) string {
	if len(id) <= 10 {
		return id
	}
	return id[:4] + "..." + id[len(id)-4:]
}
