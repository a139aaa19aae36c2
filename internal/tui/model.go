package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"finboard/internal/domain"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const loadTimeout = 15 * time.Second

type IndicatorReader interface {
	GetByCategory(ctx context.Context, c domain.Category) ([]domain.Indicator, error)
	GetTicker(ctx context.Context) ([]domain.TickerItem, error)
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	tabStyle      = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("245"))
	activeTab     = tabStyle.Bold(true).Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))
	tickerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	tableBorder   = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("240"))
	categoryNames = map[domain.Category]string{
		domain.CategoryExchangeRate:  "Dólar",
		domain.CategoryInterestRate:  "Tasas",
		domain.CategoryInflation:     "Inflación",
		domain.CategoryMarketIndex:   "Mercados",
		domain.CategoryAgroCommodity: "Agro",
		domain.CategoryCrypto:        "Cripto",
	}
)

type loadedMsg struct {
	category   domain.Category
	indicators []domain.Indicator
	ticker     []domain.TickerItem
	err        error
	at         time.Time
}

// Model is the dashboard: one tab per category, a table of its indicators
// and the ticker strip on top.
type Model struct {
	indicators IndicatorReader
	username   string
	tabs       []domain.Category
	active     int
	table      table.Model
	data       map[domain.Category][]domain.Indicator
	ticker     []domain.TickerItem
	loading    bool
	err        error
	updated    time.Time
	width      int
	height     int
}

func NewModel(indicators IndicatorReader, username string) *Model {
	t := table.New(
		table.WithColumns(columns(80)),
		table.WithFocused(true),
		table.WithHeight(12),
	)
	return &Model{
		indicators: indicators,
		username:   username,
		tabs:       domain.Categories,
		table:      t,
		data:       make(map[domain.Category][]domain.Indicator),
		loading:    true,
	}
}

func columns(width int) []table.Column {
	name := width - 58
	if name < 20 {
		name = 20
	}
	return []table.Column{
		{Title: "Indicador", Width: name},
		{Title: "Valor", Width: 18},
		{Title: "Var.", Width: 9},
		{Title: "Fuente", Width: 16},
		{Title: "Hora", Width: 7},
	}
}

// SetSize adapts the layout to the terminal size.
func (m *Model) SetSize(width, height int) {
	m.width, m.height = width, height
	m.table.SetColumns(columns(width))
	if h := height - 10; h > 3 {
		m.table.SetHeight(h)
	}
}

func (m *Model) Init() tea.Cmd {
	return m.load(m.tabs[m.active])
}

func (m *Model) load(c domain.Category) tea.Cmd {
	reader := m.indicators
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()

		inds, err := reader.GetByCategory(ctx, c)
		if err != nil {
			return loadedMsg{category: c, err: err, at: time.Now()}
		}
		ticker, _ := reader.GetTicker(ctx)
		return loadedMsg{category: c, indicators: inds, ticker: ticker, at: time.Now()}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil
	case loadedMsg:
		m.loading = false
		m.err = msg.err
		m.updated = msg.at
		if msg.err == nil {
			m.data[msg.category] = msg.indicators
			if len(msg.ticker) > 0 {
				m.ticker = msg.ticker
			}
		}
		if msg.category == m.tabs[m.active] {
			m.table.SetRows(rows(m.data[msg.category]))
		}
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			m.loading = true
			return m, m.load(m.tabs[m.active])
		case "tab", "right", "l":
			return m, m.selectTab((m.active + 1) % len(m.tabs))
		case "shift+tab", "left", "h":
			return m, m.selectTab((m.active + len(m.tabs) - 1) % len(m.tabs))
		case "1", "2", "3", "4", "5", "6":
			if idx := int(msg.String()[0] - '1'); idx < len(m.tabs) {
				return m, m.selectTab(idx)
			}
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *Model) selectTab(idx int) tea.Cmd {
	m.active = idx
	c := m.tabs[idx]
	m.table.SetRows(rows(m.data[c]))
	m.table.GotoTop()
	if _, ok := m.data[c]; ok {
		return nil
	}
	m.loading = true
	return m.load(c)
}

func rows(inds []domain.Indicator) []table.Row {
	out := make([]table.Row, 0, len(inds))
	for _, ind := range inds {
		name := ind.Name
		if ind.IsFallback {
			name += " *"
		}
		change := ""
		if ind.ChangePct != nil {
			change = fmt.Sprintf("%+.2f%%", *ind.ChangePct)
		}
		at := ""
		if !ind.LastUpdated.IsZero() {
			at = ind.LastUpdated.Local().Format("15:04")
		}
		out = append(out, table.Row{name, ind.Display(), change, ind.Source, at})
	}
	return out
}

func (m *Model) View() string {
	var b strings.Builder

	header := titleStyle.Render("finboard")
	if m.username != "" {
		header += helpStyle.Render("  " + m.username)
	}
	b.WriteString(header + "\n")
	b.WriteString(m.tickerView() + "\n\n")

	tabs := make([]string, 0, len(m.tabs))
	for i, c := range m.tabs {
		label := fmt.Sprintf("%d %s", i+1, categoryNames[c])
		if i == m.active {
			tabs = append(tabs, activeTab.Render(label))
		} else {
			tabs = append(tabs, tabStyle.Render(label))
		}
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tabs...) + "\n")
	b.WriteString(tableBorder.Render(m.table.View()) + "\n")

	current := m.data[m.tabs[m.active]]
	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render("error: "+m.err.Error()) + "\n")
	case m.loading:
		b.WriteString(helpStyle.Render("loading…") + "\n")
	case len(current) == 0:
		b.WriteString(warnStyle.Render("no data available for this category") + "\n")
	}
	if d := disclaimer(current); d != "" {
		b.WriteString(warnStyle.Render("* "+d) + "\n")
	}

	footer := "tab/←→ switch · 1-6 jump · r refresh · q quit"
	if !m.updated.IsZero() {
		footer += " · updated " + m.updated.Local().Format("15:04:05")
	}
	b.WriteString(helpStyle.Render(footer))
	return b.String()
}

func (m *Model) tickerView() string {
	if len(m.ticker) == 0 {
		return helpStyle.Render("-")
	}
	parts := make([]string, 0, len(m.ticker))
	for _, it := range m.ticker {
		parts = append(parts, it.Label+" "+domain.FormatValue(it.Value, it.Format, it.Decimals, ""))
	}
	return tickerStyle.Render(strings.Join(parts, "  │  "))
}

func disclaimer(inds []domain.Indicator) string {
	for _, ind := range inds {
		if ind.IsFallback && ind.Disclaimer != "" {
			return ind.Disclaimer
		}
	}
	return ""
}
