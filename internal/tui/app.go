// Package tui provides the interactive Bubble Tea dashboard for finctl.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aifinance/finctl/internal/api"
	"github.com/aifinance/finctl/internal/cli"
	"github.com/aifinance/finctl/internal/model"
	"github.com/aifinance/finctl/internal/session"
	"github.com/aifinance/finctl/internal/tui/components"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Backend is the part of the API client the dashboard reads from.
type Backend interface {
	BalanceSummary(ctx context.Context) (model.BalanceSummary, error)
	BudgetStatus(ctx context.Context) ([]model.BudgetStatus, error)
	ListTransactions(ctx context.Context, f model.TransactionFilter) ([]model.Transaction, error)
	PredictExpenses(ctx context.Context, in model.PredictionRequest) api.Result[model.ExpensePrediction]
	MarketOverview(ctx context.Context) api.Result[model.MarketOverview]
}

// Options configures the dashboard.
type Options struct {
	User            *model.User
	States          <-chan session.State
	RefreshInterval time.Duration
	RecentLimit     int
}

// dataLoadedMsg is sent when a load of every tab's data finishes.
type dataLoadedMsg struct {
	data    dashboardData
	err     error
	elapsed time.Duration
}

// sessionMsg carries a session state change.
type sessionMsg struct {
	state session.State
}

// refreshTickMsg fires on the auto-refresh interval.
type refreshTickMsg time.Time

type dashboardData struct {
	balance    model.BalanceSummary
	budgets    []model.BudgetStatus
	recent     []model.Transaction
	prediction api.Result[model.ExpensePrediction]
	market     api.Result[model.MarketOverview]
	loadedAt   time.Time
}

const (
	tabOverview = iota
	tabTransactions
	tabBudgets
	tabMarket
)

const minTerminalWidth = 60

// App is the root Bubble Tea model.
type App struct {
	ctx     context.Context
	backend Backend
	opts    Options

	data     dashboardData
	loaded   bool
	loading  bool
	loadErr  error
	loadTime time.Duration

	user    *model.User
	expired bool

	width     int
	height    int
	activeTab int

	spinner spinner.Model
}

// NewApp creates the dashboard model.
func NewApp(ctx context.Context, backend Backend, opts Options) App {
	if opts.RecentLimit <= 0 {
		opts.RecentLimit = 25
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(cli.Active().Accent)

	return App{
		ctx:     ctx,
		backend: backend,
		opts:    opts,
		user:    opts.User,
		loading: true,
		spinner: sp,
		width:   80,
	}
}

// Run starts the dashboard and blocks until the user quits or ctx ends.
func Run(ctx context.Context, backend Backend, opts Options) error {
	p := tea.NewProgram(NewApp(ctx, backend, opts),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	return tea.Batch(a.spinner.Tick, a.loadCmd(), waitForState(a.opts.States))
}

func (a App) loadCmd() tea.Cmd {
	ctx, backend, limit := a.ctx, a.backend, a.opts.RecentLimit
	return func() tea.Msg {
		start := time.Now()
		var d dashboardData
		var err error

		if d.balance, err = backend.BalanceSummary(ctx); err != nil {
			return dataLoadedMsg{err: err, elapsed: time.Since(start)}
		}
		if d.budgets, err = backend.BudgetStatus(ctx); err != nil {
			return dataLoadedMsg{err: err, elapsed: time.Since(start)}
		}
		if d.recent, err = backend.ListTransactions(ctx, model.TransactionFilter{Limit: limit}); err != nil {
			return dataLoadedMsg{err: err, elapsed: time.Since(start)}
		}
		d.prediction = backend.PredictExpenses(ctx, model.PredictionRequest{MonthsAhead: 1})
		d.market = backend.MarketOverview(ctx)
		d.loadedAt = time.Now()
		return dataLoadedMsg{data: d, elapsed: time.Since(start)}
	}
}

func waitForState(ch <-chan session.State) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		st, ok := <-ch
		if !ok {
			return nil
		}
		return sessionMsg{state: st}
	}
}

func (a App) scheduleRefresh() tea.Cmd {
	if a.opts.RefreshInterval <= 0 {
		return nil
	}
	return tea.Tick(a.opts.RefreshInterval, func(t time.Time) tea.Msg {
		return refreshTickMsg(t)
	})
}

func (a App) startLoad() (App, tea.Cmd) {
	if a.loading || a.expired {
		return a, nil
	}
	a.loading = true
	return a, tea.Batch(a.spinner.Tick, a.loadCmd())
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case tea.MouseMsg:
		if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft && msg.Y == 0 {
			if idx := components.TabAtX(a.activeTab, msg.X); idx >= 0 {
				a.activeTab = idx
			}
		}
		return a, nil

	case spinner.TickMsg:
		if !a.loading {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case dataLoadedMsg:
		a.loading = false
		a.loadTime = msg.elapsed
		a.loadErr = msg.err
		if msg.err == nil {
			a.data = msg.data
			a.loaded = true
		}
		if errors.Is(msg.err, api.ErrSessionExpired) {
			a.expired = true
			return a, nil
		}
		return a, a.scheduleRefresh()

	case refreshTickMsg:
		return a.startLoad()

	case sessionMsg:
		if msg.state.User != nil {
			a.user = msg.state.User
		}
		if !msg.state.Authenticated && !msg.state.Loading {
			a.expired = true
		}
		return a, waitForState(a.opts.States)
	}
	return a, nil
}

func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return a, tea.Quit
	case "r":
		return a.startLoad()
	case "right", "tab", "l":
		a.activeTab = (a.activeTab + 1) % len(components.Tabs)
		return a, nil
	case "left", "shift+tab", "h":
		a.activeTab = (a.activeTab + len(components.Tabs) - 1) % len(components.Tabs)
		return a, nil
	}
	if len(msg.Runes) == 1 {
		if idx := components.TabIdxByKey(msg.Runes[0]); idx >= 0 {
			a.activeTab = idx
		}
	}
	return a, nil
}

// View implements tea.Model.
func (a App) View() string {
	if a.width > 0 && a.width < minTerminalWidth {
		return fmt.Sprintf("\n  Terminal too narrow (%d cols, need %d).\n", a.width, minTerminalWidth)
	}

	var b strings.Builder
	b.WriteString(components.RenderTabBar(a.activeTab))
	b.WriteString("\n\n")

	switch {
	case a.expired:
		b.WriteString(cli.Bad("  Your session has expired. Quit and run `finctl login`."))
		b.WriteString("\n")
	case !a.loaded && a.loading:
		b.WriteString("  " + a.spinner.View() + " Loading...\n")
	case !a.loaded && a.loadErr != nil:
		b.WriteString(cli.Bad("  " + a.loadErr.Error()))
		b.WriteString("\n")
	default:
		b.WriteString(a.renderTab())
	}

	b.WriteString("\n")
	b.WriteString(components.RenderStatusBar(a.width, " [r]efresh  [q]uit", a.statusRight()))
	return b.String()
}

func (a App) statusRight() string {
	var parts []string
	if a.user != nil {
		parts = append(parts, a.user.Email)
	}
	switch {
	case a.loading && a.loaded:
		parts = append(parts, a.spinner.View()+" refreshing")
	case a.loaded:
		parts = append(parts, "updated "+a.data.loadedAt.Format("15:04:05"))
	}
	return strings.Join(parts, "  ") + " "
}

func (a App) currency() string {
	if a.user != nil {
		return a.user.PreferredCurrency
	}
	return ""
}

func (a App) renderTab() string {
	switch a.activeTab {
	case tabTransactions:
		return a.renderTransactions()
	case tabBudgets:
		return a.renderBudgets()
	case tabMarket:
		return a.renderMarket()
	default:
		return a.renderOverview()
	}
}

func (a App) renderOverview() string {
	cur := a.currency()
	d := a.data

	alerts := 0
	for _, st := range d.budgets {
		if st.Alert {
			alerts++
		}
	}
	predicted := cli.FormatMoney(d.prediction.Value.Total, cur)
	if d.prediction.Fallback {
		predicted += " " + cli.Muted("(default)")
	}

	return cli.RenderKV([][2]string{
		{"Total balance", cli.FormatMoney(d.balance.TotalBalance, cur)},
		{"Accounts", strconv.Itoa(d.balance.AccountCount)},
		{"Budget alerts", fmt.Sprintf("%d of %d", alerts, len(d.budgets))},
		{"Next month", predicted},
		{"Prediction confidence", d.prediction.Value.Confidence},
	})
}

func (a App) renderTransactions() string {
	if len(a.data.recent) == 0 {
		return "  No transactions yet.\n"
	}
	cur := a.currency()
	rows := make([][]string, 0, len(a.data.recent))
	for _, t := range a.data.recent {
		amount := t.Amount
		if t.IsExpense() {
			amount = amount.Neg()
		}
		desc := ""
		if t.Description != nil {
			desc = *t.Description
		}
		rows = append(rows, []string{
			cli.FormatDate(t.Date),
			cli.Truncate(desc, 28),
			t.Category,
			cli.FormatSigned(amount, cur),
		})
	}
	return cli.RenderTable(cli.Table{
		Headers: []string{"Date", "Description", "Category", "Amount"},
		Rows:    rows,
	})
}

func (a App) renderBudgets() string {
	if len(a.data.budgets) == 0 {
		return "  No budgets yet.\n"
	}
	cur := a.currency()
	barWidth := a.width / 4
	if barWidth < 10 {
		barWidth = 10
	}

	var b strings.Builder
	for _, st := range a.data.budgets {
		fmt.Fprintf(&b, "  %-16s %s  %s / %s\n",
			cli.Truncate(st.Budget.Category, 16),
			components.BudgetBar(st.PercentageUsed, barWidth),
			cli.FormatMoney(st.Spent, cur),
			cli.FormatMoney(st.Budget.LimitAmount, cur),
		)
	}
	return b.String()
}

func (a App) renderMarket() string {
	ov := a.data.market.Value
	if len(ov.Stocks) == 0 && len(ov.Cryptocurrencies) == 0 {
		return "  No market data available.\n"
	}

	var b strings.Builder
	for _, q := range ov.Stocks {
		fmt.Fprintf(&b, "  %-8s %14s  %s\n", q.Symbol, cli.FormatMoney(q.Price, "USD"), q.ChangePercent)
	}
	if len(ov.Stocks) > 0 && len(ov.Cryptocurrencies) > 0 {
		b.WriteString("\n")
	}
	for _, q := range ov.Cryptocurrencies {
		fmt.Fprintf(&b, "  %-8s %14s  %s\n", q.Symbol, cli.FormatMoney(q.Price, "USD"), cli.FormatPercent(q.Change24h))
	}
	return b.String()
}
