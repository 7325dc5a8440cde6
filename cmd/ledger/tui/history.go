package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/marshallshelly/pebble-ledger/internal/ledger"
	"github.com/marshallshelly/pebble-ledger/internal/models"
)

// HistorySource lists an account's transfers. *ledger.Service satisfies it.
type HistorySource interface {
	History(ctx context.Context, accountID int64, page ledger.Page) ([]models.Transfer, error)
}

// HistoryModel browses one account's transfers a page at a time.
type HistoryModel struct {
	ctx       context.Context
	source    HistorySource
	accountID int64
	page      ledger.Page
	list      list.Model
	loading   bool
	lastCount int
	err       error
}

type historyLoadedMsg struct {
	page      ledger.Page
	transfers []models.Transfer
	err       error
}

// NewHistoryModel creates a browser starting at page.
func NewHistoryModel(ctx context.Context, source HistorySource, accountID int64, page ledger.Page) HistoryModel {
	page = page.Normalize()

	return HistoryModel{
		ctx:       ctx,
		source:    source,
		accountID: accountID,
		page:      page,
		list:      newList(fmt.Sprintf("Transfers for account %d", accountID)),
		loading:   true,
	}
}

// Init loads the first page.
func (m HistoryModel) Init() tea.Cmd {
	return tea.Batch(m.loadCmd(m.page), tea.EnterAltScreen)
}

func (m HistoryModel) loadCmd(page ledger.Page) tea.Cmd {
	return func() tea.Msg {
		transfers, err := m.source.History(m.ctx, m.accountID, page)
		return historyLoadedMsg{page: page, transfers: transfers, err: err}
	}
}

// Update handles messages
func (m HistoryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width-4, msg.Height-6)
		return m, nil

	case historyLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.page = msg.page
		m.lastCount = len(msg.transfers)

		items := make([]list.Item, len(msg.transfers))
		for i, t := range msg.transfers {
			items[i] = TransferItem{Transfer: t, AccountID: m.accountID}
		}
		return m, m.list.SetItems(items)

	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r":
			return m.load(m.page)
		case "n", "right":
			if m.lastCount < m.page.Limit {
				return m, nil
			}
			next := m.page
			next.Offset += next.Limit
			return m.load(next)
		case "p", "left":
			if m.page.Offset == 0 {
				return m, nil
			}
			prev := m.page
			prev.Offset = max(prev.Offset-prev.Limit, 0)
			return m.load(prev)
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m HistoryModel) load(page ledger.Page) (tea.Model, tea.Cmd) {
	if m.loading {
		return m, nil
	}
	m.loading = true
	return m, m.loadCmd(page)
}

// View renders the UI
func (m HistoryModel) View() string {
	status := mutedStyle.Render(fmt.Sprintf("Showing %d-%d", m.page.Offset+1, m.page.Offset+m.lastCount))
	switch {
	case m.loading:
		status = infoStyle.Render("Loading...")
	case m.err != nil:
		status = dangerStyle.Render("Error: " + m.err.Error())
	case m.lastCount == 0:
		status = mutedStyle.Render("No transfers")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.list.View(),
		status,
		helpLine(
			FormatKey("↑/↓", "navigate"),
			FormatKey("n/p", "next/prev page"),
			FormatKey("r", "refresh"),
			FormatKey("/", "filter"),
			FormatKey("q", "quit"),
		),
	)
}

// RunHistoryUI starts the interactive history browser
func RunHistoryUI(ctx context.Context, source HistorySource, accountID int64, page ledger.Page) error {
	p := tea.NewProgram(NewHistoryModel(ctx, source, accountID, page), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return err
	}
	if fm, ok := final.(HistoryModel); ok && fm.err != nil {
		return fm.err
	}
	return nil
}
