package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/marshallshelly/pebble-ledger/internal/migration"
	"github.com/marshallshelly/pebble-ledger/internal/models"
)

const timeLayout = "2006-01-02 15:04:05"

// ConfirmationDialog represents a yes/no confirmation dialog
type ConfirmationDialog struct {
	Title       string
	Message     string
	YesSelected bool
}

type confirmedMsg struct{}

type cancelledMsg struct{}

// NewConfirmationDialog creates a dialog with No preselected.
func NewConfirmationDialog(title, message string) ConfirmationDialog {
	return ConfirmationDialog{Title: title, Message: message}
}

// Update moves the selection and answers enter with confirmedMsg or cancelledMsg.
func (d *ConfirmationDialog) Update(msg tea.Msg) tea.Cmd {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}

	switch key.String() {
	case "left", "h":
		d.YesSelected = true
	case "right", "l":
		d.YesSelected = false
	case "y":
		return func() tea.Msg { return confirmedMsg{} }
	case "n":
		return func() tea.Msg { return cancelledMsg{} }
	case "enter":
		if d.YesSelected {
			return func() tea.Msg { return confirmedMsg{} }
		}
		return func() tea.Msg { return cancelledMsg{} }
	}
	return nil
}

// View renders the confirmation dialog
func (d ConfirmationDialog) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(d.Title))
	b.WriteString("\n\n")
	b.WriteString(d.Message)
	b.WriteString("\n\n")

	yesButton := inactiveButtonStyle.Render("Yes")
	noButton := inactiveButtonStyle.Render("No")
	if d.YesSelected {
		yesButton = activeButtonStyle.Render("Yes")
	} else {
		noButton = activeButtonStyle.Render("No")
	}

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Left, yesButton, "  ", noButton))
	b.WriteString("\n\n")
	b.WriteString(helpLine(FormatKey("←/→", "navigate"), FormatKey("enter", "confirm"), FormatKey("esc/q", "cancel")))

	return boxStyle.Render(b.String())
}

// MigrationItem is a migration row in the migrate list.
type MigrationItem struct {
	Record migration.MigrationRecord
}

func (i MigrationItem) FilterValue() string { return i.Record.Name }

func (i MigrationItem) Title() string {
	return fmt.Sprintf("%s %s - %s", FormatStatus(string(i.Record.Status)), i.Record.Version, i.Record.Name)
}

func (i MigrationItem) Description() string {
	switch {
	case i.Record.Status == migration.StatusFailed && i.Record.Error != nil:
		return dangerStyle.Render("Error: " + *i.Record.Error)
	case i.Record.AppliedAt != nil:
		return mutedStyle.Render("Applied: " + i.Record.AppliedAt.Format(timeLayout))
	default:
		return mutedStyle.Render("Not applied")
	}
}

// TransferItem is a transfer row seen from one account.
type TransferItem struct {
	Transfer  models.Transfer
	AccountID int64
}

func (i TransferItem) FilterValue() string { return i.Transfer.Reference.String() }

func (i TransferItem) Title() string {
	t := i.Transfer
	arrow, counterparty := "→", t.ReceiverID
	if t.Direction(i.AccountID) == "in" {
		arrow, counterparty = "←", t.SenderID
	}

	amount := t.SignedAmount(i.AccountID)
	amountText := successStyle.Render("+" + amount.StringFixed(models.AmountScale))
	if amount.IsNegative() {
		amountText = dangerStyle.Render(amount.StringFixed(models.AmountScale))
	}

	return fmt.Sprintf("#%d %s account %d  %s", t.ID, arrow, counterparty, amountText)
}

func (i TransferItem) Description() string {
	return FormatStatus(string(i.Transfer.Status)) + mutedStyle.Render(
		"  "+i.Transfer.CreatedAt.Format(timeLayout)+"  "+i.Transfer.Reference.String())
}

// itemDelegate renders two-line items with a selection marker.
type itemDelegate struct{}

func (d itemDelegate) Height() int                             { return 2 }
func (d itemDelegate) Spacing() int                            { return 1 }
func (d itemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	i, ok := item.(list.DefaultItem)
	if !ok {
		return
	}

	var s string
	if index == m.Index() {
		s = selectedItemStyle.Render("▸ " + i.Title() + "\n  " + i.Description())
	} else {
		s = unselectedItemStyle.Render("  " + i.Title() + "\n  " + i.Description())
	}

	_, _ = fmt.Fprint(w, s)
}

func newList(title string) list.Model {
	l := list.New(nil, itemDelegate{}, 0, 0)
	l.Title = title
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle
	return l
}

// ProgressView represents a progress indicator
type ProgressView struct {
	Title   string
	Current int
	Total   int
	Message string
}

// View renders the progress view
func (p ProgressView) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(p.Title))
	b.WriteString("\n\n")

	if p.Message != "" {
		b.WriteString(infoStyle.Render(p.Message))
		b.WriteString("\n\n")
	}

	b.WriteString(FormatProgressBar(p.Current, p.Total, 40))

	return boxStyle.Render(b.String())
}

// LogView keeps the last MaxLen log lines.
type LogView struct {
	Logs   []string
	MaxLen int
}

// NewLogView creates a new log view
func NewLogView(maxLen int) LogView {
	return LogView{MaxLen: maxLen}
}

// AddLog adds a log entry
func (l *LogView) AddLog(entry string) {
	l.Logs = append(l.Logs, entry)
	if len(l.Logs) > l.MaxLen {
		l.Logs = l.Logs[len(l.Logs)-l.MaxLen:]
	}
}

// View renders the log view
func (l LogView) View() string {
	if len(l.Logs) == 0 {
		return mutedStyle.Render("No logs")
	}

	var b strings.Builder
	for _, entry := range l.Logs {
		b.WriteString(mutedStyle.Render("• "))
		b.WriteString(entry)
		b.WriteString("\n")
	}

	return boxStyle.Render(b.String())
}

func placeCenter(width, height int, content string) string {
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}
