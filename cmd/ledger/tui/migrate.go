package tui

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/marshallshelly/pebble-ledger/internal/migration"
)

// Action is the direction an interactive migration run goes.
type Action string

const (
	ActionUp   Action = "up"
	ActionDown Action = "down"
)

// MigrateMode represents the current mode of the migration UI
type MigrateMode int

const (
	ModeList MigrateMode = iota
	ModeConfirm
	ModeExecuting
	ModeComplete
	ModeError
)

// Migrator is the part of *migration.Executor the migrate UI drives.
type Migrator interface {
	GetStatus(ctx context.Context, migrations []migration.Migration) ([]migration.MigrationRecord, error)
	Lock(ctx context.Context) error
	Unlock(ctx context.Context) error
	Apply(ctx context.Context, m migration.Migration, dryRun bool) error
	Rollback(ctx context.Context, m migration.Migration, dryRun bool) error
}

// MigrateModel is the Bubbletea model for interactive migrations.
type MigrateModel struct {
	ctx          context.Context
	mode         MigrateMode
	action       Action
	list         list.Model
	confirmation ConfirmationDialog
	progress     ProgressView
	logs         LogView
	err          error
	width        int
	height       int
	migrator     Migrator
	migrations   []migration.Migration
	status       []migration.MigrationRecord
	queue        []migration.Migration
	locked       bool
}

// NewMigrateModel creates a migrate UI over the given migrations.
func NewMigrateModel(ctx context.Context, action Action, migrator Migrator, migrations []migration.Migration) MigrateModel {
	return MigrateModel{
		ctx:        ctx,
		mode:       ModeList,
		action:     action,
		list:       newList("Database Migrations"),
		logs:       NewLogView(10),
		migrator:   migrator,
		migrations: migrations,
	}
}

type statusLoadedMsg struct {
	status []migration.MigrationRecord
}

type lockedMsg struct{}

type migrationExecutedMsg struct {
	version string
	err     error
}

type errorMsg struct {
	err error
}

// Init loads the migration status.
func (m MigrateModel) Init() tea.Cmd {
	return tea.Batch(m.loadStatusCmd(), tea.EnterAltScreen)
}

func (m MigrateModel) loadStatusCmd() tea.Cmd {
	return func() tea.Msg {
		status, err := m.migrator.GetStatus(m.ctx, m.migrations)
		if err != nil {
			return errorMsg{err: fmt.Errorf("failed to get migration status: %w", err)}
		}
		return statusLoadedMsg{status: status}
	}
}

func (m MigrateModel) lockCmd() tea.Cmd {
	return func() tea.Msg {
		if err := m.migrator.Lock(m.ctx); err != nil {
			return errorMsg{err: fmt.Errorf("failed to acquire lock: %w", err)}
		}
		return lockedMsg{}
	}
}

func (m MigrateModel) executeCmd(mig migration.Migration) tea.Cmd {
	return func() tea.Msg {
		var err error
		if m.action == ActionUp {
			err = m.migrator.Apply(m.ctx, mig, false)
		} else {
			err = m.migrator.Rollback(m.ctx, mig, false)
		}
		return migrationExecutedMsg{version: mig.Version, err: err}
	}
}

// planQueue returns the migrations to run when selected is chosen: for up,
// every pending migration up to and including it, oldest first; for down,
// every applied migration from the newest back to it.
func planQueue(action Action, status []migration.MigrationRecord, migrations []migration.Migration, selected int) []migration.Migration {
	if selected < 0 || selected >= len(status) || len(status) != len(migrations) {
		return nil
	}

	var queue []migration.Migration
	switch action {
	case ActionUp:
		if status[selected].Status == migration.StatusApplied {
			return nil
		}
		for i := 0; i <= selected; i++ {
			if status[i].Status != migration.StatusApplied {
				queue = append(queue, migrations[i])
			}
		}
	case ActionDown:
		if status[selected].Status != migration.StatusApplied {
			return nil
		}
		for i := len(status) - 1; i >= selected; i-- {
			if status[i].Status == migration.StatusApplied {
				queue = append(queue, migrations[i])
			}
		}
	}
	return queue
}

func (m MigrateModel) current() migration.Migration {
	return m.queue[m.progress.Current]
}

// Update handles messages
func (m MigrateModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case statusLoadedMsg:
		m.status = msg.status
		items := make([]list.Item, len(msg.status))
		for i, s := range msg.status {
			items[i] = MigrationItem{Record: s}
		}
		return m, m.list.SetItems(items)

	case confirmedMsg:
		m.mode = ModeExecuting
		m.progress = ProgressView{
			Title:   "Migration Progress",
			Total:   len(m.queue),
			Message: "Waiting for migration lock...",
		}
		return m, m.lockCmd()

	case cancelledMsg:
		m.mode = ModeList
		m.queue = nil
		return m, nil

	case lockedMsg:
		m.locked = true
		next := m.current()
		m.progress.Message = fmt.Sprintf("Executing: %s - %s", next.Version, next.Name)
		return m, m.executeCmd(next)

	case migrationExecutedMsg:
		if msg.err != nil {
			m.mode = ModeError
			m.err = msg.err
			m.logs.AddLog(dangerStyle.Render("Failed: " + msg.version + " - " + msg.err.Error()))
			return m, nil
		}

		m.logs.AddLog(successStyle.Render("✓ Completed: " + msg.version))
		m.progress.Current++

		if m.progress.Current >= m.progress.Total {
			m.mode = ModeComplete
			return m, nil
		}

		next := m.current()
		m.progress.Message = fmt.Sprintf("Executing: %s - %s", next.Version, next.Name)
		return m, m.executeCmd(next)

	case errorMsg:
		m.mode = ModeError
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case ModeList:
			if m.list.FilterState() == list.Filtering {
				break
			}
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit

			case "enter", " ":
				queue := planQueue(m.action, m.status, m.migrations, m.list.Index())
				if len(queue) == 0 {
					return m, nil
				}
				m.queue = queue

				names := make([]string, len(queue))
				for i, mig := range queue {
					names[i] = "  " + mig.Version + " - " + mig.Name
				}
				m.confirmation = NewConfirmationDialog(
					fmt.Sprintf("Confirm Migration %s", strings.ToUpper(string(m.action))),
					fmt.Sprintf("Run %s on %d migration(s):\n%s", m.action, len(queue), strings.Join(names, "\n")),
				)
				m.mode = ModeConfirm
				return m, nil
			}

		case ModeConfirm:
			switch msg.String() {
			case "ctrl+c", "q", "esc":
				m.mode = ModeList
				m.queue = nil
				return m, nil
			default:
				return m, m.confirmation.Update(msg)
			}

		case ModeComplete, ModeError:
			switch msg.String() {
			case "ctrl+c", "q", "enter":
				return m, tea.Quit
			}
		}
	}

	if m.mode == ModeList {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the UI
func (m MigrateModel) View() string {
	switch m.mode {
	case ModeList:
		return lipgloss.JoinVertical(lipgloss.Left,
			m.list.View(),
			helpLine(FormatKey("↑/↓", "navigate"), FormatKey("enter", "run "+string(m.action)), FormatKey("/", "filter"), FormatKey("q", "quit")),
		)

	case ModeConfirm:
		return placeCenter(m.width, m.height, m.confirmation.View())

	case ModeExecuting:
		return placeCenter(m.width, m.height,
			lipgloss.JoinVertical(lipgloss.Left, m.progress.View(), "\n", m.logs.View()))

	case ModeComplete:
		msg := titleStyle.Render("Migration Complete!") + "\n\n" +
			successStyle.Render(fmt.Sprintf("Successfully executed %d migration(s)", m.progress.Total)) + "\n\n" +
			helpLine(FormatKey("enter/q", "exit"))
		return placeCenter(m.width, m.height, boxStyle.Render(msg))

	case ModeError:
		msg := titleStyle.Render("Migration Failed") + "\n\n" +
			errorStyle.Render(m.err.Error()) + "\n\n" +
			helpLine(FormatKey("enter/q", "exit"))
		return placeCenter(m.width, m.height, boxStyle.Render(msg))
	}

	return "Unknown mode"
}

// RunMigrateUI starts the interactive migration UI
func RunMigrateUI(ctx context.Context, action Action, migrator Migrator, migrations []migration.Migration) error {
	p := tea.NewProgram(NewMigrateModel(ctx, action, migrator, slices.Clone(migrations)), tea.WithContext(ctx))
	final, err := p.Run()

	// The lock pins a pooled connection, so release it even when the program was killed.
	if fm, ok := final.(MigrateModel); ok {
		if fm.locked {
			_ = migrator.Unlock(context.WithoutCancel(ctx))
		}
		if err == nil {
			err = fm.err
		}
	}
	return err
}
