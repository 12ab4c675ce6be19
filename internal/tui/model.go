package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/joe/gamesync/internal/syncengine"
	"github.com/joe/gamesync/internal/tui/shared"
	"github.com/joe/gamesync/pkg/errors"
	"github.com/joe/gamesync/pkg/fileops"
)

// Model shows one sync run. It quits once the engine has emitted its last event.
type Model struct {
	bridge *shared.EventBridge
	cancel context.CancelFunc
	target string

	phase      syncengine.Phase
	failedAt   syncengine.Phase
	failed     bool
	cancelling bool
	done       bool

	tree     *syncengine.TreeBuilt
	capacity *syncengine.CapacityChecked
	listed   *syncengine.TargetListed
	plan     *syncengine.SyncPlan
	started  *syncengine.TransferStarted
	progress fileops.Progress
	relink   *syncengine.RelinkComplete
	result   *syncengine.SyncResult
	err      error

	bar     progress.Model
	width   int
	began   time.Time
	elapsed time.Duration
}

// NewModel returns a model reading from bridge. cancel is called on ctrl+c.
func NewModel(bridge *shared.EventBridge, cancel context.CancelFunc, target string) *Model {
	return &Model{
		bridge: bridge,
		cancel: cancel,
		target: target,
		bar:    shared.NewProgressModel(shared.ProgressBarWidth),
		began:  time.Now(),
	}
}

// Init implements tea.Model
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.bridge.ListenCmd(), shared.TickCmd())
}

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = max(10, min(msg.Width-2*shared.DefaultPadding-8, shared.MaxProgressBarWidth))

		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case shared.TickMsg:
		if m.done || m.result != nil {
			return m, nil
		}

		m.elapsed = time.Time(msg).Sub(m.began)

		return m, shared.TickCmd()

	case shared.EngineEventMsg:
		m.apply(msg.Event)
		return m, m.bridge.ListenCmd()

	case shared.StreamClosedMsg:
		m.done = true
		return m, tea.Quit
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case shared.KeyCtrlC, "q", "esc":
		if m.done {
			return m, tea.Quit
		}

		if !m.cancelling && m.cancel != nil {
			m.cancelling = true
			m.cancel()
		}
	}

	return m, nil
}

func (m *Model) apply(event syncengine.Event) {
	switch e := event.(type) {
	case syncengine.PhaseChanged:
		switch e.Phase {
		case syncengine.PhaseError, syncengine.PhaseAbort:
			m.failed = true
			m.failedAt = m.phase
		default:
			m.phase = e.Phase
		}
	case syncengine.TreeBuilt:
		m.tree = &e
	case syncengine.CapacityChecked:
		m.capacity = &e
	case syncengine.TargetListed:
		m.listed = &e
	case syncengine.PlanComputed:
		m.plan = e.Plan
	case syncengine.TransferStarted:
		m.started = &e
	case syncengine.TransferProgress:
		m.progress = e.Progress
	case syncengine.RelinkComplete:
		m.relink = &e
	case syncengine.ErrorOccurred:
		m.err = e.Err
	case syncengine.SyncComplete:
		m.result = e.Result
		if e.Result != nil && e.Result.Err != nil {
			m.err = e.Result.Err
		}
	}
}

// Result returns the final result once the run has completed.
func (m *Model) Result() *syncengine.SyncResult {
	return m.result
}

// View implements tea.Model
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(shared.RenderTitle("gamesync → " + m.target))
	if m.result == nil && m.elapsed > 0 {
		b.WriteString(" " + shared.RenderDim(shared.FormatDuration(m.elapsed)))
	}

	b.WriteString("\n")

	current := m.phase
	if m.failed {
		current = m.failedAt
	}

	b.WriteString(shared.RenderTimeline(current, m.failed))
	b.WriteString("\n\n")

	b.WriteString(m.renderDetails())

	if m.phase == syncengine.PhaseTransfer && m.started != nil && !m.failed {
		b.WriteString("\n")
		b.WriteString(m.renderTransfer())
	}

	if m.result != nil {
		b.WriteString("\n")
		b.WriteString(m.renderSummary())
	}

	if m.cancelling && m.result == nil {
		b.WriteString("\n")
		b.WriteString(shared.RenderWarning("Cancelling... once the target is being changed the run finishes first"))
	}

	b.WriteString("\n")

	return b.String()
}

func (m *Model) renderDetails() string {
	var lines []string

	if m.tree != nil {
		lines = append(lines, fmt.Sprintf("%s %d menus, %d games, %s",
			shared.RenderLabel("Tree:"), m.tree.Menus, m.tree.Games, shared.FormatBytes(m.tree.TotalSize)))
	}

	if c := m.capacity; c != nil {
		line := fmt.Sprintf("%s need %s of %s available",
			shared.RenderLabel("Space:"), shared.FormatBytes(c.Required), shared.FormatBytes(c.Available))
		if !c.OK {
			line += " " + shared.RenderError(shared.ErrorSymbol())
		}

		lines = append(lines, line)
	}

	if l := m.listed; l != nil {
		lines = append(lines, fmt.Sprintf("%s %d files, %s via %s",
			shared.RenderLabel("Target:"), l.Files, shared.FormatBytes(l.Bytes), l.Transport))
	}

	if p := m.plan; p != nil {
		line := fmt.Sprintf("%s upload %d (%s), delete %d (%s), unchanged %d",
			shared.RenderLabel("Plan:"),
			p.FilesToUpload, shared.FormatBytes(p.BytesToUpload),
			p.FilesToDelete, shared.FormatBytes(p.BytesToDelete),
			p.FilesUnchanged)
		if p.FilesProtected > 0 {
			line += fmt.Sprintf(", protected %d", p.FilesProtected)
		}

		lines = append(lines, line)
	}

	if r := m.relink; r != nil && r.Err == nil {
		lines = append(lines, fmt.Sprintf("%s %d original games", shared.RenderLabel("Relinked:"), r.Games))
	}

	return strings.Join(lines, "\n") + "\n"
}

func (m *Model) renderTransfer() string {
	return shared.RenderTransfer(m.bar, m.progress) + "\n"
}

func (m *Model) renderSummary() string {
	r := m.result

	if m.err != nil {
		enriched := errors.NewEnricher().Enrich(m.err, "")

		var b strings.Builder
		b.WriteString(shared.RenderError("Sync failed: " + m.err.Error()))

		if suggestions := errors.FormatSuggestions(enriched); suggestions != "" {
			b.WriteString("\n")
			b.WriteString(suggestions)
		}

		return shared.RenderBox(b.String())
	}

	title := "Sync complete"
	if r.DryRun {
		title = "Dry run complete, nothing was changed"
	}

	body := fmt.Sprintf("%s\n\nUploaded: %d files, %s\nDeleted:  %d files\nTransport: %s\nTime:     %s",
		shared.RenderSuccess(title),
		r.FilesUploaded, shared.FormatBytes(r.BytesUploaded),
		r.FilesDeleted, r.Transport, shared.FormatDuration(r.Duration))

	if r.RelinkErr != nil {
		body += "\n" + shared.RenderWarning("Relink failed: "+r.RelinkErr.Error())
	}

	return shared.RenderBox(body)
}
