// Package cli renders the agenda command line: a loading indicator driven by
// loading.State, the contact list and modal notifications.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/agendacontatos/agenda.go/pkg/loading"
	tea "github.com/charmbracelet/bubbletea"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const frameInterval = 80 * time.Millisecond

type snapshotMsg loading.Snapshot

type tickMsg struct{}

type doneMsg struct{}

// Indicator shows the loading message while op runs and quits when it returns.
type Indicator struct {
	updates <-chan loading.Snapshot
	op      func()

	snap  loading.Snapshot
	frame int
	done  bool
}

func NewIndicator(updates <-chan loading.Snapshot, op func()) Indicator {
	return Indicator{updates: updates, op: op}
}

func (m Indicator) Init() tea.Cmd {
	return tea.Batch(waitSnapshot(m.updates), runOp(m.op), tick())
}

func waitSnapshot(updates <-chan loading.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-updates
		if !ok {
			return nil
		}
		return snapshotMsg(snap)
	}
}

func runOp(op func()) tea.Cmd {
	return func() tea.Msg {
		op()
		return doneMsg{}
	}
}

func tick() tea.Cmd {
	return tea.Tick(frameInterval, func(time.Time) tea.Msg { return tickMsg{} })
}

func (m Indicator) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case snapshotMsg:
		m.snap = loading.Snapshot(msg)
		return m, waitSnapshot(m.updates)
	case tickMsg:
		if m.done {
			return m, nil
		}
		m.frame = (m.frame + 1) % len(spinnerFrames)
		return m, tick()
	case doneMsg:
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m Indicator) View() string {
	if m.done || !m.snap.Active {
		return ""
	}
	return spinnerStyle.Render(spinnerFrames[m.frame]) + " " + textStyle.Render(m.snap.Message) + "\n"
}

// RunWithIndicator runs op while an Indicator over st renders to out. The
// indicator stops showing once op returns. The program reads no input;
// cancelling ctx stops it. Without a terminal, pass plain to just run op.
func RunWithIndicator(ctx context.Context, st *loading.State, out io.Writer, plain bool, op func(ctx context.Context)) error {
	if plain {
		op(ctx)
		return nil
	}
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	finished := make(chan struct{})
	model := NewIndicator(st.Subscribe(subCtx), func() {
		defer close(finished)
		op(ctx)
	})
	p := tea.NewProgram(model, tea.WithOutput(out), tea.WithInput(nil), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return err
	}
	<-finished
	return nil
}
