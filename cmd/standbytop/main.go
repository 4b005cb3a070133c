// standbytop is a live terminal dashboard for a running Controller,
// following the teacher pack's bubbletea/lipgloss TUI shape
// (ftahirops-xtop's ui.Model: tea.Tick-driven refresh, a bubbletea Update
// switch over typed messages, lipgloss styles for status coloring).
package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	engine "github.com/99souls/appstandby"
	"github.com/99souls/appstandby/adapters/hostinjector"
	"github.com/99souls/appstandby/config"
	"github.com/99souls/appstandby/models"
	"github.com/99souls/appstandby/telemetry/events"
)

var (
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("45"))
	headerStyle = lipgloss.NewStyle().Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	critStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

func bucketStyle(b models.Bucket) lipgloss.Style {
	switch b {
	case models.BucketActive:
		return okStyle
	case models.BucketWorkingSet:
		return titleStyle
	case models.BucketFrequent:
		return warnStyle
	case models.BucketRare, models.BucketNever:
		return critStyle
	default:
		return dimStyle
	}
}

func main() {
	var (
		dataDir      string
		settingsPath string
		interval     time.Duration
	)
	rootCmd := &cobra.Command{
		Use:   "standbytop",
		Short: "Live terminal dashboard for an App Standby Controller",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Defaults()
			cfg.DataDir = dataDir
			cfg.SettingsPath = settingsPath

			inj := hostinjector.New(dataDir)
			ctrl, err := engine.New(cfg, inj)
			if err != nil {
				return fmt.Errorf("create controller: %w", err)
			}
			if err := ctrl.Start(); err != nil {
				return fmt.Errorf("start controller: %w", err)
			}
			defer ctrl.Stop()

			sub, err := ctrl.Events().Subscribe(128)
			if err != nil {
				return fmt.Errorf("subscribe events: %w", err)
			}
			defer ctrl.Events().Unsubscribe(sub)

			p := tea.NewProgram(newModel(ctrl, sub, interval), tea.WithAltScreen())
			_, err = p.Run()
			return err
		},
	}
	rootCmd.Flags().StringVar(&dataDir, "data-dir", "", "host data directory")
	rootCmd.Flags().StringVar(&settingsPath, "settings-file", "", "path to a watched app-idle thresholds file")
	rootCmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "refresh interval")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type tickMsg time.Time

type refreshMsg struct {
	statuses []engine.AppStatus
	paroled  bool
}

type eventMsg events.Event

type model struct {
	ctrl     *engine.Controller
	sub      events.Subscription
	interval time.Duration

	width, height int

	statuses []engine.AppStatus
	paroled  bool
	log      []string
}

func newModel(ctrl *engine.Controller, sub events.Subscription, interval time.Duration) model {
	return model{ctrl: ctrl, sub: sub, interval: interval}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(tick(m.interval), refresh(m.ctrl), waitForEvent(m.sub))
}

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func refresh(ctrl *engine.Controller) tea.Cmd {
	return func() tea.Msg {
		return refreshMsg{statuses: ctrl.ListAppStatuses(), paroled: ctrl.Snapshot().Paroled}
	}
}

func waitForEvent(sub events.Subscription) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-sub.C()
		if !ok {
			return nil
		}
		return eventMsg(ev)
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tickMsg:
		return m, tea.Batch(tick(m.interval), refresh(m.ctrl))
	case refreshMsg:
		m.statuses = msg.statuses
		m.paroled = msg.paroled
	case eventMsg:
		m.log = append(m.log, formatEvent(events.Event(msg)))
		if len(m.log) > 200 {
			m.log = m.log[len(m.log)-200:]
		}
		return m, waitForEvent(m.sub)
	}
	return m, nil
}

func formatEvent(ev events.Event) string {
	return fmt.Sprintf("%s %-10s %-18s %v", ev.Time.Format("15:04:05"), ev.Category, ev.Type, ev.Labels)
}

func (m model) View() string {
	if m.width == 0 {
		return "starting standbytop..."
	}
	var sb strings.Builder

	header := titleStyle.Render("standbytop")
	if m.paroled {
		header += "  " + warnStyle.Render("[PAROLED]")
	}
	sb.WriteString(header)
	sb.WriteString("\n\n")

	sb.WriteString(headerStyle.Render(fmt.Sprintf("%-6s %-32s %-12s %s", "USER", "PACKAGE", "BUCKET", "REASON")))
	sb.WriteString("\n")

	rows := append([]engine.AppStatus(nil), m.statuses...)
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].User != rows[j].User {
			return rows[i].User < rows[j].User
		}
		return rows[i].Package < rows[j].Package
	})
	maxRows := m.height - 10
	if maxRows < 1 {
		maxRows = 1
	}
	if len(rows) > maxRows {
		rows = rows[:maxRows]
	}
	for _, r := range rows {
		style := bucketStyle(r.Bucket)
		sb.WriteString(fmt.Sprintf("%-6d %-32s %s %s\n", r.User, r.Package, style.Render(fmt.Sprintf("%-12s", r.Bucket.String())), dimStyle.Render(r.Reason.String())))
	}
	if len(m.statuses) == 0 {
		sb.WriteString(dimStyle.Render("  (no tracked packages yet)\n"))
	}

	sb.WriteString("\n")
	sb.WriteString(headerStyle.Render("Events"))
	sb.WriteString("\n")
	logLines := m.log
	maxLog := m.height - len(rows) - 14
	if maxLog < 3 {
		maxLog = 3
	}
	if len(logLines) > maxLog {
		logLines = logLines[len(logLines)-maxLog:]
	}
	for _, l := range logLines {
		sb.WriteString(dimStyle.Render(l))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(helpStyle.Render("q:quit"))
	return sb.String()
}
