package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Dicklesworthstone/devdiag/internal/model"
)

// Scanner is what the dashboard drives.
type Scanner interface {
	Snapshot() model.Snapshot
	TriggerScan(ctx context.Context) bool
}

// Model renders live snapshots from the scanner.
type Model struct {
	scanner   Scanner
	latest    model.Snapshot
	ctx       context.Context
	ctxCancel context.CancelFunc
	width     int
	height    int
}

func New(sc Scanner) *Model {
	ctx, cancel := context.WithCancel(context.Background())
	return &Model{
		scanner:   sc,
		latest:    sc.Snapshot(),
		ctx:       ctx,
		ctxCancel: cancel,
		width:     120,
		height:    40,
	}
}

// Messages
type (
	tickMsg     struct{}
	scanDoneMsg struct{ started bool }
)

func tickCmd() tea.Cmd { return tea.Tick(time.Second/5, func(time.Time) tea.Msg { return tickMsg{} }) }

func (m *Model) rescanCmd() tea.Cmd {
	return func() tea.Msg {
		return scanDoneMsg{started: m.scanner.TriggerScan(m.ctx)}
	}
}

func (m *Model) Init() tea.Cmd { return tickCmd() }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.ctxCancel()
			return m, tea.Quit
		case "r", "s", " ":
			if !m.latest.Scanning {
				return m, m.rescanCmd()
			}
		}
	case tickMsg:
		m.latest = m.scanner.Snapshot()
		return m, tickCmd()
	case scanDoneMsg:
		m.latest = m.scanner.Snapshot()
	}
	return m, nil
}

// Styles
var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("45"))
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("81")).Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	gaugeFill   = "█"
	gaugeEmpty  = "░"
	sparkRunes  = []rune("▁▂▃▄▅▆▇█")
	cardStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("60")).
			Padding(0, 1).
			MarginRight(1)
)

func (m *Model) View() string { return Render(m.latest) }

// Render draws the dashboard for one snapshot.
func Render(s model.Snapshot) string {
	state := subtleStyle.Render("idle")
	if s.Scanning {
		state = warnStyle.Render("scanning…")
	}
	stamp := "no scan yet"
	if !s.CompletedAt.IsZero() {
		stamp = s.CompletedAt.Local().Format("Mon Jan 2 15:04:05 MST 2006")
	}
	header := titleStyle.Render("Device Diagnostics") + "  " +
		subtleStyle.Render(stamp) + "  " + state

	cpu := s.CPU
	cpuCard := card("CPU",
		fmt.Sprintf("%s\n%.1f°C  %d cores  %s",
			gaugeBar(float64(cpu.UsagePercent), 24),
			cpu.PseudoTemperatureC, cpu.Cores, cpu.Status))

	mem := s.Memory
	memCard := card("Memory",
		fmt.Sprintf("%s\n%.0f/%.0f MB used  %.0f MB free  %s pressure",
			gaugeBar(pct(mem.UsedMB, mem.TotalMB), 24),
			mem.UsedMB, mem.TotalMB, mem.AvailableMB, mem.Pressure))

	h := s.Health
	healthCard := card("Health",
		fmt.Sprintf("Battery %d%% (%s)\nThermal %s\nDisk %.1f/%.1f GB",
			h.BatteryLevelPercent, h.BatteryHealth, h.ThermalState,
			h.DiskSpace.UsedMB/1024, h.DiskSpace.TotalMB/1024))

	line1 := lipgloss.JoinHorizontal(lipgloss.Top, cpuCard, memCard, healthCard)
	line2 := lipgloss.JoinHorizontal(lipgloss.Top, deviceCard(s.Capabilities), trendCard(s.History))

	footer := subtleStyle.Render("r rescan  q quit")
	if len(s.Fallbacks) > 0 {
		footer += "  " + warnStyle.Render("estimated defaults: "+strings.Join(s.Fallbacks, ", "))
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, line1, line2, footer)
}

func deviceCard(c model.Capabilities) string {
	deviceModel := c.DeviceModelHint
	if deviceModel == "" {
		deviceModel = "unknown"
	}
	osName := strings.TrimSpace(c.PlatformName + " " + c.OSVersion)
	if osName == "" {
		osName = "unknown"
	}
	link := "offline"
	if c.IsOnline {
		link = "online"
		if c.ConnectionType != "" {
			link += " (" + c.ConnectionType + ")"
		}
	}
	cores := "unknown"
	if c.LogicalCores > 0 {
		cores = fmt.Sprint(c.LogicalCores)
	}
	power := "unknown"
	if c.IsCharging != nil {
		power = "not charging"
		if *c.IsCharging {
			power = "charging"
		}
	}
	rows := []string{
		fmt.Sprintf("%-8s %s", "Model", truncate(deviceModel, 28)),
		fmt.Sprintf("%-8s %s", "OS", truncate(osName, 28)),
		fmt.Sprintf("%-8s %s", "Cores", cores),
		fmt.Sprintf("%-8s %s", "Network", link),
		fmt.Sprintf("%-8s %s", "Power", power),
	}
	return card("Device", strings.Join(rows, "\n"))
}

func trendCard(hist []model.HistoryEntry) string {
	if len(hist) == 0 {
		return card("Trend", subtleStyle.Render("waiting for first scan"))
	}
	cpu := make([]int, len(hist))
	ram := make([]int, len(hist))
	for i, e := range hist {
		cpu[i], ram[i] = e.CPUPercent, e.RAMPercent
	}
	last := hist[len(hist)-1]
	return card("Trend",
		fmt.Sprintf("CPU %s %3d%%\nRAM %s %3d%%\n%s → %s",
			Sparkline(cpu), last.CPUPercent,
			Sparkline(ram), last.RAMPercent,
			hist[0].DisplayTime, last.DisplayTime))
}

// Helpers

// Sparkline maps 0-100 values onto block characters.
func Sparkline(values []int) string {
	var b strings.Builder
	top := len(sparkRunes) - 1
	for _, v := range values {
		v = max(0, min(v, 100))
		b.WriteRune(sparkRunes[v*top/100])
	}
	return b.String()
}

func gaugeBar(pct float64, width int) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := int((pct / 100) * float64(width))
	if filled > width {
		filled = width
	}
	return fmt.Sprintf("[%s%s] %5.1f%%",
		strings.Repeat(gaugeFill, filled),
		strings.Repeat(gaugeEmpty, width-filled),
		pct)
}

func card(title, body string) string {
	titleStr := labelStyle.Render(title)
	content := titleStr + "\n" + body
	return cardStyle.Render(content)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func pct(used, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return used * 100 / total
}

// RunTUI starts the Bubble Tea program.
func RunTUI(sc Scanner) error {
	prog := tea.NewProgram(New(sc), tea.WithAltScreen())
	_, err := prog.Run()
	return err
}
