package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/mmcdole/livecast/internal/domain"
	"github.com/mmcdole/livecast/internal/hls"
	"github.com/mmcdole/livecast/internal/tui/styles"
)

const (
	contentWidth = 72
	appTitle     = "livecast"
)

// View renders the current screen
func (m Model) View() string {
	if !m.Ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}

	var content string
	switch m.Screen {
	case ScreenViewer:
		content = m.renderViewer()
	case ScreenBroadcaster:
		content = m.renderBroadcaster()
	default:
		content = m.renderRoleSelect()
	}

	width := min(m.Width, contentWidth)
	body := lipgloss.NewStyle().Width(width).Render(content)
	return lipgloss.JoinVertical(lipgloss.Left, body, m.renderFooter())
}

func (m Model) renderRoleSelect() string {
	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render(appTitle))
	b.WriteString("  ")
	b.WriteString(styles.SubtitleStyle.Render("watch or broadcast a live stream"))
	b.WriteString("\n\n")

	b.WriteString(styles.DimStyle.Render("Stream key"))
	b.WriteString("\n")
	b.WriteString(m.KeyInput.View())
	b.WriteString("\n\n")

	if m.KeyInput.Value() == "" {
		b.WriteString(styles.DimStyle.Render("Enter a stream key to continue"))
	} else {
		b.WriteString(helpHint("w", "watch") + "   " + helpHint("b", "broadcast"))
	}
	b.WriteString("\n\n")

	info := m.svc.Streams.ServerInfo()
	panel := renderTable([][2]string{
		{"RTMP", info.RTMP},
		{"HLS", info.HLS},
	})
	b.WriteString(styles.PanelStyle.Render(styles.SubtitleStyle.Render("Server") + "\n" + panel))
	return b.String()
}

func (m Model) renderViewer() string {
	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render("Watching " + m.key))
	b.WriteString("  ")
	b.WriteString(m.renderBadge())
	b.WriteString("\n\n")

	if m.state.Status == domain.StatusError {
		b.WriteString(styles.ErrorStyle.Render(wordWrap(m.state.ErrorMessage, contentWidth-4)))
		b.WriteString("\n")
		b.WriteString(styles.DimStyle.Render("Make sure the stream is active at: "))
		b.WriteString(styles.AccentStyle.Render(m.streamURL))
		b.WriteString("\n\n")
	}

	b.WriteString(styles.DimStyle.Render("URL  "))
	b.WriteString(m.streamURL)
	b.WriteString("\n")
	if m.stats != nil {
		b.WriteString(styles.DimStyle.Render("     "))
		b.WriteString(styles.DimStyle.Render(formatStats(*m.stats)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	hints := []string{helpHint("esc", "back"), helpHint("r", "reconnect"), helpHint("q", "quit")}
	b.WriteString(strings.Join(hints, "   "))
	return b.String()
}

func (m Model) renderBadge() string {
	switch m.state.Status {
	case domain.StatusPlaying:
		return styles.LiveBadgeStyle.Render("Live")
	case domain.StatusError:
		return styles.ErrorBadgeStyle.Render("Error")
	default:
		return RenderSpinner(m.SpinnerFrame) + " " + styles.ConnectingBadgeStyle.Render("Connecting...")
	}
}

func (m Model) renderBroadcaster() string {
	inst := m.instructions

	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render("Broadcasting " + inst.Key))
	b.WriteString("\n\n")

	b.WriteString(styles.SubtitleStyle.Render("OBS Studio"))
	b.WriteString(styles.DimStyle.Render("  Settings > Stream > Service: Custom"))
	b.WriteString("\n")
	b.WriteString(styles.PanelStyle.Render(renderTable([][2]string{
		{"Server", inst.OBSServer},
		{"Stream Key", inst.OBSStreamKey},
	})))
	b.WriteString("\n\n")

	b.WriteString(styles.SubtitleStyle.Render("FFmpeg camera and microphone"))
	b.WriteString("\n")
	b.WriteString(renderCode(inst.CaptureCommandLine()))
	b.WriteString("\n\n")

	b.WriteString(styles.SubtitleStyle.Render("FFmpeg test pattern"))
	b.WriteString("\n")
	b.WriteString(renderCode(inst.TestCommandLine()))
	b.WriteString("\n\n")

	b.WriteString(styles.SubtitleStyle.Render("Share with viewers"))
	b.WriteString("\n")
	b.WriteString(renderCode(inst.ShareCommand))
	b.WriteString("\n")
	b.WriteString(styles.DimStyle.Render(inst.ViewerURL))
	b.WriteString("\n\n")

	hints := []string{
		helpHint("c", "copy capture"),
		helpHint("t", "copy test"),
		helpHint("l", "copy share"),
		helpHint("w", "watch"),
		helpHint("esc", "back"),
	}
	b.WriteString(strings.Join(hints, "   "))
	return b.String()
}

// renderFooter renders the status line with the help hint on the right
func (m Model) renderFooter() string {
	var left string
	if m.StatusMsg != "" {
		if m.StatusIsErr {
			left = styles.ErrorStyle.Render(m.StatusMsg)
		} else {
			left = styles.SuccessStyle.Render(m.StatusMsg)
		}
	}
	right := helpHint("?", "help")

	gap := m.Width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return "\n" + left + strings.Repeat(" ", gap) + right
}

func (m Model) renderHelp() string {
	help := `
ROLE SELECT                     VIEWER
  Enter      Watch (editing)      r      Reconnect
  Ctrl+b     Broadcast (editing)  Esc    Stop and go back
  Tab        Complete key
  Up/Down    Pick suggestion    BROADCASTER
  Esc        Stop editing         c      Copy capture command
  w / b      Watch / broadcast    t      Copy test command
  e or /     Edit key             l      Copy share command
                                  w      Watch this key
OTHER
  q          Quit
  ?          This help

Press any key to return...
`
	return lipgloss.Place(m.Width, m.Height,
		lipgloss.Center, lipgloss.Center,
		styles.ModalStyle.Render(help))
}

func helpHint(key, desc string) string {
	return styles.HelpKeyStyle.Render(key) + " " + styles.HelpDescStyle.Render(desc)
}

func renderTable(rows [][2]string) string {
	labelWidth := 0
	for _, r := range rows {
		labelWidth = max(labelWidth, len(r[0]))
	}
	lines := make([]string, len(rows))
	for i, r := range rows {
		label := styles.DimStyle.Render(fmt.Sprintf("%-*s", labelWidth, r[0]))
		lines[i] = label + "  " + r[1]
	}
	return strings.Join(lines, "\n")
}

func renderCode(line string) string {
	return styles.CodeBlockStyle.Render(wordWrap(line, contentWidth-2))
}

// formatStats summarizes engine stats on one line
func formatStats(s hls.Stats) string {
	parts := make([]string, 0, 4)
	if s.Levels > 0 {
		parts = append(parts, fmt.Sprintf("level %d/%d", s.Level+1, s.Levels))
	}
	if s.BandwidthBps > 0 {
		parts = append(parts, fmt.Sprintf("%.1f Mbps", s.BandwidthBps/1e6))
	}
	parts = append(parts,
		"buffer "+s.ForwardBuffer.Round(100*time.Millisecond).String(),
		fmt.Sprintf("%d segments", s.SegmentsWritten),
	)
	return strings.Join(parts, " · ")
}

// wordWrap wraps text to the specified width
func wordWrap(text string, width int) string {
	if width <= 0 {
		return text
	}

	var result strings.Builder
	lineLen := 0
	for i, word := range strings.Fields(text) {
		if lineLen+len(word)+1 > width && lineLen > 0 {
			result.WriteString("\n")
			lineLen = 0
		}
		if i > 0 && lineLen > 0 {
			result.WriteString(" ")
			lineLen++
		}
		result.WriteString(word)
		lineLen += len(word)
	}
	return result.String()
}

// RenderSpinner renders a loading spinner
func RenderSpinner(frame int) string {
	frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	return styles.SpinnerStyle.Render(frames[frame%len(frames)])
}
