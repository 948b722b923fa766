package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/mmcdole/livecast/internal/tui/styles"
)

const maxSuggestions = 5

// KeyInput is a stream key text input with suggestions from history
type KeyInput struct {
	input   textinput.Model
	history []string
	matches []fuzzy.Match
	cursor  int
}

// NewKeyInput creates a focused key input holding defaultKey
func NewKeyInput(defaultKey string) KeyInput {
	ti := textinput.New()
	ti.Placeholder = "stream key"
	ti.CharLimit = 64
	ti.Width = 30
	ti.Prompt = "› "
	ti.PromptStyle = styles.AccentStyle
	ti.TextStyle = lipgloss.NewStyle().Foreground(styles.White)
	ti.PlaceholderStyle = styles.DimStyle
	ti.SetValue(defaultKey)
	ti.CursorEnd()
	ti.Focus()

	return KeyInput{input: ti}
}

// SetHistory sets the keys suggestions are drawn from, newest first
func (k *KeyInput) SetHistory(keys []string) {
	k.history = keys
	k.refilter()
}

// Value returns the trimmed key
func (k KeyInput) Value() string {
	return strings.TrimSpace(k.input.Value())
}

// SetValue replaces the key
func (k *KeyInput) SetValue(v string) {
	k.input.SetValue(v)
	k.input.CursorEnd()
	k.refilter()
}

// Suggestions returns the keys currently offered
func (k KeyInput) Suggestions() []string {
	out := make([]string, len(k.matches))
	for i, m := range k.matches {
		out[i] = m.Str
	}
	return out
}

// Focus gives the input keyboard focus
func (k *KeyInput) Focus() tea.Cmd {
	return k.input.Focus()
}

// Blur removes keyboard focus
func (k *KeyInput) Blur() {
	k.input.Blur()
}

// Update handles completion and cursor keys and forwards the rest to the input
func (k KeyInput) Update(msg tea.Msg) (KeyInput, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "tab":
			if len(k.matches) > 0 {
				k.SetValue(k.matches[k.cursor].Str)
			}
			return k, nil
		case "up", "ctrl+p":
			if k.cursor > 0 {
				k.cursor--
			}
			return k, nil
		case "down", "ctrl+n":
			if k.cursor < len(k.matches)-1 {
				k.cursor++
			}
			return k, nil
		}
	}

	prev := k.input.Value()
	var cmd tea.Cmd
	k.input, cmd = k.input.Update(msg)
	if k.input.Value() != prev {
		k.refilter()
	}
	return k, cmd
}

// refilter matches history against the current value. An empty value lists
// recent keys; an exact match is not offered back.
func (k *KeyInput) refilter() {
	k.cursor = 0
	query := strings.ToLower(k.Value())

	if query == "" {
		k.matches = nil
		for i, key := range k.history {
			if i == maxSuggestions {
				break
			}
			k.matches = append(k.matches, fuzzy.Match{Str: key, Index: i})
		}
		return
	}

	lower := make([]string, len(k.history))
	for i, key := range k.history {
		lower[i] = strings.ToLower(key)
	}

	k.matches = k.matches[:0]
	for _, m := range fuzzy.Find(query, lower) {
		if lower[m.Index] == query {
			continue
		}
		m.Str = k.history[m.Index]
		k.matches = append(k.matches, m)
		if len(k.matches) == maxSuggestions {
			break
		}
	}
}

// View renders the input and its suggestions
func (k KeyInput) View() string {
	var b strings.Builder
	b.WriteString(k.input.View())
	for i, m := range k.matches {
		b.WriteString("\n")
		b.WriteString(highlightMatches(m.Str, m.MatchedIndexes, i == k.cursor))
	}
	return b.String()
}

// highlightMatches renders text with matched byte positions emphasized
func highlightMatches(text string, matchedIndexes []int, selected bool) string {
	normal, match := styles.NormalItemStyle.UnsetPadding(), styles.MatchHighlightStyle
	if selected {
		normal, match = styles.SelectedItemStyle.UnsetPadding(), styles.MatchHighlightSelectedStyle
	}

	matchSet := make(map[int]bool, len(matchedIndexes))
	for _, idx := range matchedIndexes {
		matchSet[idx] = true
	}

	var result strings.Builder
	result.WriteString(normal.Render(" "))
	for i, r := range text {
		if matchSet[i] {
			result.WriteString(match.Render(string(r)))
		} else {
			result.WriteString(normal.Render(string(r)))
		}
	}
	result.WriteString(normal.Render(" "))
	return result.String()
}
