package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jwebster45206/pale-notes/internal/engine"
	"github.com/jwebster45206/pale-notes/pkg/chat"
	"github.com/jwebster45206/pale-notes/pkg/meta"
	"github.com/jwebster45206/pale-notes/pkg/state"
	"github.com/jwebster45206/pale-notes/pkg/storage"
)

const (
	AgentName       = "Narrator"
	PlaceHolderText = "Type an action, or the number of an option..."
	NamePlaceholder = "Your name (Enter to remain Unknown)"

	// openingAction starts the first turn of a new game.
	openingAction = "Begin the story."
)

type screen int

const (
	screenMenu screen = iota
	screenName
	screenGame
)

type menuItem struct {
	label  string
	origin string // empty for Continue
}

var origins = []menuItem{
	{label: "The Heir: a house of ashes and a sealed letter", origin: "rich"},
	{label: "The Doctor: a growth that would not stop beating", origin: "doctor"},
	{label: "The Detective: a man without a face", origin: "detective"},
}

// ConsoleUI is the BubbleTea model that presents the engine.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	eng   *engine.Engine
	store storage.Storage
	prefs meta.Preferences

	view engine.View

	chatViewport viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model
	spinner      spinner.Model
	ready        bool
	width        int
	height       int

	screen   screen
	menu     []menuItem
	selected int
	origin   string
	starting bool

	showQuitModal bool
	showDebug     bool
	status        string
	err           error
}

var (
	chatPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	speakerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	narratorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	reasoningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	modalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)
)

var separatorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("240")) // dark grey

// applyTheme switches the foreground palette for light terminals.
func applyTheme(theme string) {
	if theme == meta.ThemeLight {
		narratorStyle = narratorStyle.Foreground(lipgloss.Color("28"))
		userStyle = userStyle.Foreground(lipgloss.Color("25"))
		speakerStyle = speakerStyle.Foreground(lipgloss.Color("90"))
		return
	}
	narratorStyle = narratorStyle.Foreground(lipgloss.Color("86"))
	userStyle = userStyle.Foreground(lipgloss.Color("39"))
	speakerStyle = speakerStyle.Foreground(lipgloss.Color("212"))
}

func NewConsoleUI(eng *engine.Engine, store storage.Storage, prefs *meta.Preferences, hasSave bool) ConsoleUI {
	applyTheme(prefs.Theme)

	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 1000
	ta.SetWidth(50)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	chatVp := viewport.New(50, 20)
	chatVp.MouseWheelEnabled = true

	metaVp := viewport.New(20, 20)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = loadingStyle

	menu := make([]menuItem, 0, len(origins)+1)
	if hasSave {
		menu = append(menu, menuItem{label: "Continue"})
	}
	menu = append(menu, origins...)

	return ConsoleUI{
		eng:          eng,
		store:        store,
		prefs:        *prefs,
		view:         eng.View(),
		textarea:     ta,
		chatViewport: chatVp,
		metaViewport: metaVp,
		spinner:      sp,
		screen:       screenMenu,
		menu:         menu,
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// The spinner ticks on every screen so it is alive whenever a turn runs.
	if tick, ok := msg.(spinner.TickMsg); ok {
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(tick)
		if m.view.Busy && m.screen == screenGame {
			m.refresh()
		}
		return m, cmd
	}
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}
	if m.screen != screenGame {
		return m.updateMenu(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.chatViewport, vpCmd = m.chatViewport.Update(msg)
		m.metaViewport, mvCmd = m.metaViewport.Update(msg)
		return m, tea.Batch(vpCmd, mvCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.refresh()

	case viewMsg:
		m.view = msg.view
		m.refresh()
		return m, nil

	case turnDoneMsg:
		if msg.err != nil && !errors.Is(msg.err, engine.ErrBusy) {
			m.err = msg.err
		} else {
			m.err = nil
		}
		m.refresh()
		return m, nil

	case summaryErrMsg:
		m.status = "Summary skipped: " + msg.err.Error()
		m.refresh()
		return m, nil

	case prefsSavedMsg:
		if msg.err != nil {
			m.status = "Failed to save preferences: " + msg.err.Error()
		} else {
			m.status = "Preferences saved."
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyCtrlR:
			return m.retry()
		case tea.KeyCtrlY:
			m.copyLastNarration()
			m.refresh()
			return m, nil
		case tea.KeyCtrlD:
			m.showDebug = !m.showDebug
			m.refresh()
			return m, nil
		case tea.KeyEnter:
			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}
			if strings.HasPrefix(input, "/") {
				return m.handleCommand(input)
			}
			if m.view.Busy {
				return m, nil
			}
			m.textarea.Reset()
			m.err = nil
			m.status = ""
			// Shortcuts like "inventory" are answered from state without a turn.
			if gs, err := m.eng.State(); err == nil {
				if res := gs.TryHandleCommand(input); res.Handled {
					m.status = res.Message
					m.refresh()
					return m, nil
				}
			}
			return m, sendAction(m.eng, m.actionFor(input))
		}
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.chatViewport, vpCmd = m.chatViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd, mvCmd)
}

// actionFor maps input to an action. A bare number picks the offered
// option with that position; anything else is free text.
func (m ConsoleUI) actionFor(input string) engine.Action {
	if n, err := strconv.Atoi(input); err == nil && n >= 1 && n <= len(m.view.Options) {
		opt := m.view.Options[n-1]
		return engine.Action{ID: opt.ID, Text: opt.Text}
	}
	return engine.Action{Text: input}
}

func (m ConsoleUI) retry() (tea.Model, tea.Cmd) {
	if m.view.Busy || !m.view.CanRetry {
		return m, nil
	}
	m.err = nil
	m.status = "Retrying..."
	return m, retryTurn(m.eng)
}

func (m *ConsoleUI) copyLastNarration() {
	text := lastNarration(m.view.History)
	if text == "" {
		m.status = "Nothing to copy yet."
		return
	}
	if err := clipboard.WriteAll(text); err != nil {
		m.status = "Clipboard unavailable: " + err.Error()
		return
	}
	m.status = "Copied the last narration."
}

func lastNarration(history []chat.ChatMessage) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == chat.ChatRoleAgent {
			return history[i].Content
		}
	}
	return ""
}

func (m ConsoleUI) handleCommand(input string) (tea.Model, tea.Cmd) {
	m.textarea.Reset()
	fields := strings.Fields(strings.ToLower(input))

	switch fields[0] {
	case "/help":
		m.status = "Enter: act • 1-9: pick an option • look, inventory, clues, lore, people • Ctrl+R: retry • Ctrl+Y: copy • Ctrl+D: debug • /theme dark|light"
	case "/retry":
		return m.retry()
	case "/debug":
		m.showDebug = !m.showDebug
	case "/theme":
		if len(fields) < 2 || (fields[1] != meta.ThemeDark && fields[1] != meta.ThemeLight) {
			m.status = "Usage: /theme dark|light"
			break
		}
		m.prefs.Theme = fields[1]
		applyTheme(m.prefs.Theme)
		m.refresh()
		return m, savePreferences(m.store, m.prefs)
	default:
		m.status = "Unknown command " + fields[0]
	}
	m.refresh()
	return m, nil
}

func (m *ConsoleUI) layout() {
	if m.width == 0 || m.height == 0 {
		return
	}
	chatWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - chatWidth - 6

	m.chatViewport.Width = chatWidth - 2
	m.chatViewport.Height = m.height - 7
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 4
	m.textarea.SetWidth(chatWidth - 4)
	m.ready = true
}

// refresh redraws both panels from the current view.
func (m *ConsoleUI) refresh() {
	if !m.ready {
		return
	}
	m.chatViewport.SetContent(m.writeChatContent())
	m.chatViewport.GotoBottom()
	if m.showDebug {
		m.metaViewport.SetContent(writeDebug(m.eng.Debug(), m.metaViewport.Width))
	} else {
		m.metaViewport.SetContent(writeMetadata(m.view))
	}
}

func (m ConsoleUI) writeChatContent() string {
	chatWidth := m.chatViewport.Width - 6 // Account for left(3) + right(3) padding
	if chatWidth < 20 {
		chatWidth = 20
	}
	v := m.view

	var content strings.Builder
	content.WriteString(titleStyle.Render("PALE NOTES") + "\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", chatWidth)) + "\n\n")

	for _, msg := range v.History {
		switch msg.Role {
		case chat.ChatRoleAgent:
			content.WriteString(formatNarratorResponse(msg.Content, chatWidth) + "\n\n")
		case chat.ChatRoleUser:
			content.WriteString(userStyle.Render("You: ") + wordwrap.String(msg.Content, chatWidth-5) + "\n\n")
		case chat.ChatRoleSystem:
			content.WriteString(promptStyle.Render(wordwrap.String(msg.Content, chatWidth)) + "\n\n")
		}
	}

	if v.Busy {
		if v.LiveReasoning != "" && v.LiveNarration == "" {
			content.WriteString(reasoningStyle.Render(wordwrap.String(tail(v.LiveReasoning, 600), chatWidth)) + "\n\n")
		}
		if v.LiveNarration != "" {
			content.WriteString(formatNarratorResponse(v.LiveNarration, chatWidth) + "\n\n")
		}
		content.WriteString(m.spinner.View() + " " + loadingStyle.Render(phaseLabel(v.Phase)) + "\n")
		return content.String()
	}

	if m.err != nil {
		content.WriteString(errorStyle.Render(wordwrap.String("Error: "+m.err.Error(), chatWidth)) + "\n")
		if v.CanRetry {
			content.WriteString(promptStyle.Render("Press Ctrl+R to retry.") + "\n")
		}
		content.WriteString("\n")
	}

	if len(v.Options) > 0 {
		for i, opt := range v.Options {
			line := fmt.Sprintf("%d. %s", i+1, opt.Text)
			if state.IsAspect(opt.Style) {
				line += promptStyle.Render(" [" + opt.Style + "]")
			}
			content.WriteString(wordwrap.String(line, chatWidth) + "\n")
		}
		content.WriteString("\n")
	}

	if m.status != "" {
		content.WriteString(promptStyle.Render(m.status) + "\n")
	}
	return content.String()
}

func phaseLabel(p engine.Phase) string {
	switch p {
	case engine.PhaseStreamingNarration:
		return "The narrator speaks..."
	case engine.PhaseNarrationCommitted, engine.PhaseAnalyzing:
		return "The world shifts..."
	case engine.PhaseApplyingEffects:
		return "Recording changes..."
	}
	return "Thinking..."
}

// tail keeps the last n bytes of s, cut at a space where possible.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := len(s) - n
	if s[cut-1] != ' ' {
		if i := strings.IndexByte(s[cut:], ' '); i >= 0 {
			cut += i + 1
		}
	}
	return "…" + s[cut:]
}

func writeMetadata(v engine.View) string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("NOTES") + "\n\n")

	content.WriteString(fmt.Sprintf("Chapter %d\n", v.Chapter))
	content.WriteString(v.Time.String() + "\n\n")

	content.WriteString("Location:\n" + v.Location + "\n\n")
	content.WriteString("Identity:\n" + v.Identity + "\n\n")

	r := v.Resources
	content.WriteString(fmt.Sprintf("Funds:  %d\n", r.Funds))
	content.WriteString(fmt.Sprintf("Health: %d/%d\n", r.Health, r.MaxHealth))
	content.WriteString(fmt.Sprintf("Sanity: %d/%d\n\n", r.Sanity, r.MaxSanity))

	content.WriteString("Aspects:\n")
	shown := false
	for _, name := range state.AspectNames {
		if n := v.Aspects.Get(name); n != 0 {
			content.WriteString(fmt.Sprintf("• %s: %d\n", name, n))
			shown = true
		}
	}
	if !shown {
		content.WriteString("None yet\n")
	}

	content.WriteString("\n")
	content.WriteString("Commands:\n")
	content.WriteString("• Esc: Quit\n")
	content.WriteString("• Enter: Act\n")
	content.WriteString("• Ctrl+R: Retry\n")
	content.WriteString("• Ctrl+Y: Copy\n")
	content.WriteString("• Ctrl+D: Debug\n")
	content.WriteString("• /help: Help\n")

	return content.String()
}

func writeDebug(d engine.DebugInfo, width int) string {
	if width < 10 {
		width = 10
	}
	var content strings.Builder
	content.WriteString(titleStyle.Render("DEBUG") + "\n\n")
	section := func(title, body string) {
		content.WriteString(speakerStyle.Render(title) + "\n")
		if body == "" {
			body = "(empty)"
		}
		content.WriteString(wordwrap.String(body, width) + "\n\n")
	}
	section("Reasoning", d.Reasoning)
	section("Analysis input", d.AnalysisInput)
	section("Analysis output", d.AnalysisOutput)
	return content.String()
}

func formatNarratorResponse(response string, width int) string {
	narratorPrefix := AgentName + ": "
	wrapped := wordwrap.String(response, width-len(narratorPrefix))
	lines := strings.Split(wrapped, "\n")

	formatted := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		// Dialogue lines look like "Miss Morland: ..." and get the speaker highlighted.
		if idx := strings.Index(trimmed, ":"); idx > 0 && idx <= 20 {
			speaker := trimmed[:idx]
			if len(strings.Fields(speaker)) <= 2 {
				formatted = append(formatted, speakerStyle.Render(speaker+":")+trimmed[idx+1:])
				continue
			}
		}
		formatted = append(formatted, line)
	}

	return narratorStyle.Render(narratorPrefix) + strings.Join(formatted, "\n")
}

func (m ConsoleUI) updateMenu(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case viewMsg:
		m.view = msg.view

	case gameStartedMsg:
		m.starting = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.screen = screenGame
		m.textarea.Reset()
		m.textarea.Placeholder = PlaceHolderText
		m.textarea.Focus()
		m.view = m.eng.View()
		m.layout()
		m.refresh()
		if len(m.view.History) == 0 {
			return m, tea.Batch(textarea.Blink, sendAction(m.eng, engine.Action{ID: "start", Text: openingAction}))
		}
		return m, textarea.Blink

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
			if m.screen == screenName {
				m.screen = screenMenu
				m.textarea.Reset()
				return m, nil
			}
			m.showQuitModal = true
			return m, nil
		}
		if m.starting {
			return m, nil
		}

		if m.screen == screenName {
			if msg.Type == tea.KeyEnter {
				m.starting = true
				m.err = nil
				return m, startGame(m.eng, strings.TrimSpace(m.textarea.Value()), m.origin)
			}
			var cmd tea.Cmd
			m.textarea, cmd = m.textarea.Update(msg)
			return m, cmd
		}

		switch msg.Type {
		case tea.KeyUp:
			if m.selected > 0 {
				m.selected--
			}
		case tea.KeyDown:
			if m.selected < len(m.menu)-1 {
				m.selected++
			}
		case tea.KeyEnter:
			item := m.menu[m.selected]
			if item.origin == "" {
				m.starting = true
				return m, continueGame(m.eng)
			}
			m.origin = item.origin
			m.screen = screenName
			m.textarea.Reset()
			m.textarea.Placeholder = NamePlaceholder
			m.textarea.Focus()
			return m, textarea.Blink
		}
	}

	return m, nil
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()

	case viewMsg:
		m.view = msg.view

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				if m.screen == screenGame {
					m.textarea.Focus()
					m.refresh()
					return m, textarea.Blink
				}
				return m, nil
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit?"))
	content.WriteString("\n\n")
	content.WriteString("Your progress is saved after every turn.")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderMenu() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	switch {
	case m.starting:
		content.WriteString(modalTitleStyle.Render("Opening the notebook..."))
		content.WriteString("\n\n")
		content.WriteString(loadingStyle.Render(m.spinner.View() + " Please wait"))
	case m.screen == screenName:
		content.WriteString(modalTitleStyle.Render("Who are you?"))
		content.WriteString("\n\n")
		content.WriteString(m.textarea.View())
		content.WriteString("\n\n")
		content.WriteString(promptStyle.Render("Enter to begin, Esc to go back"))
	default:
		content.WriteString(modalTitleStyle.Render("PALE NOTES"))
		content.WriteString("\n\n")
		for i, item := range m.menu {
			if i == m.selected {
				content.WriteString(modalSelectedItemStyle.Render("▶ " + item.label))
			} else {
				content.WriteString(modalItemStyle.Render("  " + item.label))
			}
			content.WriteString("\n")
		}
		content.WriteString("\n")
		content.WriteString(promptStyle.Render("Use ↑/↓ to navigate, Enter to select, Esc to exit"))
	}

	if m.err != nil {
		content.WriteString("\n\n")
		content.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	modal := modalStyle.Width(60).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}
	if m.screen != screenGame {
		return m.renderMenu()
	}
	if !m.ready {
		return "\n  Initializing..."
	}

	chatWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - chatWidth - 6

	chatPanel := chatPanelStyle.Width(chatWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.chatViewport.View(),
			"",
			separatorStyle.Render(strings.Repeat("─", chatWidth-4)),
			m.textarea.View(),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, chatPanel, metaPanel)
}
