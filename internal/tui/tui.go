// Package tui is the terminal presentation layer: it renders a workspace's
// chat state with bubbletea and forwards key presses to the coordinator.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"chatbox/web/internal/model"
	"chatbox/web/internal/service"
)

const (
	sidebarWidth = 28
	inputHeight  = 3
	helpText     = "enter send • esc stop • ctrl+e edit last • ctrl+n new • ctrl+r refresh • ctrl+k/j select • ctrl+o open • ctrl+c quit"
)

// Notifier turns coordinator OnChange callbacks into bubbletea messages.
// Bursts of changes collapse into one pending notification.
type Notifier struct {
	ch   chan struct{}
	done chan struct{}
}

func NewNotifier() *Notifier {
	return &Notifier{ch: make(chan struct{}, 1), done: make(chan struct{})}
}

// Notify is safe to call from any goroutine and never blocks.
func (n *Notifier) Notify() {
	select {
	case n.ch <- struct{}{}:
	default:
	}
}

// Close releases a pending wait.
func (n *Notifier) Close() {
	select {
	case <-n.done:
	default:
		close(n.done)
	}
}

func (n *Notifier) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-n.ch:
			return changedMsg{}
		case <-n.done:
			return nil
		}
	}
}

type (
	changedMsg struct{}
	statusMsg  string
)

// Model is the bubbletea model of the chat screen.
type Model struct {
	ctx     context.Context
	ws      *service.Workspace
	changes *Notifier

	input    textarea.Model
	view     viewport.Model
	spinner  spinner.Model
	state    service.State
	selected int
	status   string

	width  int
	height int
	ready  bool
}

// New builds the chat screen for ws. changes must be the notifier wired to
// the workspace's OnChange.
func New(ctx context.Context, ws *service.Workspace, changes *Notifier) Model {
	ta := textarea.New()
	ta.Placeholder = "Type a message..."
	ta.ShowLineNumbers = false
	ta.SetHeight(inputHeight)
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		ctx:     ctx,
		ws:      ws,
		changes: changes,
		input:   ta,
		spinner: sp,
		state:   ws.Chat.Snapshot(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick, m.changes.wait())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		w, h := m.chatSize()
		if !m.ready {
			m.view = viewport.New(w, h)
			m.ready = true
		} else {
			m.view.Width, m.view.Height = w, h
		}
		m.input.SetWidth(w - 2)
		m.render()
		return m, nil

	case changedMsg:
		m.sync()
		return m, m.changes.wait()

	case statusMsg:
		m.status = string(msg)
		m.sync()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	chat := m.ws.Chat
	m.status = ""

	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "enter":
		if chat.Submit(m.input.Value()) {
			m.input.Reset()
		}
		m.sync()
		return m, nil

	case "esc":
		if m.state.Sending {
			chat.StopGeneration(false)
		} else if m.state.EditingIndex != nil {
			chat.CancelEdit()
			m.input.Reset()
		}
		m.sync()
		return m, nil

	case "ctrl+e":
		chat.StopGeneration(true)
		m.sync()
		if m.state.EditingIndex != nil {
			m.input.SetValue(m.state.EditingText)
			m.input.CursorEnd()
		}
		return m, nil

	case "ctrl+n":
		chat.StartNewChat()
		m.input.Reset()
		m.sync()
		return m, nil

	case "ctrl+k":
		if m.selected > 0 {
			m.selected--
		}
		return m, nil

	case "ctrl+j":
		if m.selected < len(m.state.Chats)-1 {
			m.selected++
		}
		return m, nil

	case "ctrl+r":
		return m, m.refreshChats()

	case "ctrl+o":
		if m.selected < 0 || m.selected >= len(m.state.Chats) {
			return m, nil
		}
		return m, m.openChat(m.state.Chats[m.selected].ID)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) refreshChats() tea.Cmd {
	ctx, chat := m.ctx, m.ws.Chat
	return func() tea.Msg {
		if err := chat.RefreshChats(ctx); err != nil {
			return statusMsg(fmt.Sprintf("Could not load chats: %v", err))
		}
		return statusMsg("")
	}
}

// openChat runs off the event loop; the coordinator posts its own bubble when
// the conversation cannot be loaded.
func (m Model) openChat(id string) tea.Cmd {
	ctx, chat := m.ctx, m.ws.Chat
	return func() tea.Msg {
		_ = chat.OpenChat(ctx, id)
		return statusMsg("")
	}
}

// sync pulls the coordinator's state and re-renders the transcript.
func (m *Model) sync() {
	m.state = m.ws.Chat.Snapshot()
	if m.selected >= len(m.state.Chats) {
		m.selected = max(len(m.state.Chats)-1, 0)
	}
	m.render()
}

func (m *Model) render() {
	if !m.ready {
		return
	}
	m.view.SetContent(renderTranscript(m.state, m.view.Width))
	m.view.GotoBottom()
}

func (m Model) chatSize() (int, int) {
	w := m.width - sidebarWidth - 4
	h := m.height - inputHeight - 6
	return max(w, 10), max(h, 3)
}

func renderTranscript(st service.State, width int) string {
	body := lipgloss.NewStyle().Width(max(width-2, 1))
	var b strings.Builder
	for i, msg := range st.Messages {
		label := aiLabelStyle.Render("Assistant")
		if msg.Role == model.RoleUser {
			label = userLabelStyle.Render("You")
		}
		if st.EditingIndex != nil && *st.EditingIndex == i {
			label += " " + editingStyle.Render("(editing)")
		}
		b.WriteString(label)
		b.WriteString("\n")
		b.WriteString(body.Render(msg.Text))
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderSidebar() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Chats"))
	b.WriteString("\n")
	if len(m.state.Chats) == 0 {
		b.WriteString(helpStyle.Render("No saved chats"))
	}
	for i, c := range m.state.Chats {
		title := c.Title
		if r := []rune(title); len(r) > sidebarWidth-4 {
			title = string(r[:sidebarWidth-5]) + "…"
		}
		style := sidebarItemStyle
		if c.ID == m.state.ActiveConversationID {
			style = sidebarActiveStyle
		}
		if i == m.selected {
			style = style.Inherit(sidebarSelectedStyle)
		}
		b.WriteString(style.Render(title))
		b.WriteString("\n")
	}
	return sidebarStyle.Width(sidebarWidth).Height(max(m.height-2, 1)).Render(b.String())
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := titleStyle.Render("Chatbox")
	if m.state.Sending {
		header += " " + m.spinner.View() + helpStyle.Render(" waiting for reply")
	}
	footer := helpStyle.Render(helpText)
	if m.status != "" {
		footer = statusStyle.Render(m.status)
	}

	main := lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.view.View(),
		inputStyle.Render(m.input.View()),
		footer,
	)
	return lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), main)
}

// Run starts the full-screen program and blocks until the user quits.
func Run(ctx context.Context, ws *service.Workspace, changes *Notifier) error {
	defer changes.Close()
	p := tea.NewProgram(New(ctx, ws, changes), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
