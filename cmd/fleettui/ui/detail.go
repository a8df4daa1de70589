package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"rigfleet/app/dto"
)

// WorkerDetailModel shows one worker: command queue on the left, command form
// and message log on the right.
type WorkerDetailModel struct {
	Session    *Session
	WorkerUUID string
	Width      int
	Height     int

	Queue       table.Model
	CommandForm *CommandFormModel
	Log         viewport.Model
	LogContent  string

	Focus int // 0: queue, 1: command form
	Err   error
}

const (
	FocusQueue = iota
	FocusCommand
)

type queueLoadedMsg struct {
	Commands []dto.QueuedCommand
	Err      error
}

type messagesLoadedMsg struct {
	Messages []dto.MessageResponse
	Err      error
}

func NewWorkerDetailModel(s *Session, workerUUID string, width, height int) WorkerDetailModel {
	columns := []table.Column{
		{Title: "ID", Width: 6},
		{Title: "Command", Width: 14},
		{Title: "Status", Width: 10},
		{Title: "Queued", Width: 20},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(height-10),
	)
	sT := table.DefaultStyles()
	sT.Header = sT.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	sT.Selected = sT.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(sT)

	vp := viewport.New(50, 10)
	vp.Style = lipgloss.NewStyle().PaddingLeft(1)

	form := NewCommandFormModel(workerUUID, s, 50, height-15)

	return WorkerDetailModel{
		Session:     s,
		WorkerUUID:  workerUUID,
		Width:       width,
		Height:      height,
		Queue:       t,
		Log:         vp,
		CommandForm: &form,
		Focus:       FocusQueue,
	}
}

func (m WorkerDetailModel) Init() tea.Cmd {
	return tea.Batch(m.fetchQueue, m.fetchMessages)
}

func (m WorkerDetailModel) fetchQueue() tea.Msg {
	cmds, err := m.Session.Queue(m.WorkerUUID)
	return queueLoadedMsg{Commands: cmds, Err: err}
}

func (m WorkerDetailModel) fetchMessages() tea.Msg {
	msgs, err := m.Session.Messages(m.WorkerUUID)
	return messagesLoadedMsg{Messages: msgs, Err: err}
}

func (m WorkerDetailModel) Update(msg tea.Msg) (WorkerDetailModel, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			if m.Focus == FocusCommand && m.CommandForm.State == StateFilling {
				break // let the form handle it
			}
			return m, func() tea.Msg { return BackToDashboardMsg{} }
		case "tab":
			if m.Focus == FocusQueue {
				m.Focus = FocusCommand
				m.Queue.Blur()
			} else {
				m.Focus = FocusQueue
				m.Queue.Focus()
			}
			return m, nil
		case "r":
			if m.Focus == FocusQueue {
				return m, tea.Batch(m.fetchQueue, m.fetchMessages)
			}
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Queue.SetHeight(msg.Height - 12)
		m.Log.Height = msg.Height / 3
		m.Log.Width = msg.Width/2 - 8
		if m.CommandForm != nil {
			formMsg := tea.WindowSizeMsg{Width: msg.Width/2 - 8, Height: msg.Height - m.Log.Height - 8}
			*m.CommandForm, _ = m.CommandForm.Update(formMsg)
		}

	case queueLoadedMsg:
		if msg.Err != nil {
			m.Err = msg.Err
			break
		}
		m.Err = nil
		rows := make([]table.Row, 0, len(msg.Commands))
		for _, c := range msg.Commands {
			rows = append(rows, table.Row{
				fmt.Sprintf("%d", c.ID),
				c.Command,
				c.Status,
				time.Unix(c.CreatedAt, 0).Format("2006-01-02 15:04:05"),
			})
		}
		m.Queue.SetRows(rows)

	case messagesLoadedMsg:
		if msg.Err != nil {
			m.Err = msg.Err
			break
		}
		var b strings.Builder
		for _, mm := range msg.Messages {
			b.WriteString(fmt.Sprintf("[%s] %s\n", mm.Level, mm.Title))
		}
		m.LogContent = b.String()
		m.Log.SetContent(m.LogContent)
		m.Log.GotoBottom()

	case CommandSentMsg:
		if msg.Err != nil {
			m.LogContent += errorMessageStyle(msg.Err.Error()) + "\n"
		} else {
			m.LogContent += msg.Log + "\n"
		}
		m.Log.SetContent(m.LogContent)
		m.Log.GotoBottom()
		cmds = append(cmds, m.fetchQueue)
	}

	if m.Focus == FocusQueue {
		m.Queue, cmd = m.Queue.Update(msg)
		cmds = append(cmds, cmd)
	} else if m.CommandForm != nil {
		*m.CommandForm, cmd = m.CommandForm.Update(msg)
		cmds = append(cmds, cmd)
	}

	m.Log, cmd = m.Log.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m WorkerDetailModel) View() string {
	header := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).Render(m.WorkerUUID)
	queueView := lipgloss.JoinVertical(lipgloss.Left, header, m.Queue.View())

	activeBorder := lipgloss.NewStyle().BorderStyle(lipgloss.ThickBorder()).BorderForeground(lipgloss.Color("205")).Padding(1, 2).Width(m.Width/2 - 6)
	inactiveBorder := lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(m.Width/2 - 6)

	var leftStyle, rightStyle lipgloss.Style
	if m.Focus == FocusQueue {
		leftStyle = activeBorder
		rightStyle = inactiveBorder
	} else {
		leftStyle = inactiveBorder
		rightStyle = activeBorder
	}

	left := leftStyle.Render(queueView)

	sep := lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Render(strings.Repeat("─", m.Width/2-6))
	rightContent := lipgloss.JoinVertical(lipgloss.Left,
		m.CommandForm.View(),
		sep,
		lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true).Render("Messages:"),
		m.Log.View(),
	)
	right := rightStyle.Render(rightContent)

	content := lipgloss.JoinHorizontal(lipgloss.Top, left, right)
	help := lipgloss.NewStyle().Foreground(lipgloss.Color("241")).MarginTop(1).Render("Tab: Switch • r: Refresh • Enter: Select/Submit • Esc: Dashboard")

	out := lipgloss.JoinVertical(lipgloss.Left, content, help)
	if m.Err != nil {
		out += "\n" + errorMessageStyle(m.Err.Error())
	}
	return out
}
