package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"rigfleet/app/dto"
)

type DashboardModel struct {
	Session *Session
	Table   table.Model
	Workers []dto.WorkerResponse
	Err     error
}

type workersLoadedMsg struct {
	Workers []dto.WorkerResponse
	Err     error
}

type WorkerSelectedMsg struct {
	WorkerUUID string
}

func NewDashboardModel(s *Session, width, height int) DashboardModel {
	columns := []table.Column{
		{Title: "UUID", Width: 38},
		{Title: "Name", Width: 20},
		{Title: "Algo", Width: 10},
		{Title: "Online", Width: 8},
		{Title: "Pending", Width: 8},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(height-10),
	)

	sStyle := table.DefaultStyles()
	sStyle.Header = sStyle.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	sStyle.Selected = sStyle.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(sStyle)

	return DashboardModel{Session: s, Table: t}
}

func (m DashboardModel) Init() tea.Cmd {
	return m.refreshCmd
}

func (m DashboardModel) refreshCmd() tea.Msg {
	workers, err := m.Session.ListWorkers()
	return workersLoadedMsg{Workers: workers, Err: err}
}

func (m DashboardModel) Update(msg tea.Msg) (DashboardModel, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "r":
			return m, m.refreshCmd
		case "enter":
			selected := m.Table.SelectedRow()
			if len(selected) > 0 {
				return m, func() tea.Msg {
					return WorkerSelectedMsg{WorkerUUID: selected[0]}
				}
			}
		case "q":
			return m, tea.Quit
		}

	case workersLoadedMsg:
		if msg.Err != nil {
			m.Err = msg.Err
			return m, nil
		}
		m.Err = nil
		m.Workers = msg.Workers
		rows := make([]table.Row, 0, len(msg.Workers))
		for _, w := range msg.Workers {
			online := "offline"
			if w.Online {
				online = "online"
			}
			rows = append(rows, table.Row{w.UUID, w.Name, w.OCAlgo, online, fmt.Sprintf("%d", w.PendingCmds)})
		}
		m.Table.SetRows(rows)
	}

	m.Table, cmd = m.Table.Update(msg)
	return m, cmd
}

func (m DashboardModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Fleet - Workers") + "\n\n")
	b.WriteString(m.Table.View())
	b.WriteString("\n\n")
	b.WriteString(blurredStyle.Render("Press 'r' to refresh, Enter to open a worker, 'q' to quit"))
	if m.Err != nil {
		b.WriteString("\n" + errorMessageStyle(m.Err.Error()))
	}
	return b.String()
}
