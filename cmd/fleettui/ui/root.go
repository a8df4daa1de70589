package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

type state int

const (
	stateLogin state = iota
	stateDashboard
	stateWorkerDetail
)

// BackToDashboardMsg signals transition back to the worker list.
type BackToDashboardMsg struct{}

type RootModel struct {
	State     state
	Session   *Session
	Login     LoginModel
	Dashboard DashboardModel
	Detail    WorkerDetailModel
	Quitting  bool
	width     int
	height    int
}

func NewRootModel(server string) RootModel {
	s := NewSession()
	return RootModel{
		State:   stateLogin,
		Session: s,
		Login:   NewLoginModel(s, server),
	}
}

func (m RootModel) Init() tea.Cmd {
	return m.Login.Init()
}

func (m RootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.Dashboard.Table.SetHeight(msg.Height - 10)

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.Quitting = true
			return m, tea.Quit
		}
	}

	switch m.State {
	case stateLogin:
		if done, ok := msg.(loginDoneMsg); ok && done.Err == nil {
			m.State = stateDashboard
			m.Dashboard = NewDashboardModel(m.Session, m.width, m.height)
			return m, m.Dashboard.Init()
		}

		newLogin, cmd := m.Login.Update(msg)
		m.Login = newLogin
		cmds = append(cmds, cmd)

	case stateDashboard:
		if sel, ok := msg.(WorkerSelectedMsg); ok {
			m.State = stateWorkerDetail
			m.Detail = NewWorkerDetailModel(m.Session, sel.WorkerUUID, m.width, m.height)
			return m, m.Detail.Init()
		}

		newDash, cmd := m.Dashboard.Update(msg)
		m.Dashboard = newDash
		cmds = append(cmds, cmd)

	case stateWorkerDetail:
		if _, ok := msg.(BackToDashboardMsg); ok {
			m.State = stateDashboard
			return m, m.Dashboard.Init() // refresh the list
		}

		newDetail, cmd := m.Detail.Update(msg)
		m.Detail = newDetail
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m RootModel) View() string {
	if m.Quitting {
		return "Bye!\n"
	}
	switch m.State {
	case stateLogin:
		return m.Login.View()
	case stateDashboard:
		return m.Dashboard.View()
	case stateWorkerDetail:
		return m.Detail.View()
	}
	return "Unknown state"
}
