package ui

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type FormState int

const (
	StateSelecting FormState = iota
	StateFilling
)

type cmdItem struct {
	title, desc string
	index       int
}

func (i cmdItem) Title() string       { return i.title }
func (i cmdItem) Description() string { return i.desc }
func (i cmdItem) FilterValue() string { return i.title }

// CommandSentMsg carries the outcome of a submitted command.
type CommandSentMsg struct {
	Log string
	Err error
}

type CommandFormModel struct {
	WorkerUUID  string
	Session     *Session
	State       FormState
	List        list.Model
	Inputs      []textinput.Model
	Focused     int
	SelectedCmd int
}

type CommandDef struct {
	Name        string
	Description string
	Fields      []FieldDef
}

type FieldDef struct {
	Name        string
	Placeholder string
	Required    bool
	Default     string
}

var availableCommands = []CommandDef{
	{
		Name:        "reboot",
		Description: "Reboot the worker",
	},
	{
		Name:        "shutdown",
		Description: "Power the worker off",
	},
	{
		Name:        "upgrade",
		Description: "Upgrade the agent software",
		Fields: []FieldDef{
			{Name: "version", Placeholder: "Version (empty = latest)", Required: false},
		},
	},
	{
		Name:        "miner_action",
		Description: "Start/stop/restart the miner",
		Fields: []FieldDef{
			{Name: "action", Placeholder: "start, stop, or restart", Required: true, Default: "restart"},
		},
	},
	{
		Name:        "exec",
		Description: "Execute a raw shell command",
		Fields: []FieldDef{
			{Name: "cmd", Placeholder: "e.g. uptime", Required: true},
		},
	},
	{
		Name:        "rom_flash",
		Description: "Flash a GPU BIOS ROM",
		Fields: []FieldDef{
			{Name: "rom_url", Placeholder: "URL of the ROM image", Required: true},
			{Name: "gpu_index", Placeholder: "GPU index (empty = all)", Required: false},
		},
	},
}

func NewCommandFormModel(workerUUID string, session *Session, width, height int) CommandFormModel {
	items := []list.Item{}
	for i, cmd := range availableCommands {
		items = append(items, cmdItem{title: cmd.Name, desc: cmd.Description, index: i})
	}

	delegate := list.NewDefaultDelegate()
	l := list.New(items, delegate, width, height)
	l.Title = "Select Command"
	l.SetShowHelp(false)

	return CommandFormModel{
		WorkerUUID: workerUUID,
		Session:    session,
		State:      StateSelecting,
		List:       l,
	}
}

func (m *CommandFormModel) initInputs() {
	if m.SelectedCmd < 0 || m.SelectedCmd >= len(availableCommands) {
		m.SelectedCmd = 0
	}
	cmd := availableCommands[m.SelectedCmd]
	m.Inputs = make([]textinput.Model, len(cmd.Fields))
	for i, field := range cmd.Fields {
		ti := textinput.New()
		ti.Placeholder = field.Placeholder
		ti.CharLimit = 256
		if field.Default != "" {
			ti.SetValue(field.Default)
		}
		if i == 0 {
			ti.Focus()
		}
		m.Inputs[i] = ti
	}
	m.Focused = 0
}

func (m CommandFormModel) Init() tea.Cmd {
	return nil
}

func (m CommandFormModel) Update(msg tea.Msg) (CommandFormModel, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	if m.State == StateSelecting {
		switch msg := msg.(type) {
		case tea.KeyMsg:
			switch msg.String() {
			case "enter":
				if i, ok := m.List.SelectedItem().(cmdItem); ok {
					m.SelectedCmd = i.index
					if len(availableCommands[i.index].Fields) == 0 {
						// Nothing to fill in, submit straight away.
						return m, m.submitCommand()
					}
					m.State = StateFilling
					m.initInputs()
					return m, textinput.Blink
				}
			case "up", "k":
				m.List.CursorUp()
				return m, nil
			case "down", "j":
				m.List.CursorDown()
				return m, nil
			}
		case tea.WindowSizeMsg:
			m.List.SetWidth(msg.Width)
			m.List.SetHeight(msg.Height)
		}
		m.List, cmd = m.List.Update(msg)
		cmds = append(cmds, cmd)
	} else {
		switch msg := msg.(type) {
		case tea.KeyMsg:
			switch msg.String() {
			case "esc":
				m.State = StateSelecting
				return m, nil
			case "enter":
				if m.Focused == len(m.Inputs) {
					return m, m.submitCommand()
				} else if m.Focused == len(m.Inputs)+1 {
					m.State = StateSelecting
					return m, nil
				}
				m.Focused++
				if m.Focused > len(m.Inputs)+1 {
					m.Focused = 0
				}
				m.updateFocus()
				return m, nil

			case "tab", "down":
				m.Focused++
				if m.Focused > len(m.Inputs)+1 {
					m.Focused = 0
				}
				m.updateFocus()
				return m, nil

			case "shift+tab", "up":
				m.Focused--
				if m.Focused < 0 {
					m.Focused = len(m.Inputs) + 1
				}
				m.updateFocus()
				return m, nil
			}
		}
		if m.Focused >= 0 && m.Focused < len(m.Inputs) {
			m.Inputs[m.Focused], cmd = m.Inputs[m.Focused].Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

func (m *CommandFormModel) updateFocus() {
	for i := range m.Inputs {
		if i == m.Focused {
			m.Inputs[i].Focus()
		} else {
			m.Inputs[i].Blur()
		}
	}
}

func (m CommandFormModel) renderButton(text string, focused bool) string {
	if focused {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("205")).Padding(0, 3).Bold(true).Render(text)
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color("254")).Background(lipgloss.Color("240")).Padding(0, 3).Render(text)
}

func (m CommandFormModel) View() string {
	if m.State == StateSelecting {
		return m.List.View()
	}

	cmd := availableCommands[m.SelectedCmd]
	var s string

	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")).Render(fmt.Sprintf("Parameters: %s", cmd.Name))
	s += title + "\n\n"

	for i, field := range cmd.Fields {
		label := field.Name
		if field.Required {
			label += " *"
		}
		labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
		if i == m.Focused {
			labelStyle = labelStyle.Foreground(lipgloss.Color("205")).Bold(true)
		}
		s += labelStyle.Render(label) + "\n"
		s += m.Inputs[i].View() + "\n\n"
	}

	submitBtn := m.renderButton("Submit", m.Focused == len(m.Inputs))
	backBtn := m.renderButton("Back", m.Focused == len(m.Inputs)+1)

	buttons := lipgloss.JoinHorizontal(lipgloss.Top, submitBtn, lipgloss.NewStyle().MarginLeft(2).Render(backBtn))
	s += "\n" + buttons

	return lipgloss.NewStyle().Padding(1, 2).Render(s)
}

func (m CommandFormModel) submitCommand() tea.Cmd {
	return func() tea.Msg {
		cmd := availableCommands[m.SelectedCmd]
		payload := buildPayload(cmd.Name, m.Inputs)
		var raw json.RawMessage
		if payload != nil {
			raw, _ = json.Marshal(payload)
		}
		id, err := m.Session.SendCommand(m.WorkerUUID, cmd.Name, raw)
		if err != nil {
			return CommandSentMsg{Err: err}
		}
		return CommandSentMsg{Log: fmt.Sprintf("> %s queued as command %d", cmd.Name, id)}
	}
}

func buildPayload(name string, inputs []textinput.Model) map[string]any {
	switch name {
	case "upgrade":
		if inputs[0].Value() == "" {
			return nil
		}
		return map[string]any{"version": inputs[0].Value()}
	case "miner_action":
		return map[string]any{"action": inputs[0].Value()}
	case "exec":
		return map[string]any{"cmd": inputs[0].Value()}
	case "rom_flash":
		p := map[string]any{"rom_url": inputs[0].Value()}
		if v := inputs[1].Value(); v != "" {
			if idx, err := strconv.Atoi(v); err == nil {
				p["gpu_index"] = idx
			}
		}
		return p
	}
	return nil
}
