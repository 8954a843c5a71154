package tui

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tasks-cli/app"
	"tasks-cli/model"
)

var ErrCanceled = errors.New("edit canceled")

// Editor is the part of app.Service the edit program needs.
type Editor interface {
	GetTask(id int) (model.Task, error)
	EditField(id int, field app.Field, value string) (model.Task, error)
	EditTask(id int, upd app.TaskUpdate) (model.Task, error)
}

type uiMode int

const (
	modeChoose uiMode = iota
	modeField
	modeWhole
)

// choiceWhole is the menu entry after the individual fields.
const choiceWhole = "whole task"

var fieldLabels = map[app.Field]string{
	app.FieldTitle:       "Title",
	app.FieldDescription: "Description",
	app.FieldCategory:    "Category",
	app.FieldDueDate:     "Due date (YYYY-MM-DD)",
	app.FieldPriority:    "Priority (low, medium, high)",
	app.FieldStatus:      "Status (not-done, in-progress, done)",
}

// Model is a bubbletea program that edits one task, either a single field or
// every field in sequence.
type Model struct {
	editor Editor
	id     int
	task   model.Task

	mode   uiMode
	cursor int
	field  app.Field
	input  textinput.Model

	// whole-task edit progress
	step    int
	working model.Task
	update  app.TaskUpdate

	status    string
	statusErr bool

	result   model.Task
	done     bool
	canceled bool
	err      error
}

// NewModel loads the task to edit.
func NewModel(editor Editor, id int) (*Model, error) {
	task, err := editor.GetTask(id)
	if err != nil {
		return nil, err
	}

	ti := textinput.New()
	ti.CharLimit = 256
	ti.Width = 48

	return &Model{
		editor: editor,
		id:     id,
		task:   task,
		mode:   modeChoose,
		input:  ti,
		status: "Choose a field with 1-7 or arrows, enter to confirm",
	}, nil
}

// Run drives the edit program on in/out and returns the updated task.
func Run(editor Editor, id int, in io.Reader, out io.Writer) (model.Task, error) {
	m, err := NewModel(editor, id)
	if err != nil {
		return model.Task{}, err
	}
	p := tea.NewProgram(m, tea.WithInput(in), tea.WithOutput(out))
	if _, err := p.Run(); err != nil {
		return model.Task{}, err
	}
	return m.Result()
}

// Result reports the outcome once the program has quit.
func (m *Model) Result() (model.Task, error) {
	switch {
	case m.err != nil:
		return model.Task{}, m.err
	case m.canceled || !m.done:
		return model.Task{}, ErrCanceled
	}
	return m.result, nil
}

func (m *Model) Init() tea.Cmd {
	return nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if msg.Width > 20 {
			m.input.Width = msg.Width - 20
		}
	case tea.KeyMsg:
		if m.mode == modeChoose {
			return m, m.updateChooseMode(msg)
		}
		return m, m.updateInputMode(msg)
	}
	return m, nil
}

func choices() []string {
	out := make([]string, 0, len(app.Fields())+1)
	for _, f := range app.Fields() {
		out = append(out, string(f))
	}
	return append(out, choiceWhole)
}

func (m *Model) updateChooseMode(msg tea.KeyMsg) tea.Cmd {
	n := len(choices())
	switch key := msg.String(); key {
	case "ctrl+c", "esc", "q":
		m.canceled = true
		return tea.Quit
	case "j", "down":
		m.cursor = (m.cursor + 1) % n
	case "k", "up":
		m.cursor = (m.cursor - 1 + n) % n
	case "enter":
		return m.choose(m.cursor)
	default:
		if len(key) == 1 && key[0] >= '1' && int(key[0]-'0') <= n {
			m.cursor = int(key[0] - '1')
			return m.choose(m.cursor)
		}
	}
	return nil
}

func (m *Model) choose(idx int) tea.Cmd {
	fields := app.Fields()
	if idx >= len(fields) {
		m.mode = modeWhole
		m.step = 0
		m.working = m.task
		m.update = app.TaskUpdate{}
		return m.prompt(fields[0], "Enter keeps the current value")
	}
	m.mode = modeField
	return m.prompt(fields[idx], "Enter the new value")
}

func (m *Model) prompt(field app.Field, hint string) tea.Cmd {
	m.field = field
	m.input.SetValue("")
	m.input.Prompt = fieldLabels[field] + ": "
	m.input.Placeholder = fieldValue(m.task, field)
	m.setStatus(hint, false)
	return m.input.Focus()
}

func (m *Model) updateInputMode(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.canceled = true
		m.input.Blur()
		return tea.Quit
	case "enter":
		if m.mode == modeWhole {
			return m.submitWholeStep()
		}
		return m.submitField()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *Model) submitField() tea.Cmd {
	updated, err := m.editor.EditField(m.id, m.field, m.input.Value())
	if errors.Is(err, app.ErrValidation) {
		m.setStatus(err.Error(), true)
		return nil
	}
	return m.finish(updated, err)
}

func (m *Model) submitWholeStep() tea.Cmd {
	value := m.input.Value()
	if strings.TrimSpace(value) == "" {
		value = fieldValue(m.working, m.field)
	}

	next, err := app.ApplyField(m.working, m.field, value)
	if err != nil {
		m.setStatus(err.Error(), true)
		return nil
	}
	m.working = next
	m.update.Set(m.field, value)

	fields := app.Fields()
	m.step++
	if m.step < len(fields) {
		return m.prompt(fields[m.step], "Enter keeps the current value")
	}

	updated, err := m.editor.EditTask(m.id, m.update)
	return m.finish(updated, err)
}

func (m *Model) finish(updated model.Task, err error) tea.Cmd {
	m.input.Blur()
	if err != nil {
		m.err = err
		return tea.Quit
	}
	m.result = updated
	m.task = updated
	m.done = true
	return tea.Quit
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}

func fieldValue(t model.Task, field app.Field) string {
	switch field {
	case app.FieldTitle:
		return t.Title
	case app.FieldDescription:
		return t.Description
	case app.FieldCategory:
		return string(t.Category)
	case app.FieldDueDate:
		return t.DueDate
	case app.FieldPriority:
		return string(t.Priority)
	case app.FieldStatus:
		return string(t.Status)
	}
	return ""
}

func (m *Model) View() string {
	if m.done || m.canceled || m.err != nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("Edit task #%d", m.id)))
	b.WriteString("\n\n")

	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	for _, f := range app.Fields() {
		b.WriteString(dim.Render(fmt.Sprintf("  %-12s %s", f, fieldValue(m.task, f))))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if m.mode == modeChoose {
		selected := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229"))
		for i, c := range choices() {
			line := fmt.Sprintf("  %d. %s", i+1, c)
			if i == m.cursor {
				line = selected.Render(fmt.Sprintf("> %d. %s", i+1, c))
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
	} else {
		if m.mode == modeWhole {
			b.WriteString(dim.Render(fmt.Sprintf("Field %d of %d", m.step+1, len(app.Fields()))))
			b.WriteString("\n")
		}
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}

	statusStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("70"))
	if m.statusErr {
		statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	}
	b.WriteString("\n")
	b.WriteString(statusStyle.Render(m.status))
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("esc cancel"))
	b.WriteString("\n")
	return b.String()
}
