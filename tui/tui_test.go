package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"tasks-cli/app"
	"tasks-cli/model"
	"tasks-cli/store"
)

func newTestModel(t *testing.T) (*Model, *app.Service) {
	t.Helper()
	mem := store.NewMemory(model.NewTask(1, "Pay bills", "rent", model.CategoryHome, "2026-04-01", model.PriorityLow, model.StatusNotDone))
	svc, err := app.NewService(mem)
	if err != nil {
		t.Fatalf("new service failed: %v", err)
	}
	m, err := NewModel(svc, 1)
	if err != nil {
		t.Fatalf("new model failed: %v", err)
	}
	return m, svc
}

func press(m *Model, keys ...tea.KeyMsg) tea.Cmd {
	var cmd tea.Cmd
	for _, k := range keys {
		_, cmd = m.Update(k)
	}
	return cmd
}

func typeText(m *Model, s string) {
	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var enter = tea.KeyMsg{Type: tea.KeyEnter}

func TestNewModelMissingTask(t *testing.T) {
	svc, err := app.NewService(store.NewMemory())
	if err != nil {
		t.Fatalf("new service failed: %v", err)
	}
	if _, err := NewModel(svc, 5); !errors.Is(err, app.ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestEditSingleFieldByDigit(t *testing.T) {
	m, svc := newTestModel(t)

	press(m, key("5"))
	if m.mode != modeField || m.field != app.FieldPriority {
		t.Fatalf("expected priority prompt, got mode=%d field=%q", m.mode, m.field)
	}

	typeText(m, "high")
	cmd := press(m, enter)
	if cmd == nil {
		t.Fatalf("expected quit command after successful edit")
	}

	got, err := m.Result()
	if err != nil {
		t.Fatalf("result failed: %v", err)
	}
	if got.Priority != model.PriorityHigh {
		t.Fatalf("expected high priority, got %q", got.Priority)
	}
	stored, _ := svc.GetTask(1)
	if stored.Priority != model.PriorityHigh {
		t.Fatalf("expected service to hold the edit, got %q", stored.Priority)
	}
}

func TestEditSingleFieldRetriesOnValidationError(t *testing.T) {
	m, svc := newTestModel(t)

	press(m, key("4"))
	typeText(m, "next week")
	if cmd := press(m, enter); cmd != nil {
		t.Fatalf("expected to stay in prompt after invalid date")
	}
	if !m.statusErr || !strings.Contains(m.status, "YYYY-MM-DD") {
		t.Fatalf("expected date error in status, got %q", m.status)
	}
	stored, _ := svc.GetTask(1)
	if stored.DueDate != "2026-04-01" {
		t.Fatalf("expected due date untouched, got %q", stored.DueDate)
	}

	m.input.SetValue("2026-05-02")
	press(m, enter)
	got, err := m.Result()
	if err != nil {
		t.Fatalf("result failed: %v", err)
	}
	if got.DueDate != "2026-05-02" {
		t.Fatalf("expected new due date, got %q", got.DueDate)
	}
}

func TestArrowNavigationChoosesField(t *testing.T) {
	m, _ := newTestModel(t)

	press(m, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyDown})
	if m.cursor != 2 {
		t.Fatalf("expected cursor 2, got %d", m.cursor)
	}
	press(m, tea.KeyMsg{Type: tea.KeyUp}, enter)
	if m.field != app.FieldDescription {
		t.Fatalf("expected description prompt, got %q", m.field)
	}
}

func TestWholeTaskEditKeepsBlankFields(t *testing.T) {
	m, svc := newTestModel(t)

	press(m, key("7"))
	if m.mode != modeWhole {
		t.Fatalf("expected whole-task mode, got %d", m.mode)
	}

	typeText(m, "Pay rent")
	press(m, enter) // title
	press(m, enter) // description kept
	press(m, enter) // category kept
	press(m, enter) // due date kept
	typeText(m, "urgent")
	press(m, enter) // invalid priority
	if m.field != app.FieldPriority || !m.statusErr {
		t.Fatalf("expected priority retry, got field=%q status=%q", m.field, m.status)
	}
	m.input.SetValue("medium")
	press(m, enter)
	typeText(m, "done")
	press(m, enter)

	got, err := m.Result()
	if err != nil {
		t.Fatalf("result failed: %v", err)
	}
	want := model.Task{
		ID:          1,
		Title:       "pay rent",
		Description: "rent",
		Category:    model.CategoryHome,
		DueDate:     "2026-04-01",
		Priority:    model.PriorityMedium,
		Status:      model.StatusDone,
	}
	if got != want {
		t.Fatalf("unexpected task\nwant=%+v\ngot=%+v", want, got)
	}
	stored, _ := svc.GetTask(1)
	if stored != want {
		t.Fatalf("service not updated: %+v", stored)
	}
}

func TestEscapeCancels(t *testing.T) {
	m, svc := newTestModel(t)

	press(m, key("1"))
	typeText(m, "changed")
	press(m, tea.KeyMsg{Type: tea.KeyEsc})

	if _, err := m.Result(); !errors.Is(err, ErrCanceled) {
		t.Fatalf("expected ErrCanceled, got %v", err)
	}
	stored, _ := svc.GetTask(1)
	if stored.Title != "pay bills" {
		t.Fatalf("expected title untouched, got %q", stored.Title)
	}
}

func TestViewListsChoices(t *testing.T) {
	m, _ := newTestModel(t)
	view := m.View()
	for _, want := range []string{"Edit task #1", "1. title", "7. whole task", "pay bills"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected view to contain %q, got:\n%s", want, view)
		}
	}
}
