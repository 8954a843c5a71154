package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the only accepted textual form of a due date.
const DateLayout = "2006-01-02"

// Status is the completion state of a task.
type Status string

const (
	StatusNotDone    Status = "not-done"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
)

// Priority is a task priority.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Category groups tasks by area of life.
type Category string

const (
	CategoryStudy    Category = "study"
	CategoryPersonal Category = "personal"
	CategoryWork     Category = "work"
	CategoryHome     Category = "home"
)

// Defaults applied when a field is not supplied on creation.
const (
	DefaultStatus   = StatusNotDone
	DefaultPriority = PriorityLow
	DefaultCategory = CategoryPersonal
)

var (
	statusAliases = map[string]Status{
		"not-done":     StatusNotDone,
		"not done":     StatusNotDone,
		"todo":         StatusNotDone,
		"не выполнено": StatusNotDone,
		"in-progress":  StatusInProgress,
		"in progress":  StatusInProgress,
		"doing":        StatusInProgress,
		"в процессе":   StatusInProgress,
		"done":         StatusDone,
		"выполнено":    StatusDone,
	}
	priorityAliases = map[string]Priority{
		"low":     PriorityLow,
		"низкий":  PriorityLow,
		"medium":  PriorityMedium,
		"средний": PriorityMedium,
		"high":    PriorityHigh,
		"высокий": PriorityHigh,
	}
	categoryAliases = map[string]Category{
		"study":    CategoryStudy,
		"обучение": CategoryStudy,
		"personal": CategoryPersonal,
		"личное":   CategoryPersonal,
		"work":     CategoryWork,
		"работа":   CategoryWork,
		"home":     CategoryHome,
		"дом":      CategoryHome,
	}
)

// Statuses lists the status domain in display order.
func Statuses() []Status { return []Status{StatusNotDone, StatusInProgress, StatusDone} }

// Priorities lists the priority domain in display order.
func Priorities() []Priority { return []Priority{PriorityLow, PriorityMedium, PriorityHigh} }

// Categories lists the category domain in display order.
func Categories() []Category {
	return []Category{CategoryStudy, CategoryPersonal, CategoryWork, CategoryHome}
}

// ParseStatus resolves s case-insensitively, including the legacy Russian labels.
func ParseStatus(s string) (Status, bool) {
	v, ok := statusAliases[normalizeKey(s)]
	return v, ok
}

// ParsePriority resolves s case-insensitively, including the legacy Russian labels.
func ParsePriority(s string) (Priority, bool) {
	v, ok := priorityAliases[normalizeKey(s)]
	return v, ok
}

// ParseCategory resolves s case-insensitively, including the legacy Russian labels.
func ParseCategory(s string) (Category, bool) {
	v, ok := categoryAliases[normalizeKey(s)]
	return v, ok
}

// CanonicalCategory returns the canonical name of a known category, or the
// lowercased input for free-text categories.
func CanonicalCategory(s string) string {
	if c, ok := ParseCategory(s); ok {
		return string(c)
	}
	return normalizeKey(s)
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ParseDueDate accepts only strict YYYY-MM-DD input and returns it in
// canonical form.
func ParseDueDate(s string) (string, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return "", err
	}
	return d.Format(DateLayout), nil
}

// DefaultDueDate is the day after now.
func DefaultDueDate(now time.Time) string {
	return now.AddDate(0, 0, 1).Format(DateLayout)
}

// Task is an individual todo item.
type Task struct {
	ID          int      `json:"id" yaml:"id"`
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description" yaml:"description"`
	Category    Category `json:"category" yaml:"category"`
	DueDate     string   `json:"due_date" yaml:"due_date"`
	Priority    Priority `json:"priority" yaml:"priority"`
	Status      Status   `json:"status" yaml:"status"`
}

// NewTask builds a task with text fields lowercased. Enum values are taken
// as given; domain checks belong to the caller.
func NewTask(id int, title, description string, category Category, dueDate string, priority Priority, status Status) Task {
	return Task{
		ID:          id,
		Title:       strings.ToLower(title),
		Description: strings.ToLower(description),
		Category:    Category(strings.ToLower(string(category))),
		DueDate:     dueDate,
		Priority:    Priority(strings.ToLower(string(priority))),
		Status:      Status(strings.ToLower(string(status))),
	}
}

// IsNotDone reports whether the task is in the initial state. Legacy labels count.
func (t Task) IsNotDone() bool {
	s, ok := ParseStatus(string(t.Status))
	return ok && s == StatusNotDone
}

// Row returns the task as display cells in column order.
func (t Task) Row() []string {
	return []string{
		fmt.Sprintf("%d", t.ID),
		t.Title,
		t.Description,
		string(t.Category),
		t.DueDate,
		string(t.Priority),
		string(t.Status),
	}
}

// Header holds the column titles matching Row.
var Header = []string{"ID", "Title", "Description", "Category", "Due date", "Priority", "Status"}

// Map keys of a persisted task record.
const (
	KeyID          = "id"
	KeyLegacyID    = "task_id"
	KeyTitle       = "title"
	KeyDescription = "description"
	KeyCategory    = "category"
	KeyDueDate     = "due_date"
	KeyPriority    = "priority"
	KeyStatus      = "status"
)

var (
	ErrMissingField = errors.New("missing required field")
	ErrFieldType    = errors.New("unexpected field type")
)

// ToMap returns the task as a plain record.
func (t Task) ToMap() map[string]any {
	return map[string]any{
		KeyID:          t.ID,
		KeyTitle:       t.Title,
		KeyDescription: t.Description,
		KeyCategory:    string(t.Category),
		KeyDueDate:     t.DueDate,
		KeyPriority:    string(t.Priority),
		KeyStatus:      string(t.Status),
	}
}

// FromMap materializes a task from a plain record, as produced by ToMap or
// by decoding JSON into map[string]any. The legacy "task_id" key is accepted
// in place of "id".
func FromMap(m map[string]any) (Task, error) {
	rawID, ok := m[KeyID]
	if !ok {
		rawID, ok = m[KeyLegacyID]
	}
	if !ok {
		return Task{}, fmt.Errorf("%w: %s", ErrMissingField, KeyID)
	}
	id, err := intValue(rawID)
	if err != nil {
		return Task{}, fmt.Errorf("%s: %w", KeyID, err)
	}

	var text [6]string
	for i, key := range []string{KeyTitle, KeyDescription, KeyCategory, KeyDueDate, KeyPriority, KeyStatus} {
		raw, ok := m[key]
		if !ok {
			return Task{}, fmt.Errorf("%w: %s", ErrMissingField, key)
		}
		s, ok := raw.(string)
		if !ok {
			return Task{}, fmt.Errorf("%s: %w: %T", key, ErrFieldType, raw)
		}
		text[i] = s
	}

	return NewTask(id, text[0], text[1], Category(text[2]), text[3], Priority(text[4]), Status(text[5])), nil
}

func intValue(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("%w: non-integer %v", ErrFieldType, n)
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("%w: %T", ErrFieldType, v)
	}
}
