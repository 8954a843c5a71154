package app

import (
	"fmt"
	"strings"

	"tasks-cli/model"
)

// Field names an editable task attribute.
type Field string

const (
	FieldTitle       Field = "title"
	FieldDescription Field = "description"
	FieldCategory    Field = "category"
	FieldDueDate     Field = "due_date"
	FieldPriority    Field = "priority"
	FieldStatus      Field = "status"
)

// Fields lists the editable fields in prompt order.
func Fields() []Field {
	return []Field{FieldTitle, FieldDescription, FieldCategory, FieldDueDate, FieldPriority, FieldStatus}
}

var fieldAliases = map[string]Field{
	"title":       FieldTitle,
	"description": FieldDescription,
	"desc":        FieldDescription,
	"category":    FieldCategory,
	"due_date":    FieldDueDate,
	"due-date":    FieldDueDate,
	"due":         FieldDueDate,
	"deadline":    FieldDueDate,
	"dl":          FieldDueDate,
	"priority":    FieldPriority,
	"status":      FieldStatus,
}

// ParseField resolves a field name case-insensitively.
func ParseField(s string) (Field, error) {
	f, ok := fieldAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidField, s)
	}
	return f, nil
}

// ApplyField returns task with one field replaced. The input task is never
// modified; on error the zero Task is returned.
func ApplyField(task model.Task, field Field, value string) (model.Task, error) {
	switch field {
	case FieldTitle:
		if strings.TrimSpace(value) == "" {
			return model.Task{}, ErrEmptyTitle
		}
		task.Title = strings.ToLower(strings.TrimSpace(value))
	case FieldDescription:
		task.Description = strings.ToLower(value)
	case FieldCategory:
		task.Category = model.Category(strings.ToLower(strings.TrimSpace(value)))
	case FieldDueDate:
		due, err := model.ParseDueDate(value)
		if err != nil {
			return model.Task{}, fmt.Errorf("%w: %q", ErrInvalidDueDate, value)
		}
		task.DueDate = due
	case FieldPriority:
		p, ok := model.ParsePriority(value)
		if !ok {
			return model.Task{}, fmt.Errorf("%w: %q", ErrInvalidPriority, value)
		}
		task.Priority = p
	case FieldStatus:
		st, ok := model.ParseStatus(value)
		if !ok {
			return model.Task{}, fmt.Errorf("%w: %q", ErrInvalidStatus, value)
		}
		task.Status = st
	default:
		return model.Task{}, fmt.Errorf("%w: %q", ErrInvalidField, field)
	}
	return task, nil
}

// TaskUpdate carries new values for every editable field.
type TaskUpdate struct {
	Title       string
	Description string
	Category    string
	DueDate     string
	Priority    string
	Status      string
}

// Value returns the update's value for field.
func (u TaskUpdate) Value(field Field) string {
	switch field {
	case FieldTitle:
		return u.Title
	case FieldDescription:
		return u.Description
	case FieldCategory:
		return u.Category
	case FieldDueDate:
		return u.DueDate
	case FieldPriority:
		return u.Priority
	case FieldStatus:
		return u.Status
	}
	return ""
}

// Set stores value for field.
func (u *TaskUpdate) Set(field Field, value string) {
	switch field {
	case FieldTitle:
		u.Title = value
	case FieldDescription:
		u.Description = value
	case FieldCategory:
		u.Category = value
	case FieldDueDate:
		u.DueDate = value
	case FieldPriority:
		u.Priority = value
	case FieldStatus:
		u.Status = value
	}
}

// ApplyUpdate applies every field of upd, or none of them.
func ApplyUpdate(task model.Task, upd TaskUpdate) (model.Task, error) {
	out := task
	for _, f := range Fields() {
		next, err := ApplyField(out, f, upd.Value(f))
		if err != nil {
			return model.Task{}, fmt.Errorf("%s: %w", f, err)
		}
		out = next
	}
	return out, nil
}
