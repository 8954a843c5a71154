package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"tasks-cli/logging"
	"tasks-cli/model"
	"tasks-cli/store"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")

	ErrEmptyTitle       = fmt.Errorf("%w: title must not be empty", ErrValidation)
	ErrInvalidDueDate   = fmt.Errorf("%w: due date must be YYYY-MM-DD", ErrValidation)
	ErrInvalidPriority  = fmt.Errorf("%w: invalid priority", ErrValidation)
	ErrInvalidStatus    = fmt.Errorf("%w: invalid status", ErrValidation)
	ErrInvalidCategory  = fmt.Errorf("%w: invalid category", ErrValidation)
	ErrInvalidField     = fmt.Errorf("%w: unknown field", ErrValidation)
	ErrTaskNotFound     = &notFoundError{msg: "task not found"}
	ErrNothingFound     = &notFoundError{msg: "nothing found"}
	ErrAlreadyCompleted = errors.New("task already completed")
)

// notFoundError carries its own message and matches ErrNotFound.
type notFoundError struct {
	msg string
}

func (e *notFoundError) Error() string { return e.msg }

func (e *notFoundError) Unwrap() error { return ErrNotFound }

// Service owns the ordered task list and persists it through a backend
// after every mutation.
type Service struct {
	backend store.Backend
	tasks   []model.Task
	lastID  int
	now     func() time.Time
	logger  *log.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the time source used for default due dates.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger used for mutation events.
func WithLogger(logger *log.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService hydrates a service from backend.
func NewService(backend store.Backend, opts ...Option) (*Service, error) {
	s := &Service{
		backend: backend,
		now:     time.Now,
		logger:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}

	tasks, err := backend.Load()
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	s.tasks = tasks
	for _, t := range tasks {
		if t.ID > s.lastID {
			s.lastID = t.ID
		}
	}
	s.logger.Debug("service ready", "tasks", len(tasks), "last_id", s.lastID)
	return s, nil
}

// Tasks returns all tasks in store order.
func (s *Service) Tasks() []model.Task {
	return copyTasks(s.tasks)
}

// GetTask returns a task by id.
func (s *Service) GetTask(id int) (model.Task, error) {
	idx := s.indexOf(id)
	if idx == -1 {
		return model.Task{}, fmt.Errorf("%w: id %d", ErrTaskNotFound, id)
	}
	return s.tasks[idx], nil
}

// TasksByCategory returns tasks whose category matches, ignoring case and
// treating legacy labels as their canonical category.
func (s *Service) TasksByCategory(category string) ([]model.Task, error) {
	want := model.CanonicalCategory(category)
	out := make([]model.Task, 0)
	for _, t := range s.tasks {
		if model.CanonicalCategory(string(t.Category)) == want {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: category %q", ErrNothingFound, category)
	}
	return out, nil
}

// Filter narrows FilteredTasks. Zero values match everything.
type Filter struct {
	Status model.Status
	Query  string
}

// FilteredTasks returns tasks matching the status and whose title or
// description contains the query, case-insensitively.
func (s *Service) FilteredTasks(f Filter) []model.Task {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]model.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if !matchesStatus(f.Status, t.Status) {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(t.Title), q) && !strings.Contains(strings.ToLower(t.Description), q) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// NewTask holds the inputs for AddTask. Empty optional fields take defaults.
type NewTask struct {
	Title       string
	Description string
	Category    model.Category
	DueDate     string
	Priority    model.Priority
	Status      model.Status
}

// AddTask validates the title and due date, appends the task and persists.
func (s *Service) AddTask(in NewTask) (model.Task, error) {
	if strings.TrimSpace(in.Title) == "" {
		return model.Task{}, ErrEmptyTitle
	}

	due := model.DefaultDueDate(s.now())
	if strings.TrimSpace(in.DueDate) != "" {
		parsed, err := model.ParseDueDate(in.DueDate)
		if err != nil {
			return model.Task{}, fmt.Errorf("%w: %q", ErrInvalidDueDate, in.DueDate)
		}
		due = parsed
	}

	category := in.Category
	if category == "" {
		category = model.DefaultCategory
	}
	priority := in.Priority
	if priority == "" {
		priority = model.DefaultPriority
	}
	status := in.Status
	if status == "" {
		status = model.DefaultStatus
	}

	task := model.NewTask(s.lastID+1, strings.TrimSpace(in.Title), in.Description, category, due, priority, status)

	snapshot := s.snapshot()
	s.tasks = append(s.tasks, task)
	if err := s.persist(snapshot); err != nil {
		return model.Task{}, err
	}
	s.lastID = task.ID
	s.logger.Debug("task added", "id", task.ID, "title", task.Title)
	return task, nil
}

// DeleteTask removes the first task with id and returns its title.
func (s *Service) DeleteTask(id int) (string, error) {
	idx := s.indexOf(id)
	if idx == -1 {
		return "", fmt.Errorf("%w: id %d", ErrTaskNotFound, id)
	}

	title := s.tasks[idx].Title
	snapshot := s.snapshot()
	s.tasks = append(s.tasks[:idx], s.tasks[idx+1:]...)
	if err := s.persist(snapshot); err != nil {
		return "", err
	}
	s.logger.Debug("task deleted", "id", id)
	return title, nil
}

// CompleteTask moves a not-done task to done. Tasks in any other state are
// left untouched and reported with ErrAlreadyCompleted.
func (s *Service) CompleteTask(id int) (model.Task, error) {
	idx := s.indexOf(id)
	if idx == -1 {
		return model.Task{}, fmt.Errorf("%w: id %d", ErrTaskNotFound, id)
	}
	if !s.tasks[idx].IsNotDone() {
		return s.tasks[idx], ErrAlreadyCompleted
	}

	snapshot := s.snapshot()
	s.tasks[idx].Status = model.StatusDone
	if err := s.persist(snapshot); err != nil {
		return model.Task{}, err
	}
	s.logger.Debug("task completed", "id", id)
	return s.tasks[idx], nil
}

// EditField changes one field of a task. On a validation error the task is
// left unmodified and nothing is persisted.
func (s *Service) EditField(id int, field Field, value string) (model.Task, error) {
	return s.edit(id, func(t model.Task) (model.Task, error) {
		return ApplyField(t, field, value)
	})
}

// EditTask replaces every editable field at once, or none of them.
func (s *Service) EditTask(id int, upd TaskUpdate) (model.Task, error) {
	return s.edit(id, func(t model.Task) (model.Task, error) {
		return ApplyUpdate(t, upd)
	})
}

func (s *Service) edit(id int, apply func(model.Task) (model.Task, error)) (model.Task, error) {
	idx := s.indexOf(id)
	if idx == -1 {
		return model.Task{}, fmt.Errorf("%w: id %d", ErrTaskNotFound, id)
	}

	updated, err := apply(s.tasks[idx])
	if err != nil {
		return model.Task{}, err
	}

	snapshot := s.snapshot()
	s.tasks[idx] = updated
	if err := s.persist(snapshot); err != nil {
		return model.Task{}, err
	}
	s.logger.Debug("task edited", "id", id)
	return updated, nil
}

// persist saves the current list, restoring snapshot if the backend fails.
func (s *Service) persist(snapshot []model.Task) error {
	if err := s.backend.Save(s.tasks); err != nil {
		s.tasks = snapshot
		s.logger.Error("save failed", "err", err)
		return err
	}
	return nil
}

func (s *Service) snapshot() []model.Task {
	return copyTasks(s.tasks)
}

func (s *Service) indexOf(id int) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func matchesStatus(want, got model.Status) bool {
	if want == "" {
		return true
	}
	if parsed, ok := model.ParseStatus(string(got)); ok {
		got = parsed
	}
	return want == got
}

func copyTasks(tasks []model.Task) []model.Task {
	out := make([]model.Task, len(tasks))
	copy(out, tasks)
	return out
}
