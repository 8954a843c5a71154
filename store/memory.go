package store

import "tasks-cli/model"

// Memory is an in-process Backend, used where no file should be touched.
type Memory struct {
	tasks []model.Task

	// SaveErr, when set, is returned by every Save.
	SaveErr error
	// Saves counts successful Save calls.
	Saves int
}

// NewMemory returns a backend preloaded with tasks.
func NewMemory(tasks ...model.Task) *Memory {
	return &Memory{tasks: copyTasks(tasks)}
}

func (m *Memory) Load() ([]model.Task, error) {
	return copyTasks(m.tasks), nil
}

func (m *Memory) Save(tasks []model.Task) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.tasks = copyTasks(tasks)
	m.Saves++
	return nil
}

// Tasks returns what was last saved.
func (m *Memory) Tasks() []model.Task {
	return copyTasks(m.tasks)
}

func copyTasks(tasks []model.Task) []model.Task {
	out := make([]model.Task, len(tasks))
	copy(out, tasks)
	return out
}
