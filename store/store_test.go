package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"tasks-cli/model"
)

func sampleTasks(label string) []model.Task {
	return []model.Task{
		model.NewTask(1, "task-"+label, "first", model.CategoryWork, "2026-02-19", model.PriorityHigh, model.StatusNotDone),
		model.NewTask(2, "other-"+label, "", model.CategoryHome, "2026-02-20", model.PriorityLow, model.StatusDone),
	}
}

func TestLoadMissingFileReturnsEmptyList(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.json")

	tasks, err := Load(path)
	if err != nil {
		t.Fatalf("load missing file failed: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("expected no tasks for missing file, got %+v", tasks)
	}
}

func TestSaveThenLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.json")
	want := sampleTasks("a")

	if err := Save(path, want); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("save/load mismatch\nwant=%+v\ngot=%+v", want, got)
	}
}

func TestSaveEmptyWritesEmptyArray(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.json")

	if err := Save(path, nil); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(data) != "[]\n" {
		t.Fatalf("expected empty JSON array, got %q", data)
	}
}

func TestLoadLegacyTaskIDRecords(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "legacy.json")
	legacy := `[
  {
    "task_id": 1,
    "title": "Заголовок",
    "description": "описание",
    "category": "личное",
    "due_date": "2020-11-21",
    "priority": "низкий",
    "status": "не выполнено"
  }
]`
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatalf("write legacy file failed: %v", err)
	}

	tasks, err := Load(path)
	if err != nil {
		t.Fatalf("load legacy file failed: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != 1 || tasks[0].Title != "заголовок" {
		t.Fatalf("unexpected legacy tasks: %+v", tasks)
	}
}

func TestLoadRejectsCorruptContent(t *testing.T) {
	cases := map[string]string{
		"invalid json":      "{invalid",
		"not a list":        `{"tasks": []}`,
		"missing field":     `[{"id": 1, "title": "a", "description": "", "category": "home", "priority": "low", "status": "done"}]`,
		"missing id":        `[{"title": "a", "description": "", "category": "home", "due_date": "2024-01-01", "priority": "low", "status": "done"}]`,
		"wrong id type":     `[{"id": "1", "title": "a", "description": "", "category": "home", "due_date": "2024-01-01", "priority": "low", "status": "done"}]`,
		"record not object": `[1]`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "tasks.json")
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatalf("write failed: %v", err)
			}
			if _, err := Load(path); !errors.Is(err, ErrCorruptData) {
				t.Fatalf("expected ErrCorruptData, got %v", err)
			}
		})
	}
}

func TestSchemaErrorsNameTheRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	content := `[{"id": 1, "title": "a", "description": "", "category": "home", "priority": "low", "status": "done"}]`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "[0]") {
		t.Fatalf("expected error to point at record [0], got %v", err)
	}
}

func TestAutosaveCreatesBackupAndPersistsLatestTasks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.json")
	initial := sampleTasks("old")
	updated := sampleTasks("new")

	if err := Save(path, initial); err != nil {
		t.Fatalf("initial save failed: %v", err)
	}
	if err := Autosave(path, updated, DefaultBackups); err != nil {
		t.Fatalf("autosave failed: %v", err)
	}

	gotLatest, err := Load(path)
	if err != nil {
		t.Fatalf("load latest failed: %v", err)
	}
	if !reflect.DeepEqual(updated, gotLatest) {
		t.Fatalf("latest tasks mismatch\nwant=%+v\ngot=%+v", updated, gotLatest)
	}

	gotBackup, err := Load(path + ".bak")
	if err != nil {
		t.Fatalf("load backup failed: %v", err)
	}
	if !reflect.DeepEqual(initial, gotBackup) {
		t.Fatalf("backup mismatch\nwant=%+v\ngot=%+v", initial, gotBackup)
	}
}

func TestAutosaveWithoutBackups(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.json")

	if err := Save(path, sampleTasks("seed")); err != nil {
		t.Fatalf("seed save failed: %v", err)
	}
	if err := Autosave(path, sampleTasks("next"), 0); err != nil {
		t.Fatalf("autosave failed: %v", err)
	}
	if _, err := os.Stat(path + ".bak"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected no backup when backups are disabled, got %v", err)
	}
}

func TestAutosaveRotatingBackupsArePruned(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.json")

	if err := Save(path, sampleTasks("seed")); err != nil {
		t.Fatalf("seed save failed: %v", err)
	}

	for i := 0; i < 15; i++ {
		if err := Autosave(path, sampleTasks(fmt.Sprintf("%d", i)), DefaultBackups); err != nil {
			t.Fatalf("autosave %d failed: %v", i, err)
		}
		time.Sleep(1 * time.Millisecond)
	}

	files, err := filepath.Glob(path + ".bak.*")
	if err != nil {
		t.Fatalf("glob rotating backups failed: %v", err)
	}
	if len(files) == 0 {
		t.Fatalf("expected rotating backups, found none")
	}
	if len(files) > DefaultBackups {
		t.Fatalf("expected at most %d rotating backups, got %d", DefaultBackups, len(files))
	}
}

func TestAutosaveFailsWithIOErrorOnUnwritableDir(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker failed: %v", err)
	}
	path := filepath.Join(blocker, "tasks.json")

	if err := Autosave(path, sampleTasks("x"), 0); !errors.Is(err, ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
}

func TestLoadWithRecoveryRestoresFromBackup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.json")
	v1 := sampleTasks("v1")
	v2 := sampleTasks("v2")
	v3 := sampleTasks("v3")

	if err := Save(path, v1); err != nil {
		t.Fatalf("save v1 failed: %v", err)
	}
	if err := Autosave(path, v2, DefaultBackups); err != nil {
		t.Fatalf("autosave v2 failed: %v", err)
	}
	if err := Autosave(path, v3, DefaultBackups); err != nil {
		t.Fatalf("autosave v3 failed: %v", err)
	}

	if err := os.WriteFile(path, []byte("{invalid"), 0o644); err != nil {
		t.Fatalf("corrupt write failed: %v", err)
	}

	recovered, status, err := LoadWithRecovery(path)
	if err != nil {
		t.Fatalf("load with recovery failed: %v", err)
	}
	if status == "" {
		t.Fatalf("expected recovery status message, got empty")
	}
	if !reflect.DeepEqual(v2, recovered) {
		t.Fatalf("expected recovery from latest backup (v2), got %+v", recovered)
	}

	persisted, err := Load(path)
	if err != nil {
		t.Fatalf("load persisted recovered tasks failed: %v", err)
	}
	if !reflect.DeepEqual(v2, persisted) {
		t.Fatalf("expected persisted recovered tasks to match v2")
	}

	corruptFiles, err := filepath.Glob(filepath.Join(dir, "tasks.corrupt-*.json"))
	if err != nil {
		t.Fatalf("glob corrupt files failed: %v", err)
	}
	if len(corruptFiles) != 1 {
		t.Fatalf("expected exactly one moved corrupt file, got %d", len(corruptFiles))
	}
}

func TestLoadWithRecoveryWithoutBackupStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.json")
	if err := os.WriteFile(path, []byte("{bad json"), 0o644); err != nil {
		t.Fatalf("write corrupt file failed: %v", err)
	}

	recovered, status, err := LoadWithRecovery(path)
	if err != nil {
		t.Fatalf("load with recovery failed: %v", err)
	}
	if status == "" {
		t.Fatalf("expected recovery status message")
	}
	if len(recovered) != 0 {
		t.Fatalf("expected empty list when no valid backup, got %+v", recovered)
	}

	persisted, err := Load(path)
	if err != nil {
		t.Fatalf("load persisted empty list failed: %v", err)
	}
	if len(persisted) != 0 {
		t.Fatalf("expected persisted empty list after recovery")
	}
}

func TestJSONFileCreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tasks.json")
	backend := NewJSONFile(path, JSONFileOptions{})

	tasks, err := backend.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("expected empty list, got %+v", tasks)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected file to be created: %v", err)
	}
	if string(data) != "[]\n" {
		t.Fatalf("expected created file to hold an empty list, got %q", data)
	}
}

func TestJSONFileCorruptIsFatalUnlessRecoveryEnabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	if _, err := NewJSONFile(path, JSONFileOptions{}).Load(); !errors.Is(err, ErrCorruptData) {
		t.Fatalf("expected ErrCorruptData without recovery, got %v", err)
	}

	backend := NewJSONFile(path, JSONFileOptions{Recover: true})
	tasks, err := backend.Load()
	if err != nil {
		t.Fatalf("load with recovery failed: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("expected empty list after recovery, got %+v", tasks)
	}
	if backend.RecoveryStatus() == "" {
		t.Fatalf("expected a recovery status message")
	}
}

func TestJSONFileSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	backend := NewJSONFile(path, JSONFileOptions{Backups: 2})
	want := sampleTasks("file")

	if err := backend.Save(want); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	got, err := backend.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("save/load mismatch\nwant=%+v\ngot=%+v", want, got)
	}
}

func TestMemoryCopiesOnSaveAndLoad(t *testing.T) {
	mem := NewMemory()
	tasks := sampleTasks("mem")
	if err := mem.Save(tasks); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	tasks[0].Title = "mutated"

	got, err := mem.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got[0].Title == "mutated" {
		t.Fatalf("expected memory backend to keep its own copy")
	}
	if mem.Saves != 1 {
		t.Fatalf("expected 1 save, got %d", mem.Saves)
	}
}
