package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gofrs/flock"

	"tasks-cli/logging"
	"tasks-cli/model"
)

// DefaultBackups is the number of rotating backups kept by Autosave.
const DefaultBackups = 10

var (
	ErrCorruptData = errors.New("corrupt task data")
	ErrIO          = errors.New("task storage i/o failed")

	errNoValidBackup = errors.New("no valid backup found")
)

// Backend loads and persists the whole task sequence.
type Backend interface {
	Load() ([]model.Task, error)
	Save(tasks []model.Task) error
}

// JSONFile is the default Backend: a single JSON array rewritten on every save.
type JSONFile struct {
	path           string
	backups        int
	recoverCorrupt bool
	logger         *log.Logger
	status         string
}

// JSONFileOptions configures a JSONFile backend.
type JSONFileOptions struct {
	// Backups is how many rotating backups to keep; zero disables backups.
	Backups int
	// Recover replaces a corrupt file with the newest valid backup, or an
	// empty list, instead of failing.
	Recover bool
	Logger  *log.Logger
}

// NewJSONFile returns a backend for the file at path.
func NewJSONFile(path string, opts JSONFileOptions) *JSONFile {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &JSONFile{
		path:           path,
		backups:        opts.Backups,
		recoverCorrupt: opts.Recover,
		logger:         logger,
	}
}

// Path returns the backing file path.
func (f *JSONFile) Path() string { return f.path }

// RecoveryStatus describes what recovery did during the last Load, if anything.
func (f *JSONFile) RecoveryStatus() string { return f.status }

// Load reads the file. A missing file is created containing an empty list.
func (f *JSONFile) Load() ([]model.Task, error) {
	f.status = ""
	if _, err := os.Stat(f.path); errors.Is(err, os.ErrNotExist) {
		f.logger.Debug("creating task file", "path", f.path)
		if err := Save(f.path, []model.Task{}); err != nil {
			return nil, err
		}
		return []model.Task{}, nil
	}

	if !f.recoverCorrupt {
		tasks, err := Load(f.path)
		if err != nil {
			return nil, err
		}
		f.logger.Debug("loaded tasks", "path", f.path, "count", len(tasks))
		return tasks, nil
	}

	tasks, status, err := LoadWithRecovery(f.path)
	if err != nil {
		return nil, err
	}
	if status != "" {
		f.logger.Warn(status, "path", f.path)
	}
	f.status = status
	return tasks, nil
}

// Save rewrites the file with tasks.
func (f *JSONFile) Save(tasks []model.Task) error {
	if err := Autosave(f.path, tasks, f.backups); err != nil {
		return err
	}
	f.logger.Debug("saved tasks", "path", f.path, "count", len(tasks))
	return nil
}

// Load reads tasks from a JSON file.
// If file does not exist, it returns an empty list.
func Load(path string) ([]model.Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []model.Task{}, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	return decodeTasks(data)
}

// LoadWithRecovery loads tasks and tries automatic recovery when the JSON is corrupted.
// It returns an optional status message to be shown to the user.
func LoadWithRecovery(path string) ([]model.Task, string, error) {
	tasks, err := Load(path)
	if err == nil {
		return tasks, "", nil
	}
	if !errors.Is(err, ErrCorruptData) {
		return nil, "", err
	}

	corruptPath, moveErr := moveCorruptFile(path)
	if moveErr != nil {
		return nil, "", fmt.Errorf("%w: move corrupt file: %w", ErrIO, moveErr)
	}

	recovered, backupPath, backupErr := loadLatestValidBackup(path)
	if backupErr == nil {
		if err := Save(path, recovered); err != nil {
			return nil, "", fmt.Errorf("restore backup: %w", err)
		}
		msg := fmt.Sprintf("corrupt task file recovered from %s", filepath.Base(backupPath))
		if corruptPath != "" {
			msg += fmt.Sprintf(" (bad file moved to %s)", filepath.Base(corruptPath))
		}
		return recovered, msg, nil
	}
	if !errors.Is(backupErr, errNoValidBackup) {
		return nil, "", fmt.Errorf("%w: inspect backups: %w", ErrIO, backupErr)
	}

	empty := []model.Task{}
	if err := Save(path, empty); err != nil {
		return nil, "", fmt.Errorf("reset after corruption: %w", err)
	}
	msg := "corrupt task file with no valid backup; started with an empty list"
	if corruptPath != "" {
		msg += fmt.Sprintf(" (bad file moved to %s)", filepath.Base(corruptPath))
	}
	return empty, msg, nil
}

// Save writes tasks to path as JSON.
func Save(path string, tasks []model.Task) error {
	if err := writeJSON(path, tasks); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	return nil
}

// Autosave writes safely using temporary file + atomic rename under an
// advisory lock. When keep > 0 it also stores a latest backup (.bak) and up
// to keep timestamped backups.
func Autosave(path string, tasks []model.Task, keep int) error {
	if err := autosave(path, tasks, keep); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	return nil
}

func autosave(path string, tasks []model.Task, keep int) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", path, err)
	}
	defer func() {
		_ = lock.Unlock()
	}()

	if keep > 0 {
		if err := backup(path, keep); err != nil {
			return err
		}
	}

	data, err := encodeTasks(tasks)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

func decodeTasks(data []byte) ([]model.Task, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptData, err)
	}
	if err := validateDocument(doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptData, err)
	}

	records, ok := doc.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected a list of tasks", ErrCorruptData)
	}
	tasks := make([]model.Task, 0, len(records))
	for i, rec := range records {
		m, ok := rec.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: record %d is not an object", ErrCorruptData, i)
		}
		task, err := model.FromMap(m)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %w", ErrCorruptData, i, err)
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func encodeTasks(tasks []model.Task) ([]byte, error) {
	if tasks == nil {
		tasks = []model.Task{}
	}
	data, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func writeJSON(path string, tasks []model.Task) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	data, err := encodeTasks(tasks)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}

func backup(path string, keep int) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	if err := os.WriteFile(path+".bak", data, 0o644); err != nil {
		return err
	}

	timestamp := time.Now().UTC().Format("20060102-150405.000000000")
	rotatingPath := fmt.Sprintf("%s.bak.%s", path, timestamp)
	if err := os.WriteFile(rotatingPath, data, 0o644); err != nil {
		return err
	}

	return pruneRotatingBackups(path, keep)
}

func pruneRotatingBackups(path string, keep int) error {
	files, err := filepath.Glob(path + ".bak.*")
	if err != nil {
		return err
	}
	if len(files) <= keep {
		return nil
	}

	sort.Strings(files)
	toDelete := files[:len(files)-keep]
	for _, old := range toDelete {
		if err := os.Remove(old); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

func loadLatestValidBackup(path string) ([]model.Task, string, error) {
	candidates := make([]string, 0, 12)
	latest := path + ".bak"
	if _, err := os.Stat(latest); err == nil {
		candidates = append(candidates, latest)
	}
	rotating, err := filepath.Glob(path + ".bak.*")
	if err != nil {
		return nil, "", err
	}
	candidates = append(candidates, rotating...)
	if len(candidates) == 0 {
		return nil, "", errNoValidBackup
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		iInfo, iErr := os.Stat(candidates[i])
		jInfo, jErr := os.Stat(candidates[j])
		if iErr != nil || jErr != nil {
			return candidates[i] > candidates[j]
		}
		return iInfo.ModTime().After(jInfo.ModTime())
	})

	for _, candidate := range candidates {
		data, err := os.ReadFile(candidate)
		if err != nil {
			continue
		}
		tasks, err := decodeTasks(data)
		if err != nil {
			continue
		}
		return tasks, candidate, nil
	}

	return nil, "", errNoValidBackup
}

func moveCorruptFile(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)
	timestamp := time.Now().UTC().Format("20060102-150405")
	corruptName := fmt.Sprintf("%s.corrupt-%s%s", name, timestamp, ext)
	corruptPath := filepath.Join(filepath.Dir(path), corruptName)
	if err := os.Rename(path, corruptPath); err != nil {
		return "", err
	}
	return corruptPath, nil
}
