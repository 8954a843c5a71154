// Package api exposes the task list over a small read-only HTTP interface.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"

	"tasks-cli/app"
	"tasks-cli/logging"
	"tasks-cli/model"
)

// Reader is the query side of app.Service.
type Reader interface {
	GetTask(id int) (model.Task, error)
	TasksByCategory(category string) ([]model.Task, error)
	FilteredTasks(f app.Filter) []model.Task
}

// Handler serves read-only task routes. Access to the reader is serialized.
type Handler struct {
	mu     sync.Mutex
	reader Reader
	logger *log.Logger
}

func NewHandler(reader Reader, logger *log.Logger) *Handler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Handler{reader: reader, logger: logger}
}

// Router registers the routes on a new gorilla/mux router.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/tasks", h.listTasks).Methods(http.MethodGet)
	r.HandleFunc("/tasks/{taskID}", h.getTask).Methods(http.MethodGet)
	r.Use(h.logRequests)
	return r
}

func (h *Handler) listTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var status model.Status
	if raw := q.Get("status"); raw != "" {
		st, ok := model.ParseStatus(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid status")
			return
		}
		status = st
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	tasks := h.reader.FilteredTasks(app.Filter{Status: status, Query: q.Get("q")})
	if category := q.Get("category"); category != "" {
		byCategory, err := h.reader.TasksByCategory(category)
		if err != nil && !errors.Is(err, app.ErrNothingFound) {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		tasks = intersect(byCategory, tasks)
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *Handler) getTask(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["taskID"])
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "task id must be a positive integer")
		return
	}

	h.mu.Lock()
	task, err := h.reader.GetTask(id)
	h.mu.Unlock()

	if errors.Is(err, app.ErrNotFound) {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		h.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "took", time.Since(start))
	})
}

// intersect keeps the tasks of a that also appear in b, in a's order.
func intersect(a, b []model.Task) []model.Task {
	ids := make(map[int]struct{}, len(b))
	for _, t := range b {
		ids[t.ID] = struct{}{}
	}
	out := make([]model.Task, 0, len(a))
	for _, t := range a {
		if _, ok := ids[t.ID]; ok {
			out = append(out, t)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// Serve listens on addr until ctx is canceled, then shuts down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *log.Logger) error {
	if logger == nil {
		logger = logging.Discard()
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving tasks", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
