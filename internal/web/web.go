package web

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/Joseda-hg/lazytodo/internal/db"
	"github.com/Joseda-hg/lazytodo/internal/logger"
	"github.com/Joseda-hg/lazytodo/internal/metrics"
	"github.com/Joseda-hg/lazytodo/internal/middleware"
	"github.com/Joseda-hg/lazytodo/internal/model"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.tmpl"))

const maxFormBytes = 16 << 10

// TaskStore is the persistence the handlers need. *db.Store implements it.
type TaskStore interface {
	ListTasks(ctx context.Context) ([]model.Task, error)
	GetTask(ctx context.Context, taskID int64) (model.Task, error)
	CreateTask(ctx context.Context, title string) (model.Task, error)
	ToggleTask(ctx context.Context, taskID int64) (model.Task, error)
	UpdateTaskTitle(ctx context.Context, taskID int64, title string) (model.Task, error)
	DeleteTask(ctx context.Context, taskID int64) error
	Ping(ctx context.Context) error
}

type Server struct {
	store   TaskStore
	logger  logrus.FieldLogger
	metrics *metrics.Metrics
}

func NewServer(store TaskStore, log logrus.FieldLogger, m *metrics.Metrics) *Server {
	if m == nil {
		m = metrics.New()
	}
	return &Server{store: store, logger: log, metrics: m}
}

func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.Use(middleware.Metrics(s.metrics))

	router.HandleFunc("/", s.indexHandler).Methods(http.MethodGet)
	router.HandleFunc("/add", s.addHandler).Methods(http.MethodPost)
	router.HandleFunc("/toggle/{id:[0-9]+}", s.toggleHandler).Methods(http.MethodGet)
	router.HandleFunc("/delete/{id:[0-9]+}", s.deleteHandler).Methods(http.MethodGet)
	router.HandleFunc("/edit/{id:[0-9]+}", s.editHandler).Methods(http.MethodPost)
	router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/healthz", s.healthHandler).Methods(http.MethodGet)

	var handler http.Handler = router
	handler = middleware.SecurityHeaders(handler)
	handler = middleware.Logging(s.logger)(handler)
	handler = middleware.RequestID(handler)
	return handler
}

type indexData struct {
	Tasks          []model.Task
	Summary        model.Summary
	MaxTitleLength int
}

func (s *Server) indexHandler(w http.ResponseWriter, r *http.Request) {
	log := s.requestLogger(r, "index")

	tasks, err := s.store.ListTasks(r.Context())
	if err != nil {
		log.WithError(err).Error("failed to list tasks")
		s.metrics.ObserveTaskOperation("list", metrics.ResultError)
		writeError(w, http.StatusInternalServerError)
		return
	}
	s.metrics.ObserveTaskOperation("list", metrics.ResultOK)

	data := indexData{
		Tasks:          tasks,
		Summary:        model.Summarize(tasks),
		MaxTitleLength: db.MaxTitleLength,
	}

	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, data); err != nil {
		log.WithError(err).Error("failed to render index")
		writeError(w, http.StatusInternalServerError)
		return
	}

	log.WithField("count", len(tasks)).Debug("tasks listed")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (s *Server) addHandler(w http.ResponseWriter, r *http.Request) {
	log := s.requestLogger(r, "add")

	form, ok := s.parseTaskForm(w, r, log)
	if !ok {
		return
	}

	title, err := form.validTitle()
	if err != nil {
		s.finishWrite(w, r, log, "create", err)
		return
	}

	task, err := s.store.CreateTask(r.Context(), title)
	if err == nil {
		log = log.WithFields(logrus.Fields{"task_id": task.ID, "task": task.String()})
	}
	s.finishWrite(w, r, log, "create", err)
}

func (s *Server) toggleHandler(w http.ResponseWriter, r *http.Request) {
	log := s.requestLogger(r, "toggle")

	taskID, ok := taskIDFromRequest(r)
	if !ok {
		s.finishWrite(w, r, log, "toggle", db.ErrNotFound)
		return
	}
	log = log.WithField("task_id", taskID)

	task, err := s.store.ToggleTask(r.Context(), taskID)
	if err == nil {
		log = log.WithFields(logrus.Fields{"task": task.String(), "completed": task.Completed})
	}
	s.finishWrite(w, r, log, "toggle", err)
}

func (s *Server) deleteHandler(w http.ResponseWriter, r *http.Request) {
	log := s.requestLogger(r, "delete")

	taskID, ok := taskIDFromRequest(r)
	if !ok {
		s.finishWrite(w, r, log, "delete", db.ErrNotFound)
		return
	}
	log = log.WithField("task_id", taskID)

	task, err := s.store.GetTask(r.Context(), taskID)
	if err != nil {
		s.finishWrite(w, r, log, "delete", err)
		return
	}
	log = log.WithField("task", task.String())

	s.finishWrite(w, r, log, "delete", s.store.DeleteTask(r.Context(), taskID))
}

func (s *Server) editHandler(w http.ResponseWriter, r *http.Request) {
	log := s.requestLogger(r, "edit")

	taskID, ok := taskIDFromRequest(r)
	if !ok {
		s.finishWrite(w, r, log, "update", db.ErrNotFound)
		return
	}
	log = log.WithField("task_id", taskID)

	form, ok := s.parseTaskForm(w, r, log)
	if !ok {
		return
	}

	title, err := form.validTitle()
	if err != nil {
		s.finishWrite(w, r, log, "update", err)
		return
	}

	_, err = s.store.UpdateTaskTitle(r.Context(), taskID, title)
	s.finishWrite(w, r, log, "update", err)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.requestLogger(r, "health").WithError(err).Error("store unavailable")
		writeError(w, http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// finishWrite applies redirect-after-write. Invalid titles and unknown ids
// are no-ops that still land back on the list; only storage failures surface.
func (s *Server) finishWrite(w http.ResponseWriter, r *http.Request, log logrus.FieldLogger, operation string, err error) {
	switch {
	case err == nil:
		s.metrics.ObserveTaskOperation(operation, metrics.ResultOK)
		log.Info("task " + operation + " succeeded")
	case errors.Is(err, db.ErrInvalidTitle):
		s.metrics.ObserveTaskOperation(operation, metrics.ResultInvalid)
		log.WithError(err).Warn("invalid title, nothing changed")
	case errors.Is(err, db.ErrNotFound):
		s.metrics.ObserveTaskOperation(operation, metrics.ResultNotFound)
		log.Warn("task not found, nothing changed")
	default:
		s.metrics.ObserveTaskOperation(operation, metrics.ResultError)
		log.WithError(err).Error("task " + operation + " failed")
		writeError(w, http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) requestLogger(r *http.Request, handler string) logrus.FieldLogger {
	return logger.WithRequestID(s.logger, middleware.GetRequestID(r.Context())).WithFields(logrus.Fields{
		"component": "http_handler",
		"handler":   handler,
	})
}

// taskForm is the typed form body for add and edit.
type taskForm struct {
	Title string
}

func (s *Server) parseTaskForm(w http.ResponseWriter, r *http.Request, log logrus.FieldLogger) (taskForm, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		log.WithError(err).Warn("invalid form body")
		writeError(w, http.StatusBadRequest)
		return taskForm{}, false
	}
	return taskForm{Title: r.PostForm.Get("title")}, true
}

func (f taskForm) validTitle() (string, error) {
	return db.NormalizeTitle(f.Title)
}

func taskIDFromRequest(r *http.Request) (int64, bool) {
	taskID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || taskID <= 0 {
		return 0, false
	}
	return taskID, true
}

func writeError(w http.ResponseWriter, status int) {
	http.Error(w, http.StatusText(status), status)
}
