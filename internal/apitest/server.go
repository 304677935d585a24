// Package apitest runs an in-memory taskflow backend for tests. It speaks
// the same REST contract as the real service under /api.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/marcus/taskflow/internal/models"
)

// Request records one request the server received.
type Request struct {
	Method string
	Path   string
	Query  string
	Auth   string
}

type account struct {
	user     models.User
	password string
}

type failure struct {
	status  int
	message string
	raw     string
}

// Server is a fake backend. The zero value is not usable; call NewServer.
type Server struct {
	srv *httptest.Server

	mu       sync.Mutex
	nextUser int
	accounts map[string]*account // by email
	tokens   map[string]string   // token -> email
	tasks    map[string][]models.Task
	failures map[string]failure // "METHOD /path" -> forced response
	requests []Request
	// TokenFunc, when set, chooses the token issued at login/registration.
	TokenFunc func(email string) string
}

// NewServer starts a fake backend and stops it when the test ends.
func NewServer(t testing.TB) *Server {
	s := &Server{
		accounts: map[string]*account{},
		tokens:   map[string]string{},
		tasks:    map[string][]models.Task{},
		failures: map[string]failure{},
	}
	s.srv = httptest.NewServer(s.router())
	t.Cleanup(s.srv.Close)
	return s
}

// URL returns the API base URL (ending in /api).
func (s *Server) URL() string { return s.srv.URL + "/api" }

// Close stops the server early, making it unreachable.
func (s *Server) Close() { s.srv.Close() }

// AddUser registers an account directly and returns the user.
func (s *Server) AddUser(name, email, password string) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(name, email, password)
}

func (s *Server) addUserLocked(name, email, password string) models.User {
	s.nextUser++
	u := models.User{"id": float64(s.nextUser), "name": name, "email": email}
	s.accounts[email] = &account{user: u, password: password}
	return u.Clone()
}

// IssueToken returns a valid token for email without a login round trip.
func (s *Server) IssueToken(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueLocked(email)
}

func (s *Server) issueLocked(email string) string {
	token := "tok-" + uuid.NewString()
	if s.TokenFunc != nil {
		token = s.TokenFunc(email)
	}
	s.tokens[token] = email
	return token
}

// RevokeTokens invalidates every issued token.
func (s *Server) RevokeTokens() {
	s.mu.Lock()
	s.tokens = map[string]string{}
	s.mu.Unlock()
}

// SeedTasks replaces the task list of the user with email.
func (s *Server) SeedTasks(email string, tasks ...models.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range tasks {
		if tasks[i].ID == "" {
			tasks[i].ID = uuid.NewString()
		}
	}
	s.tasks[email] = append([]models.Task(nil), tasks...)
}

// Tasks returns a copy of the user's tasks.
func (s *Server) Tasks(email string) []models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Task(nil), s.tasks[email]...)
}

// Fail forces every request matching method and path (relative to /api) to
// answer with status and a {"message"} body until Recover is called.
func (s *Server) Fail(method, path string, status int, message string) {
	s.mu.Lock()
	s.failures[method+" "+path] = failure{status: status, message: message}
	s.mu.Unlock()
}

// FailRaw forces a raw, possibly non-JSON, body.
func (s *Server) FailRaw(method, path string, status int, body string) {
	s.mu.Lock()
	s.failures[method+" "+path] = failure{status: status, raw: body}
	s.mu.Unlock()
}

// Recover clears every forced failure.
func (s *Server) Recover() {
	s.mu.Lock()
	s.failures = map[string]failure{}
	s.mu.Unlock()
}

// Requests returns the requests received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// CountRequests counts received requests with the given method and path.
func (s *Server) CountRequests(method, path string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

func (s *Server) router() http.Handler {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.record, s.injectFailures)

	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	api.HandleFunc("/auth/register", s.handleRegister).Methods("POST")
	api.HandleFunc("/auth/login", s.handleLogin).Methods("POST")
	api.HandleFunc("/auth/me", s.authed(s.handleMe)).Methods("GET")
	api.HandleFunc("/auth/profile", s.authed(s.handleProfile)).Methods("PUT")
	api.HandleFunc("/auth/change-password", s.authed(s.handleChangePassword)).Methods("POST")

	api.HandleFunc("/tasks", s.authed(s.handleListTasks)).Methods("GET")
	api.HandleFunc("/tasks", s.authed(s.handleCreateTask)).Methods("POST")
	api.HandleFunc("/tasks/stats/overview", s.authed(s.handleStats)).Methods("GET")
	api.HandleFunc("/tasks/{id}", s.authed(s.handleGetTask)).Methods("GET")
	api.HandleFunc("/tasks/{id}", s.authed(s.handleUpdateTask)).Methods("PUT")
	api.HandleFunc("/tasks/{id}", s.authed(s.handleDeleteTask)).Methods("DELETE")
	api.HandleFunc("/tasks/{id}/status", s.authed(s.handleTaskStatus)).Methods("PATCH")

	api.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Route not found")
	})
	return r
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method: r.Method,
			Path:   strings.TrimPrefix(r.URL.Path, "/api"),
			Query:  r.URL.RawQuery,
			Auth:   r.Header.Get("Authorization"),
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		f, ok := s.failures[r.Method+" "+strings.TrimPrefix(r.URL.Path, "/api")]
		s.mu.Unlock()
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		if f.raw != "" {
			w.WriteHeader(f.status)
			w.Write([]byte(f.raw))
			return
		}
		writeError(w, f.status, f.message)
	})
}

type authedHandler func(w http.ResponseWriter, r *http.Request, email string)

func (s *Server) authed(h authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "Not authorized, no token")
			return
		}
		s.mu.Lock()
		email, valid := s.tokens[token]
		s.mu.Unlock()
		if !valid {
			writeError(w, http.StatusUnauthorized, "Not authorized, token failed")
			return
		}
		h(w, r, email)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	if message == "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(`{}`))
		return
	}
	writeJSON(w, status, map[string]any{"success": false, "message": message})
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// --- auth handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "OK",
		"message":   "TaskFlow API is running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body struct{ Name, Email, Password string }
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.Name == "" || body.Email == "" || body.Password == "" {
		writeError(w, http.StatusBadRequest, "Please provide name, email and password")
		return
	}

	s.mu.Lock()
	if _, exists := s.accounts[body.Email]; exists {
		s.mu.Unlock()
		writeError(w, http.StatusBadRequest, "User already exists with this email")
		return
	}
	user := s.addUserLocked(body.Name, body.Email, body.Password)
	token := s.issueLocked(body.Email)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "User registered successfully",
		"token":   token,
		"user":    user,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct{ Email, Password string }
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	acct, ok := s.accounts[body.Email]
	if !ok || acct.password != body.Password {
		s.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	user := acct.user.Clone()
	token := s.issueLocked(body.Email)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Login successful",
		"token":   token,
		"user":    user,
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, email string) {
	s.mu.Lock()
	user := s.accounts[email].user.Clone()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": user})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request, email string) {
	var fields map[string]any
	if err := decode(r, &fields); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	for _, k := range []string{"id", "_id", "password"} {
		delete(fields, k)
	}

	s.mu.Lock()
	acct := s.accounts[email]
	acct.user = acct.user.Merge(fields)
	user := acct.user.Clone()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Profile updated successfully",
		"user":    user,
	})
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request, email string) {
	var body struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(body.NewPassword) < 6 {
		writeError(w, http.StatusBadRequest, "New password must be at least 6 characters")
		return
	}

	s.mu.Lock()
	acct := s.accounts[email]
	if acct.password != body.CurrentPassword {
		s.mu.Unlock()
		writeError(w, http.StatusBadRequest, "Current password is incorrect")
		return
	}
	acct.password = body.NewPassword
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Password changed successfully"})
}

// --- task handlers ---

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request, email string) {
	q := r.URL.Query()
	status, priority, category := q.Get("status"), q.Get("priority"), q.Get("category")
	search := strings.ToLower(q.Get("search"))

	s.mu.Lock()
	var out []models.Task
	for _, t := range s.tasks[email] {
		if status != "" && string(t.Status) != status {
			continue
		}
		if priority != "" && string(t.Priority) != priority {
			continue
		}
		if category != "" && t.Category != category {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(t.Title+" "+t.Description), search) {
			continue
		}
		out = append(out, t)
	}
	s.mu.Unlock()

	if out == nil {
		out = []models.Task{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "count": len(out), "tasks": out})
}

func (s *Server) findTask(email, id string) (int, bool) {
	for i, t := range s.tasks[email] {
		if t.ID == id {
			return i, true
		}
	}
	return -1, false
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request, email string) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	i, ok := s.findTask(email, id)
	var task models.Task
	if ok {
		task = s.tasks[email][i]
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Task not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "task": task})
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request, email string) {
	var in models.TaskInput
	if err := decode(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(in.Title) == "" {
		writeError(w, http.StatusBadRequest, "Task title is required")
		return
	}
	now := time.Now().UTC()
	task := models.Task{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		Category:    in.Category,
		DueDate:     in.DueDate,
		CreatedAt:   &now,
		UpdatedAt:   &now,
	}
	if task.Status == "" {
		task.Status = models.StatusPending
	}
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}
	if task.Category == "" {
		task.Category = models.DefaultCategory
	}
	task.Completed = task.Status == models.StatusCompleted

	s.mu.Lock()
	s.tasks[email] = append(s.tasks[email], task)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Task created successfully",
		"task":    task,
	})
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request, email string) {
	var patch models.TaskPatch
	if err := decode(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if patch.Status != nil && !patch.Status.IsValid() {
		writeError(w, http.StatusBadRequest, "Invalid status")
		return
	}
	if patch.Priority != nil && !patch.Priority.IsValid() {
		writeError(w, http.StatusBadRequest, "Invalid priority")
		return
	}
	s.mutateTask(w, r, email, "Task updated successfully", patch)
}

func (s *Server) handleTaskStatus(w http.ResponseWriter, r *http.Request, email string) {
	var body struct {
		Status models.Status `json:"status"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !body.Status.IsValid() {
		writeError(w, http.StatusBadRequest, "Invalid status")
		return
	}
	s.mutateTask(w, r, email, "Task status updated successfully", models.TaskPatch{Status: &body.Status})
}

func (s *Server) mutateTask(w http.ResponseWriter, r *http.Request, email, message string, patch models.TaskPatch) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	i, ok := s.findTask(email, id)
	var task models.Task
	if ok {
		task = patch.Apply(s.tasks[email][i])
		now := time.Now().UTC()
		task.UpdatedAt = &now
		s.tasks[email][i] = task
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Task not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": message, "task": task})
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request, email string) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	i, ok := s.findTask(email, id)
	if ok {
		list := s.tasks[email]
		s.tasks[email] = append(list[:i:i], list[i+1:]...)
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Task not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Task deleted successfully"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request, email string) {
	s.mu.Lock()
	tasks := append([]models.Task(nil), s.tasks[email]...)
	s.mu.Unlock()

	byCategory := map[string]int{}
	for _, t := range tasks {
		byCategory[t.Category]++
	}
	categories := make([]string, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	var breakdown []map[string]any
	for _, c := range categories {
		breakdown = append(breakdown, map[string]any{"_id": c, "count": byCategory[c]})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"stats":      models.ComputeStats(tasks),
		"categories": breakdown,
	})
}
