package handlers

import (
	"net/http"
	"sync"
)

// Startup steps reported by the readiness endpoint
const (
	StepDatabase  = "Database connection"
	StepProgress  = "Progress store"
	StepQuestions = "Question source"
	StepNarration = "Narration"
	StepReporting = "Attempt reporting"
	StepServer    = "Server ready"
)

// StartupStep is one initialization step
type StartupStep struct {
	Name      string `json:"name"`
	Completed bool   `json:"completed"`
}

// StartupStatus tracks the initialization progress
type StartupStatus struct {
	mu       sync.RWMutex
	ready    bool
	current  string
	progress int
	steps    []StartupStep
}

// NewStartupStatus lists the steps in the order they run
func NewStartupStatus(steps ...string) *StartupStatus {
	if len(steps) == 0 {
		steps = []string{StepDatabase, StepProgress, StepQuestions, StepNarration, StepReporting, StepServer}
	}
	s := &StartupStatus{current: "Initializing..."}
	for _, name := range steps {
		s.steps = append(s.steps, StartupStep{Name: name})
	}
	return s
}

// SetCurrentStep updates the current initialization step
func (s *StartupStatus) SetCurrentStep(step string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = step
}

// CompleteStep marks a step as completed and updates progress
func (s *StartupStatus) CompleteStep(stepName string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.steps {
		if s.steps[i].Name == stepName {
			s.steps[i].Completed = true
			break
		}
	}

	completed := 0
	for _, step := range s.steps {
		if step.Completed {
			completed++
		}
	}
	s.progress = (completed * 100) / len(s.steps)
}

// MarkReady marks the server as fully initialized
func (s *StartupStatus) MarkReady() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = true
	s.current = StepServer
	s.progress = 100
	for i := range s.steps {
		s.steps[i].Completed = true
	}
}

// IsReady returns whether the server is fully initialized
func (s *StartupStatus) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

type startupView struct {
	Ready    bool          `json:"ready"`
	Current  string        `json:"current"`
	Progress int           `json:"progress"`
	Steps    []StartupStep `json:"steps"`
}

// Live handles GET /healthz
func Live(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, "ok", nil)
}

// Ready handles GET /readyz; 503 until MarkReady
func (s *StartupStatus) Ready(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	view := startupView{
		Ready:    s.ready,
		Current:  s.current,
		Progress: s.progress,
		Steps:    append([]StartupStep(nil), s.steps...),
	}
	s.mu.RUnlock()

	if !view.Ready {
		w.Header().Set("Retry-After", "2")
		respondJSON(w, http.StatusServiceUnavailable, view.Current, view)
		return
	}
	respondJSON(w, http.StatusOK, "ready", view)
}
