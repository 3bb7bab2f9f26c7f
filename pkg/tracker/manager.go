package tracker

import (
	"log/slog"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/dukex/leadion/pkg/analytics"
	"github.com/dukex/leadion/pkg/log"
)

// StateManager is the single mutable source of truth for in-flight run
// progress. Every mutator acquires the lock for its whole read-modify-write
// and bumps lastUpdate before releasing. Derived fields (percentage, ETA)
// are computed on read, under the same lock.
type StateManager struct {
	mu     sync.Mutex
	logger *slog.Logger

	status         Status
	currentAgent   string
	currentTask    string
	currentTool    string
	completedTasks []string
	currentStep    int

	// analytics is merged with a whitelist-by-existing-keys policy: unknown
	// keys in partial updates are dropped so malformed reports cannot grow
	// the mapping without bound.
	analytics  map[string]any
	evaluation map[string]any

	leadsFound      int
	executionTime   float64
	results         []analytics.Result
	evaluationScore *float64

	startTime        *time.Time
	currentTaskStart *time.Time

	errors     []string
	lastUpdate time.Time
}

func NewStateManager() *StateManager {
	manager := &StateManager{logger: log.WithModule("tracker")}
	manager.mu.Lock()
	manager.resetLocked()
	manager.mu.Unlock()

	return manager
}

func (m *StateManager) resetLocked() {
	m.status = StatusIdle
	m.currentAgent = ""
	m.currentTask = ""
	m.currentTool = ""
	m.completedTasks = nil
	m.currentStep = 0
	m.analytics = map[string]any{"leads_found": 0}
	m.evaluation = nil
	m.leadsFound = 0
	m.executionTime = 0
	m.results = nil
	m.evaluationScore = nil
	m.startTime = nil
	m.currentTaskStart = nil
	m.errors = nil
	m.lastUpdate = time.Now()
}

// Reset prepares the manager for a new run, discarding all prior state.
func (m *StateManager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.resetLocked()
}

func (m *StateManager) SetStartTime() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.startTime = &now
	m.lastUpdate = now
}

func (m *StateManager) UpdateStatus(status Status) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.status = status
	m.lastUpdate = time.Now()
}

func (m *StateManager) UpdateCurrentAgent(agentRole string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.currentAgent = agentRole
	m.lastUpdate = time.Now()
}

// UpdateCurrentTask sets the active task by canonical key and advances
// current_step to the task's 1-based position in the pipeline order. An
// empty key clears the active task without touching current_step.
func (m *StateManager) UpdateCurrentTask(taskKey string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if taskKey != "" {
		m.currentTask = displayName(taskKey)

		now := time.Now()
		m.currentTaskStart = &now

		if position := slices.Index(taskOrder, taskKey); position >= 0 {
			m.currentStep = position + 1
		}
	} else {
		m.currentTask = ""
	}

	m.lastUpdate = time.Now()
}

func (m *StateManager) UpdateCurrentTool(toolName string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.currentTool = toolName
	m.lastUpdate = time.Now()
}

// AddCompletedTask records a finished task. Duplicate completions of the
// same task are ignored, so completed_tasks never exceeds the task order.
func (m *StateManager) AddCompletedTask(taskKey string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	completed := displayName(taskKey)
	if !slices.Contains(m.completedTasks, completed) {
		m.completedTasks = append(m.completedTasks, completed)
	}

	m.lastUpdate = time.Now()
}

func (m *StateManager) AddError(message string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.errors = append(m.errors, message)
	m.lastUpdate = time.Now()
}

// UpdateAnalytics merges a partial analytics update, keeping only keys that
// already exist in the analytics mapping.
func (m *StateManager) UpdateAnalytics(updates map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.mergeAnalyticsLocked(updates)
	m.lastUpdate = time.Now()
}

func (m *StateManager) mergeAnalyticsLocked(updates map[string]any) {
	for key, value := range updates {
		if _, known := m.analytics[key]; known {
			m.analytics[key] = value
		}
	}
}

// UpdateEvaluation merges evaluation results into the evaluation section.
func (m *StateManager) UpdateEvaluation(results map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.evaluation == nil {
		m.evaluation = make(map[string]any)
	}

	for key, value := range results {
		m.evaluation[key] = value
	}

	m.lastUpdate = time.Now()
}

// RecordEvaluationScore stores the workflow-level evaluation score exposed
// through the analytics summary.
func (m *StateManager) RecordEvaluationScore(score float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.evaluationScore = &score
	m.lastUpdate = time.Now()
}

// ProcessAgentOutput interprets an agent's task output and merges the derived
// analytics. leads_found is merged with max, never sum: duplicate or partial
// reports from the same run must not double-count, and a later smaller report
// must not regress the count. Returns the parse result so callers can feed
// metrics without re-parsing.
func (m *StateManager) ProcessAgentOutput(agentName, taskName string, output any, success bool, errorMessage string, executionTime float64) analytics.Result {
	result := analytics.Parse(agentName, output)
	parseFailed := !result.Success

	if !success {
		result.Success = false

		if result.ErrorMessage == "" {
			result.ErrorMessage = errorMessage
		}
	}

	if executionTime > 0 {
		result.ExecutionTime = executionTime
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if parseFailed {
		// Interpretation failed; fall back to a raw whitelist merge when the
		// output is a plain mapping, otherwise leave analytics untouched.
		m.logger.Warn("Failed to interpret agent output",
			"agent", agentName, "task", taskName, "error", result.ErrorMessage)

		if mapping, ok := output.(map[string]any); ok {
			m.mergeAnalyticsLocked(mapping)
			m.lastUpdate = time.Now()
		}

		return result
	}

	m.leadsFound = max(m.leadsFound, result.LeadsFound)
	m.executionTime += result.ExecutionTime
	m.results = append(m.results, result)

	m.analytics["leads_found"] = m.leadsFound
	m.lastUpdate = time.Now()

	return result
}

// MergeLeadsFound folds a final leads count into the tracked total under the
// max policy, so a finish event that parses to less than what the per-task
// reports already established never regresses the count.
func (m *StateManager) MergeLeadsFound(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.leadsFound = max(m.leadsFound, count)
	m.analytics["leads_found"] = m.leadsFound
	m.lastUpdate = time.Now()
}

// GetState returns a snapshot with the derived progress fields computed under
// the lock. The ETA is a linear extrapolation from the average per-task
// duration so far; it is only present while a task is active.
func (m *StateManager) GetState() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	totalTasks := len(taskOrder)
	percentage := math.Round(float64(len(m.completedTasks))/float64(totalTasks)*1000) / 10

	var estimatedCompletion *time.Time

	if m.startTime != nil && m.currentTaskStart != nil && m.currentStep > 0 {
		now := time.Now()
		elapsed := now.Sub(*m.startTime)
		perTask := elapsed / time.Duration(m.currentStep)
		remaining := time.Duration(totalTasks - m.currentStep)
		eta := now.Add(perTask * remaining)
		estimatedCompletion = &eta
	}

	return Snapshot{
		WorkflowStatus: m.status,
		CurrentAgent:   m.currentAgent,
		CurrentTask:    m.currentTask,
		CurrentTool:    m.currentTool,
		Progress: Progress{
			Percentage:     percentage,
			CompletedTasks: slices.Clone(m.completedTasks),
			TotalTasks:     totalTasks,
			CurrentStep:    m.currentStep,
		},
		Analytics:  copyMap(m.analytics),
		Evaluation: copyMap(m.evaluation),
		Timing: Timing{
			StartTime:           m.startTime,
			CurrentTaskStart:    m.currentTaskStart,
			EstimatedCompletion: estimatedCompletion,
		},
		Errors:     slices.Clone(m.errors),
		LastUpdate: m.lastUpdate,
	}
}

// AnalyticsSummary reports the run's aggregate analytics. The success rate is
// folded from the recorded per-output parse results; leads_found keeps the
// max-merged total rather than the aggregate sum, which would double-count
// stages reporting on the same leads.
func (m *StateManager) AnalyticsSummary() Summary {
	m.mu.Lock()
	defer m.mu.Unlock()

	workflow := analytics.AggregateWorkflow(m.results, m.executionTime)

	return Summary{
		LeadsFound:      m.leadsFound,
		ExecutionTime:   workflow.TotalExecutionTime,
		SuccessRate:     workflow.SuccessRate,
		EvaluationScore: m.evaluationScore,
	}
}

func displayName(taskKey string) string {
	if name, known := TaskNames[taskKey]; known {
		return name
	}

	return taskKey
}

func copyMap(source map[string]any) map[string]any {
	if source == nil {
		return nil
	}

	copied := make(map[string]any, len(source))
	for key, value := range source {
		copied[key] = value
	}

	return copied
}
