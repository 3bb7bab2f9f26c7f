package models

// AgentExecutionRecord is one agent execution captured during a run, the unit
// aggregated into per-agent and per-workflow analytics.
type AgentExecutionRecord struct {
	AgentName     string  `json:"agent_name"`
	TaskName      string  `json:"task_name"`
	LeadsFound    int     `json:"leads_found"`
	ExecutionTime float64 `json:"execution_time"`
	Success       bool    `json:"success"`
	ErrorMessage  string  `json:"error_message,omitempty"`
}

// WorkflowAnalytics summarizes one complete pipeline run.
type WorkflowAnalytics struct {
	TotalLeadsFound    int     `json:"total_leads_found"`
	TotalExecutionTime float64 `json:"total_execution_time"`
	TotalExecutions    int     `json:"total_executions"`
	SuccessfulRuns     int     `json:"successful_runs"`
	FailedRuns         int     `json:"failed_runs"`
	SuccessRate        float64 `json:"success_rate"`
}

// AgentAnalytics summarizes all executions of a single agent.
type AgentAnalytics struct {
	AgentName          string  `json:"agent_name"`
	Executions         int     `json:"executions"`
	TotalLeadsFound    int     `json:"total_leads_found"`
	TotalExecutionTime float64 `json:"total_execution_time"`
	SuccessRate        float64 `json:"success_rate"`
}

// TaskAnalytics summarizes all executions of a single task.
type TaskAnalytics struct {
	TaskName           string  `json:"task_name"`
	Executions         int     `json:"executions"`
	TotalExecutionTime float64 `json:"total_execution_time"`
	SuccessRate        float64 `json:"success_rate"`
}
