package analytics

import "github.com/dukex/leadion/pkg/models"

// AggregateWorkflow folds per-agent parse results into a workflow summary.
// SuccessRate is 0.0 when there are no results.
func AggregateWorkflow(results []Result, executionTime float64) models.WorkflowAnalytics {
	summary := models.WorkflowAnalytics{
		TotalExecutionTime: executionTime,
		TotalExecutions:    len(results),
	}

	for _, result := range results {
		summary.TotalLeadsFound += result.LeadsFound

		if result.Success {
			summary.SuccessfulRuns++
		} else {
			summary.FailedRuns++
		}
	}

	if len(results) > 0 {
		summary.SuccessRate = float64(summary.SuccessfulRuns) / float64(len(results))
	}

	return summary
}

// AggregateAgent summarizes all recorded executions of one agent.
func AggregateAgent(agentName string, results []Result) models.AgentAnalytics {
	summary := models.AgentAnalytics{
		AgentName:  agentName,
		Executions: len(results),
	}

	successes := 0

	for _, result := range results {
		summary.TotalLeadsFound += result.LeadsFound
		summary.TotalExecutionTime += result.ExecutionTime

		if result.Success {
			successes++
		}
	}

	if len(results) > 0 {
		summary.SuccessRate = float64(successes) / float64(len(results))
	}

	return summary
}

// AggregateTask summarizes all recorded executions of one task.
func AggregateTask(taskName string, results []Result) models.TaskAnalytics {
	summary := models.TaskAnalytics{
		TaskName:   taskName,
		Executions: len(results),
	}

	successes := 0

	for _, result := range results {
		summary.TotalExecutionTime += result.ExecutionTime

		if result.Success {
			successes++
		}
	}

	if len(results) > 0 {
		summary.SuccessRate = float64(successes) / float64(len(results))
	}

	return summary
}
