package evaluation

import (
	"fmt"
	"sort"
	"strings"
)

// AgentFeedback phrases an agent's score as human-readable feedback.
func AgentFeedback(score float64, agentName, taskName string) string {
	switch {
	case score >= 0.9:
		return fmt.Sprintf("Excellent performance by %s on %s. Output exceeds expectations.", agentName, taskName)
	case score >= 0.7:
		return fmt.Sprintf("Good performance by %s on %s. Output meets requirements.", agentName, taskName)
	case score >= 0.5:
		return fmt.Sprintf("Acceptable performance by %s on %s. Some improvements needed.", agentName, taskName)
	default:
		return fmt.Sprintf("Poor performance by %s on %s. Significant improvements required.", agentName, taskName)
	}
}

// WorkflowFeedback phrases the overall workflow score as feedback.
func WorkflowFeedback(score float64) string {
	switch {
	case score >= 0.9:
		return "Excellent workflow execution. All objectives achieved with high quality."
	case score >= 0.7:
		return "Good workflow execution. Most objectives achieved successfully."
	case score >= 0.5:
		return "Acceptable workflow execution. Some objectives achieved with issues."
	default:
		return "Poor workflow execution. Many objectives not achieved or with significant issues."
	}
}

// DetailedFeedback combines the overall verdict with per-metric verdicts.
func DetailedFeedback(score float64, detailedScores map[string]float64) string {
	parts := []string{overallVerdict(score)}

	metricNames := make([]string, 0, len(detailedScores))
	for name := range detailedScores {
		metricNames = append(metricNames, name)
	}

	sort.Strings(metricNames)

	for _, name := range metricNames {
		parts = append(parts, fmt.Sprintf("%s: %s", name, metricVerdict(detailedScores[name])))
	}

	return strings.Join(parts, " | ")
}

func overallVerdict(score float64) string {
	switch {
	case score >= 0.9:
		return "Overall: Excellent performance across all metrics."
	case score >= 0.7:
		return "Overall: Good performance with room for improvement."
	case score >= 0.5:
		return "Overall: Acceptable performance with several areas needing attention."
	default:
		return "Overall: Poor performance requiring significant improvements."
	}
}

func metricVerdict(score float64) string {
	switch {
	case score >= 0.9:
		return "Excellent"
	case score >= 0.7:
		return "Good"
	case score >= 0.5:
		return "Acceptable"
	default:
		return "Needs improvement"
	}
}
