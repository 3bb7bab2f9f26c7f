package analytics

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dukex/leadion/pkg/log"
)

// leadPatterns match the phrasings agents use to report lead counts in free
// text. Order matters: the first pattern that yields a parseable integer wins.
var leadPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d+)\s+leads?\s+found`),
	regexp.MustCompile(`(?i)found\s+(\d+)\s+leads?`),
	regexp.MustCompile(`(?i)(\d+)\s+contacts?\s+found`),
	regexp.MustCompile(`(?i)found\s+(\d+)\s+contacts?`),
	regexp.MustCompile(`(?i)total\s+leads?:\s*(\d+)`),
	regexp.MustCompile(`(?i)leads?:\s*(\d+)`),
	regexp.MustCompile(`(?i)contacts?:\s*(\d+)`),
}

// Result is the normalized interpretation of one agent output.
type Result struct {
	LeadsFound    int     `json:"leads_found"`
	ExecutionTime float64 `json:"execution_time"`
	Success       bool    `json:"success"`
	ErrorMessage  string  `json:"error_message,omitempty"`
}

// Parse interprets an agent output of any supported shape. It never panics:
// an unrecognized shape yields a zero-lead result with a logged warning, and
// a value that cannot be coerced yields Success=false with an error message.
func Parse(agentName string, raw any) Result {
	result := Result{Success: true}
	output := Resolve(raw)

	switch output.Kind {
	case KindText:
		result.LeadsFound = parseText(output.Text)
	case KindMapping:
		if err := parseMapping(output.Mapping, &result); err != nil {
			result.Success = false
			result.ErrorMessage = err.Error()
		}
	case KindSequence:
		result.LeadsFound = len(output.Sequence)
	case KindLeadList:
		result.LeadsFound = len(output.Leads)
	default:
		log.WithModule("analytics").Warn("Unknown output shape",
			"agent", agentName, "type", fmt.Sprintf("%T", raw))
	}

	return result
}

func parseText(text string) int {
	for _, pattern := range leadPatterns {
		match := pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}

		count, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}

		return count
	}

	return 0
}

// parseMapping prefers an explicit leads_found field, then the length of a
// leads sequence, then the length of a sequence nested under leads.leads.
func parseMapping(data map[string]any, result *Result) error {
	if rawCount, ok := data["leads_found"]; ok {
		count, err := toInt(rawCount)
		if err != nil {
			return fmt.Errorf("failed to parse leads_found: %w", err)
		}

		result.LeadsFound = count
	} else if rawLeads, ok := data["leads"]; ok {
		switch leads := rawLeads.(type) {
		case []any:
			result.LeadsFound = len(leads)
		case map[string]any:
			if nested, ok := leads["leads"].([]any); ok {
				result.LeadsFound = len(nested)
			}
		}
	}

	if rawTime, ok := data["execution_time"]; ok {
		duration, err := toFloat(rawTime)
		if err != nil {
			return fmt.Errorf("failed to parse execution_time: %w", err)
		}

		result.ExecutionTime = duration
	}

	return nil
}

func toInt(value any) (int, error) {
	switch number := value.(type) {
	case int:
		return number, nil
	case int64:
		return int(number), nil
	case float64:
		return int(number), nil
	case string:
		return strconv.Atoi(strings.TrimSpace(number))
	default:
		return 0, fmt.Errorf("cannot convert %T to int", value)
	}
}

func toFloat(value any) (float64, error) {
	switch number := value.(type) {
	case float64:
		return number, nil
	case float32:
		return float64(number), nil
	case int:
		return float64(number), nil
	case int64:
		return float64(number), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(number), 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to float", value)
	}
}
