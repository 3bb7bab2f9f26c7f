// Package metrics records pipeline observability metrics via OpenTelemetry
// and exposes them on a Prometheus scrape endpoint. Recording is
// fire-and-forget: a nil or disabled collector is a no-op, never an error.
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/dukex/leadion/pkg/log"
)

// Collector manages the pipeline metrics.
type Collector struct {
	meter metric.Meter

	agentExecutions metric.Int64Counter
	agentDuration   metric.Float64Histogram
	agentErrors     metric.Int64Counter

	taskExecutions metric.Int64Counter
	taskDuration   metric.Float64Histogram
	taskErrors     metric.Int64Counter

	workflowRuns      metric.Int64Counter
	workflowSuccesses metric.Int64Counter
	workflowFailures  metric.Int64Counter
	workflowDuration  metric.Float64Histogram

	evaluationScore  metric.Float64Histogram
	evaluationCount  metric.Int64Counter
	evaluationPassed metric.Int64Counter
	evaluationFailed metric.Int64Counter

	leadsFound metric.Int64Counter

	prometheusServer *http.Server
}

// NewCollector builds a collector backed by a Prometheus exporter. When
// enabled is false it returns an empty collector whose recorders are no-ops.
func NewCollector(enabled bool) (*Collector, error) {
	if !enabled {
		return &Collector{}, nil
	}

	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter("leadion")
	collector := &Collector{meter: meter}

	instruments := []struct {
		target      any
		name        string
		description string
		unit        string
	}{
		{&collector.agentExecutions, "leadion.agent.executions.total", "Total agent executions", "{execution}"},
		{&collector.agentDuration, "leadion.agent.execution.duration", "Agent execution duration in seconds", "s"},
		{&collector.agentErrors, "leadion.agent.errors.total", "Total agent execution errors", "{error}"},
		{&collector.taskExecutions, "leadion.task.executions.total", "Total task executions", "{execution}"},
		{&collector.taskDuration, "leadion.task.execution.duration", "Task execution duration in seconds", "s"},
		{&collector.taskErrors, "leadion.task.errors.total", "Total task execution errors", "{error}"},
		{&collector.workflowRuns, "leadion.workflow.runs.total", "Total workflow runs started", "{run}"},
		{&collector.workflowSuccesses, "leadion.workflow.successes.total", "Total workflow runs completed successfully", "{run}"},
		{&collector.workflowFailures, "leadion.workflow.failures.total", "Total workflow runs failed", "{run}"},
		{&collector.workflowDuration, "leadion.workflow.duration", "Workflow run duration in seconds", "s"},
		{&collector.evaluationScore, "leadion.evaluation.score", "Workflow evaluation scores (0-1)", "1"},
		{&collector.evaluationCount, "leadion.evaluation.runs.total", "Total evaluation runs", "{run}"},
		{&collector.evaluationPassed, "leadion.evaluation.passed.total", "Total evaluations that passed", "{run}"},
		{&collector.evaluationFailed, "leadion.evaluation.failed.total", "Total evaluations that failed", "{run}"},
		{&collector.leadsFound, "leadion.leads.found.total", "Total leads reported by agents", "{lead}"},
	}

	for _, instrument := range instruments {
		switch target := instrument.target.(type) {
		case *metric.Int64Counter:
			counter, err := meter.Int64Counter(instrument.name,
				metric.WithDescription(instrument.description),
				metric.WithUnit(instrument.unit))
			if err != nil {
				return nil, fmt.Errorf("failed to create %s counter: %w", instrument.name, err)
			}

			*target = counter
		case *metric.Float64Histogram:
			histogram, err := meter.Float64Histogram(instrument.name,
				metric.WithDescription(instrument.description),
				metric.WithUnit(instrument.unit))
			if err != nil {
				return nil, fmt.Errorf("failed to create %s histogram: %w", instrument.name, err)
			}

			*target = histogram
		}
	}

	return collector, nil
}

// StartPrometheusServer serves the /metrics scrape endpoint.
func (c *Collector) StartPrometheusServer(port int) error {
	if c == nil || c.meter == nil {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	c.prometheusServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	logger := log.WithModule("metrics")

	go func() {
		logger.Info("Prometheus metrics server listening", "port", port)

		if err := c.prometheusServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Prometheus server error", "error", err)
		}
	}()

	return nil
}

// Shutdown stops the scrape endpoint.
func (c *Collector) Shutdown(ctx context.Context) error {
	if c == nil || c.prometheusServer == nil {
		return nil
	}

	return c.prometheusServer.Shutdown(ctx)
}

// RecordAgentExecution records one agent execution with its duration in
// seconds.
func (c *Collector) RecordAgentExecution(ctx context.Context, agent string, duration float64, errored bool) {
	if c == nil || c.agentExecutions == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("agent", agent))

	c.agentExecutions.Add(ctx, 1, attrs)
	c.agentDuration.Record(ctx, duration, attrs)

	if errored {
		c.agentErrors.Add(ctx, 1, attrs)
	}
}

// RecordTaskExecution records one task execution with its duration in
// seconds.
func (c *Collector) RecordTaskExecution(ctx context.Context, task string, duration float64, errored bool) {
	if c == nil || c.taskExecutions == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("task", task))

	c.taskExecutions.Add(ctx, 1, attrs)
	c.taskDuration.Record(ctx, duration, attrs)

	if errored {
		c.taskErrors.Add(ctx, 1, attrs)
	}
}

// RecordWorkflowStart counts a workflow run being launched.
func (c *Collector) RecordWorkflowStart(ctx context.Context) {
	if c == nil || c.workflowRuns == nil {
		return
	}

	c.workflowRuns.Add(ctx, 1)
}

// RecordWorkflowCompletion records a finished run with its total duration in
// seconds.
func (c *Collector) RecordWorkflowCompletion(ctx context.Context, duration float64, success bool) {
	if c == nil || c.workflowDuration == nil {
		return
	}

	c.workflowDuration.Record(ctx, duration)

	if success {
		c.workflowSuccesses.Add(ctx, 1)
	} else {
		c.workflowFailures.Add(ctx, 1)
	}
}

// RecordEvaluationResult records a workflow evaluation outcome.
func (c *Collector) RecordEvaluationResult(ctx context.Context, score float64, passed bool) {
	if c == nil || c.evaluationScore == nil {
		return
	}

	c.evaluationScore.Record(ctx, score)
	c.evaluationCount.Add(ctx, 1)

	if passed {
		c.evaluationPassed.Add(ctx, 1)
	} else {
		c.evaluationFailed.Add(ctx, 1)
	}
}

// RecordLeads counts leads reported by an agent output.
func (c *Collector) RecordLeads(ctx context.Context, count int) {
	if c == nil || c.leadsFound == nil || count <= 0 {
		return
	}

	c.leadsFound.Add(ctx, int64(count))
}
