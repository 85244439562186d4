package executor

import (
	"context"
	"fmt"
	"os"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	executorMeterName = "tenantguard/executor"

	metricTasks         = "executor.tasks"
	metricTasksRejected = "executor.tasks.rejected"
	metricQueueDepth    = "executor.queue.depth"

	attrPool    = "executor.pool"
	attrOutcome = "outcome"
	attrReason  = "reason"

	outcomeSuccess   = "success"
	outcomeError     = "error"
	outcomePanic     = "panic"
	outcomeCancelled = "cancelled"
	outcomeDropped   = "dropped"

	reasonQueueFull = "queue_full"
	reasonClosed    = "closed"
)

var (
	meterInitMu sync.Mutex
	meter       metric.Meter
	inst        instruments
)

type instruments struct {
	tasks      metric.Int64Counter
	rejected   metric.Int64Counter
	queueDepth metric.Int64UpDownCounter
}

func logMetricError(metricName string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: Failed to initialize executor metric %s: %v\n", metricName, err)
	}
}

// loadInstruments creates the executor instruments from the global meter provider once.
func loadInstruments() instruments {
	meterInitMu.Lock()
	defer meterInitMu.Unlock()

	if meter != nil {
		return inst
	}
	meter = otel.Meter(executorMeterName)

	var err error
	inst.tasks, err = meter.Int64Counter(
		metricTasks,
		metric.WithDescription("Tasks finished by executor workers"),
		metric.WithUnit("{task}"),
	)
	logMetricError(metricTasks, err)

	inst.rejected, err = meter.Int64Counter(
		metricTasksRejected,
		metric.WithDescription("Tasks refused at submission"),
		metric.WithUnit("{task}"),
	)
	logMetricError(metricTasksRejected, err)

	inst.queueDepth, err = meter.Int64UpDownCounter(
		metricQueueDepth,
		metric.WithDescription("Tasks admitted but not yet picked up by a worker"),
		metric.WithUnit("{task}"),
	)
	logMetricError(metricQueueDepth, err)

	return inst
}

func recordTask(ctx context.Context, pool, outcome string) {
	if counter := loadInstruments().tasks; counter != nil {
		counter.Add(ctx, 1, metric.WithAttributes(
			attribute.String(attrPool, pool),
			attribute.String(attrOutcome, outcome),
		))
	}
}

func recordRejected(ctx context.Context, pool, reason string) {
	if counter := loadInstruments().rejected; counter != nil {
		counter.Add(ctx, 1, metric.WithAttributes(
			attribute.String(attrPool, pool),
			attribute.String(attrReason, reason),
		))
	}
}

func recordQueueDepth(ctx context.Context, pool string, delta int64) {
	if gauge := loadInstruments().queueDepth; gauge != nil {
		gauge.Add(ctx, delta, metric.WithAttributes(attribute.String(attrPool, pool)))
	}
}

// ResetMetricsForTesting drops cached instruments so tests can install a fresh meter provider.
func ResetMetricsForTesting() {
	meterInitMu.Lock()
	defer meterInitMu.Unlock()
	meter = nil
	inst = instruments{}
}
