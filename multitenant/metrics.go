package multitenant

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
	tenancyMeterName      = "tenantguard/multitenant"
	metricRestoreFailures = "tenancy.restore.failures"
	attrTaskOutcome       = "task.outcome"

	outcomeSuccess = "success"
	outcomeError   = "error"
	outcomePanic   = "panic"
)

var (
	meterInitMu            sync.Mutex
	restoreFailuresCounter metric.Int64Counter
)

// restoreFailures lazily creates the counter from the global meter provider.
func restoreFailures() metric.Int64Counter {
	meterInitMu.Lock()
	defer meterInitMu.Unlock()

	if restoreFailuresCounter != nil {
		return restoreFailuresCounter
	}

	counter, err := otel.Meter(tenancyMeterName).Int64Counter(
		metricRestoreFailures,
		metric.WithDescription("Worker identity restores that failed after a propagated task"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: Failed to initialize metric %s: %v\n", metricRestoreFailures, err)
		return nil
	}
	restoreFailuresCounter = counter
	return counter
}

func recordRestoreFailure(ctx context.Context, outcome string) {
	counter := restoreFailures()
	if counter == nil {
		return
	}
	counter.Add(ctx, 1, metric.WithAttributes(attribute.String(attrTaskOutcome, outcome)))
}

// ResetMetricsForTesting drops cached instruments so tests can install a fresh meter provider.
func ResetMetricsForTesting() {
	meterInitMu.Lock()
	defer meterInitMu.Unlock()
	restoreFailuresCounter = nil
}
