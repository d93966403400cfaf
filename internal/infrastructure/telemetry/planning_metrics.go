package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// MeterName is the meter used for application metrics
const MeterName = TracerName

// Metric names
const (
	MetricImportRows     = "textileplan_import_rows_total"
	MetricRecalculations = "textileplan_recalculations_total"
)

// Metric attribute keys and outcome values
const (
	MetricAttrEntity  = "entity"
	MetricAttrKind    = "kind"
	MetricAttrOutcome = "outcome"
	MetricAttrDryRun  = "dry_run"

	OutcomeImported  = "imported"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
	OutcomeSucceeded = "succeeded"
)

// PlanningMetrics counts CSV import rows and cost recomputations.
type PlanningMetrics struct {
	importRows     *Counter
	recalculations *Counter
}

// NewPlanningMetrics creates the instruments on meter.
func NewPlanningMetrics(meter metric.Meter) (*PlanningMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	importRows, err := NewCounter(meter,
		MetricImportRows,
		"CSV import rows by outcome",
		"{rows}",
	)
	if err != nil {
		return nil, err
	}

	recalculations, err := NewCounter(meter,
		MetricRecalculations,
		"Recomputed derived values by entity kind and outcome",
		"{entities}",
	)
	if err != nil {
		return nil, err
	}

	return &PlanningMetrics{importRows: importRows, recalculations: recalculations}, nil
}

// RecordImport adds the row counts of one import run. Zero counts are not
// recorded.
func (m *PlanningMetrics) RecordImport(ctx context.Context, entity string, dryRun bool, imported, skipped, failed int) {
	for _, o := range []struct {
		outcome string
		n       int
	}{
		{OutcomeImported, imported},
		{OutcomeSkipped, skipped},
		{OutcomeFailed, failed},
	} {
		if o.n <= 0 {
			continue
		}
		m.importRows.Add(ctx, int64(o.n),
			attribute.String(MetricAttrEntity, entity),
			attribute.String(MetricAttrOutcome, o.outcome),
			attribute.Bool(MetricAttrDryRun, dryRun),
		)
	}
}

// RecordRecalculation counts one recomputed entity
func (m *PlanningMetrics) RecordRecalculation(ctx context.Context, kind string, dryRun, ok bool) {
	outcome := OutcomeSucceeded
	if !ok {
		outcome = OutcomeFailed
	}
	m.recalculations.Inc(ctx,
		attribute.String(MetricAttrKind, kind),
		attribute.String(MetricAttrOutcome, outcome),
		attribute.Bool(MetricAttrDryRun, dryRun),
	)
}

var (
	globalMetrics     *PlanningMetrics
	globalMetricsOnce sync.Once
)

// Metrics returns the instruments bound to the global meter provider.
// Instruments created before NewMeterProvider installs the SDK provider
// forward to it once installed.
func Metrics() *PlanningMetrics {
	globalMetricsOnce.Do(func() {
		m, err := NewPlanningMetrics(otel.GetMeterProvider().Meter(MeterName))
		if err != nil {
			m, _ = NewPlanningMetrics(noop.NewMeterProvider().Meter(MeterName))
		}
		globalMetrics = m
	})
	return globalMetrics
}
