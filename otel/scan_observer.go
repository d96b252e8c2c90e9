// Package otel provides OpenTelemetry integration for catalog scans.
package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/petal-labs/mcpserve/catalog"
)

// ScanObserver records catalog scan signals into OpenTelemetry.
type ScanObserver struct {
	tracer trace.Tracer

	scans    metric.Int64Counter
	tools    metric.Int64Counter
	warnings metric.Int64Counter
	duration metric.Float64Histogram
}

// NewScanObserver creates a scan observer bound to the provided meter/tracer.
// A nil tracer disables spans.
func NewScanObserver(meter metric.Meter, tracer trace.Tracer) (*ScanObserver, error) {
	scans, err := meter.Int64Counter(
		"mcpserve.catalog.scans",
		metric.WithDescription("Number of catalog scans"),
	)
	if err != nil {
		return nil, err
	}
	tools, err := meter.Int64Counter(
		"mcpserve.catalog.tools",
		metric.WithDescription("Number of catalog entries seen by scans, by status"),
	)
	if err != nil {
		return nil, err
	}
	warnings, err := meter.Int64Counter(
		"mcpserve.catalog.warnings",
		metric.WithDescription("Number of non-fatal scanner errors"),
	)
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram(
		"mcpserve.catalog.scan.duration",
		metric.WithDescription("Catalog scan duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &ScanObserver{
		tracer:   tracer,
		scans:    scans,
		tools:    tools,
		warnings: warnings,
		duration: duration,
	}, nil
}

// ObserveScan records one finished scan.
func (o *ScanObserver) ObserveScan(observation catalog.ScanObservation) {
	if o == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("directory", observation.Directory),
		attribute.Bool("success", observation.ErrorCode == ""),
	}
	if observation.ErrorCode != "" {
		attrs = append(attrs, attribute.String("error_code", observation.ErrorCode))
	}

	ctx := context.Background()
	options := metric.WithAttributes(attrs...)
	o.scans.Add(ctx, 1, options)
	o.duration.Record(ctx, float64(time.Duration(observation.DurationMS)*time.Millisecond)/float64(time.Second), options)
	if observation.Warnings > 0 {
		o.warnings.Add(ctx, int64(observation.Warnings), metric.WithAttributes(attribute.String("directory", observation.Directory)))
	}

	byStatus := map[catalog.Status]int{
		catalog.StatusReady:      observation.Ready,
		catalog.StatusInvalid:    observation.Invalid,
		catalog.StatusUnresolved: observation.Unresolved,
	}
	for status, count := range byStatus {
		if count == 0 {
			continue
		}
		o.tools.Add(ctx, int64(count), metric.WithAttributes(
			attribute.String("directory", observation.Directory),
			attribute.String("status", string(status)),
		))
	}

	if o.tracer == nil {
		return
	}
	var startOpts []trace.SpanStartOption
	var endOpts []trace.SpanEndOption
	if !observation.StartedAt.IsZero() {
		end := observation.FinishedAt
		if end.Before(observation.StartedAt) {
			end = observation.StartedAt.Add(time.Duration(observation.DurationMS) * time.Millisecond)
		}
		startOpts = append(startOpts, trace.WithTimestamp(observation.StartedAt))
		endOpts = append(endOpts, trace.WithTimestamp(end))
	}
	startOpts = append(startOpts, trace.WithAttributes(append(attrs,
		attribute.String("scan_id", observation.ScanID),
		attribute.Int("discovered", observation.Discovered),
		attribute.Int("ready", observation.Ready),
		attribute.Int("invalid", observation.Invalid),
		attribute.Int("unresolved", observation.Unresolved),
		attribute.Int("warnings", observation.Warnings),
	)...))
	_, span := o.tracer.Start(ctx, "catalog.scan", startOpts...)
	if observation.ErrorCode != "" {
		span.SetStatus(codes.Error, observation.ErrorCode)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End(endOpts...)
}

var _ catalog.Observer = (*ScanObserver)(nil)
