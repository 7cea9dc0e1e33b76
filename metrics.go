package propwatch

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/shuakami/propwatch"

// instruments 是 Interceptor 使用的 OpenTelemetry 指标
type instruments struct {
	assignments    metric.Int64Counter
	watcherCalls   metric.Int64Counter
	watcherErrors  metric.Int64Counter
	activeWatchers metric.Int64UpDownCounter
	droppedEvents  metric.Int64Counter
}

func newInstruments(provider metric.MeterProvider) (*instruments, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(meterName)

	var (
		inst instruments
		err  error
	)
	inst.assignments, err = meter.Int64Counter("propwatch.assignments",
		metric.WithDescription("Completed assignments to watched properties"),
		metric.WithUnit("{assignment}"))
	if err != nil {
		return nil, fmt.Errorf("assignments counter: %w", err)
	}
	inst.watcherCalls, err = meter.Int64Counter("propwatch.watcher.calls",
		metric.WithDescription("Watcher callback invocations"),
		metric.WithUnit("{call}"))
	if err != nil {
		return nil, fmt.Errorf("watcher calls counter: %w", err)
	}
	inst.watcherErrors, err = meter.Int64Counter("propwatch.watcher.errors",
		metric.WithDescription("Watcher callbacks that returned an error"),
		metric.WithUnit("{error}"))
	if err != nil {
		return nil, fmt.Errorf("watcher errors counter: %w", err)
	}
	inst.activeWatchers, err = meter.Int64UpDownCounter("propwatch.watchers.active",
		metric.WithDescription("Watchers currently registered"),
		metric.WithUnit("{watcher}"))
	if err != nil {
		return nil, fmt.Errorf("active watchers counter: %w", err)
	}
	inst.droppedEvents, err = meter.Int64Counter("propwatch.events.dropped",
		metric.WithDescription("Change events dropped because EventChan was full"),
		metric.WithUnit("{event}"))
	if err != nil {
		return nil, fmt.Errorf("dropped events counter: %w", err)
	}
	return &inst, nil
}

func propertyAttr(name string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("property", name))
}

func (i *instruments) assigned(property string) {
	i.assignments.Add(context.Background(), 1, propertyAttr(property))
}

func (i *instruments) watcherCalled(property string, err error) {
	ctx := context.Background()
	i.watcherCalls.Add(ctx, 1, propertyAttr(property))
	if err != nil {
		i.watcherErrors.Add(ctx, 1, propertyAttr(property))
	}
}

func (i *instruments) watchersChanged(property string, delta int64) {
	i.activeWatchers.Add(context.Background(), delta, propertyAttr(property))
}

func (i *instruments) eventDropped(property string) {
	i.droppedEvents.Add(context.Background(), 1, propertyAttr(property))
}
