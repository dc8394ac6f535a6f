package otel

import (
	"context"
	"errors"
	"fmt"

	goDesk "github.com/MrEthical07/goDesk"
	"github.com/MrEthical07/goDesk/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() goDesk.MetricsSnapshot
	NotificationsDropped() uint64
}

// reading is what one callback pass sees: a snapshot plus the dropped count.
type reading struct {
	snapshot goDesk.MetricsSnapshot
	dropped  uint64
	buckets  map[goDesk.MetricID][8]uint64
}

// series pairs an instrument with the value it reports from a reading.
type series struct {
	instrument metric.Int64Observable
	read       func(*reading) int64
}

// OTelExporter observes a goDesk metrics source through asynchronous instruments.
// Close unregisters the callback.
//
//	Docs: docs/metrics.md
type OTelExporter struct {
	source       metricsSource
	registration metric.Registration
	series       []series
}

// NewOTelExporter registers instruments on meter that read client metrics.
func NewOTelExporter(meter metric.Meter, client *goDesk.Client) (*OTelExporter, error) {
	if client == nil {
		return nil, ErrNilSource
	}
	return NewOTelExporterFromSource(meter, client)
}

func NewOTelExporterFromSource(meter metric.Meter, source metricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	plan, err := buildSeries(meter)
	if err != nil {
		return nil, err
	}
	exporter := &OTelExporter{source: source, series: plan}

	observables := make([]metric.Observable, len(plan))
	for i, s := range plan {
		observables[i] = s.instrument
	}

	registration, err := meter.RegisterCallback(func(_ context.Context, observer metric.Observer) error {
		r := &reading{
			snapshot: exporter.source.MetricsSnapshot(),
			dropped:  exporter.source.NotificationsDropped(),
			buckets:  make(map[goDesk.MetricID][8]uint64, len(internaldefs.HistogramDefs)),
		}
		for _, def := range internaldefs.HistogramDefs {
			r.buckets[def.ID] = internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(r.snapshot.Histograms[def.ID]))
		}
		for _, s := range exporter.series {
			observer.ObserveInt64(s.instrument, s.read(r))
		}
		return nil
	}, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}

	exporter.registration = registration
	return exporter, nil
}

// buildSeries creates one instrument per exported name, in internaldefs order.
func buildSeries(meter metric.Meter) ([]series, error) {
	var out []series

	counter := func(name, help string, read func(*reading) int64) error {
		ins, err := meter.Int64ObservableCounter(name, metric.WithDescription(help))
		if err != nil {
			return fmt.Errorf("create observable counter %s: %w", name, err)
		}
		out = append(out, series{instrument: ins, read: read})
		return nil
	}
	gauge := func(name, help string, read func(*reading) int64) error {
		ins, err := meter.Int64ObservableGauge(name, metric.WithDescription(help))
		if err != nil {
			return fmt.Errorf("create observable gauge %s: %w", name, err)
		}
		out = append(out, series{instrument: ins, read: read})
		return nil
	}

	for _, def := range internaldefs.CounterDefs {
		id := def.ID
		if err := counter(def.Name, def.Help, func(r *reading) int64 {
			return int64(r.snapshot.Counters[id])
		}); err != nil {
			return nil, err
		}
	}

	for _, def := range internaldefs.HistogramDefs {
		id := def.ID
		for i, suffix := range internaldefs.HistogramBoundSuffix {
			if err := gauge(def.Name+"_bucket_le_"+suffix, "Cumulative histogram bucket count.", func(r *reading) int64 {
				return int64(r.buckets[id][i])
			}); err != nil {
				return nil, err
			}
		}
		if err := gauge(def.Name+"_count", "Histogram total sample count.", func(r *reading) int64 {
			b := r.buckets[id]
			return int64(b[len(b)-1])
		}); err != nil {
			return nil, err
		}
	}

	if err := counter(internaldefs.DroppedName, internaldefs.DroppedHelp, func(r *reading) int64 {
		return int64(r.dropped)
	}); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
