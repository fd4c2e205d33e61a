package telemetry

import (
	"context"
	"fmt"
	"sort"
)

// DefaultChartWindow is the number of raw rows the chart history covers.
const DefaultChartWindow = 100

// ChartHistory is a minute-bucketed, metric-keyed series for charting.
// Every tracked metric has one value per label; missing readings are
// zero-filled so the arrays stay equal length.
type ChartHistory struct {
	Labels []string             `json:"labels"`
	Series map[string][]float64 `json:"series"`
}

// Aggregator builds chart-ready read models from raw measurements.
type Aggregator struct {
	store  Store
	window int
}

// NewAggregator creates an aggregator. A non-positive window falls back
// to DefaultChartWindow.
func NewAggregator(store Store, window int) *Aggregator {
	if window <= 0 {
		window = DefaultChartWindow
	}
	return &Aggregator{store: store, window: window}
}

// LatestValues returns the last recorded value for every tracked
// metric at the location, zero-filled for metrics never reported.
// Untracked metric keys are dropped.
func (a *Aggregator) LatestValues(ctx context.Context, locationID string) (map[string]float64, error) {
	raw, err := a.store.LatestValues(ctx, locationID)
	if err != nil {
		return nil, fmt.Errorf("aggregating latest values: %w", err)
	}

	values := make(map[string]float64, len(TrackedMetrics))
	for _, metric := range TrackedMetrics {
		values[metric] = raw[metric]
	}
	return values, nil
}

// ChartHistory buckets the most recent window of raw rows by minute.
//
// The window is fetched newest first, restored to chronological order,
// and bucketed by HH:MM. Within a bucket the last value seen per
// metric wins. Buckets are emitted sorted by time-of-day label.
func (a *Aggregator) ChartHistory(ctx context.Context, locationID string) (*ChartHistory, error) {
	window, err := a.store.RecentWindow(ctx, locationID, a.window)
	if err != nil {
		return nil, fmt.Errorf("aggregating chart history: %w", err)
	}

	// Restore chronological order.
	for i, j := 0, len(window)-1; i < j; i, j = i+1, j-1 {
		window[i], window[j] = window[j], window[i]
	}

	buckets := make(map[string]map[string]float64)
	for i := range window {
		m := &window[i]
		metric := NormalizeMetric(m.Type)
		if !IsTracked(metric) {
			continue
		}

		label := m.Timestamp.UTC().Format("15:04")
		bucket, ok := buckets[label]
		if !ok {
			bucket = make(map[string]float64)
			buckets[label] = bucket
		}
		bucket[metric] = m.Value
	}

	labels := make([]string, 0, len(buckets))
	for label := range buckets {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	series := make(map[string][]float64, len(TrackedMetrics))
	for _, metric := range TrackedMetrics {
		values := make([]float64, len(labels))
		for i, label := range labels {
			values[i] = buckets[label][metric]
		}
		series[metric] = values
	}

	return &ChartHistory{Labels: labels, Series: series}, nil
}
