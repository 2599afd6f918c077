package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/pkg/kafka"
)

const topN = 10

// Stats is the aggregated view served by Handler and persisted by the
// snapshot store.
type Stats struct {
	TotalEvents       int64               `json:"total_events"`
	EventsByType      map[EventType]int64 `json:"events_by_type"`
	ActiveSessions    int64               `json:"active_sessions"`
	TopCities         []ValueCount        `json:"top_cities"`
	TopRegions        []ValueCount        `json:"top_regions"`
	TopCategories     []ValueCount        `json:"top_categories"`
	StatusSelections  []ValueCount        `json:"status_selections"`
	ZeroResultFilters []ValueCount        `json:"zero_result_filters"`
	ZeroResultCount   int64               `json:"zero_result_count"`
	AvgVisible        float64             `json:"avg_visible"`
	EventsPerMinute   float64             `json:"events_per_minute"`
	Since             time.Time           `json:"since"`
}

type ValueCount struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

// Aggregator folds FilterEvents into running counters. It is safe for
// concurrent use.
type Aggregator struct {
	mu           sync.RWMutex
	total        int64
	byType       map[EventType]int64
	selections   map[string]map[string]int64
	statuses     map[string]int64
	zeroResults  map[string]int64
	zeroCount    int64
	visibleSum   int64
	visibleCount int64
	startTime    time.Time

	now    func() time.Time
	logger *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		byType:      make(map[EventType]int64),
		selections:  make(map[string]map[string]int64),
		statuses:    make(map[string]int64),
		zeroResults: make(map[string]int64),
		startTime:   time.Now().UTC(),
		now:         time.Now,
		logger:      slog.Default().With("component", "analytics-aggregator"),
	}
}

// HandleMessage adapts the aggregator to a Kafka consumer. Undecodable
// messages are logged and skipped so they do not block the partition.
func (a *Aggregator) HandleMessage() kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[FilterEvent](value)
		if err != nil || event.Type == "" {
			a.logger.Error("failed to decode filter event", "key", string(key), "error", err)
			return nil
		}
		a.Record(event)
		return nil
	}
}

// Track records event in-process, for deployments without Kafka.
func (a *Aggregator) Track(event FilterEvent) {
	a.Record(event)
}

// Record folds one event into the counters.
func (a *Aggregator) Record(event FilterEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.total++
	a.byType[event.Type]++

	switch event.Type {
	case EventFilterChange:
		if event.Value != "" && event.Dimension != "" {
			counts, ok := a.selections[event.Dimension]
			if !ok {
				counts = make(map[string]int64)
				a.selections[event.Dimension] = counts
			}
			counts[event.Value]++
		}
	case EventStatusChange:
		if event.Status != "" {
			a.statuses[event.Status]++
		}
	}

	// Open and close carry no filter selection, so they stay out of the
	// visible-size figures.
	if event.Type == EventSessionOpen || event.Type == EventSessionClose {
		return
	}
	a.visibleSum += int64(event.Visible)
	a.visibleCount++
	if event.Visible == 0 && event.Total > 0 {
		a.zeroCount++
		if combo := event.Combination(); combo != "" {
			a.zeroResults[combo]++
		}
	}
}

func (a *Aggregator) Stats() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := Stats{
		TotalEvents:       a.total,
		EventsByType:      make(map[EventType]int64, len(a.byType)),
		ActiveSessions:    a.byType[EventSessionOpen] - a.byType[EventSessionClose],
		TopCities:         top(a.selections["city"], topN),
		TopRegions:        top(a.selections["region"], topN),
		TopCategories:     top(a.selections["category"], topN),
		StatusSelections:  top(a.statuses, topN),
		ZeroResultFilters: top(a.zeroResults, topN),
		ZeroResultCount:   a.zeroCount,
		Since:             a.startTime,
	}
	for t, n := range a.byType {
		stats.EventsByType[t] = n
	}
	if stats.ActiveSessions < 0 {
		stats.ActiveSessions = 0
	}
	if a.visibleCount > 0 {
		stats.AvgVisible = float64(a.visibleSum) / float64(a.visibleCount)
	}
	if elapsed := a.now().Sub(a.startTime).Minutes(); elapsed > 0 {
		stats.EventsPerMinute = float64(a.total) / elapsed
	}
	return stats
}

// top returns the n highest counts, ties broken by value.
func top(counts map[string]int64, n int) []ValueCount {
	result := make([]ValueCount, 0, len(counts))
	for value, count := range counts {
		result = append(result, ValueCount{Value: value, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Value < result[j].Value
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
