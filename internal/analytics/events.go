// Package analytics records how dashboard users filter the listing
// collection. Sessions emit FilterEvents to a Collector, which publishes them
// to Kafka; an Aggregator consumes the topic and serves rolling statistics.
package analytics

import (
	"sort"
	"strings"
	"time"
)

type EventType string

const (
	EventSessionOpen  EventType = "session_open"
	EventFilterChange EventType = "filter_change"
	EventStatusChange EventType = "status_change"
	EventReset        EventType = "reset"
	EventReload       EventType = "reload"
	EventSessionClose EventType = "session_close"
)

// FilterEvent describes one state transition of a dashboard view. Filters
// holds the non-default filter values after the transition.
type FilterEvent struct {
	Type      EventType         `json:"type"`
	SessionID string            `json:"session_id"`
	Dimension string            `json:"dimension,omitempty"`
	Value     string            `json:"value,omitempty"`
	Status    string            `json:"status,omitempty"`
	Filters   map[string]string `json:"filters,omitempty"`
	Visible   int               `json:"visible"`
	Total     int               `json:"total"`
	RequestID string            `json:"request_id,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Combination renders Filters as a stable "k=v&k=v" key, or "" when no
// filter is active.
func (e FilterEvent) Combination() string {
	if len(e.Filters) == 0 {
		return ""
	}
	keys := make([]string, 0, len(e.Filters))
	for k := range e.Filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + e.Filters[k]
	}
	return strings.Join(parts, "&")
}
