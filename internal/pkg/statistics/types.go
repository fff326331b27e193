package statistics

import (
	"sync"
	"time"
)

// Generation is the record of one finished generation.
type Generation struct {
	ID           string
	ReportNumber string
	DocumentType string
	// Backend is "primary", "fallback" or "none" when both renderers failed.
	Backend      string
	Success      bool
	FellBack     bool
	Duration     time.Duration
	SizeBytes    int
	Pages        int
	PrimaryError string
	Error        string
	Timestamp    time.Time
}

// DurationStats aggregates durations.
type DurationStats struct {
	Count         uint64
	TotalDuration time.Duration
	MinDuration   time.Duration
	MaxDuration   time.Duration
}

func (d *DurationStats) add(v time.Duration) {
	d.Count++
	d.TotalDuration += v
	if d.MinDuration == 0 || v < d.MinDuration {
		d.MinDuration = v
	}
	if v > d.MaxDuration {
		d.MaxDuration = v
	}
}

func (d DurationStats) average() time.Duration {
	if d.Count == 0 {
		return 0
	}
	return d.TotalDuration / time.Duration(d.Count)
}

// RequestStats aggregates HTTP requests.
type RequestStats struct {
	TotalRequests   uint64
	SuccessRequests uint64
	FailedRequests  uint64
	Durations       DurationStats
	RequestsByHour  map[int]uint64
	LastUpdated     time.Time
}

// GenerationStats aggregates generations.
type GenerationStats struct {
	Total      uint64
	Failed     uint64
	Fallbacks  uint64
	ByBackend  map[string]*DurationStats
	ByType     map[string]uint64
	TotalSize  int64
	MinSize    int64
	MaxSize    int64
	TotalPages uint64
	LastError  string
	LastAt     time.Time
}

// Statistics is a thread-safe in-memory aggregate.
type Statistics struct {
	mu          sync.RWMutex
	Requests    RequestStats
	Generations GenerationStats
}

// BackendSummary is the per-backend part of Summary.
type BackendSummary struct {
	Count           uint64 `json:"count"`
	AverageDuration string `json:"average_duration"`
	MinDuration     string `json:"min_duration"`
	MaxDuration     string `json:"max_duration"`
}

// Summary is the API view of the statistics.
type Summary struct {
	Requests struct {
		Total           uint64            `json:"total"`
		Success         uint64            `json:"success"`
		Failed          uint64            `json:"failed"`
		AverageDuration string            `json:"average_duration"`
		ByHourOfDay     map[string]uint64 `json:"by_hour_of_day"`
	} `json:"requests"`

	Generations struct {
		Total        uint64                    `json:"total"`
		Failed       uint64                    `json:"failed"`
		Fallbacks    uint64                    `json:"fallbacks"`
		FallbackRate float64                   `json:"fallback_rate"`
		ByBackend    map[string]BackendSummary `json:"by_backend"`
		ByType       map[string]uint64         `json:"by_type"`
		AveragePages float64                   `json:"average_pages"`
		LastError    string                    `json:"last_error,omitempty"`
	} `json:"generations"`

	PDF struct {
		TotalSize   string `json:"total_size"`
		MinSize     string `json:"min_size"`
		MaxSize     string `json:"max_size"`
		AverageSize string `json:"average_size"`
	} `json:"pdf"`

	LastUpdated time.Time `json:"last_updated"`
}
