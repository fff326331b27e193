// Package statistics aggregates generation outcomes in memory and optionally
// logs them to PostgreSQL.
package statistics

import (
	"context"
	"fmt"
	"time"
)

// New creates an empty aggregate.
func New() *Statistics {
	return &Statistics{
		Requests: RequestStats{
			RequestsByHour: make(map[int]uint64),
		},
		Generations: GenerationStats{
			ByBackend: make(map[string]*DurationStats),
			ByType:    make(map[string]uint64),
		},
	}
}

// TrackRequest records an HTTP request.
func (s *Statistics) TrackRequest(duration time.Duration, success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.Requests.TotalRequests++
	if success {
		s.Requests.SuccessRequests++
	} else {
		s.Requests.FailedRequests++
	}
	s.Requests.Durations.add(duration)
	s.Requests.RequestsByHour[now.Hour()]++
	s.Requests.LastUpdated = now
}

// RecordGeneration implements Recorder.
func (s *Statistics) RecordGeneration(_ context.Context, g Generation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	gs := &s.Generations
	gs.Total++
	if g.FellBack {
		gs.Fallbacks++
	}
	if g.DocumentType != "" {
		gs.ByType[g.DocumentType]++
	}

	backend, ok := gs.ByBackend[g.Backend]
	if !ok {
		backend = &DurationStats{}
		gs.ByBackend[g.Backend] = backend
	}
	backend.add(g.Duration)

	if !g.Success {
		gs.Failed++
		gs.LastError = g.Error
	} else {
		size := int64(g.SizeBytes)
		gs.TotalSize += size
		if gs.MinSize == 0 || size < gs.MinSize {
			gs.MinSize = size
		}
		if size > gs.MaxSize {
			gs.MaxSize = size
		}
		gs.TotalPages += uint64(g.Pages)
	}

	gs.LastAt = g.Timestamp
	s.Requests.LastUpdated = time.Now()
}

// Summary returns the API view of the aggregate.
func (s *Statistics) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out Summary

	out.Requests.Total = s.Requests.TotalRequests
	out.Requests.Success = s.Requests.SuccessRequests
	out.Requests.Failed = s.Requests.FailedRequests
	out.Requests.AverageDuration = s.Requests.Durations.average().String()
	out.Requests.ByHourOfDay = make(map[string]uint64, len(s.Requests.RequestsByHour))
	for hour, count := range s.Requests.RequestsByHour {
		out.Requests.ByHourOfDay[fmt.Sprintf("%02d:00", hour)] = count
	}

	gs := s.Generations
	out.Generations.Total = gs.Total
	out.Generations.Failed = gs.Failed
	out.Generations.Fallbacks = gs.Fallbacks
	if gs.Total > 0 {
		out.Generations.FallbackRate = float64(gs.Fallbacks) / float64(gs.Total)
	}
	out.Generations.ByBackend = make(map[string]BackendSummary, len(gs.ByBackend))
	for name, d := range gs.ByBackend {
		out.Generations.ByBackend[name] = BackendSummary{
			Count:           d.Count,
			AverageDuration: d.average().String(),
			MinDuration:     d.MinDuration.String(),
			MaxDuration:     d.MaxDuration.String(),
		}
	}
	out.Generations.ByType = make(map[string]uint64, len(gs.ByType))
	for t, n := range gs.ByType {
		out.Generations.ByType[t] = n
	}
	out.Generations.LastError = gs.LastError

	succeeded := gs.Total - gs.Failed
	out.PDF.TotalSize = formatBytes(gs.TotalSize)
	out.PDF.MinSize = formatBytes(gs.MinSize)
	out.PDF.MaxSize = formatBytes(gs.MaxSize)
	if succeeded > 0 {
		out.PDF.AverageSize = formatBytes(gs.TotalSize / int64(succeeded))
		out.Generations.AveragePages = float64(gs.TotalPages) / float64(succeeded)
	} else {
		out.PDF.AverageSize = formatBytes(0)
	}

	out.LastUpdated = s.Requests.LastUpdated
	return out
}

// Multi fans a record out to several recorders.
type Multi []Recorder

func (m Multi) RecordGeneration(ctx context.Context, g Generation) {
	for _, r := range m {
		r.RecordGeneration(ctx, g)
	}
}

// formatBytes renders a byte count in human units.
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
