package statistics

import (
	"context"
	"time"
)

// Recorder stores generation records. Implementations log their own errors;
// a failed write never fails a generation.
type Recorder interface {
	RecordGeneration(ctx context.Context, g Generation)
}

// Log is a queryable generation log.
type Log interface {
	Recorder
	// BackendCounts returns generations per backend since the given time.
	BackendCounts(ctx context.Context, since time.Time) (map[string]uint64, error)
	Close() error
}
