package statistics

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatistics_RecordGeneration(t *testing.T) {
	s := New()
	ctx := context.Background()

	s.RecordGeneration(ctx, Generation{Backend: "primary", Success: true, Duration: time.Second, SizeBytes: 2048, Pages: 1, DocumentType: "lab-inspection"})
	s.RecordGeneration(ctx, Generation{Backend: "fallback", Success: true, FellBack: true, Duration: 3 * time.Second, SizeBytes: 1024, Pages: 3, DocumentType: "lab-inspection"})
	s.RecordGeneration(ctx, Generation{Backend: "none", FellBack: true, Duration: time.Second, Error: "both failed", DocumentType: "compliance-audit"})

	sum := s.Summary()
	assert.Equal(t, uint64(3), sum.Generations.Total)
	assert.Equal(t, uint64(1), sum.Generations.Failed)
	assert.Equal(t, uint64(2), sum.Generations.Fallbacks)
	assert.InDelta(t, 2.0/3.0, sum.Generations.FallbackRate, 1e-9)
	assert.Equal(t, uint64(1), sum.Generations.ByBackend["primary"].Count)
	assert.Equal(t, "3s", sum.Generations.ByBackend["fallback"].AverageDuration)
	assert.Equal(t, uint64(2), sum.Generations.ByType["lab-inspection"])
	assert.Equal(t, "both failed", sum.Generations.LastError)
	assert.Equal(t, 2.0, sum.Generations.AveragePages)

	assert.Equal(t, "3.0 KB", sum.PDF.TotalSize)
	assert.Equal(t, "1.0 KB", sum.PDF.MinSize)
	assert.Equal(t, "2.0 KB", sum.PDF.MaxSize)
	assert.Equal(t, "1.5 KB", sum.PDF.AverageSize)
}

func TestStatistics_TrackRequest(t *testing.T) {
	s := New()
	s.TrackRequest(100*time.Millisecond, true)
	s.TrackRequest(300*time.Millisecond, false)

	sum := s.Summary()
	assert.Equal(t, uint64(2), sum.Requests.Total)
	assert.Equal(t, uint64(1), sum.Requests.Success)
	assert.Equal(t, uint64(1), sum.Requests.Failed)
	assert.Equal(t, "200ms", sum.Requests.AverageDuration)
	assert.False(t, sum.LastUpdated.IsZero())
}

func TestStatistics_Concurrent(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.RecordGeneration(context.Background(), Generation{Backend: "primary", Success: true, SizeBytes: 10})
			s.TrackRequest(time.Millisecond, true)
			_ = s.Summary()
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(50), s.Summary().Generations.Total)
}

func TestMulti(t *testing.T) {
	a, b := New(), New()
	Multi{a, b}.RecordGeneration(context.Background(), Generation{Backend: "primary", Success: true})

	assert.Equal(t, uint64(1), a.Summary().Generations.Total)
	assert.Equal(t, uint64(1), b.Summary().Generations.Total)
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.0 KB", formatBytes(1024))
	assert.Equal(t, "1.5 MB", formatBytes(1536*1024))
}

func TestGenerationArgs(t *testing.T) {
	ts := time.Date(2024, 3, 5, 14, 30, 0, 0, time.FixedZone("PKT", 5*3600))
	args := generationArgs(Generation{ID: "id", Timestamp: ts, Backend: "fallback", Duration: time.Second, PrimaryError: "engine down"})

	require.Len(t, args, 12)
	assert.Equal(t, ts.UTC(), args[1])
	assert.Equal(t, int64(time.Second), args[7])
	assert.Equal(t, nullString("engine down"), args[10])
	assert.Equal(t, sql.NullString{}, args[11])
	assert.False(t, nullString("").Valid)
}

func TestPostgresDB_Integration(t *testing.T) {
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}
	ctx := context.Background()

	db, err := NewPostgresDB(ctx, dsn, nil)
	require.NoError(t, err)
	defer db.Close()

	since := time.Now().Add(-time.Second)
	db.RecordGeneration(ctx, Generation{
		ID: uuid.NewString(), Timestamp: time.Now(), ReportNumber: "EHI-LAB-1",
		DocumentType: "lab-inspection", Backend: "fallback", Success: true, FellBack: true,
		Duration: time.Second, SizeBytes: 1000, Pages: 1, PrimaryError: "engine down",
	})

	counts, err := db.BackendCounts(ctx, since)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, counts["fallback"], uint64(1))
}
