package cache

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, ttl time.Duration) (*Cache, Metrics) {
	t.Helper()
	m := NewMetrics(prometheus.NewRegistry())
	c := NewCacheWithMetrics(ttl, m)
	t.Cleanup(c.Close)
	return c, m
}

func TestCache(t *testing.T) {
	ctx := context.Background()

	t.Run("Set and Get", func(t *testing.T) {
		c, _ := newTestCache(t, time.Minute)
		c.Set("logo:EHI", []byte("png"))

		got, err := c.Get(ctx, "logo:EHI")
		require.NoError(t, err)
		assert.Equal(t, []byte("png"), got)
	})

	t.Run("Expiration", func(t *testing.T) {
		c, _ := newTestCache(t, 50*time.Millisecond)
		c.Set("qr:RPT-1", []byte("png"))
		time.Sleep(80 * time.Millisecond)

		_, err := c.Get(ctx, "qr:RPT-1")
		assert.ErrorIs(t, err, ErrMiss)
	})

	t.Run("Delete", func(t *testing.T) {
		c, _ := newTestCache(t, time.Minute)
		c.Set("k", []byte("v"))
		c.Delete(ctx, "k")

		_, err := c.Get(ctx, "k")
		assert.ErrorIs(t, err, ErrMiss)
	})
}

func TestCache_GetOrLoad(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	var calls atomic.Int32
	load := func(context.Context) ([]byte, error) {
		calls.Add(1)
		time.Sleep(10 * time.Millisecond)
		return []byte("scaled"), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.GetOrLoad(ctx, "logo:default", load)
			assert.NoError(t, err)
			assert.Equal(t, []byte("scaled"), v)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestCache_GetOrLoadDoesNotCacheErrors(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	ctx := context.Background()
	boom := errors.New("decode failed")

	_, err := c.GetOrLoad(ctx, "logo:bad", func(context.Context) ([]byte, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)

	v, err := c.GetOrLoad(ctx, "logo:bad", func(context.Context) ([]byte, error) { return []byte("ok"), nil })
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), v)
}

func TestCacheMetrics(t *testing.T) {
	c, m := newTestCache(t, time.Minute)
	ctx := context.Background()

	c.Set("a", []byte("1234"))
	c.Set("b", []byte("12"))
	_, _ = c.Get(ctx, "a")
	_, _ = c.Get(ctx, "missing")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Hits))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Misses))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.Size.WithLabelValues("a")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Items))

	c.Delete(ctx, "a")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Items))

	c.Clear(ctx)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Items))
}

func TestCacheUnderLoad(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	data := make([]byte, 1024*1024)
	_, err := rand.Read(data)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			key := fmt.Sprintf("asset_%d", id)
			c.Set(key, data)
			got, err := c.Get(ctx, key)
			if assert.NoError(t, err) {
				assert.True(t, bytes.Equal(got, data))
			}
		}(i)
	}
	wg.Wait()
}
