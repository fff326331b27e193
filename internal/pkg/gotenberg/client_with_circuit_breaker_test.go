package gotenberg

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"report-service-go/internal/pkg/circuitbreaker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientWithCircuitBreaker_OpensOnFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cb := circuitbreaker.NewCircuitBreaker(circuitbreaker.Config{
		Name:             "gotenberg-test",
		FailureThreshold: 3,
		ResetTimeout:     time.Hour,
	})
	client := NewClientWithCircuitBreaker(NewClient(srv.URL, time.Second), cb)
	defer client.Close()

	assert.Equal(t, circuitbreaker.StateClosed, client.State())

	for i := 0; i < 3; i++ {
		_, err := client.ConvertHTML(context.Background(), HTMLRequest{HTML: "<p>x</p>"})
		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr)
	}

	assert.Equal(t, circuitbreaker.StateOpen, client.State())
	assert.False(t, client.IsHealthy())

	_, err := client.ConvertHTML(context.Background(), HTMLRequest{HTML: "<p>x</p>"})
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
	assert.ErrorIs(t, client.HealthCheck(context.Background()), circuitbreaker.ErrCircuitOpen)
}

func TestClientWithCircuitBreaker_SharedBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cb := circuitbreaker.NewCircuitBreaker(circuitbreaker.Config{
		Name:             "gotenberg-shared",
		FailureThreshold: 2,
		ResetTimeout:     time.Hour,
	})
	first := NewClientWithCircuitBreaker(NewClient(srv.URL, time.Second), cb)
	second := NewClientWithCircuitBreaker(NewClient(srv.URL, time.Second), cb)

	assert.Error(t, first.HealthCheck(context.Background()))
	assert.Error(t, second.HealthCheck(context.Background()))

	_, err := second.ConvertHTML(context.Background(), HTMLRequest{HTML: "<p>x</p>"})
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
	assert.Equal(t, circuitbreaker.StateOpen, first.State())
}

func TestClientWithCircuitBreaker_PassesThrough(t *testing.T) {
	_, inner := newEngine(t)
	cb := circuitbreaker.NewCircuitBreaker(circuitbreaker.Config{Name: "gotenberg-ok"})
	client := NewClientWithCircuitBreaker(inner, cb)

	require.NoError(t, client.HealthCheck(context.Background()))
	pdf, err := client.ConvertHTML(context.Background(), HTMLRequest{HTML: "<p>x</p>"})
	require.NoError(t, err)
	assert.NotEmpty(t, pdf)
	assert.True(t, client.IsHealthy())
}
