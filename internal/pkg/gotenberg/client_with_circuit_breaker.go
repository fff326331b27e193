package gotenberg

import (
	"context"

	"report-service-go/internal/pkg/circuitbreaker"
)

// ClientWithCircuitBreaker guards a Client with a circuit breaker. The breaker
// is passed in so every session of a pool shares it.
type ClientWithCircuitBreaker struct {
	client *Client
	cb     *circuitbreaker.CircuitBreaker
}

// NewClientWithCircuitBreaker wraps client with cb.
func NewClientWithCircuitBreaker(client *Client, cb *circuitbreaker.CircuitBreaker) *ClientWithCircuitBreaker {
	return &ClientWithCircuitBreaker{
		client: client,
		cb:     cb,
	}
}

// ConvertHTML converts through the breaker. An open breaker fails with
// circuitbreaker.ErrCircuitOpen without contacting the engine.
func (c *ClientWithCircuitBreaker) ConvertHTML(ctx context.Context, req HTMLRequest) ([]byte, error) {
	var result []byte
	err := c.cb.Execute(ctx, func(ctx context.Context) error {
		var err error
		result, err = c.client.ConvertHTML(ctx, req)
		return err
	})
	return result, err
}

// HealthCheck also goes through the breaker, so starting sessions against a
// dead engine trips it.
func (c *ClientWithCircuitBreaker) HealthCheck(ctx context.Context) error {
	return c.cb.Execute(ctx, c.client.HealthCheck)
}

func (c *ClientWithCircuitBreaker) Close() {
	c.client.Close()
}

// State returns the breaker state.
func (c *ClientWithCircuitBreaker) State() circuitbreaker.State {
	return c.cb.State()
}

// IsHealthy returns true unless the breaker is open.
func (c *ClientWithCircuitBreaker) IsHealthy() bool {
	return c.cb.IsHealthy()
}
