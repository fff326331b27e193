package circuitbreaker

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// State is the breaker state.
type State int

const (
	StateClosed   State = iota // calls pass through
	StateOpen                  // calls are rejected
	StateHalfOpen              // a limited number of probe calls pass
)

var (
	// ErrCircuitOpen is returned without calling the protected function.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	circuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current state of the circuit breaker (0: Closed, 1: Open, 2: Half-Open)",
		},
		[]string{"name", "pod_name", "namespace"},
	)

	circuitBreakerFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures detected by circuit breaker",
		},
		[]string{"name", "pod_name", "namespace"},
	)

	circuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests passed through circuit breaker",
		},
		[]string{"name", "pod_name", "namespace", "status"},
	)

	circuitBreakerRecoveryTime = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "circuit_breaker_recovery_duration_seconds",
			Help:    "Time taken to recover from Open to Closed state",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"name", "pod_name", "namespace"},
	)
)

// Config configures a CircuitBreaker.
type Config struct {
	Name             string        // label in metrics and logs
	FailureThreshold int           // consecutive failures before opening
	ResetTimeout     time.Duration // time spent open before probing
	HalfOpenMaxCalls int           // probe calls allowed while half-open
	SuccessThreshold int           // probe successes needed to close
	PodName          string
	Namespace        string

	// IsFailure decides whether an error counts against the breaker.
	// Nil counts every non-nil error except context cancellation by the caller.
	IsFailure func(error) bool
	Logger    *zap.Logger
}

// CircuitBreaker guards a flaky dependency such as the rendering engine.
type CircuitBreaker struct {
	config Config
	state  State

	failures        int
	successes       int
	halfOpenCalls   int
	lastStateChange time.Time
	openStartTime   time.Time

	mu sync.RWMutex
}

// NewCircuitBreaker creates a closed breaker.
func NewCircuitBreaker(config Config) *CircuitBreaker {
	if config.PodName == "" {
		config.PodName = os.Getenv("HOSTNAME")
	}
	if config.Namespace == "" {
		config.Namespace = os.Getenv("POD_NAMESPACE")
	}
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.HalfOpenMaxCalls <= 0 {
		config.HalfOpenMaxCalls = 1
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 1
	}
	if config.IsFailure == nil {
		config.IsFailure = defaultIsFailure
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	cb := &CircuitBreaker{
		config:          config,
		state:           StateClosed,
		lastStateChange: time.Now(),
	}
	circuitBreakerState.With(cb.labels()).Set(float64(StateClosed))
	return cb
}

func defaultIsFailure(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled)
}

// Execute runs fn if the breaker allows it and records the outcome.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if !cb.allowRequest() {
		circuitBreakerRequests.WithLabelValues(cb.config.Name, cb.config.PodName, cb.config.Namespace, "rejected").Inc()
		return ErrCircuitOpen
	}

	err := fn(ctx)
	cb.handleResult(err)

	if err != nil {
		circuitBreakerRequests.WithLabelValues(cb.config.Name, cb.config.PodName, cb.config.Namespace, "failure").Inc()
		return err
	}

	circuitBreakerRequests.WithLabelValues(cb.config.Name, cb.config.PodName, cb.config.Namespace, "success").Inc()
	return nil
}

func (cb *CircuitBreaker) allowRequest() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		if time.Since(cb.lastStateChange) > cb.config.ResetTimeout {
			cb.setState(StateHalfOpen)
			cb.halfOpenCalls++
			return true
		}
		return false
	case StateHalfOpen:
		if cb.halfOpenCalls >= cb.config.HalfOpenMaxCalls {
			return false
		}
		cb.halfOpenCalls++
		return true
	default:
		return false
	}
}

func (cb *CircuitBreaker) handleResult(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil {
		cb.onSuccess()
		return
	}
	if !cb.config.IsFailure(err) {
		// Not the dependency's fault; release the probe slot without judging.
		if cb.state == StateHalfOpen && cb.halfOpenCalls > 0 {
			cb.halfOpenCalls--
		}
		return
	}
	cb.onFailure()
}

func (cb *CircuitBreaker) onFailure() {
	circuitBreakerFailures.WithLabelValues(cb.config.Name, cb.config.PodName, cb.config.Namespace).Inc()

	switch cb.state {
	case StateClosed:
		cb.failures++
		if cb.failures >= cb.config.FailureThreshold {
			cb.setState(StateOpen)
		}
	case StateHalfOpen:
		cb.setState(StateOpen)
	}
}

func (cb *CircuitBreaker) onSuccess() {
	switch cb.state {
	case StateClosed:
		cb.failures = 0
	case StateHalfOpen:
		cb.successes++
		if cb.successes >= cb.config.SuccessThreshold {
			cb.setState(StateClosed)
		}
	}
}

// setState must be called with mu held.
func (cb *CircuitBreaker) setState(next State) {
	prev := cb.state
	cb.state = next
	cb.lastStateChange = time.Now()
	cb.failures = 0
	cb.successes = 0
	cb.halfOpenCalls = 0

	labels := cb.labels()
	circuitBreakerState.With(labels).Set(float64(next))

	switch next {
	case StateOpen:
		cb.openStartTime = cb.lastStateChange
	case StateClosed:
		if !cb.openStartTime.IsZero() {
			circuitBreakerRecoveryTime.With(labels).Observe(time.Since(cb.openStartTime).Seconds())
			cb.openStartTime = time.Time{}
		}
	}

	cb.config.Logger.Info("circuit breaker state changed",
		zap.String("breaker", cb.config.Name),
		zap.String("from", prev.String()),
		zap.String("to", next.String()),
	)
}

func (cb *CircuitBreaker) labels() prometheus.Labels {
	return prometheus.Labels{
		"name":      cb.config.Name,
		"pod_name":  cb.config.PodName,
		"namespace": cb.config.Namespace,
	}
}

// State returns the current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// IsHealthy reports whether the breaker would let a call through right now.
func (cb *CircuitBreaker) IsHealthy() bool {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	switch cb.state {
	case StateClosed:
		return true
	case StateHalfOpen:
		return cb.halfOpenCalls < cb.config.HalfOpenMaxCalls
	default:
		return time.Since(cb.lastStateChange) > cb.config.ResetTimeout
	}
}

func (s State) String() string {
	switch s {
	case StateClosed:
		return "Closed"
	case StateOpen:
		return "Open"
	case StateHalfOpen:
		return "HalfOpen"
	default:
		return "Unknown"
	}
}
