// Package circuitbreaker guards calls to a flaky collaborator. The chat
// client wraps its send API calls with one so a dead backend fails fast
// instead of stacking up timed-out sends.
package circuitbreaker

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// State is the breaker state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// OpenError is returned when a call is rejected without being attempted.
type OpenError struct {
	Name string
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("circuit breaker %q is open", e.Name)
}

// CircuitBreaker trips open after maxFailures consecutive failures and stays
// open for the cooldown period. The first call after the cooldown probes the
// collaborator: success closes the breaker, failure reopens it.
type CircuitBreaker struct {
	name        string
	maxFailures int
	cooldown    time.Duration

	mu          sync.Mutex
	state       State
	failures    int
	openedAt    time.Time
	probing     bool
	clock       func() time.Time
	logger      *logrus.Logger
}

func New(name string, maxFailures int, cooldown time.Duration, logger *logrus.Logger) *CircuitBreaker {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &CircuitBreaker{
		name:        name,
		maxFailures: maxFailures,
		cooldown:    cooldown,
		clock:       time.Now,
		logger:      logger,
	}
}

// Allow reports whether a call may proceed, transitioning open to half-open
// when the cooldown has elapsed. Each Allow that returns true while half-open
// claims the probe slot; concurrent callers are rejected until it resolves.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return nil
	case StateOpen:
		if cb.clock().Sub(cb.openedAt) < cb.cooldown {
			return &OpenError{Name: cb.name}
		}
		cb.state = StateHalfOpen
		cb.probing = true
		cb.logger.WithField("breaker", cb.name).Info("Circuit breaker half-open, probing")
		return nil
	case StateHalfOpen:
		if cb.probing {
			return &OpenError{Name: cb.name}
		}
		cb.probing = true
		return nil
	default:
		return &OpenError{Name: cb.name}
	}
}

// Record reports the outcome of a call previously admitted by Allow.
func (cb *CircuitBreaker) Record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil {
		if cb.state != StateClosed {
			cb.logger.WithField("breaker", cb.name).Info("Circuit breaker closed")
		}
		cb.state = StateClosed
		cb.failures = 0
		cb.probing = false
		return
	}

	cb.failures++
	cb.probing = false

	if cb.state == StateHalfOpen || cb.failures >= cb.maxFailures {
		cb.state = StateOpen
		cb.openedAt = cb.clock()
		cb.logger.WithFields(logrus.Fields{
			"breaker":  cb.name,
			"failures": cb.failures,
		}).Warn("Circuit breaker opened")
	}
}

// GetState returns the current state.
func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
