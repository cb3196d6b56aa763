package healthcheck

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// MockChecker provides a configurable mock checker for testing
type MockChecker struct {
	name      string
	status    Status
	message   string
	delay     time.Duration
	callCount int
	mu        sync.Mutex
}

func NewMockChecker(name string) *MockChecker {
	return &MockChecker{name: name, status: StatusHealthy}
}

func (m *MockChecker) WithStatus(status Status) *MockChecker {
	m.status = status
	return m
}

func (m *MockChecker) WithMessage(message string) *MockChecker {
	m.message = message
	return m
}

func (m *MockChecker) WithDelay(delay time.Duration) *MockChecker {
	m.delay = delay
	return m
}

func (m *MockChecker) Check(ctx context.Context) Check {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()

	start := time.Now()
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return Check{Name: m.name, Status: StatusUnhealthy, Message: "Context cancelled", LastChecked: start}
		}
	}

	return Check{
		Name:        m.name,
		Status:      m.status,
		Message:     m.message,
		LastChecked: start,
		Duration:    time.Since(start),
	}
}

func (m *MockChecker) GetCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

// fakeClock drives CircuitBreaker timeouts
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 3,
		SuccessThreshold: 2,
		Timeout:          time.Minute,
		MaxRequests:      2,
	}
}

func newTestBreaker(config CircuitBreakerConfig) (*CircuitBreaker, *fakeClock) {
	clock := newFakeClock()
	cb := NewCircuitBreaker("test", config)
	cb.now = clock.Now
	return cb, clock
}

func AssertCheckResult(t *testing.T, check Check, expectedStatus Status, expectedName string) {
	require.Equal(t, expectedName, check.Name, "Check name mismatch")
	require.Equal(t, expectedStatus, check.Status, "Check status mismatch")
	require.NotZero(t, check.LastChecked, "LastChecked should be set")
	require.True(t, check.Duration >= 0, "Duration should be non-negative")
}
