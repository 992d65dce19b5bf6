package circuit

import (
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// State is gobreaker's breaker state.
type State = gobreaker.State

const (
	StateClosed   = gobreaker.StateClosed
	StateOpen     = gobreaker.StateOpen
	StateHalfOpen = gobreaker.StateHalfOpen
)

var (
	ErrCircuitOpen     = gobreaker.ErrOpenState
	ErrTooManyRequests = gobreaker.ErrTooManyRequests
)

// Config defines circuit breaker configuration
type Config struct {
	Threshold   int           // Consecutive failures before opening
	Timeout     time.Duration // Open duration before a half-open trial call
	MaxHalfOpen int           // Max concurrent requests in half-open
}

func DefaultConfig() Config {
	return Config{
		Threshold:   5,
		Timeout:     30 * time.Second,
		MaxHalfOpen: 1,
	}
}

// Breaker guards calls to an upstream that returns T.
type Breaker[T any] struct {
	cb     *gobreaker.CircuitBreaker[T]
	name   string
	logger *zap.Logger
}

// IsSuccessful lets callers exclude expected outcomes (a 404 from an
// upstream, say) from the failure count.
type IsSuccessful func(err error) bool

func NewBreaker[T any](name string, config Config, logger *zap.Logger, isSuccessful IsSuccessful) *Breaker[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	threshold := uint32(max(config.Threshold, 1))

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: uint32(max(config.MaxHalfOpen, 1)),
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}
	if isSuccessful != nil {
		settings.IsSuccessful = isSuccessful
	}

	return &Breaker[T]{
		cb:     gobreaker.NewCircuitBreaker[T](settings),
		name:   name,
		logger: logger,
	}
}

// Execute runs fn unless the circuit is open.
func (b *Breaker[T]) Execute(fn func() (T, error)) (T, error) {
	return b.cb.Execute(fn)
}

func (b *Breaker[T]) State() State {
	return b.cb.State()
}

func (b *Breaker[T]) IsOpen() bool {
	return b.cb.State() == StateOpen
}

// IsRejected reports whether err came from the breaker itself.
func IsRejected(err error) bool {
	return errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrTooManyRequests)
}

func (b *Breaker[T]) Stats() map[string]interface{} {
	counts := b.cb.Counts()
	return map[string]interface{}{
		"name":                 b.name,
		"state":                b.cb.State().String(),
		"requests":             counts.Requests,
		"consecutive_failures": counts.ConsecutiveFailures,
	}
}
