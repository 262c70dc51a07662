package notification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// ErrCircuitOpen возвращается, пока предохранитель почтового провайдера разомкнут.
var ErrCircuitOpen = errors.New("mailer circuit breaker is open")

// RetryConfig — политика повторов отправки письма.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig: три попытки, пауза от 100ms с удвоением, не больше 5s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2,
	}
}

// pause возвращает задержку перед попыткой attempt+1.
func (c RetryConfig) pause(attempt int) time.Duration {
	d := float64(c.InitialDelay)
	for range attempt - 1 {
		d *= c.BackoffFactor
	}
	delay := time.Duration(d)
	if c.MaxDelay > 0 && delay > c.MaxDelay {
		return c.MaxDelay
	}
	return delay
}

// RetryingMailer повторяет отправку, пока провайдер отвечает ErrTransient.
type RetryingMailer struct {
	next   Mailer
	policy RetryConfig
	logger *log.Entry
}

func NewRetryingMailer(next Mailer, policy RetryConfig, logger *log.Entry) *RetryingMailer {
	if logger == nil {
		logger = log.WithField("component", "retrying-mailer")
	}
	policy.MaxAttempts = max(policy.MaxAttempts, 1)
	policy.BackoffFactor = max(policy.BackoffFactor, 1)
	return &RetryingMailer{next: next, policy: policy, logger: logger}
}

func (m *RetryingMailer) Send(ctx context.Context, msg Message) error {
	for attempt := 1; ; attempt++ {
		err := m.next.Send(ctx, msg)
		switch {
		case err == nil:
			if attempt > 1 {
				m.logger.WithFields(log.Fields{"to": msg.To, "attempt": attempt}).Info("mail sent after retry")
			}
			return nil
		case !errors.Is(err, ErrTransient):
			return err
		case attempt == m.policy.MaxAttempts:
			return fmt.Errorf("send failed after %d attempts: %w", attempt, err)
		}

		delay := m.policy.pause(attempt)
		m.logger.WithError(err).WithFields(log.Fields{
			"to":      msg.To,
			"attempt": attempt,
			"delay":   delay,
		}).Warn("mail delivery failed, retrying")

		if err := sleepCtx(ctx, delay); err != nil {
			return err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// CircuitState — состояние предохранителя.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return fmt.Sprintf("CircuitState(%d)", int(s))
	}
}

// CircuitBreaker размыкается после threshold неудач подряд. Через cooldown
// пропускается ровно один пробный вызов: успех замыкает цепь, неудача снова размыкает.
type CircuitBreaker struct {
	threshold int
	cooldown  time.Duration
	now       func() time.Time
	logger    *log.Entry

	mu       sync.Mutex
	state    CircuitState
	streak   int
	openedAt time.Time
	probing  bool
}

func NewCircuitBreaker(threshold int, cooldown time.Duration, logger *log.Entry) *CircuitBreaker {
	if logger == nil {
		logger = log.WithField("component", "circuit-breaker")
	}
	return &CircuitBreaker{
		threshold: max(threshold, 1),
		cooldown:  cooldown,
		now:       time.Now,
		logger:    logger,
	}
}

func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Execute вызывает fn, если цепь это позволяет.
func (cb *CircuitBreaker) Execute(operation string, fn func() error) error {
	if err := cb.acquire(operation); err != nil {
		return err
	}
	err := fn()
	cb.release(operation, err)
	return err
}

func (cb *CircuitBreaker) acquire(operation string) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CircuitOpen {
		if cb.now().Sub(cb.openedAt) < cb.cooldown {
			return ErrCircuitOpen
		}
		cb.transition(operation, CircuitHalfOpen)
	}
	if cb.state == CircuitHalfOpen {
		if cb.probing {
			return ErrCircuitOpen
		}
		cb.probing = true
	}
	return nil
}

func (cb *CircuitBreaker) release(operation string, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.probing = false
	if err == nil {
		cb.streak = 0
		cb.transition(operation, CircuitClosed)
		return
	}

	cb.streak++
	if cb.state == CircuitHalfOpen || cb.streak >= cb.threshold {
		cb.openedAt = cb.now()
		cb.transition(operation, CircuitOpen)
	}
}

func (cb *CircuitBreaker) transition(operation string, to CircuitState) {
	if cb.state == to {
		return
	}
	cb.logger.WithFields(log.Fields{
		"operation": operation,
		"from":      cb.state.String(),
		"to":        to.String(),
		"failures":  cb.streak,
	}).Warn("circuit breaker state changed")
	cb.state = to
}

// BreakerMailer пропускает отправку через CircuitBreaker. Цепь размыкают только
// временные ошибки провайдера: неверный адрес её не трогает.
type BreakerMailer struct {
	next    Mailer
	breaker *CircuitBreaker
}

func NewBreakerMailer(next Mailer, breaker *CircuitBreaker) *BreakerMailer {
	return &BreakerMailer{next: next, breaker: breaker}
}

func (m *BreakerMailer) Send(ctx context.Context, msg Message) error {
	var permanent error
	err := m.breaker.Execute("send", func() error {
		err := m.next.Send(ctx, msg)
		if err != nil && !errors.Is(err, ErrTransient) {
			permanent = err
			return nil
		}
		return err
	})
	if permanent != nil {
		return permanent
	}
	return err
}
