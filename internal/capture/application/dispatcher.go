package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/vigil/internal/capture/domain"
	"github.com/felixgeelhaar/vigil/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/vigil/pkg/observability"
	"github.com/sony/gobreaker/v2"
)

// ErrDispatchUnavailable is returned while the breaker is open.
var ErrDispatchUnavailable = errors.New("capture: dispatch unavailable")

// BreakerConfig configures the dispatcher circuit breaker.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens the breaker.
	FailureThreshold uint32
	// Timeout is how long the breaker stays open before probing again.
	Timeout time.Duration
	// MaxRequests is the number of probes allowed while half-open.
	MaxRequests uint32
}

// DefaultBreakerConfig returns production breaker settings.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{FailureThreshold: 5, Timeout: 30 * time.Second, MaxRequests: 1}
}

// Dispatcher turns scheduler firings into capture requests on the event bus.
// The agents running the sessions perform the actual capture and upload.
type Dispatcher struct {
	publisher eventbus.Publisher
	breaker   *gobreaker.CircuitBreaker[any]
	logger    *slog.Logger
	now       func() time.Time
}

// NewDispatcher creates a dispatcher publishing through publisher.
func NewDispatcher(publisher eventbus.Publisher, cfg BreakerConfig, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = DefaultBreakerConfig().FailureThreshold
	}
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 1
	}

	settings := gobreaker.Settings{
		Name:        "capture-dispatch",
		MaxRequests: cfg.MaxRequests,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &Dispatcher{
		publisher: publisher,
		breaker:   gobreaker.NewCircuitBreaker[any](settings),
		logger:    logger,
		now:       time.Now,
	}
}

// Dispatch publishes one capture request.
func (d *Dispatcher) Dispatch(ctx context.Context, req domain.Request) error {
	body, err := eventbus.Encode(req.Kind.RoutingKey(), observability.CorrelationIDFromContext(ctx), req)
	if err != nil {
		return err
	}

	_, err = d.breaker.Execute(func() (any, error) {
		return nil, d.publisher.Publish(ctx, req.Kind.RoutingKey(), body)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrDispatchUnavailable, err)
	}
	if err != nil {
		return fmt.Errorf("failed to publish capture request: %w", err)
	}
	return nil
}

// CallbackFor returns a scheduler callback that dispatches requests of kind.
func (d *Dispatcher) CallbackFor(kind domain.Kind) CaptureFunc {
	return func(ctx context.Context, sessionID, userID, companyID string, duration time.Duration) error {
		return d.Dispatch(ctx, domain.NewRequest(kind, sessionID, userID, companyID, duration, d.now()))
	}
}

// State reports the breaker state, for health output.
func (d *Dispatcher) State() string {
	return d.breaker.State().String()
}
