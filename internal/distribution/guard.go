package distribution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/dropDatabas3/segmentation/internal/observability/logger"
)

// ErrStoreUnavailable indica que el breaker está abierto y la tarea no se intentó.
var ErrStoreUnavailable = errors.New("distribution: store unavailable")

// GuardConfig configura el throttle y el circuit breaker de escrituras.
type GuardConfig struct {
	// WriteRate transacciones por segundo. 0 = sin límite.
	WriteRate  float64
	WriteBurst int
	// BreakerThreshold fallas consecutivas que abren el breaker. 0 = sin breaker.
	BreakerThreshold uint32
	BreakerTimeout   time.Duration
}

// Guard envuelve cada transacción de una tarea: espera turno en el limiter y
// pasa por el breaker. Un Guard nil o vacío ejecuta fn directamente.
type Guard struct {
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// NewGuard crea un Guard. Retorna nil si no hay nada que configurar.
func NewGuard(cfg GuardConfig) *Guard {
	var g Guard
	if cfg.WriteRate > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(cfg.WriteRate), max(1, cfg.WriteBurst))
	}
	if cfg.BreakerThreshold > 0 {
		threshold := cfg.BreakerThreshold
		g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "membership-store",
			MaxRequests: 1,
			Timeout:     cfg.BreakerTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
			// Errores de dominio y cancelaciones no indican un store caído.
			IsSuccessful: func(err error) bool {
				return err == nil || isDomainErr(err)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.L().Warn("circuit breaker state changed",
					logger.Component(name),
					logger.String("from", from.String()),
					logger.String("to", to.String()))
			},
		})
	}
	if g.limiter == nil && g.breaker == nil {
		return nil
	}
	return &g
}

func isDomainErr(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Do ejecuta fn respetando el limiter y el breaker.
func (g *Guard) Do(ctx context.Context, fn func() error) error {
	if g == nil {
		return fn()
	}
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	if g.breaker == nil {
		return fn()
	}
	_, err := g.breaker.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return err
}
