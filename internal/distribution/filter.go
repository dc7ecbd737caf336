package distribution

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dropDatabas3/segmentation/internal/domain/repository"
	"github.com/dropDatabas3/segmentation/internal/metrics"
	"github.com/dropDatabas3/segmentation/internal/observability/logger"
)

// PatternRequest pide agregar a un segmento los usuarios cuyo atributo
// coincide con un patrón.
type PatternRequest struct {
	SegmentID int64
	Kind      repository.FilterKind
	Pattern   string
	// Percentage opcional: si está, solo se agrega floor(matched*p/100) de
	// los usuarios que coinciden, elegidos al azar.
	Percentage *float64
}

// Validate chequea la forma del pedido (no la existencia del segmento).
func (r PatternRequest) Validate() error {
	if !r.Kind.Valid() {
		return fmt.Errorf("%w: unknown filter kind %q", ErrInvalidArgument, r.Kind)
	}
	if r.Pattern == "" {
		return fmt.Errorf("%w: empty pattern", ErrInvalidArgument)
	}
	if r.Percentage != nil && !validPercentage(*r.Percentage) {
		return fmt.Errorf("%w: percentage %v must be in [0,100] with at most 4 decimals", ErrInvalidArgument, *r.Percentage)
	}
	return nil
}

// PatternResult es el resumen de una corrida por patrón.
type PatternResult struct {
	RunID     string        `json:"run_id"`
	SegmentID int64         `json:"segment_id"`
	FilterID  int64         `json:"filter_id"`
	Matched   int           `json:"matched"`
	Selected  int           `json:"selected"`
	Assigned  int64         `json:"assigned"`
	Skipped   int           `json:"skipped,omitempty"`
	Failures  []TaskFailure `json:"-"`
}

// FilterDistributor registra el filtro, busca los usuarios que coinciden y
// agrega cada uno en su propia transacción.
type FilterDistributor struct {
	users   repository.UserRepository
	filters repository.FilterRepository
	updater *MembershipUpdater
	pool    *Pool
	guard   *Guard
	tracer  trace.Tracer
	policy  FailurePolicy
}

// Run ejecuta la corrida. req ya fue validado y el segmento existe.
func (d *FilterDistributor) Run(ctx context.Context, runID string, req PatternRequest, sampler *Sampler) (*PatternResult, error) {
	log := logger.From(ctx)

	// El filtro se registra siempre, aunque no coincida nadie.
	filter, err := d.filters.Save(ctx, repository.FilterInput{
		SegmentID:  req.SegmentID,
		Kind:       req.Kind,
		Expression: req.Pattern,
		Percentage: req.Percentage,
	})
	if err != nil {
		return nil, mapStoreErr(err)
	}
	res := &PatternResult{RunID: runID, SegmentID: req.SegmentID, FilterID: filter.ID}

	matched, err := d.users.FindByPattern(ctx, req.Kind, req.Pattern)
	if err != nil {
		return res, mapStoreErr(err)
	}
	res.Matched = len(matched)

	targets := make([]int64, len(matched))
	for i, u := range matched {
		targets[i] = u.ID
	}
	if req.Percentage != nil {
		k := int(quotaFor(int64(len(targets)), *req.Percentage))
		targets = Sample(sampler.ForPage(0), targets, k)
	}
	res.Selected = len(targets)
	log.Debug("pattern matched", logger.Int("matched", res.Matched), logger.Int("selected", res.Selected))

	var assigned atomic.Int64
	g := d.pool.NewGroup(ctx, d.policy == FailFast)
	for _, userID := range targets {
		g.Go(func(ctx context.Context) error {
			created, err := d.addOne(ctx, userID, req.SegmentID)
			if err != nil {
				if ctx.Err() == nil {
					log.Warn("user assignment failed", logger.UserID(userID), logger.Err(err))
					metrics.DistributionTaskFailures.WithLabelValues("pattern").Inc()
				}
				return TaskFailure{Page: -1, UserID: userID, Err: err}
			}
			if created {
				assigned.Add(1)
			}
			return nil
		})
	}
	errs, skipped := g.Wait()

	res.Assigned = assigned.Load()
	res.Skipped = skipped
	failures, runErr := settle(ctx, runID, d.policy, res.Assigned, errs)
	res.Failures = failures
	return res, runErr
}

func (d *FilterDistributor) addOne(ctx context.Context, userID, segmentID int64) (bool, error) {
	ctx, span := d.tracer.Start(ctx, "distribution.user",
		trace.WithAttributes(attribute.Int64("user.id", userID)))
	defer span.End()

	var created bool
	err := d.guard.Do(ctx, func() error {
		var err error
		created, err = d.updater.Add(ctx, userID, segmentID)
		return err
	})
	return created, err
}
