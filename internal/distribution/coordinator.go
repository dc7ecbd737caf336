package distribution

import (
	"context"
	"errors"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dropDatabas3/segmentation/internal/domain/repository"
	"github.com/dropDatabas3/segmentation/internal/metrics"
	"github.com/dropDatabas3/segmentation/internal/observability/logger"
)

// RandomResult es el resumen de una corrida aleatoria.
type RandomResult struct {
	RunID     string        `json:"run_id"`
	SegmentID int64         `json:"segment_id"`
	Seed      uint64        `json:"seed"`
	Total     int64         `json:"total"`
	Quota     int64         `json:"quota"`
	Pages     int           `json:"pages"`
	Assigned  int64         `json:"assigned"`
	Skipped   int           `json:"skipped,omitempty"`
	Failures  []TaskFailure `json:"-"`
}

// Coordinator reparte un porcentaje de la población total en un segmento,
// página por página sobre el pool compartido.
type Coordinator struct {
	users    repository.UserRepository
	updater  *MembershipUpdater
	pool     *Pool
	guard    *Guard
	tracer   trace.Tracer
	pageSize int
	policy   FailurePolicy
}

// Run ejecuta la corrida sobre un segmento ya validado. Bloquea hasta que
// terminen todas las tareas lanzadas.
func (c *Coordinator) Run(ctx context.Context, runID string, segmentID int64, percentage float64, sampler *Sampler) (*RandomResult, error) {
	log := logger.From(ctx)

	total, err := c.users.Count(ctx)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	res := &RandomResult{
		RunID:     runID,
		SegmentID: segmentID,
		Seed:      sampler.Seed(),
		Total:     total,
		Quota:     quotaFor(total, percentage),
	}
	if res.Quota <= 0 {
		return res, nil
	}

	pages := Plan(int(total), c.pageSize, int(res.Quota))
	res.Pages = len(pages)
	log.Debug("random distribution planned", logger.Count(len(pages)), logger.Int("quota", int(res.Quota)))

	quota := NewQuota(res.Quota)
	var assigned atomic.Int64

	g := c.pool.NewGroup(ctx, c.policy == FailFast)
	for _, p := range pages {
		g.Go(func(ctx context.Context) error {
			n, err := c.runPage(ctx, segmentID, p, quota, sampler)
			assigned.Add(int64(n))
			if err != nil {
				if ctx.Err() == nil {
					log.Warn("page failed", logger.PageIndex(p.Index), logger.Err(err))
					metrics.DistributionTaskFailures.WithLabelValues("random").Inc()
				}
				return TaskFailure{Page: p.Index, Err: err}
			}
			return nil
		})
	}
	errs, skipped := g.Wait()

	res.Assigned = assigned.Load()
	res.Skipped = skipped
	failures, runErr := settle(ctx, runID, c.policy, res.Assigned, errs)
	res.Failures = failures
	return res, runErr
}

// runPage procesa una página: lee, filtra los que ya son miembros, reserva
// cupo, muestrea y agrega en una transacción.
func (c *Coordinator) runPage(ctx context.Context, segmentID int64, p Page, quota *Quota, sampler *Sampler) (int, error) {
	// Cupo agotado: la tarea no hace nada.
	if quota.Remaining() <= 0 || p.Target == 0 {
		return 0, nil
	}

	ctx, span := c.tracer.Start(ctx, "distribution.page",
		trace.WithAttributes(attribute.Int("page.index", p.Index), attribute.Int("page.offset", p.Offset)))
	defer span.End()

	users, err := c.users.ListPage(ctx, p.Offset, p.Size)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return 0, mapStoreErr(err)
	}
	if len(users) == 0 {
		return 0, nil
	}

	eligible := make([]int64, 0, len(users))
	for _, u := range users {
		if !u.InSegment(segmentID) {
			eligible = append(eligible, u.ID)
		}
	}

	// Reservar antes de escribir. Si un usuario muestreado ya fue agregado
	// por otra vía, la unidad reservada no se devuelve.
	k := quota.Claim(int64(min(p.Target, len(eligible))))
	if k == 0 {
		return 0, nil
	}
	picked := Sample(sampler.ForPage(p.Index), eligible, int(k))

	var created int
	err = c.guard.Do(ctx, func() error {
		n, err := c.updater.AddAll(ctx, segmentID, picked)
		created = n
		return err
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	span.SetAttributes(attribute.Int("page.assigned", created))
	logger.From(ctx).Debug("page done", logger.PageIndex(p.Index), logger.Count(created))
	return created, nil
}

func isCtxErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// settle arma las fallas de una corrida y su error según la política.
// Si ctx fue cancelado la corrida se reporta abortada y se descartan las
// fallas que solo son consecuencia de la cancelación.
func settle(ctx context.Context, runID string, policy FailurePolicy, assigned int64, errs []error) ([]TaskFailure, error) {
	aborted := ctx.Err() != nil
	failures := make([]TaskFailure, 0, len(errs))
	for _, err := range errs {
		if aborted && isCtxErr(err) {
			continue
		}
		var tf TaskFailure
		if !errors.As(err, &tf) {
			tf = TaskFailure{Page: -1, Err: err}
		}
		failures = append(failures, tf)
	}
	if !aborted && len(failures) == 0 {
		return nil, nil
	}

	runErr := &RunError{
		RunID:    runID,
		Policy:   policy,
		Aborted:  aborted,
		Assigned: assigned,
		Failures: failures,
	}
	if aborted {
		runErr.cause = context.Cause(ctx)
	}
	return failures, runErr
}
