// Package distribution implementa el motor de distribución de membresías:
// asigna usuarios a segmentos por porcentaje aleatorio de la población o por
// patrón sobre login, email o IP.
//
// Todas las corridas comparten un Pool acotado creado al arrancar. El único
// estado compartido entre tareas es el contador de cupo; la relación
// usuario↔segmento solo se modifica vía transacciones del store, a través del
// MembershipUpdater.
package distribution

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/dropDatabas3/segmentation/internal/cache"
	"github.com/dropDatabas3/segmentation/internal/domain/repository"
	"github.com/dropDatabas3/segmentation/internal/metrics"
	"github.com/dropDatabas3/segmentation/internal/observability/logger"
)

// Repositories agrupa los colaboradores de almacenamiento del motor.
type Repositories struct {
	Users       repository.UserRepository
	Segments    repository.SegmentRepository
	Memberships repository.MembershipRepository
	Filters     repository.FilterRepository
}

// Options configura el Engine. El zero value es usable.
type Options struct {
	// Pool compartido. Si es nil se crea uno de Workers workers.
	Pool    *Pool
	Workers int

	PageSize      int
	FailurePolicy FailurePolicy
	// Seed fija la aleatoriedad de todas las corridas. nil = semilla nueva por corrida.
	Seed *uint64

	Guard GuardConfig

	// Locks habilita el lock por segmento de las corridas aleatorias.
	Locks   cache.Client
	LockTTL time.Duration

	// Tracer opcional. Default: otel.Tracer global.
	Tracer trace.Tracer
}

// Engine es la fachada del motor.
type Engine struct {
	segments    repository.SegmentRepository
	updater     *MembershipUpdater
	coordinator *Coordinator
	distributor *FilterDistributor
	pool        *Pool

	seed    *uint64
	locks   cache.Client
	lockTTL time.Duration
	tracer  trace.Tracer
}

// New crea un Engine.
func New(repos Repositories, opts Options) *Engine {
	pool := opts.Pool
	if pool == nil {
		pool = NewPool(opts.Workers)
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer("github.com/dropDatabas3/segmentation/internal/distribution")
	}
	lockTTL := opts.LockTTL
	if lockTTL <= 0 {
		lockTTL = 30 * time.Minute
	}

	updater := NewMembershipUpdater(repos.Memberships)
	guard := NewGuard(opts.Guard)

	return &Engine{
		segments: repos.Segments,
		updater:  updater,
		coordinator: &Coordinator{
			users:    repos.Users,
			updater:  updater,
			pool:     pool,
			guard:    guard,
			tracer:   tracer,
			pageSize: pageSize,
			policy:   opts.FailurePolicy,
		},
		distributor: &FilterDistributor{
			users:   repos.Users,
			filters: repos.Filters,
			updater: updater,
			pool:    pool,
			guard:   guard,
			tracer:  tracer,
			policy:  opts.FailurePolicy,
		},
		pool:    pool,
		seed:    opts.Seed,
		locks:   opts.Locks,
		lockTTL: lockTTL,
		tracer:  tracer,
	}
}

// Pool retorna el pool compartido.
func (e *Engine) Pool() *Pool { return e.pool }

// DistributeRandom agrega al segmento segmentName floor(N*percentage/100)
// usuarios elegidos al azar de toda la población (N), sin contar a los que
// ya son miembros. Errores síncronos: ErrInvalidArgument, ErrNotFound,
// ErrConflict (otra corrida en curso sobre el segmento).
func (e *Engine) DistributeRandom(ctx context.Context, segmentName string, percentage float64) (*RandomResult, error) {
	if !validPercentage(percentage) {
		return nil, fmt.Errorf("%w: percentage %v must be in [0,100] with at most 4 decimals", ErrInvalidArgument, percentage)
	}
	seg, err := e.segments.GetByName(ctx, segmentName)
	if err != nil {
		return nil, mapStoreErr(err)
	}

	runID := uuid.NewString()
	release, err := e.lockSegment(ctx, seg.ID, runID)
	if err != nil {
		return nil, err
	}
	defer release()

	sampler := NewSampler(e.seed)
	ctx, log, span, start := e.startRun(ctx, "random", runID, seg.ID,
		attribute.String("segment.name", seg.Name),
		attribute.Float64("percentage", percentage))
	defer span.End()

	log.Info("random distribution started",
		logger.SegmentName(seg.Name), logger.Percentage(percentage),
		logger.String("seed", strconv.FormatUint(sampler.Seed(), 10)))

	res, err := e.coordinator.Run(ctx, runID, seg.ID, percentage, sampler)
	var assigned int64
	if res != nil {
		assigned = res.Assigned
		span.SetAttributes(attribute.Int64("total", res.Total), attribute.Int64("quota", res.Quota))
		log = log.With(logger.Int("total", int(res.Total)), logger.Int("quota", int(res.Quota)))
	}
	e.finishRun(log, span, "random", start, assigned, err)
	return res, err
}

// DistributeByPattern registra el filtro y agrega al segmento los usuarios
// cuyo atributo coincide con el patrón. Agregar a quien ya es miembro no es
// error, por lo que repetir la corrida no cambia el resultado.
func (e *Engine) DistributeByPattern(ctx context.Context, req PatternRequest) (*PatternResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	ok, err := e.segments.Exists(ctx, req.SegmentID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: segment %d", ErrNotFound, req.SegmentID)
	}

	runID := uuid.NewString()
	sampler := NewSampler(e.seed)
	ctx, log, span, start := e.startRun(ctx, "pattern", runID, req.SegmentID,
		attribute.String("filter.kind", string(req.Kind)))
	defer span.End()

	log.Info("pattern distribution started",
		logger.FilterKind(string(req.Kind)), logger.Pattern(req.Pattern))

	res, err := e.distributor.Run(ctx, runID, req, sampler)
	var assigned int64
	if res != nil {
		assigned = res.Assigned
		span.SetAttributes(attribute.Int("matched", res.Matched), attribute.Int64("filter.id", res.FilterID))
		log = log.With(logger.Int("matched", res.Matched), logger.Int("selected", res.Selected))
	}
	e.finishRun(log, span, "pattern", start, assigned, err)
	return res, err
}

// AddMember agrega un usuario a un segmento. created=false si ya era miembro.
func (e *Engine) AddMember(ctx context.Context, userID, segmentID int64) (bool, error) {
	created, err := e.updater.Add(ctx, userID, segmentID)
	if err == nil && created {
		metrics.DistributionAssigned.WithLabelValues("member").Inc()
	}
	return created, err
}

// RemoveMember quita un usuario de un segmento. ErrConflict si no era miembro.
func (e *Engine) RemoveMember(ctx context.Context, userID, segmentID int64) error {
	return e.updater.Remove(ctx, userID, segmentID)
}

func (e *Engine) startRun(ctx context.Context, strategy, runID string, segmentID int64, attrs ...attribute.KeyValue) (context.Context, *zap.Logger, trace.Span, time.Time) {
	log := logger.From(ctx).With(logger.RunID(runID), logger.Strategy(strategy), logger.SegmentID(segmentID))
	ctx = logger.ToContext(ctx, log)

	attrs = append(attrs, attribute.String("run.id", runID), attribute.Int64("segment.id", segmentID))
	ctx, span := e.tracer.Start(ctx, "distribution."+strategy, trace.WithAttributes(attrs...))
	return ctx, log, span, time.Now()
}

func (e *Engine) finishRun(log *zap.Logger, span trace.Span, strategy string, start time.Time, assigned int64, err error) {
	elapsed := time.Since(start)
	metrics.DistributionRunDuration.WithLabelValues(strategy).Observe(elapsed.Seconds())
	metrics.DistributionAssigned.WithLabelValues(strategy).Add(float64(assigned))

	span.SetAttributes(attribute.Int64("assigned", assigned))
	log = log.With(logger.Int("assigned", int(assigned)), logger.Duration(elapsed))

	outcome := "ok"
	switch {
	case err == nil:
		log.Info("distribution finished")
	case errors.Is(err, ErrExecutionAborted):
		outcome = "aborted"
		log.Warn("distribution aborted", logger.Err(err))
	default:
		outcome = "failed"
		log.Error("distribution finished with failures", logger.Err(err))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	metrics.DistributionRuns.WithLabelValues(strategy, outcome).Inc()
}

// lockSegment toma el lock de corridas aleatorias del segmento.
// Sin cache configurado no hay lock.
func (e *Engine) lockSegment(ctx context.Context, segmentID int64, runID string) (release func(), err error) {
	if e.locks == nil {
		return func() {}, nil
	}
	key := "lock:distribution:segment:" + strconv.FormatInt(segmentID, 10)
	ok, err := e.locks.SetNX(ctx, key, runID, e.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("distribution: acquire segment lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: a random distribution is already running on segment %d", ErrConflict, segmentID)
	}
	return func() {
		// Liberar aunque ctx haya sido cancelado, y solo si el lock sigue
		// siendo de esta corrida: con el TTL vencido puede tenerlo otra.
		_, _ = e.locks.DeleteIfEquals(context.WithoutCancel(ctx), key, runID)
	}, nil
}
