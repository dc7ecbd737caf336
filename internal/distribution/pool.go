package distribution

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/dropDatabas3/segmentation/internal/metrics"
)

// errTaskSkipped es la causa de cancelación cuando FailFast corta una corrida.
var errTaskSkipped = errors.New("distribution: task skipped after failure")

// Pool es el pool acotado de workers compartido por todas las corridas del
// proceso. Se crea una vez al arrancar.
type Pool struct {
	sem  *semaphore.Weighted
	size int
}

// NewPool crea un pool de size workers. size <= 0 usa GOMAXPROCS.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size)), size: size}
}

// Size retorna la cantidad de workers.
func (p *Pool) Size() int { return p.size }

// Group es el conjunto de tareas de una corrida sobre el pool.
type Group struct {
	pool     *Pool
	ctx      context.Context
	cancel   context.CancelCauseFunc
	failFast bool

	wg      sync.WaitGroup
	mu      sync.Mutex
	errs    []error
	skipped int
}

// NewGroup abre un grupo. Las tareas reciben un contexto derivado de ctx que
// se cancela si ctx se cancela o, con failFast, ante el primer error.
func (p *Pool) NewGroup(ctx context.Context, failFast bool) *Group {
	gctx, cancel := context.WithCancelCause(ctx)
	return &Group{pool: p, ctx: gctx, cancel: cancel, failFast: failFast}
}

// Go encola fn. Bloquea hasta que haya un worker libre; si el grupo ya fue
// cancelado la tarea no arranca y se cuenta como salteada.
func (g *Group) Go(fn func(ctx context.Context) error) {
	if g.ctx.Err() != nil || g.pool.sem.Acquire(g.ctx, 1) != nil {
		g.skip()
		return
	}
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer g.pool.sem.Release(1)

		if g.ctx.Err() != nil {
			g.skip()
			return
		}
		metrics.TasksInFlight.Inc()
		err := fn(g.ctx)
		metrics.TasksInFlight.Dec()
		if err != nil {
			g.fail(err)
		}
	}()
}

func (g *Group) skip() {
	g.mu.Lock()
	g.skipped++
	g.mu.Unlock()
}

func (g *Group) fail(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failFast {
		// Solo cuenta la primera falla; el resto son tareas cortadas por la cancelación.
		if len(g.errs) > 0 {
			return
		}
		g.cancel(errTaskSkipped)
	}
	g.errs = append(g.errs, err)
}

// Wait bloquea hasta que terminen todas las tareas lanzadas y retorna sus
// errores junto con la cantidad de tareas que no llegaron a correr.
func (g *Group) Wait() (errs []error, skipped int) {
	g.wg.Wait()
	g.cancel(nil)
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.errs, g.skipped
}
