package distribution

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dropDatabas3/segmentation/internal/domain/repository"
)

// Errores del motor. Los errores del store se traducen a estos con mapStoreErr,
// por lo que el caller chequea una sola taxonomía con errors.Is.
var (
	ErrNotFound         = errors.New("distribution: not found")
	ErrInvalidArgument  = errors.New("distribution: invalid argument")
	ErrConflict         = errors.New("distribution: conflict")
	ErrExecutionAborted = errors.New("distribution: execution aborted")
)

// FailurePolicy define qué hace una corrida cuando falla una tarea.
type FailurePolicy int

const (
	// BestEffort ejecuta todas las tareas y junta las fallas.
	BestEffort FailurePolicy = iota
	// FailFast cancela las tareas pendientes ante la primera falla.
	FailFast
)

func (p FailurePolicy) String() string {
	if p == FailFast {
		return "fail-fast"
	}
	return "best-effort"
}

// ParseFailurePolicy acepta "best-effort" y "fail-fast" (vacío = best-effort).
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "best-effort", "besteffort":
		return BestEffort, nil
	case "fail-fast", "failfast":
		return FailFast, nil
	}
	return BestEffort, fmt.Errorf("%w: failure policy %q", ErrInvalidArgument, s)
}

// TaskFailure describe una tarea fallida: una página (random) o un usuario (pattern).
type TaskFailure struct {
	Page   int   // -1 si la tarea no es por página
	UserID int64 // 0 si la tarea es por página
	Err    error
}

func (f TaskFailure) Error() string {
	if f.Page >= 0 {
		return fmt.Sprintf("page %d: %v", f.Page, f.Err)
	}
	return fmt.Sprintf("user %d: %v", f.UserID, f.Err)
}

func (f TaskFailure) Unwrap() error { return f.Err }

// RunError es el error de una corrida que no terminó limpia.
// Lleva los conteos parciales: lo asignado antes de fallar queda confirmado.
type RunError struct {
	RunID    string
	Policy   FailurePolicy
	Aborted  bool
	Assigned int64
	Failures []TaskFailure
	cause    error
}

func (e *RunError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "distribution: run %s", e.RunID)
	if e.Aborted {
		fmt.Fprintf(&b, " aborted (%v)", e.cause)
	}
	fmt.Fprintf(&b, ": %d task(s) failed, %d assigned", len(e.Failures), e.Assigned)
	if len(e.Failures) > 0 {
		fmt.Fprintf(&b, ", first: %v", e.Failures[0])
	}
	return b.String()
}

// Unwrap expone ErrExecutionAborted (si corresponde) y cada falla,
// así errors.Is(err, ErrNotFound) funciona sobre el conjunto.
func (e *RunError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures)+2)
	if e.Aborted {
		errs = append(errs, ErrExecutionAborted)
	}
	if e.cause != nil {
		errs = append(errs, e.cause)
	}
	for _, f := range e.Failures {
		errs = append(errs, f)
	}
	return errs
}

// mapStoreErr traduce errores de repository a los sentinels del motor.
// Los errores que ya son del motor pasan sin cambios.
func mapStoreErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrConflict),
		errors.Is(err, ErrInvalidArgument), errors.Is(err, ErrExecutionAborted):
		return err
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, repository.ErrConflict):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	case errors.Is(err, repository.ErrInvalidInput):
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return err
}
