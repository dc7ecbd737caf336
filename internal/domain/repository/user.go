package repository

import (
	"context"
	"time"
)

// User representa un usuario de la población segmentable.
type User struct {
	ID        int64
	Login     string
	Email     string
	IPAddress string
	// SegmentIDs es el conjunto de segmentos del usuario al momento de la lectura.
	// Es una vista derivada de la relación de membresía, nunca se muta directamente.
	SegmentIDs []int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// InSegment indica si el usuario pertenecía al segmento cuando fue leído.
func (u User) InSegment(segmentID int64) bool {
	for _, id := range u.SegmentIDs {
		if id == segmentID {
			return true
		}
	}
	return false
}

// CreateUserInput contiene los datos para crear un usuario.
// Solo lo usan el comando seed y los tests: el CRUD real vive fuera de este servicio.
type CreateUserInput struct {
	Login     string
	Email     string
	IPAddress string
}

// UserRepository define las lecturas de la población que consume el motor.
type UserRepository interface {
	// Count retorna el tamaño total de la población.
	Count(ctx context.Context) (int64, error)

	// ListPage retorna hasta limit usuarios ordenados por ID a partir de offset.
	// La paginación es tan estable como lo sea el almacenamiento frente a altas/bajas concurrentes.
	ListPage(ctx context.Context, offset, limit int) ([]User, error)

	// FindByPattern retorna todos los usuarios cuyo atributo kind coincide con pattern.
	// Consulta única y sin límite: el costo de la expresión es responsabilidad del caller.
	// Retorna ErrInvalidInput si el almacenamiento rechaza la expresión.
	FindByPattern(ctx context.Context, kind FilterKind, pattern string) ([]User, error)

	// GetByID busca un usuario por ID.
	// Retorna ErrNotFound si no existe.
	GetByID(ctx context.Context, userID int64) (*User, error)

	// CreateBatch crea usuarios en bloque y retorna cuántos se insertaron.
	CreateBatch(ctx context.Context, input []CreateUserInput) (int64, error)
}
