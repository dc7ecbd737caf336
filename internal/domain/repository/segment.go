package repository

import (
	"context"
	"time"
)

// Segment representa una cohorte con nombre.
type Segment struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SegmentRepository define las lecturas de segmentos que consume el motor.
type SegmentRepository interface {
	// Exists indica si el segmento existe.
	Exists(ctx context.Context, segmentID int64) (bool, error)

	// GetByID busca un segmento por ID.
	// Retorna ErrNotFound si no existe.
	GetByID(ctx context.Context, segmentID int64) (*Segment, error)

	// GetByName busca un segmento por nombre (único).
	// Retorna ErrNotFound si no existe.
	GetByName(ctx context.Context, name string) (*Segment, error)

	// Create crea un segmento. Retorna ErrConflict si el nombre ya existe.
	// Solo lo usan el comando seed y los tests.
	Create(ctx context.Context, name, description string) (*Segment, error)

	// CountMembers retorna cuántos usuarios pertenecen al segmento.
	CountMembers(ctx context.Context, segmentID int64) (int64, error)
}
