package repository

import "context"

// MembershipTx es el alcance transaccional de escritura sobre la relación
// usuario↔segmento. Todo lo hecho dentro de una MembershipTx se confirma o
// se descarta junto.
type MembershipTx interface {
	// UserExists indica si el usuario existe dentro de la transacción.
	UserExists(ctx context.Context, userID int64) (bool, error)

	// SegmentExists indica si el segmento existe dentro de la transacción.
	SegmentExists(ctx context.Context, segmentID int64) (bool, error)

	// AddMembership crea el par (userID, segmentID).
	// Retorna created=false, sin error, si el par ya existía.
	AddMembership(ctx context.Context, userID, segmentID int64) (created bool, err error)

	// RemoveMembership elimina el par.
	// Retorna ErrConflict si el par no existe.
	RemoveMembership(ctx context.Context, userID, segmentID int64) error
}

// MembershipRepository es el único camino de escritura de la relación.
// Ambas vistas (segmentos del usuario y miembros del segmento) derivan de un
// mismo conjunto indexado por par, por lo que no pueden divergir.
type MembershipRepository interface {
	// WithinTx ejecuta fn dentro de una transacción.
	// Si fn retorna error la transacción se descarta y el error se propaga.
	WithinTx(ctx context.Context, fn func(tx MembershipTx) error) error

	// IsMember indica si el par existe (lectura fuera de transacción).
	IsMember(ctx context.Context, userID, segmentID int64) (bool, error)
}
