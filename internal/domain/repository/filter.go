package repository

import (
	"context"
	"strings"
	"time"
)

// FilterKind identifica el atributo de usuario sobre el que se evalúa un patrón.
type FilterKind string

const (
	FilterEmailPattern FilterKind = "email-pattern"
	FilterLoginPattern FilterKind = "login-pattern"
	FilterIPPattern    FilterKind = "ip-pattern"
)

// Valid indica si el kind es uno de los soportados.
func (k FilterKind) Valid() bool {
	switch k {
	case FilterEmailPattern, FilterLoginPattern, FilterIPPattern:
		return true
	}
	return false
}

// ParseFilterKind acepta los códigos canónicos y los alias históricos
// ("EmailRegexp", "LOGIN_REGEXP", "ip", ...).
func ParseFilterKind(s string) (FilterKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "email-pattern", "email_regexp", "emailregexp", "email":
		return FilterEmailPattern, true
	case "login-pattern", "login_regexp", "loginregexp", "login":
		return FilterLoginPattern, true
	case "ip-pattern", "ip_regexp", "ipregexp", "ip":
		return FilterIPPattern, true
	}
	return "", false
}

// Filter es el registro de auditoría de una regla de distribución aplicada.
// Se escribe una vez y nunca se modifica.
type Filter struct {
	ID         int64
	SegmentID  int64
	Kind       FilterKind
	Expression string
	Percentage *float64
	CreatedAt  time.Time
}

// FilterInput contiene los datos para registrar un filtro.
type FilterInput struct {
	SegmentID  int64
	Kind       FilterKind
	Expression string
	Percentage *float64
}

// FilterRepository persiste registros de filtros.
type FilterRepository interface {
	// Save registra el filtro y lo retorna con ID y CreatedAt asignados.
	Save(ctx context.Context, input FilterInput) (*Filter, error)

	// ListBySegment lista los filtros aplicados a un segmento, más recientes primero.
	ListBySegment(ctx context.Context, segmentID int64) ([]Filter, error)
}
