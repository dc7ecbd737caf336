package logger

import (
	"time"

	"go.uber.org/zap"
)

// =================================================================================
// CAMPOS ESTÁNDAR - DISTRIBUCIÓN
// =================================================================================

// RunID crea un campo para el ID de una corrida de distribución.
func RunID(v string) zap.Field {
	return zap.String("run_id", v)
}

// Strategy crea un campo para la estrategia ("random", "pattern", "member").
func Strategy(v string) zap.Field {
	return zap.String("strategy", v)
}

// SegmentID crea un campo para el ID del segmento.
func SegmentID(v int64) zap.Field {
	return zap.Int64("segment_id", v)
}

// SegmentName crea un campo para el nombre del segmento.
func SegmentName(v string) zap.Field {
	return zap.String("segment", v)
}

// UserID crea un campo para el ID del usuario.
func UserID(v int64) zap.Field {
	return zap.Int64("user_id", v)
}

// PageIndex crea un campo para el índice de página.
func PageIndex(v int) zap.Field {
	return zap.Int("page", v)
}

// Percentage crea un campo para un porcentaje.
func Percentage(v float64) zap.Field {
	return zap.Float64("percentage", v)
}

// FilterKind crea un campo para el tipo de filtro.
func FilterKind(v string) zap.Field {
	return zap.String("filter_kind", v)
}

// Pattern crea un campo para la expresión de un filtro.
func Pattern(v string) zap.Field {
	return zap.String("pattern", v)
}

// =================================================================================
// CAMPOS ESTÁNDAR - SISTEMA
// =================================================================================

// Component crea un campo para el componente/módulo.
func Component(v string) zap.Field {
	return zap.String("component", v)
}

// Op crea un campo para la operación actual.
func Op(v string) zap.Field {
	return zap.String("op", v)
}

// Duration crea un campo para una duración.
func Duration(v time.Duration) zap.Field {
	return zap.Duration("duration", v)
}

// Err crea un campo para un error.
func Err(err error) zap.Field {
	return zap.Error(err)
}

// Path crea un campo para el path de un request HTTP.
func Path(v string) zap.Field {
	return zap.String("path", v)
}

// Status crea un campo para el status code HTTP.
func Status(v int) zap.Field {
	return zap.Int("status", v)
}

// =================================================================================
// CAMPOS ESTÁNDAR - DATOS
// =================================================================================

// Count crea un campo para un conteo.
func Count(v int) zap.Field {
	return zap.Int("count", v)
}

// Any crea un campo genérico para cualquier tipo.
func Any(key string, v any) zap.Field {
	return zap.Any(key, v)
}

// String crea un campo string genérico.
func String(key, v string) zap.Field {
	return zap.String(key, v)
}

// Int crea un campo int genérico.
func Int(key string, v int) zap.Field {
	return zap.Int(key, v)
}
