package distribution

import (
	"math"
	"math/bits"
	"sync/atomic"
)

// Los porcentajes se llevan a punto fijo con 4 decimales: p% equivale a
// percentUnits(p) millonésimas del total.
const percentScale = 1_000_000

// percentUnits convierte p a diezmilésimas de punto porcentual. Rechaza NaN,
// valores fuera de [0,100] y precisión mayor a 4 decimales.
func percentUnits(p float64) (int64, bool) {
	if math.IsNaN(p) || p < 0 || p > 100 {
		return 0, false
	}
	u := math.Round(p * 1e4)
	if math.Abs(p*1e4-u) > 1e-6 {
		return 0, false
	}
	return int64(u), true
}

func validPercentage(p float64) bool {
	_, ok := percentUnits(p)
	return ok
}

// quotaFor retorna floor(total * p / 100) en aritmética entera.
// p ya pasó por validPercentage.
func quotaFor(total int64, p float64) int64 {
	u, _ := percentUnits(p)
	if total <= 0 || u == 0 {
		return 0
	}
	hi, lo := bits.Mul64(uint64(total), uint64(u))
	q, _ := bits.Div64(hi, lo, percentScale)
	return int64(q)
}

// Quota es el contador compartido de cupo restante de una corrida.
// Es el único estado mutable que comparten las tareas.
type Quota struct {
	remaining atomic.Int64
}

// NewQuota crea un contador con n unidades.
func NewQuota(n int64) *Quota {
	q := &Quota{}
	q.remaining.Store(n)
	return q
}

// Remaining retorna el cupo restante (puede quedar viejo apenas se lee).
func (q *Quota) Remaining() int64 { return q.remaining.Load() }

// Claim reserva hasta want unidades y retorna cuántas obtuvo.
// Compare-and-swap: dos tareas nunca reservan la misma unidad y el
// contador nunca baja de cero.
func (q *Quota) Claim(want int64) int64 {
	if want <= 0 {
		return 0
	}
	for {
		cur := q.remaining.Load()
		if cur <= 0 {
			return 0
		}
		take := min(cur, want)
		if q.remaining.CompareAndSwap(cur, cur-take) {
			return take
		}
	}
}
