package distribution

import "math/rand/v2"

// Sample retorna min(k, len(batch)) elementos elegidos uniformemente sin
// reemplazo (Fisher–Yates parcial sobre una copia). batch no se modifica.
func Sample[T any](rng *rand.Rand, batch []T, k int) []T {
	if k <= 0 || len(batch) == 0 {
		return []T{}
	}
	out := make([]T, len(batch))
	copy(out, batch)
	k = min(k, len(out))
	for i := 0; i < k; i++ {
		j := i + rng.IntN(len(out)-i)
		out[i], out[j] = out[j], out[i]
	}
	return out[:k]
}

// Sampler entrega una fuente aleatoria por página derivada de (seed, página),
// así la selección no depende del orden en que corren las tareas.
type Sampler struct {
	seed uint64
}

// NewSampler crea un Sampler. Con seed nil se sortea una semilla nueva.
func NewSampler(seed *uint64) *Sampler {
	if seed != nil {
		return &Sampler{seed: *seed}
	}
	return &Sampler{seed: rand.Uint64()}
}

// Seed retorna la semilla efectiva (se loguea para poder reproducir la corrida).
func (s *Sampler) Seed() uint64 { return s.seed }

// ForPage retorna la fuente para la página index.
func (s *Sampler) ForPage(index int) *rand.Rand {
	return rand.New(rand.NewPCG(s.seed, uint64(index)))
}
