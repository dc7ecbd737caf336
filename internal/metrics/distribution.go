package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Métricas del motor de distribución. Viven en un paquete propio para que
// distribution y http las compartan sin ciclos de import.

var (
	DistributionRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "segmentation_distribution_runs_total",
		Help: "Corridas de distribución por estrategia y resultado",
	}, []string{"strategy", "outcome"})

	DistributionAssigned = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "segmentation_memberships_created_total",
		Help: "Membresías creadas por el motor",
	}, []string{"strategy"})

	DistributionTaskFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "segmentation_task_failures_total",
		Help: "Tareas (página o usuario) que fallaron",
	}, []string{"strategy"})

	DistributionRunDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "segmentation_distribution_run_seconds",
		Help:    "Duración de una corrida de distribución",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
	}, []string{"strategy"})

	TasksInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "segmentation_tasks_in_flight",
		Help: "Tareas ejecutándose en el pool compartido",
	})
)

// RegisterDistribution registra las métricas en reg (o el default si es nil).
// Registrar dos veces no es error.
func RegisterDistribution(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{
		DistributionRuns,
		DistributionAssigned,
		DistributionTaskFailures,
		DistributionRunDuration,
		TasksInFlight,
	} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return err
			}
		}
	}
	return nil
}
