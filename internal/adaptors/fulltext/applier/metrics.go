package fulltextapplier

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "lightning_fulltext"
	metricsSubsystem = "applier"

	phaseLive       = "live"
	phasePopulation = "population"
)

// Metrics holds the applier collectors. Each applier owns its own set so
// several appliers can live in one process; register them with Register.
type Metrics struct {
	OperationsApplied *prometheus.CounterVec
	OperationsFailed  *prometheus.CounterVec
	OperationsDropped *prometheus.CounterVec
	PopulatedEntities *prometheus.CounterVec
	SkippedEntities   *prometheus.CounterVec
	// SupersededEntities counts population copies dropped because a live
	// batch wrote the entity first.
	SupersededEntities *prometheus.CounterVec
	QueueDepth        prometheus.Gauge
	DeadIndexes       prometheus.Gauge
	BarrierDuration   prometheus.Histogram
}

func NewMetrics() *Metrics {
	return &Metrics{
		OperationsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "operations_applied",
		}, []string{"index", "phase"}),
		OperationsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "operations_failed",
		}, []string{"index", "phase", "kind"}),
		OperationsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "operations_dropped",
		}, []string{"index"}),
		PopulatedEntities: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "populated_entities",
		}, []string{"index"}),
		SkippedEntities: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "population_skipped_entities",
		}, []string{"index"}),
		SupersededEntities: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "population_superseded_entities",
		}, []string{"index"}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "queue_depth",
		}),
		DeadIndexes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "dead_indexes",
		}),
		BarrierDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "barrier_duration_seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		}),
	}
}

func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.OperationsApplied,
		m.OperationsFailed,
		m.OperationsDropped,
		m.PopulatedEntities,
		m.SkippedEntities,
		m.SupersededEntities,
		m.QueueDepth,
		m.DeadIndexes,
		m.BarrierDuration,
	}
}

func (m *Metrics) Register(registerer prometheus.Registerer) error {
	for _, collector := range m.Collectors() {
		if err := registerer.Register(collector); err != nil {
			return err
		}
	}

	return nil
}
