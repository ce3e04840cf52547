package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	SeedsIssued    prometheus.Counter
	SeedRotations  prometheus.Counter
	NoncesConsumed prometheus.Counter
	Verifications  *prometheus.CounterVec
	Solves         *prometheus.CounterVec
}

var (
	once     sync.Once
	registry *Metrics
)

// Default returns the process wide collectors, registering them on first use.
func Default() *Metrics {
	once.Do(func() {
		registry = New()
		prometheus.MustRegister(
			registry.SeedsIssued,
			registry.SeedRotations,
			registry.NoncesConsumed,
			registry.Verifications,
			registry.Solves,
		)
	})

	return registry
}

// New builds unregistered collectors. Tests use it to avoid the global registry.
func New() *Metrics {
	return &Metrics{
		SeedsIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mysterybox",
			Subsystem: "seed_ledger",
			Name:      "issued_total",
			Help:      "Seed pairs issued to users without a previous active pair.",
		}),
		SeedRotations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mysterybox",
			Subsystem: "seed_ledger",
			Name:      "rotations_total",
			Help:      "Active seed pairs revealed and replaced.",
		}),
		NoncesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mysterybox",
			Subsystem: "seed_ledger",
			Name:      "nonces_consumed_total",
			Help:      "Nonces handed out for rounds.",
		}),
		Verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mysterybox",
			Subsystem: "verifier",
			Name:      "verifications_total",
			Help:      "Round verifications by result.",
		}, []string{"result"}),
		Solves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mysterybox",
			Subsystem: "rtp_solver",
			Name:      "solves_total",
			Help:      "RTP solver runs by outcome.",
		}, []string{"outcome"}),
	}
}
