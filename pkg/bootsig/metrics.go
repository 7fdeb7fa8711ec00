package bootsig

import (
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "bootsig"

type metrics struct {
	verifications *prometheus.CounterVec
	duration      *prometheus.HistogramVec
}

func newMetrics() *metrics {
	return &metrics{
		verifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "verifications_total",
				Help:      "Number of signature verifications by exponent and result",
			},
			[]string{"exponent", "result"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "verification_duration_seconds",
				Help:      "Time spent verifying a single signature",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
			},
			[]string{"exponent"},
		),
	}
}

func (m *metrics) register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.verifications, m.duration} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// observe is a no-op on a nil receiver so callers need not check whether
// metrics are enabled.
func (m *metrics) observe(e Exponent, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.verifications.WithLabelValues(e.String(), resultLabel(err)).Inc()
	m.duration.WithLabelValues(e.String()).Observe(elapsed.Seconds())
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "valid"
	case errors.Is(err, ErrVerification):
		return "invalid"
	case errors.Is(err, ErrSignatureOutOfRange):
		return "out_of_range"
	default:
		return "error"
	}
}
