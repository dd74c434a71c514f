package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MailMetrics counts relay attempts by outcome.
type MailMetrics struct {
	EmailSent       prometheus.Counter
	EmailFailed     *prometheus.CounterVec
	EmailRecipients prometheus.Histogram
	SendLatency     *prometheus.HistogramVec
}

// Failure reasons used as the "reason" label.
const (
	ReasonValidation  = "validation"
	ReasonCredentials = "credentials"
	ReasonDelivery    = "delivery"
	ReasonPanic       = "panic"
)

// NewMailMetrics registers the relay metrics with reg.
func NewMailMetrics(namespace string, reg prometheus.Registerer) *MailMetrics {
	if namespace == "" {
		namespace = "mailrelay"
	}
	factory := promauto.With(reg)

	return &MailMetrics{
		EmailSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_sent_total",
			Help:      "Messages accepted by the SMTP server",
		}),
		EmailFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_failed_total",
			Help:      "Send requests that did not result in a delivered message",
		}, []string{"reason"}),
		EmailRecipients: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "email_recipients",
			Help:      "Recipients per accepted message",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100},
		}),
		SendLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "smtp_send_duration_seconds",
			Help:      "Time spent in the SMTP session",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"outcome"}),
	}
}

// RecordSent records a delivered message. Safe on a nil receiver.
func (m *MailMetrics) RecordSent(recipients int, d time.Duration) {
	if m == nil {
		return
	}
	m.EmailSent.Inc()
	m.EmailRecipients.Observe(float64(recipients))
	m.SendLatency.WithLabelValues("sent").Observe(d.Seconds())
}

// RecordFailed records a failed request. d is zero when no send was attempted.
func (m *MailMetrics) RecordFailed(reason string, d time.Duration) {
	if m == nil {
		return
	}
	m.EmailFailed.WithLabelValues(reason).Inc()
	if d > 0 {
		m.SendLatency.WithLabelValues("failed").Observe(d.Seconds())
	}
}
