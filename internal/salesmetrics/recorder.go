package salesmetrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder accumulates warranty sales totals in a private registry that is
// pushed upstream rather than scraped.
type Recorder struct {
	registry *prometheus.Registry

	issued     *prometheus.CounterVec
	premium    *prometheus.CounterVec
	commission *prometheus.CounterVec
	lastIssued prometheus.Gauge
}

func NewRecorder(instanceID string) *Recorder {
	constLabels := prometheus.Labels{"instance_id": normalizeLabel(instanceID)}
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		issued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "warranty_sales_quotes_issued_total",
			Help:        "Warranty quotes issued.",
			ConstLabels: constLabels,
		}, []string{"tier_id", "currency"}),
		premium: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "warranty_sales_premium_total",
			Help:        "Warranty price of issued quotes, in major currency units.",
			ConstLabels: constLabels,
		}, []string{"tier_id", "currency"}),
		commission: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "warranty_sales_commission_total",
			Help:        "Contractor commission on issued quotes, in major currency units.",
			ConstLabels: constLabels,
		}, []string{"tier_id", "currency"}),
		lastIssued: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "warranty_sales_last_issued_timestamp_seconds",
			Help:        "Unix time of the most recent issued quote.",
			ConstLabels: constLabels,
		}),
	}
	r.registry.MustRegister(r.issued, r.premium, r.commission, r.lastIssued)
	return r
}

func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// RecordIssued adds one newly issued quote. Amounts are in minor units.
func (r *Recorder) RecordIssued(tierID, currency string, priceCents, commissionCents int64, at time.Time) {
	if r == nil {
		return
	}
	tier := normalizeLabel(tierID)
	cur := normalizeLabel(strings.ToUpper(currency))

	r.issued.WithLabelValues(tier, cur).Inc()
	if priceCents > 0 {
		r.premium.WithLabelValues(tier, cur).Add(float64(priceCents) / 100)
	}
	if commissionCents > 0 {
		r.commission.WithLabelValues(tier, cur).Add(float64(commissionCents) / 100)
	}
	r.lastIssued.Set(float64(at.Unix()))
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return value
}
