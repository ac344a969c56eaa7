package eventbus

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
)

var (
	_ Metrics = &busMetrics{}
	_ Metrics = nopMetrics{}
)

// Metrics is the instrumentation sink for a bus.
type Metrics interface {
	// Register registers the collectors with r. A nil r means the default
	// registerer.
	Register(r prometheus.Registerer) error
	// Subscribed / Unsubscribed track live bindings.
	Subscribed(n int)
	Unsubscribed(n int)
	// Posted counts events posted on the bus.
	Posted()
	// Delivered counts successful handler invocations.
	Delivered()
	// Dead counts events that matched no subscriber.
	Dead()
	// Faulted counts handler invocation faults.
	Faulted()
}

type busMetrics struct {
	subscribers prometheus.Gauge
	posted      prometheus.Counter
	delivered   prometheus.Counter
	dead        prometheus.Counter
	faulted     prometheus.Counter
}

// NewMetrics creates prometheus metrics for one bus. The collectors are not
// registered until Register is called.
func NewMetrics(namespace, bus string) Metrics {
	if namespace == "" {
		namespace = "eventbus"
	}
	return &busMetrics{
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: bus,
			Name:      "subscribers",
			Help:      "Current number of handler bindings",
		}),
		posted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: bus,
			Name:      "posted_total",
			Help:      "Total events posted",
		}),
		delivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: bus,
			Name:      "delivered_total",
			Help:      "Total handler invocations completed normally",
		}),
		dead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: bus,
			Name:      "dead_total",
			Help:      "Total events with no matching subscriber",
		}),
		faulted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: bus,
			Name:      "faulted_total",
			Help:      "Total handler invocation faults",
		}),
	}
}

func (m *busMetrics) Register(r prometheus.Registerer) error {
	if r == nil {
		r = prometheus.DefaultRegisterer
	}
	var mErr error
	for _, c := range []prometheus.Collector{m.subscribers, m.posted, m.delivered, m.dead, m.faulted} {
		if err := r.Register(c); err != nil {
			mErr = multierr.Append(mErr, err)
		}
	}
	return mErr
}

func (m *busMetrics) Subscribed(n int)   { m.subscribers.Add(float64(n)) }
func (m *busMetrics) Unsubscribed(n int) { m.subscribers.Sub(float64(n)) }
func (m *busMetrics) Posted()            { m.posted.Inc() }
func (m *busMetrics) Delivered()         { m.delivered.Inc() }
func (m *busMetrics) Dead()              { m.dead.Inc() }
func (m *busMetrics) Faulted()           { m.faulted.Inc() }

// nopMetrics is used when metrics are disabled.
type nopMetrics struct{}

func (nopMetrics) Register(prometheus.Registerer) error { return nil }
func (nopMetrics) Subscribed(int)                       {}
func (nopMetrics) Unsubscribed(int)                     {}
func (nopMetrics) Posted()                              {}
func (nopMetrics) Delivered()                           {}
func (nopMetrics) Dead()                                {}
func (nopMetrics) Faulted()                             {}
