package daemon

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/the-lightning-land/wifid/wifidb"
)

type metrics struct {
	outcomes  *prometheus.CounterVec
	connected prometheus.Gauge
	rssi      prometheus.Gauge
}

// newMetrics registers the collectors with reg, or with the default
// registerer when reg is nil
func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	return &metrics{
		outcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wifid_outcomes_total",
				Help: "The total number of connection outcomes by kind",
			},
			[]string{"kind"},
		),
		connected: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "wifid_connected",
				Help: "Whether the station holds an address on a configured access point",
			},
		),
		rssi: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "wifid_connected_rssi_dbm",
				Help: "Signal strength of the connected access point when it was chosen",
			},
		),
	}
}

func (m *metrics) observe(outcome *wifidb.Outcome) {
	m.outcomes.WithLabelValues(string(outcome.Kind)).Inc()

	switch outcome.Kind {
	case wifidb.OutcomeConnected:
		m.connected.Set(1)
		m.rssi.Set(float64(outcome.Rssi))
	case wifidb.OutcomeDisconnected:
		m.connected.Set(0)
	}
}
