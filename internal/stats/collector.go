package stats

import "github.com/prometheus/client_golang/prometheus"

// Collector exports the counters to Prometheus. Values are read at scrape time.
type Collector struct {
	stats *Stats

	connectionsNow   *prometheus.Desc
	connectionsTotal *prometheus.Desc
	commandsTotal    *prometheus.Desc
	errorsTotal      *prometheus.Desc
}

func NewCollector(s *Stats) *Collector {
	return &Collector{
		stats: s,
		connectionsNow: prometheus.NewDesc("fastkv_connections",
			"Number of client connections currently open.", nil, nil),
		connectionsTotal: prometheus.NewDesc("fastkv_connections_total",
			"Number of client connections accepted since start.", nil, nil),
		commandsTotal: prometheus.NewDesc("fastkv_commands_total",
			"Number of commands with a non-empty keyword.", nil, nil),
		errorsTotal: prometheus.NewDesc("fastkv_errors_total",
			"Number of commands answered with an ERROR reply.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.connectionsNow
	ch <- c.connectionsTotal
	ch <- c.commandsTotal
	ch <- c.errorsTotal
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.stats.Snapshot()
	ch <- prometheus.MustNewConstMetric(c.connectionsNow, prometheus.GaugeValue, float64(snap.ConnectionsNow))
	ch <- prometheus.MustNewConstMetric(c.connectionsTotal, prometheus.CounterValue, float64(snap.ConnectionsTotal))
	ch <- prometheus.MustNewConstMetric(c.commandsTotal, prometheus.CounterValue, float64(snap.CommandsTotal))
	ch <- prometheus.MustNewConstMetric(c.errorsTotal, prometheus.CounterValue, float64(snap.ErrorsTotal))
}
