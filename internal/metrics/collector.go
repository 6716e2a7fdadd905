package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "serialscope"

var (
	receivedDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "telemetry", "packets_received_total"),
		"Total telemetry packets decoded.", nil, nil)
	lostDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "telemetry", "packets_lost_total"),
		"Total packets inferred lost from sequence gaps.", nil, nil)
	reorderedDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "telemetry", "packets_reordered_total"),
		"Total packets whose sequence repeated or went backwards.", nil, nil)
	parseErrorsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "telemetry", "parse_errors_total"),
		"Total lines the decoder rejected.", nil, nil)
	lossRateDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "telemetry", "loss_rate_percent"),
		"Lost packets as a percentage of expected packets.", nil, nil)
	packetRateDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "telemetry", "packet_rate_hz"),
		"Mean received packets per second since the session began.", nil, nil)
	latencyDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "telemetry", "latency_ms"),
		"Mean relay latency over the window.", nil, nil)
	jitterDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "telemetry", "jitter_ms"),
		"Mean jitter over the window.", nil, nil)
	droppedDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "serial", "lines_dropped_total"),
		"Total serial lines dropped because the consumer fell behind.", nil, nil)
)

// Collector exposes an Accumulator to Prometheus. Each scrape takes one
// snapshot.
type Collector struct {
	acc     *Accumulator
	dropped func() uint64
}

// NewCollector returns a Collector reading from acc.
func NewCollector(acc *Accumulator) *Collector {
	return &Collector{acc: acc}
}

// WithDroppedLines adds a counter for lines discarded before they reached
// the decoder, so local drops can be told apart from sequence gaps on the
// link. fn is typically SerialMux.Dropped.
func (c *Collector) WithDroppedLines(fn func() uint64) *Collector {
	c.dropped = fn
	return c
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- receivedDesc
	ch <- lostDesc
	ch <- reorderedDesc
	ch <- parseErrorsDesc
	ch <- lossRateDesc
	ch <- packetRateDesc
	ch <- latencyDesc
	ch <- jitterDesc
	if c.dropped != nil {
		ch <- droppedDesc
	}
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.acc.Snapshot()
	ch <- prometheus.MustNewConstMetric(receivedDesc, prometheus.CounterValue, float64(s.Received))
	ch <- prometheus.MustNewConstMetric(lostDesc, prometheus.CounterValue, float64(s.Lost))
	ch <- prometheus.MustNewConstMetric(reorderedDesc, prometheus.CounterValue, float64(s.Reordered))
	ch <- prometheus.MustNewConstMetric(parseErrorsDesc, prometheus.CounterValue, float64(s.ParseErrors))
	ch <- prometheus.MustNewConstMetric(lossRateDesc, prometheus.GaugeValue, s.LossRatePercent)
	ch <- prometheus.MustNewConstMetric(packetRateDesc, prometheus.GaugeValue, s.PacketRate)
	ch <- prometheus.MustNewConstMetric(latencyDesc, prometheus.GaugeValue, s.AvgLatencyMs)
	ch <- prometheus.MustNewConstMetric(jitterDesc, prometheus.GaugeValue, s.AvgJitterMs)
	if c.dropped != nil {
		ch <- prometheus.MustNewConstMetric(droppedDesc, prometheus.CounterValue, float64(c.dropped()))
	}
}
