package eventbus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	published = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "blockverse",
		Subsystem: "events",
		Name:      "published_total",
		Help:      "Опубликованные события сервера",
	})
	consumed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "blockverse",
		Subsystem: "events",
		Name:      "consumed_total",
		Help:      "События, доставленные подписчикам",
	})
	dropped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "blockverse",
		Subsystem: "events",
		Name:      "dropped_total",
		Help:      "События, отброшенные при переполнении или ошибке",
	})
	inflight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "blockverse",
		Subsystem: "events",
		Name:      "inflight",
		Help:      "События в очереди",
	})
)

func init() {
	prometheus.MustRegister(published, consumed, dropped, inflight)
}

// MetricsExporter раз в секунду переносит счётчики шины в Prometheus
type MetricsExporter struct {
	bus  EventBus
	quit chan struct{}
	done chan struct{}
}

func NewMetricsExporter(bus EventBus) *MetricsExporter {
	return &MetricsExporter{bus: bus, quit: make(chan struct{}), done: make(chan struct{})}
}

// Start запускает обновление в отдельной горутине
func (m *MetricsExporter) Start() {
	go m.loop()
}

func (m *MetricsExporter) Stop() {
	close(m.quit)
	<-m.done
}

func (m *MetricsExporter) loop() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	defer close(m.done)

	// у счётчиков Prometheus нет Set, поэтому переносим приращения
	var prev Stats
	for {
		select {
		case <-ticker.C:
			prev = m.flush(prev)
		case <-m.quit:
			m.flush(prev)
			return
		}
	}
}

func (m *MetricsExporter) flush(prev Stats) Stats {
	stats := m.bus.Metrics()
	if d := stats.Published - prev.Published; d > 0 {
		published.Add(float64(d))
	}
	if d := stats.Consumed - prev.Consumed; d > 0 {
		consumed.Add(float64(d))
	}
	if d := stats.Dropped - prev.Dropped; d > 0 {
		dropped.Add(float64(d))
	}
	inflight.Set(float64(stats.InFlight))
	return stats
}
