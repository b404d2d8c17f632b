package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// FramesCaptured counts raw frames the sniffer handed to the dispatcher,
	// before classification.
	FramesCaptured = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dot11sentry",
			Name:      "frames_captured_total",
			Help:      "Total number of 802.11 frames handed to the dispatcher",
		},
		[]string{"interface"},
	)

	// FramesSampledOut counts frames a class's rate sampler chose not to
	// admit this tick (not an error, a deliberate rate reduction).
	FramesSampledOut = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dot11sentry",
			Name:      "frames_sampled_out_total",
			Help:      "Total number of frames dropped by per-class rate sampling",
		},
		[]string{"class"},
	)

	// FramesDropped counts frames lost to backpressure: a full frame or
	// event queue at enqueue time.
	FramesDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dot11sentry",
			Name:      "frames_dropped_total",
			Help:      "Total number of frames dropped due to a full queue",
		},
		[]string{"queue"},
	)

	// EventGroupsProcessed counts event groups an EventWorker finished
	// processing, regardless of outcome.
	EventGroupsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dot11sentry",
			Name:      "event_groups_processed_total",
			Help:      "Total number of event groups drained from the event queue",
		},
		[]string{"worker"},
	)

	// QueueDepth reports the current occupancy of a named bounded queue.
	QueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "dot11sentry",
			Name:      "queue_depth",
			Help:      "Current number of items buffered in a pipeline queue",
		},
		[]string{"queue"},
	)

	// CurrentChannel reports the channel the monitor interface is currently
	// tuned to.
	CurrentChannel = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "dot11sentry",
			Name:      "current_channel",
			Help:      "Wireless channel the monitor interface is currently set to",
		},
	)

	once sync.Once
)

// InitMetrics registers all metrics with the default Prometheus registry.
// Idempotent so it can be called from tests without panicking on
// already-registered collectors.
func InitMetrics() {
	once.Do(func() {
		prometheus.DefaultRegisterer.Register(FramesCaptured)
		prometheus.DefaultRegisterer.Register(FramesSampledOut)
		prometheus.DefaultRegisterer.Register(FramesDropped)
		prometheus.DefaultRegisterer.Register(EventGroupsProcessed)
		prometheus.DefaultRegisterer.Register(QueueDepth)
		prometheus.DefaultRegisterer.Register(CurrentChannel)
	})
}
