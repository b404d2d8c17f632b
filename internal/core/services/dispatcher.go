package services

import (
	"math"

	"github.com/lcalzada-xor/dot11sentry/internal/core/domain"
	"github.com/lcalzada-xor/dot11sentry/internal/core/ports"
	"github.com/lcalzada-xor/dot11sentry/internal/telemetry"
)

// SampleInterval computes I_C = ceil(1/r) from a configured rate in (0,1].
// A rate of 1 (or <= 0, treated as unsampled) yields an interval of 1: every
// frame is admitted.
func SampleInterval(rate float64) int {
	if rate <= 0 || rate >= 1 {
		return 1
	}
	return int(math.Ceil(1 / rate))
}

// ClassRates holds the configured sample rate per sampled class. probe_req
// has no entry: the spec exempts it from sampling entirely.
type ClassRates struct {
	Beacon float64
	Mgmt   float64
	Ctrl   float64
	Data   float64
}

// Dispatcher is the pipeline's single producer into the five frame queues.
// It is driven exclusively by the sniffer's callback goroutine, so its
// counters need no synchronization of their own.
type Dispatcher struct {
	queues    map[domain.FrameClass]chan domain.GeoFrame
	intervals map[domain.FrameClass]int
	counters  map[domain.FrameClass]int
	location  ports.LocationSource
}

// NewDispatcher builds the five bounded frame queues (capacity queueSize)
// and precomputes each class's sampling interval from rates.
func NewDispatcher(queueSize int, rates ClassRates, location ports.LocationSource) *Dispatcher {
	d := &Dispatcher{
		queues: map[domain.FrameClass]chan domain.GeoFrame{
			domain.ClassBeacon:   make(chan domain.GeoFrame, queueSize),
			domain.ClassProbeReq: make(chan domain.GeoFrame, queueSize),
			domain.ClassMgmt:     make(chan domain.GeoFrame, queueSize),
			domain.ClassCtrl:     make(chan domain.GeoFrame, queueSize),
			domain.ClassData:     make(chan domain.GeoFrame, queueSize),
		},
		intervals: map[domain.FrameClass]int{
			domain.ClassBeacon:   SampleInterval(rates.Beacon),
			domain.ClassProbeReq: 1,
			domain.ClassMgmt:     SampleInterval(rates.Mgmt),
			domain.ClassCtrl:     SampleInterval(rates.Ctrl),
			domain.ClassData:     SampleInterval(rates.Data),
		},
		counters: make(map[domain.FrameClass]int),
		location: location,
	}
	return d
}

// Queue exposes a class's frame channel for its parser to consume from.
func (d *Dispatcher) Queue(class domain.FrameClass) <-chan domain.GeoFrame {
	return d.queues[class]
}

// Dispatch classifies one raw frame, applies per-class sampling, stamps the
// current geo fix, and non-blockingly enqueues it onto the matching class
// queue. Unrecognized frames are dropped silently, as the spec requires.
func (d *Dispatcher) Dispatch(frame domain.Frame) {
	telemetry.FramesCaptured.WithLabelValues("").Inc()
	class, _, recognized := domain.Classify(frame.Type, frame.Subtype)
	if !recognized {
		return
	}

	interval := d.intervals[class]
	if class != domain.ClassProbeReq && interval > 1 {
		n := d.counters[class]
		if n < interval {
			d.counters[class] = n + 1
			telemetry.FramesSampledOut.WithLabelValues(class.String()).Inc()
			return
		}
		d.counters[class] = 0
	}

	var geo *domain.GeoFix
	if d.location != nil {
		geo = d.location.CurrentGeo()
	}
	if geo != nil && !geo.Fresh(frame.CapturedAt) {
		geo = nil
	}

	gf := domain.GeoFrame{Frame: frame, Geo: geo, CapturedAt: frame.CapturedAt}

	select {
	case d.queues[class] <- gf:
		telemetry.QueueDepth.WithLabelValues(class.String()).Set(float64(len(d.queues[class])))
	default:
		telemetry.FramesDropped.WithLabelValues(class.String()).Inc()
	}
}
