package services

import (
	"context"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/lcalzada-xor/dot11sentry/internal/core/domain"
	"github.com/lcalzada-xor/dot11sentry/internal/core/ports"
	"github.com/lcalzada-xor/dot11sentry/internal/telemetry"
)

// Config bundles everything the Supervisor needs to wire the pipeline, one
// field per spec.md §6 config key this layer consumes.
type Config struct {
	Interface        string
	EventQueueSize   int
	FrameQueueSize   int
	NumEventHandlers int
	ClassRates       ClassRates
	Thresholds       Thresholds
	EvictionInterval time.Duration
}

// Supervisor owns the pipeline's lifecycle: it wires the Dispatcher, the
// five parser goroutines, the EventWorker pool, and the periodic
// FreshnessCache eviction, then runs them until its context is canceled.
type Supervisor struct {
	cfg        Config
	sniffer    ports.Sniffer
	location   ports.LocationSource
	store      ports.Storage
	cache      *FreshnessCache
	logger     *log.Logger
	dispatcher *Dispatcher
	eventQueue chan domain.EventGroup
}

// NewSupervisor wires the Dispatcher and event queue up front; Run starts
// every goroutine.
func NewSupervisor(cfg Config, sniffer ports.Sniffer, location ports.LocationSource, store ports.Storage, logger *log.Logger) *Supervisor {
	return &Supervisor{
		cfg:        cfg,
		sniffer:    sniffer,
		location:   location,
		store:      store,
		cache:      NewFreshnessCache(),
		logger:     logger,
		dispatcher: NewDispatcher(cfg.FrameQueueSize, cfg.ClassRates, location),
		eventQueue: make(chan domain.EventGroup, cfg.EventQueueSize),
	}
}

var allClasses = []domain.FrameClass{
	domain.ClassBeacon, domain.ClassProbeReq, domain.ClassMgmt, domain.ClassCtrl, domain.ClassData,
}

// Run starts the parser goroutines, the EventWorker pool, the eviction
// timer, and finally the sniffer itself (blocking). It returns when ctx is
// canceled or the sniffer errors out.
func (s *Supervisor) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var wg sync.WaitGroup

	for _, class := range allClasses {
		wg.Add(1)
		go func(class domain.FrameClass) {
			defer wg.Done()
			s.runParser(ctx, class)
		}(class)
	}

	for i := 0; i < s.cfg.NumEventHandlers; i++ {
		worker := &EventWorker{
			ID:         workerID(i),
			Queue:      s.eventQueue,
			Store:      s.store,
			Cache:      s.cache,
			Thresholds: s.cfg.Thresholds,
			Logger:     s.logger,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker.Run(ctx)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.runEviction(ctx)
	}()

	err := s.sniffer.Start(ctx, s.dispatcher.Dispatch)
	cancel()
	wg.Wait()
	return err
}

func workerID(i int) string {
	return "w" + strconv.Itoa(i)
}

// runParser is the single consumer of one class's frame queue: it decodes
// each GeoFrame into an event group and forwards it, non-blockingly, onto
// the shared event queue.
func (s *Supervisor) runParser(ctx context.Context, class domain.FrameClass) {
	queue := s.dispatcher.Queue(class)
	for {
		select {
		case <-ctx.Done():
			return
		case gf, ok := <-queue:
			if !ok {
				return
			}
			_, subtype, recognized := domain.Classify(gf.Frame.Type, gf.Frame.Subtype)
			if !recognized {
				continue
			}
			group := ParseFrame(class, subtype, gf)
			select {
			case s.eventQueue <- group:
			default:
				telemetry.FramesDropped.WithLabelValues("event").Inc()
			}
		}
	}
}

func (s *Supervisor) runEviction(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.EvictionInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cache.Evict(time.Now(), s.cfg.Thresholds.MAC, s.cfg.Thresholds.AP, s.cfg.Thresholds.Geo, s.cfg.Thresholds.Association)
		}
	}
}
