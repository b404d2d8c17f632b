package services

import (
	"context"
	"log"
	"time"

	"github.com/lcalzada-xor/dot11sentry/internal/core/domain"
	"github.com/lcalzada-xor/dot11sentry/internal/core/ports"
	"github.com/lcalzada-xor/dot11sentry/internal/telemetry"
)

// Thresholds bundles the four per-kind freshness windows read from config.
type Thresholds struct {
	MAC         time.Duration
	AP          time.Duration
	Association time.Duration
	Geo         time.Duration
}

// EventWorker drains the shared event queue and, for each group, processes
// its events in order against the store, gated by the shared FreshnessCache.
// Any of N workers may pull the next group; only one owns a given group's
// full dependency chain at a time.
type EventWorker struct {
	ID         string
	Queue      <-chan domain.EventGroup
	Store      ports.Storage
	Cache      *FreshnessCache
	Thresholds Thresholds
	Logger     *log.Logger
}

// Run processes groups until ctx is canceled or the queue is closed.
func (w *EventWorker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case group, ok := <-w.Queue:
			if !ok {
				return
			}
			w.processGroup(ctx, group)
			telemetry.EventGroupsProcessed.WithLabelValues(w.ID).Inc()
		}
	}
}

func (w *EventWorker) processGroup(ctx context.Context, group domain.EventGroup) {
	for _, ev := range group.Events {
		var err error
		switch ev.Kind {
		case domain.EventMAC:
			err = w.handleMAC(ctx, ev)
		case domain.EventSSID:
			err = w.handleSSID(ctx, ev)
		case domain.EventGeo:
			err = w.handleGeo(ctx, ev)
		case domain.EventAssociation:
			err = w.handleAssociation(ctx, ev)
		}
		if err != nil {
			if _, ok := err.(*ports.ErrGroupInvariant); ok {
				w.Logger.Printf("event_worker[%s]: group %s aborted: %v", w.ID, group.ID, err)
				return
			}
			w.Logger.Printf("event_worker[%s]: group %s event %v failed: %v", w.ID, group.ID, ev.Kind, err)
		}
	}
}

func (w *EventWorker) handleMAC(ctx context.Context, ev domain.Event) error {
	addr, ok := domain.ParseMAC(ev.Src)
	if !ok {
		return nil
	}
	if !w.Cache.admit(cacheMAC, addr, ev.Timestamp, w.Thresholds.MAC) {
		return nil
	}
	_, err := w.Store.UpsertMAC(ctx, addr, ev.Timestamp, ev.Origin)
	return err
}

func (w *EventWorker) handleSSID(ctx context.Context, ev domain.Event) error {
	if ev.Src != "" {
		addr, ok := domain.ParseMAC(ev.Src)
		if !ok {
			return nil
		}
		if !w.Cache.admit(cacheSSID, [2]any{addr, ev.Origin}, ev.Timestamp, w.Thresholds.AP) {
			return nil
		}
		macID, macKnown, err := w.Store.FindMACID(ctx, addr)
		if err != nil {
			return err
		}
		_, err = w.Store.UpsertAPForMAC(ctx, macID, macKnown, ev.SSID, ev.Timestamp, ev.Origin)
		return err
	}

	if ev.SSID == "" {
		return nil
	}
	if !w.Cache.admit(cacheSSID, [2]any{ev.SSID, ev.Origin}, ev.Timestamp, w.Thresholds.AP) {
		return nil
	}
	_, err := w.Store.UpsertAPBySSID(ctx, ev.SSID, ev.Timestamp, ev.Origin)
	return err
}

func (w *EventWorker) handleGeo(ctx context.Context, ev domain.Event) error {
	if ev.Geo == nil {
		return nil
	}
	addr, ok := domain.ParseMAC(ev.Src)
	if !ok {
		return nil
	}
	macID, macKnown, err := w.Store.FindMACID(ctx, addr)
	if err != nil {
		return err
	}
	if !macKnown {
		w.Logger.Printf("event_worker[%s]: geo event for unknown mac %s, dropping", w.ID, ev.Src)
		return nil
	}
	if !w.Cache.admit(cacheGeo, addr, ev.Timestamp, w.Thresholds.Geo) {
		return nil
	}
	return w.Store.InsertGeo(ctx, macID, *ev.Geo, ev.Timestamp)
}

func (w *EventWorker) handleAssociation(ctx context.Context, ev domain.Event) error {
	staID, staOK, apID, apOK, err := w.Store.ResolveSTAAP(ctx, ev.Src, ev.Dst, ev.HasDst, ev.SSID, ev.HasSSID)
	if err != nil {
		return err
	}
	if !staOK || !apOK {
		return nil
	}
	if !w.Cache.admit(cacheAssociation, [2]int64{staID, apID}, ev.Timestamp, w.Thresholds.Association) {
		return nil
	}
	_, err = w.Store.UpsertAssociation(ctx, staID, apID, ev.Timestamp)
	return err
}
