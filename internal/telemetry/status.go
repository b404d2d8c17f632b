package telemetry

import (
	"context"
	"log"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/lcalzada-xor/dot11sentry/internal/core/domain"
	"github.com/lcalzada-xor/dot11sentry/internal/core/ports"
)

// StatusPusher builds a StatusSnapshot from storage counts plus host
// resource readings and pushes it, every interval, to every configured
// ports.StatusPublisher. The daemon configures the debug HTTP surface as
// its only publisher; nothing is sent back over the geo link.
type StatusPusher struct {
	Store      snapshotSource
	Publishers []ports.StatusPublisher
	Interval   time.Duration
	Logger     *log.Logger
}

// snapshotSource is the subset of ports.Storage the pusher needs; kept
// narrow so tests can supply a stub without the full storage interface.
type snapshotSource interface {
	Snapshot(ctx context.Context) (domain.StatusSnapshot, error)
}

// NewStatusPusher wires a StatusPusher against a store and zero or more
// publishers.
func NewStatusPusher(store snapshotSource, interval time.Duration, logger *log.Logger, publishers ...ports.StatusPublisher) *StatusPusher {
	return &StatusPusher{Store: store, Publishers: publishers, Interval: interval, Logger: logger}
}

// Run pushes a snapshot on every tick until ctx is canceled.
func (p *StatusPusher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.pushOnce(ctx)
		}
	}
}

func (p *StatusPusher) pushOnce(ctx context.Context) {
	snapshot, err := p.Store.Snapshot(ctx)
	if err != nil {
		p.Logger.Printf("status: snapshot failed: %v", err)
		return
	}
	snapshot.CPUUsage = readCPUPercent()
	snapshot.MemUsage = readMemPercent()
	snapshot.Temperature = readTemperature()

	for _, pub := range p.Publishers {
		if err := pub.Publish(ctx, snapshot); err != nil {
			p.Logger.Printf("status: publish failed: %v", err)
		}
	}
}

func readCPUPercent() float64 {
	percents, err := cpu.Percent(0, false)
	if err != nil || len(percents) == 0 {
		return 0
	}
	return percents[0]
}

func readMemPercent() float64 {
	v, err := mem.VirtualMemory()
	if err != nil {
		return 0
	}
	return v.UsedPercent
}

func readTemperature() float64 {
	temps, err := host.SensorsTemperatures()
	if err != nil || len(temps) == 0 {
		return 0
	}
	return temps[0].Temperature
}
