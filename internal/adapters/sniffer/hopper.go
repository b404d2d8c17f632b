package sniffer

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/lcalzada-xor/dot11sentry/internal/telemetry"
)

// ChannelHopper enumerates the interface's supported channels once at
// startup, filters them to maxChannel, and cycles through the rest
// indefinitely, dwelling on each for interval. It exposes no operations to
// the rest of the pipeline beyond the current channel, used for telemetry.
type ChannelHopper struct {
	Interface string
	MaxChannel int
	Interval  time.Duration
	Logger    *log.Logger

	current atomic.Int64
}

// NewHopper returns a hopper that has not yet enumerated channels; call Run
// to start it.
func NewHopper(iface string, maxChannel int, interval time.Duration, logger *log.Logger) *ChannelHopper {
	return &ChannelHopper{
		Interface:  iface,
		MaxChannel: maxChannel,
		Interval:   interval,
		Logger:     logger,
	}
}

// CurrentChannel returns the channel the interface was last set to, or 0
// before the first hop.
func (h *ChannelHopper) CurrentChannel() int {
	return int(h.current.Load())
}

// AvailableChannels enumerates the interface's supported channels, filtered
// to <= maxChannel. It satisfies ports.ChannelController.
func (h *ChannelHopper) AvailableChannels(ctx context.Context, iface string) ([]int, error) {
	phy, err := getPhyForInterface(iface)
	if err != nil {
		return nil, err
	}
	channels, err := getPhyChannels(phy)
	if err != nil {
		return nil, err
	}

	filtered := channels[:0:0]
	for _, ch := range channels {
		if ch <= h.MaxChannel {
			filtered = append(filtered, ch)
		}
	}
	return filtered, nil
}

// SetChannel sets iface's active channel and records it as current.
// Satisfies ports.ChannelController.
func (h *ChannelHopper) SetChannel(ctx context.Context, iface string, channel int) error {
	if err := setInterfaceChannel(iface, channel); err != nil {
		return err
	}
	h.current.Store(int64(channel))
	telemetry.CurrentChannel.Set(float64(channel))
	return nil
}

// Run enumerates channels once and cycles through them every Interval until
// ctx is canceled. A failure to enumerate is fatal (returned); a failure to
// set a single channel is logged and the hopper moves to the next one.
func (h *ChannelHopper) Run(ctx context.Context) error {
	channels, err := h.AvailableChannels(ctx, h.Interface)
	if err != nil {
		return err
	}
	if len(channels) == 0 {
		h.Logger.Printf("hopper: no channels <= %d available on %s, nothing to hop", h.MaxChannel, h.Interface)
		return nil
	}
	h.Logger.Printf("hopper: cycling %d channels on %s every %s", len(channels), h.Interface, h.Interval)

	ticker := time.NewTicker(h.Interval)
	defer ticker.Stop()

	idx := 0
	hop := func() {
		ch := channels[idx%len(channels)]
		idx++
		if err := h.SetChannel(ctx, h.Interface, ch); err != nil {
			h.Logger.Printf("hopper: failed to set channel %d: %v", ch, err)
		}
	}

	hop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			hop()
		}
	}
}
