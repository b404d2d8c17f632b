package ports

import (
	"context"

	"github.com/lcalzada-xor/dot11sentry/internal/core/domain"
)

// Sniffer is the abstraction over the raw frame source (a monitor-mode
// capture handle). Start is blocking and feeds each decoded Frame to the
// dispatcher via FrameFunc until ctx is canceled.
type Sniffer interface {
	Start(ctx context.Context, dispatch FrameFunc) error
	Close() error
}

// FrameFunc is called once per captured frame, on the sniffer's single
// producer goroutine.
type FrameFunc func(domain.Frame)

// ChannelController abstracts the OS wireless control utility: enumerate
// channels on an interface and set the active channel.
type ChannelController interface {
	AvailableChannels(ctx context.Context, iface string) ([]int, error)
	SetChannel(ctx context.Context, iface string, channel int) error
	CurrentChannel() int
}

// LocationSource is satisfied by the LocationTracker: a current-fix lookup
// the Dispatcher calls on every enqueue.
type LocationSource interface {
	CurrentGeo() *domain.GeoFix
	TimeSynchronized() bool
}

// StatusPublisher pushes periodic snapshots to the paired device and/or a
// debug surface.
type StatusPublisher interface {
	Publish(ctx context.Context, snapshot domain.StatusSnapshot) error
}
