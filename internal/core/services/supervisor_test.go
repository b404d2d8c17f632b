package services

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcalzada-xor/dot11sentry/internal/core/domain"
	"github.com/lcalzada-xor/dot11sentry/internal/core/ports"
)

type fakeSniffer struct {
	frames []domain.Frame
}

func (f *fakeSniffer) Start(ctx context.Context, dispatch ports.FrameFunc) error {
	for _, frame := range f.frames {
		dispatch(frame)
	}
	<-ctx.Done()
	return nil
}

func (f *fakeSniffer) Close() error { return nil }

func TestSupervisor_EndToEndBeaconReachesStore(t *testing.T) {
	store := newFakeStore()
	sniffer := &fakeSniffer{frames: []domain.Frame{
		{Type: 0, Subtype: 8, Addr2: "aa:aa:aa:aa:aa:aa", SSID: "home", HasSSID: true, CapturedAt: time.Now()},
	}}

	sup := NewSupervisor(Config{
		Interface:        "wlan0",
		EventQueueSize:   16,
		FrameQueueSize:   16,
		NumEventHandlers: 2,
		ClassRates:       ClassRates{Beacon: 1, Mgmt: 1, Ctrl: 1, Data: 1},
		Thresholds:       Thresholds{MAC: time.Minute, AP: time.Minute, Association: time.Minute, Geo: time.Minute},
		EvictionInterval: time.Hour,
	}, sniffer, staticLocation{}, store, log.New(io.Discard, "", 0))

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := sup.Run(ctx)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return len(store.macs) == 1
	}, time.Second, 10*time.Millisecond)
}
