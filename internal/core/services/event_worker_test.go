package services

import (
	"context"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcalzada-xor/dot11sentry/internal/core/domain"
	"github.com/lcalzada-xor/dot11sentry/internal/core/ports"
)

// fakeStore is a minimal in-memory ports.Storage for exercising EventWorker
// logic without a real database. A mutex guards it since the Supervisor
// test drives it from several worker goroutines concurrently.
type fakeStore struct {
	mu           sync.Mutex
	macs         map[uint64]int64
	nextMACID    int64
	aps          map[int64]string // ap id -> ssid
	apMacOf      map[int64]int64  // ap id -> owning mac id
	nextAPID     int64
	geos         []domain.Geo
	associations map[[2]int64]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		macs:         make(map[uint64]int64),
		aps:          make(map[int64]string),
		apMacOf:      make(map[int64]int64),
		associations: make(map[[2]int64]bool),
	}
}

func (f *fakeStore) UpsertMAC(ctx context.Context, addr uint64, ts time.Time, origin domain.Origin) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.macs[addr]; ok {
		return false, nil
	}
	f.nextMACID++
	f.macs[addr] = f.nextMACID
	return true, nil
}

func (f *fakeStore) FindMACID(ctx context.Context, addr uint64) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id, ok := f.macs[addr]
	return id, ok, nil
}

func (f *fakeStore) UpsertAPForMAC(ctx context.Context, macID int64, macKnown bool, ssid string, ts time.Time, origin domain.Origin) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !macKnown && origin == domain.OriginBeacon {
		return false, &ports.ErrGroupInvariant{Msg: "beacon SSID with no MAC row"}
	}
	for id, owner := range f.apMacOf {
		if owner == macID && f.aps[id] == ssid {
			return false, nil
		}
	}
	f.nextAPID++
	f.aps[f.nextAPID] = ssid
	f.apMacOf[f.nextAPID] = macID
	return true, nil
}

func (f *fakeStore) UpsertAPBySSID(ctx context.Context, ssid string, ts time.Time, origin domain.Origin) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for id, s := range f.aps {
		if s == ssid {
			_ = id
			return false, nil
		}
	}
	f.nextAPID++
	f.aps[f.nextAPID] = ssid
	return true, nil
}

func (f *fakeStore) InsertGeo(ctx context.Context, macID int64, fix domain.GeoFix, ts time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.geos = append(f.geos, domain.Geo{MacID: macID, Latitude: fix.Latitude, Longitude: fix.Longitude, Seen: ts})
	return nil
}

func (f *fakeStore) ResolveSTAAP(ctx context.Context, src, dst string, hasDst bool, ssid string, hasSSID bool) (int64, bool, int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	srcAddr, srcOK := domain.ParseMAC(src)
	var srcMacID int64
	if srcOK {
		srcMacID, srcOK = f.macs[srcAddr]
	}
	var dstMacID int64
	var dstOK bool
	if hasDst {
		if dstAddr, ok := domain.ParseMAC(dst); ok {
			dstMacID, dstOK = f.macs[dstAddr]
		}
	}

	if srcOK {
		for apID, owner := range f.apMacOf {
			if owner == srcMacID {
				return 0, false, apID, true, nil
			}
		}
	}
	if hasSSID {
		for apID, s := range f.aps {
			if s == ssid {
				return srcMacID, srcOK, apID, true, nil
			}
		}
	}
	if dstOK {
		for apID, owner := range f.apMacOf {
			if owner == dstMacID {
				return srcMacID, srcOK, apID, true, nil
			}
		}
	}
	return 0, false, 0, false, nil
}

func (f *fakeStore) UpsertAssociation(ctx context.Context, staID, apID int64, ts time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := [2]int64{staID, apID}
	if f.associations[key] {
		return false, nil
	}
	f.associations[key] = true
	return true, nil
}

func (f *fakeStore) Snapshot(ctx context.Context) (domain.StatusSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return domain.StatusSnapshot{}, nil
}

func (f *fakeStore) Close() error { return nil }

var _ ports.Storage = (*fakeStore)(nil)

func newTestWorker(store *fakeStore) *EventWorker {
	queue := make(chan domain.EventGroup)
	return &EventWorker{
		ID:         "w0",
		Queue:      queue,
		Store:      store,
		Cache:      NewFreshnessCache(),
		Thresholds: Thresholds{MAC: time.Minute, AP: time.Minute, Association: time.Minute, Geo: time.Minute},
		Logger:     log.New(io.Discard, "", 0),
	}
}

func TestEventWorker_MACInsertThenUpdate(t *testing.T) {
	store := newFakeStore()
	w := newTestWorker(store)
	ts := time.Now()

	require.NoError(t, w.handleMAC(context.Background(), domain.Event{Src: "aa:aa:aa:aa:aa:aa", Timestamp: ts, Origin: domain.OriginMgmt}))
	assert.Len(t, store.macs, 1)

	require.NoError(t, w.handleMAC(context.Background(), domain.Event{Src: "aa:aa:aa:aa:aa:aa", Timestamp: ts.Add(2 * time.Minute), Origin: domain.OriginMgmt}))
	assert.Len(t, store.macs, 1, "second observation updates, not inserts")
}

func TestEventWorker_SSIDBeaconWithoutMACIsInvariantError(t *testing.T) {
	store := newFakeStore()
	w := newTestWorker(store)

	err := w.handleSSID(context.Background(), domain.Event{
		Src: "bb:bb:bb:bb:bb:bb", SSID: "home", HasSSID: true,
		Origin: domain.OriginBeacon, Timestamp: time.Now(),
	})
	require.Error(t, err)
	_, isInvariant := err.(*ports.ErrGroupInvariant)
	assert.True(t, isInvariant)
}

func TestEventWorker_SSIDAnonymousProbeReqBySSID(t *testing.T) {
	store := newFakeStore()
	w := newTestWorker(store)

	require.NoError(t, w.handleSSID(context.Background(), domain.Event{
		SSID: "guestnet", HasSSID: true, Timestamp: time.Now(),
	}))
	assert.Len(t, store.aps, 1)
}

func TestEventWorker_GeoDroppedForUnknownMAC(t *testing.T) {
	store := newFakeStore()
	w := newTestWorker(store)

	err := w.handleGeo(context.Background(), domain.Event{
		Src: "cc:cc:cc:cc:cc:cc",
		Geo: &domain.GeoFix{Latitude: 1, Longitude: 2, Timestamp: time.Now()},
		Timestamp: time.Now(),
	})
	require.NoError(t, err)
	assert.Empty(t, store.geos)
}

func TestEventWorker_GeoDroppedWhenNil(t *testing.T) {
	store := newFakeStore()
	w := newTestWorker(store)
	require.NoError(t, w.handleGeo(context.Background(), domain.Event{Src: "aa:aa:aa:aa:aa:aa", Geo: nil}))
	assert.Empty(t, store.geos)
}

func TestEventWorker_AssociationDroppedWhenUnresolved(t *testing.T) {
	store := newFakeStore()
	w := newTestWorker(store)
	err := w.handleAssociation(context.Background(), domain.Event{Src: "unknown", Timestamp: time.Now()})
	require.NoError(t, err)
	assert.Empty(t, store.associations)
}

func TestEventWorker_ProcessGroupOrdersMACBeforeDependents(t *testing.T) {
	store := newFakeStore()
	w := newTestWorker(store)
	ts := time.Now()

	group := domain.EventGroup{
		ID: "g1",
		Events: []domain.Event{
			{Kind: domain.EventMAC, Src: "aa:aa:aa:aa:aa:aa", Timestamp: ts, Origin: domain.OriginBeacon},
			{Kind: domain.EventSSID, Src: "aa:aa:aa:aa:aa:aa", SSID: "home", HasSSID: true, Origin: domain.OriginBeacon, Timestamp: ts},
		},
	}
	w.processGroup(context.Background(), group)
	assert.Len(t, store.macs, 1)
	assert.Len(t, store.aps, 1)
}
