package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lcalzada-xor/dot11sentry/internal/core/domain"
	"github.com/lcalzada-xor/dot11sentry/internal/core/ports"
)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	store, err := newStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestGormStore_UpsertMACInsertsThenUpdates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ts := time.Now()

	inserted, err := store.UpsertMAC(ctx, 0xAABBCCDDEEFF, ts, domain.OriginBeacon)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = store.UpsertMAC(ctx, 0xAABBCCDDEEFF, ts.Add(time.Minute), domain.OriginMgmt)
	require.NoError(t, err)
	assert.False(t, inserted)

	id, ok, err := store.FindMACID(ctx, 0xAABBCCDDEEFF)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotZero(t, id)
}

func TestGormStore_UpsertAPForMACWithoutMACIsInvariantError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.UpsertAPForMAC(ctx, 0, false, "home", time.Now(), domain.OriginBeacon)
	require.Error(t, err)
	_, isInvariant := err.(*ports.ErrGroupInvariant)
	require.True(t, isInvariant)
}

func TestGormStore_UpsertAPForMACInsertsThenUpdates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ts := time.Now()

	_, err := store.UpsertMAC(ctx, 0x1122334455, ts, domain.OriginMgmt)
	require.NoError(t, err)
	macID, ok, err := store.FindMACID(ctx, 0x1122334455)
	require.NoError(t, err)
	require.True(t, ok)

	inserted, err := store.UpsertAPForMAC(ctx, macID, true, "office", ts, domain.OriginMgmt)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = store.UpsertAPForMAC(ctx, macID, true, "office", ts.Add(time.Minute), domain.OriginMgmt)
	require.NoError(t, err)
	assert.False(t, inserted)
}

func TestGormStore_UpsertAPBySSIDInsertsThenUpdates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ts := time.Now()

	inserted, err := store.UpsertAPBySSID(ctx, "guestnet", ts, domain.OriginProbeReq)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = store.UpsertAPBySSID(ctx, "guestnet", ts.Add(time.Minute), domain.OriginProbeReq)
	require.NoError(t, err)
	assert.False(t, inserted)
}

func TestGormStore_InsertGeoAppendsRows(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ts := time.Now()

	_, err := store.UpsertMAC(ctx, 0x998877, ts, domain.OriginMgmt)
	require.NoError(t, err)
	macID, _, err := store.FindMACID(ctx, 0x998877)
	require.NoError(t, err)

	err = store.InsertGeo(ctx, macID, domain.GeoFix{Latitude: 1.5, Longitude: 2.5, Timestamp: ts}, ts)
	require.NoError(t, err)
	err = store.InsertGeo(ctx, macID, domain.GeoFix{Latitude: 1.6, Longitude: 2.6, Timestamp: ts}, ts)
	require.NoError(t, err)

	var count int64
	require.NoError(t, store.db.WithContext(ctx).Model(&GeoModel{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestGormStore_ResolveSTAAPBySrcMAC(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ts := time.Now()

	_, err := store.UpsertMAC(ctx, 0xAAAAAA, ts, domain.OriginMgmt)
	require.NoError(t, err)
	apMacID, _, err := store.FindMACID(ctx, 0xAAAAAA)
	require.NoError(t, err)
	_, err = store.UpsertAPForMAC(ctx, apMacID, true, "home", ts, domain.OriginMgmt)
	require.NoError(t, err)
	_, err = store.UpsertMAC(ctx, 0xBBBBBB, ts, domain.OriginMgmt)
	require.NoError(t, err)
	staMacID, _, err := store.FindMACID(ctx, 0xBBBBBB)
	require.NoError(t, err)

	// The AP is on the src side, so the station is the dst.
	staID, staOK, apID, apOK, err := store.ResolveSTAAP(ctx, "00:00:00:aa:aa:aa", "00:00:00:bb:bb:bb", true, "", false)
	require.NoError(t, err)
	assert.True(t, staOK)
	assert.True(t, apOK)
	assert.Equal(t, staMacID, staID)
	assert.NotZero(t, apID)
}

func TestGormStore_ResolveSTAAPBySSIDForAnonymousProbeReq(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ts := time.Now()

	_, err := store.UpsertAPBySSID(ctx, "guestnet", ts, domain.OriginProbeReq)
	require.NoError(t, err)

	_, staOK, apID, apOK, err := store.ResolveSTAAP(ctx, "unknown-src", "", false, "guestnet", true)
	require.NoError(t, err)
	assert.False(t, staOK)
	assert.True(t, apOK)
	assert.NotZero(t, apID)
}

func TestGormStore_ResolveSTAAPUnresolvable(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, staOK, _, apOK, err := store.ResolveSTAAP(ctx, "nope", "", false, "", false)
	require.NoError(t, err)
	assert.False(t, staOK)
	assert.False(t, apOK)
}

func TestGormStore_UpsertAssociationInsertsThenUpdates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ts := time.Now()

	inserted, err := store.UpsertAssociation(ctx, 1, 2, ts)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = store.UpsertAssociation(ctx, 1, 2, ts.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, inserted)
}

func TestGormStore_SnapshotCounts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ts := time.Now()

	_, err := store.UpsertMAC(ctx, 0x1, ts, domain.OriginMgmt)
	require.NoError(t, err)
	_, err = store.UpsertAPBySSID(ctx, "net", ts, domain.OriginProbeReq)
	require.NoError(t, err)

	snap, err := store.Snapshot(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, snap.MACCount)
	assert.EqualValues(t, 1, snap.APCount)
	require.NotNil(t, snap.MAC)
	require.NotNil(t, snap.SSID)
	assert.Equal(t, "net", *snap.SSID)
}
