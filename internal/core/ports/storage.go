package ports

import (
	"context"
	"time"

	"github.com/lcalzada-xor/dot11sentry/internal/core/domain"
)

// Storage is the upsert protocol the EventWorker drives. Methods run in
// autocommit mode with no multi-statement transactions; several of them
// (lookup-then-insert upserts, ResolveSTAAP, Snapshot) issue more than one
// query.
type Storage interface {
	// UpsertMAC inserts a new mac row or bumps last_seen/count/origin flag
	// on an existing one. Returns true if a row was inserted.
	UpsertMAC(ctx context.Context, addr uint64, ts time.Time, origin domain.Origin) (inserted bool, err error)

	// FindMACID looks up a mac row's id by address.
	FindMACID(ctx context.Context, addr uint64) (id int64, ok bool, err error)

	// UpsertAPForMAC implements the src-known SSID branch of §4.5: update
	// the AP row already linked to macID if its SSID matches, else insert
	// one. macKnown is false only when origin is not OriginBeacon; a beacon
	// SSID event with no prior MAC row is a hard-error invariant violation,
	// surfaced as *ErrGroupInvariant.
	UpsertAPForMAC(ctx context.Context, macID int64, macKnown bool, ssid string, ts time.Time, origin domain.Origin) (inserted bool, err error)

	// UpsertAPBySSID implements the anonymous-probe-req branch of §4.5:
	// match/insert an AP purely by SSID, with no MAC link.
	UpsertAPBySSID(ctx context.Context, ssid string, ts time.Time, origin domain.Origin) (inserted bool, err error)

	// InsertGeo appends a sighting row. Always an insert, never an update.
	InsertGeo(ctx context.Context, macID int64, fix domain.GeoFix, ts time.Time) error

	// ResolveSTAAP implements the §4.5.1 STA/AP resolution procedure.
	// Either return id may be absent (staOK/apOK false).
	ResolveSTAAP(ctx context.Context, src string, dst string, hasDst bool, ssid string, hasSSID bool) (staID int64, staOK bool, apID int64, apOK bool, err error)

	// UpsertAssociation inserts or bumps last_seen on the (staID, apID)
	// pair.
	UpsertAssociation(ctx context.Context, staID, apID int64, ts time.Time) (inserted bool, err error)

	// Snapshot builds the status-push payload: the latest mac/ssid/
	// association seen within the last 60s (nil otherwise) plus row counts.
	Snapshot(ctx context.Context) (domain.StatusSnapshot, error)

	Close() error
}

// ErrGroupInvariant signals a violated cross-event invariant (e.g. a beacon
// SSID observed with no preceding MAC row in the same group). The worker
// aborts just the offending group, not itself, per spec.md §7.
type ErrGroupInvariant struct {
	Msg string
}

func (e *ErrGroupInvariant) Error() string { return e.Msg }
