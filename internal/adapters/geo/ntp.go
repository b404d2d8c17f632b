package geo

import (
	"context"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/beevik/ntp"
)

// NTPSyncer performs the one-shot startup clock sync described in spec.md
// §4.2: query an NTP server, and on success mark the tracker's clock
// synchronized so the supervisor can release the sniffer. It replaces the
// original sensor's shelled-out `ntpdate` with a direct query, but keeps the
// same internet-reachability precheck so a sensor without connectivity
// fails fast instead of blocking on DNS/connect timeouts.
type NTPSyncer struct {
	Server  string
	Timeout time.Duration
	Logger  *log.Logger
}

// NewNTPSyncer returns a syncer against server with sane defaults.
func NewNTPSyncer(server string, logger *log.Logger) *NTPSyncer {
	return &NTPSyncer{
		Server:  server,
		Timeout: 15 * time.Second,
		Logger:  logger,
	}
}

// InternetReachable reports whether a TCP connection to a well-known host
// succeeds within a short timeout. NTP queries over an unreachable link can
// otherwise stall for the full OS socket timeout before failing.
func (s *NTPSyncer) InternetReachable() bool {
	conn, err := net.DialTimeout("tcp", "1.1.1.1:443", 8*time.Second)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// Sync attempts one NTP query against s.Server and, on success, corrects the
// local clock and marks tracker synchronized. It reports whether the sync
// succeeded; callers fall back to waiting for a phone-clock sync if not.
func (s *NTPSyncer) Sync(ctx context.Context, tracker *LocationTracker) bool {
	if !s.InternetReachable() {
		s.Logger.Printf("ntp: no internet connectivity, skipping sync attempt")
		return false
	}

	opts := ntp.QueryOptions{Timeout: s.Timeout}
	resp, err := ntp.QueryWithOptions(s.Server, opts)
	if err != nil || resp.Validate() != nil {
		s.Logger.Printf("ntp: query to %s failed: %v", s.Server, err)
		return false
	}

	corrected := time.Now().Add(resp.ClockOffset)
	if err := setSystemClock(corrected); err != nil {
		s.Logger.Printf("ntp: query succeeded but clock set failed: %v", err)
		return false
	}

	tracker.MarkSynchronized()
	s.Logger.Printf("ntp: synchronized against %s (offset %s)", s.Server, resp.ClockOffset)
	return true
}

// WaitForSync blocks until the tracker reports TimeSynchronized (set here,
// by a phone update, or both), ctx is canceled, or the NTP attempt already
// succeeded. Call after Sync returns false but before starting the sniffer,
// per the §4.2 invariant that capture must not begin on an untrusted clock.
func WaitForSync(ctx context.Context, tracker *LocationTracker, logger *log.Logger) error {
	if tracker.TimeSynchronized() {
		return nil
	}
	logger.Printf("waiting for time synchronization...")
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("geo: %w", ctx.Err())
		case <-ticker.C:
			if tracker.TimeSynchronized() {
				return nil
			}
		}
	}
}
