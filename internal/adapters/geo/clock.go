package geo

import (
	"os/exec"
	"time"
)

// setSystemClock sets the local system clock, mirroring the original
// sensor's `date -s "%Y-%m-%d %H:%M:%S"` recovery path for boards without a
// battery-backed RTC. It is the default ClockSetter; tests substitute a
// no-op.
func setSystemClock(t time.Time) error {
	formatted := t.Local().Format("2006-01-02 15:04:05")
	return exec.Command("date", "-s", formatted).Run()
}
