package domain

import "time"

// MAC is a station or AP address row. Addr is the 48-bit address packed
// into a uint64, matching the source's `int(addr.replace(':', ''), 16)`
// representation.
type MAC struct {
	ID        int64
	Addr      uint64
	FirstSeen time.Time
	LastSeen  time.Time
	Count     int64

	FromBeacon    bool
	FromMgmt      bool
	FromCtrl      bool
	FromData      bool
	FromProbeReq  bool
	FromProbeResp bool
}

// AP is an access point row, identified by SSID and optionally linked to a
// MAC row. MacID is nullable: an AP discovered from an anonymous probe
// request's SSID (no prior MAC for the prober) has no MAC of its own.
type AP struct {
	ID        int64
	SSID      string
	MacID     *int64
	FirstSeen time.Time
	LastSeen  time.Time
	Count     int64

	FromBeacon    bool
	FromMgmt      bool
	FromCtrl      bool
	FromData      bool
	FromProbeReq  bool
	FromProbeResp bool
}

// Geo is a single append-only location sighting tied to a MAC.
type Geo struct {
	ID        int64
	MacID     int64
	Latitude  float64
	Longitude float64
	Seen      time.Time
}

// Association links a station MAC to an AP, observed first/last at the
// given timestamps.
type Association struct {
	ID        int64
	MacID     int64
	ApID      int64
	FirstSeen time.Time
	LastSeen  time.Time
}

// StatusSnapshot is the payload the StatusPusher builds every log_interval
// seconds and serves over the debug HTTP surface. It is not sent to the
// paired device.
type StatusSnapshot struct {
	MAC             *string `json:"mac"`
	SSID            *string `json:"ssid"`
	Association     *string `json:"association"`
	MACCount        int64   `json:"mac_count"`
	APCount         int64   `json:"ap_count"`
	GeoCount        int64   `json:"geo_count"`
	AssociationCount int64  `json:"association_count"`
	CPUUsage        float64 `json:"cpu_usage"`
	MemUsage        float64 `json:"mem_usage"`
	Temperature     float64 `json:"temperature"`
}
