package storage

import "time"

// MACModel is the GORM model backing the mac table: one row per observed
// 48-bit address, with a boolean flag per frame class that has ever
// contributed to the row.
type MACModel struct {
	ID        int64 `gorm:"primaryKey;autoIncrement"`
	Addr      uint64 `gorm:"uniqueIndex;not null"`
	FirstSeen time.Time
	LastSeen  time.Time `gorm:"index"`
	Count     int64

	FromBeacon    bool
	FromMgmt      bool
	FromCtrl      bool
	FromData      bool
	FromProbeReq  bool
	FromProbeResp bool
}

func (MACModel) TableName() string { return "mac" }

// APModel is the GORM model backing the ap table. MacID is nullable: an AP
// discovered only from an anonymous probe request's SSID has no owning MAC.
type APModel struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	SSID      string `gorm:"index;not null"`
	MacID     *int64 `gorm:"index"`
	FirstSeen time.Time
	LastSeen  time.Time `gorm:"index"`
	Count     int64

	FromBeacon    bool
	FromMgmt      bool
	FromCtrl      bool
	FromData      bool
	FromProbeReq  bool
	FromProbeResp bool
}

func (APModel) TableName() string { return "ap" }

// GeoModel is the GORM model backing the geo table: an append-only log of
// location sightings tied to a MAC.
type GeoModel struct {
	ID        int64 `gorm:"primaryKey;autoIncrement"`
	MacID     int64 `gorm:"index;not null"`
	Latitude  float64
	Longitude float64
	Seen      time.Time `gorm:"index"`
}

func (GeoModel) TableName() string { return "geo" }

// AssociationModel is the GORM model backing the association table: one row
// per (station, AP) pair ever observed together.
type AssociationModel struct {
	ID        int64 `gorm:"primaryKey;autoIncrement"`
	MacID     int64 `gorm:"uniqueIndex:idx_association_pair;not null"`
	ApID      int64 `gorm:"uniqueIndex:idx_association_pair;not null"`
	FirstSeen time.Time
	LastSeen  time.Time `gorm:"index"`
}

func (AssociationModel) TableName() string { return "association" }
