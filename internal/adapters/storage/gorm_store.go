// Package storage implements ports.Storage on top of GORM, backed by either
// SQLite (single-sensor deployments) or MySQL (the paired-device-compatible
// schema the original sensor wrote to).
package storage

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/lcalzada-xor/dot11sentry/internal/core/domain"
	"github.com/lcalzada-xor/dot11sentry/internal/core/ports"
)

// GormStore implements ports.Storage. Every method is a single logical
// operation against the four tables; none span a multi-statement
// transaction, matching the spec's single-round-trip-per-event design.
type GormStore struct {
	db *gorm.DB
}

var _ ports.Storage = (*GormStore)(nil)

// NewSQLiteStore opens (creating if absent) a SQLite database at path and
// migrates the schema. WAL mode and a busy timeout let EventWorkers share
// one file without "database is locked" errors under write contention.
func NewSQLiteStore(path string) (*GormStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("storage: open sqlite %s: %w", path, err)
	}
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA busy_timeout=5000;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	return newStore(db)
}

// MySQLConfig holds the connection parameters spec.md's MYSQL config
// section names.
type MySQLConfig struct {
	User     string
	Password string
	Host     string
	Port     int
	Database string
}

// DSN builds a go-sql-driver/mysql DSN from the config.
func (c MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

// NewMySQLStore opens a MySQL-backed store for deployments that share the
// database across sensors.
func NewMySQLStore(cfg MySQLConfig) (*GormStore, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("storage: open mysql %s@%s: %w", cfg.User, cfg.Host, err)
	}
	return newStore(db)
}

func newStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&MACModel{}, &APModel{}, &GeoModel{}, &AssociationModel{}); err != nil {
		return nil, fmt.Errorf("storage: migrate: %w", err)
	}
	if err := db.Use(tracing.NewPlugin()); err != nil {
		return nil, fmt.Errorf("storage: otel plugin: %w", err)
	}
	return &GormStore{db: db}, nil
}

// UpsertMAC inserts a new mac row or bumps last_seen/count/origin flag on an
// existing one.
func (s *GormStore) UpsertMAC(ctx context.Context, addr uint64, ts time.Time, origin domain.Origin) (bool, error) {
	var existing MACModel
	err := s.db.WithContext(ctx).Where("addr = ?", addr).First(&existing).Error
	switch {
	case err == gorm.ErrRecordNotFound:
		model := MACModel{Addr: addr, FirstSeen: ts, LastSeen: ts, Count: 1}
		setOriginFlag(&model, origin)
		if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
			return false, fmt.Errorf("storage: insert mac: %w", err)
		}
		return true, nil
	case err != nil:
		return false, fmt.Errorf("storage: lookup mac: %w", err)
	}

	updates := map[string]any{"last_seen": ts, "count": existing.Count + 1}
	if col := origin.Column(); col != "" {
		updates[col] = true
	}
	if err := s.db.WithContext(ctx).Model(&existing).Updates(updates).Error; err != nil {
		return false, fmt.Errorf("storage: update mac: %w", err)
	}
	return false, nil
}

// FindMACID looks up a mac row's id by address.
func (s *GormStore) FindMACID(ctx context.Context, addr uint64) (int64, bool, error) {
	var model MACModel
	err := s.db.WithContext(ctx).Select("id").Where("addr = ?", addr).First(&model).Error
	switch {
	case err == gorm.ErrRecordNotFound:
		return 0, false, nil
	case err != nil:
		return 0, false, fmt.Errorf("storage: find mac: %w", err)
	}
	return model.ID, true, nil
}

// UpsertAPForMAC implements the src-known branch of the SSID handling rule:
// find the AP already linked to macID with a matching SSID and bump it, or
// insert a new AP row linking to macID.
func (s *GormStore) UpsertAPForMAC(ctx context.Context, macID int64, macKnown bool, ssid string, ts time.Time, origin domain.Origin) (bool, error) {
	if !macKnown && origin == domain.OriginBeacon {
		return false, &ports.ErrGroupInvariant{
			Msg: "beacon SSID event observed with no preceding mac row in the same group",
		}
	}

	var existing APModel
	err := s.db.WithContext(ctx).Where("mac_id = ? AND ssid = ?", macID, ssid).First(&existing).Error
	switch {
	case err == gorm.ErrRecordNotFound:
		model := APModel{SSID: ssid, MacID: &macID, FirstSeen: ts, LastSeen: ts, Count: 1}
		setAPOriginFlag(&model, origin)
		if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
			return false, fmt.Errorf("storage: insert ap: %w", err)
		}
		return true, nil
	case err != nil:
		return false, fmt.Errorf("storage: lookup ap: %w", err)
	}

	updates := map[string]any{"last_seen": ts, "count": existing.Count + 1}
	if col := origin.Column(); col != "" {
		updates[col] = true
	}
	if err := s.db.WithContext(ctx).Model(&existing).Updates(updates).Error; err != nil {
		return false, fmt.Errorf("storage: update ap: %w", err)
	}
	return false, nil
}

// UpsertAPBySSID implements the anonymous-probe-req branch: match or insert
// an AP purely by SSID, with no MAC link.
func (s *GormStore) UpsertAPBySSID(ctx context.Context, ssid string, ts time.Time, origin domain.Origin) (bool, error) {
	var existing APModel
	err := s.db.WithContext(ctx).Where("ssid = ? AND mac_id IS NULL", ssid).First(&existing).Error
	switch {
	case err == gorm.ErrRecordNotFound:
		model := APModel{SSID: ssid, FirstSeen: ts, LastSeen: ts, Count: 1}
		setAPOriginFlag(&model, origin)
		if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
			return false, fmt.Errorf("storage: insert anonymous ap: %w", err)
		}
		return true, nil
	case err != nil:
		return false, fmt.Errorf("storage: lookup anonymous ap: %w", err)
	}

	if err := s.db.WithContext(ctx).Model(&existing).Updates(map[string]any{
		"last_seen": ts, "count": existing.Count + 1,
	}).Error; err != nil {
		return false, fmt.Errorf("storage: update anonymous ap: %w", err)
	}
	return false, nil
}

// InsertGeo appends a sighting row; geo is always an insert, never an
// update.
func (s *GormStore) InsertGeo(ctx context.Context, macID int64, fix domain.GeoFix, ts time.Time) error {
	model := GeoModel{MacID: macID, Latitude: fix.Latitude, Longitude: fix.Longitude, Seen: ts}
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("storage: insert geo: %w", err)
	}
	return nil
}

// ResolveSTAAP implements the §4.5.1 STA/AP resolution procedure.
func (s *GormStore) ResolveSTAAP(ctx context.Context, src, dst string, hasDst bool, ssid string, hasSSID bool) (int64, bool, int64, bool, error) {
	var srcMacID, dstMacID int64
	var srcOK, dstOK bool

	if srcAddr, ok := domain.ParseMAC(src); ok {
		id, found, err := s.FindMACID(ctx, srcAddr)
		if err != nil {
			return 0, false, 0, false, err
		}
		srcMacID, srcOK = id, found
	}
	if hasDst {
		if dstAddr, ok := domain.ParseMAC(dst); ok {
			id, found, err := s.FindMACID(ctx, dstAddr)
			if err != nil {
				return 0, false, 0, false, err
			}
			dstMacID, dstOK = id, found
		}
	}

	if srcOK {
		if apID, found, err := s.findAPByMacID(ctx, srcMacID); err != nil {
			return 0, false, 0, false, err
		} else if found {
			return dstMacID, dstOK, apID, true, nil
		}
	}
	if hasSSID && ssid != "" {
		if apID, found, err := s.findAPBySSID(ctx, ssid); err != nil {
			return 0, false, 0, false, err
		} else if found {
			return srcMacID, srcOK, apID, true, nil
		}
	}
	if dstOK {
		if apID, found, err := s.findAPByMacID(ctx, dstMacID); err != nil {
			return 0, false, 0, false, err
		} else if found {
			return srcMacID, srcOK, apID, true, nil
		}
	}
	return 0, false, 0, false, nil
}

func (s *GormStore) findAPByMacID(ctx context.Context, macID int64) (int64, bool, error) {
	var model APModel
	err := s.db.WithContext(ctx).Select("id").Where("mac_id = ?", macID).First(&model).Error
	switch {
	case err == gorm.ErrRecordNotFound:
		return 0, false, nil
	case err != nil:
		return 0, false, err
	}
	return model.ID, true, nil
}

func (s *GormStore) findAPBySSID(ctx context.Context, ssid string) (int64, bool, error) {
	var model APModel
	err := s.db.WithContext(ctx).Select("id").Where("ssid = ?", ssid).First(&model).Error
	switch {
	case err == gorm.ErrRecordNotFound:
		return 0, false, nil
	case err != nil:
		return 0, false, err
	}
	return model.ID, true, nil
}

// UpsertAssociation inserts or bumps last_seen on the (staID, apID) pair,
// relying on the table's composite unique index to make the insert
// idempotent under races between workers.
func (s *GormStore) UpsertAssociation(ctx context.Context, staID, apID int64, ts time.Time) (bool, error) {
	var existing int64
	if err := s.db.WithContext(ctx).Model(&AssociationModel{}).
		Where("mac_id = ? AND ap_id = ?", staID, apID).Count(&existing).Error; err != nil {
		return false, fmt.Errorf("storage: lookup association: %w", err)
	}
	model := AssociationModel{MacID: staID, ApID: apID, FirstSeen: ts, LastSeen: ts}
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "mac_id"}, {Name: "ap_id"}},
		DoUpdates: clause.Assignments(map[string]any{"last_seen": ts}),
	}).Create(&model)
	if result.Error != nil {
		return false, fmt.Errorf("storage: upsert association: %w", result.Error)
	}
	return existing == 0, nil
}

// Snapshot builds the status-push payload: the latest mac/ssid/association
// seen within the last 60s (nil otherwise) plus row counts.
func (s *GormStore) Snapshot(ctx context.Context) (domain.StatusSnapshot, error) {
	var snap domain.StatusSnapshot
	cutoff := time.Now().Add(-60 * time.Second)

	var mac MACModel
	if err := s.db.WithContext(ctx).Order("last_seen DESC").First(&mac).Error; err == nil {
		if mac.LastSeen.After(cutoff) {
			hex := fmt.Sprintf("%012X", mac.Addr)
			snap.MAC = &hex
		}
	} else if err != gorm.ErrRecordNotFound {
		return snap, fmt.Errorf("storage: snapshot mac: %w", err)
	}

	var ap APModel
	if err := s.db.WithContext(ctx).Order("last_seen DESC").First(&ap).Error; err == nil {
		if ap.LastSeen.After(cutoff) {
			snap.SSID = &ap.SSID
		}
	} else if err != gorm.ErrRecordNotFound {
		return snap, fmt.Errorf("storage: snapshot ap: %w", err)
	}

	type assocRow struct {
		Addr     uint64
		SSID     string
		LastSeen time.Time
	}
	var assoc assocRow
	err := s.db.WithContext(ctx).Table("association").
		Select("mac.addr, ap.ssid, association.last_seen").
		Joins("JOIN mac ON mac.id = association.mac_id").
		Joins("JOIN ap ON ap.id = association.ap_id").
		Order("association.last_seen DESC").
		Limit(1).Scan(&assoc).Error
	if err != nil {
		return snap, fmt.Errorf("storage: snapshot association: %w", err)
	}
	if !assoc.LastSeen.IsZero() && assoc.LastSeen.After(cutoff) {
		label := fmt.Sprintf("%012X <-> %s", assoc.Addr, assoc.SSID)
		snap.Association = &label
	}

	if err := s.db.WithContext(ctx).Model(&MACModel{}).Count(&snap.MACCount).Error; err != nil {
		return snap, fmt.Errorf("storage: count mac: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&APModel{}).Count(&snap.APCount).Error; err != nil {
		return snap, fmt.Errorf("storage: count ap: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&GeoModel{}).Count(&snap.GeoCount).Error; err != nil {
		return snap, fmt.Errorf("storage: count geo: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&AssociationModel{}).Count(&snap.AssociationCount).Error; err != nil {
		return snap, fmt.Errorf("storage: count association: %w", err)
	}

	return snap, nil
}

// Close releases the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func setOriginFlag(m *MACModel, origin domain.Origin) {
	switch origin {
	case domain.OriginBeacon:
		m.FromBeacon = true
	case domain.OriginProbeReq:
		m.FromProbeReq = true
	case domain.OriginProbeResp:
		m.FromProbeResp = true
	case domain.OriginMgmt:
		m.FromMgmt = true
	case domain.OriginCtrl:
		m.FromCtrl = true
	case domain.OriginData:
		m.FromData = true
	}
}

func setAPOriginFlag(m *APModel, origin domain.Origin) {
	switch origin {
	case domain.OriginBeacon:
		m.FromBeacon = true
	case domain.OriginProbeReq:
		m.FromProbeReq = true
	case domain.OriginProbeResp:
		m.FromProbeResp = true
	case domain.OriginMgmt:
		m.FromMgmt = true
	case domain.OriginCtrl:
		m.FromCtrl = true
	case domain.OriginData:
		m.FromData = true
	}
}
