// Package config loads dot11sentry's INI configuration file and the single
// command-line flag that selects the capture interface.
package config

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"gopkg.in/ini.v1"
)

// Config holds every setting a running sensor needs, assembled from the
// DEFAULT, DOT11, MYSQL, and BLUETOOTH sections of the INI file plus the
// mandatory -i flag.
type Config struct {
	Interface string

	LogLevel        string
	LogPath         string
	LogInterval     time.Duration
	ChannelInterval time.Duration
	FrameQueueSize  int
	EventQueueSize  int
	NumEventHandlers int

	FrameTypes       []string
	MaxChannel       int
	BeaconSampleRate float64
	MgmtSampleRate   float64
	CtrlSampleRate   float64
	DataSampleRate   float64

	DBDriver string // "sqlite" or "mysql"
	SQLitePath string

	MySQLUser     string
	MySQLPassword string
	MySQLHost     string
	MySQLPort     int
	MySQLDatabase string

	MACUpdateInterval         time.Duration
	APUpdateInterval          time.Duration
	AssociationUpdateInterval time.Duration
	GeoUpdateInterval         time.Duration

	GeoListenAddr string
	ServiceUUID   string
}

// defaults seeds every key spec.md §6 lists, so a minimal or absent INI file
// still produces a runnable configuration.
func defaults() *Config {
	return &Config{
		LogLevel:        "info",
		LogPath:         "dot11sentry.log",
		LogInterval:     5 * time.Second,
		ChannelInterval: 300 * time.Millisecond,
		FrameQueueSize:  256,
		EventQueueSize:  256,
		NumEventHandlers: 4,

		FrameTypes:       []string{"beacon", "probe_req", "mgmt", "ctrl", "data"},
		MaxChannel:       14,
		BeaconSampleRate: 1,
		MgmtSampleRate:   1,
		CtrlSampleRate:   1,
		DataSampleRate:   1,

		DBDriver:   "sqlite",
		SQLitePath: "dot11sentry.db",

		MySQLHost: "127.0.0.1",
		MySQLPort: 3306,

		MACUpdateInterval:         60 * time.Second,
		APUpdateInterval:          60 * time.Second,
		AssociationUpdateInterval: 60 * time.Second,
		GeoUpdateInterval:         10 * time.Second,

		GeoListenAddr: ":4646",
		ServiceUUID:   "0000dec1-0000-1000-8000-00805f9b34fb",
	}
}

// Load parses the -i flag and path INI file into a Config. path may be
// empty, in which case only defaults and the flag apply.
func Load(args []string, path string) (*Config, error) {
	cfg := defaults()

	fs := flag.NewFlagSet("dot11sentry", flag.ContinueOnError)
	iface := fs.String("i", "", "capture interface in monitor mode (required)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *iface == "" {
		fs.Usage()
		return nil, flag.ErrHelp
	}
	cfg.Interface = *iface

	if path == "" {
		return cfg, nil
	}

	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("config: load %s: %w", path, err)
	}

	def := file.Section("DEFAULT")
	cfg.LogLevel = def.Key("log_level").MustString(cfg.LogLevel)
	cfg.LogPath = def.Key("log_path").MustString(cfg.LogPath)
	cfg.LogInterval = secondsKey(def, "log_interval", cfg.LogInterval)
	cfg.ChannelInterval = secondsKey(def, "channel_interval", cfg.ChannelInterval)
	cfg.FrameQueueSize = def.Key("frm_queue_max_size").MustInt(cfg.FrameQueueSize)
	cfg.EventQueueSize = def.Key("event_queue_max_size").MustInt(cfg.EventQueueSize)
	cfg.NumEventHandlers = def.Key("num_event_handlers").MustInt(cfg.NumEventHandlers)

	dot11 := file.Section("DOT11")
	if raw := dot11.Key("frame_types").MustString(""); raw != "" {
		cfg.FrameTypes = splitCSV(raw)
	}
	cfg.MaxChannel = dot11.Key("max_channel").MustInt(cfg.MaxChannel)
	cfg.BeaconSampleRate = dot11.Key("beacon_sample_rate").MustFloat64(cfg.BeaconSampleRate)
	cfg.MgmtSampleRate = dot11.Key("mgmt_sample_rate").MustFloat64(cfg.MgmtSampleRate)
	cfg.CtrlSampleRate = dot11.Key("ctrl_sample_rate").MustFloat64(cfg.CtrlSampleRate)
	cfg.DataSampleRate = dot11.Key("data_sample_rate").MustFloat64(cfg.DataSampleRate)

	mysqlSec := file.Section("MYSQL")
	cfg.DBDriver = mysqlSec.Key("driver").MustString(cfg.DBDriver)
	cfg.SQLitePath = mysqlSec.Key("sqlite_path").MustString(cfg.SQLitePath)
	cfg.MySQLUser = mysqlSec.Key("user").MustString(cfg.MySQLUser)
	cfg.MySQLPassword = mysqlSec.Key("password").MustString(cfg.MySQLPassword)
	cfg.MySQLHost = mysqlSec.Key("host").MustString(cfg.MySQLHost)
	cfg.MySQLPort = mysqlSec.Key("port").MustInt(cfg.MySQLPort)
	cfg.MySQLDatabase = mysqlSec.Key("database").MustString(cfg.MySQLDatabase)
	cfg.MACUpdateInterval = secondsKey(mysqlSec, "mac_update_interval", cfg.MACUpdateInterval)
	cfg.APUpdateInterval = secondsKey(mysqlSec, "ap_update_interval", cfg.APUpdateInterval)
	cfg.AssociationUpdateInterval = secondsKey(mysqlSec, "association_update_interval", cfg.AssociationUpdateInterval)
	cfg.GeoUpdateInterval = secondsKey(mysqlSec, "geo_update_interval", cfg.GeoUpdateInterval)

	bt := file.Section("BLUETOOTH")
	cfg.ServiceUUID = bt.Key("uuid").MustString(cfg.ServiceUUID)
	cfg.GeoListenAddr = bt.Key("listen_addr").MustString(cfg.GeoListenAddr)

	return cfg, nil
}

func secondsKey(sec *ini.Section, key string, fallback time.Duration) time.Duration {
	seconds := sec.Key(key).MustFloat64(fallback.Seconds())
	return time.Duration(seconds * float64(time.Second))
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
