package services

import (
	"github.com/google/uuid"

	"github.com/lcalzada-xor/dot11sentry/internal/core/domain"
)

// ParseFrame applies the per-class emission rules of the frame's class to
// build the event group a parser goroutine forwards to the event queue.
// src/dst follow the spec's addr2/addr1 convention.
func ParseFrame(class domain.FrameClass, subtype domain.Subtype, gf domain.GeoFrame) domain.EventGroup {
	switch class {
	case domain.ClassBeacon:
		return parseBeacon(gf)
	case domain.ClassProbeReq:
		return parseProbeReq(gf)
	case domain.ClassMgmt:
		return parseMgmt(subtype, gf)
	case domain.ClassCtrl:
		return parseCtrl(gf)
	case domain.ClassData:
		return parseData(gf)
	default:
		return domain.EventGroup{ID: newGroupID()}
	}
}

func newGroupID() string {
	return uuid.NewString()
}

func parseBeacon(gf domain.GeoFrame) domain.EventGroup {
	src := gf.Frame.Addr2
	ts := gf.CapturedAt

	events := []domain.Event{
		{Kind: domain.EventMAC, Src: src, Origin: domain.OriginMgmt, Timestamp: ts},
		{Kind: domain.EventGeo, Src: src, Geo: gf.Geo, Timestamp: ts},
	}
	if gf.Frame.HasSSID {
		events = append(events, domain.Event{
			Kind: domain.EventSSID, Src: src, SSID: gf.Frame.SSID, HasSSID: true,
			Origin: domain.OriginBeacon, Timestamp: ts,
		})
	}
	return domain.EventGroup{ID: newGroupID(), Events: events}
}

func parseProbeReq(gf domain.GeoFrame) domain.EventGroup {
	src := gf.Frame.Addr2
	ts := gf.CapturedAt

	events := []domain.Event{
		{Kind: domain.EventMAC, Src: src, Origin: domain.OriginMgmt, Timestamp: ts},
		{Kind: domain.EventGeo, Src: src, Geo: gf.Geo, Timestamp: ts},
	}
	if gf.Frame.HasSSID {
		events = append(events,
			domain.Event{Kind: domain.EventSSID, SSID: gf.Frame.SSID, HasSSID: true,
				Origin: domain.OriginProbeReq, Timestamp: ts},
			domain.Event{Kind: domain.EventAssociation, Src: src, SSID: gf.Frame.SSID, HasSSID: true,
				Timestamp: ts},
		)
	}
	return domain.EventGroup{ID: newGroupID(), Events: events}
}

func parseMgmt(subtype domain.Subtype, gf domain.GeoFrame) domain.EventGroup {
	src := gf.Frame.Addr2
	dst := gf.Frame.Addr1
	ts := gf.CapturedAt

	if subtype == domain.SubtypeProbeResp {
		events := []domain.Event{
			{Kind: domain.EventMAC, Src: src, Timestamp: ts},
			{Kind: domain.EventMAC, Src: dst, Timestamp: ts},
			{Kind: domain.EventGeo, Src: src, Geo: gf.Geo, Timestamp: ts},
			{Kind: domain.EventGeo, Src: dst, Geo: gf.Geo, Timestamp: ts},
		}
		if gf.Frame.HasSSID {
			events = append(events,
				domain.Event{Kind: domain.EventSSID, Src: src, SSID: gf.Frame.SSID, HasSSID: true,
					Origin: domain.OriginProbeResp, Timestamp: ts},
				domain.Event{Kind: domain.EventAssociation, Src: src, Dst: dst, HasDst: true, SSID: gf.Frame.SSID, HasSSID: true,
					Timestamp: ts},
			)
		} else {
			events = append(events, domain.Event{Kind: domain.EventAssociation, Src: src, Dst: dst, HasDst: true, Timestamp: ts})
		}
		return domain.EventGroup{ID: newGroupID(), Events: events}
	}

	// ACTION and ASSOCIATION_REQ share the same unconditional shape.
	events := []domain.Event{
		{Kind: domain.EventMAC, Src: src, Timestamp: ts},
		{Kind: domain.EventMAC, Src: dst, Timestamp: ts},
		{Kind: domain.EventGeo, Src: src, Geo: gf.Geo, Timestamp: ts},
		{Kind: domain.EventGeo, Src: dst, Geo: gf.Geo, Timestamp: ts},
		{Kind: domain.EventAssociation, Src: src, Dst: dst, HasDst: true, Timestamp: ts},
	}
	return domain.EventGroup{ID: newGroupID(), Events: events}
}

func parseCtrl(gf domain.GeoFrame) domain.EventGroup {
	src := gf.Frame.Addr2
	dst := gf.Frame.Addr1
	ts := gf.CapturedAt

	events := []domain.Event{
		{Kind: domain.EventMAC, Src: src, Origin: domain.OriginCtrl, Timestamp: ts},
		{Kind: domain.EventMAC, Src: dst, Timestamp: ts},
		{Kind: domain.EventGeo, Src: src, Geo: gf.Geo, Timestamp: ts},
		{Kind: domain.EventGeo, Src: dst, Geo: gf.Geo, Timestamp: ts},
		{Kind: domain.EventAssociation, Src: src, Dst: dst, HasDst: true, Timestamp: ts},
	}
	return domain.EventGroup{ID: newGroupID(), Events: events}
}

func parseData(gf domain.GeoFrame) domain.EventGroup {
	src := gf.Frame.Addr2
	dst := gf.Frame.Addr1
	ts := gf.CapturedAt

	if dst == domain.BroadcastMAC {
		events := []domain.Event{
			{Kind: domain.EventMAC, Src: src, Origin: domain.OriginData, Timestamp: ts},
			{Kind: domain.EventGeo, Src: src, Geo: gf.Geo, Timestamp: ts},
		}
		return domain.EventGroup{ID: newGroupID(), Events: events}
	}

	events := []domain.Event{
		{Kind: domain.EventMAC, Src: src, Origin: domain.OriginData, Timestamp: ts},
		{Kind: domain.EventMAC, Src: dst, Timestamp: ts},
		{Kind: domain.EventGeo, Src: src, Geo: gf.Geo, Timestamp: ts},
		{Kind: domain.EventGeo, Src: dst, Geo: gf.Geo, Timestamp: ts},
		{Kind: domain.EventAssociation, Src: src, Dst: dst, HasDst: true, Timestamp: ts},
	}
	return domain.EventGroup{ID: newGroupID(), Events: events}
}
