package sniffer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"

	"github.com/lcalzada-xor/dot11sentry/internal/adapters/sniffer/ie"
	"github.com/lcalzada-xor/dot11sentry/internal/core/domain"
	"github.com/lcalzada-xor/dot11sentry/internal/core/ports"
)

// PcapSniffer is the monitor-mode frame source: it opens a live pcap handle
// on a monitor interface, decodes each packet's Dot11 layer, and feeds a
// domain.Frame to the dispatcher for every one it can classify.
type PcapSniffer struct {
	Interface string
	SnapLen   int32

	handle *pcap.Handle
}

// NewPcapSniffer returns a sniffer bound to iface, not yet opened.
func NewPcapSniffer(iface string) *PcapSniffer {
	return &PcapSniffer{Interface: iface, SnapLen: 65536}
}

var _ ports.Sniffer = (*PcapSniffer)(nil)

// Start opens the monitor-mode handle and blocks, calling dispatch once per
// decodable 802.11 frame, until ctx is canceled or the handle errors out.
func (s *PcapSniffer) Start(ctx context.Context, dispatch ports.FrameFunc) error {
	handle, err := pcap.OpenLive(s.Interface, s.SnapLen, true, pcap.BlockForever)
	if err != nil {
		return fmt.Errorf("sniffer: open %s: %w", s.Interface, err)
	}
	s.handle = handle

	go func() {
		<-ctx.Done()
		handle.Close()
	}()

	source := gopacket.NewPacketSource(handle, handle.LinkType())
	source.DecodeOptions = gopacket.DecodeOptions{Lazy: true, NoCopy: true}

	for packet := range source.Packets() {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if frame, ok := decodeFrame(packet); ok {
			dispatch(frame)
		}
	}
	return nil
}

// Close releases the pcap handle if open.
func (s *PcapSniffer) Close() error {
	if s.handle != nil {
		s.handle.Close()
	}
	return nil
}

// decodeFrame extracts the minimal Frame view the pipeline needs from a
// captured packet: the raw type/subtype pair (recovered from the frame
// control byte Dot11Type encodes), the header addresses, and an
// opportunistic SSID.
func decodeFrame(packet gopacket.Packet) (domain.Frame, bool) {
	dot11Layer := packet.Layer(layers.LayerTypeDot11)
	if dot11Layer == nil {
		return domain.Frame{}, false
	}
	dot11, ok := dot11Layer.(*layers.Dot11)
	if !ok {
		return domain.Frame{}, false
	}

	// gopacket packs dot11.Type as subtype<<2 | type (e.g.
	// Dot11TypeMgmtBeacon = 0x20 = 8<<2 | 0), so the type is the low two
	// bits and the subtype the four bits above them.
	raw := uint8(dot11.Type)
	frameType := int(raw & 0x03)
	frameSubtype := int(raw >> 2)

	frame := domain.Frame{
		Type:       frameType,
		Subtype:    frameSubtype,
		Addr1:      dot11.Address1.String(),
		Addr2:      dot11.Address2.String(),
		Addr3:      dot11.Address3.String(),
		CapturedAt: time.Now(),
	}

	if ssid, ok := extractSSID(packet); ok {
		frame.SSID = ssid
		frame.HasSSID = true
	}

	return frame, true
}

// extractSSID scans the frame's information elements for tag 0 and
// UTF-8-decodes it. A present-but-empty SSID (hidden network) is reported
// as absent, matching the spec's "SSID absent" branch.
func extractSSID(packet gopacket.Packet) (string, bool) {
	var ieData []byte
	for _, layer := range packet.Layers() {
		switch l := layer.(type) {
		case *layers.Dot11MgmtBeacon:
			ieData = l.LayerPayload()
		case *layers.Dot11MgmtProbeReq:
			ieData = l.LayerPayload()
		case *layers.Dot11MgmtProbeResp:
			ieData = l.LayerPayload()
		}
		if len(ieData) > 0 {
			break
		}
	}
	if len(ieData) == 0 {
		for _, layer := range packet.Layers() {
			if el, ok := layer.(*layers.Dot11InformationElement); ok {
				ieData = append(ieData, byte(el.ID), el.Length)
				ieData = append(ieData, el.Info...)
			}
		}
	}
	if len(ieData) == 0 {
		return "", false
	}

	val, found := ie.FindIE(ieData, 0)
	if !found || len(val) == 0 {
		return "", false
	}
	return string(val), true
}
