package sniffer

import (
	"net"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
)

func buildDot11Packet(t *testing.T, dot11Type layers.Dot11Type, addr1, addr2 net.HardwareAddr, payload []byte) gopacket.Packet {
	t.Helper()
	dot11 := &layers.Dot11{
		Type:     dot11Type,
		Address1: addr1,
		Address2: addr2,
		Address3: addr2,
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{ComputeChecksums: false}
	var err error
	if len(payload) > 0 {
		err = gopacket.SerializeLayers(buf, opts, dot11, gopacket.Payload(payload))
	} else {
		err = gopacket.SerializeLayers(buf, opts, dot11)
	}
	if err != nil {
		t.Fatalf("serialize layers: %v", err)
	}
	return gopacket.NewPacket(buf.Bytes(), layers.LayerTypeDot11, gopacket.Default)
}

func TestDecodeFrame_BeaconRecoversTypeAndSubtype(t *testing.T) {
	bssid, _ := net.ParseMAC("00:11:22:33:44:55")
	broadcast := net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

	packet := buildDot11Packet(t, layers.Dot11TypeMgmtBeacon, broadcast, bssid, nil)

	frame, ok := decodeFrame(packet)
	assert.True(t, ok)
	assert.Equal(t, 0, frame.Type)
	assert.Equal(t, 8, frame.Subtype)
}

func TestDecodeFrame_RTSRecoversTypeAndSubtype(t *testing.T) {
	src, _ := net.ParseMAC("aa:bb:cc:dd:ee:ff")
	dst, _ := net.ParseMAC("11:22:33:44:55:66")

	packet := buildDot11Packet(t, layers.Dot11TypeCtrlRTS, dst, src, nil)

	frame, ok := decodeFrame(packet)
	assert.True(t, ok)
	assert.Equal(t, 1, frame.Type)
	assert.Equal(t, 11, frame.Subtype)
}

func TestDecodeFrame_QoSDataRecoversTypeAndSubtype(t *testing.T) {
	src, _ := net.ParseMAC("aa:bb:cc:dd:ee:ff")
	dst, _ := net.ParseMAC("11:22:33:44:55:66")

	packet := buildDot11Packet(t, layers.Dot11TypeDataQOSData, dst, src, nil)

	frame, ok := decodeFrame(packet)
	assert.True(t, ok)
	assert.Equal(t, 2, frame.Type)
	assert.Equal(t, 8, frame.Subtype)
}

func TestDecodeFrame_NonDot11PacketRejected(t *testing.T) {
	buf := gopacket.NewSerializeBuffer()
	gopacket.SerializeLayers(buf, gopacket.SerializeOptions{}, &layers.Ethernet{})
	packet := gopacket.NewPacket(buf.Bytes(), layers.LayerTypeEthernet, gopacket.Default)

	_, ok := decodeFrame(packet)
	assert.False(t, ok)
}
