package rftest

import (
	"encoding/binary"
	"fmt"
	"net"

	"github.com/google/gopacket/layers"
)

// TestFrameLen is the length of a management frame header without body or FCS
const TestFrameLen = 24

var (
	// BroadcastAddr is the destination of the flood frame
	BroadcastAddr = net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

	// TestSourceAddr is a locally administered source/BSSID for the flood frame
	TestSourceAddr = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
)

// TestFrame is the fixed flood frame: a broadcast beacon header
var TestFrame = NewManagementFrame(layers.Dot11TypeMgmtBeacon, BroadcastAddr, TestSourceAddr, 0)

// NewManagementFrame builds a 24-byte 802.11 management frame header
func NewManagementFrame(frameType layers.Dot11Type, dst, src net.HardwareAddr, sequence uint16) []byte {
	frame := make([]byte, TestFrameLen)

	// Frame control: subtype|type|version in byte 0, flags in byte 1
	frame[0] = uint8(frameType) << 2
	frame[1] = uint8(layers.Dot11Flags(0))

	// Duration stays zero for broadcast
	copy(frame[4:10], dst)
	copy(frame[10:16], src)
	copy(frame[16:22], src) // BSSID
	binary.LittleEndian.PutUint16(frame[22:24], sequence<<4)
	return frame
}

// FrameType decodes the 802.11 type/subtype of a raw frame
func FrameType(frame []byte) (layers.Dot11Type, error) {
	if len(frame) < 2 {
		return 0, fmt.Errorf("frame too short: %d bytes", len(frame))
	}
	return layers.Dot11Type(frame[0]&0xFC) >> 2, nil
}

// FrameDestination returns Address1 of a raw management frame
func FrameDestination(frame []byte) (net.HardwareAddr, error) {
	if len(frame) < 10 {
		return nil, fmt.Errorf("frame too short: %d bytes", len(frame))
	}
	return net.HardwareAddr(frame[4:10]), nil
}
