package yardstick

import "time"

// USB identifiers of rfcat firmware dongles
const (
	VendorID = 0x1D50

	ProductIDYardStickOne  = 0x605B // CC1111, sub-GHz
	ProductIDDonsDongle    = 0x6048 // CC2511
	ProductIDChronosDongle = 0x6047 // CC1111
	ProductIDSRFStick      = 0xECC1 // CC2511 (TI SmartRF dongle)
)

// KnownProducts lists the product IDs FindAllDevices matches
var KnownProducts = []uint16{
	ProductIDYardStickOne,
	ProductIDDonsDongle,
	ProductIDChronosDongle,
	ProductIDSRFStick,
}

// EP5 framing
const (
	EP5InAddr        = 0x85
	EP5OutAddr       = 0x05
	EP5MaxPacketSize = 64
	EP5OutBufferSize = 516
	ResponseMarker   = 0x40 // '@'

	commandHeaderLen  = 4 // app, cmd, len(2 LE)
	responseHeaderLen = 5 // '@', app, cmd, len(2 LE)
)

// USB timeouts
const (
	USBDefaultTimeout = 1000 * time.Millisecond
	USBTXWaitTimeout  = 10000 * time.Millisecond
)

// Application IDs
const (
	AppNIC    = 0x42
	AppSPECAN = 0x43
	AppDebug  = 0xFE
	AppSystem = 0xFF
)

// System commands (AppSystem)
const (
	SysCmdPeek      = 0x80
	SysCmdPoke      = 0x81
	SysCmdPing      = 0x82
	SysCmdBuildType = 0x86
	SysCmdPartNum   = 0x8E
	SysCmdReset     = 0x8F
	SysCmdLEDMode   = 0x93
)

// NIC commands (AppNIC)
const (
	NICXmit      = 0x02
	NICSpecStart = 0x40
	NICSpecStop  = 0x41
)

// SpecanQueue carries RSSI sweeps on AppSPECAN
const SpecanQueue = 0x01

// Radio strobes (RFST values)
const (
	RFSTSfstxon = 0x00
	RFSTScal    = 0x01
	RFSTSrx     = 0x02
	RFSTStx     = 0x03
	RFSTSidle   = 0x04
	RFSTSnop    = 0x05
)

// Chip part numbers
const (
	PartNumCC1110 = 0x01
	PartNumCC1111 = 0x11
	PartNumCC2510 = 0x81
	PartNumCC2511 = 0x91
)

// Crystal frequencies
const (
	CrystalCC111xHz = 24000000
	CrystalCC251xHz = 26000000
)

// RFMaxTXBlock is the largest single NIC_XMIT payload
const RFMaxTXBlock = 255

// NIC_XMIT return codes
const (
	RCNoError         = 0x00
	RCTXDroppedPacket = 0xEC
	RCTXError         = 0xED
	RCRFModeIncompat  = 0xEF
)

// LED modes
const (
	LEDModeOff = 0x00
	LEDModeOn  = 0x01
)
