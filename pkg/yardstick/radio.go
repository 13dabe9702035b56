package yardstick

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Radio registers touched directly by the transport
const (
	RegRFST  = 0xDFE1
	RegFREQ2 = 0xDF09
	RegFREQ1 = 0xDF0A
	RegFREQ0 = 0xDF0B
)

// RFXmit transmits one block of up to RFMaxTXBlock bytes.
// repeat is the number of extra transmissions (65535 repeats forever) and
// offset the start of the repeated section.
func (d *Device) RFXmit(data []byte, repeat uint16, offset uint16) error {
	if len(data) == 0 || len(data) > RFMaxTXBlock {
		return fmt.Errorf("transmit block must be 1..%d bytes, got %d", RFMaxTXBlock, len(data))
	}

	// data_len(2) repeat(2) offset(2) data
	payload := make([]byte, 6+len(data))
	binary.LittleEndian.PutUint16(payload[0:2], uint16(len(data)))
	binary.LittleEndian.PutUint16(payload[2:4], repeat)
	binary.LittleEndian.PutUint16(payload[4:6], offset)
	copy(payload[6:], data)

	waitLen := len(data)
	if repeat > 0 && repeat != 0xFFFF {
		waitLen += int(repeat) * (len(data) - int(offset))
	}
	waitTime := USBTXWaitTimeout * time.Duration((waitLen/RFMaxTXBlock)+1)

	response, err := d.Send(AppNIC, NICXmit, payload, waitTime)
	if err != nil {
		return fmt.Errorf("transmit failed: %w", err)
	}

	// Firmware revisions answer 1, 0 or '0' on success
	if len(response) > 0 {
		switch code := response[0]; code {
		case 1, 0, '0':
		case RCTXDroppedPacket:
			return fmt.Errorf("transmit dropped by firmware")
		case RCRFModeIncompat:
			return fmt.Errorf("transmit rejected: radio mode incompatible")
		default:
			return fmt.Errorf("transmit error: device returned 0x%02X", code)
		}
	}

	return nil
}

// FreqWord returns the 24-bit FREQ register word for freqHz
func FreqWord(freqHz, crystalHz uint32) uint32 {
	return uint32((uint64(freqHz) << 16) / uint64(crystalHz))
}

// FreqHz converts a FREQ register word back to Hz
func FreqHz(word, crystalHz uint32) uint32 {
	return uint32((uint64(word) * uint64(crystalHz)) >> 16)
}

// SetFrequency programs FREQ2..0 for freqHz; the radio should be idle
func (d *Device) SetFrequency(freqHz, crystalHz uint32) error {
	word := FreqWord(freqHz, crystalHz)
	regs := []byte{uint8(word >> 16), uint8(word >> 8), uint8(word)}
	if err := d.Poke(RegFREQ2, regs); err != nil {
		return fmt.Errorf("failed to set FREQ: %w", err)
	}
	return nil
}

// GetFrequency reads FREQ2..0 and returns the carrier frequency in Hz
func (d *Device) GetFrequency(crystalHz uint32) (uint32, error) {
	regs, err := d.Peek(RegFREQ2, 3)
	if err != nil {
		return 0, fmt.Errorf("failed to read FREQ: %w", err)
	}
	word := uint32(regs[0])<<16 | uint32(regs[1])<<8 | uint32(regs[2])
	return FreqHz(word, crystalHz), nil
}
