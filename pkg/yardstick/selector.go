package yardstick

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/gousb"
)

// SelectorKind is the way a Selector picks a dongle
type SelectorKind uint8

const (
	SelectFirst SelectorKind = iota
	SelectIndex
	SelectBusAddr
	SelectSerial
)

// Selector identifies one dongle. Supported forms:
//   - ""         first available device
//   - "serial"   serial number, e.g. "009a"
//   - "bus:addr" USB location, e.g. "1:10"
//   - "#N"       Nth device, 0-indexed
type Selector struct {
	Kind    SelectorKind
	Index   int
	Bus     int
	Address int
	Serial  string
}

// ParseSelector parses a device selector string
func ParseSelector(s string) (Selector, error) {
	s = strings.TrimSpace(s)

	switch {
	case s == "":
		return Selector{Kind: SelectFirst}, nil

	case strings.HasPrefix(s, "#"):
		index, err := strconv.Atoi(s[1:])
		if err != nil || index < 0 {
			return Selector{}, fmt.Errorf("invalid device index: %s", s)
		}
		return Selector{Kind: SelectIndex, Index: index}, nil

	case strings.Contains(s, ":"):
		parts := strings.SplitN(s, ":", 2)
		bus, err := strconv.Atoi(parts[0])
		if err != nil {
			return Selector{}, fmt.Errorf("invalid bus number: %s", parts[0])
		}
		addr, err := strconv.Atoi(parts[1])
		if err != nil {
			return Selector{}, fmt.Errorf("invalid address number: %s", parts[1])
		}
		return Selector{Kind: SelectBusAddr, Bus: bus, Address: addr}, nil

	default:
		return Selector{Kind: SelectSerial, Serial: s}, nil
	}
}

func (s Selector) String() string {
	switch s.Kind {
	case SelectIndex:
		return fmt.Sprintf("#%d", s.Index)
	case SelectBusAddr:
		return fmt.Sprintf("%d:%d", s.Bus, s.Address)
	case SelectSerial:
		return s.Serial
	default:
		return "first device"
	}
}

// deviceInfo is the part of a Device a Selector matches on
type deviceInfo struct {
	Serial  string
	Bus     int
	Address int
}

// pick returns the index of the selected device among candidates
func (s Selector) pick(candidates []deviceInfo) (int, error) {
	if len(candidates) == 0 {
		return -1, fmt.Errorf("no rfcat devices found")
	}

	switch s.Kind {
	case SelectFirst:
		return 0, nil

	case SelectIndex:
		if s.Index >= len(candidates) {
			return -1, fmt.Errorf("device index %d out of range (found %d devices)", s.Index, len(candidates))
		}
		return s.Index, nil

	case SelectBusAddr:
		for i, c := range candidates {
			if c.Bus == s.Bus && c.Address == s.Address {
				return i, nil
			}
		}
		return -1, fmt.Errorf("no rfcat device at bus %d address %d", s.Bus, s.Address)

	default:
		match := -1
		for i, c := range candidates {
			if c.Serial != s.Serial {
				continue
			}
			if match >= 0 {
				return -1, fmt.Errorf("multiple devices found with serial %s; use bus:addr (e.g. 1:10) or #N", s.Serial)
			}
			match = i
		}
		if match < 0 {
			return -1, fmt.Errorf("no rfcat device with serial %s", s.Serial)
		}
		return match, nil
	}
}

// SelectDevice opens the dongle named by selector and closes the others
func SelectDevice(usb *gousb.Context, selector string) (*Device, error) {
	sel, err := ParseSelector(selector)
	if err != nil {
		return nil, err
	}

	devices, err := FindAllDevices(usb)
	if err != nil {
		return nil, err
	}

	candidates := make([]deviceInfo, len(devices))
	for i, d := range devices {
		candidates[i] = deviceInfo{Serial: d.Serial, Bus: d.Bus, Address: d.Address}
	}

	index, err := sel.pick(candidates)
	for i, d := range devices {
		if i != index {
			d.Close()
		}
	}
	if err != nil {
		return nil, err
	}

	return devices[index], nil
}

// SelectorUsage documents the selector forms for CLI flags
func SelectorUsage() string {
	return `device selector: "" first device, "009a" serial, "1:10" bus:addr, "#0" index`
}
