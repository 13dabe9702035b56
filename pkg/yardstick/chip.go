package yardstick

import "fmt"

// ChipName returns the part name for a PARTNUM value
func ChipName(partNum uint8) string {
	switch partNum {
	case PartNumCC1110:
		return "CC1110"
	case PartNumCC1111:
		return "CC1111"
	case PartNumCC2510:
		return "CC2510"
	case PartNumCC2511:
		return "CC2511"
	default:
		return fmt.Sprintf("Unknown(0x%02X)", partNum)
	}
}

// CrystalHz returns the reference crystal of a part: 24MHz for the sub-GHz
// CC111x, 26MHz for the 2.4GHz CC251x.
func CrystalHz(partNum uint8) uint32 {
	if Is24GHz(partNum) {
		return CrystalCC251xHz
	}
	return CrystalCC111xHz
}

// Is24GHz reports whether the part has a 2.4GHz radio
func Is24GHz(partNum uint8) bool {
	return partNum == PartNumCC2510 || partNum == PartNumCC2511
}
