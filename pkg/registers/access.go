package registers

import (
	"fmt"
	"time"
)

// Memory is XDATA access to a CC11xx/CC25xx radio. *yardstick.Device
// implements it over USB.
type Memory interface {
	Peek(address uint16, length uint16) ([]byte, error)
	PeekByte(address uint16) (uint8, error)
	Poke(address uint16, data []byte) error
	PokeByte(address uint16, value uint8) error
}

// Strobe sends a radio strobe command
func Strobe(mem Memory, command uint8) error {
	return mem.PokeByte(RegRFST, command)
}

// GetRadioState reads the current radio state
func GetRadioState(mem Memory) (RadioState, error) {
	state, err := mem.PeekByte(RegMARCSTATE)
	if err != nil {
		return 0, fmt.Errorf("failed to read radio state: %w", err)
	}
	return RadioState(state & 0x1F), nil
}

// SetIDLE puts the radio in idle state
func SetIDLE(mem Memory) error {
	return Strobe(mem, StrobeSIDLE)
}

// SetTX puts the radio in transmit mode
func SetTX(mem Memory) error {
	return Strobe(mem, StrobeSTX)
}

// WaitForState polls MARCSTATE until state is reached or timeout expires
func WaitForState(mem Memory, state RadioState, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		current, err := GetRadioState(mem)
		if err != nil {
			return err
		}
		if current == state {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timeout waiting for radio state %s, last %s", state, current)
		}
		time.Sleep(time.Millisecond)
	}
}

// ReadAllRegisters reads the configuration and status registers. The map has
// gaps, so it is read in four blocks.
func ReadAllRegisters(mem Memory) (*RegisterMap, error) {
	reg := &RegisterMap{}

	config, err := mem.Peek(RegSYNC1, configBlockLen)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration block: %w", err)
	}
	reg.setConfigBlock(config)

	test, err := mem.Peek(RegTEST2, 3)
	if err != nil {
		return nil, fmt.Errorf("failed to read TEST registers: %w", err)
	}
	reg.TEST2, reg.TEST1, reg.TEST0 = test[0], test[1], test[2]

	pa, err := mem.Peek(RegPA_TABLE7, 11)
	if err != nil {
		return nil, fmt.Errorf("failed to read PA_TABLE/IOCFG: %w", err)
	}
	// PA_TABLE7 comes first in memory
	for i := 0; i < 8; i++ {
		reg.PA_TABLE[7-i] = pa[i]
	}
	reg.IOCFG2, reg.IOCFG1, reg.IOCFG0 = pa[8], pa[9], pa[10]

	status, err := mem.Peek(RegPARTNUM, 8)
	if err != nil {
		return nil, fmt.Errorf("failed to read status registers: %w", err)
	}
	reg.PARTNUM = status[0]
	reg.CHIPID = status[1]
	reg.FREQEST = status[2]
	reg.LQI = status[3]
	reg.RSSI = status[4]
	reg.MARCSTATE = status[5]
	reg.PKTSTATUS = status[6]
	reg.VCO_VC_DAC = status[7]

	return reg, nil
}

// WriteAllRegisters writes every writable register of reg. Status registers
// are read-only and skipped.
func WriteAllRegisters(mem Memory, reg *RegisterMap) error {
	if err := mem.Poke(RegSYNC1, reg.configBlock()); err != nil {
		return fmt.Errorf("failed to write configuration block: %w", err)
	}

	if err := mem.Poke(RegTEST2, []byte{reg.TEST2, reg.TEST1, reg.TEST0}); err != nil {
		return fmt.Errorf("failed to write TEST registers: %w", err)
	}

	block := make([]byte, 0, 11)
	for i := 7; i >= 0; i-- {
		block = append(block, reg.PA_TABLE[i])
	}
	block = append(block, reg.IOCFG2, reg.IOCFG1, reg.IOCFG0)
	if err := mem.Poke(RegPA_TABLE7, block); err != nil {
		return fmt.Errorf("failed to write PA_TABLE/IOCFG: %w", err)
	}

	return nil
}

// Snapshot is the register state captured before a test takes over the radio
type Snapshot struct {
	Timestamp time.Time   `json:"timestamp"`
	PartNum   uint8       `json:"part_num"`
	Registers RegisterMap `json:"registers"`
}

// TakeSnapshot idles the radio and captures all registers
func TakeSnapshot(mem Memory) (*Snapshot, error) {
	if err := idle(mem); err != nil {
		return nil, err
	}

	reg, err := ReadAllRegisters(mem)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		Timestamp: time.Now(),
		PartNum:   reg.PARTNUM,
		Registers: *reg,
	}, nil
}

// Restore idles the radio and writes the snapshot back
func (s *Snapshot) Restore(mem Memory) error {
	if err := idle(mem); err != nil {
		return err
	}
	if err := WriteAllRegisters(mem, &s.Registers); err != nil {
		return fmt.Errorf("failed to restore registers: %w", err)
	}
	return nil
}

// idle strobes SIDLE unless the radio is already idle
func idle(mem Memory) error {
	state, err := GetRadioState(mem)
	if err != nil {
		return err
	}
	if state == StateIDLE {
		return nil
	}

	if err := SetIDLE(mem); err != nil {
		return fmt.Errorf("failed to set IDLE state: %w", err)
	}
	time.Sleep(idleSettle)
	return nil
}

const idleSettle = 10 * time.Millisecond

// FrequencyWord returns FREQ2..0 for frequencyHz at the given crystal
func FrequencyWord(frequencyHz, crystalHz uint32) [3]uint8 {
	word := uint32((uint64(frequencyHz) << 16) / uint64(crystalHz))
	return [3]uint8{uint8(word >> 16), uint8(word >> 8), uint8(word)}
}

// GetFrequency returns the carrier frequency in Hz encoded in reg
func GetFrequency(reg *RegisterMap, crystalHz uint32) uint32 {
	word := uint32(reg.FREQ2)<<16 | uint32(reg.FREQ1)<<8 | uint32(reg.FREQ0)
	return uint32((uint64(word) * uint64(crystalHz)) >> 16)
}

// SetFrequency sets the FREQ registers in reg
func SetFrequency(reg *RegisterMap, frequencyHz, crystalHz uint32) {
	w := FrequencyWord(frequencyHz, crystalHz)
	reg.FREQ2, reg.FREQ1, reg.FREQ0 = w[0], w[1], w[2]
}

// GetModulation returns the modulation format from MDMCFG2
func GetModulation(reg *RegisterMap) uint8 {
	return reg.MDMCFG2 & 0x70
}

// SetModulation sets the modulation format in MDMCFG2
func SetModulation(reg *RegisterMap, mod uint8) {
	reg.MDMCFG2 = (reg.MDMCFG2 & 0x8F) | (mod & 0x70)
}

// SetSyncMode sets the sync mode in MDMCFG2
func SetSyncMode(reg *RegisterMap, mode uint8) {
	reg.MDMCFG2 = (reg.MDMCFG2 & 0xF8) | (mode & 0x07)
}

// ModulationName returns a human-readable modulation format
func ModulationName(mod uint8) string {
	switch mod {
	case Mod2FSK:
		return "2-FSK"
	case ModGFSK:
		return "GFSK"
	case ModASKOOK:
		return "ASK/OOK"
	case Mod4FSK:
		return "4-FSK"
	case ModMSK:
		return "MSK"
	default:
		return fmt.Sprintf("Unknown (0x%02X)", mod)
	}
}
