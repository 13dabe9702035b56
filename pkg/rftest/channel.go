package rftest

import "fmt"

// 2.4GHz channel plan
const (
	MinChannel = 1
	MaxChannel = 14

	// BaseFrequencyMHz is the frequency of the (nonexistent) channel 0;
	// channel N sits at BaseFrequencyMHz + N*ChannelSpacingMHz.
	BaseFrequencyMHz  = 2407
	ChannelSpacingMHz = 5

	// Channel14FrequencyMHz is the Japanese channel, off the 5MHz grid
	Channel14FrequencyMHz = 2484
)

// ValidChannel reports whether channel is in [MinChannel, MaxChannel]
func ValidChannel(channel int) bool {
	return channel >= MinChannel && channel <= MaxChannel
}

// NextChannel returns the channel after channel, wrapping 14 back to 1.
func NextChannel(channel int) int {
	return (channel % MaxChannel) + 1
}

// FrequencyMHz returns the center frequency of a 2.4GHz channel in MHz.
func FrequencyMHz(channel int) int {
	if channel == MaxChannel {
		return Channel14FrequencyMHz
	}
	return BaseFrequencyMHz + ChannelSpacingMHz*channel
}

// FrequencyHz returns the center frequency of a 2.4GHz channel in Hz
func FrequencyHz(channel int) uint32 {
	return uint32(FrequencyMHz(channel)) * 1000000
}

// ChannelLabel formats a channel the way the console reports hops
func ChannelLabel(channel int) string {
	return fmt.Sprintf("CH%d (%d MHz)", channel, FrequencyMHz(channel))
}

// SecondaryChannel selects the HT40 secondary channel position
type SecondaryChannel uint8

const (
	SecondaryNone SecondaryChannel = iota
	SecondaryAbove
	SecondaryBelow
)

func (s SecondaryChannel) String() string {
	switch s {
	case SecondaryNone:
		return "none"
	case SecondaryAbove:
		return "above"
	case SecondaryBelow:
		return "below"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(s))
	}
}
