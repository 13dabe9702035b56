package specan

import "github.com/herlein/gocw/pkg/rftest"

// Floor is reported for empty sweeps
const Floor float32 = -200.0

// Peak is a bin at or above a threshold
type Peak struct {
	Bin         int
	FrequencyHz uint32
	RSSI        float32
}

// FindPeaks returns every bin at or above thresholdDBm
func FindPeaks(frame *Frame, thresholdDBm float32) []Peak {
	var peaks []Peak
	for i, rssi := range frame.RSSI {
		if rssi >= thresholdDBm {
			peaks = append(peaks, Peak{Bin: i, FrequencyHz: frame.FrequencyHz(i), RSSI: rssi})
		}
	}
	return peaks
}

// MaxRSSI returns the strongest bin
func MaxRSSI(frame *Frame) Peak {
	if len(frame.RSSI) == 0 {
		return Peak{Bin: -1, RSSI: Floor}
	}
	best := 0
	for i, v := range frame.RSSI {
		if v > frame.RSSI[best] {
			best = i
		}
	}
	return Peak{Bin: best, FrequencyHz: frame.FrequencyHz(best), RSSI: frame.RSSI[best]}
}

// NoiseFloor returns the weakest reading
func NoiseFloor(frame *Frame) float32 {
	if len(frame.RSSI) == 0 {
		return Floor
	}
	floor := frame.RSSI[0]
	for _, v := range frame.RSSI {
		if v < floor {
			floor = v
		}
	}
	return floor
}

// AverageRSSI returns the mean over all bins
func AverageRSSI(frame *Frame) float32 {
	if len(frame.RSSI) == 0 {
		return Floor
	}
	var sum float32
	for _, v := range frame.RSSI {
		sum += v
	}
	return sum / float32(len(frame.RSSI))
}

// ChannelReading is the level seen at one 2.4GHz channel
type ChannelReading struct {
	Channel int
	RSSI    float32
}

// ChannelRSSI samples the sweep at the centre of channels 1..14. A CW
// carrier is narrow, so the strongest bin within one spacing either side
// is taken.
func ChannelRSSI(frame *Frame) []ChannelReading {
	readings := make([]ChannelReading, 0, rftest.MaxChannel)
	for ch := rftest.MinChannel; ch <= rftest.MaxChannel; ch++ {
		bin := BinForChannel(frame, ch)
		if bin < 0 {
			continue
		}
		level := frame.RSSI[bin]
		for _, j := range []int{bin - 1, bin + 1} {
			if j >= 0 && j < len(frame.RSSI) && frame.RSSI[j] > level {
				level = frame.RSSI[j]
			}
		}
		readings = append(readings, ChannelReading{Channel: ch, RSSI: level})
	}
	return readings
}

// Locate returns the channel carrying the emission, its level and the
// margin over the noise floor. ok is false when no channel clears
// minSNR dB.
func Locate(frame *Frame, minSNR float32) (reading ChannelReading, snr float32, ok bool) {
	readings := ChannelRSSI(frame)
	if len(readings) == 0 {
		return ChannelReading{RSSI: Floor}, 0, false
	}

	best := readings[0]
	for _, r := range readings[1:] {
		if r.RSSI > best.RSSI {
			best = r
		}
	}
	snr = best.RSSI - NoiseFloor(frame)
	return best, snr, snr >= minSNR
}
