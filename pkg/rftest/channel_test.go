package rftest

import "testing"

func TestNextChannel(t *testing.T) {
	for channel := MinChannel; channel <= MaxChannel; channel++ {
		next := NextChannel(channel)
		if want := (channel % 14) + 1; next != want {
			t.Errorf("NextChannel(%d) = %d, want %d", channel, next, want)
		}
		if !ValidChannel(next) {
			t.Errorf("NextChannel(%d) = %d left the channel set", channel, next)
		}
	}

	if got := NextChannel(14); got != 1 {
		t.Errorf("NextChannel(14) = %d, want 1", got)
	}
}

func TestNextChannel_FullRotation(t *testing.T) {
	channel := 1
	seen := make(map[int]bool)
	for i := 0; i < 3*MaxChannel; i++ {
		channel = NextChannel(channel)
		if !ValidChannel(channel) {
			t.Fatalf("hop %d produced channel %d", i, channel)
		}
		seen[channel] = true
	}
	if len(seen) != MaxChannel {
		t.Errorf("rotation visited %d channels, want %d", len(seen), MaxChannel)
	}
}

func TestFrequencyMHz(t *testing.T) {
	tests := []struct {
		channel int
		want    int
	}{
		{1, 2412},
		{2, 2417},
		{6, 2437},
		{11, 2462},
		{13, 2472},
		{14, 2484},
	}

	for _, tt := range tests {
		if got := FrequencyMHz(tt.channel); got != tt.want {
			t.Errorf("FrequencyMHz(%d) = %d, want %d", tt.channel, got, tt.want)
		}
	}

	for channel := 1; channel <= 13; channel++ {
		if got := FrequencyMHz(channel); got != 2407+5*channel {
			t.Errorf("FrequencyMHz(%d) = %d, off the 5MHz grid", channel, got)
		}
	}
}

func TestFrequencyHz(t *testing.T) {
	if got := FrequencyHz(1); got != 2412000000 {
		t.Errorf("FrequencyHz(1) = %d", got)
	}
}

func TestValidChannel(t *testing.T) {
	for _, channel := range []int{-1, 0, 15, 100} {
		if ValidChannel(channel) {
			t.Errorf("ValidChannel(%d) = true", channel)
		}
	}
}

func TestChannelLabel(t *testing.T) {
	if got := ChannelLabel(2); got != "CH2 (2417 MHz)" {
		t.Errorf("ChannelLabel(2) = %q", got)
	}
}
