package yardstick

import "testing"

func TestParseSelector(t *testing.T) {
	tests := []struct {
		in      string
		want    Selector
		wantErr bool
	}{
		{"", Selector{Kind: SelectFirst}, false},
		{"#2", Selector{Kind: SelectIndex, Index: 2}, false},
		{"1:10", Selector{Kind: SelectBusAddr, Bus: 1, Address: 10}, false},
		{"009a", Selector{Kind: SelectSerial, Serial: "009a"}, false},
		{"#x", Selector{}, true},
		{"#-1", Selector{}, true},
		{"a:10", Selector{}, true},
		{"1:b", Selector{}, true},
	}

	for _, tt := range tests {
		got, err := ParseSelector(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSelector(%q) err = %v", tt.in, err)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseSelector(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestSelectorPick(t *testing.T) {
	candidates := []deviceInfo{
		{Serial: "009a", Bus: 1, Address: 4},
		{Serial: "0042", Bus: 1, Address: 10},
		{Serial: "0042", Bus: 2, Address: 3},
	}

	tests := []struct {
		sel     string
		want    int
		wantErr bool
	}{
		{"", 0, false},
		{"#1", 1, false},
		{"#3", -1, true},
		{"2:3", 2, false},
		{"9:9", -1, true},
		{"009a", 0, false},
		{"0042", -1, true},
		{"ffff", -1, true},
	}

	for _, tt := range tests {
		sel, err := ParseSelector(tt.sel)
		if err != nil {
			t.Fatal(err)
		}
		got, err := sel.pick(candidates)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("pick(%q) = %d, %v; want %d", tt.sel, got, err, tt.want)
		}
	}

	if _, err := (Selector{}).pick(nil); err == nil {
		t.Error("empty candidate list accepted")
	}
}
