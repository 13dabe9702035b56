package registers

// PASetting is one PA_TABLE0 value and its nominal output power
type PASetting struct {
	DBm   int
	Value uint8
}

// PATable2400 is the CC2510/CC2511 output power table, strongest first
var PATable2400 = []PASetting{
	{1, 0xFF},
	{0, 0xFE},
	{-2, 0xBB},
	{-4, 0xA9},
	{-6, 0x7F},
	{-8, 0x6E},
	{-10, 0x97},
	{-12, 0xC6},
	{-14, 0x8D},
	{-16, 0x55},
	{-18, 0x93},
	{-20, 0x46},
	{-22, 0x81},
	{-24, 0x84},
	{-26, 0xC0},
	{-28, 0x44},
	{-30, 0x50},
}

// PAValue returns the strongest setting not above dBm. Requests beyond the
// table saturate at either end.
func PAValue(dBm float64) PASetting {
	for _, s := range PATable2400 {
		if float64(s.DBm) <= dBm {
			return s
		}
	}
	return PATable2400[len(PATable2400)-1]
}
