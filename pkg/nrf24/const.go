package nrf24

// Registers
const (
	RegConfig    = 0x00
	RegEnAA      = 0x01
	RegEnRxAddr  = 0x02
	RegSetupAW   = 0x03
	RegSetupRetr = 0x04
	RegRFCh      = 0x05
	RegRFSetup   = 0x06
	RegStatus    = 0x07
	RegTxAddr    = 0x10
	RegFIFO      = 0x17
)

// CONFIG bits
const (
	ConfigEnCRC  = 0x08
	ConfigCRCO   = 0x04
	ConfigPwrUp  = 0x02
	ConfigPrimRx = 0x01
)

// RF_SETUP bits
const (
	RFSetupContWave = 0x80
	RFSetupDRLow    = 0x20
	RFSetupPLLLock  = 0x10
	RFSetupDRHigh   = 0x08
	RFSetupPwrMask  = 0x06
)

// STATUS bits
const (
	StatusRxDR   = 0x40
	StatusTxDS   = 0x20
	StatusMaxRT  = 0x10
	StatusTxFull = 0x01

	statusClear = StatusRxDR | StatusTxDS | StatusMaxRT
)

// SPI commands
const (
	CmdRRegister  = 0x00
	CmdWRegister  = 0x20
	CmdWTxPayload = 0xA0
	CmdFlushTx    = 0xE1
	CmdNOP        = 0xFF
)

// Limits
const (
	MaxChannel = 125
	MaxPayload = 32

	// BaseFrequencyMHz is RF_CH 0
	BaseFrequencyMHz = 2400
)
