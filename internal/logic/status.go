package logic

// Outgoing status frame layout.
const (
	statusFlagsByte       = 0
	statusFanByte         = 1
	statusDriverByte      = 2
	statusPassengerByte   = 3
	statusRearByte        = 4
	statusOutsideByte     = 7
	statusActiveBit       = 0
	statusAutoBit         = 1
	statusACBit           = 2
	statusDualBit         = 3
	statusFaceBit         = 4
	statusFeetBit         = 5
	statusFrontDefrostBit = 6
	statusRecirculateBit  = 7
	statusRearDefrostBit  = 0
)

// ClimateStatus is the decoded form of the outgoing status payload.
type ClimateStatus struct {
	Active        bool
	Auto          bool
	AC            bool
	Dual          bool
	Face          bool
	Feet          bool
	FrontDefrost  bool
	Recirculate   bool
	RearDefrost   bool
	FanSpeed      uint8
	DriverTemp    uint8
	PassengerTemp uint8
	OutsideTemp   uint8
}

// DecodeStatus unpacks an outgoing status payload.
func DecodeStatus(data [8]byte) ClimateStatus {
	d := data[:]
	return ClimateStatus{
		Active:        getBit(d, statusFlagsByte, statusActiveBit),
		Auto:          getBit(d, statusFlagsByte, statusAutoBit),
		AC:            getBit(d, statusFlagsByte, statusACBit),
		Dual:          getBit(d, statusFlagsByte, statusDualBit),
		Face:          getBit(d, statusFlagsByte, statusFaceBit),
		Feet:          getBit(d, statusFlagsByte, statusFeetBit),
		FrontDefrost:  getBit(d, statusFlagsByte, statusFrontDefrostBit),
		Recirculate:   getBit(d, statusFlagsByte, statusRecirculateBit),
		RearDefrost:   getBit(d, statusRearByte, statusRearDefrostBit),
		FanSpeed:      data[statusFanByte],
		DriverTemp:    data[statusDriverByte],
		PassengerTemp: data[statusPassengerByte],
		OutsideTemp:   data[statusOutsideByte],
	}
}
