package logic

// Bit positions are LSB-first within each byte.

func getBit(data []byte, offset, bit int) bool {
	return (data[offset]>>bit)&0x01 == 1
}

// setBit writes the bit and reports whether the byte changed.
func setBit(data []byte, offset, bit int, value bool) bool {
	before := data[offset]
	if value {
		data[offset] |= 1 << bit
	} else {
		data[offset] &^= 1 << bit
	}
	return data[offset] != before
}

func toggleBit(data []byte, offset, bit int) {
	data[offset] ^= 1 << bit
}

// xorBit reports whether the bit differs between a and b.
func xorBit(a, b []byte, offset, bit int) bool {
	return ((a[offset]^b[offset])>>bit)&0x01 == 1
}
