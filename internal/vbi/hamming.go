package vbi

import "math/bits"

// hamming84 maps every received byte to its Hamming 8/4 data nibble, with
// single bit errors corrected. Uncorrectable bytes map to -1.
var hamming84 [256]int8

// hamming84Encode holds the codeword for each data nibble.
var hamming84Encode [16]byte

func init() {
	for n := 0; n < 16; n++ {
		d1 := n & 1
		d2 := n >> 1 & 1
		d3 := n >> 2 & 1
		d4 := n >> 3 & 1
		p1 := 1 ^ d1 ^ d3 ^ d4
		p2 := 1 ^ d1 ^ d2 ^ d4
		p3 := 1 ^ d1 ^ d2 ^ d3
		b := p1 | d1<<1 | p2<<2 | d2<<3 | p3<<4 | d3<<5 | d4<<7
		// P4 makes the whole codeword odd parity.
		if bits.OnesCount8(uint8(b))&1 == 0 {
			b |= 1 << 6
		}
		hamming84Encode[n] = byte(b)
	}

	for b := 0; b < 256; b++ {
		hamming84[b] = -1
		for n, code := range hamming84Encode {
			if bits.OnesCount8(uint8(b)^code) <= 1 {
				hamming84[b] = int8(n)
				break
			}
		}
	}
}

// UnHam84 decodes one Hamming 8/4 protected byte. It returns -1 when the
// byte carries more than one bit error.
func UnHam84(b byte) int {
	return int(hamming84[b])
}

// UnHam16 decodes two Hamming 8/4 bytes into one byte, low nibble first.
// It returns -1 if either byte is uncorrectable.
func UnHam16(p []byte) int {
	lo := hamming84[p[0]]
	hi := hamming84[p[1]]
	if lo < 0 || hi < 0 {
		return -1
	}
	return int(lo) | int(hi)<<4
}

// Ham84 returns the Hamming 8/4 codeword for the low nibble of n.
func Ham84(n int) byte {
	return hamming84Encode[n&0x0F]
}

// UnPar8 strips the odd parity bit from b. It returns -1 when the parity
// check fails.
func UnPar8(b byte) int {
	if bits.OnesCount8(b)&1 == 0 {
		return -1
	}
	return int(b & 0x7F)
}

// Par8 sets the odd parity bit on the 7-bit character c.
func Par8(c byte) byte {
	c &= 0x7F
	if bits.OnesCount8(c)&1 == 0 {
		c |= 0x80
	}
	return c
}
