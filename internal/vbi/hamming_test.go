package vbi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zsiec/teletextdec/test/tools/tsutil"
)

func TestHamming84RoundTrip(t *testing.T) {
	t.Parallel()
	for n := 0; n < 16; n++ {
		code := Ham84(n)
		require.Equal(t, tsutil.Ham84(n), code, "codeword for %x", n)
		assert.Equal(t, n, UnHam84(code))
	}
}

func TestHamming84CorrectsSingleBitErrors(t *testing.T) {
	t.Parallel()
	for n := 0; n < 16; n++ {
		for bit := 0; bit < 8; bit++ {
			assert.Equal(t, n, UnHam84(Ham84(n)^1<<bit), "nibble %x bit %d", n, bit)
		}
	}
}

func TestHamming84RejectsDoubleBitErrors(t *testing.T) {
	t.Parallel()
	for n := 0; n < 16; n++ {
		assert.Equal(t, -1, UnHam84(Ham84(n)^0x03), "nibble %x", n)
	}
}

func TestUnHam16(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 0xA5, UnHam16([]byte{Ham84(0x5), Ham84(0xA)}))
	assert.Equal(t, -1, UnHam16([]byte{Ham84(0x5) ^ 0x03, Ham84(0xA)}))
}

func TestParity(t *testing.T) {
	t.Parallel()
	for c := 0; c < 0x80; c++ {
		b := Par8(byte(c))
		require.Equal(t, tsutil.Par8(byte(c)), b)
		assert.Equal(t, c, UnPar8(b))
		assert.Equal(t, -1, UnPar8(b^0x80))
	}
}
