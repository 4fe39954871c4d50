package vbi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zsiec/teletextdec/test/tools/tsutil"
)

func collectDemux(t *testing.T) (*DVBDemux, *[][]Sliced, *[]int64) {
	t.Helper()
	var lines [][]Sliced
	var pts []int64
	dx := NewDVBPESDemux(func(_ *DVBDemux, sliced []Sliced, p int64) bool {
		lines = append(lines, append([]Sliced(nil), sliced...))
		pts = append(pts, p)
		return true
	}, nil)
	return dx, &lines, &pts
}

func TestDVBDemuxSlicesTeletextUnits(t *testing.T) {
	t.Parallel()
	dx, lines, pts := collectDemux(t)

	row := tsutil.RowPacket(1, 3, []byte("HELLO"))
	pes := tsutil.TeletextPES(123456, row)
	require.Zero(t, len(pes)%184, "PES should fill whole TS payloads")

	require.True(t, dx.Feed(pes))
	require.Len(t, *lines, 1)
	require.Len(t, (*lines)[0], 1)
	assert.Equal(t, []int64{123456}, *pts)

	s := (*lines)[0][0]
	assert.Equal(t, SlicedTeletextB, s.ID)
	assert.Equal(t, uint32(7), s.Line)
	assert.Equal(t, row[:], s.Data[:TeletextPacketSize])
}

func TestDVBDemuxReassemblesSplitPackets(t *testing.T) {
	t.Parallel()
	dx, lines, _ := collectDemux(t)

	pes := tsutil.TeletextPES(90000,
		tsutil.HeaderPacket(tsutil.Header{Page: 0x100}),
		tsutil.RowPacket(1, 1, []byte("ROW ONE")),
	)
	stream := append(append([]byte{0xFF, 0x00}, pes...), pes...)
	for i := range stream {
		require.True(t, dx.Feed(stream[i:i+1]))
	}
	require.Len(t, *lines, 2)
	assert.Len(t, (*lines)[1], 2)
}

func TestDVBDemuxKeepsLastPTS(t *testing.T) {
	t.Parallel()
	dx, _, pts := collectDemux(t)

	row := tsutil.RowPacket(1, 1, nil)
	require.True(t, dx.Feed(tsutil.TeletextPES(-1, row)))
	require.True(t, dx.Feed(tsutil.TeletextPES(4500, row)))
	require.True(t, dx.Feed(tsutil.TeletextPES(-1, row)))
	assert.Equal(t, []int64{-1, 4500, 4500}, *pts)
}

func TestDVBDemuxReset(t *testing.T) {
	t.Parallel()
	dx, lines, pts := collectDemux(t)

	pes := tsutil.TeletextPES(4500, tsutil.RowPacket(1, 1, []byte("FIRST")))
	require.True(t, dx.Feed(pes))
	require.True(t, dx.Feed(pes[:len(pes)/2]))

	dx.Reset()
	dx.Feed(pes[len(pes)/2:])
	assert.Len(t, *lines, 1, "partial packet completed after reset")

	require.True(t, dx.Feed(tsutil.TeletextPES(-1, tsutil.RowPacket(1, 1, nil))))
	assert.Equal(t, []int64{4500, -1}, *pts, "reset forgets the last PTS")
}

func TestDVBDemuxRejectsMalformedPackets(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{
			name: "bad data identifier",
			mutate: func(p []byte) []byte {
				p[9+int(p[8])] = 0x99
				return p
			},
		},
		{
			name: "unbounded packet",
			mutate: func(p []byte) []byte {
				p[4], p[5] = 0, 0
				return p
			},
		},
		{
			name: "truncated data unit",
			mutate: func(p []byte) []byte {
				p[9+int(p[8])+2] = 0xF0
				return p
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			dx, lines, _ := collectDemux(t)
			pes := tc.mutate(tsutil.TeletextPES(0, tsutil.RowPacket(1, 1, nil)))
			assert.False(t, dx.Feed(pes))
			assert.Empty(t, *lines)

			// The demultiplexer recovers on the next good packet.
			assert.True(t, dx.Feed(tsutil.TeletextPES(0, tsutil.RowPacket(1, 1, nil))))
			assert.Len(t, *lines, 1)
		})
	}
}

func TestDVBDemuxCallbackFailure(t *testing.T) {
	t.Parallel()
	dx := NewDVBPESDemux(func(*DVBDemux, []Sliced, int64) bool { return false }, nil)
	assert.False(t, dx.Feed(tsutil.TeletextPES(0, tsutil.RowPacket(1, 1, nil))))
}
