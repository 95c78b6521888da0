package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testColors(n int) []RGB {
	colors := make([]RGB, n)
	for i := range colors {
		switch i % 3 {
		case 0:
			colors[i] = RGB{R: 255}
		case 1:
			colors[i] = RGB{G: 255}
		default:
			colors[i] = RGB{B: 255}
		}
	}
	return colors
}

func TestEncode_FrameLayout(t *testing.T) {
	pkt, err := Encode(ControlCommand{
		SegmentCount: 2,
		Colors:       []RGB{{R: 255}, {G: 255}},
		Kind:         CmdSetColors,
	})
	require.NoError(t, err)

	frame := pkt.Bytes()
	require.Len(t, frame, 7+3*2)

	assert.Equal(t, byte(0xBB), frame[0])
	assert.Equal(t, byte(0x00), frame[1])
	assert.Equal(t, byte(1+3*2), frame[2], "data length byte")
	assert.Equal(t, byte(0xB0), frame[3])
	assert.Equal(t, byte(2), frame[5], "segment count byte")
	assert.Equal(t, []byte{255, 0, 0, 0, 255, 0}, frame[6:12])
	assert.Equal(t, Checksum(frame[:len(frame)-1]), frame[len(frame)-1])
}

func TestEncode_Deterministic(t *testing.T) {
	cmd := ControlCommand{
		SegmentCount: 8,
		Colors:       testColors(8),
		Kind:         CmdSetColors,
	}

	first, err := Encode(cmd)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := Encode(cmd)
		require.NoError(t, err)
		assert.Equal(t, first.Payload, again.Payload)
		assert.Equal(t, first.Checksum, again.Checksum)
	}
}

func TestEncode_LengthMismatch(t *testing.T) {
	tests := []struct {
		name     string
		segments int
		colors   int
	}{
		{"too few colors", 4, 3},
		{"too many colors", 4, 5},
		{"no colors", 4, 0},
		{"zero segments", 0, 0},
		{"negative segments", -1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encode(ControlCommand{
				SegmentCount: tt.segments,
				Colors:       testColors(tt.colors),
				Kind:         CmdSetColors,
			})
			require.Error(t, err)

			var encErr *EncodingError
			require.ErrorAs(t, err, &encErr)
			assert.Equal(t, LengthMismatch, encErr.Reason)
		})
	}
}

func TestEncode_OversizedPayload(t *testing.T) {
	n := MaxEncodableSegments() + 1
	_, err := Encode(ControlCommand{
		SegmentCount: n,
		Colors:       testColors(n),
		Kind:         CmdSetColors,
	})
	require.Error(t, err)

	var encErr *EncodingError
	require.ErrorAs(t, err, &encErr)
	assert.Equal(t, OversizedPayload, encErr.Reason)
}

func TestEncode_MaxEncodableSegmentsFits(t *testing.T) {
	n := MaxEncodableSegments()
	require.Positive(t, n)

	pkt, err := Encode(ControlCommand{
		SegmentCount: n,
		Colors:       testColors(n),
		Kind:         CmdSetColors,
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(pkt.Bytes()), MaxPacketSize)
}

// Encoding success must never be read as device capability: counts well
// beyond what any rope can render still encode cleanly, because the
// device accepts them and silently truncates. The prober, not the
// encoder, decides what is usable.
func TestEncode_SucceedsBeyondDeviceCapability(t *testing.T) {
	for _, n := range []int{5, 8, 16, 32, MaxEncodableSegments()} {
		pkt, err := Encode(ControlCommand{
			SegmentCount: n,
			Colors:       testColors(n),
			Kind:         CmdSetColors,
		})
		require.NoError(t, err, "count %d", n)
		assert.Equal(t, byte(n), pkt.Payload[5])
	}
}

func TestEncode_Reset(t *testing.T) {
	pkt, err := Encode(ControlCommand{Kind: CmdReset})
	require.NoError(t, err)

	frame := pkt.Bytes()
	require.Len(t, frame, 7)
	assert.Equal(t, byte(0), frame[5], "reset frame has zero segments")
}

func TestChecksum_XOR(t *testing.T) {
	assert.Equal(t, byte(0), Checksum(nil))
	assert.Equal(t, byte(0xAB), Checksum([]byte{0xAB}))
	assert.Equal(t, byte(0xAB^0xCD^0x01), Checksum([]byte{0xAB, 0xCD, 0x01}))
}
