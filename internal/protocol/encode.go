package protocol

import (
	"fmt"
)

// RGB is a single segment color.
type RGB struct {
	R, G, B uint8
}

// CommandKind selects what a ControlCommand asks the device to do.
type CommandKind int

const (
	// CmdSetColors drives per-segment colors.
	CmdSetColors CommandKind = iota
	// CmdReset clears all segments (a zero-segment color frame).
	CmdReset
)

// String returns the command kind name.
func (k CommandKind) String() string {
	switch k {
	case CmdSetColors:
		return "set_colors"
	case CmdReset:
		return "reset"
	default:
		return "unknown"
	}
}

// ControlCommand is a request to drive the device with a specific
// segment count. Colors must have exactly SegmentCount entries for
// CmdSetColors and must be empty for CmdReset.
type ControlCommand struct {
	SegmentCount int
	Colors       []RGB
	Kind         CommandKind
}

// Packet is an encoded frame ready for the wire. Payload holds every
// byte except the checksum; the full frame is Payload followed by
// Checksum.
type Packet struct {
	Payload  []byte
	Checksum byte
}

// Bytes returns the complete frame, checksum included.
func (p Packet) Bytes() []byte {
	frame := make([]byte, 0, len(p.Payload)+checksumLen)
	frame = append(frame, p.Payload...)
	frame = append(frame, p.Checksum)
	return frame
}

// EncodingReason discriminates encoder failures.
type EncodingReason int

const (
	// LengthMismatch: len(Colors) does not equal SegmentCount.
	LengthMismatch EncodingReason = iota
	// OversizedPayload: the frame would exceed MaxPacketSize.
	OversizedPayload
)

func (r EncodingReason) String() string {
	switch r {
	case LengthMismatch:
		return "length mismatch"
	case OversizedPayload:
		return "oversized payload"
	default:
		return "unknown"
	}
}

// EncodingError reports a malformed ControlCommand. It is always a
// caller bug, never a device condition, and is never retried.
type EncodingError struct {
	Reason   EncodingReason
	Segments int
	Detail   string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("protocol: encode %d segments: %s: %s", e.Segments, e.Reason, e.Detail)
}

// Encode builds the frame for cmd. It is deterministic and pure: equal
// commands produce byte-identical packets. Encoding succeeding says
// nothing about whether the device can actually execute the command;
// the device accepts well-formed frames it cannot render and silently
// under-drives the output. Capability is established by probing, not by
// encoding.
func Encode(cmd ControlCommand) (Packet, error) {
	if cmd.Kind == CmdReset {
		return encodeFrame(0, nil)
	}

	if cmd.SegmentCount < 1 {
		return Packet{}, &EncodingError{
			Reason:   LengthMismatch,
			Segments: cmd.SegmentCount,
			Detail:   "segment count must be positive",
		}
	}
	if len(cmd.Colors) != cmd.SegmentCount {
		return Packet{}, &EncodingError{
			Reason:   LengthMismatch,
			Segments: cmd.SegmentCount,
			Detail:   fmt.Sprintf("%d colors for %d segments", len(cmd.Colors), cmd.SegmentCount),
		}
	}

	return encodeFrame(cmd.SegmentCount, cmd.Colors)
}

func encodeFrame(segments int, colors []RGB) (Packet, error) {
	frameLen := headerLen + 3*segments + checksumLen
	if frameLen > MaxPacketSize {
		return Packet{}, &EncodingError{
			Reason:   OversizedPayload,
			Segments: segments,
			Detail:   fmt.Sprintf("frame is %d bytes, limit %d", frameLen, MaxPacketSize),
		}
	}

	payload := make([]byte, 0, frameLen-checksumLen)
	payload = append(payload,
		magic0,
		magic1,
		byte(1+3*segments), // data length: count byte + colors
		cmdSetColors,
		0x00,
		byte(segments),
	)
	for _, c := range colors {
		payload = append(payload, c.R, c.G, c.B)
	}

	return Packet{Payload: payload, Checksum: Checksum(payload)}, nil
}
