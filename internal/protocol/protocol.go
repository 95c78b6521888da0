// Package protocol builds framed, checksummed control packets for
// Govee-style addressable LED devices in "razer" streaming mode.
//
// The wire protocol is proprietary and undocumented. Every constant in
// this file was recovered empirically by packet inspection against real
// hardware; none of them is authoritative. If a device misbehaves, these
// constants are the first thing to re-verify.
//
// Frame layout for a color command (7 + 3N bytes for N segments):
//
//	[0]     0xBB        magic
//	[1]     0x00        magic
//	[2]     data length (segment-count byte + color bytes = 1 + 3N)
//	[3]     0xB0        set-colors command
//	[4]     0x00        reserved
//	[5]     N           segment count
//	[6..]   3N bytes    RGB triples, segment order
//	[last]  checksum    XOR of every preceding byte
//
// Frames travel base64-encoded inside a JSON envelope over UDP; see
// razer.go for the envelope.
package protocol

// Protocol constants. Recovered from packet captures, validated against
// H61D5 rope lights.
const (
	// MaxPacketSize is the largest raw frame the device is known to
	// accept. Frames past this are truncated silently, never rejected.
	MaxPacketSize = 127

	magic0 = 0xBB
	magic1 = 0x00

	// cmdSetColors carries per-segment RGB data.
	cmdSetColors = 0xB0

	headerLen   = 6
	checksumLen = 1
)

// MaxEncodableSegments returns the largest segment count that fits in a
// single frame under MaxPacketSize. This is a framing limit only; the
// device's real capability envelope is usually far smaller and must be
// discovered by probing.
func MaxEncodableSegments() int {
	return (MaxPacketSize - headerLen - checksumLen) / 3
}

// Checksum computes the frame checksum: XOR over all payload bytes.
// This is the single definition of the checksum algorithm; the device
// recomputes the same value and silently drops frames that mismatch.
func Checksum(payload []byte) byte {
	var sum byte
	for _, b := range payload {
		sum ^= b
	}
	return sum
}
