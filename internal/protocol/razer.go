package protocol

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// The device only honors color frames while razer mode is active. The
// mode toggles are fixed frames, captured from the vendor app; they use
// the same magic/checksum scheme as color frames but an opaque command
// byte, so they are kept as constants rather than built by Encode.
var (
	razerModeOn  = []byte{0xBB, 0x00, 0x01, 0xB1, 0x01, 0x0A}
	razerModeOff = []byte{0xBB, 0x00, 0x01, 0xB1, 0x00, 0x0B}
)

// razerMessage is the JSON envelope the device expects on its control
// port. The raw frame rides base64-encoded in the "pt" field.
type razerMessage struct {
	Msg struct {
		Cmd  string `json:"cmd"`
		Data struct {
			Pt string `json:"pt"`
		} `json:"data"`
	} `json:"msg"`
}

// WrapRazer wraps a raw frame in the JSON envelope for the wire.
func WrapRazer(frame []byte) ([]byte, error) {
	var msg razerMessage
	msg.Msg.Cmd = "razer"
	msg.Msg.Data.Pt = base64.StdEncoding.EncodeToString(frame)

	out, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("protocol: wrap razer frame: %w", err)
	}
	return out, nil
}

// RazerModePacket returns the wire bytes that switch razer mode on or
// off.
func RazerModePacket(on bool) ([]byte, error) {
	if on {
		return WrapRazer(razerModeOn)
	}
	return WrapRazer(razerModeOff)
}
