package transport

import (
	"fmt"

	"github.com/drblury/protogate/internal/runtime/jsoncodec"
)

// Payload is the structured request value an endpoint builds for an operation.
type Payload map[string]any

// Packet is a request frame as sent to a backend.
type Packet struct {
	Pattern string  `json:"pattern"`
	Data    Payload `json:"data"`
	ID      string  `json:"id"`
}

// Reply is a response frame. A backend may emit several frames for one id; the
// first terminal frame completes the call.
type Reply struct {
	ID         string `json:"id"`
	Response   any    `json:"response,omitempty"`
	Err        any    `json:"err,omitempty"`
	IsDisposed bool   `json:"isDisposed,omitempty"`
}

// Terminal reports whether the frame completes its call.
func (r Reply) Terminal() bool {
	return r.Err != nil || r.Response != nil || r.IsDisposed
}

// EncodePacket marshals the packet as JSON.
func EncodePacket(p Packet) ([]byte, error) {
	raw, err := jsoncodec.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode packet %s: %w", p.ID, err)
	}
	return raw, nil
}

// DecodePacket unmarshals a request frame.
func DecodePacket(raw []byte) (Packet, error) {
	var p Packet
	if err := jsoncodec.Unmarshal(raw, &p); err != nil {
		return Packet{}, fmt.Errorf("decode packet: %w", err)
	}
	return p, nil
}

// EncodeReply marshals a reply frame as JSON.
func EncodeReply(r Reply) ([]byte, error) {
	return jsoncodec.Marshal(r)
}

// DecodeReply unmarshals a reply frame.
func DecodeReply(raw []byte) (Reply, error) {
	var r Reply
	if err := jsoncodec.Unmarshal(raw, &r); err != nil {
		return Reply{}, fmt.Errorf("decode reply: %w", err)
	}
	return r, nil
}
