package tmf

import (
	"errors"
	"fmt"
)

// Type is the message exchange class.
type Type uint8

const (
	// TypeConfirmable requests an acknowledgment.
	TypeConfirmable Type = iota
	// TypeNonConfirmable is fire-and-forget.
	TypeNonConfirmable
	// TypeAck acknowledges a confirmable message.
	TypeAck
	// TypeReset rejects a message the receiver cannot process.
	TypeReset
)

// Code is the request method or response status.
type Code uint8

const (
	CodeGet      Code = 0x01
	CodePost     Code = 0x02
	CodeChanged  Code = 0x44
	CodeContent  Code = 0x45
	CodeNotFound Code = 0x84
)

const (
	version       = 1
	maxTokenLen   = 8
	maxPathLen    = 255
	maxMessageLen = 1280
)

var errMalformed = errors.New("malformed message")

// Message is a management-framework message. The payload is opaque to this
// layer; TLV interpretation belongs to the resource handlers' collaborators.
type Message struct {
	Type      Type
	Code      Code
	MessageID uint16
	Token     []byte
	Path      string
	Payload   []byte
}

// Marshal encodes the message into its compact wire form.
func (m *Message) Marshal() ([]byte, error) {
	if len(m.Token) > maxTokenLen {
		return nil, fmt.Errorf("%w: token too long", errMalformed)
	}
	if len(m.Path) > maxPathLen {
		return nil, fmt.Errorf("%w: path too long", errMalformed)
	}

	buf := make([]byte, 0, 5+len(m.Token)+len(m.Path)+len(m.Payload))
	buf = append(buf, version<<6|uint8(m.Type)<<4|uint8(len(m.Token)))
	buf = append(buf, uint8(m.Code))
	buf = append(buf, uint8(m.MessageID>>8), uint8(m.MessageID))
	buf = append(buf, m.Token...)
	buf = append(buf, uint8(len(m.Path)))
	buf = append(buf, m.Path...)
	buf = append(buf, m.Payload...)

	if len(buf) > maxMessageLen {
		return nil, fmt.Errorf("%w: message too long", errMalformed)
	}
	return buf, nil
}

// Unmarshal decodes a datagram in place.
func (m *Message) Unmarshal(buf []byte) error {
	if len(buf) < 5 {
		return fmt.Errorf("%w: truncated header", errMalformed)
	}
	if buf[0]>>6 != version {
		return fmt.Errorf("%w: unsupported version %d", errMalformed, buf[0]>>6)
	}

	tokenLen := int(buf[0] & 0x0f)
	if tokenLen > maxTokenLen {
		return fmt.Errorf("%w: token length %d", errMalformed, tokenLen)
	}

	m.Type = Type(buf[0] >> 4 & 0x03)
	m.Code = Code(buf[1])
	m.MessageID = uint16(buf[2])<<8 | uint16(buf[3])

	rest := buf[4:]
	if len(rest) < tokenLen+1 {
		return fmt.Errorf("%w: truncated token", errMalformed)
	}
	m.Token = append([]byte(nil), rest[:tokenLen]...)
	rest = rest[tokenLen:]

	pathLen := int(rest[0])
	rest = rest[1:]
	if len(rest) < pathLen {
		return fmt.Errorf("%w: truncated path", errMalformed)
	}
	m.Path = string(rest[:pathLen])
	m.Payload = append([]byte(nil), rest[pathLen:]...)
	return nil
}
