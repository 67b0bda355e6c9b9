package sbbprotocol

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"strings"
)

// Response is the raw reply to one command, without its line terminator.
// Replies collected in echo mode are joined with '\n'.
type Response []byte

// Text returns the reply as a string with trailing whitespace trimmed.
func (r Response) Text() string {
	return strings.TrimRight(string(r), " \t\r\n")
}

// Lines returns the reply split into its individual reply lines.
func (r Response) Lines() []string {
	if len(r) == 0 {
		return nil
	}
	return strings.Split(string(r), "\n")
}

// Bytes decodes the hex payload returned by peek-style commands.
func (r Response) Bytes() ([]byte, error) {
	text := strings.TrimPrefix(strings.TrimPrefix(r.Text(), "0x"), "0X")
	out, err := hex.DecodeString(text)
	if err != nil {
		return nil, newUnexpectedResponseError("not a hex payload: %v", err)
	}
	return out, nil
}

// Uint reads a width-byte unsigned integer from the raw reply bytes.
// Width must be between 1 and 8 and no larger than the reply. Order must be
// binary.BigEndian or binary.LittleEndian.
func (r Response) Uint(width int, order binary.ByteOrder) (uint64, error) {
	return decodeUint(r, width, order)
}

// HexUint decodes the hex payload and reads it as an unsigned integer of its
// own width. Console memory is little-endian, so peek replies normally use
// binary.LittleEndian.
func (r Response) HexUint(order binary.ByteOrder) (uint64, error) {
	raw, err := r.Bytes()
	if err != nil {
		return 0, err
	}
	return decodeUint(raw, len(raw), order)
}

// Bool interprets a "1"/"0" reply such as the one from isProgramRunning.
func (r Response) Bool() (bool, error) {
	switch r.Text() {
	case "1":
		return true, nil
	case "0":
		return false, nil
	default:
		return false, newUnexpectedResponseError("not a boolean: %q", r.Text())
	}
}

// Equal reports whether two replies carry the same bytes.
func (r Response) Equal(other Response) bool {
	return bytes.Equal(r, other)
}

func decodeUint(b []byte, width int, order binary.ByteOrder) (uint64, error) {
	if width < 1 || width > 8 {
		return 0, newUnexpectedResponseError("integer width %d out of range 1..8", width)
	}
	if len(b) < width {
		return 0, newUnexpectedResponseError("need %d bytes, have %d", width, len(b))
	}

	var buf [8]byte
	switch order {
	case binary.BigEndian:
		copy(buf[8-width:], b[:width])
		return binary.BigEndian.Uint64(buf[:]), nil
	case binary.LittleEndian:
		copy(buf[:width], b[:width])
		return binary.LittleEndian.Uint64(buf[:]), nil
	default:
		return 0, newUnexpectedResponseError("unsupported byte order %v", order)
	}
}
