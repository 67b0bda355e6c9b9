package sbbprotocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestProtocolConstants(t *testing.T) {
	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"LineTerminator", LineTerminator, "\r\n"},
		{"SequenceDone", SequenceDone, "done"},
		{"EchoCommandsInit", EchoCommandsInit, "configure echoCommands 1"},
		{"DebugResultCodesInit", DebugResultCodesInit, "configure printDebugResultCodes 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("got %q, want %q", tt.got, tt.expected)
			}
		})
	}

	if DefaultPort != 6000 {
		t.Errorf("DefaultPort = %d, want 6000", DefaultPort)
	}
}

func TestCommandFormatting(t *testing.T) {
	tests := []struct {
		name     string
		cmd      Command
		expected string
	}{
		{"No args", NewCommand("getTitleID"), "getTitleID"},
		{"One arg", NewCommand("click", "A"), "click A"},
		{"Several args", NewCommand("setStick", "LEFT", "0x7FFF", "0x0"), "setStick LEFT 0x7FFF 0x0"},
		{"Peek heap", NewPeekCommand(SpaceHeap, 0x4F3A0, 4), "peek 0x4F3A0 4"},
		{"Peek absolute", NewPeekCommand(SpaceAbsolute, 0x8000000, 8), "peekAbsolute 0x8000000 8"},
		{"Peek main", NewPeekCommand(SpaceMain, 0x10, 2), "peekMain 0x10 2"},
		{"Poke heap", NewPokeCommand(SpaceHeap, 0x4F3A0, []byte{0x0a, 0x00}), "poke 0x4F3A0 0x0A00"},
		{"Poke main", NewPokeCommand(SpaceMain, 0x20, []byte{0xff}), "pokeMain 0x20 0xFF"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cmd.Format(); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
			if got := tt.cmd.String(); got != tt.expected {
				t.Errorf("String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestCommandFormatLine(t *testing.T) {
	got := NewCommand("click", "A").FormatLine()
	if got != "click A\r\n" {
		t.Errorf("got %q, want %q", got, "click A\r\n")
	}
}

func TestCommandIsSequence(t *testing.T) {
	if !NewCommand("clickSeq", "A,W100").IsSequence() {
		t.Error("clickSeq should be a sequence command")
	}
	if NewCommand("click", "A").IsSequence() {
		t.Error("click should not be a sequence command")
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		input    string
		wantName string
		wantArgs []string
		wantErr  bool
	}{
		{"getTitleID", "getTitleID", nil, false},
		{"  click   A  ", "click", []string{"A"}, false},
		{"peek 0x10 4", "peek", []string{"0x10", "4"}, false},
		{"", "", nil, true},
		{"   ", "", nil, true},
		{"click A\nclick B", "", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			cmd, err := ParseCommand(tt.input)
			if tt.wantErr {
				if !IsProtocolError(err) {
					t.Errorf("ParseCommand(%q) error = %v, want *ProtocolError", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCommand(%q) error: %v", tt.input, err)
			}
			if cmd.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", cmd.Name, tt.wantName)
			}
			if fmt.Sprint(cmd.Args) != fmt.Sprint(tt.wantArgs) {
				t.Errorf("Args = %q, want %q", cmd.Args, tt.wantArgs)
			}
		})
	}
}

func TestParseMemorySpace(t *testing.T) {
	tests := []struct {
		input string
		want  MemorySpace
		err   bool
	}{
		{"", SpaceHeap, false},
		{"heap", SpaceHeap, false},
		{"Absolute", SpaceAbsolute, false},
		{"abs", SpaceAbsolute, false},
		{"main", SpaceMain, false},
		{"stack", SpaceHeap, true},
	}
	for _, tt := range tests {
		got, err := ParseMemorySpace(tt.input)
		if (err != nil) != tt.err {
			t.Errorf("ParseMemorySpace(%q) error = %v, wantErr %v", tt.input, err, tt.err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMemorySpace(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestResponseText(t *testing.T) {
	tests := []struct {
		resp Response
		want string
	}{
		{Response("ack"), "ack"},
		{Response("2.4 \t\r"), "2.4"},
		{Response("  leading"), "  leading"},
		{Response{}, ""},
	}
	for _, tt := range tests {
		if got := tt.resp.Text(); got != tt.want {
			t.Errorf("Response(%q).Text() = %q, want %q", tt.resp, got, tt.want)
		}
	}
}

func TestResponseLines(t *testing.T) {
	lines := Response("line1\nline2\nline3").Lines()
	if len(lines) != 3 || lines[0] != "line1" || lines[2] != "line3" {
		t.Errorf("Lines() = %q", lines)
	}
	if (Response{}).Lines() != nil {
		t.Error("empty Response should have no lines")
	}
}

func TestResponseBytes(t *testing.T) {
	got, err := Response("0A00FF10").Bytes()
	if err != nil {
		t.Fatalf("Bytes() error: %v", err)
	}
	if string(got) != "\x0a\x00\xff\x10" {
		t.Errorf("Bytes() = % X", got)
	}

	if _, err := Response("0x0A").Bytes(); err != nil {
		t.Errorf("Bytes() with 0x prefix error: %v", err)
	}

	_, err = Response("not hex").Bytes()
	var pe *ProtocolError
	if !errors.As(err, &pe) || pe.Kind != ErrKindUnexpectedResponse {
		t.Errorf("Bytes() error = %v, want ErrKindUnexpectedResponse", err)
	}
}

func TestResponseUint(t *testing.T) {
	raw := Response{0x01, 0x02, 0x03, 0x04}
	tests := []struct {
		name  string
		width int
		order binary.ByteOrder
		want  uint64
	}{
		{"1 byte", 1, binary.BigEndian, 0x01},
		{"2 bytes big", 2, binary.BigEndian, 0x0102},
		{"2 bytes little", 2, binary.LittleEndian, 0x0201},
		{"4 bytes big", 4, binary.BigEndian, 0x01020304},
		{"4 bytes little", 4, binary.LittleEndian, 0x04030201},
		{"3 bytes big", 3, binary.BigEndian, 0x010203},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := raw.Uint(tt.width, tt.order)
			if err != nil {
				t.Fatalf("Uint() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Uint(%d) = %#x, want %#x", tt.width, got, tt.want)
			}
		})
	}

	for _, width := range []int{0, 5, 9} {
		if _, err := raw.Uint(width, binary.BigEndian); !IsProtocolError(err) {
			t.Errorf("Uint(%d) error = %v, want *ProtocolError", width, err)
		}
	}

	for _, order := range []binary.ByteOrder{nil, binary.NativeEndian} {
		_, err := raw.Uint(2, order)
		var pe *ProtocolError
		if !errors.As(err, &pe) || pe.Kind != ErrKindUnexpectedResponse {
			t.Errorf("Uint(2, %v) error = %v, want ErrKindUnexpectedResponse", order, err)
		}
	}
}

func TestResponseHexUint(t *testing.T) {
	got, err := Response("0A000000").HexUint(binary.LittleEndian)
	if err != nil {
		t.Fatalf("HexUint() error: %v", err)
	}
	if got != 10 {
		t.Errorf("HexUint() = %d, want 10", got)
	}

	if _, err := Response("").HexUint(binary.LittleEndian); !IsProtocolError(err) {
		t.Errorf("HexUint() on empty reply error = %v, want *ProtocolError", err)
	}
}

func TestResponseBool(t *testing.T) {
	if v, err := Response("1").Bool(); err != nil || !v {
		t.Errorf(`Bool("1") = %v, %v`, v, err)
	}
	if v, err := Response("0\r").Bool(); err != nil || v {
		t.Errorf(`Bool("0") = %v, %v`, v, err)
	}
	if _, err := Response("yes").Bool(); !IsProtocolError(err) {
		t.Errorf(`Bool("yes") error = %v, want *ProtocolError`, err)
	}
}

func TestErrorKinds(t *testing.T) {
	connErr := NewConnectionError("connection closed by peer", io.EOF)
	if !IsConnectionError(connErr) || !errors.Is(connErr, io.EOF) {
		t.Errorf("ConnectionError does not unwrap: %v", connErr)
	}
	if got := connErr.Error(); got != "connection failed: connection closed by peer: EOF" {
		t.Errorf("Error() = %q", got)
	}

	timeout := newTimeoutError("read reply", io.ErrNoProgress)
	if !IsTimeout(timeout) || !errors.Is(timeout, io.ErrNoProgress) {
		t.Errorf("timeout error does not match ErrTimeout and its cause: %v", timeout)
	}
	if IsConnectionError(timeout) || IsProtocolError(timeout) {
		t.Error("timeout error matched another kind")
	}

	wrapped := fmt.Errorf("outer: %w", newInvalidCommandError(""))
	if !IsProtocolError(wrapped) {
		t.Error("wrapped ProtocolError not detected")
	}

	long := newUnterminatedError(make([]byte, 200))
	var pe *ProtocolError
	if !errors.As(long, &pe) || len(pe.Value) != 64 {
		t.Errorf("unterminated error should truncate its value, got %d bytes", len(pe.Value))
	}
}

func TestEndpointValidate(t *testing.T) {
	tests := []struct {
		ep      Endpoint
		wantErr bool
	}{
		{Endpoint{"192.168.1.50", 6000}, false},
		{Endpoint{"switch.local", 6001}, false},
		{Endpoint{"", 6000}, true},
		{Endpoint{"bad host", 6000}, true},
		{Endpoint{"192.168.1.50", 0}, true},
		{Endpoint{"192.168.1.50", 65536}, true},
	}
	for _, tt := range tests {
		err := tt.ep.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("%+v.Validate() error = %v, wantErr %v", tt.ep, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrInvalidEndpoint) {
			t.Errorf("%+v.Validate() error = %v, want ErrInvalidEndpoint", tt.ep, err)
		}
	}
}
