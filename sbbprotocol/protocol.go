// Package sbbprotocol implements a client for the sys-botbase text protocol
// spoken by a game console over TCP.
//
// Protocol Format:
//
//	Request (client -> console):  <command> [arguments...]\r\n
//	Reply   (console -> client):  <data>\n
//	Echo    (echoCommands on):    <command> [arguments...]\r\n
//	Sequence end:                 done\n
//
// Example Session:
//
//	CLI: getTitleID
//	SBB: 0100ABF008968000
//	CLI: peek 0x4F3A0 4
//	SBB: 0A000000
//	CLI: click A
//	(no reply unless echoCommands is enabled)
package sbbprotocol

import "time"

// Protocol constants.
const (
	// DefaultPort is the port sys-botbase listens on unless the firmware
	// was rebuilt with a different one.
	DefaultPort = 6000

	// LineTerminator ends every command written to the console.
	LineTerminator = "\r\n"

	// ReplyDelimiter ends every reply line read from the console.
	ReplyDelimiter = '\n'

	// SequenceDone is the line the console sends when a *Seq command
	// (clickSeq and friends) has finished executing.
	SequenceDone = "done"

	// SequenceMarker identifies commands that run as a sequence and keep
	// replying after their echo.
	SequenceMarker = "Seq"

	// MaxResponseLength is the default upper bound for a single reply line.
	MaxResponseLength = 1024 * 1024

	// CommandTimeout is the default timeout for one command exchange.
	CommandTimeout = 1 * time.Second

	// DialTimeout is the default timeout for establishing connections.
	DialTimeout = 5 * time.Second

	// KeepAlivePeriod is the TCP keep-alive period used when keep-alive is on.
	KeepAlivePeriod = 30 * time.Second
)

// Init commands sent right after a connection is opened.
const (
	// EchoCommandsInit makes the console repeat each command once it has
	// been executed, which gives reply-less commands a completion marker.
	EchoCommandsInit = "configure echoCommands 1"

	// DebugResultCodesInit makes the console report verbose result codes.
	DebugResultCodesInit = "configure printDebugResultCodes 1"
)
