// Package sbbprotocol provides a Go client for sys-botbase, the homebrew
// firmware module that lets a game console be remote-controlled over TCP.
//
// # Protocol Overview
//
// The protocol is line-oriented text. The client writes one command per
// line, terminated by "\r\n", and reads the reply up to "\n". Command names
// and arguments belong to the firmware; this package forwards them
// verbatim and never validates the vocabulary.
//
// Many commands (button presses, configure, ...) produce no reply. With
// echo mode enabled the console repeats each command once it has run, and
// the client uses that echo as the end-of-reply marker. Echo mode is off by
// default, in which case every command must reply with one line; a
// reply-less command times out and drops the connection. Enable it when
// sending button presses and other silent commands:
//
//	client := sbbprotocol.NewClient("192.168.1.50", sbbprotocol.WithEchoCommands(true))
//
// # Basic Usage
//
//	client := sbbprotocol.NewClient("192.168.1.50")
//	defer client.Disconnect()
//
//	resp, err := client.Invoke(ctx, "getTitleID")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(resp.Text())
//
// The connection is opened by the first Invoke. Any failed exchange closes
// it, and the following Invoke dials again. Use Do for a connection that is
// guaranteed to be released:
//
//	err := client.Do(ctx, func(c *sbbprotocol.Client) error {
//	    resp, err := c.InvokeCommand(ctx, sbbprotocol.NewPeekCommand(sbbprotocol.SpaceMain, 0x4F3A0, 4))
//	    if err != nil {
//	        return err
//	    }
//	    v, err := resp.HexUint(binary.LittleEndian)
//	    ...
//	})
//
// # Errors
//
// Failures are reported as *ConnectionError (socket could not be opened,
// or was closed by the peer), *ProtocolError (invalid command, oversized
// or unterminated reply, undecodable reply) or an error matching
// ErrTimeout. Nothing is retried internally.
//
// # Thread Safety
//
// A Client serializes its exchanges internally; concurrent callers are
// queued, never interleaved. Separate Clients share no state.
package sbbprotocol
