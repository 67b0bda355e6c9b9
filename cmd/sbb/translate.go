// =============================================================================
// translate.go - REPL Input to Wire Commands
// =============================================================================
//
// Most REPL input is passed to the console verbatim. A few dot-commands are
// shorthands that expand to wire commands (.peek, .poke), and a line may
// hold several commands separated by ';'.
//
// Local dot-commands (.quit, .help, .connect, ...) never reach this file;
// the REPL handles them itself.
//
// =============================================================================

package main

import (
	"fmt"
	"strings"
)

// request is one line of user input translated into wire commands.
type request struct {
	commands []string

	// peek marks replies that carry a hex memory payload.
	peek bool
}

func (r request) first() string {
	if len(r.commands) == 0 {
		return ""
	}
	return r.commands[0]
}

// translateToProtocol converts a REPL line into the commands to send.
//
//	.peek [space] <offset> <size>    -> peek / peekAbsolute / peekMain
//	.poke [space] <offset> <hexdata> -> poke / pokeAbsolute / pokeMain
//	click A; click B                 -> two commands, sent in order
//	anything else                    -> sent as typed
func translateToProtocol(line string) (request, error) {
	trimmed := strings.TrimSpace(line)
	fields := strings.Fields(trimmed)
	if len(fields) == 0 {
		return request{}, fmt.Errorf("empty command")
	}

	switch strings.ToLower(fields[0]) {
	case ".peek":
		space, args, err := splitSpace(fields[1:], ".peek [space] <offset> <size>")
		if err != nil {
			return request{}, err
		}
		return peekRequest(space, args[0], args[1])
	case ".poke":
		space, args, err := splitSpace(fields[1:], ".poke [space] <offset> <hexdata>")
		if err != nil {
			return request{}, err
		}
		return pokeRequest(space, args[0], args[1])
	}

	if strings.HasPrefix(trimmed, ".") {
		return request{}, fmt.Errorf("unknown command '%s'. Type .help for available commands", fields[0])
	}

	var commands []string
	for _, part := range strings.Split(trimmed, ";") {
		if part = strings.TrimSpace(part); part != "" {
			commands = append(commands, part)
		}
	}
	if len(commands) == 0 {
		return request{}, fmt.Errorf("empty command")
	}
	return request{commands: commands}, nil
}

// splitSpace separates the optional leading memory space from the two
// positional arguments of .peek and .poke.
func splitSpace(args []string, usage string) (string, []string, error) {
	switch len(args) {
	case 2:
		return "heap", args, nil
	case 3:
		return args[0], args[1:], nil
	default:
		return "", nil, fmt.Errorf("usage: %s", usage)
	}
}
