package sbbprotocol

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Command is a single sys-botbase command line. The vocabulary belongs to
// the console firmware; Command only handles formatting.
type Command struct {
	Name string
	Args []string
}

// NewCommand creates a command from a name and its arguments.
func NewCommand(name string, args ...string) Command {
	return Command{Name: name, Args: args}
}

// Format returns the command as sent on the wire, without the terminator.
func (c Command) Format() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// FormatLine returns the command with the protocol line terminator appended.
func (c Command) FormatLine() string {
	return c.Format() + LineTerminator
}

// IsSequence reports whether the console keeps replying after echoing this
// command (clickSeq, pressSeq, ...).
func (c Command) IsSequence() bool {
	return strings.Contains(c.Name, SequenceMarker)
}

// String implements fmt.Stringer.
func (c Command) String() string {
	return c.Format()
}

// ParseCommand splits a line of user input into a Command.
// Surrounding whitespace is ignored and runs of spaces collapse.
func ParseCommand(line string) (Command, error) {
	if strings.ContainsAny(line, "\r\n") {
		return Command{}, newInvalidCommandError(line)
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, newInvalidCommandError(line)
	}
	return Command{Name: fields[0], Args: fields[1:]}, nil
}

// validateCommandLine checks a raw command string before it is written.
func validateCommandLine(line string) error {
	if strings.TrimSpace(line) == "" || strings.ContainsAny(line, "\r\n") {
		return newInvalidCommandError(line)
	}
	return nil
}

// MemorySpace selects the base a peek/poke offset is relative to.
type MemorySpace int

const (
	// SpaceHeap addresses memory relative to the running title's heap.
	SpaceHeap MemorySpace = iota
	// SpaceAbsolute addresses absolute memory.
	SpaceAbsolute
	// SpaceMain addresses memory relative to the main NSO.
	SpaceMain
)

// ParseMemorySpace parses "heap", "absolute" or "main".
func ParseMemorySpace(s string) (MemorySpace, error) {
	switch strings.ToLower(s) {
	case "", "heap":
		return SpaceHeap, nil
	case "absolute", "abs":
		return SpaceAbsolute, nil
	case "main":
		return SpaceMain, nil
	default:
		return SpaceHeap, fmt.Errorf("unknown memory space %q (want heap, absolute or main)", s)
	}
}

func (s MemorySpace) String() string {
	switch s {
	case SpaceAbsolute:
		return "absolute"
	case SpaceMain:
		return "main"
	default:
		return "heap"
	}
}

func (s MemorySpace) suffix() string {
	switch s {
	case SpaceAbsolute:
		return "Absolute"
	case SpaceMain:
		return "Main"
	default:
		return ""
	}
}

// NewPeekCommand creates a peek, peekAbsolute or peekMain command reading
// size bytes at offset.
func NewPeekCommand(space MemorySpace, offset uint64, size int) Command {
	return NewCommand("peek"+space.suffix(), formatOffset(offset), fmt.Sprint(size))
}

// NewPokeCommand creates a poke, pokeAbsolute or pokeMain command writing
// data at offset.
func NewPokeCommand(space MemorySpace, offset uint64, data []byte) Command {
	return NewCommand("poke"+space.suffix(), formatOffset(offset), "0x"+strings.ToUpper(hex.EncodeToString(data)))
}

func formatOffset(offset uint64) string {
	return fmt.Sprintf("0x%X", offset)
}
