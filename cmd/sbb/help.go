// =============================================================================
// help.go - REPL Help Text
// =============================================================================
//
// .help prints an overview of the dot-commands; .help <topic> prints the
// detailed entry from globalHelp. sys-botbase's own command vocabulary is
// owned by the console firmware and is not documented here.
//
// =============================================================================

package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// printHelp writes the overview, or the entry for topic, to w. Unknown
// topics are reported on errOut.
func printHelp(w, errOut io.Writer, topic string) {
	if topic == "" {
		printHelpOverview(w)
		return
	}

	key := strings.TrimPrefix(strings.ToLower(topic), ".")
	if text, ok := globalHelp[key]; ok {
		fmt.Fprintln(w, text)
		return
	}

	fmt.Fprintf(errOut, "Error: No help for '%s'. Topics: %s\n", topic, strings.Join(helpTopics(), ", "))
}

func printHelpOverview(w io.Writer) {
	fmt.Fprint(w, `Commands:
  .help [cmd]                  Show help (or help for a specific command)
  .status                      Show connection status
  .connect                     Connect now (otherwise the first command connects)
  .disconnect                  Close the connection
  .peek [space] <off> <size>   Read memory (space: heap, absolute, main)
  .poke [space] <off> <hex>    Write memory
  .quit                        Exit

Anything else is sent to the console as typed, for example:
  getTitleID
  click A
  clickSeq A,W500,B
Separate several commands with ';' to send them in order.
`)
}

// helpTopics returns the sorted list of topics that have detailed help.
func helpTopics() []string {
	topics := make([]string, 0, len(globalHelp))
	for k := range globalHelp {
		topics = append(topics, k)
	}
	sort.Strings(topics)
	return topics
}

var globalHelp = map[string]string{
	"help": `  .help [command]
    Show help for all commands, or detailed help for a specific command.
    Examples:
      .help           Show the command listing
      .help peek      Show detailed help for .peek`,

	"status": `  .status
    Show the console address and whether a connection is open.`,

	"connect": `  .connect
    Open the connection and run the init sequence (echo mode, debug
    result codes, and any --init commands). Commands connect on demand,
    so this is only needed to check that the console is reachable.`,

	"disconnect": `  .disconnect
    Close the connection. The next command reconnects.`,

	"peek": `  .peek [space] <offset> <size>
    Read <size> bytes at hex <offset>. Space is heap (default), absolute
    or main. Payloads of up to 8 bytes are also shown as a little-endian
    integer.
    Examples:
      .peek 0x4F3A0 4
      .peek main 0x10 8`,

	"poke": `  .poke [space] <offset> <hexdata>
    Write hex bytes at hex <offset>. Space is heap (default), absolute
    or main.
    Examples:
      .poke 0x4F3A0 0x0A000000
      .poke absolute 0x8000000 FF`,

	"quit": `  .quit
    Disconnect and exit. Ctrl-D does the same.`,
}
