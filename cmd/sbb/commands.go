package main

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/sbbkit/sbb/internal/output"
	"github.com/sbbkit/sbb/sbbprotocol"
)

var spaceFlag = &cli.StringFlag{
	Name:    "space",
	Aliases: []string{"s"},
	Value:   "heap",
	Usage:   "memory space: heap, absolute or main",
}

func (a *cliApp) execCommand() *cli.Command {
	return &cli.Command{
		Name:      "exec",
		Usage:     "send commands and print the replies",
		ArgsUsage: "<command> [command...]",
		Before:    a.setup,
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return fmt.Errorf("exec needs at least one command")
			}
			return a.runOnce(c.Context, request{commands: c.Args().Slice()})
		},
	}
}

func (a *cliApp) peekCommand() *cli.Command {
	return &cli.Command{
		Name:      "peek",
		Usage:     "read console memory",
		ArgsUsage: "<offset> <size>",
		Flags:     []cli.Flag{spaceFlag},
		Before:    a.setup,
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return fmt.Errorf("peek needs <offset> <size>")
			}
			req, err := peekRequest(c.String("space"), c.Args().Get(0), c.Args().Get(1))
			if err != nil {
				return err
			}
			return a.runOnce(c.Context, req)
		},
	}
}

func (a *cliApp) pokeCommand() *cli.Command {
	return &cli.Command{
		Name:      "poke",
		Usage:     "write console memory",
		ArgsUsage: "<offset> <hexdata>",
		Flags:     []cli.Flag{spaceFlag},
		Before:    a.setup,
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return fmt.Errorf("poke needs <offset> <hexdata>")
			}
			req, err := pokeRequest(c.String("space"), c.Args().Get(0), c.Args().Get(1))
			if err != nil {
				return err
			}
			return a.runOnce(c.Context, req)
		},
	}
}

func (a *cliApp) replCommand() *cli.Command {
	return &cli.Command{
		Name:   "repl",
		Usage:  "interactive session (default)",
		Before: a.setup,
		Action: a.replAction,
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "print the version",
		Action: func(c *cli.Context) error {
			fmt.Fprintln(c.App.Writer, fullTitle())
			return nil
		},
	}
}

// runOnce connects, sends the request and disconnects.
func (a *cliApp) runOnce(ctx context.Context, req request) error {
	var results []output.Result
	err := a.client.Do(ctx, func(client *sbbprotocol.Client) error {
		results = runRequest(ctx, client, req)
		return nil
	})
	if err != nil {
		results = append(results, output.Result{Command: req.first(), Error: err.Error()})
	}
	return a.render(results)
}

// runRequest sends every command of req in order and stops at the first
// failure.
func runRequest(ctx context.Context, client *sbbprotocol.Client, req request) []output.Result {
	responses, err := client.InvokeAll(ctx, req.commands...)

	results := make([]output.Result, 0, len(req.commands))
	for i, resp := range responses {
		result := output.NewResult(req.commands[i], resp, nil)
		if req.peek {
			decodePeek(&result, resp)
		}
		results = append(results, result)
	}
	if err != nil {
		results = append(results, output.NewResult(req.commands[len(responses)], nil, err))
	}
	return results
}

// decodePeek fills in the hex payload and, for payloads of up to eight
// bytes, their little-endian value.
func decodePeek(result *output.Result, resp sbbprotocol.Response) {
	data, err := resp.Bytes()
	if err != nil {
		result.Error = err.Error()
		return
	}
	result.Hex = strings.ToUpper(hex.EncodeToString(data))
	if len(data) >= 1 && len(data) <= 8 {
		if v, err := resp.HexUint(binary.LittleEndian); err == nil {
			result.Value = &v
		}
	}
}

func peekRequest(space, offset, size string) (request, error) {
	ms, err := sbbprotocol.ParseMemorySpace(space)
	if err != nil {
		return request{}, err
	}
	off, err := parseOffset(offset)
	if err != nil {
		return request{}, err
	}
	n, err := strconv.Atoi(size)
	if err != nil || n <= 0 {
		return request{}, fmt.Errorf("invalid size %q", size)
	}
	return request{
		commands: []string{sbbprotocol.NewPeekCommand(ms, off, n).Format()},
		peek:     true,
	}, nil
}

func pokeRequest(space, offset, data string) (request, error) {
	ms, err := sbbprotocol.ParseMemorySpace(space)
	if err != nil {
		return request{}, err
	}
	off, err := parseOffset(offset)
	if err != nil {
		return request{}, err
	}
	payload, err := hex.DecodeString(trimHexPrefix(data))
	if err != nil || len(payload) == 0 {
		return request{}, fmt.Errorf("invalid hex data %q", data)
	}
	return request{
		commands: []string{sbbprotocol.NewPokeCommand(ms, off, payload).Format()},
	}, nil
}

// parseOffset reads a hex offset with or without a 0x prefix.
func parseOffset(s string) (uint64, error) {
	off, err := strconv.ParseUint(trimHexPrefix(s), 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid offset %q", s)
	}
	return off, nil
}

func trimHexPrefix(s string) string {
	if len(s) > 2 && (s[:2] == "0x" || s[:2] == "0X") {
		return s[2:]
	}
	return s
}
