// =============================================================================
// repl.go - REPL Loop
// =============================================================================
//
// The REPL reads a line, handles local dot-commands itself, translates the
// rest into wire commands, sends them and prints the replies. Errors are
// printed and the loop continues; a failed exchange only drops the
// connection, and the next command reconnects.
//
// =============================================================================

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/sbbkit/sbb/internal/output"
	"github.com/sbbkit/sbb/sbbprotocol"
)

// lineReader is the part of LineEditor the REPL needs.
type lineReader interface {
	GetLine(prompt string) (string, error)
	Close()
}

// repl is one interactive session against a single client.
type repl struct {
	client    *sbbprotocol.Client
	editor    lineReader
	formatter output.Formatter
	out       io.Writer
	errOut    io.Writer
}

// prompt shows the console address and whether a connection is open.
func (r *repl) prompt() string {
	if r.client.IsConnected() {
		return fmt.Sprintf("sbb %s> ", r.client.Endpoint())
	}
	return "sbb (disconnected)> "
}

// run reads lines until .quit or end of input.
func (r *repl) run(ctx context.Context) error {
	for {
		line, err := r.editor.GetLine(r.prompt())
		if err == io.EOF {
			fmt.Fprintln(r.out)
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if quit := r.handle(ctx, line); quit {
			return nil
		}
	}
}

// handle processes one line and reports whether the REPL should exit.
func (r *repl) handle(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	keyword := strings.ToLower(fields[0])

	switch keyword {
	case ".quit", ".exit":
		return true

	case ".help":
		printHelp(r.out, r.errOut, strings.Join(fields[1:], " "))
		return false

	case ".status":
		state := "disconnected"
		if r.client.IsConnected() {
			state = "connected"
		}
		fmt.Fprintf(r.out, "%s: %s\n", r.client.Endpoint(), state)
		return false

	case ".connect":
		if err := r.client.Connect(ctx); err != nil {
			printError(r.errOut, err)
			return false
		}
		fmt.Fprintf(r.out, "Connected to %s\n", r.client.Endpoint())
		return false

	case ".disconnect":
		if err := r.client.Disconnect(); err != nil {
			printError(r.errOut, err)
			return false
		}
		fmt.Fprintln(r.out, "Disconnected")
		return false
	}

	req, err := translateToProtocol(line)
	if err != nil {
		printError(r.errOut, err)
		return false
	}

	results := runRequest(ctx, r.client, req)
	if err := r.formatter.Format(r.out, results); err != nil {
		printError(r.errOut, err)
	}
	return false
}

// replAction is the default action and the repl subcommand.
func (a *cliApp) replAction(c *cli.Context) error {
	if err := a.setup(c); err != nil {
		return err
	}

	var editor *LineEditor
	if f, ok := a.stdin.(*os.File); ok {
		editor = NewLineEditor(f, a.stdout, a.stderr, a.cfg.History)
	} else {
		editor = newScannerEditor(a.stdin, a.stdout)
	}
	defer editor.Close()

	if editor.IsInteractive() {
		fmt.Fprint(a.stdout, welcomeBanner(a.client.Endpoint()))
		fmt.Fprintln(a.stdout)
	}

	r := &repl{
		client:    a.client,
		editor:    editor,
		formatter: a.formatter,
		out:       a.stdout,
		errOut:    a.stderr,
	}
	return r.run(c.Context)
}
