// =============================================================================
// lineeditor.go - Line Editor with Dual-Mode Operation
// =============================================================================
//
// On a terminal the REPL reads input through ergochat/readline: Emacs
// keybindings, persistent history, Ctrl-R search. When stdin is piped (a
// script, or Emacs comint which does its own editing) it falls back to a
// bufio.Scanner and prints the prompt itself.
//
// History lives at ~/.sbb_history unless the config says otherwise, capped
// at historySize entries.
//
// =============================================================================

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ergochat/readline"
	"golang.org/x/term"
)

// historySize is the maximum number of history entries to retain.
const historySize = 500

// LineEditor reads REPL input in interactive (readline) or
// non-interactive (scanner) mode.
type LineEditor struct {
	interactive bool

	// rl is set in interactive mode only.
	rl *readline.Instance

	// scanner and out are set in non-interactive mode only.
	scanner *bufio.Scanner
	out     io.Writer
}

// NewLineEditor picks interactive mode when stdin is a terminal and we are
// not running under Emacs. Readline failures degrade to non-interactive
// mode with a warning on stderr.
func NewLineEditor(stdin *os.File, stdout, stderr io.Writer, historyPath string) *LineEditor {
	isInteractive := term.IsTerminal(int(stdin.Fd())) &&
		os.Getenv("INSIDE_EMACS") == ""

	if !isInteractive {
		return newScannerEditor(stdin, stdout)
	}

	rl, err := readline.NewFromConfig(&readline.Config{
		HistoryFile:  historyPath,
		HistoryLimit: historySize,

		// Only non-empty lines are saved, by getInteractiveLine.
		DisableAutoSaveHistory: true,
	})
	if err != nil {
		fmt.Fprintf(stderr, "Warning: readline init failed (%v), using basic input\n", err)
		return newScannerEditor(stdin, stdout)
	}

	return &LineEditor{
		interactive: true,
		rl:          rl,
	}
}

// newScannerEditor reads lines from in and prints prompts to out.
func newScannerEditor(in io.Reader, out io.Writer) *LineEditor {
	return &LineEditor{
		interactive: false,
		scanner:     bufio.NewScanner(in),
		out:         out,
	}
}

// GetLine reads a line of input with the given prompt. It returns io.EOF
// on Ctrl-D, Ctrl-C, or when piped input is exhausted.
func (le *LineEditor) GetLine(prompt string) (string, error) {
	if le.interactive {
		return le.getInteractiveLine(prompt)
	}
	return le.getNonInteractiveLine(prompt)
}

func (le *LineEditor) getInteractiveLine(prompt string) (string, error) {
	le.rl.SetPrompt(prompt)

	line, err := le.rl.Readline()
	if err != nil {
		if errors.Is(err, readline.ErrInterrupt) {
			return "", io.EOF
		}
		return "", err
	}

	if trimmed := strings.TrimSpace(line); trimmed != "" {
		le.rl.SaveToHistory(trimmed)
	}
	return line, nil
}

func (le *LineEditor) getNonInteractiveLine(prompt string) (string, error) {
	// Prompts still matter here: comint matches on them.
	fmt.Fprint(le.out, prompt)

	if !le.scanner.Scan() {
		if err := le.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return le.scanner.Text(), nil
}

// Close saves history and releases the terminal. It is idempotent.
func (le *LineEditor) Close() {
	if le.rl != nil {
		le.rl.Close()
		le.rl = nil
	}
}

// IsInteractive reports whether readline is in use.
func (le *LineEditor) IsInteractive() bool {
	return le.interactive
}
