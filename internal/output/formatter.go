// Package output renders command results for the sbb CLI.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/sbbkit/sbb/sbbprotocol"
)

// Format represents the output format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Result is the outcome of one command.
type Result struct {
	Command  string  `json:"command" yaml:"command"`
	Response string  `json:"response,omitempty" yaml:"response,omitempty"`
	Hex      string  `json:"hex,omitempty" yaml:"hex,omitempty"`
	Value    *uint64 `json:"value,omitempty" yaml:"value,omitempty"`
	Error    string  `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewResult builds a Result from an Invoke outcome.
func NewResult(command string, resp sbbprotocol.Response, err error) Result {
	r := Result{Command: command, Response: resp.Text()}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// Failed reports whether any result carries an error.
func Failed(results []Result) bool {
	for _, r := range results {
		if r.Error != "" {
			return true
		}
	}
	return false
}

// Formatter writes results.
type Formatter interface {
	Format(w io.Writer, results []Result) error
}

// NewFormatter creates a formatter for the given format. Unknown formats
// fall back to text.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{}
	case FormatYAML:
		return &YAMLFormatter{}
	default:
		return &TextFormatter{}
	}
}

// TextFormatter prints one response per line, the way the console sent it.
// Errors are prefixed with "Error:" and written to Errors when set.
type TextFormatter struct {
	Errors io.Writer
}

// Format writes results as plain text.
func (f *TextFormatter) Format(w io.Writer, results []Result) error {
	for _, r := range results {
		out := w
		var line string
		switch {
		case r.Error != "":
			line = "Error: " + r.Error
			if f.Errors != nil {
				out = f.Errors
			}
		case r.Hex != "" && r.Value != nil:
			line = fmt.Sprintf("%s (%d)", r.Hex, *r.Value)
		case r.Hex != "":
			line = r.Hex
		default:
			line = r.Response
		}
		if line == "" {
			continue
		}
		if _, err := io.WriteString(out, strings.TrimRight(line, "\n")+"\n"); err != nil {
			return err
		}
	}
	return nil
}
