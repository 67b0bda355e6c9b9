package output

import (
	"encoding/json"
	"io"
)

// JSONFormatter formats results as an indented JSON array.
type JSONFormatter struct{}

// Format formats results as indented JSON.
func (f *JSONFormatter) Format(w io.Writer, results []Result) error {
	if results == nil {
		results = []Result{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(results)
}
