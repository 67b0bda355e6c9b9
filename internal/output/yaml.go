package output

import (
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLFormatter formats results as a YAML sequence.
type YAMLFormatter struct{}

// Format formats results as YAML.
func (f *YAMLFormatter) Format(w io.Writer, results []Result) error {
	if results == nil {
		results = []Result{}
	}
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(results); err != nil {
		return err
	}
	return encoder.Close()
}
