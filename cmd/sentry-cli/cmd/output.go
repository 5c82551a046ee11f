package cmd

import (
	"encoding/json"
	"io"

	"gopkg.in/yaml.v3"
)

// formatOutput writes data as JSON or YAML when --output asks for it and
// reports whether it did. Text output is left to each command.
func (a *app) formatOutput(w io.Writer, data any) (bool, error) {
	switch a.outputFormat {
	case "json":
		return true, outputJSON(w, data)
	case "yaml":
		return true, outputYAML(w, data)
	default:
		return false, nil
	}
}

func outputJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func outputYAML(w io.Writer, data any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return err
	}
	return enc.Close()
}
