package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"sigs.k8s.io/yaml"

	"github.com/giantswarm/deployctl/internal/notice"
)

const (
	outputJSON = "json"
	outputYAML = "yaml"
)

func validateOutput(format string) error {
	switch format {
	case outputJSON, outputYAML:
		return nil
	}
	return fmt.Errorf("unknown output format %q (want json or yaml)", format)
}

// writeOutput renders v in the requested format.
func writeOutput(w io.Writer, format string, v any) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case outputYAML:
		data, err = yaml.Marshal(v)
	default:
		data, err = json.MarshalIndent(v, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return fmt.Errorf("failed to render output: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// printNotices writes one line per notice, so stdout stays machine-readable.
func printNotices(w io.Writer, notices notice.List) {
	for _, n := range notices {
		_, _ = fmt.Fprintln(w, n.String())
	}
}
