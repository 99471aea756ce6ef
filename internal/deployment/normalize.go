package deployment

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// NormalizeYAML parses raw as a single YAML document and renders it back in
// canonical form. ConfigMap values are normalized this way before they are
// patched. Input holding more than one document is rejected.
func NormalizeYAML(raw string) (string, error) {
	dec := yaml.NewDecoder(strings.NewReader(raw))

	var doc yaml.Node
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return "", nil
		}
		return "", fmt.Errorf("invalid YAML: %w", err)
	}

	var extra yaml.Node
	switch err := dec.Decode(&extra); {
	case err == nil:
		return "", errors.New("invalid YAML: multiple documents are not supported")
	case !errors.Is(err, io.EOF):
		return "", fmt.Errorf("invalid YAML: %w", err)
	}

	out, err := yaml.Marshal(&doc)
	if err != nil {
		return "", fmt.Errorf("failed to render YAML: %w", err)
	}
	return string(out), nil
}
