package lens

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tphakala/slrealizer/internal/errors"
)

// yamlCatalog is the document layout of a YAML lens catalog
type yamlCatalog struct {
	Systems []*System `yaml:"systems"`
}

// ReadYAMLFile reads a YAML lens catalog file
func ReadYAMLFile(path string) ([]*System, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.FileError(fmt.Errorf("open lens catalog: %w", err), path)
	}
	defer func() { _ = f.Close() }()

	return ReadYAML(f)
}

// ReadYAML decodes a catalog document. Unknown keys are rejected.
func ReadYAML(r io.Reader) ([]*System, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc yamlCatalog
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, errors.New(fmt.Errorf("decode lens catalog: %w", err)).
			Category(errors.CategoryFileParsing).
			Component("lens").
			Build()
	}
	return doc.Systems, nil
}

// WriteYAML encodes systems as a catalog document
func WriteYAML(w io.Writer, systems []*System) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(yamlCatalog{Systems: systems}); err != nil {
		return fmt.Errorf("encode lens catalog: %w", err)
	}
	return enc.Close()
}
