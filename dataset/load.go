package dataset

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type exampleFile struct {
	Examples []Example `yaml:"examples"`
}

// LoadFile reads an example set from a YAML file of the form
//
//	examples:
//	  - persona: pirate
//	    query: What languages does Matthew know?
//	    raw_answer: Python, C++, and Rust.
func LoadFile(path string) ([]Example, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open examples file: %w", err)
	}
	defer f.Close()

	examples, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return examples, nil
}

// Load decodes and validates a YAML example set.
func Load(r io.Reader) ([]Example, error) {
	var file exampleFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("no examples found")
		}
		return nil, fmt.Errorf("failed to decode examples: %w", err)
	}
	if len(file.Examples) == 0 {
		return nil, fmt.Errorf("no examples found")
	}
	if err := ValidateAll(file.Examples); err != nil {
		return nil, err
	}
	return file.Examples, nil
}
