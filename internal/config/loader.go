package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads and validates a simulation config document from path.
func Load(path string) (*Root, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return LoadBytes(data)
}

// LoadBytes parses and validates a simulation config document already
// held in memory.
func LoadBytes(data []byte) (*Root, error) {
	var root Root
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if err := root.Validate(); err != nil {
		return nil, err
	}
	return &root, nil
}
