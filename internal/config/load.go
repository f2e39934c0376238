package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML config file over opts, expanding ${VAR} references
// first. Keys missing from the file keep their value in opts.
func Load(path string, opts *Options) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), opts); err != nil {
		return fmt.Errorf("parse config yaml: %w", err)
	}

	return nil
}
