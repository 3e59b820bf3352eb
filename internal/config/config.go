// Package config loads the optional designtree.hcl settings file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"

	"github.com/hashicorp/hcl/v2/hclsimple"
)

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = "designtree.hcl"

// Config holds every setting. Command-line flags override these values.
type Config struct {
	Output  string  `hcl:"output,optional"`
	Workers int     `hcl:"workers,optional"`
	Source  *Source `hcl:"source,block"`
	Export  *Export `hcl:"export,block"`
}

// Source configures record sources.
type Source struct {
	Selector string `hcl:"selector,optional"`
	Table    string `hcl:"table,optional"`
}

// Export configures the export driver.
type Export struct {
	SkipUnknown     bool  `hcl:"skip_unknown,optional"`
	ValidateScripts *bool `hcl:"validate_scripts,optional"`
}

// Default returns the settings used when no file is present.
func Default() Config {
	c := Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Output == "" {
		c.Output = "odp"
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.Source == nil {
		c.Source = &Source{}
	}
	if c.Export == nil {
		c.Export = &Export{}
	}
	if c.Export.ValidateScripts == nil {
		v := true
		c.Export.ValidateScripts = &v
	}
}

// Load reads path. An empty path tries DefaultFile and falls back to
// Default when it does not exist; an explicit path must exist.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	src, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(path, src)
}

// Parse decodes HCL source. filename is used in diagnostics and must end
// in ".hcl".
func Parse(filename string, src []byte) (Config, error) {
	var c Config
	if err := hclsimple.Decode(filename, src, nil, &c); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", filename, err)
	}
	c.applyDefaults()
	return c, nil
}

// ValidateScripts reports whether script sources are syntax-checked.
func (c Config) ValidateScripts() bool {
	return c.Export == nil || c.Export.ValidateScripts == nil || *c.Export.ValidateScripts
}
