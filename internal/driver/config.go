package driver

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the optional project file ('stmc.yaml') carrying inputs and
// output naming, so invocations don't have to repeat them.
type Config struct {
	// Inputs are the source files to compile, in order.
	Inputs []string `yaml:"inputs"`

	// Output is the output base name; each input emits '<Output>.s' or, if
	// empty, '<input>.s'.
	Output string `yaml:"output"`

	// Target selects the compilation target triple.
	Target struct {
		Arch string `yaml:"arch"`
		ABI  string `yaml:"abi"`
		OS   string `yaml:"os"`
	} `yaml:"target"`
}

// LoadConfig reads a project file. A missing file yields a zero config and
// no error.
func LoadConfig(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, errors.Wrap(err, "reading project file")
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(err, "parsing project file")
	}

	if cfg.Target.Arch != "" && cfg.Target.Arch != "x64" {
		return cfg, errors.Errorf("unsupported target arch %q", cfg.Target.Arch)
	}
	return cfg, nil
}
