package config

import (
	"fmt"
	"maps"
	"regexp"

	sigsyaml "sigs.k8s.io/yaml"
)

// ProcessOverrides holds per-process tweaks declared in the config file
// (.devstart.yaml) under the "processes" key:
//
//	processes:
//	  bundler:
//	    args: ["--progress"]
//	    env:
//	      WEBPACK_CACHE: "false"
//	  server:
//	    env:
//	      PORT: "3001"
type ProcessOverrides struct {
	Bundler ProcessOverride `json:"bundler,omitempty"`
	Server  ProcessOverride `json:"server,omitempty"`
}

// ProcessOverride appends arguments to a managed process and overlays
// environment variables on top of the built-in ones.
type ProcessOverride struct {
	// Args are appended after the built-in arguments.
	Args []string `json:"args,omitempty"`

	// Env entries replace same-named variables in the child environment.
	Env map[string]string `json:"env,omitempty"`
}

// ParseProcessOverrides parses the processes section from raw config file
// bytes. Other sections are ignored.
func ParseProcessOverrides(data []byte) (*ProcessOverrides, error) {
	var raw struct {
		Processes ProcessOverrides `json:"processes,omitempty"`
	}

	if err := sigsyaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing process overrides: %w", err)
	}

	cfg := raw.Processes

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// envNamePattern matches portable environment variable names.
var envNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks the overrides for correctness.
func (o *ProcessOverrides) Validate() error {
	for name, p := range map[string]ProcessOverride{"bundler": o.Bundler, "server": o.Server} {
		for key := range p.Env {
			if !envNamePattern.MatchString(key) {
				return fmt.Errorf("processes.%s.env: invalid variable name %q (must match %s)", name, key, envNamePattern.String())
			}
		}

		for i, arg := range p.Args {
			if arg == "" {
				return fmt.Errorf("processes.%s.args[%d]: argument must not be empty", name, i)
			}
		}
	}

	return nil
}

// IsEmpty returns true if no process has overrides.
func (o *ProcessOverrides) IsEmpty() bool {
	return len(o.Bundler.Args) == 0 && len(o.Bundler.Env) == 0 &&
		len(o.Server.Args) == 0 && len(o.Server.Env) == 0
}

// clone returns a deep copy so a Session never shares maps with its input.
func (o ProcessOverride) clone() ProcessOverride {
	return ProcessOverride{
		Args: append([]string(nil), o.Args...),
		Env:  maps.Clone(o.Env),
	}
}
