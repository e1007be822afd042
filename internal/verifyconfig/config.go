// Package verifyconfig loads and validates spec/verification.yaml, the
// repo-level description of toolchains, skills, and profiles the
// verification engine runs against a changeset (spec.md §3, §4.4).
package verifyconfig

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var envNameRE = regexp.MustCompile(`^[A-Z0-9_]+$`)

// Defaults describes the ambient values a step inherits unless overridden
// at the skill or step layer (spec.md §3).
type Defaults struct {
	Workdir   string            `yaml:"workdir,omitempty"`
	TimeoutMS int               `yaml:"timeout_ms,omitempty"`
	Network   string            `yaml:"network,omitempty"`
	ReadOnly  string            `yaml:"read_only,omitempty"`
	EnvAllow  []string          `yaml:"env_allowlist,omitempty"`
	Env       map[string]string `yaml:"env,omitempty"`
}

// Step is one command within a skill. The override fields are empty/zero
// when unset, in which case the skill's, then the defaults', value applies
// (spec.md §4.4 step 5b: "step-level overriding skill-level overriding
// defaults").
type Step struct {
	Name      string            `yaml:"name"`
	CmdNode   yaml.Node         `yaml:"cmd"`
	Workdir   string            `yaml:"workdir,omitempty"`
	Env       map[string]string `yaml:"env,omitempty"`
	EnvAllow  []string          `yaml:"env_allowlist,omitempty"`
	Network   string            `yaml:"network,omitempty"`
	ReadOnly  string            `yaml:"read_only,omitempty"`
	TimeoutMS int               `yaml:"timeout_ms,omitempty"`
}

// Cmd returns the step's command in runner.ParseCmd's accepted shape
// (string or []string); already validated for emptiness at load time.
func (s Step) Cmd() (any, error) {
	return decodeCmd(s.CmdNode)
}

// Skill is a named, ordered list of steps (e.g. "lint", "unit_tests"),
// keyed by id in Config.Skills. It also carries the skill-level overrides
// spec.md §3 declares (workdir?, timeout_ms?, network?, read_only?,
// env_allowlist?, env?), which sit between Defaults and each Step's own
// overrides.
type Skill struct {
	Name        string            `yaml:"-"`
	Determinism string            `yaml:"determinism"`
	Tier        int               `yaml:"tier"`
	Workdir     string            `yaml:"workdir,omitempty"`
	TimeoutMS   int               `yaml:"timeout_ms,omitempty"`
	Network     string            `yaml:"network,omitempty"`
	ReadOnly    string            `yaml:"read_only,omitempty"`
	EnvAllow    []string          `yaml:"env_allowlist,omitempty"`
	Env         map[string]string `yaml:"env,omitempty"`
	Steps       []Step            `yaml:"steps"`
}

// Profile names a subset of skills to run together (e.g. "fast", "full"),
// keyed by name in Config.Profiles.
type Profile struct {
	Name    string   `yaml:"-"`
	Include []string `yaml:"include"`
}

// CommandCheck is a single required-presence check within a toolchain.
type CommandCheck struct {
	CmdNode yaml.Node `yaml:"cmd"`
}

// Cmd returns the check's command, already validated at load time.
func (c CommandCheck) Cmd() (any, error) {
	return decodeCmd(c.CmdNode)
}

// Toolchain lists the required-presence checks run once before any skill,
// keyed by name in Config.Toolchains; their before/after repo snapshot is
// recorded in verify/_toolchain.json.
type Toolchain struct {
	Required []CommandCheck `yaml:"required"`
}

// Config is the parsed form of spec/verification.yaml.
type Config struct {
	Version    int                  `yaml:"version"`
	Toolchains map[string]Toolchain `yaml:"toolchains,omitempty"`
	Defaults   Defaults             `yaml:"defaults,omitempty"`
	Skills     map[string]Skill     `yaml:"skills"`
	Profiles   map[string]Profile   `yaml:"profiles,omitempty"`
}

// Load reads, parses, defaults, and validates path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("verifyconfig: read %s: %w", path, err)
	}
	cfg, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("verifyconfig: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes b (strict, no unknown fields, single document), applies
// defaults, and validates the result.
func Parse(b []byte) (*Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}
	var trailing any
	if err := dec.Decode(&trailing); err != io.EOF {
		if err == nil {
			return nil, fmt.Errorf("multiple yaml documents are not allowed")
		}
		return nil, err
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if cfg.Defaults.Workdir == "" {
		cfg.Defaults.Workdir = "."
	}
	if cfg.Defaults.TimeoutMS == 0 {
		cfg.Defaults.TimeoutMS = 600000
	}
	if cfg.Defaults.Network == "" {
		cfg.Defaults.Network = "deny"
	}
	if cfg.Defaults.ReadOnly == "" {
		cfg.Defaults.ReadOnly = "tracked"
	}
	for name, sk := range cfg.Skills {
		sk.Name = name
		for ti := range sk.Steps {
			resolveStep(&sk.Steps[ti], sk, cfg.Defaults)
		}
		cfg.Skills[name] = sk
	}
	for name, p := range cfg.Profiles {
		p.Name = name
		cfg.Profiles[name] = p
	}
}

// resolveStep folds skill-level and default-level settings into a step's
// unset fields, per spec.md §4.4 step 5b's "step-level overriding
// skill-level overriding defaults". Env maps are merged layer over layer
// (later layers win per key); every other field is a single override.
func resolveStep(s *Step, sk Skill, d Defaults) {
	if s.Workdir == "" {
		s.Workdir = sk.Workdir
	}
	if s.Workdir == "" {
		s.Workdir = d.Workdir
	}
	if s.TimeoutMS == 0 {
		s.TimeoutMS = sk.TimeoutMS
	}
	if s.TimeoutMS == 0 {
		s.TimeoutMS = d.TimeoutMS
	}
	if s.Network == "" {
		s.Network = sk.Network
	}
	if s.Network == "" {
		s.Network = d.Network
	}
	if s.ReadOnly == "" {
		s.ReadOnly = sk.ReadOnly
	}
	if s.ReadOnly == "" {
		s.ReadOnly = d.ReadOnly
	}
	if len(s.EnvAllow) == 0 {
		s.EnvAllow = sk.EnvAllow
	}
	if len(s.EnvAllow) == 0 {
		s.EnvAllow = d.EnvAllow
	}
	s.Env = mergeEnv(d.Env, sk.Env, s.Env)
}

func mergeEnv(layers ...map[string]string) map[string]string {
	out := map[string]string{}
	for _, layer := range layers {
		for k, v := range layer {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func validate(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported version: %d (want 1)", cfg.Version)
	}
	if len(cfg.Skills) == 0 {
		return fmt.Errorf("at least one skill is required")
	}
	for _, name := range cfg.Defaults.EnvAllow {
		if !envNameRE.MatchString(name) {
			return fmt.Errorf("defaults.env_allowlist: invalid env name %q", name)
		}
	}

	for name, sk := range cfg.Skills {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("skill has empty name")
		}

		switch sk.Determinism {
		case "D0", "D1", "D2":
		default:
			return fmt.Errorf("skill %q: invalid determinism %q (want D0, D1, or D2)", sk.Name, sk.Determinism)
		}
		switch sk.Tier {
		case 1, 2:
		default:
			return fmt.Errorf("skill %q: invalid tier %d (want 1 or 2)", sk.Name, sk.Tier)
		}

		if len(sk.Steps) == 0 {
			return fmt.Errorf("skill %q has no steps", sk.Name)
		}
		stepNames := map[string]bool{}
		for _, st := range sk.Steps {
			if strings.TrimSpace(st.Name) == "" {
				return fmt.Errorf("skill %q: step has empty name", sk.Name)
			}
			if stepNames[st.Name] {
				return fmt.Errorf("skill %q: duplicate step name %q", sk.Name, st.Name)
			}
			stepNames[st.Name] = true

			if _, err := decodeCmd(st.CmdNode); err != nil {
				return fmt.Errorf("skill %q step %q: %w", sk.Name, st.Name, err)
			}
			switch st.Network {
			case "deny", "allow":
			default:
				return fmt.Errorf("skill %q step %q: invalid network %q", sk.Name, st.Name, st.Network)
			}
			switch st.ReadOnly {
			case "off", "tracked", "strict":
			default:
				return fmt.Errorf("skill %q step %q: invalid read_only %q", sk.Name, st.Name, st.ReadOnly)
			}
			if st.TimeoutMS < 0 {
				return fmt.Errorf("skill %q step %q: timeout_ms must be >= 0", sk.Name, st.Name)
			}
			for _, name := range st.EnvAllow {
				if !envNameRE.MatchString(name) {
					return fmt.Errorf("skill %q step %q: invalid env name %q", sk.Name, st.Name, name)
				}
			}
		}
	}

	for name, tc := range cfg.Toolchains {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("toolchain has empty name")
		}
		for _, check := range tc.Required {
			if _, err := decodeCmd(check.CmdNode); err != nil {
				return fmt.Errorf("toolchain %q: %w", name, err)
			}
		}
	}

	for name, p := range cfg.Profiles {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("profile has empty name")
		}
		if len(p.Include) == 0 {
			return fmt.Errorf("profile %q has no includes", name)
		}
		for _, inc := range p.Include {
			if _, ok := cfg.Skills[inc]; !ok {
				return fmt.Errorf("profile %q: unknown skill %q", name, inc)
			}
		}
	}
	return nil
}

// ResolveProfile returns the de-duplicated list of skill names a profile
// expands to, in the order they were declared in the profile's include list
// (spec.md §4.4: "for each skill in profile order").
func (c *Config) ResolveProfile(name string) ([]string, error) {
	p, ok := c.Profiles[name]
	if !ok {
		return nil, fmt.Errorf("verifyconfig: unknown profile %q", name)
	}
	seen := map[string]bool{}
	out := make([]string, 0, len(p.Include))
	for _, inc := range p.Include {
		if !seen[inc] {
			seen[inc] = true
			out = append(out, inc)
		}
	}
	return out, nil
}

// Skill looks up a skill by name.
func (c *Config) Skill(name string) (Skill, bool) {
	sk, ok := c.Skills[name]
	return sk, ok
}

// decodeCmd accepts either a YAML scalar string or a sequence of strings,
// mirroring the runner's own string-or-argv cmd contract.
func decodeCmd(n yaml.Node) (any, error) {
	switch n.Kind {
	case 0:
		return nil, fmt.Errorf("cmd is required")
	case yaml.ScalarNode:
		var s string
		if err := n.Decode(&s); err != nil {
			return nil, fmt.Errorf("cmd: %w", err)
		}
		if strings.TrimSpace(s) == "" {
			return nil, fmt.Errorf("cmd must not be empty")
		}
		return s, nil
	case yaml.SequenceNode:
		var parts []string
		if err := n.Decode(&parts); err != nil {
			return nil, fmt.Errorf("cmd: %w", err)
		}
		if len(parts) == 0 {
			return nil, fmt.Errorf("cmd array must not be empty")
		}
		for _, p := range parts {
			if strings.TrimSpace(p) == "" {
				return nil, fmt.Errorf("cmd array must not contain empty strings")
			}
		}
		return parts, nil
	default:
		return nil, fmt.Errorf("cmd must be a string or a string array")
	}
}
