// Package config loads weaving configuration from TOML files.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/weaver/aspect"
	"github.com/wippyai/weaver/errors"
	"github.com/wippyai/weaver/ir"
	"github.com/wippyai/weaver/weave"
)

// Config is a weave.toml file.
type Config struct {
	// LogLevel is a zap level name. Empty means info.
	LogLevel string `toml:"log-level"`
	// Output is the path the woven artifact is written to.
	Output  string   `toml:"output"`
	Aspects []Aspect `toml:"aspect"`
	Methods []Method `toml:"method"`
	Strict  bool     `toml:"strict"`

	// Path is the file the config was loaded from (set at load time).
	Path string `toml:"-"`
}

// Aspect declares an aspect by name and the hooks bound for it.
type Aspect struct {
	Name  string   `toml:"name"`
	Hooks []string `toml:"hooks"`
}

// Method binds aspects to a method. The first aspect is outermost.
type Method struct {
	Name    string   `toml:"name"`
	Aspects []string `toml:"aspects"`
}

// Load parses the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, fmt.Sprintf("cannot read %s", path))
	}
	c, err := Parse(data)
	if err != nil {
		return nil, err
	}
	c.Path = path
	return c, nil
}

// Parse decodes TOML config data. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	var c Config
	md, err := toml.Decode(string(data), &c)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "parse error")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("unknown key %q", undecoded[0].String()))
	}
	if _, err := c.Level(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Level returns the configured log level.
func (c *Config) Level() (zapcore.Level, error) {
	if c.LogLevel == "" {
		return zapcore.InfoLevel, nil
	}
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "log-level")
	}
	return lvl, nil
}

// Weave returns the weaver configuration.
func (c *Config) Weave() weave.Config {
	return weave.Config{Strict: c.Strict}
}

// Bindings resolves the method sections to weave bindings. An aspect
// declared without hooks gets every hook reg reports for it. reg may be nil
// when every aspect lists its hooks.
func (c *Config) Bindings(reg *aspect.Registry) (map[string][]weave.Binding, error) {
	hooks := make(map[string]ir.HookSet, len(c.Aspects))
	for i, a := range c.Aspects {
		if a.Name == "" {
			return nil, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
				Path(fmt.Sprintf("aspect %d", i)).Detail("aspect has no name").Build()
		}
		if _, dup := hooks[a.Name]; dup {
			return nil, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
				Path(fmt.Sprintf("aspect %d", i)).Detail("aspect %q declared twice", a.Name).Build()
		}
		set, err := resolveHooks(a, reg)
		if err != nil {
			return nil, err
		}
		hooks[a.Name] = set
	}

	out := make(map[string][]weave.Binding, len(c.Methods))
	for i, m := range c.Methods {
		if m.Name == "" {
			return nil, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
				Path(fmt.Sprintf("method %d", i)).Detail("method has no name").Build()
		}
		if _, dup := out[m.Name]; dup {
			return nil, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
				Method(m.Name).Detail("method bound twice").Build()
		}
		bs := make([]weave.Binding, 0, len(m.Aspects))
		for _, name := range m.Aspects {
			set, ok := hooks[name]
			if !ok {
				return nil, errors.New(errors.PhaseConfig, errors.KindNotFound).
					Method(m.Name).Detail("aspect %q is not declared", name).Build()
			}
			bs = append(bs, weave.Binding{Aspect: name, Hooks: set})
		}
		out[m.Name] = bs
	}
	return out, nil
}

func resolveHooks(a Aspect, reg *aspect.Registry) (ir.HookSet, error) {
	var known ir.HookSet
	registered := false
	if reg != nil {
		known, registered = reg.Hooks(a.Name)
	}

	if len(a.Hooks) == 0 {
		if !registered {
			return 0, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
				Path("aspect " + a.Name).Detail("no hooks listed and aspect is not registered").Build()
		}
		return known, nil
	}

	var set ir.HookSet
	for _, s := range a.Hooks {
		h, ok := ir.ParseHook(s)
		if !ok {
			return 0, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
				Path("aspect "+a.Name).Detail("unknown hook %q", s).Build()
		}
		if registered && !known.Has(h) {
			return 0, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
				Path("aspect "+a.Name).Detail("aspect does not implement hook %q", s).Build()
		}
		set = set.With(h)
	}
	return set, nil
}
