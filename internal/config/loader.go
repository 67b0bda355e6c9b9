package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "SBB_"

// ErrReadBytesNotSupported is returned when ReadBytes is called on a map provider.
var ErrReadBytesNotSupported = errors.New("config: ReadBytes not supported by map provider")

type loadOptions struct {
	path      string
	explicit  bool
	envPrefix string
	overrides map[string]any
}

// LoadOption configures Load.
type LoadOption func(*loadOptions)

// WithConfigFile reads path instead of the default config file. Unlike the
// default file, an explicit file must exist.
func WithConfigFile(path string) LoadOption {
	return func(o *loadOptions) {
		if path != "" {
			o.path = path
			o.explicit = true
		}
	}
}

// WithEnvPrefix changes the environment variable prefix.
func WithEnvPrefix(prefix string) LoadOption {
	return func(o *loadOptions) {
		o.envPrefix = prefix
	}
}

// WithOverrides applies dotted keys (e.g. "log.level") on top of every
// other source. Command-line flags arrive here.
func WithOverrides(values map[string]any) LoadOption {
	return func(o *loadOptions) {
		if o.overrides == nil {
			o.overrides = make(map[string]any, len(values))
		}
		for k, v := range values {
			o.overrides[k] = v
		}
	}
}

// Load builds a Config from defaults, the YAML file, the environment and
// overrides, then validates it.
func Load(opts ...LoadOption) (Config, error) {
	o := &loadOptions{
		path:      DefaultPath(),
		envPrefix: EnvPrefix,
	}
	for _, opt := range opts {
		opt(o)
	}

	k := koanf.New(".")

	if err := k.Load(file.Provider(o.path), yaml.Parser()); err != nil {
		if o.explicit || !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load config file %s: %w", o.path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(o.envPrefix, ".", envTransformer(o.envPrefix)), nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	if len(o.overrides) > 0 {
		if err := k.Load(mapProvider(o.overrides), nil); err != nil {
			return Config{}, fmt.Errorf("load overrides: %w", err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// envTransformer maps SBB_LOG_LEVEL to log.level. SBB_INIT is split on
// commas into a command list.
func envTransformer(prefix string) func(key, value string) (string, any) {
	return func(key, value string) (string, any) {
		key = strings.ToLower(strings.TrimPrefix(key, prefix))
		key = strings.ReplaceAll(key, "_", ".")
		if key == "init" {
			var cmds []string
			for _, cmd := range strings.Split(value, ",") {
				if cmd = strings.TrimSpace(cmd); cmd != "" {
					cmds = append(cmds, cmd)
				}
			}
			return key, cmds
		}
		return key, value
	}
}

// mapProvider is a koanf provider over an in-memory map.
type mapProvider map[string]any

func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, ErrReadBytesNotSupported
}

// Read unflattens dotted keys so that "log.level" merges into the log section.
func (m mapProvider) Read() (map[string]any, error) {
	out := make(map[string]any)
	for key, value := range m {
		parts := strings.Split(key, ".")
		node := out
		for _, part := range parts[:len(parts)-1] {
			child, ok := node[part].(map[string]any)
			if !ok {
				child = make(map[string]any)
				node[part] = child
			}
			node = child
		}
		node[parts[len(parts)-1]] = value
	}
	return out, nil
}
