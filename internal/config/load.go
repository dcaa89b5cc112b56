package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultsFile is where the CLI looks for option defaults when --config
	// is not given.
	DefaultsFile = "/etc/xtuple/xtserver.yaml"

	// EnvPrefix prefixes environment overrides, e.g. XTSERVER_PG_HOST.
	EnvPrefix = "XTSERVER"

	redacted = "<redacted>"
)

// LoadFile reads an options tree from a YAML file.
func LoadFile(fsys afero.Fs, path string) (*Options, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read options file: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}
	if raw == nil {
		raw = make(map[string]any)
	}
	return FromMap(raw), nil
}

// SaveFile writes the options tree as YAML. Secret values are replaced
// with a placeholder so that persisted arguments never leak credentials.
func SaveFile(fsys afero.Fs, path string, opts *Options) error {
	out := redact(opts.Map())

	data, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("failed to marshal options: %w", err)
	}
	if err := fsys.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	if err := afero.WriteFile(fsys, path, data, 0o640); err != nil {
		return fmt.Errorf("failed to write options file: %w", err)
	}
	return nil
}

// LoadDefaults reads CLI defaults through viper. An explicit path must
// exist; the implicit DefaultsFile may be missing. Environment variables
// with EnvPrefix override file values for keys the file declares.
//
// Viper folds keys to lower case, so defaults can only target lower-case
// option names.
func LoadDefaults(path string) (*Options, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigType("yaml")

	explicit := path != ""
	if !explicit {
		path = DefaultsFile
	}
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !(errors.As(err, &notFound) || isNotExist(err)) {
			return nil, fmt.Errorf("failed to read defaults %s: %w", path, err)
		}
	}

	opts := NewOptions()
	for _, key := range v.AllKeys() {
		if err := opts.Set(key, v.Get(key)); err != nil {
			return nil, fmt.Errorf("invalid default %s: %w", key, err)
		}
	}
	return opts, nil
}

// Overlay copies every leaf of src into dst, replacing existing values.
func Overlay(dst, src *Options) error {
	for _, key := range src.Keys() {
		v, _ := src.Get(key)
		if err := dst.Set(key, v); err != nil {
			return err
		}
	}
	return nil
}

// IsSecret reports whether an option name holds a credential.
func IsSecret(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, "password") || strings.HasSuffix(lower, "secretkey") || lower == "adminpw"
}

func redact(m map[string]any) map[string]any {
	for k, v := range m {
		switch t := v.(type) {
		case map[string]any:
			m[k] = redact(t)
		default:
			if IsSecret(k) && v != nil && v != "" {
				m[k] = redacted
			}
		}
	}
	return m
}

func isNotExist(err error) bool {
	return errors.Is(err, afero.ErrFileNotFound)
}
