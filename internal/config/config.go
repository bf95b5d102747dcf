package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Validator is implemented by config structs that check themselves once loaded.
type Validator interface {
	Validate() error
}

type Option func(*viper.Viper)

// WithEnvPrefix only lets environment variables starting with prefix override
// the file, e.g. QUIZASSIGN_HTTP_PORT.
func WithEnvPrefix(prefix string) Option {
	return func(v *viper.Viper) {
		v.SetEnvPrefix(prefix)
	}
}

// Load config from file into the config struct, config must be a pointer to the config struct.
// Values already set on the struct are the defaults. Environment variables
// override the file, nested keys are joined by "_".
func Load(file string, config any, opts ...Option) error {
	v := viper.New()

	if err := setDefaults(v, "", config); err != nil {
		return err
	}

	for _, opt := range opts {
		opt(v)
	}

	v.SetConfigFile(file)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config from file %s: %v", file, err)
	}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("unmarshal config: %v", err)
	}

	if c, ok := config.(Validator); ok {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
	}

	return nil
}

// setDefaults registers every leaf field of config as a dotted key, e.g.
// auth.secret. AutomaticEnv only consults keys viper already knows.
func setDefaults(v *viper.Viper, prefix string, config any) error {
	m := make(map[string]any)
	if err := mapstructure.Decode(config, &m); err != nil {
		return fmt.Errorf("mapstructure: %v", err)
	}

	for k, val := range m {
		key := prefix + strings.ToLower(k)
		if val != nil && reflect.TypeOf(val).Kind() == reflect.Struct {
			if err := setDefaults(v, key+".", val); err != nil {
				return err
			}
			continue
		}
		v.SetDefault(key, val)
	}

	return nil
}
