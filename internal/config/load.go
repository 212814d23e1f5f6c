package config

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"os"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	// ErrInvalidUTF8 is reported when the config file is not UTF-8 text.
	ErrInvalidUTF8 = errors.New("file is not valid UTF-8")

	// ErrUnknownField is reported for file keys that Config does not define.
	ErrUnknownField = errors.New("unknown field")
)

// Load builds the effective configuration. Precedence per field is: flag
// explicitly set on flags, then FOOBAR_<FIELD> environment variable, then the
// file at path (skipped when path is empty), then the built-in default.
// flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// 1. Defaults
	v.SetDefault("dsn", DefaultDSN)
	v.SetDefault("log_directory", "")
	v.SetDefault("loki_url", "")
	v.SetDefault("prometheus_export", "")
	v.SetDefault("log_level", "info")

	// 2. File
	if path != "" {
		values, err := readFile(path)
		if err != nil {
			return nil, err
		}
		if err := v.MergeConfigMap(values); err != nil {
			return nil, &ConfigError{Path: path, Op: OpParse, Err: err}
		}
	}

	// 3. Environment
	v.SetEnvPrefix(EnvPrefix)
	for _, key := range []string{"dsn", "log_directory", "loki_url", "prometheus_export", "log_level"} {
		if err := v.BindEnv(key); err != nil {
			return nil, &ConfigError{Path: path, Op: OpParse, Err: fmt.Errorf("failed to bind env for %s: %w", key, err)}
		}
	}

	// 4. Flags
	if flags != nil {
		for name, key := range flagKeys {
			flag := flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, &ConfigError{Path: path, Op: OpParse, Err: fmt.Errorf("failed to bind flag %s: %w", name, err)}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ConfigError{Path: path, Op: OpParse, Err: err}
	}

	if err := validate(&cfg); err != nil {
		return nil, &ConfigError{Path: path, Op: OpValidate, Err: err}
	}

	return &cfg, nil
}

// readFile strictly decodes the TOML file at path and returns only the keys
// it actually sets.
func readFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Op: OpRead, Err: err}
	}
	if !utf8.Valid(data) {
		return nil, &ConfigError{Path: path, Op: OpParse, Err: ErrInvalidUTF8}
	}

	var fc fileConfig
	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&fc); err != nil {
		var strictErr *toml.StrictMissingError
		if errors.As(err, &strictErr) {
			keys := make([]string, 0, len(strictErr.Errors))
			for _, e := range strictErr.Errors {
				keys = append(keys, strings.Join(e.Key(), "."))
			}
			return nil, &ConfigError{Path: path, Op: OpParse, Err: fmt.Errorf("%w: %s", ErrUnknownField, strings.Join(keys, ", "))}
		}
		return nil, &ConfigError{Path: path, Op: OpParse, Err: err}
	}

	return fc.values(), nil
}

func validate(cfg *Config) error {
	vd := validator.New(validator.WithRequiredStructEnabled())
	vd.RegisterTagNameFunc(func(field reflect.StructField) string {
		return field.Tag.Get("mapstructure")
	})
	if err := vd.RegisterValidation("listen_addr", func(fl validator.FieldLevel) bool {
		return isListenAddr(vd, fl.Field().String())
	}); err != nil {
		return err
	}

	if err := vd.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s: failed %q check (value %q)", fe.Field(), fe.Tag(), fe.Value()))
		}
		return errors.New(strings.Join(msgs, "; "))
	}
	return nil
}

// isListenAddr reports whether addr is a tcp listen address: a numeric port
// plus an optional host given as IP literal or hostname. No name lookup.
func isListenAddr(vd *validator.Validate, addr string) bool {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if _, err := strconv.ParseUint(port, 10, 16); err != nil {
		return false
	}
	if host == "" || net.ParseIP(host) != nil {
		return true
	}
	return vd.Var(host, "hostname_rfc1123") == nil
}
