package config

import "github.com/spf13/pflag"

// DefaultDSN is used when no flag, environment variable or file sets dsn.
const DefaultDSN = "postgresql://foobar@localhost/foobar"

// EnvPrefix namespaces environment overrides, e.g. FOOBAR_LOKI_URL.
const EnvPrefix = "FOOBAR"

// Config holds all application configuration.
type Config struct {
	// DSN is the PostgreSQL connection string.
	DSN string `mapstructure:"dsn" validate:"required"`

	// LogDirectory enables the rotating file log sink.
	LogDirectory string `mapstructure:"log_directory"`

	// LokiURL enables log shipping to Loki.
	LokiURL string `mapstructure:"loki_url" validate:"omitempty,http_url"`

	// PrometheusExport is the host:port the metrics listener binds to.
	// IPv6 hosts are bracketed, e.g. [::]:9100. Metrics are disabled when empty.
	PrometheusExport string `mapstructure:"prometheus_export" validate:"omitempty,listen_addr"`

	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// fileConfig mirrors Config for strict TOML decoding. Pointer fields tell
// a key that is absent apart from one set to the empty string.
type fileConfig struct {
	DSN              *string `toml:"dsn"`
	LogDirectory     *string `toml:"log_directory"`
	LokiURL          *string `toml:"loki_url"`
	PrometheusExport *string `toml:"prometheus_export"`
	LogLevel         *string `toml:"log_level"`
}

func (f fileConfig) values() map[string]any {
	out := make(map[string]any)
	set := func(key string, v *string) {
		if v != nil {
			out[key] = *v
		}
	}
	set("dsn", f.DSN)
	set("log_directory", f.LogDirectory)
	set("loki_url", f.LokiURL)
	set("prometheus_export", f.PrometheusExport)
	set("log_level", f.LogLevel)
	return out
}

// Flag names registered by BindFlags.
const (
	FlagConfig           = "config"
	FlagDSN              = "dsn"
	FlagLogDirectory     = "log-directory"
	FlagLokiURL          = "loki-url"
	FlagPrometheusExport = "prometheus-export"
	FlagLogLevel         = "log-level"
)

// flagKeys maps each overriding flag to its configuration key.
var flagKeys = map[string]string{
	FlagDSN:              "dsn",
	FlagLogDirectory:     "log_directory",
	FlagLokiURL:          "loki_url",
	FlagPrometheusExport: "prometheus_export",
	FlagLogLevel:         "log_level",
}

// BindFlags registers the configuration flags on fs. Only flags the user
// actually sets take precedence over the environment and the file.
func BindFlags(fs *pflag.FlagSet) {
	fs.StringP(FlagConfig, "c", "", "path to a TOML configuration file (FOOBAR_* environment variables override its values)")
	fs.StringP(FlagDSN, "d", "", "PostgreSQL connection string (default "+DefaultDSN+")")
	fs.String(FlagLogDirectory, "", "directory for daily rotated log files (stdout when unset)")
	fs.String(FlagLokiURL, "", "base URL of a Loki instance to ship logs to")
	fs.String(FlagPrometheusExport, "", "host:port to serve Prometheus metrics on")
	fs.String(FlagLogLevel, "", "log level: debug, info, warn or error (default info)")
}
