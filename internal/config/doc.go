// Package config resolves the daemon's effective configuration from command
// line flags, FOOBAR_ environment variables and an optional TOML file, then
// validates the result. It has no side effects beyond reading that one file.
package config
