// Package config loads and validates Environmental Cloud Core configuration.
//
// Configuration comes from a YAML file with hardcoded defaults and
// ENVCLOUD_* environment variable overrides (secrets like the JWT signing
// key and InfluxDB token should come from the environment, not the file).
package config
