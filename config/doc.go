// Package config loads the sieve configuration from a YAML file, .env and
// SIEVE_* environment variables.
package config
