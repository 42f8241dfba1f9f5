// Package config loads application configuration from environment variables
// into typed property structs and carries build-time version information.
package config
