// Package config loads and validates YAML configuration for the
// recorder, snapshotd, and uploader binaries.
//
// Config files may reference environment variables with ${VAR} syntax;
// they are expanded before parsing.
package config
