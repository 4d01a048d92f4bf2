// Package config loads trackviz settings from JSON or YAML files.
//
// Every field is a pointer so that a file only needs to mention what it
// changes; command-line flags are layered on top with Override or the
// Set* helpers.
package config
