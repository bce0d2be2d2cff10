// Package cli handles parsing of command-line arguments and translates them
// into an engine configuration.
package cli
