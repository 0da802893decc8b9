// Package app wires application dependencies for the CLI.
//
// It loads the TOML Config, then builds the log backend, the cipher engine,
// the shared engine pool and state repository and one relay Session per
// endpoint, exposing them via the Wire struct for commands to use.
package app
