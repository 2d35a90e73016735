// Package app wires application dependencies for the CLI.
//
// It loads Config (flags over an optional TOML file), builds the concrete
// stores and high-level services, and exposes them via the Wire and App
// structs for commands to use.
package app
