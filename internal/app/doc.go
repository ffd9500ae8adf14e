// Package app wires application dependencies for the CLI.
//
// It loads Config from file, environment and flags, builds the logger, the
// pairing store, the connection manager, the dispatcher and the services,
// and exposes them via the Wire struct for commands to use.
package app
