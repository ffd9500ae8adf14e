// Package commands defines the relaychat CLI and wires dependencies for subcommands.
//
// Commands
//
//   - run         Connect, log in and process relay messages until interrupted
//   - add-friend  Look a user up and start a key exchange with them
//   - accept      Complete a pending incoming friend request
//   - requests    List pending incoming friend requests
//   - friends     List every known peer with its handshake state
//
// # Implementation
//
// The root command loads configuration (file, RELAYCHAT_* environment,
// flags), builds the logger and the dependency graph before any subcommand
// runs, and tears it down afterwards.
package commands
