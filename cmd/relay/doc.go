// Package main runs the development relay for relaychat clients. It speaks
// the newline-delimited JSON protocol over TCP, or TLS when a certificate is
// given, and routes account and friend-pairing messages between users.
//
// Flags
//
//	--listen     address to listen on (default :7878)
//	--users      JSON user directory {"users": [...]} (default users.json)
//	--tls-cert   PEM certificate; plain TCP when empty
//	--tls-key    PEM private key for --tls-cert
//	--log-level  debug, info, warn or error
//
// Behaviour
//
//   - Users are fixed at start-up; there is no registration.
//   - Messages for offline users are queued in memory and delivered on login.
//   - All state is lost on exit.
//
// The relay sees public keys and profiles but never private keys or derived
// secrets.
package main
