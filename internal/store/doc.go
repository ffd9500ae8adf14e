// Package store provides the persistence backends for the pairing protocol.
//
// Every backend implements domain.PairingStore and is safe for concurrent
// use. A write either stores the whole record or nothing, and a shared
// secret, once saved, is never overwritten.
//
// The package includes:
//   - MemoryStore, for tests and throwaway sessions
//   - FileStore, JSON files under the user's home with private keys and
//     secrets sealed under a passphrase
//   - SQLiteStore, a single database file (modernc.org/sqlite)
//   - RedisStore, keys under a configurable prefix (go-redis)
package store
