package types

// UserID identifies a relay-registered user. Pairing records are always keyed
// by the other party's UserID from the local point of view.
type UserID string

// String returns the string form of the user id.
func (id UserID) String() string { return string(id) }

// Username is the login name a user is looked up by.
type Username string

// String returns the string form of the username.
func (u Username) String() string { return string(u) }

// Fingerprint is a short identifier for keys and secrets presented to users.
type Fingerprint string

// String returns the string form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }

// SuiteName names a key-exchange suite, e.g. "x25519".
type SuiteName string

// String returns the string form of the suite name.
func (s SuiteName) String() string { return string(s) }
