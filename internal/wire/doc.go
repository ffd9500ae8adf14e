// Package wire defines the newline-delimited message format spoken with the
// relay.
//
// Every line is a JSON object with exactly two keys:
//
//	{"kind":"FriendRequest","fields":{"publicKey":"...","userId":"u42"}}
//
// kind must be a tag from the catalog in kind.go and fields must hold exactly
// the field names that kind declares, each with a string value. Values are
// opaque to the codec; handlers interpret them.
//
// Decode reports every malformed or unrecognised line as a *SchemaError and
// never returns a partially built Message.
package wire
