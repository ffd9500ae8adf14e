// Package pairing runs the relayed Diffie–Hellman friend handshake.
//
// Each peer relationship is an independent state machine whose position is
// read back from the pairing store on every step:
//
//	initiator: no-relationship -> key-sent -> key-acknowledged -> secret-derived
//	responder: no-relationship -> request-received -> response-sent -> secret-derived
//
// Steps for one peer are serialized by a per-peer lock; different peers
// progress independently.
package pairing
