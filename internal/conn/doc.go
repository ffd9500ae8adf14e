// Package conn owns the long-lived stream to the relay.
//
// A Manager dials the relay, runs one receive loop that decodes each line
// and hands it to an InboundHandler, serializes outbound writes, and tears
// the stream down on Disconnect.
package conn
