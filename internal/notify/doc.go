// Package notify carries user-visible events out of the protocol handlers.
//
// Handlers emit semantic Events to a Sink and never wait for them to be
// shown. Async makes any Sink fire-and-forget, LogSink renders events through
// the structured logger, and Recorder keeps them in memory for tests.
package notify
