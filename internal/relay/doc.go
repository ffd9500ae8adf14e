// Package relay is an in-memory development relay speaking the client's
// newline-delimited JSON protocol over TCP or TLS.
//
// It knows a fixed directory of users, binds each connection to a user on
// Auth, forwards handshake messages between users and queues them for
// users who are offline. All state is held in memory and lost on exit.
//
// Forwarded handshake messages always carry the id of the other party in
// userId, from the recipient's point of view:
//
//	FriendRequest{userId=B}        from A  ->  FriendRequestIncoming{userId=A} to B
//	RequestAcknowledged{userId=A}  from B  ->  RequestAcknowledged{userId=B}   to A
//	                                          HandshakeComplete{userId=A, A's key} to B
//	KeyShare{userId=A}             from B  ->  HandshakeComplete{userId=B, B's key} to A
//
// The relay never sees private keys; it only stores public keys in transit.
package relay
