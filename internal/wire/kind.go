package wire

import "sort"

// Kind is the schema-identifying tag of a message.
//
// Tags are never reused for a different field set; a schema change needs a
// new tag.
type Kind string

// String returns the tag.
func (k Kind) String() string { return string(k) }

// Field names shared by several kinds.
const (
	FieldUserID       = "userId"
	FieldUserName     = "userName"
	FieldEmail        = "email"
	FieldPhone        = "phone"
	FieldPublicKey    = "publicKey"
	FieldSalt         = "salt"
	FieldUsername     = "username"
	FieldPasswordHash = "passwordHash"
)

const (
	KindAuth                  Kind = "Auth"
	KindAuthSuccess           Kind = "AuthSuccess"
	KindAuthFail              Kind = "AuthFail"
	KindGetSalt               Kind = "GetSalt"
	KindSetSalt               Kind = "SetSalt"
	KindGetUser               Kind = "GetUser"
	KindUserResolved          Kind = "UserResolved"
	KindUserNotFound          Kind = "UserNotFound"
	KindFriendRequest         Kind = "FriendRequest"
	KindFriendRequestIncoming Kind = "FriendRequestIncoming"
	KindRequestAcknowledged   Kind = "RequestAcknowledged"
	KindHandshakeComplete     Kind = "HandshakeComplete"
	KindKeyShare              Kind = "KeyShare"
)

// catalog maps each tag to its required field names.
var catalog = map[Kind][]string{
	KindAuth:                  {FieldUsername, FieldPasswordHash},
	KindAuthSuccess:           {FieldUserID, FieldUserName, FieldEmail, FieldPhone},
	KindAuthFail:              {},
	KindGetSalt:               {FieldUsername},
	KindSetSalt:               {FieldSalt},
	KindGetUser:               {FieldUsername},
	KindUserResolved:          {FieldUserID, FieldUserName, FieldEmail, FieldPhone},
	KindUserNotFound:          {},
	KindFriendRequest:         {FieldUserID, FieldPublicKey},
	KindFriendRequestIncoming: {FieldUserID, FieldUserName, FieldEmail, FieldPhone, FieldPublicKey},
	KindRequestAcknowledged:   {FieldUserID},
	KindHandshakeComplete:     {FieldUserID, FieldPublicKey},
	KindKeyShare:              {FieldUserID, FieldPublicKey},
}

// Known reports whether k is in the catalog.
func (k Kind) Known() bool {
	_, ok := catalog[k]
	return ok
}

// Fields returns the sorted field names k requires, or nil for unknown kinds.
func (k Kind) Fields() []string {
	names, ok := catalog[k]
	if !ok {
		return nil
	}
	out := append([]string{}, names...)
	sort.Strings(out)
	return out
}

// Template returns an empty-valued message of kind k. It panics for kinds
// outside the catalog.
func (k Kind) Template() Message {
	names, ok := catalog[k]
	if !ok {
		panic("wire: template for unknown kind " + string(k))
	}
	fields := make(map[string]string, len(names))
	for _, n := range names {
		fields[n] = ""
	}
	return Message{kind: k, fields: fields}
}

// Kinds lists every tag in the catalog, sorted.
func Kinds() []Kind {
	out := make([]Kind, 0, len(catalog))
	for k := range catalog {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
