package types

// PeerIdentity is a remote user's public profile as known to this client.
type PeerIdentity struct {
	ID          UserID `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
}

// LocalUser is the account this client is logged in as.
type LocalUser struct {
	ID          UserID `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
}
