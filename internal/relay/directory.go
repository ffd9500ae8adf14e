package relay

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"relaychat/internal/domain"
)

// User is one directory entry.
type User struct {
	ID           domain.UserID   `json:"id"`
	Username     domain.Username `json:"username"`
	PasswordHash string          `json:"password_hash"`
	Salt         string          `json:"salt"`
	DisplayName  string          `json:"display_name"`
	Email        string          `json:"email"`
	Phone        string          `json:"phone"`
}

// Directory maps usernames and ids to users.
type Directory struct {
	mu     sync.RWMutex
	byName map[domain.Username]User
	byID   map[domain.UserID]User
}

// NewDirectory returns a directory holding users.
func NewDirectory(users ...User) *Directory {
	d := &Directory{
		byName: make(map[domain.Username]User),
		byID:   make(map[domain.UserID]User),
	}
	for _, u := range users {
		d.Add(u)
	}
	return d
}

// LoadDirectory reads a JSON file of the form {"users": [...]}.
func LoadDirectory(path string) (*Directory, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc struct {
		Users []User `json:"users"`
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse directory %s: %w", path, err)
	}
	for i, u := range doc.Users {
		if u.ID == "" || u.Username == "" {
			return nil, fmt.Errorf("directory %s: entry %d needs id and username", path, i)
		}
	}
	return NewDirectory(doc.Users...), nil
}

// Add inserts or replaces u.
func (d *Directory) Add(u User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byName[u.Username] = u
	d.byID[u.ID] = u
}

// ByName looks a user up by username.
func (d *Directory) ByName(name domain.Username) (User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.byName[name]
	return u, ok
}

// ByID looks a user up by id.
func (d *Directory) ByID(id domain.UserID) (User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.byID[id]
	return u, ok
}
