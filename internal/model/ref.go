package model

import (
	"fmt"
	"strings"
)

// localRefPrefix marks a game id generated by a client rather than the store
const localRefPrefix = "local:"

// GameRef identifies a game either by its persisted id or by the id a client
// generated for it before it was synced.
type GameRef struct {
	id    string
	local bool
}

// Persisted returns a reference to a stored game
func Persisted(id GameID) GameRef {
	return GameRef{id: string(id)}
}

// Local returns a reference to a client-side game
func Local(clientID string) GameRef {
	return GameRef{id: clientID, local: true}
}

// ParseGameRef parses the text form produced by GameRef.String
func ParseGameRef(s string) (GameRef, error) {
	s = strings.TrimSpace(s)
	if clientID, ok := strings.CutPrefix(s, localRefPrefix); ok {
		if clientID == "" {
			return GameRef{}, fmt.Errorf("%w: empty local id", ErrInvalidGameRef)
		}
		return Local(clientID), nil
	}
	if s == "" {
		return GameRef{}, fmt.Errorf("%w: empty id", ErrInvalidGameRef)
	}
	return Persisted(GameID(s)), nil
}

// IsLocal reports whether the ref names a client-side game
func (r GameRef) IsLocal() bool {
	return r.local
}

// GameID returns the persisted id; empty for local refs
func (r GameRef) GameID() GameID {
	if r.local {
		return ""
	}
	return GameID(r.id)
}

// LocalID returns the client id; empty for persisted refs
func (r GameRef) LocalID() string {
	if !r.local {
		return ""
	}
	return r.id
}

func (r GameRef) String() string {
	if r.local {
		return localRefPrefix + r.id
	}
	return r.id
}

// Caller is the capability a boundary layer passes into privileged operations
type Caller struct {
	ID      string
	IsAdmin bool
}
