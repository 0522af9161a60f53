// Package user holds the tagged variant that replaces the block
// accumulator's stringly-typed author sentinels.
package user

import (
	"encoding/json"
	"fmt"
)

// Kind distinguishes the three ways a block's author can be recorded.
type Kind int

const (
	// Named identifies a block authored by a known wiki account.
	Named Kind = iota
	// Unknown marks a block that pre-existed revision tracking.
	Unknown
	// Hidden marks a block whose author the wiki suppressed (RevisionDeleted).
	Hidden
)

// User is the author of a block's current form.
type User struct {
	kind Kind
	name string
}

// NewNamed returns a User for a known account name.
func NewNamed(name string) User {
	return User{kind: Named, name: name}
}

// NewUnknown returns the sentinel User for pre-existing, untracked content.
func NewUnknown() User {
	return User{kind: Unknown}
}

// NewHidden returns the sentinel User for a wiki-suppressed author.
func NewHidden() User {
	return User{kind: Hidden}
}

// Kind reports which variant this User is.
func (u User) Kind() Kind {
	return u.kind
}

// Name returns the account name. Only meaningful when Kind() == Named.
func (u User) Name() string {
	return u.name
}

// Equal reports whether two Users denote the same author.
func (u User) Equal(other User) bool {
	if u.kind != other.kind {
		return false
	}
	if u.kind == Named {
		return u.name == other.name
	}
	return true
}

type jsonUser struct {
	Kind string `json:"kind"`
	Name string `json:"name,omitempty"`
}

// MarshalJSON renders the sentinel kinds as "unknown"/"userhidden" and a
// named user as {"kind":"named","name":...}, the intermediate document's
// author encoding.
func (u User) MarshalJSON() ([]byte, error) {
	switch u.kind {
	case Named:
		return json.Marshal(jsonUser{Kind: "named", Name: u.name})
	case Hidden:
		return json.Marshal(jsonUser{Kind: "userhidden"})
	default:
		return json.Marshal(jsonUser{Kind: "unknown"})
	}
}

// UnmarshalJSON accepts the encoding produced by MarshalJSON.
func (u *User) UnmarshalJSON(data []byte) error {
	var parsed jsonUser
	if err := json.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("user: %w", err)
	}
	switch parsed.Kind {
	case "named":
		*u = NewNamed(parsed.Name)
	case "userhidden":
		*u = NewHidden()
	case "unknown", "":
		*u = NewUnknown()
	default:
		return fmt.Errorf("user: unrecognized kind %q", parsed.Kind)
	}
	return nil
}

// String renders the user the way it is meant to be displayed, not
// persisted — persistence uses the sentinel strings in the intermediate
// codec instead.
func (u User) String() string {
	switch u.kind {
	case Named:
		return u.name
	case Hidden:
		return "userhidden"
	default:
		return "unknown"
	}
}
