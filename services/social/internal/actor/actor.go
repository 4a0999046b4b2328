// Package actor models the current actor of a request: an authenticated
// user id or an explicit anonymous marker.
package actor

import "strings"

// Actor is passed by value into every read and write. The zero value is anonymous.
type Actor struct {
	id string
}

// Anonymous is the actor of an unauthenticated request.
var Anonymous = Actor{}

// User returns the actor for an authenticated user; a blank id yields Anonymous.
func User(id string) Actor {
	return Actor{id: strings.TrimSpace(id)}
}

// Present reports whether the actor is authenticated.
func (a Actor) Present() bool { return a.id != "" }

// ID returns the user id, or "" for Anonymous.
func (a Actor) ID() string { return a.id }

// Is reports whether the actor is present and owns userID.
func (a Actor) Is(userID string) bool {
	return a.id != "" && a.id == userID
}

func (a Actor) String() string {
	if a.id == "" {
		return "anonymous"
	}
	return a.id
}
