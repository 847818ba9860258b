package session

import (
	"fmt"
)

// Status is the session lifecycle status.
type Status string

const (
	// StatusInitializing is the status before the provider's first
	// change event arrives.
	StatusInitializing Status = "initializing"
	// StatusAuthenticated means the provider has vouched for an identity.
	StatusAuthenticated Status = "authenticated"
	// StatusUnauthenticated means no identity is signed in.
	StatusUnauthenticated Status = "unauthenticated"
)

// statusTransitions is the legal transition graph. Initializing is an
// entry-only status: once the first provider event lands the session
// never returns to it. Authenticated self-transitions happen on every
// repeat sign-in event, which re-syncs the profile.
var statusTransitions = map[Status]map[Status]struct{}{
	StatusInitializing: {
		StatusAuthenticated:   {},
		StatusUnauthenticated: {},
	},
	StatusAuthenticated: {
		StatusAuthenticated:   {},
		StatusUnauthenticated: {},
	},
	StatusUnauthenticated: {
		StatusAuthenticated:   {},
		StatusUnauthenticated: {},
	},
}

func canTransition(from, to Status) bool {
	allowed, ok := statusTransitions[from]
	if !ok {
		return false
	}
	_, exists := allowed[to]
	return exists
}

// Session is the in-memory representation of the current user, owned
// exclusively by the Controller. Subscribers receive copies.
type Session struct {
	Status    Status
	Identity  Identity
	Profile   *Profile
	LastError string
}

// Authenticated reports whether the session holds a confirmed identity.
func (s Session) Authenticated() bool {
	return s.Status == StatusAuthenticated
}

// Settled reports whether the provider's first event has arrived.
func (s Session) Settled() bool {
	return s.Status != StatusInitializing
}

func (s Session) String() string {
	id := "<nil>"
	if s.Identity != nil {
		id = s.Identity.ID()
	}
	profile := "<nil>"
	if s.Profile != nil {
		profile = s.Profile.ID.String()
	}
	return fmt.Sprintf(
		"status=%s identity=%s profile=%s err=%q",
		s.Status,
		id,
		profile,
		s.LastError,
	)
}
