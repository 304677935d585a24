// Package auth owns the client's session: who is logged in, whether an
// authentication call is in flight, and the last authentication error.
package auth

import "github.com/marcus/taskflow/internal/models"

// State is a snapshot of the session.
//
// IsAuthenticated is true exactly when User is non-nil. IsLoading is true
// only while a load, login or registration is in flight. An empty Error means
// no error.
type State struct {
	User            models.User
	IsAuthenticated bool
	IsLoading       bool
	Error           string
}

// Anonymous is the state with no user, no error and nothing in flight.
func Anonymous() State { return State{} }

// clone returns s with its own copy of the user map.
func (s State) clone() State {
	s.User = s.User.Clone()
	return s
}

// Event is a session transition. The set of events is closed.
type Event interface{ event() }

type (
	// LoadStart marks the start of validating a stored token.
	LoadStart struct{}
	// LoadSuccess carries the user the stored token belongs to.
	LoadSuccess struct{ User models.User }
	// LoadFailure carries the reason the stored token was rejected.
	LoadFailure struct{ Message string }
	// LoginStart marks the start of a login or registration.
	LoginStart struct{}
	// LoginSuccess carries the newly authenticated user.
	LoginSuccess struct{ User models.User }
	// LoginFailure carries the login or registration error.
	LoginFailure struct{ Message string }
	// Logout ends the session.
	Logout struct{}
	// ClearError drops the current error.
	ClearError struct{}
	// UpdateUser shallow-merges fields into the current user.
	UpdateUser struct{ Fields models.User }
)

func (LoadStart) event()    {}
func (LoadSuccess) event()  {}
func (LoadFailure) event()  {}
func (LoginStart) event()   {}
func (LoginSuccess) event() {}
func (LoginFailure) event() {}
func (Logout) event()       {}
func (ClearError) event()   {}
func (UpdateUser) event()   {}

// Reduce returns the state that follows s after ev. It has no side effects and
// never mutates s. Unknown events return s unchanged.
func Reduce(s State, ev Event) State {
	switch e := ev.(type) {
	case LoadStart, LoginStart:
		s.IsLoading = true
		s.Error = ""
		return s

	case LoadSuccess:
		return authenticated(e.User)
	case LoginSuccess:
		return authenticated(e.User)

	case LoadFailure:
		return State{Error: e.Message}
	case LoginFailure:
		return State{Error: e.Message}

	case Logout:
		return Anonymous()

	case ClearError:
		s.Error = ""
		return s

	case UpdateUser:
		// A merge into no user would authenticate nobody; ignore it.
		if s.User == nil {
			return s
		}
		s.User = s.User.Merge(e.Fields)
		return s
	}
	return s
}

func authenticated(u models.User) State {
	if u == nil {
		u = models.User{}
	}
	return State{User: u.Clone(), IsAuthenticated: true}
}
