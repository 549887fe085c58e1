// Package identity holds the canonical signed in identity of a client and keeps the
// cached credential records consistent with it.
package identity

import (
	"github.com/openkcm/session-gateway/internal/session"
)

// Identity is the server's view of a user.
type Identity struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Avatar    string `json:"avatar,omitempty"`
	Role      string `json:"role,omitempty"`
	Phone     string `json:"phone,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// Stored derives the cached credential record from the identity.
func (i Identity) Stored() session.StoredUser {
	return session.StoredUser{
		Sub:       i.ID,
		Email:     i.Email,
		Name:      i.Name,
		Picture:   i.Avatar,
		Phone:     i.Phone,
		CreatedAt: i.CreatedAt,
	}
}

// FromStored rebuilds an identity from the cached record. The role is never cached.
func FromStored(u session.StoredUser) Identity {
	return Identity{
		ID:        u.Sub,
		Name:      u.Name,
		Email:     u.Email,
		Avatar:    u.Picture,
		Phone:     u.Phone,
		CreatedAt: u.CreatedAt,
	}
}

type Status string

const (
	StatusIdle      Status = "idle"
	StatusLoading   Status = "loading"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

type State struct {
	User         *Identity
	AccessToken  string
	RefreshToken string
	Status       Status
	Error        string
}

func InitialState() State {
	return State{Status: StatusIdle}
}

func (s State) clone() State {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}

	return s
}

// Action is one of LoginStarted, LoginSucceeded, LoginFailed, UserRefreshed or LoggedOut.
type Action interface {
	action()
}

type LoginStarted struct{}

type LoginSucceeded struct {
	User         Identity
	AccessToken  string
	RefreshToken string
}

type LoginFailed struct {
	Err error
}

type UserRefreshed struct {
	User Identity
}

type LoggedOut struct{}

func (LoginStarted) action()   {}
func (LoginSucceeded) action() {}
func (LoginFailed) action()    {}
func (UserRefreshed) action()  {}
func (LoggedOut) action()      {}

// Reduce returns the state that follows from applying a to s. It never mutates s.
func Reduce(s State, a Action) State {
	next := s.clone()

	switch a := a.(type) {
	case LoginStarted:
		next.Status = StatusLoading
		next.Error = ""
	case LoginSucceeded:
		user := a.User
		next.User = &user
		next.AccessToken = a.AccessToken
		next.RefreshToken = a.RefreshToken
		next.Status = StatusSucceeded
		next.Error = ""
	case LoginFailed:
		next.Status = StatusFailed
		next.Error = "login failed"
		if a.Err != nil {
			next.Error = a.Err.Error()
		}
	case UserRefreshed:
		user := a.User
		next.User = &user
	case LoggedOut:
		next = InitialState()
	}

	return next
}

// bumpsEpoch reports whether a starts a new login generation.
func bumpsEpoch(a Action) bool {
	switch a.(type) {
	case LoginSucceeded, LoggedOut:
		return true
	default:
		return false
	}
}
