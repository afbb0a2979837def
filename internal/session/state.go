// Package session keeps the per-session authentication state machine.
// Every gateway session owns one Machine whose state advances through a
// small fixed set of events, so concurrent handlers always observe a
// consistent snapshot.
package session

import (
	"time"

	"nusantaraedu/gateway/internal/credential"
	"nusantaraedu/gateway/internal/model"
)

// State is an immutable snapshot of one session. Copies are handed out
// by value; mutation happens only through the reducer.
type State struct {
	User            *model.User
	School          *model.School
	Token           string
	RefreshToken    string
	IsAuthenticated bool
	IsLoading       bool
	Error           string
	LastLogin       *time.Time
}

type eventKind int

const (
	eventAuthStart eventKind = iota
	eventAuthSuccess
	eventAuthFailure
	eventLogout
	eventUpdateProfile
	eventActionFailure
	eventClearError
)

type event struct {
	kind    eventKind
	record  credential.Record
	user    *model.User
	message string
}

// reduce derives the next state from the current one. It never mutates
// its input. Auth failures and logout both collapse to the anonymous
// state; failures of in-session actions only record the message.
func reduce(s State, ev event) State {
	switch ev.kind {
	case eventAuthStart:
		s.IsLoading = true
		s.Error = ""
		return s
	case eventAuthSuccess:
		return State{
			User:            ev.record.User,
			School:          ev.record.School,
			Token:           ev.record.Token,
			RefreshToken:    ev.record.RefreshToken,
			IsAuthenticated: true,
			LastLogin:       ev.record.LastLogin,
		}
	case eventAuthFailure:
		return State{Error: ev.message}
	case eventLogout:
		return State{}
	case eventUpdateProfile:
		s.User = ev.user
		s.Error = ""
		return s
	case eventActionFailure:
		s.Error = ev.message
		return s
	case eventClearError:
		s.Error = ""
		return s
	default:
		return s
	}
}
