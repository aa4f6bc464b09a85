package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/subfeed/internal/models"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgSessionSettled MsgKind = iota
	MsgLoginComplete
	MsgChannelsLoaded
	MsgVideosLoaded
	MsgRefreshed
	MsgLoggedOut
	MsgOpened
)

type loginResult struct {
	user *models.UserProfile
	err  error
}

// sessionSettledMsg is the constructor for [MsgSessionSettled]
func sessionSettledMsg(err error) Msg {
	return Msg{kind: MsgSessionSettled, data: err}
}

// loginCompleteMsg is the constructor for [MsgLoginComplete]
func loginCompleteMsg(user *models.UserProfile, err error) Msg {
	return Msg{kind: MsgLoginComplete, data: loginResult{user, err}}
}

// channelsLoadedMsg is the constructor for [MsgChannelsLoaded]
func channelsLoadedMsg(err error) Msg {
	return Msg{kind: MsgChannelsLoaded, data: err}
}

// videosLoadedMsg is the constructor for [MsgVideosLoaded]
func videosLoadedMsg(err error) Msg {
	return Msg{kind: MsgVideosLoaded, data: err}
}

// refreshedMsg is the constructor for [MsgRefreshed]
func refreshedMsg(err error) Msg {
	return Msg{kind: MsgRefreshed, data: err}
}

// loggedOutMsg is the constructor for [MsgLoggedOut]
func loggedOutMsg(err error) Msg {
	return Msg{kind: MsgLoggedOut, data: err}
}

// openedMsg is the constructor for [MsgOpened]
func openedMsg(err error) Msg {
	return Msg{kind: MsgOpened, data: err}
}

// Err returns the error carried by the message, if any.
func (m Msg) Err() error {
	switch d := m.data.(type) {
	case error:
		return d
	case loginResult:
		return d.err
	default:
		return nil
	}
}
