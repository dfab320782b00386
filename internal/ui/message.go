package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/bowlstone/internal/reflection"
	"github.com/desertthunder/bowlstone/internal/session"
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
	MsgReflectionFetched MsgKind = iota
	MsgSessionChanged
	MsgNoticeExpired
)

// reflectionFetchedMsg is the constructor for [MsgReflectionFetched]
func reflectionFetchedMsg(r reflection.Reflection) Msg {
	return Msg{kind: MsgReflectionFetched, data: r}
}

// SessionChangedMsg is the constructor for [MsgSessionChanged]. Send it through the program whenever the
// session hub publishes a new context.
func SessionChangedMsg(sc session.Context) Msg {
	return Msg{kind: MsgSessionChanged, data: sc}
}

// noticeExpiredMsg is the constructor for [MsgNoticeExpired]. seq identifies the notice it clears.
func noticeExpiredMsg(seq int) Msg {
	return Msg{kind: MsgNoticeExpired, data: seq}
}
