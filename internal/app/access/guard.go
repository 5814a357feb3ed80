// Package access decides whether a viewer may use a listing's chat channel.
package access

import (
	"strings"

	"rentmechat/internal/domain/chat"
)

type Decision int

const (
	Allowed Decision = iota
	DeniedUnauthenticated
	DeniedSelfChat
)

// CanChat has no side effects and is evaluated before any resolution or polling.
// A host reaching their own listing is denied unless allowHostChat is set, as
// booking threads do.
func CanChat(viewerID, hostID chat.UserID, allowHostChat bool) Decision {
	viewer := chat.UserID(strings.TrimSpace(string(viewerID)))
	if viewer == "" {
		return DeniedUnauthenticated
	}
	if viewer == chat.UserID(strings.TrimSpace(string(hostID))) && !allowHostChat {
		return DeniedSelfChat
	}
	return Allowed
}

func (d Decision) Allowed() bool {
	return d == Allowed
}

func (d Decision) String() string {
	switch d {
	case Allowed:
		return "allowed"
	case DeniedUnauthenticated:
		return "denied_unauthenticated"
	case DeniedSelfChat:
		return "denied_self_chat"
	default:
		return "unknown"
	}
}

// Reason returns the headline and detail shown in place of the transcript.
func (d Decision) Reason() (title, detail string) {
	switch d {
	case DeniedUnauthenticated:
		return "Log in to chat with the host", ""
	case DeniedSelfChat:
		return "This is your listing", "You can't message yourself"
	default:
		return "", ""
	}
}
