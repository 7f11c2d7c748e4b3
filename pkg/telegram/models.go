package telegram

import "strings"

// Ref is a textual reference to a channel or user: an @username, a t.me
// link, a private invite link, or a bare username.
type Ref string

// RefKind classifies a Ref.
type RefKind int

const (
	// RefUsername resolves through the public username directory
	RefUsername RefKind = iota
	// RefInvite resolves through a private invite hash
	RefInvite
)

// Peer identifies a resolved user, group, or channel.
type Peer struct {
	ID       int64
	Username string
	Title    string
}

// PeerFull carries extended channel metadata.
type PeerFull struct {
	Peer Peer
	// LinkedChatID is the discussion group attached to a broadcast
	// channel, or 0 when none is linked.
	LinkedChatID int64
}

// Message is a single message as seen by the engine.
type Message struct {
	ID             int
	PeerID         int64
	SenderID       int64
	SenderUsername string
	Text           string
	// ReplyCount is the size of the attached discussion thread,
	// populated on channel posts.
	ReplyCount int
}

// Parse classifies a reference and extracts the username or invite hash.
func (r Ref) Parse() (RefKind, string) {
	s := strings.TrimSpace(string(r))

	if i := strings.Index(s, "/joinchat/"); i >= 0 {
		return RefInvite, s[i+len("/joinchat/"):]
	}
	if i := strings.Index(s, "t.me/+"); i >= 0 {
		return RefInvite, s[i+len("t.me/+"):]
	}

	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	return RefUsername, strings.TrimPrefix(s, "@")
}
