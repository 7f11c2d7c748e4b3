package telegram

import (
	"context"
	"errors"
	"fmt"

	"tgreach/pkg/config"
)

// Client is the behavioral contract the engine requires from a messaging
// platform. Implementations wrap a concrete wire protocol; the engine only
// depends on this interface and the error taxonomy in errors.go.
type Client interface {
	// ResolvePeer resolves a channel/user reference to a peer.
	ResolvePeer(ctx context.Context, ref Ref) (*Peer, error)

	// PeerFull fetches extended metadata, including the linked
	// discussion group for a broadcast channel (0 when absent).
	PeerFull(ctx context.Context, peer *Peer) (*PeerFull, error)

	// History returns up to limit recent messages for a peer,
	// most recent first.
	History(ctx context.Context, peerID int64, limit int) ([]Message, error)

	// DiscussionRoot resolves the root message of the discussion
	// thread attached to a channel post.
	DiscussionRoot(ctx context.Context, channelID int64, postID int) (*Message, error)

	// Replies returns the messages posted under a discussion root.
	Replies(ctx context.Context, discussionID int64, rootID int) ([]Message, error)

	// SendMessage sends a text message to a peer.
	SendMessage(ctx context.Context, peerID int64, text string) (*Message, error)

	// ReplyTo sends a text message replying to a specific message.
	ReplyTo(ctx context.Context, peerID int64, msgID int, text string) (*Message, error)

	// React attaches an emoji reaction to a message.
	React(ctx context.Context, peerID int64, msgID int, emoji string) error

	// Typing fires a typing-indicator action on the peer.
	Typing(ctx context.Context, peerID int64) error

	// JoinChannel joins a public channel by username.
	JoinChannel(ctx context.Context, username string) error

	// ImportInvite joins a private channel via its invite hash.
	ImportInvite(ctx context.Context, hash string) error

	// Incoming delivers inbound private messages. The channel is
	// closed when the client disconnects.
	Incoming() <-chan Message

	// Close tears down the connection.
	Close() error
}

// Dialer constructs a connected Client from platform configuration.
type Dialer func(ctx context.Context, platform config.PlatformConfig, proxy config.ProxyConfig) (Client, error)

var dialer Dialer

// RegisterDialer installs the wire-client constructor. A concrete client
// package calls this from its init so the engine stays protocol-agnostic.
func RegisterDialer(d Dialer) {
	dialer = d
}

// Dial connects using the registered dialer.
func Dial(ctx context.Context, platform config.PlatformConfig, proxy config.ProxyConfig) (Client, error) {
	if dialer == nil {
		return nil, errors.New("no platform client registered: link a wire client package")
	}
	client, err := dialer(ctx, platform, proxy)
	if err != nil {
		return nil, fmt.Errorf("failed to dial platform: %w", err)
	}
	return client, nil
}
