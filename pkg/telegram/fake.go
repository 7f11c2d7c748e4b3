package telegram

import (
	"context"
	"fmt"
	"sync"
)

// Fake is an in-memory Client for tests. Seed it with channels, posts and
// replies, script failures per operation, and inspect what was sent.
type Fake struct {
	mu sync.Mutex

	peers     map[string]*Peer
	fulls     map[int64]*PeerFull
	histories map[int64][]Message
	roots     map[int64]map[int]*Message
	replies   map[int64]map[int][]Message

	failures     map[string]error
	onceFailures map[string]error

	incoming chan Message
	nextID   int

	// Recorded side effects, in call order.
	Sent      []SentMessage
	Reactions []SentReaction
	Typings   []int64
	Joins     []string
	Imports   []string
	Closed    bool
}

// SentMessage records a SendMessage or ReplyTo call.
type SentMessage struct {
	PeerID    int64
	ReplyToID int
	Text      string
}

// SentReaction records a React call.
type SentReaction struct {
	PeerID int64
	MsgID  int
	Emoji  string
}

// NewFake creates an empty fake client.
func NewFake() *Fake {
	return &Fake{
		peers:        make(map[string]*Peer),
		fulls:        make(map[int64]*PeerFull),
		histories:    make(map[int64][]Message),
		roots:        make(map[int64]map[int]*Message),
		replies:      make(map[int64]map[int][]Message),
		failures:     make(map[string]error),
		onceFailures: make(map[string]error),
		incoming:     make(chan Message, 16),
		nextID:       1000,
	}
}

// AddPeer seeds a resolvable peer under its username.
func (f *Fake) AddPeer(p *Peer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.peers[p.Username] = p
}

// AddChannel seeds a channel with an optional linked discussion group.
func (f *Fake) AddChannel(username string, id, linkedID int64) *Peer {
	p := &Peer{ID: id, Username: username, Title: username}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.peers[username] = p
	f.fulls[id] = &PeerFull{Peer: *p, LinkedChatID: linkedID}
	return p
}

// AddPost appends a post to a channel's history and registers its
// discussion root in the linked group.
func (f *Fake) AddPost(channelID int64, postID, replyCount int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.histories[channelID] = append([]Message{{
		ID:         postID,
		PeerID:     channelID,
		ReplyCount: replyCount,
	}}, f.histories[channelID]...)
	if f.roots[channelID] == nil {
		f.roots[channelID] = make(map[int]*Message)
	}
	f.roots[channelID][postID] = &Message{ID: postID, PeerID: channelID}
}

// AddReply seeds one discussion reply under a root message.
func (f *Fake) AddReply(discussionID int64, rootID int, senderID int64, senderUsername, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.replies[discussionID] == nil {
		f.replies[discussionID] = make(map[int][]Message)
	}
	f.nextID++
	f.replies[discussionID][rootID] = append(f.replies[discussionID][rootID], Message{
		ID:             f.nextID,
		PeerID:         discussionID,
		SenderID:       senderID,
		SenderUsername: senderUsername,
		Text:           text,
	})
}

// SetHistory seeds a peer's message history directly.
func (f *Fake) SetHistory(peerID int64, msgs []Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.histories[peerID] = msgs
}

// Fail makes every call to op return err. op is a method name, optionally
// suffixed with ":<peerID>" to target one peer.
func (f *Fake) Fail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = err
}

// FailOnce makes the next call to op return err, then clears itself.
func (f *Fake) FailOnce(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onceFailures[op] = err
}

// Deliver pushes an inbound message through the Incoming channel.
func (f *Fake) Deliver(msg Message) {
	f.incoming <- msg
}

func (f *Fake) scripted(op string, peerID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := []string{fmt.Sprintf("%s:%d", op, peerID), op}
	for _, k := range keys {
		if err, ok := f.onceFailures[k]; ok {
			delete(f.onceFailures, k)
			return err
		}
		if err, ok := f.failures[k]; ok {
			return err
		}
	}
	return nil
}

func (f *Fake) ResolvePeer(ctx context.Context, ref Ref) (*Peer, error) {
	if err := f.scripted("ResolvePeer", 0); err != nil {
		return nil, err
	}
	_, name := ref.Parse()
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.peers[name]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("resolve %q: %w", name, ErrNotFound)
}

func (f *Fake) PeerFull(ctx context.Context, peer *Peer) (*PeerFull, error) {
	if err := f.scripted("PeerFull", peer.ID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if full, ok := f.fulls[peer.ID]; ok {
		return full, nil
	}
	return nil, fmt.Errorf("peer %d: %w", peer.ID, ErrNotFound)
}

func (f *Fake) History(ctx context.Context, peerID int64, limit int) ([]Message, error) {
	if err := f.scripted("History", peerID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := f.histories[peerID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[:limit]
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (f *Fake) DiscussionRoot(ctx context.Context, channelID int64, postID int) (*Message, error) {
	if err := f.scripted("DiscussionRoot", channelID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if root, ok := f.roots[channelID][postID]; ok {
		return root, nil
	}
	return nil, fmt.Errorf("post %d: %w", postID, ErrNotFound)
}

func (f *Fake) Replies(ctx context.Context, discussionID int64, rootID int) ([]Message, error) {
	if err := f.scripted("Replies", discussionID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := f.replies[discussionID][rootID]
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (f *Fake) SendMessage(ctx context.Context, peerID int64, text string) (*Message, error) {
	if err := f.scripted("SendMessage", peerID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.Sent = append(f.Sent, SentMessage{PeerID: peerID, Text: text})
	return &Message{ID: f.nextID, PeerID: peerID, Text: text}, nil
}

func (f *Fake) ReplyTo(ctx context.Context, peerID int64, msgID int, text string) (*Message, error) {
	if err := f.scripted("ReplyTo", peerID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.Sent = append(f.Sent, SentMessage{PeerID: peerID, ReplyToID: msgID, Text: text})
	return &Message{ID: f.nextID, PeerID: peerID, Text: text}, nil
}

func (f *Fake) React(ctx context.Context, peerID int64, msgID int, emoji string) error {
	if err := f.scripted("React", peerID); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Reactions = append(f.Reactions, SentReaction{PeerID: peerID, MsgID: msgID, Emoji: emoji})
	return nil
}

func (f *Fake) Typing(ctx context.Context, peerID int64) error {
	if err := f.scripted("Typing", peerID); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Typings = append(f.Typings, peerID)
	return nil
}

func (f *Fake) JoinChannel(ctx context.Context, username string) error {
	if err := f.scripted("JoinChannel", 0); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Joins = append(f.Joins, username)
	return nil
}

func (f *Fake) ImportInvite(ctx context.Context, hash string) error {
	if err := f.scripted("ImportInvite", 0); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Imports = append(f.Imports, hash)
	return nil
}

func (f *Fake) Incoming() <-chan Message {
	return f.incoming
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.Closed {
		f.Closed = true
		close(f.incoming)
	}
	return nil
}
