// Package telegram defines the behavioral contract between the outreach
// engine and the messaging platform.
//
// The engine never speaks a wire protocol. It consumes the Client
// interface plus a closed set of failure classes (FloodWaitError,
// ErrPeerFlood, ErrPrivacy, ErrNotFound), and a concrete client is
// installed through RegisterDialer. Tests use the in-memory Fake.
package telegram
