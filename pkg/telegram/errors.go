package telegram

import (
	"errors"
	"fmt"
	"time"
)

// Platform failure classes the engine reacts to. Everything else a client
// returns is treated as unclassified.
var (
	// ErrPeerFlood signals imminent risk of account suspension.
	ErrPeerFlood = errors.New("peer flood: account at risk")

	// ErrPrivacy covers recipient privacy settings, blocks, and
	// write-forbidden chats.
	ErrPrivacy = errors.New("recipient privacy forbids the action")

	// ErrNotFound covers unresolvable entities and missing messages.
	ErrNotFound = errors.New("entity not found")

	// ErrAlreadyParticipant is returned by join operations when the
	// account is already a member.
	ErrAlreadyParticipant = errors.New("already a participant")

	// ErrInviteInvalid is returned for expired or malformed invite hashes.
	ErrInviteInvalid = errors.New("invite hash invalid")
)

// FloodWaitError is the platform's mandatory-wait signal.
type FloodWaitError struct {
	RetryAfter time.Duration
}

func (e *FloodWaitError) Error() string {
	return fmt.Sprintf("flood wait: retry after %s", e.RetryAfter)
}

// AsFloodWait extracts a FloodWaitError from an error chain.
func AsFloodWait(err error) (*FloodWaitError, bool) {
	var fw *FloodWaitError
	if errors.As(err, &fw) {
		return fw, true
	}
	return nil, false
}
