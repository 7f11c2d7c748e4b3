package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"tgreach/pkg/logger"
)

// Store owns the campaign state document. Every mutation helper writes
// the whole document through to disk before returning, so a crash loses
// at most the in-flight action. Access is serialized internally.
type Store struct {
	mu        sync.Mutex
	path      string
	autoReset bool
	log       logger.Logger
	state     *CampaignState
}

// NewStore creates a store bound to the given file. Call Load before use.
func NewStore(path string, autoReset bool, log logger.Logger) *Store {
	return &Store{
		path:      path,
		autoReset: autoReset,
		log:       log,
	}
}

// Load reads the state file, creating and persisting a fresh empty state
// when none exists. With autoReset enabled, a stale date rolls the daily
// counter over to the current day.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.state = newCampaignState()
		s.log.WithField("path", s.path).Info("no state file found, starting fresh")
		return s.saveLocked()
	}
	if err != nil {
		return fmt.Errorf("failed to read state file: %w", err)
	}

	var cs CampaignState
	if err := json.Unmarshal(data, &cs); err != nil {
		return fmt.Errorf("failed to decode state file: %w", err)
	}
	if cs.Users == nil {
		cs.Users = make(map[string]*UserRecord)
	}
	if cs.Channels == nil {
		cs.Channels = make(map[string]*ChannelRecord)
	}
	s.state = &cs

	if s.autoReset && cs.Date != today() {
		s.log.InfoWithFields("day rollover, resetting daily counter", map[string]interface{}{
			"stored_date":   cs.Date,
			"invites_today": cs.InvitesToday,
		})
		cs.Date = today()
		cs.InvitesToday = 0
		return s.saveLocked()
	}

	return nil
}

// Save persists the current state atomically.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

// saveLocked writes to a temp file, syncs, then renames over the state
// file. A partial write never replaces good state.
func (s *Store) saveLocked() error {
	if s.state == nil {
		return fmt.Errorf("state not loaded")
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	tempPath := s.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary state file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(s.state); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode state: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync state file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close state file: %w", err)
	}

	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace state file: %w", err)
	}

	return nil
}

// AddUser creates a record for a newly discovered user. It reports
// whether the user was new; an existing id is left untouched.
func (s *Store) AddUser(id, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.Users[id]; ok {
		return false, nil
	}
	s.state.Users[id] = &UserRecord{Username: username}
	return true, s.saveLocked()
}

// MarkGreeted sets the greeted flag. Unknown ids are a no-op.
func (s *Store) MarkGreeted(id string) error {
	return s.setFlag(id, func(u *UserRecord) { u.Greeted = true })
}

// MarkResponded sets the responded flag. Unknown ids are a no-op.
func (s *Store) MarkResponded(id string) error {
	return s.setFlag(id, func(u *UserRecord) { u.Responded = true })
}

// MarkInvited sets the invited flag. Unknown ids are a no-op.
func (s *Store) MarkInvited(id string) error {
	return s.setFlag(id, func(u *UserRecord) { u.Invited = true })
}

func (s *Store) setFlag(id string, mutate func(*UserRecord)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.state.Users[id]
	if !ok {
		return nil
	}
	mutate(u)
	return s.saveLocked()
}

// RecordInvite increments the daily greet-send counter.
func (s *Store) RecordInvite() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.InvitesToday++
	return s.saveLocked()
}

// InvitesToday returns the daily counter.
func (s *Store) InvitesToday() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.InvitesToday
}

// User returns a copy of the record for id.
func (s *Store) User(id string) (UserRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.state.Users[id]
	if !ok {
		return UserRecord{}, false
	}
	return *u, true
}

// UserIDs returns all known user ids in stable sorted order.
func (s *Store) UserIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.state.Users))
	for id := range s.state.Users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// UnsentCount counts users that were never greeted.
func (s *Store) UnsentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, u := range s.state.Users {
		if !u.Greeted {
			n++
		}
	}
	return n
}

// PostProcessed reports whether a post is in the channel's dedup set.
func (s *Store) PostProcessed(channelID int64, postID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.state.Channels[channelKey(channelID)]
	if !ok {
		return false
	}
	for _, id := range ch.Posts {
		if id == postID {
			return true
		}
	}
	return false
}

// MarkPostProcessed adds a post to the channel's dedup set and persists.
func (s *Store) MarkPostProcessed(channelID int64, postID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := channelKey(channelID)
	ch, ok := s.state.Channels[key]
	if !ok {
		ch = &ChannelRecord{}
		s.state.Channels[key] = ch
	}
	for _, id := range ch.Posts {
		if id == postID {
			return nil
		}
	}
	ch.Posts = append(ch.Posts, postID)
	return s.saveLocked()
}

// Stats returns a point-in-time campaign summary.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.stats()
}

// Snapshot returns a deep copy of the whole state document.
func (s *Store) Snapshot() *CampaignState {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := &CampaignState{
		Date:         s.state.Date,
		InvitesToday: s.state.InvitesToday,
		Users:        make(map[string]*UserRecord, len(s.state.Users)),
		Channels:     make(map[string]*ChannelRecord, len(s.state.Channels)),
	}
	for id, u := range s.state.Users {
		cp := *u
		out.Users[id] = &cp
	}
	for id, ch := range s.state.Channels {
		posts := make([]int, len(ch.Posts))
		copy(posts, ch.Posts)
		out.Channels[id] = &ChannelRecord{Posts: posts}
	}
	return out
}

func channelKey(id int64) string {
	return strconv.FormatInt(id, 10)
}
