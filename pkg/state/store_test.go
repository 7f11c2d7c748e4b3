package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tgreach/pkg/logger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.json")
	s := NewStore(path, true, logger.NewTestLogger())
	require.NoError(t, s.Load())
	return s
}

func TestLoadCreatesFreshState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s := NewStore(path, true, logger.NewTestLogger())
	require.NoError(t, s.Load())

	// The fresh state is persisted immediately
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var cs CampaignState
	require.NoError(t, json.Unmarshal(data, &cs))
	assert.Equal(t, time.Now().Format("2006-01-02"), cs.Date)
	assert.Zero(t, cs.InvitesToday)
	assert.Empty(t, cs.Users)
}

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s := NewStore(path, true, logger.NewTestLogger())
	require.NoError(t, s.Load())

	_, err := s.AddUser("100", "alice")
	require.NoError(t, err)
	_, err = s.AddUser("200", "")
	require.NoError(t, err)
	require.NoError(t, s.MarkGreeted("100"))
	require.NoError(t, s.MarkResponded("100"))
	require.NoError(t, s.MarkInvited("100"))
	require.NoError(t, s.RecordInvite())
	require.NoError(t, s.MarkPostProcessed(555, 42))

	before := s.Snapshot()

	reloaded := NewStore(path, true, logger.NewTestLogger())
	require.NoError(t, reloaded.Load())
	assert.Equal(t, before, reloaded.Snapshot())
}

func TestAddUserIsIdempotent(t *testing.T) {
	s := newTestStore(t)

	added, err := s.AddUser("100", "alice")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.AddUser("100", "other")
	require.NoError(t, err)
	assert.False(t, added)

	u, ok := s.User("100")
	require.True(t, ok)
	assert.Equal(t, "alice", u.Username)
	assert.False(t, u.Greeted)
	assert.False(t, u.Responded)
	assert.False(t, u.Invited)
}

func TestMarkUnknownUserIsNoOp(t *testing.T) {
	s := newTestStore(t)

	before := s.Snapshot()
	require.NoError(t, s.MarkGreeted("404"))
	require.NoError(t, s.MarkResponded("404"))
	require.NoError(t, s.MarkInvited("404"))
	assert.Equal(t, before, s.Snapshot())
}

func TestInvitedImpliesGreetedUnderDriverOrder(t *testing.T) {
	s := newTestStore(t)
	_, err := s.AddUser("100", "alice")
	require.NoError(t, err)

	require.NoError(t, s.MarkGreeted("100"))
	require.NoError(t, s.MarkInvited("100"))

	u, _ := s.User("100")
	assert.True(t, u.Greeted, "invited user must be greeted")
	assert.True(t, u.Invited)
}

func TestDedupSet(t *testing.T) {
	s := newTestStore(t)

	assert.False(t, s.PostProcessed(555, 1))
	require.NoError(t, s.MarkPostProcessed(555, 1))
	assert.True(t, s.PostProcessed(555, 1))
	assert.False(t, s.PostProcessed(555, 2))
	assert.False(t, s.PostProcessed(666, 1))

	// Re-marking does not duplicate the entry
	require.NoError(t, s.MarkPostProcessed(555, 1))
	snap := s.Snapshot()
	assert.Equal(t, []int{1}, snap.Channels["555"].Posts)
}

func TestUnsentCountAndStats(t *testing.T) {
	s := newTestStore(t)
	for _, id := range []string{"1", "2", "3"} {
		_, err := s.AddUser(id, "")
		require.NoError(t, err)
	}
	require.NoError(t, s.MarkGreeted("1"))
	require.NoError(t, s.MarkInvited("1"))

	assert.Equal(t, 2, s.UnsentCount())

	st := s.Stats()
	assert.Equal(t, 3, st.TotalUsers)
	assert.Equal(t, 1, st.Greeted)
	assert.Equal(t, 1, st.Invited)
	assert.Equal(t, 2, st.Remaining)
}

func TestUserIDsStableOrder(t *testing.T) {
	s := newTestStore(t)
	for _, id := range []string{"30", "10", "20"} {
		_, err := s.AddUser(id, "")
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"10", "20", "30"}, s.UserIDs())
	assert.Equal(t, s.UserIDs(), s.UserIDs())
}

func TestDayRollover(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	stale := &CampaignState{
		Date:         "2001-01-01",
		InvitesToday: 9,
		Users:        map[string]*UserRecord{"1": {Username: "a", Greeted: true}},
		Channels:     map[string]*ChannelRecord{},
	}
	data, err := json.Marshal(stale)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0600))

	t.Run("auto reset", func(t *testing.T) {
		s := NewStore(path, true, logger.NewTestLogger())
		require.NoError(t, s.Load())
		assert.Zero(t, s.InvitesToday())
		// User history survives the rollover
		_, ok := s.User("1")
		assert.True(t, ok)
	})

	t.Run("manual mode keeps counter", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, data, 0600))
		s := NewStore(path, false, logger.NewTestLogger())
		require.NoError(t, s.Load())
		assert.Equal(t, 9, s.InvitesToday())
	})
}

func TestSaveLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	s := NewStore(path, true, logger.NewTestLogger())
	require.NoError(t, s.Load())
	_, err := s.AddUser("1", "a")
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "state.json", entries[0].Name())
}
