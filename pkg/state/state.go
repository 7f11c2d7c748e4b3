package state

import (
	"time"
)

// UserRecord tracks one discovered candidate through the outreach
// lifecycle. The flags are monotonic: once true they never reset.
type UserRecord struct {
	Username  string `json:"username"`
	Greeted   bool   `json:"greeted"`
	Responded bool   `json:"responded"`
	Invited   bool   `json:"invited"`
}

// ChannelRecord holds the dedup set for one source channel.
type ChannelRecord struct {
	Posts []int `json:"posts"`
}

// CampaignState is the whole persisted campaign document. It is rewritten
// wholesale on every mutation.
type CampaignState struct {
	Date         string                    `json:"date"`
	InvitesToday int                       `json:"invites_today"`
	Users        map[string]*UserRecord    `json:"users"`
	Channels     map[string]*ChannelRecord `json:"channels"`
}

// Stats is a point-in-time campaign summary.
type Stats struct {
	TotalUsers   int
	Greeted      int
	Invited      int
	Remaining    int
	InvitesToday int
}

// today formats the current calendar day the way the state document
// stores it.
func today() string {
	return time.Now().Format("2006-01-02")
}

// newCampaignState returns a fresh empty state for the current day.
func newCampaignState() *CampaignState {
	return &CampaignState{
		Date:         today(),
		InvitesToday: 0,
		Users:        make(map[string]*UserRecord),
		Channels:     make(map[string]*ChannelRecord),
	}
}

func (cs *CampaignState) stats() Stats {
	st := Stats{
		TotalUsers:   len(cs.Users),
		InvitesToday: cs.InvitesToday,
	}
	for _, u := range cs.Users {
		if u.Greeted {
			st.Greeted++
		}
		if u.Invited {
			st.Invited++
		}
	}
	st.Remaining = st.TotalUsers - st.Greeted
	return st
}
