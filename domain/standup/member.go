// Package standup contains the core concepts of a daily standup.
// This file defines Member entities and the identifiers used across the system.
// No runtime, network, or storage logic should be added here.
package standup

type ChannelID string
type MemberID string

type Readiness string

const (
	NotReady Readiness = "NOT_READY"
	Ready    Readiness = "READY"
)

// Member is a channel member taking part in the standup.
type Member struct {
	ID         MemberID  `json:"id"`
	Name       string    `json:"name"`
	Readiness  Readiness `json:"readiness"`
	OnVacation bool      `json:"on_vacation"`
	IsAdmin    bool      `json:"is_admin"`
}

// Mention renders the member the way Slack expects a user mention.
func (id MemberID) Mention() string {
	return "<@" + string(id) + ">"
}

// AdminList authorizes a fixed set of members plus workspace admins.
type AdminList struct {
	ids map[MemberID]struct{}
}

func NewAdminList(ids ...MemberID) AdminList {
	set := make(map[MemberID]struct{}, len(ids))
	for _, id := range ids {
		if id != "" {
			set[id] = struct{}{}
		}
	}
	return AdminList{ids: set}
}

func (a AdminList) IsAdmin(member Member) bool {
	if member.IsAdmin {
		return true
	}
	_, ok := a.ids[member.ID]
	return ok
}
