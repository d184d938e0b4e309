package standup

import (
	"fmt"
	"standupbot/errors"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

const DayLayout = "2006-01-02"

// Snapshot is the inspectable state of a channel session, used for crash recovery.
type Snapshot struct {
	SessionID     uuid.UUID                 `json:"session_id"`
	Channel       ChannelID                 `json:"channel"`
	Status        Status                    `json:"status"`
	InitiatedBy   MemberID                  `json:"initiated_by"`
	StartedAt     time.Time                 `json:"started_at"`
	Members       []Member                  `json:"members"`
	Pending       []MemberID                `json:"pending"`
	Current       MemberID                  `json:"current,omitempty"`
	QuestionIndex int                       `json:"question_index"`
	Completed     []MemberID                `json:"completed"`
	Excused       map[MemberID]ExcuseReason `json:"excused,omitempty"`
}

// Day is the calendar day the session belongs to.
func (s Snapshot) Day() string {
	return s.StartedAt.Format(DayLayout)
}

// Snapshot returns a copy of the session state, ok is false when there is no session.
func (s *Store) Snapshot() (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sess == nil {
		return Snapshot{}, false
	}
	sess := s.sess
	return Snapshot{
		SessionID:   sess.id,
		Channel:     s.channel,
		Status:      sess.status,
		InitiatedBy: sess.initiatedBy,
		StartedAt:   sess.startedAt,
		Members: lo.Map(sess.roster, func(id MemberID, _ int) Member {
			return *sess.members[id]
		}),
		Pending:       append([]MemberID(nil), sess.pending...),
		Current:       sess.current,
		QuestionIndex: sess.questionIndex,
		Completed:     append([]MemberID(nil), sess.completed...),
		Excused:       lo.Assign(sess.excused),
	}, true
}

// Validate checks the snapshot could have been taken from a store asking
// questionCount questions.
func (s Snapshot) Validate(questionCount int) error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", errors.ErrInvalidSnapshot, fmt.Sprintf(format, args...))
	}
	switch s.Status {
	case StatusActive, StatusComplete, StatusAborted:
	default:
		return invalid("unknown status %q", s.Status)
	}
	if len(s.Members) == 0 {
		return invalid("no member")
	}
	members := lo.SliceToMap(s.Members, func(m Member) (MemberID, struct{}) { return m.ID, struct{}{} })
	if len(members) != len(s.Members) {
		return invalid("duplicated member")
	}

	queued := append(append([]MemberID(nil), s.Pending...), s.Completed...)
	if s.Current != "" {
		queued = append(queued, s.Current)
	}
	for _, id := range queued {
		if _, ok := members[id]; !ok {
			return invalid("%s is not a member", id)
		}
	}
	if dup := lo.FindDuplicates(queued); len(dup) > 0 {
		return invalid("%s is queued more than once", dup[0])
	}
	for id := range s.Excused {
		if !lo.Contains(s.Completed, id) {
			return invalid("excused %s is not completed", id)
		}
	}

	if s.Current == "" && len(s.Pending) > 0 {
		return invalid("members are pending without a current member")
	}
	if s.QuestionIndex < 0 || s.QuestionIndex >= max(questionCount, 1) {
		return invalid("question index %d out of %d questions", s.QuestionIndex, questionCount)
	}
	if s.Current == "" && s.QuestionIndex != 0 {
		return invalid("question index %d without a current member", s.QuestionIndex)
	}
	return nil
}

// Restore replaces the session with a previously taken snapshot.
// An inconsistent snapshot is refused and the store is left untouched.
func (s *Store) Restore(snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := snap.Validate(s.questionCount); err != nil {
		return err
	}

	sess := &session{
		id:            snap.SessionID,
		initiatedBy:   snap.InitiatedBy,
		startedAt:     snap.StartedAt,
		status:        snap.Status,
		members:       make(map[MemberID]*Member, len(snap.Members)),
		pending:       append([]MemberID(nil), snap.Pending...),
		current:       snap.Current,
		questionIndex: snap.QuestionIndex,
		completed:     append([]MemberID(nil), snap.Completed...),
		excused:       lo.Assign(snap.Excused),
	}
	for _, m := range snap.Members {
		member := m
		sess.members[member.ID] = &member
		sess.roster = append(sess.roster, member.ID)
	}
	s.sess = sess
	return nil
}
