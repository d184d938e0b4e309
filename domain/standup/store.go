package standup

import (
	"fmt"
	"standupbot/errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type Status string

const (
	StatusInactive Status = "INACTIVE"
	StatusActive   Status = "ACTIVE"
	StatusComplete Status = "COMPLETE"
	StatusAborted  Status = "ABORTED"
)

type ExcuseReason string

const (
	ExcusedVacation ExcuseReason = "VACATION"
	ExcusedSkipped  ExcuseReason = "SKIPPED"
)

// Phase tells where a member stands in the interview rotation.
type Phase string

const (
	PhaseAbsent    Phase = "ABSENT"
	PhasePending   Phase = "PENDING"
	PhaseCurrent   Phase = "CURRENT"
	PhaseCompleted Phase = "COMPLETED"
)

type session struct {
	id            uuid.UUID
	initiatedBy   MemberID
	startedAt     time.Time
	status        Status
	members       map[MemberID]*Member
	roster        []MemberID
	pending       []MemberID
	current       MemberID
	questionIndex int
	completed     []MemberID
	excused       map[MemberID]ExcuseReason
}

// Store holds the standup session of a single channel.
// It is a pure state machine: no I/O, no notification.
// A member is always in at most one of pending, current or completed.
type Store struct {
	mu            sync.Mutex
	channel       ChannelID
	questionCount int
	sess          *session
}

func NewStore(channel ChannelID, questionCount int) *Store {
	return &Store{channel: channel, questionCount: questionCount}
}

func (s *Store) Channel() ChannelID { return s.channel }

// Start opens an active session. Members are queued in the given order,
// the first one becomes the current member.
func (s *Store) Start(initiator MemberID, members []Member, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sess != nil {
		return fmt.Errorf("%w: %s", errors.ErrAlreadyActive, s.channel)
	}
	members = lo.UniqBy(members, func(m Member) MemberID { return m.ID })
	if len(members) == 0 {
		return errors.ErrEmptyRoster
	}

	sess := &session{
		id:          uuid.New(),
		initiatedBy: initiator,
		startedAt:   at,
		status:      StatusActive,
		members:     make(map[MemberID]*Member, len(members)),
		excused:     make(map[MemberID]ExcuseReason),
	}
	for _, m := range members {
		member := m
		member.Readiness = NotReady
		sess.members[member.ID] = &member
		sess.roster = append(sess.roster, member.ID)
		if member.OnVacation {
			sess.completed = append(sess.completed, member.ID)
			sess.excused[member.ID] = ExcusedVacation
			continue
		}
		sess.pending = append(sess.pending, member.ID)
	}
	sess.promoteNext()
	s.sess = sess
	return nil
}

// AdvanceQuestion moves the current member to the next question.
// Passing the last question completes the member and promotes the next one.
func (s *Store) AdvanceQuestion(id MemberID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkActive(); err != nil {
		return err
	}
	if s.sess.current != id {
		return errors.ErrNotCurrentMember
	}
	s.sess.questionIndex++
	if s.sess.questionIndex >= s.questionCount {
		s.sess.completed = append(s.sess.completed, id)
		s.sess.promoteNext()
	}
	return nil
}

// MarkReady returns true only when the current member just became ready.
func (s *Store) MarkReady(id MemberID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.checkActive() != nil || s.sess.current != id {
		return false
	}
	member := s.sess.members[id]
	if member.Readiness == Ready {
		return false
	}
	member.Readiness = Ready
	return true
}

// SkipCurrentToEnd sends the current member to the back of the queue.
// Only allowed before the first answer.
func (s *Store) SkipCurrentToEnd(id MemberID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkActive(); err != nil {
		return err
	}
	if s.sess.current != id {
		return errors.ErrNotCurrentMember
	}
	if s.sess.questionIndex > 0 {
		return errors.ErrAlreadyAnswering
	}
	s.sess.members[id].Readiness = NotReady
	s.sess.pending = append(s.sess.pending, id)
	s.sess.current = ""
	s.sess.promoteNext()
	return nil
}

func (s *Store) Vacation(id MemberID) error {
	return s.excuse(id, ExcusedVacation)
}

func (s *Store) AdminSkip(id MemberID) error {
	return s.excuse(id, ExcusedSkipped)
}

// excuse removes a member from the rotation without answers, whoever's turn it is.
func (s *Store) excuse(id MemberID, reason ExcuseReason) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkActive(); err != nil {
		return err
	}
	sess := s.sess
	switch sess.phase(id) {
	case PhaseCompleted:
		return nil
	case PhaseCurrent:
		sess.current = ""
		sess.promoteNext()
	case PhasePending:
		sess.pending = lo.Without(sess.pending, id)
	default:
		return fmt.Errorf("%w: %s", errors.ErrMemberNotFound, id)
	}
	sess.completed = append(sess.completed, id)
	sess.excused[id] = reason
	if reason == ExcusedVacation {
		sess.members[id].OnVacation = true
	}
	return nil
}

// IsComplete reports whether everybody went through and the session is not finalized yet.
func (s *Store) IsComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isComplete()
}

func (s *Store) isComplete() bool {
	return s.sess != nil &&
		s.sess.status == StatusActive &&
		len(s.sess.pending) == 0 &&
		s.sess.current == ""
}

// Finalize closes a complete session. Only the first caller gets true.
func (s *Store) Finalize() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isComplete() {
		return false
	}
	s.sess.status = StatusComplete
	return true
}

// Quit aborts the session, no transition is accepted afterwards.
func (s *Store) Quit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkActive(); err != nil {
		return err
	}
	s.sess.status = StatusAborted
	s.sess.current = ""
	s.sess.questionIndex = 0
	return nil
}

// Clear forgets the session so a new one can be started.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess = nil
}

func (s *Store) checkActive() error {
	if s.sess == nil {
		return errors.ErrNoSession
	}
	if s.sess.status != StatusActive {
		return errors.ErrSessionClosed
	}
	return nil
}

func (s *Store) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil {
		return StatusInactive
	}
	return s.sess.status
}

func (s *Store) HasSession() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess != nil
}

// Current returns the member being interviewed, if any.
func (s *Store) Current() (Member, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil || s.sess.current == "" {
		return Member{}, false
	}
	return *s.sess.members[s.sess.current], true
}

func (s *Store) QuestionIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil {
		return 0
	}
	return s.sess.questionIndex
}

func (s *Store) QuestionCount() int { return s.questionCount }

func (s *Store) PhaseOf(id MemberID) Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil {
		return PhaseAbsent
	}
	return s.sess.phase(id)
}

func (s *Store) InitiatedBy() MemberID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil {
		return ""
	}
	return s.sess.initiatedBy
}

func (s *Store) SessionID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil {
		return uuid.Nil
	}
	return s.sess.id
}

func (s *Store) Pending() []MemberID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil {
		return nil
	}
	return append([]MemberID(nil), s.sess.pending...)
}

func (s *Store) Completed() []MemberID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil {
		return nil
	}
	return append([]MemberID(nil), s.sess.completed...)
}

// Excused returns the reason a member was taken out of the rotation, if any.
func (s *Store) Excused(id MemberID) (ExcuseReason, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil {
		return "", false
	}
	reason, ok := s.sess.excused[id]
	return reason, ok
}

func (sess *session) phase(id MemberID) Phase {
	switch {
	case sess.current != "" && sess.current == id:
		return PhaseCurrent
	case lo.Contains(sess.pending, id):
		return PhasePending
	case lo.Contains(sess.completed, id):
		return PhaseCompleted
	default:
		return PhaseAbsent
	}
}

// promoteNext picks the head of the pending queue as the current member.
func (sess *session) promoteNext() {
	sess.questionIndex = 0
	if len(sess.pending) == 0 {
		sess.current = ""
		return
	}
	sess.current = sess.pending[0]
	sess.pending = sess.pending[1:]
	sess.members[sess.current].Readiness = NotReady
}
