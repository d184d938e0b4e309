package runtime

import (
	"context"
	"log/slog"
	"standupbot/contract"
	"standupbot/domain/event"
	"standupbot/domain/standup"
	"standupbot/errors"
	"standupbot/mocks"
	"sync"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type sentMessage struct {
	channel standup.ChannelID
	text    string
}

// recordingNotifier keeps every message in order.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (n *recordingNotifier) Send(channel standup.ChannelID, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMessage{channel: channel, text: text})
}

func (n *recordingNotifier) texts() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	texts := make([]string, 0, len(n.sent))
	for _, m := range n.sent {
		texts = append(texts, m.text)
	}
	return texts
}

func (n *recordingNotifier) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = nil
}

type InterpreterSuite struct {
	suite.Suite
	ctrl        *gomock.Controller
	directory   *mocks.MockDirectory
	notifier    *recordingNotifier
	events      chan event.DomainEvent
	interpreter *Interpreter
	store       *standup.Store
	roster      map[standup.MemberID]standup.Member
}

func TestInterpreterSuite(t *testing.T) {
	suite.Run(t, new(InterpreterSuite))
}

func (s *InterpreterSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.directory = mocks.NewMockDirectory(s.ctrl)
	s.notifier = &recordingNotifier{}
	s.events = make(chan event.DomainEvent, 100)
	s.roster = map[standup.MemberID]standup.Member{
		"A": {ID: "A", Name: "alice"},
		"B": {ID: "B", Name: "bob"},
		"C": {ID: "C", Name: "carol"},
		"W": {ID: "W", Name: "wendy", IsAdmin: true},
	}
	parser, err := standup.NewParser()
	s.Require().NoError(err)
	questions := standup.Questions{"Yesterday?", "Today?", "Blockers?"}
	s.interpreter = NewInterpreter(logs.GetLoggerFromLevel(slog.LevelDebug), parser,
		s.directory, s.notifier, standup.NewAdminList("X"), questions, s.events, "https://recap.example.com")
	s.store = standup.NewStore("C1", len(questions))

	s.directory.EXPECT().ResolveMember(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, id standup.MemberID) (standup.Member, error) {
			m, ok := s.roster[id]
			if !ok {
				return standup.Member{}, errors.ErrMemberNotFound
			}
			return m, nil
		}).AnyTimes()
	s.directory.EXPECT().ListMembers(gomock.Any(), standup.ChannelID("C1")).
		Return([]standup.Member{s.roster["A"], s.roster["B"], s.roster["C"]}, nil).AnyTimes()
}

func (s *InterpreterSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *InterpreterSuite) say(sender standup.MemberID, text string) contract.Outcome {
	return s.interpreter.Handle(context.Background(), s.store, event.Message{Channel: "C1", Sender: sender, Text: text})
}

func (s *InterpreterSuite) answerAll(id standup.MemberID) {
	s.say(id, "yes")
	s.say(id, "did things")
	s.say(id, "doing things")
	s.say(id, "none")
}

func (s *InterpreterSuite) drainEvents() []event.DomainEvent {
	var events []event.DomainEvent
	for {
		select {
		case evt := <-s.events:
			events = append(events, evt)
		default:
			return events
		}
	}
}

func (s *InterpreterSuite) TestStartGreetsFirstMember() {
	req := s.Require()

	// When B types start
	outcome := s.say("B", "start")

	// Then the session is active and A is greeted first
	req.Equal(contract.Continue, outcome)
	req.Equal([]string{
		"Standup has started.",
		"Goodmorning <@A>, Welcome to daily standup! Are you ready to begin? ('yes', or 'skip')",
	}, s.notifier.texts())
	req.Equal(standup.MemberID("B"), s.store.InitiatedBy())
	events := s.drainEvents()
	req.Len(events, 1)
	started, ok := events[0].(event.StandupStarted)
	req.True(ok)
	req.Equal([]standup.MemberID{"A", "B", "C"}, started.Members)
}

func (s *InterpreterSuite) TestFullScenario() {
	req := s.Require()
	s.say("A", "start")

	// When A acknowledges then answers the three questions
	s.notifier.reset()
	s.answerAll("A")

	req.Equal([]string{
		"<@A> 1. Yesterday?",
		"<@A> 2. Today?",
		"<@A> 3. Blockers?",
		"Thanks <@A>, you're all done for today!",
		"Goodmorning <@B>, Welcome to daily standup! Are you ready to begin? ('yes', or 'skip')",
	}, s.notifier.texts())

	// When B skips to the end
	s.notifier.reset()
	s.say("B", "skip")

	// Then C is greeted
	req.Equal([]string{
		"<@B> will go last.",
		"Goodmorning <@C>, Welcome to daily standup! Are you ready to begin? ('yes', or 'skip')",
	}, s.notifier.texts())

	// When C then B answer everything
	s.answerAll("C")
	s.say("B", "yes")
	s.say("B", "one")
	s.say("B", "two")
	s.notifier.reset()
	outcome := s.say("B", "three")

	// Then the completion is announced once and the channel is finished
	req.Equal(contract.Finished, outcome)
	req.Equal([]string{
		"Thanks <@B>, you're all done for today!",
		"That concludes our standup. For a recap visit https://recap.example.com",
	}, s.notifier.texts())
	req.Equal(standup.StatusComplete, s.store.Status())

	answers := 0
	for _, evt := range s.drainEvents() {
		if recorded, ok := evt.(event.AnswerRecorded); ok {
			answers++
			if recorded.Member.ID == "A" && recorded.QuestionIndex == 0 {
				req.Equal("did things", recorded.Answer)
				req.Equal("Yesterday?", recorded.Question)
			}
		}
	}
	req.Equal(9, answers)

	// And a later acknowledgement is told the standup was already submitted
	s.notifier.reset()
	req.Equal(contract.Continue, s.say("A", "yes"))
	req.Equal([]string{"You have already submitted a standup for today, thanks! <@A>"}, s.notifier.texts())
}

func (s *InterpreterSuite) TestOutOfTurnIsIgnored() {
	req := s.Require()
	s.say("A", "start")
	before, _ := s.store.Snapshot()
	s.notifier.reset()

	// When B, who is waiting, acknowledges and answers
	s.say("B", "yes")
	s.say("B", "my answer")

	// Then nothing changes and nothing is sent
	after, _ := s.store.Snapshot()
	req.Equal(before, after)
	req.Empty(s.notifier.texts())
}

func (s *InterpreterSuite) TestAnswerBeforeYesIsIgnored() {
	req := s.Require()
	s.say("A", "start")
	s.notifier.reset()

	s.say("A", "I fixed the build")

	req.Equal(0, s.store.QuestionIndex())
	req.Empty(s.notifier.texts())
}

func (s *InterpreterSuite) TestVacationByInitiator() {
	req := s.Require()
	s.say("A", "start")
	s.notifier.reset()

	// When the initiator puts B on vacation
	s.say("A", "vacation: <@B>")

	// Then B is excused and A keeps the turn
	req.Equal([]string{"<@B> is on vacation today."}, s.notifier.texts())
	req.Equal(standup.PhaseCompleted, s.store.PhaseOf("B"))
	current, _ := s.store.Current()
	req.Equal(standup.MemberID("A"), current.ID)
}

func (s *InterpreterSuite) TestAdminSkipOfCurrentPromotesNext() {
	req := s.Require()
	s.say("A", "start")
	s.notifier.reset()

	// When a workspace admin skips the current member
	s.say("W", "skip: <@A>")

	// Then B is greeted
	req.Equal([]string{
		"<@A> has been skipped for today.",
		"Goodmorning <@B>, Welcome to daily standup! Are you ready to begin? ('yes', or 'skip')",
	}, s.notifier.texts())
	reason, ok := s.store.Excused("A")
	req.True(ok)
	req.Equal(standup.ExcusedSkipped, reason)
}

func (s *InterpreterSuite) TestMentionByNonAdminRefused() {
	req := s.Require()
	s.say("A", "start")
	s.notifier.reset()

	s.say("C", "skip: <@A>")

	req.Equal([]string{"Sorry <@C>, only an admin or whoever started the standup can do that."}, s.notifier.texts())
	current, _ := s.store.Current()
	req.Equal(standup.MemberID("A"), current.ID)
}

func (s *InterpreterSuite) TestExcusingEveryoneCompletes() {
	req := s.Require()
	s.say("A", "start")
	s.notifier.reset()

	outcome := s.say("A", "vacation: <@B> skip: <@C> skip: <@A>")

	req.Equal(contract.Finished, outcome)
	texts := s.notifier.texts()
	req.Equal("That concludes our standup. For a recap visit https://recap.example.com", texts[len(texts)-1])
	req.Equal(standup.StatusComplete, s.store.Status())
}

func (s *InterpreterSuite) TestSkipAfterFirstAnswerIsRecorded() {
	req := s.Require()
	s.say("A", "start")
	s.say("A", "yes")
	s.say("A", "first")

	s.say("A", "skip")

	req.Equal(2, s.store.QuestionIndex())
	req.Equal([]standup.MemberID{"B", "C"}, s.store.Pending())
}

func (s *InterpreterSuite) TestQuit() {
	req := s.Require()
	s.say("A", "start")
	s.notifier.reset()

	outcome := s.say("C", "quit-standup")

	req.Equal(contract.Finished, outcome)
	req.Equal([]string{"Quitting standup"}, s.notifier.texts())
	req.Equal(standup.StatusAborted, s.store.Status())
}

func (s *InterpreterSuite) TestHelp() {
	req := s.Require()

	outcome := s.say("A", "help")

	req.Equal(contract.Continue, outcome)
	req.Equal([]string{helpText}, s.notifier.texts())
}

func (s *InterpreterSuite) TestUnknownSender() {
	req := s.Require()

	outcome := s.say("Z", "start")

	req.Equal(contract.Continue, outcome)
	req.False(s.store.HasSession())
	req.Equal([]string{"Sorry <@Z>, I don't know who you are. Please make sure you are a member of this channel."}, s.notifier.texts())
}

func (s *InterpreterSuite) TestSecondStartIgnored() {
	req := s.Require()
	s.say("A", "start")
	id := s.store.SessionID()
	s.notifier.reset()

	s.say("B", "start")

	req.Equal(id, s.store.SessionID())
	req.Empty(s.notifier.texts())
}

func (s *InterpreterSuite) TestGreet() {
	req := s.Require()

	// Given no session
	req.Equal(contract.Continue, s.interpreter.Greet(s.store))
	req.Equal([]string{`Welcome to standup! Type "start" to get started.`}, s.notifier.texts())

	// Given an active session where A is answering
	s.say("A", "start")
	s.say("A", "yes")
	s.notifier.reset()
	req.Equal(contract.Continue, s.interpreter.Greet(s.store))
	req.Equal([]string{msgResumed, "<@A> 1. Yesterday?"}, s.notifier.texts())

	// Given a completed session
	s.say("A", "vacation: <@A> vacation: <@B> vacation: <@C>")
	s.notifier.reset()
	req.Equal(contract.Finished, s.interpreter.Greet(s.store))
	req.Equal([]string{"Today's standup is already completed."}, s.notifier.texts())
}
