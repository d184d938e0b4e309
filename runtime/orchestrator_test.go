package runtime

import (
	"context"
	"log/slog"
	"standupbot/contract"
	"standupbot/domain/event"
	"standupbot/domain/standup"
	"standupbot/errors"
	"standupbot/infrastructure/storage"
	"standupbot/mocks"
	"standupbot/runtime/workers"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type fakeSource struct {
	events chan event.Event
}

func (f fakeSource) Events(context.Context) <-chan event.Event { return f.events }

// recordingSender stands for the transport, it never fails.
type recordingSender struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (s *recordingSender) PostMessage(_ context.Context, channel standup.ChannelID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentMessage{channel: channel, text: text})
	return nil
}

func (s *recordingSender) texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	texts := make([]string, 0, len(s.sent))
	for _, m := range s.sent {
		texts = append(texts, m.text)
	}
	return texts
}

type orchestratorFixture struct {
	orchestrator *Orchestrator
	source       fakeSource
	sender       *recordingSender
	sessions     *storage.SessionRepository
}

func newOrchestratorFixture(t *testing.T) orchestratorFixture {
	return newSlowOrchestratorFixture(t, nil, nil)
}

// newSlowOrchestratorFixture lists the channel members only once release is closed.
// listing is closed as soon as a listing begins.
func newSlowOrchestratorFixture(t *testing.T, listing chan struct{}, release <-chan struct{}) orchestratorFixture {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	alice := standup.Member{ID: "A", Name: "alice"}
	directory := mocks.NewMockDirectory(ctrl)
	directory.EXPECT().ResolveMember(gomock.Any(), standup.MemberID("A")).Return(alice, nil).AnyTimes()
	var listingOnce sync.Once
	directory.EXPECT().ListMembers(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, standup.ChannelID) ([]standup.Member, error) {
			if listing != nil {
				listingOnce.Do(func() { close(listing) })
			}
			if release != nil {
				<-release
			}
			return []standup.Member{alice}, nil
		}).AnyTimes()

	parser, err := standup.NewParser()
	require.NoError(t, err)

	cfg := Config{
		BufferSize:      10,
		SinkTimeout:     time.Second,
		SendTimeout:     time.Second,
		RetryBackoff:    10 * time.Millisecond,
		FarewellTimeout: time.Second,
	}
	domainEvents := make(chan event.DomainEvent, cfg.BufferSize)
	outbox := NewOutbox(log, cfg.BufferSize)
	questions := standup.Questions{"What did you do?"}
	interpreter := NewInterpreter(log, parser, directory, outbox, standup.NewAdminList(), questions, domainEvents, "")

	fixture := orchestratorFixture{
		source:   fakeSource{events: make(chan event.Event, 10)},
		sender:   &recordingSender{},
		sessions: storage.NewSessionRepository(db, log),
	}
	fixture.orchestrator = NewOrchestrator(log, cfg,
		workers.NewSupervisor(log, 10*time.Millisecond), workers.NewSupervisor(log, 10*time.Millisecond),
		NewRegistry(), outbox, interpreter, domainEvents,
		directory, fixture.source, fixture.sender, fixture.sessions, len(questions))
	return fixture
}

func (f orchestratorFixture) run(ctx context.Context) (chan ShutdownReason, chan error) {
	reasons := make(chan ShutdownReason, 1)
	errs := make(chan error, 1)
	go func() {
		reason, err := f.orchestrator.Run(ctx, []standup.ChannelID{"C1"})
		reasons <- reason
		errs <- err
	}()
	return reasons, errs
}

func waitReason(t *testing.T, reasons chan ShutdownReason) ShutdownReason {
	select {
	case reason := <-reasons:
		return reason
	case <-time.After(2 * time.Second):
		require.Fail(t, "orchestrator did not stop in time")
		return ""
	}
}

func TestOrchestrator_CompletedStandupShutsDown(t *testing.T) {
	req := require.New(t)
	f := newOrchestratorFixture(t)
	reasons, errs := f.run(context.Background())

	// When the only member goes through the standup
	now := time.Now()
	f.source.events <- event.NewConnected(now)
	f.source.events <- event.NewMessage(now, "C1", "A", "start")
	f.source.events <- event.NewMessage(now, "C1", "A", "yes")
	f.source.events <- event.NewMessage(now, "C1", "A", "shipped the release")

	// Then the bot stops by itself once every message is delivered, without farewell
	req.Equal(ShutdownCompleted, waitReason(t, reasons))
	req.NoError(<-errs)
	req.Equal([]string{
		`Welcome to standup! Type "start" to get started.`,
		"Standup has started.",
		"Goodmorning <@A>, Welcome to daily standup! Are you ready to begin? ('yes', or 'skip')",
		"<@A> 1. What did you do?",
		"Thanks <@A>, you're all done for today!",
		"That concludes our standup. Thanks everyone!",
	}, f.sender.texts())

	// And the completed session is kept for the rest of the day
	snapshot, err := f.sessions.Get("C1")
	req.NoError(err)
	req.Equal(standup.StatusComplete, snapshot.Status)
}

func TestOrchestrator_DisconnectSavesAndSaysFarewell(t *testing.T) {
	req := require.New(t)
	f := newOrchestratorFixture(t)

	// Given an active session saved today by a previous run
	req.NoError(f.sessions.Save(standup.Snapshot{
		SessionID: uuid.New(),
		Channel:   "C1",
		Status:    standup.StatusActive,
		StartedAt: time.Now().UTC(),
		Members:   []standup.Member{{ID: "A", Name: "alice", Readiness: standup.NotReady}},
		Current:   "A",
	}))
	reasons, errs := f.run(context.Background())

	// When the connection drops
	f.source.events <- event.NewDisconnected(time.Now(), "server closed")

	// Then the session survives and a farewell is posted
	req.Equal(ShutdownDisconnected, waitReason(t, reasons))
	req.NoError(<-errs)
	texts := f.sender.texts()
	req.NotEmpty(texts)
	req.Equal(msgFarewell, texts[len(texts)-1])

	snapshot, err := f.sessions.Get("C1")
	req.NoError(err)
	req.Equal(standup.StatusActive, snapshot.Status)
	req.Equal(standup.MemberID("A"), snapshot.Current)
}

func TestOrchestrator_SignalShutdown(t *testing.T) {
	req := require.New(t)
	f := newOrchestratorFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	reasons, errs := f.run(ctx)

	// When the process is asked to stop
	time.Sleep(20 * time.Millisecond)
	cancel()

	// Then no standup was running, so the bot only says it goes offline
	req.Equal(ShutdownSignal, waitReason(t, reasons))
	req.NoError(<-errs)
	req.Equal([]string{"Standup bot is going offline."}, f.sender.texts())
	_, err := f.sessions.Get("C1")
	req.ErrorIs(err, errors.ErrNoSession)
}

func TestOrchestrator_SignalDuringCommandDeliversRepliesBeforeFarewell(t *testing.T) {
	req := require.New(t)
	listing := make(chan struct{})
	release := make(chan struct{})
	f := newSlowOrchestratorFixture(t, listing, release)
	ctx, cancel := context.WithCancel(context.Background())
	reasons, errs := f.run(ctx)

	// Given a start command still waiting on the member list
	f.source.events <- event.NewMessage(time.Now(), "C1", "A", "start")
	select {
	case <-listing:
	case <-time.After(time.Second):
		require.Fail(t, "start command never listed the members")
	}

	// When the process is asked to stop before the command completes
	cancel()
	time.Sleep(50 * time.Millisecond)
	close(release)

	// Then the replies of the command go out, followed by the farewell
	req.Equal(ShutdownSignal, waitReason(t, reasons))
	req.NoError(<-errs)
	req.Equal([]string{
		"Standup has started.",
		"Goodmorning <@A>, Welcome to daily standup! Are you ready to begin? ('yes', or 'skip')",
		msgFarewell,
	}, f.sender.texts())

	// And the started session is saved for the next run
	snapshot, err := f.sessions.Get("C1")
	req.NoError(err)
	req.Equal(standup.StatusActive, snapshot.Status)
}

func TestOrchestrator_DiscardsAbortedAndStaleSessions(t *testing.T) {
	req := require.New(t)
	f := newOrchestratorFixture(t)

	// Given yesterday's session was saved
	req.NoError(f.sessions.Save(standup.Snapshot{
		SessionID: uuid.New(),
		Channel:   "C1",
		Status:    standup.StatusActive,
		StartedAt: time.Now().UTC().Add(-48 * time.Hour),
		Members:   []standup.Member{{ID: "A"}},
		Current:   "A",
	}))
	ctx, cancel := context.WithCancel(context.Background())
	reasons, _ := f.run(ctx)

	// When the bot says hello
	f.source.events <- event.NewConnected(time.Now())
	time.Sleep(50 * time.Millisecond)
	cancel()
	waitReason(t, reasons)

	// Then the channel starts from scratch
	req.Equal(`Welcome to standup! Type "start" to get started.`, f.sender.texts()[0])
	_, err := f.sessions.Get("C1")
	req.ErrorIs(err, errors.ErrNoSession)
}

func TestOrchestrator_DiscardsInconsistentSession(t *testing.T) {
	req := require.New(t)
	f := newOrchestratorFixture(t)

	// Given today's session names a current member missing from the roster
	req.NoError(f.sessions.Save(standup.Snapshot{
		SessionID: uuid.New(),
		Channel:   "C1",
		Status:    standup.StatusActive,
		StartedAt: time.Now().UTC(),
		Members:   []standup.Member{{ID: "A", Name: "alice"}},
		Current:   "Z",
	}))
	ctx, cancel := context.WithCancel(context.Background())
	reasons, errs := f.run(ctx)

	// When the bot says hello
	f.source.events <- event.NewConnected(time.Now())
	time.Sleep(50 * time.Millisecond)
	cancel()
	req.Equal(ShutdownSignal, waitReason(t, reasons))
	req.NoError(<-errs)

	// Then the channel starts from scratch instead of resuming
	req.Equal([]string{
		`Welcome to standup! Type "start" to get started.`,
		"Standup bot is going offline.",
	}, f.sender.texts())
	_, err := f.sessions.Get("C1")
	req.ErrorIs(err, errors.ErrNoSession)
}

func TestOrchestrator_RouteIgnoresUnknownChannel(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	inbox := make(chan event.Event, 1)
	registry.Track(standup.NewStore("C1", 1), inbox)
	o := &Orchestrator{log: slog.Default(), registry: registry, shutdown: make(chan ShutdownReason, 1)}

	o.Route(event.NewMessage(time.Now(), "C9", "A", "start"))
	req.Empty(inbox)

	o.Route(event.NewMessage(time.Now(), "C1", "A", "start"))
	req.Len(inbox, 1)

	// And nothing is routed once stopping
	<-inbox
	o.stopping.Store(true)
	o.Route(event.NewMessage(time.Now(), "C1", "A", "start"))
	req.Empty(inbox)
}

var _ contract.EventRouter = (*Orchestrator)(nil)
