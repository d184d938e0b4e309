package workers

import (
	"context"
	"log/slog"
	"standupbot/contract"
	"standupbot/domain/event"
	"standupbot/domain/standup"
	"standupbot/mocks"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestChannelWorker_ProcessPersistsAndReportsFinished(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	handler := mocks.NewMockChannelHandler(ctrl)
	sessions := mocks.NewMockSessionRepository(ctrl)

	store := standup.NewStore("C1", 1)
	req.NoError(store.Start("A", []standup.Member{{ID: "A"}}, time.Now()))

	var finished []standup.ChannelID
	worker := NewChannelWorker(slog.Default(), store, nil, handler, sessions,
		func(channel standup.ChannelID) { finished = append(finished, channel) })

	msg := event.NewMessage(time.Now(), "C1", "A", "quit-standup")

	// Given the handler reports the channel is done
	handler.EXPECT().Handle(gomock.Any(), store, *msg.Message).Return(contract.Finished).Times(1)
	// Then the snapshot is saved
	sessions.EXPECT().Save(gomock.Any()).
		DoAndReturn(func(snapshot standup.Snapshot) error {
			req.Equal(standup.ChannelID("C1"), snapshot.Channel)
			return nil
		}).
		Times(1)

	// When the message is processed
	worker.Process(context.Background(), msg)

	// And the channel is reported finished
	req.Equal([]standup.ChannelID{"C1"}, finished)
}

func TestChannelWorker_GreetWithoutSessionSavesNothing(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	handler := mocks.NewMockChannelHandler(ctrl)
	sessions := mocks.NewMockSessionRepository(ctrl)

	store := standup.NewStore("C1", 1)
	finished := false
	worker := NewChannelWorker(slog.Default(), store, nil, handler, sessions,
		func(standup.ChannelID) { finished = true })

	handler.EXPECT().Greet(store).Return(contract.Continue).Times(1)
	sessions.EXPECT().Save(gomock.Any()).Times(0)

	worker.Process(context.Background(), event.NewConnected(time.Now()))

	req.False(finished)
}

func TestChannelWorker_RunsEventsInOrder(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	handler := mocks.NewMockChannelHandler(ctrl)
	sessions := mocks.NewMockSessionRepository(ctrl)

	store := standup.NewStore("C1", 1)
	inbox := make(chan event.Event, 3)
	worker := NewChannelWorker(slog.Default(), store, inbox, handler, sessions, nil)

	done := make(chan struct{})
	var texts []string
	handler.EXPECT().Handle(gomock.Any(), store, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ *standup.Store, msg event.Message) contract.Outcome {
			texts = append(texts, msg.Text)
			if len(texts) == 3 {
				close(done)
			}
			return contract.Continue
		}).
		Times(3)

	for _, text := range []string{"start", "yes", "done"} {
		inbox <- event.NewMessage(time.Now(), "C1", "A", text)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = worker.Run(ctx) }()

	select {
	case <-done:
	case <-time.After(time.Second):
		req.Fail("events were not processed in time")
	}
	req.Equal([]string{"start", "yes", "done"}, texts)
}

func TestChannelWorker_CancelDuringEventLetsItFinish(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	handler := mocks.NewMockChannelHandler(ctrl)
	sessions := mocks.NewMockSessionRepository(ctrl)

	store := standup.NewStore("C1", 1)
	inbox := make(chan event.Event, 1)
	worker := NewChannelWorker(slog.Default(), store, inbox, handler, sessions, nil)

	ctx, cancel := context.WithCancel(context.Background())
	handled := make(chan error, 1)
	handler.EXPECT().Handle(gomock.Any(), store, gomock.Any()).
		DoAndReturn(func(handlerCtx context.Context, _ *standup.Store, _ event.Message) contract.Outcome {
			// Given the worker is canceled while the event is applied
			cancel()
			handled <- handlerCtx.Err()
			return contract.Continue
		}).
		Times(1)

	inbox <- event.NewMessage(time.Now(), "C1", "A", "start")
	stopped := make(chan error, 1)
	go func() { stopped <- worker.Run(ctx) }()

	// Then the event keeps a live context and the worker stops afterwards
	select {
	case err := <-handled:
		req.NoError(err)
	case <-time.After(time.Second):
		req.Fail("event was not processed in time")
	}
	select {
	case err := <-stopped:
		req.NoError(err)
	case <-time.After(time.Second):
		req.Fail("worker did not stop")
	}
}
