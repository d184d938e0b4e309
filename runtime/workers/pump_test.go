package workers

import (
	"context"
	"log/slog"
	"standupbot/domain/event"
	"standupbot/mocks"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestEventPump_RoutesValidEvents(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	source := mocks.NewMockEventSource(ctrl)
	router := mocks.NewMockEventRouter(ctrl)

	events := make(chan event.Event, 3)
	hello := event.NewConnected(time.Now())
	msg := event.NewMessage(time.Now(), "C1", "A", "start")
	events <- hello
	events <- event.Event{Kind: event.MessageKind, At: time.Now()}
	events <- msg
	close(events)

	source.EXPECT().Events(gomock.Any()).Return((<-chan event.Event)(events)).Times(1)
	// Given the malformed message is dropped
	first := router.EXPECT().Route(hello).Times(1)
	second := router.EXPECT().Route(msg).After(first).Times(1)
	// Then the closed stream is reported as a disconnection
	router.EXPECT().Route(gomock.Any()).
		Do(func(evt event.Event) { req.Equal(event.Disconnected, evt.Kind) }).
		After(second).
		Times(1)

	req.NoError(NewEventPump(slog.Default(), source, router).Run(context.Background()))
}

func TestEventPump_StopsAfterDisconnect(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	source := mocks.NewMockEventSource(ctrl)
	router := mocks.NewMockEventRouter(ctrl)

	events := make(chan event.Event, 2)
	bye := event.NewDisconnected(time.Now(), "server closed")
	events <- bye
	source.EXPECT().Events(gomock.Any()).Return((<-chan event.Event)(events)).Times(1)
	router.EXPECT().Route(bye).Times(1)

	req.NoError(NewEventPump(slog.Default(), source, router).Run(context.Background()))
}
