package events_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/user-api/internal/events"
)

func TestDispatcherPublishSubscribe(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()

	var seen []events.EventType
	dispatcher.Subscribe(events.EventLoginSucceeded, func(_ context.Context, e events.Event) error {
		seen = append(seen, e.Type)
		return nil
	})
	dispatcher.Subscribe(events.EventLoginSucceeded, func(_ context.Context, e events.Event) error {
		seen = append(seen, e.Type)
		return nil
	})

	err := dispatcher.Publish(context.Background(), events.Event{
		ID:        "evt-1",
		Type:      events.EventLoginSucceeded,
		Username:  "alice",
		Timestamp: time.Now(),
	})
	require.NoError(t, err)
	require.Len(t, seen, 2)
}

func TestDispatcherHandlerErrorDoesNotStopDelivery(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()

	called := false
	dispatcher.Subscribe(events.EventLoginFailed, func(context.Context, events.Event) error {
		return errors.New("handler failure")
	})
	dispatcher.Subscribe(events.EventLoginFailed, func(context.Context, events.Event) error {
		called = true
		return nil
	})

	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{Type: events.EventLoginFailed}))
	require.True(t, called)
}

func TestDispatcherIgnoresUnsubscribedTypes(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()

	called := false
	dispatcher.Subscribe(events.EventUserRegistered, func(context.Context, events.Event) error {
		called = true
		return nil
	})

	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{Type: events.EventPasswordChanged}))
	require.False(t, called)
}
