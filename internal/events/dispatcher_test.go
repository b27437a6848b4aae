package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDispatcherDeliversToSubscribersInOrder(t *testing.T) {
	d := NewInMemoryDispatcher(zap.NewNop())

	var calls []string
	d.Subscribe(EventTicketAssigned, func(ctx context.Context, e Event) error {
		calls = append(calls, "first:"+e.TicketID)
		return errors.New("handler failed")
	})
	d.Subscribe(EventTicketAssigned, func(ctx context.Context, e Event) error {
		calls = append(calls, "second:"+e.TicketID)
		return nil
	})
	d.Subscribe(EventTicketEscalated, func(ctx context.Context, e Event) error {
		calls = append(calls, "escalated")
		return nil
	})

	err := d.Publish(context.Background(), New(EventTicketAssigned, "t1", SystemActor, nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"first:t1", "second:t1"}, calls)
}

func TestNewStampsEvent(t *testing.T) {
	e := New(EventTicketCreated, "t1", UserActor("u1"), TicketCreatedPayload{Key: "INC-1"})
	assert.NotEmpty(t, e.ID)
	assert.False(t, e.Timestamp.IsZero())
	require.NotNil(t, e.Actor.UserID)
	assert.Equal(t, "u1", *e.Actor.UserID)
}
