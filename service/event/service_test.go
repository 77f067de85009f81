package event

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/procsched/service/messaging"
	"github.com/viant/procsched/service/messaging/memory"
)

type procRow struct {
	Pid  int
	Name string
}

func TestService_PublisherOf(t *testing.T) {
	srv := New(WithBootID("boot-1"))
	publisher := PublisherOf[procRow](srv)
	assert.Same(t, publisher, PublisherOf[procRow](srv))

	ctx := context.Background()
	err := publisher.Publish(ctx, NewEvent(&Context{Pid: 3, Name: "sh", Type: TypeForked}, procRow{Pid: 3, Name: "sh"}))
	require.NoError(t, err)

	msg, err := publisher.Consume(ctx)
	require.NoError(t, err)
	require.NoError(t, msg.Ack())
	actual := msg.T()
	assert.Equal(t, TypeForked, actual.Context.Type)
	assert.Equal(t, "boot-1", actual.Context.BootID)
	assert.Equal(t, procRow{Pid: 3, Name: "sh"}, actual.Data)
}

func TestService_SetListenerOf(t *testing.T) {
	srv := New()
	defer srv.Close()
	received := make(chan *Event[procRow], 4)
	SetListenerOf[procRow](srv, func(e *Event[procRow]) { received <- e })


	publisher := PublisherOf[procRow](srv)
	require.NoError(t, publisher.Publish(context.Background(), NewEvent(&Context{Pid: 2, Type: TypeReaped}, procRow{Pid: 2})))

	select {
	case e := <-received:
		assert.Equal(t, TypeReaped, e.Context.Type)
		assert.Equal(t, 2, e.Data.Pid)
	case <-time.After(2 * time.Second):
		t.Fatal("typed listener did not receive event")
	}
}

func TestService_DropWhenFull(t *testing.T) {
	srv := New(WithNewMemoryQueueConfig(func(name string) memory.Config {
		return memory.Config{QueueBuffer: 1, DropWhenFull: true}
	}))
	publisher := PublisherOf[procRow](srv)
	ctx := context.Background()
	require.NoError(t, publisher.Publish(ctx, NewEvent(&Context{Pid: 1}, procRow{Pid: 1})))
	assert.ErrorIs(t, publisher.Publish(ctx, NewEvent(&Context{Pid: 2}, procRow{Pid: 2})), messaging.ErrQueueFull)
	assert.Equal(t, 1, publisher.Dropped())
	assert.Equal(t, 1, srv.Dropped())
}

func TestService_ListenerRedeliversAfterPanic(t *testing.T) {
	srv := New(WithNewMemoryQueueConfig(func(name string) memory.Config {
		return memory.Config{MaxRetries: 1, QueueBuffer: 4, DropWhenFull: true}
	}))
	defer srv.Close()
	calls := make(chan int, 8)
	SetListenerOf[procRow](srv, func(e *Event[procRow]) {
		calls <- e.Data.Pid
		panic("handler failed")
	})
	publisher := PublisherOf[procRow](srv)
	require.NoError(t, publisher.Publish(context.Background(), NewEvent(&Context{Pid: 7, Type: TypeExited}, procRow{Pid: 7})))

	for i := 0; i < 2; i++ {
		select {
		case pid := <-calls:
			assert.Equal(t, 7, pid)
		case <-time.After(2 * time.Second):
			t.Fatalf("delivery %d not received", i+1)
		}
	}
	require.Eventually(t, func() bool { return srv.Dropped() == 1 }, 2*time.Second, time.Millisecond)
	assert.Len(t, calls, 0)
}
