package streaming

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case got := <-ch:
		return got
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func assertQuiet(t *testing.T, ch <-chan Event) {
	t.Helper()
	select {
	case evt := <-ch:
		t.Fatalf("unexpected event: %+v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublishSubscribe(t *testing.T) {
	hub := NewMemoryHub()
	ctx := context.Background()

	ch, cancel, err := hub.Subscribe(ctx, EventFilter{})
	require.NoError(t, err)
	defer cancel()

	event := Event{Workflow: "etl", Type: EventPatched, Payload: map[string]any{"changed": 1}}
	require.NoError(t, hub.Publish(ctx, event))

	assert.Equal(t, event, receive(t, ch))
}

func TestFilterByWorkflow(t *testing.T) {
	hub := NewMemoryHub()
	ctx := context.Background()

	ch, cancel, err := hub.Subscribe(ctx, EventFilter{Workflow: "etl"})
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, hub.Publish(ctx, Event{Workflow: "etl", Type: EventPatched}))
	require.NoError(t, hub.Publish(ctx, Event{Workflow: "backup", Type: EventPatched}))

	assert.Equal(t, "etl", receive(t, ch).Workflow)
	assertQuiet(t, ch)
}

func TestFilterByType(t *testing.T) {
	hub := NewMemoryHub()
	ctx := context.Background()

	ch, cancel, err := hub.Subscribe(ctx, EventFilter{Types: []string{EventFailed}})
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, hub.Publish(ctx, Event{Workflow: "etl", Type: EventPatched}))
	require.NoError(t, hub.Publish(ctx, Event{Workflow: "etl", Type: EventFailed}))

	assert.Equal(t, EventFailed, receive(t, ch).Type)
	assertQuiet(t, ch)
}

func TestCancelUnsubscribes(t *testing.T) {
	hub := NewMemoryHub()
	ctx := context.Background()

	ch, cancel, err := hub.Subscribe(ctx, EventFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, hub.Subscribers())

	cancel()
	cancel()
	assert.Zero(t, hub.Subscribers())

	_, open := <-ch
	assert.False(t, open)
	require.NoError(t, hub.Publish(ctx, Event{Type: EventPatched}))
}

func TestSlowSubscriberDropsEvents(t *testing.T) {
	hub := NewMemoryHub()
	ctx := context.Background()

	ch, cancel, err := hub.Subscribe(ctx, EventFilter{})
	require.NoError(t, err)
	defer cancel()

	for i := 0; i < defaultChannelBuffer+10; i++ {
		require.NoError(t, hub.Publish(ctx, Event{Type: EventPatched}))
	}
	assert.Len(t, ch, defaultChannelBuffer)
}

func TestPublishCancelledContext(t *testing.T) {
	hub := NewMemoryHub()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, hub.Publish(ctx, Event{}))
	_, _, err := hub.Subscribe(ctx, EventFilter{})
	assert.Error(t, err)
}

func TestConcurrentPublish(t *testing.T) {
	hub := NewMemoryHub()
	ctx := context.Background()

	ch, cancel, err := hub.Subscribe(ctx, EventFilter{})
	require.NoError(t, err)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_ = hub.Publish(ctx, Event{Type: EventPatched})
			}
		}()
	}
	wg.Wait()
	assert.Len(t, ch, 40)
}

func TestHandlerStreamsEvents(t *testing.T) {
	hub := NewMemoryHub()
	srv := httptest.NewServer(Handler(hub))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "?workflow=etl&types=" + EventPatched)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)
	require.NoError(t, hub.Publish(context.Background(), Event{Workflow: "backup", Type: EventPatched}))
	require.NoError(t, hub.Publish(context.Background(), Event{Workflow: "etl", Type: EventPatched}))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: graph.patched\n", line)
	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(line, `data: {"workflow":"etl","type":"graph.patched"`))
}
