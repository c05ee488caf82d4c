package ferryq

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type eventSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *eventSink) handler(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
}

func (s *eventSink) snapshot() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

func TestEmitter_DeliversInOrder(t *testing.T) {
	em := newEmitter(NewFmtLogger())
	sink := &eventSink{}
	em.subscribe(sink.handler)

	for i := 1; i <= 5; i++ {
		em.publish(Event{TaskID: "a", Status: StatusUploading, Progress: i * 10})
	}
	em.close()

	got := sink.snapshot()
	require.Len(t, got, 5)
	for i, ev := range got {
		require.Equal(t, (i+1)*10, ev.Progress)
	}
}

func TestEmitter_UnsubscribeStopsDelivery(t *testing.T) {
	em := newEmitter(NewFmtLogger())
	sink := &eventSink{}
	sub := em.subscribe(sink.handler)

	em.publish(Event{TaskID: "a", Status: StatusQueued})
	require.Eventually(t, func() bool { return len(sink.snapshot()) == 1 }, time.Second, time.Millisecond)

	em.unsubscribe(sub)
	em.publish(Event{TaskID: "a", Status: StatusUploading})
	em.close()
	require.Len(t, sink.snapshot(), 1)
}

func TestEmitter_PanickingHandlerIsIsolated(t *testing.T) {
	em := newEmitter(NewFmtLogger())
	em.subscribe(func(Event) { panic("subscriber bug") })
	sink := &eventSink{}
	em.subscribe(sink.handler)

	em.publish(Event{TaskID: "a", Status: StatusQueued})
	em.publish(Event{TaskID: "a", Status: StatusUploading})
	em.close()

	require.Len(t, sink.snapshot(), 2, "panic in one handler must not block the others")
}

func TestEmitter_PublishAfterCloseIsDropped(t *testing.T) {
	em := newEmitter(NewFmtLogger())
	sink := &eventSink{}
	em.subscribe(sink.handler)
	em.close()
	em.publish(Event{TaskID: "a", Status: StatusQueued})
	require.Empty(t, sink.snapshot())
	// close is idempotent
	em.close()
}

func TestJSONEventWriter(t *testing.T) {
	var buf bytes.Buffer
	h := NewJSONEventWriter(&buf, nil)

	h(Event{TaskID: "a", Status: StatusUploading, Progress: 42, At: 123})
	h(Event{TaskID: "a", Status: StatusFailed, Err: "boom", At: 124})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var ev Event
	require.NoError(t, (&JSONEncoder{}).Decode([]byte(lines[0]), &ev))
	require.Equal(t, "a", ev.TaskID)
	require.Equal(t, StatusUploading, ev.Status)
	require.Equal(t, 42, ev.Progress)

	require.NoError(t, (&JSONEncoder{}).Decode([]byte(lines[1]), &ev))
	require.Equal(t, StatusFailed, ev.Status)
	require.Equal(t, "boom", ev.Err)
}
